package commands

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/nantrunner/internal/config"
	rerrors "git.home.luguber.info/inful/nantrunner/internal/errors"
	"git.home.luguber.info/inful/nantrunner/internal/history"
	"git.home.luguber.info/inful/nantrunner/internal/logfields"
	"git.home.luguber.info/inful/nantrunner/internal/notify"
	"git.home.luguber.info/inful/nantrunner/internal/retry"
	"git.home.luguber.info/inful/nantrunner/internal/runner"
)

// runServices are the optional run listeners enabled by configuration.
type runServices struct {
	store      *history.SQLiteStore
	projection *history.Projection
	publisher  *notify.NATSPublisher
	listeners  []runner.Listener
	logger     *slog.Logger
}

// openServices opens the history store and the NATS publisher when
// configured. A history failure is fatal; an unreachable NATS server is not.
func openServices(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*runServices, error) {
	s := &runServices{logger: logger}

	if cfg.History.Enabled {
		store, err := history.NewSQLiteStore(cfg.History.Path)
		if err != nil {
			return nil, rerrors.Wrap(err, rerrors.CategoryHistory, rerrors.SeverityError, "failed to open history store").
				WithContext("path", cfg.History.Path)
		}
		s.store = store
		s.projection = history.NewProjection(store, 0)
		if err := s.projection.Rebuild(ctx); err != nil {
			s.Close()
			return nil, rerrors.Wrap(err, rerrors.CategoryHistory, rerrors.SeverityError, "failed to read history").
				WithContext("path", cfg.History.Path)
		}
		s.listeners = append(s.listeners, history.NewRecorder(store, s.projection))
	}

	if cfg.Notify.NATSURL != "" {
		pub, err := notify.ConnectWithRetry(ctx, cfg.Notify.NATSURL, retry.FromNotify(cfg.Notify), logger)
		if err != nil {
			logger.Warn("Run notifications disabled", logfields.Error(err))
		} else {
			s.publisher = pub
			s.listeners = append(s.listeners, notify.NewNotifier(pub, cfg.Notify.Subject, logger))
		}
	}
	return s, nil
}

// executorOptions returns the executor options attaching every listener.
func (s *runServices) executorOptions(extra ...runner.Option) []runner.Option {
	opts := append([]runner.Option{runner.WithLogger(s.logger)}, extra...)
	for _, l := range s.listeners {
		opts = append(opts, runner.WithListener(l))
	}
	return opts
}

// Close releases the store and the NATS connection.
func (s *runServices) Close() {
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			s.logger.Warn("Failed to drain NATS connection", logfields.Error(err))
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn("Failed to close history store", logfields.Error(err))
		}
	}
}
