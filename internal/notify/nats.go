package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/nantrunner/internal/logfields"
	"git.home.luguber.info/inful/nantrunner/internal/retry"
)

const flushTimeout = 5 * time.Second

// NATSPublisher publishes over a core NATS connection.
type NATSPublisher struct {
	conn *nats.Conn
}

// Connect dials url. The connection reconnects on its own after transient failures.
func Connect(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("nantrunner"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			slog.Info("NATS reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	slog.Info("NATS publisher connected", "url", url)
	return &NATSPublisher{conn: conn}, nil
}

// ConnectWithRetry dials url, retrying per policy while the server is
// unreachable. Authorization failures are not retried.
func ConnectWithRetry(ctx context.Context, url string, policy retry.Policy, logger *slog.Logger) (*NATSPublisher, error) {
	var pub *NATSPublisher
	err := retry.Do(ctx, policy, func() error {
		p, err := Connect(url)
		if err != nil {
			if errors.Is(err, nats.ErrAuthorization) {
				return retry.Permanent(err)
			}
			return err
		}
		pub = p
		return nil
	}, func(attempt int, delay time.Duration, err error) {
		logger.Warn("Retrying NATS connection",
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			logfields.Error(err))
	})
	if err != nil {
		return nil, err
	}
	return pub, nil
}

// Publish sends data and waits for the server to acknowledge the flush.
func (p *NATSPublisher) Publish(subject string, data []byte) error {
	if err := p.conn.Publish(subject, data); err != nil {
		return err
	}
	return p.conn.FlushTimeout(flushTimeout)
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	if p == nil || p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}
