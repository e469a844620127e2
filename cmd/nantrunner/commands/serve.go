package commands

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/nantrunner/internal/config"
	"git.home.luguber.info/inful/nantrunner/internal/console"
	"git.home.luguber.info/inful/nantrunner/internal/controller"
	"git.home.luguber.info/inful/nantrunner/internal/logfields"
	"git.home.luguber.info/inful/nantrunner/internal/metrics"
	"git.home.luguber.info/inful/nantrunner/internal/runner"
	"git.home.luguber.info/inful/nantrunner/internal/scheduler"
	"git.home.luguber.info/inful/nantrunner/internal/script"
	"git.home.luguber.info/inful/nantrunner/internal/server/handlers"
	"git.home.luguber.info/inful/nantrunner/internal/server/httpserver"
	"git.home.luguber.info/inful/nantrunner/internal/services"
	"git.home.luguber.info/inful/nantrunner/internal/watch"
)

const shutdownTimeout = 30 * time.Second

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Script string `short:"f" name:"file" help:"Build script (discovered when omitted)" type:"path"`
	Listen string `short:"l" help:"Listen address, overrides daemon.listen"`
	Echo   bool   `help:"Echo build output to stdout as well as the console buffer"`
}

func (s *ServeCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	if s.Listen != "" {
		cfg.Daemon.Listen = s.Listen
	}
	file, err := resolveScript(cfg, s.Script, g.Logger)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return RunServe(ctx, cfg, file, s.Echo, g)
}

// RunServe wires the controller and its services, then blocks until ctx is
// cancelled. Services stop in reverse dependency order.
func RunServe(ctx context.Context, cfg *config.Config, file string, echo bool, g *Global) error {
	logger := g.Logger
	logger.Info("Starting nantrunner server", logfields.File(file), slog.String("listen", cfg.Daemon.Listen))

	svc, err := openServices(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	reg := metrics.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(reg)

	buffer := console.NewBuffer(cfg.Daemon.ConsoleLines)
	var sink console.Sink = buffer
	if echo {
		sink = console.NewTee(buffer, console.NewWriter(g.Out))
	}
	exec := runner.NewExecutor(cfg.RunnerOptions(), sink, svc.executorOptions(runner.WithRecorder(recorder))...)
	ctrl := controller.New(exec, controller.Options{
		ResolveIncludes: cfg.Script.ResolveIncludes,
		Logger:          logger,
		Recorder:        recorder,
		Console:         buffer,
	})

	orch := services.NewServiceOrchestrator(logger).WithTimeouts(shutdownTimeout, shutdownTimeout)
	if err := orch.RegisterService(services.NewRunnerService(ctrl)); err != nil {
		return err
	}

	if cfg.Daemon.Watch {
		watcher, err := watch.New(cfg.Daemon.Debounce, ctrl.Reload, logger)
		if err != nil {
			return err
		}
		ctrl.OnLoad(func(result *script.LoadResult, _ error) {
			// A failed load keeps watching the root script so a fix is picked up.
			files := []string{ctrl.File()}
			if result != nil {
				files = result.Files
			}
			if err := watcher.SetFiles(files); err != nil {
				logger.Warn("Failed to update watched files", logfields.Error(err))
			}
		})
		if err := orch.RegisterService(services.NewWatcherService(watcher)); err != nil {
			return err
		}
	}

	// A broken script is reported but does not prevent serving.
	if _, err := ctrl.LoadFile(file); err != nil {
		logger.Warn("Serving without a loaded script", logfields.Error(err))
	}

	if len(cfg.Schedules) > 0 {
		sched, err := scheduler.New(ctrl, recorder, logger)
		if err != nil {
			return err
		}
		if err := sched.AddAll(cfg.Schedules); err != nil {
			return err
		}
		if err := orch.RegisterService(services.NewSchedulerService(sched)); err != nil {
			return err
		}
	}

	var history handlers.HistoryReader
	if svc.projection != nil {
		history = svc.projection
	}
	srv := httpserver.New(ctrl, httpserver.Options{
		Listen:         cfg.Daemon.Listen,
		MaxConnections: cfg.Daemon.MaxConnections,
		Console:        buffer,
		History:        history,
		Services:       orch,
		Registry:       reg,
		Logger:         logger,
	})
	if err := orch.RegisterService(services.NewHTTPServerService(srv)); err != nil {
		return err
	}

	if err := orch.StartAll(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info("Shutdown signal received, stopping server...")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stopCancel()
	if err := orch.StopAll(stopCtx); err != nil {
		return err
	}
	logger.Info("Server stopped")
	return nil
}
