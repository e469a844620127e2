package services

import (
	"context"
	"fmt"
	"sync/atomic"

	"git.home.luguber.info/inful/nantrunner/internal/runner"
)

// Names of the services registered by `serve`.
const (
	NameRunner    = "runner"
	NameWatcher   = "script-watcher"
	NameScheduler = "scheduler"
	NameHTTP      = "http"
)

// HTTPServer defines the interface expected by HTTPServerService.
type HTTPServer interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	IsRunning() bool
}

// HTTPServerService adapts the HTTP server to the ManagedService interface.
type HTTPServerService struct {
	server HTTPServer
}

// NewHTTPServerService creates a new HTTP server service adapter.
func NewHTTPServerService(server HTTPServer) *HTTPServerService {
	return &HTTPServerService{server: server}
}

func (h *HTTPServerService) Name() string                    { return NameHTTP }
func (h *HTTPServerService) Start(ctx context.Context) error { return h.server.Start(ctx) }
func (h *HTTPServerService) Stop(ctx context.Context) error  { return h.server.Stop(ctx) }
func (h *HTTPServerService) Dependencies() []string          { return []string{NameRunner} }

func (h *HTTPServerService) Health() HealthStatus {
	if h.server.IsRunning() {
		return Healthy()
	}
	return Unhealthy("server not running")
}

// Runner defines the run control expected by RunnerService.
type Runner interface {
	ActiveRun() *runner.Run
	StopTarget() bool
}

// RunnerService owns the executor's lifetime: stopping it aborts the active
// run and waits for its completion.
type RunnerService struct {
	runner  Runner
	stopped atomic.Bool
}

// NewRunnerService creates a runner service adapter.
func NewRunnerService(r Runner) *RunnerService {
	return &RunnerService{runner: r}
}

func (r *RunnerService) Name() string                { return NameRunner }
func (r *RunnerService) Start(context.Context) error { r.stopped.Store(false); return nil }
func (r *RunnerService) Dependencies() []string      { return nil }

func (r *RunnerService) Stop(ctx context.Context) error {
	r.stopped.Store(true)
	run := r.runner.ActiveRun()
	if run == nil {
		return nil
	}
	r.runner.StopTarget()
	if _, err := run.Wait(ctx); err != nil {
		return fmt.Errorf("run %s did not finish: %w", run.ID, err)
	}
	return nil
}

func (r *RunnerService) Health() HealthStatus {
	if r.stopped.Load() {
		return Unhealthy("runner stopped")
	}
	return Healthy()
}

// Scheduler defines the interface expected by SchedulerService.
type Scheduler interface {
	Start()
	Stop() error
}

// SchedulerService adapts the target scheduler to the ManagedService interface.
type SchedulerService struct {
	scheduler Scheduler
	running   atomic.Bool
}

// NewSchedulerService creates a new scheduler service adapter.
func NewSchedulerService(s Scheduler) *SchedulerService {
	return &SchedulerService{scheduler: s}
}

func (s *SchedulerService) Name() string           { return NameScheduler }
func (s *SchedulerService) Dependencies() []string { return []string{NameRunner} }

func (s *SchedulerService) Start(context.Context) error {
	s.scheduler.Start()
	s.running.Store(true)
	return nil
}

func (s *SchedulerService) Stop(context.Context) error {
	s.running.Store(false)
	return s.scheduler.Stop()
}

func (s *SchedulerService) Health() HealthStatus {
	if s.running.Load() {
		return Healthy()
	}
	return Unhealthy("scheduler not running")
}

// Watcher defines the interface expected by WatcherService.
type Watcher interface {
	Start(ctx context.Context)
	Stop() error
	Files() []string
}

// WatcherService adapts the script watcher to the ManagedService interface.
type WatcherService struct {
	watcher Watcher
	running atomic.Bool
}

// NewWatcherService creates a new watcher service adapter.
func NewWatcherService(w Watcher) *WatcherService {
	return &WatcherService{watcher: w}
}

func (w *WatcherService) Name() string           { return NameWatcher }
func (w *WatcherService) Dependencies() []string { return []string{NameRunner} }

// Start detaches the watch loops from ctx, which only bounds startup; they
// end on Stop.
func (w *WatcherService) Start(ctx context.Context) error {
	w.watcher.Start(context.WithoutCancel(ctx))
	w.running.Store(true)
	return nil
}

func (w *WatcherService) Stop(context.Context) error {
	w.running.Store(false)
	return w.watcher.Stop()
}

func (w *WatcherService) Health() HealthStatus {
	if !w.running.Load() {
		return Unhealthy("not watching")
	}
	if len(w.watcher.Files()) == 0 {
		return Unhealthy("no script files watched")
	}
	return Healthy()
}
