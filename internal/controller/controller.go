// Package controller holds the loaded build script and the executor running
// its targets. One Controller is built by the CLI and shared by the HTTP
// server, the scheduler and the script watcher.
package controller

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"

	"git.home.luguber.info/inful/nantrunner/internal/console"
	rerrors "git.home.luguber.info/inful/nantrunner/internal/errors"
	"git.home.luguber.info/inful/nantrunner/internal/logfields"
	"git.home.luguber.info/inful/nantrunner/internal/metrics"
	"git.home.luguber.info/inful/nantrunner/internal/runner"
	"git.home.luguber.info/inful/nantrunner/internal/script"
)

// Options configures a Controller.
type Options struct {
	ResolveIncludes bool
	Logger          *slog.Logger
	Recorder        metrics.Recorder
	// Console is the buffer served to API clients; may be nil.
	Console *console.Buffer
}

// LoadHook is called after every load attempt, successful or not.
type LoadHook func(result *script.LoadResult, err error)

// Controller owns the current script and delegates runs to an Executor.
type Controller struct {
	exec     *runner.Executor
	console  *console.Buffer
	logger   *slog.Logger
	recorder metrics.Recorder
	resolve  bool

	mu     sync.RWMutex
	file   string
	result *script.LoadResult
	hooks  []LoadHook
}

// New returns a controller with no script loaded.
func New(exec *runner.Executor, opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		exec:     exec,
		console:  opts.Console,
		logger:   logger,
		recorder: metrics.OrNoop(opts.Recorder),
		resolve:  opts.ResolveIncludes,
	}
}

// OnLoad registers hook.
func (c *Controller) OnLoad(hook LoadHook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = append(c.hooks, hook)
}

// LoadFile parses path and makes it the current script. A parse failure
// leaves nothing loaded and is returned; skipped includes are only logged.
func (c *Controller) LoadFile(path string) (*script.LoadResult, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	result, err := script.Load(abs, script.LoadOptions{ResolveIncludes: c.resolve, Logger: c.logger})
	if err != nil {
		c.recorder.IncLoadResult(false)
		c.logger.Error("Failed to load build script", logfields.File(abs), logfields.Error(err))
	} else {
		c.recorder.IncLoadResult(true)
		c.recorder.ObserveLoadDuration(result.Duration)
		c.recorder.IncIncludeSkipped(len(result.Skipped))
		c.logger.Info("Build script loaded",
			logfields.File(abs),
			slog.Int("targets", len(result.Tree.AllTargets())),
			slog.Int("includes_skipped", len(result.Skipped)))
	}

	c.mu.Lock()
	c.file = abs
	c.result = result
	hooks := append([]LoadHook(nil), c.hooks...)
	c.mu.Unlock()

	for _, hook := range hooks {
		hook(result, err)
	}
	return result, err
}

// Reload parses the current file again.
func (c *Controller) Reload(_ context.Context) error {
	file := c.File()
	if file == "" {
		return rerrors.NoScriptLoaded()
	}
	_, err := c.LoadFile(file)
	return err
}

// File returns the current script path, "" when none was loaded.
func (c *Controller) File() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.file
}

// Tree returns the current tree; nil when nothing is loaded.
func (c *Controller) Tree() *script.Tree {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.result == nil {
		return nil
	}
	return c.result.Tree
}

// LastLoad returns the result of the last load, nil after a failed one.
func (c *Controller) LastLoad() *script.LoadResult {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.result
}

// StartTarget runs name from the current script.
func (c *Controller) StartTarget(name string) (*runner.Run, error) {
	tree := c.Tree()
	if tree == nil {
		return nil, rerrors.NoScriptLoaded()
	}
	if _, ok := tree.Target(name); !ok {
		return nil, rerrors.TargetNotFound(name, tree.TargetNames())
	}
	run, ok := c.exec.Start(tree.File(), name)
	if !ok {
		return nil, rerrors.RunInProgress(name)
	}
	return run, nil
}

// StopTarget requests cancellation of the active run.
func (c *Controller) StopTarget() bool {
	return c.exec.Stop()
}

// IsWorking reports whether a target is running.
func (c *Controller) IsWorking() bool {
	return c.exec.IsWorking()
}

// ActiveRun returns the run in flight, nil when idle.
func (c *Controller) ActiveRun() *runner.Run {
	return c.exec.Active()
}

// Console returns the shared console buffer, possibly nil.
func (c *Controller) Console() *console.Buffer {
	return c.console
}

// CommandLine renders the build tool invocation for run.
func (c *Controller) CommandLine(run *runner.Run) string {
	return c.exec.Config().CommandLine(run.File, run.Target)
}
