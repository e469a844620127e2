package runner

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"git.home.luguber.info/inful/nantrunner/internal/console"
	rerrors "git.home.luguber.info/inful/nantrunner/internal/errors"
	"git.home.luguber.info/inful/nantrunner/internal/logfields"
	"git.home.luguber.info/inful/nantrunner/internal/metrics"
)

// Listener observes runs. Callbacks are invoked on the worker goroutine;
// RunFinished is called before the run's completion future resolves.
// Returned errors are logged and otherwise ignored.
type Listener interface {
	RunStarted(run *Run) error
	RunFinished(c Completion) error
}

// Listeners fans callbacks out to several listeners.
type Listeners []Listener

func (ls Listeners) RunStarted(run *Run) error {
	var errs []error
	for _, l := range ls {
		if err := l.RunStarted(run); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (ls Listeners) RunFinished(c Completion) error {
	var errs []error
	for _, l := range ls {
		if err := l.RunFinished(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger (slog.Default otherwise).
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(e *Executor) { e.recorder = metrics.OrNoop(r) }
}

// WithListener adds a run listener.
func WithListener(l Listener) Option {
	return func(e *Executor) {
		if l != nil {
			e.listeners = append(e.listeners, l)
		}
	}
}

// Executor runs one build at a time.
type Executor struct {
	cfg       Config
	sink      console.Sink
	logger    *slog.Logger
	recorder  metrics.Recorder
	listeners Listeners

	mu     sync.Mutex
	active *Run
}

// NewExecutor returns an idle executor writing output to sink.
func NewExecutor(cfg Config, sink console.Sink, opts ...Option) *Executor {
	if sink == nil {
		sink = console.Discard
	}
	e := &Executor{
		cfg:      cfg,
		sink:     sink,
		logger:   slog.Default(),
		recorder: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the invocation settings.
func (e *Executor) Config() Config {
	return e.cfg
}

// Start launches target of the script at file. It returns false, and starts
// nothing, while another run is active.
func (e *Executor) Start(file, target string) (*Run, bool) {
	e.mu.Lock()
	if e.active != nil {
		e.mu.Unlock()
		return nil, false
	}
	run := newRun(file, target)
	e.active = run
	e.recorder.SetActiveRuns(1)
	e.mu.Unlock()

	if e.cfg.ClearOutput {
		e.sink.Clear()
	}
	console.Printf(e.sink, "Target '%s' started...", target)
	e.recorder.IncRunStarted(target)
	e.logger.Info("Run started",
		logfields.RunID(run.ID),
		logfields.File(file),
		logfields.Target(target))

	go e.work(run)
	return run, true
}

// Stop requests cancellation of the active run. It reports whether a run was
// signalled.
func (e *Executor) Stop() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == nil {
		return false
	}
	e.active.cancel.Store(true)
	e.logger.Info("Run cancellation requested", logfields.RunID(e.active.ID), logfields.Target(e.active.Target))
	return true
}

// IsWorking reports whether a run is in flight.
func (e *Executor) IsWorking() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active != nil
}

// Active returns the run in flight, nil when idle.
func (e *Executor) Active() *Run {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

func (e *Executor) work(run *Run) {
	if err := e.listeners.RunStarted(run); err != nil {
		e.logger.Warn("Run listener failed", logfields.RunID(run.ID), logfields.Error(err))
	}

	c := e.execute(run)
	c.RunID = run.ID
	c.File = run.File
	c.Target = run.Target
	c.StartedAt = run.StartedAt
	c.Duration = time.Since(run.StartedAt)

	e.finish(run, c)
}

// execute runs the command to the end and returns the partial completion.
func (e *Executor) execute(run *Run) Completion {
	c := Completion{State: StateCompleted, ExitCode: -1}

	cmd, err := e.command(run)
	if err != nil {
		return e.fail(c, rerrors.ProcessLaunchError(e.cfg.Command, err))
	}

	reader, writer, err := os.Pipe()
	if err != nil {
		return e.fail(c, rerrors.ProcessLaunchError(e.cfg.Command, err))
	}
	defer func() { _ = reader.Close() }()

	cmd.Stdout = writer
	if e.cfg.CaptureStderr {
		cmd.Stderr = writer
	}
	startErr := cmd.Start()
	// The child holds its own copy; ours must go so EOF is seen on exit.
	_ = writer.Close()
	if startErr != nil {
		return e.fail(c, rerrors.ProcessLaunchError(e.cfg.Command, startErr))
	}
	run.pid.Store(int64(cmd.Process.Pid))

	cancelled, readErr := e.stream(run, reader, &c)
	switch {
	case cancelled:
		killProcessTree(cmd)
		_ = cmd.Wait()
		c.State = StateCancelled
		return c
	case readErr != nil:
		killProcessTree(cmd)
		_ = cmd.Wait()
		return e.fail(c, rerrors.ProcessIOError(e.cfg.Command, readErr))
	}

	waitErr := cmd.Wait()
	if cmd.ProcessState != nil {
		c.ExitCode = cmd.ProcessState.ExitCode()
	}
	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		c.Err = rerrors.ProcessIOError(e.cfg.Command, waitErr)
	}
	if run.CancelRequested() {
		c.State = StateCancelled
	}
	return c
}

// stream forwards lines from r until EOF. It stops at the first line read
// after a cancellation request and reports cancelled.
func (e *Executor) stream(run *Run, r io.Reader, c *Completion) (cancelled bool, err error) {
	buf := bufio.NewReader(r)
	for {
		line, readErr := buf.ReadString('\n')
		if line != "" {
			if run.CancelRequested() {
				return true, nil
			}
			c.Lines++
			if e.cfg.Verbose {
				e.sink.WriteLine(strings.TrimRight(line, "\r\n"))
			}
		}
		if readErr == nil {
			continue
		}
		if errors.Is(readErr, io.EOF) {
			return false, nil
		}
		return false, readErr
	}
}

func (e *Executor) command(run *Run) (*exec.Cmd, error) {
	args, err := e.cfg.Args(run.File, run.Target)
	if err != nil {
		return nil, err
	}
	cmd := exec.Command(e.cfg.Command, args...)
	cmd.Dir = filepath.Dir(run.File)
	cmd.Env = e.cfg.environ(os.Environ())
	configureProcessGroup(cmd)
	return cmd, nil
}

func (e *Executor) fail(c Completion, err *rerrors.RunnerError) Completion {
	c.Err = err
	console.Printf(e.sink, "Error: %s: %v", err.Message, err.Cause)
	return c
}

func (e *Executor) finish(run *Run, c Completion) {
	switch c.State {
	case StateCancelled:
		console.Printf(e.sink, "Target '%s' aborted !", run.Target)
	default:
		if c.ExitCode > 0 {
			console.Printf(e.sink, "Target '%s' completed (exit code %d).", run.Target, c.ExitCode)
		} else {
			console.Printf(e.sink, "Target '%s' completed.", run.Target)
		}
	}

	e.recorder.IncRunOutcome(run.Target, outcomeLabel(c))
	e.recorder.ObserveRunDuration(run.Target, c.Duration)
	e.recorder.AddRunLines(c.Lines)

	attrs := []any{
		logfields.RunID(run.ID),
		logfields.Target(run.Target),
		logfields.RunState(string(c.State)),
		logfields.ExitCode(c.ExitCode),
		logfields.Lines(c.Lines),
		logfields.DurationMS(float64(c.Duration.Milliseconds())),
	}
	if c.Err != nil {
		e.logger.Warn("Run finished with error", append(attrs, logfields.Error(c.Err))...)
	} else {
		e.logger.Info("Run finished", attrs...)
	}

	if err := e.listeners.RunFinished(c); err != nil {
		e.logger.Warn("Run listener failed", logfields.RunID(run.ID), logfields.Error(err))
	}

	// Release the slot and resolve together so that a woken waiter sees Idle.
	e.mu.Lock()
	e.active = nil
	e.recorder.SetActiveRuns(0)
	run.resolve(c)
	e.mu.Unlock()
}

func outcomeLabel(c Completion) metrics.OutcomeLabel {
	switch {
	case c.State == StateCancelled:
		return metrics.OutcomeCancelled
	case c.Err != nil || c.ExitCode != 0:
		return metrics.OutcomeFailed
	default:
		return metrics.OutcomeCompleted
	}
}
