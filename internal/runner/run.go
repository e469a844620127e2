package runner

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle state of a Run.
type State string

const (
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
)

// Completion describes how a run ended.
type Completion struct {
	RunID     string        `json:"run_id"`
	File      string        `json:"file"`
	Target    string        `json:"target"`
	State     State         `json:"state"`
	ExitCode  int           `json:"exit_code"`
	Err       error         `json:"-"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Lines     int           `json:"lines"`
}

// FailureMessage returns the launch or I/O failure message, if any.
func (c Completion) FailureMessage() string {
	if c.Err == nil {
		return ""
	}
	return c.Err.Error()
}

// Run is one execution of the build tool against one target.
type Run struct {
	ID        string    `json:"id"`
	File      string    `json:"file"`
	Target    string    `json:"target"`
	StartedAt time.Time `json:"started_at"`

	cancel atomic.Bool
	pid    atomic.Int64

	mu         sync.RWMutex
	state      State
	completion Completion
	done       chan struct{}
}

func newRun(file, target string) *Run {
	return &Run{
		ID:        uuid.NewString(),
		File:      file,
		Target:    target,
		StartedAt: time.Now(),
		state:     StateRunning,
		done:      make(chan struct{}),
	}
}

// State returns the current state.
func (r *Run) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// PID returns the process id of the build tool, 0 before launch.
func (r *Run) PID() int {
	return int(r.pid.Load())
}

// CancelRequested reports whether Stop was called for this run.
func (r *Run) CancelRequested() bool {
	return r.cancel.Load()
}

// Done is closed once the run has completed.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Completion returns the outcome; ok is false while the run is in flight.
func (r *Run) Completion() (Completion, bool) {
	select {
	case <-r.done:
		r.mu.RLock()
		defer r.mu.RUnlock()
		return r.completion, true
	default:
		return Completion{}, false
	}
}

// Wait blocks until the run completes or ctx ends.
func (r *Run) Wait(ctx context.Context) (Completion, error) {
	select {
	case <-r.done:
		c, _ := r.Completion()
		return c, nil
	case <-ctx.Done():
		return Completion{}, ctx.Err()
	}
}

func (r *Run) resolve(c Completion) {
	r.mu.Lock()
	r.state = c.State
	r.completion = c
	r.mu.Unlock()
	close(r.done)
}
