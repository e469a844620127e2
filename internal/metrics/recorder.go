package metrics

import "time"

// OutcomeLabel enumerates run outcome categories for counters.
type OutcomeLabel string

const (
	OutcomeCompleted OutcomeLabel = "completed"
	OutcomeFailed    OutcomeLabel = "failed"
	OutcomeCancelled OutcomeLabel = "cancelled"
)

// Recorder defines observability hooks for script loads and target runs.
// Implementations may forward to Prometheus. All implementations must be
// safe for concurrent use.
type Recorder interface {
	ObserveLoadDuration(d time.Duration)
	IncLoadResult(success bool)
	IncIncludeSkipped(n int)
	IncRunStarted(target string)
	IncRunOutcome(target string, outcome OutcomeLabel)
	ObserveRunDuration(target string, d time.Duration)
	AddRunLines(n int)
	SetActiveRuns(n int)
	IncScheduledRun(schedule string, started bool)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveLoadDuration(time.Duration)        {}
func (NoopRecorder) IncLoadResult(bool)                       {}
func (NoopRecorder) IncIncludeSkipped(int)                    {}
func (NoopRecorder) IncRunStarted(string)                     {}
func (NoopRecorder) IncRunOutcome(string, OutcomeLabel)       {}
func (NoopRecorder) ObserveRunDuration(string, time.Duration) {}
func (NoopRecorder) AddRunLines(int)                          {}
func (NoopRecorder) SetActiveRuns(int)                        {}
func (NoopRecorder) IncScheduledRun(string, bool)             {}

// OrNoop returns r, or NoopRecorder when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder{}
	}
	return r
}
