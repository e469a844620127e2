package history

import (
	"context"
	"time"

	rerrors "git.home.luguber.info/inful/nantrunner/internal/errors"
	"git.home.luguber.info/inful/nantrunner/internal/runner"
)

// appendTimeout bounds each write issued from the run worker.
const appendTimeout = 5 * time.Second

// Recorder persists executor runs. It implements runner.Listener.
type Recorder struct {
	store      Store
	projection *Projection
}

// NewRecorder writes run events to store and keeps projection (optional) current.
func NewRecorder(store Store, projection *Projection) *Recorder {
	return &Recorder{store: store, projection: projection}
}

func (r *Recorder) RunStarted(run *runner.Run) error {
	event, err := NewRunStarted(run.ID, run.StartedAt, RunStartedPayload{File: run.File, Target: run.Target})
	if err != nil {
		return err
	}
	return r.append(event)
}

func (r *Recorder) RunFinished(c runner.Completion) error {
	event, err := NewRunFinished(c.RunID, c.StartedAt.Add(c.Duration), RunFinishedPayload{
		State:      string(c.State),
		ExitCode:   c.ExitCode,
		Lines:      c.Lines,
		DurationMS: c.Duration.Milliseconds(),
		Error:      c.FailureMessage(),
	})
	if err != nil {
		return err
	}
	return r.append(event)
}

func (r *Recorder) append(event Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
	defer cancel()

	if err := r.store.Append(ctx, event); err != nil {
		return rerrors.Wrap(err, rerrors.CategoryHistory, rerrors.SeverityWarning, "failed to record run event").
			WithContext("run_id", event.RunID()).
			WithContext("event_type", event.Type())
	}
	if r.projection != nil {
		r.projection.Apply(event)
	}
	return nil
}
