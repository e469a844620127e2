package history

import (
	"encoding/json"
	"time"

	rerrors "git.home.luguber.info/inful/nantrunner/internal/errors"
)

// RunStartedPayload is the payload of a RunStarted event.
type RunStartedPayload struct {
	File   string `json:"file"`
	Target string `json:"target"`
}

// RunFinishedPayload is the payload of a RunFinished event.
type RunFinishedPayload struct {
	State      string `json:"state"`
	ExitCode   int    `json:"exit_code"`
	Lines      int    `json:"lines"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// NewRunStarted creates a RunStarted event.
func NewRunStarted(runID string, at time.Time, p RunStartedPayload) (*BaseEvent, error) {
	return newEvent(runID, TypeRunStarted, at, p)
}

// NewRunFinished creates a RunFinished event.
func NewRunFinished(runID string, at time.Time, p RunFinishedPayload) (*BaseEvent, error) {
	return newEvent(runID, TypeRunFinished, at, p)
}

func newEvent(runID, eventType string, at time.Time, payload any) (*BaseEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, rerrors.Wrap(err, rerrors.CategoryHistory, rerrors.SeverityError, "failed to marshal "+eventType+" payload").
			WithContext("run_id", runID)
	}
	return &BaseEvent{
		EventRunID:     runID,
		EventType:      eventType,
		EventTimestamp: at,
		EventPayload:   data,
	}, nil
}
