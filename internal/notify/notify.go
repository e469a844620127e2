// Package notify publishes run completions to NATS subscribers.
package notify

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"git.home.luguber.info/inful/nantrunner/internal/logfields"
	"git.home.luguber.info/inful/nantrunner/internal/runner"
)

// EventRunFinished is the type of every published event.
const EventRunFinished = "run.finished"

// RunEvent is the JSON message published for a finished run.
type RunEvent struct {
	Type       string    `json:"type"`
	RunID      string    `json:"run_id"`
	File       string    `json:"file"`
	Target     string    `json:"target"`
	State      string    `json:"state"`
	ExitCode   int       `json:"exit_code"`
	Lines      int       `json:"lines"`
	DurationMS int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	Host       string    `json:"host,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Publisher sends a message on a subject.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Notifier publishes run completions. It implements runner.Listener.
type Notifier struct {
	pub     Publisher
	subject string
	host    string
	logger  *slog.Logger
}

// NewNotifier publishes to subject through pub.
func NewNotifier(pub Publisher, subject string, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	host, _ := os.Hostname()
	return &Notifier{pub: pub, subject: subject, host: host, logger: logger}
}

// RunStarted publishes nothing; only completions are announced.
func (n *Notifier) RunStarted(*runner.Run) error { return nil }

func (n *Notifier) RunFinished(c runner.Completion) error {
	event := RunEvent{
		Type:       EventRunFinished,
		RunID:      c.RunID,
		File:       c.File,
		Target:     c.Target,
		State:      string(c.State),
		ExitCode:   c.ExitCode,
		Lines:      c.Lines,
		DurationMS: c.Duration.Milliseconds(),
		Error:      c.FailureMessage(),
		Host:       n.host,
		Timestamp:  time.Now(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal run event: %w", err)
	}
	if err := n.pub.Publish(n.subject, data); err != nil {
		return fmt.Errorf("failed to publish run event: %w", err)
	}
	n.logger.Debug("Published run event",
		logfields.RunID(c.RunID),
		logfields.Target(c.Target),
		slog.String("subject", n.subject))
	return nil
}
