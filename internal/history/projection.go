package history

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"time"
)

const statusRunning = "running"

// RunSummary is a read model of one run.
type RunSummary struct {
	RunID       string        `json:"run_id"`
	File        string        `json:"file"`
	Target      string        `json:"target"`
	Status      string        `json:"status"` // running, completed, cancelled
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
	ExitCode    int           `json:"exit_code"`
	Lines       int           `json:"lines"`
	Error       string        `json:"error,omitempty"`
}

// Projection maintains an in-memory view of run history rebuilt from a Store.
type Projection struct {
	mu      sync.RWMutex
	store   Store
	runs    map[string]*RunSummary
	history []*RunSummary // newest first
	maxSize int
}

// NewProjection creates a projection keeping at most maxSize runs (100 when non-positive).
func NewProjection(store Store, maxSize int) *Projection {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &Projection{
		store:   store,
		runs:    make(map[string]*RunSummary),
		maxSize: maxSize,
	}
}

// Rebuild reconstructs the projection from every event in the store.
func (p *Projection) Rebuild(ctx context.Context) error {
	events, err := p.store.GetRange(ctx, time.Time{}, time.Now().Add(time.Hour))
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.runs = make(map[string]*RunSummary)
	p.history = nil
	for _, event := range events {
		p.applyLocked(event)
	}
	return nil
}

// Apply folds a single event into the projection.
func (p *Projection) Apply(event Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applyLocked(event)
}

func (p *Projection) applyLocked(event Event) {
	runID := event.RunID()
	if runID == "" {
		return
	}

	summary, exists := p.runs[runID]
	if !exists {
		summary = &RunSummary{RunID: runID, Status: statusRunning, StartedAt: event.Timestamp(), ExitCode: -1}
		p.runs[runID] = summary
		p.history = append(p.history, summary)
	}

	switch event.Type() {
	case TypeRunStarted:
		var payload RunStartedPayload
		if err := json.Unmarshal(event.Payload(), &payload); err != nil {
			slog.Warn("Skipping malformed history event", "run_id", runID, "type", event.Type(), "error", err)
			return
		}
		summary.File = payload.File
		summary.Target = payload.Target
		summary.StartedAt = event.Timestamp()
	case TypeRunFinished:
		var payload RunFinishedPayload
		if err := json.Unmarshal(event.Payload(), &payload); err != nil {
			slog.Warn("Skipping malformed history event", "run_id", runID, "type", event.Type(), "error", err)
			return
		}
		at := event.Timestamp()
		summary.Status = payload.State
		summary.CompletedAt = &at
		summary.Duration = time.Duration(payload.DurationMS) * time.Millisecond
		summary.ExitCode = payload.ExitCode
		summary.Lines = payload.Lines
		summary.Error = payload.Error
	}

	sort.SliceStable(p.history, func(i, j int) bool {
		return p.history[i].StartedAt.After(p.history[j].StartedAt)
	})
	p.pruneLocked()
}

// pruneLocked keeps the newest maxSize runs plus any still running.
func (p *Projection) pruneLocked() {
	if len(p.history) <= p.maxSize {
		return
	}
	kept := p.history[:0]
	for i, s := range p.history {
		if i < p.maxSize || s.Status == statusRunning {
			kept = append(kept, s)
			continue
		}
		delete(p.runs, s.RunID)
	}
	p.history = kept
}

// Recent returns up to limit summaries, newest first (all when limit <= 0).
func (p *Projection) Recent(limit int) []RunSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()

	n := len(p.history)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]RunSummary, 0, n)
	for _, s := range p.history[:n] {
		out = append(out, *s)
	}
	return out
}

// Get returns the summary of runID.
func (p *Projection) Get(runID string) (RunSummary, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.runs[runID]
	if !ok {
		return RunSummary{}, false
	}
	return *s, true
}
