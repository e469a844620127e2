// Package responses holds the JSON bodies returned by the HTTP API.
package responses

import (
	"time"

	"git.home.luguber.info/inful/nantrunner/internal/history"
	"git.home.luguber.info/inful/nantrunner/internal/runner"
	"git.home.luguber.info/inful/nantrunner/internal/services"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
	Version      string    `json:"version"`
	Uptime       float64   `json:"uptime_seconds"`
	ScriptLoaded bool      `json:"script_loaded"`
	Working      bool      `json:"working"`

	Services []services.ServiceInfo `json:"services,omitempty"`
}

// TargetInfo describes one target of the loaded script.
type TargetInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Depends     string `json:"depends,omitempty"`
	Line        int    `json:"line"`
}

// PropertyInfo describes a direct child that is neither a target nor an include.
type PropertyInfo struct {
	Element string `json:"element"`
	Name    string `json:"name,omitempty"`
	Value   string `json:"value,omitempty"`
	Line    int    `json:"line"`
}

// IncludeInfo describes an include element.
type IncludeInfo struct {
	BuildFile string `json:"buildfile"`
	Line      int    `json:"line"`
}

// RevisionInfo is the git revision of the directory holding the script.
type RevisionInfo struct {
	Branch string `json:"branch,omitempty"`
	Commit string `json:"commit"`
}

// ScriptResponse is the classified view of the loaded script.
type ScriptResponse struct {
	File           string         `json:"file"`
	Project        string         `json:"project,omitempty"`
	DefaultTarget  string         `json:"default_target,omitempty"`
	Revision       *RevisionInfo  `json:"revision,omitempty"`
	Properties     []PropertyInfo `json:"properties"`
	PublicTargets  []TargetInfo   `json:"public_targets"`
	PrivateTargets []TargetInfo   `json:"private_targets"`
	Includes       []IncludeInfo  `json:"includes"`
	Files          []string       `json:"files"`
	Skipped        []string       `json:"skipped_includes,omitempty"`
	LoadedIn       float64        `json:"load_ms"`
}

// ReloadResponse is returned after a successful reload.
type ReloadResponse struct {
	File    string `json:"file"`
	Targets int    `json:"targets"`
	Skipped int    `json:"skipped_includes"`
}

// RunInfo describes a run in flight.
type RunInfo struct {
	ID              string       `json:"id"`
	File            string       `json:"file"`
	Target          string       `json:"target"`
	State           runner.State `json:"state"`
	StartedAt       time.Time    `json:"started_at"`
	PID             int          `json:"pid,omitempty"`
	CancelRequested bool         `json:"cancel_requested"`
	Command         string       `json:"command,omitempty"`
}

// NewRunInfo snapshots run; nil yields nil.
func NewRunInfo(run *runner.Run) *RunInfo {
	if run == nil {
		return nil
	}
	return &RunInfo{
		ID:              run.ID,
		File:            run.File,
		Target:          run.Target,
		State:           run.State(),
		StartedAt:       run.StartedAt,
		PID:             run.PID(),
		CancelRequested: run.CancelRequested(),
	}
}

// ButtonsInfo is the enablement of the actions offered for a selection.
type ButtonsInfo struct {
	Start    bool `json:"start"`
	Stop     bool `json:"stop"`
	Edit     bool `json:"edit"`
	Settings bool `json:"settings"`
	Refresh  bool `json:"refresh"`
}

// RunStatusResponse answers GET /api/run.
type RunStatusResponse struct {
	Working  bool        `json:"working"`
	Run      *RunInfo    `json:"run,omitempty"`
	Selected string      `json:"selected,omitempty"`
	Buttons  ButtonsInfo `json:"buttons"`
}

// TriggerResponse is returned when a run was accepted.
type TriggerResponse struct {
	Status string   `json:"status"`
	Run    *RunInfo `json:"run"`
}

// StopResponse reports whether a cancellation was requested.
type StopResponse struct {
	Requested bool `json:"requested"`
}

// ConsoleResponse carries the buffered console lines.
type ConsoleResponse struct {
	Lines []string `json:"lines"`
	Count int      `json:"count"`
}

// HistoryResponse lists recent runs, newest first.
type HistoryResponse struct {
	Runs []history.RunSummary `json:"runs"`
}
