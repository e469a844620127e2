package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"git.home.luguber.info/inful/nantrunner/internal/controller"
	rerrors "git.home.luguber.info/inful/nantrunner/internal/errors"
	"git.home.luguber.info/inful/nantrunner/internal/logfields"
	"git.home.luguber.info/inful/nantrunner/internal/runner"
	"git.home.luguber.info/inful/nantrunner/internal/server/responses"
)

// RunController starts and stops targets.
type RunController interface {
	StartTarget(name string) (*runner.Run, error)
	StopTarget() bool
	IsWorking() bool
	ActiveRun() *runner.Run
	Buttons(selected string) controller.Buttons
	CommandLine(run *runner.Run) string
}

// RunHandlers serves run control endpoints.
type RunHandlers struct {
	ctrl         RunController
	errorAdapter *rerrors.HTTPErrorAdapter
}

// NewRunHandlers creates run handlers.
func NewRunHandlers(ctrl RunController) *RunHandlers {
	return &RunHandlers{
		ctrl:         ctrl,
		errorAdapter: rerrors.NewHTTPErrorAdapter(slog.Default()),
	}
}

// HandleStartTarget starts the target named in the path.
func (h *RunHandlers) HandleStartTarget(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		h.errorAdapter.WriteErrorResponse(w, rerrors.ValidationFailed("name", "target name is required"))
		return
	}
	run, err := h.ctrl.StartTarget(name)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, err)
		return
	}
	slog.Info("Run triggered via API", logfields.Target(name), logfields.RunID(run.ID))
	h.write(w, r, http.StatusAccepted, responses.TriggerResponse{Status: "started", Run: h.runInfo(run)})
}

func (h *RunHandlers) runInfo(run *runner.Run) *responses.RunInfo {
	info := responses.NewRunInfo(run)
	if info != nil {
		info.Command = h.ctrl.CommandLine(run)
	}
	return info
}

// HandleStop requests cancellation of the active run.
func (h *RunHandlers) HandleStop(w http.ResponseWriter, r *http.Request) {
	requested := h.ctrl.StopTarget()
	status := http.StatusAccepted
	if !requested {
		status = http.StatusOK
	}
	h.write(w, r, status, responses.StopResponse{Requested: requested})
}

// HandleStatus reports whether a run is in flight and which actions are
// enabled for the ?selected= target.
func (h *RunHandlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	selected := r.URL.Query().Get("selected")
	b := h.ctrl.Buttons(selected)
	h.write(w, r, http.StatusOK, responses.RunStatusResponse{
		Working:  h.ctrl.IsWorking(),
		Run:      h.runInfo(h.ctrl.ActiveRun()),
		Selected: selected,
		Buttons: responses.ButtonsInfo{
			Start:    b.Start,
			Stop:     b.Stop,
			Edit:     b.Edit,
			Settings: b.Settings,
			Refresh:  b.Refresh,
		},
	})
}

func (h *RunHandlers) write(w http.ResponseWriter, r *http.Request, status int, v any) {
	if err := writeJSONPretty(w, r, status, v); err != nil {
		h.errorAdapter.WriteErrorResponse(w, rerrors.InternalError("failed to write run response", err))
	}
}
