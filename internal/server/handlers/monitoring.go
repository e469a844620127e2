package handlers

import (
	"log/slog"
	"net/http"
	"time"

	rerrors "git.home.luguber.info/inful/nantrunner/internal/errors"
	"git.home.luguber.info/inful/nantrunner/internal/script"
	"git.home.luguber.info/inful/nantrunner/internal/server/responses"
	"git.home.luguber.info/inful/nantrunner/internal/services"
	"git.home.luguber.info/inful/nantrunner/internal/version"
)

// StatusSource exposes the liveness facts reported by /healthz.
type StatusSource interface {
	Tree() *script.Tree
	IsWorking() bool
}

// ServiceLister reports the managed services of the process.
type ServiceLister interface {
	GetAllServiceInfo() []services.ServiceInfo
}

// MonitoringHandlers contains monitoring-related HTTP handlers.
type MonitoringHandlers struct {
	source       StatusSource
	services     ServiceLister
	startTime    time.Time
	errorAdapter *rerrors.HTTPErrorAdapter
}

// NewMonitoringHandlers creates a new monitoring handlers instance; lister may be nil.
func NewMonitoringHandlers(source StatusSource, lister ServiceLister, startTime time.Time) *MonitoringHandlers {
	return &MonitoringHandlers{
		source:       source,
		services:     lister,
		startTime:    startTime,
		errorAdapter: rerrors.NewHTTPErrorAdapter(slog.Default()),
	}
}

// HandleHealthCheck handles the health check endpoint.
func (h *MonitoringHandlers) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	health := &responses.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   version.Version,
		Uptime:    time.Since(h.startTime).Seconds(),
	}
	if h.source != nil {
		health.ScriptLoaded = h.source.Tree() != nil
		health.Working = h.source.IsWorking()
	}
	if h.services != nil {
		health.Services = h.services.GetAllServiceInfo()
		for _, svc := range health.Services {
			if svc.Health.Status != "healthy" {
				health.Status = "degraded"
			}
		}
	}

	if err := writeJSONPretty(w, r, http.StatusOK, health); err != nil {
		h.errorAdapter.WriteErrorResponse(w, rerrors.InternalError("failed to write health response", err))
	}
}
