package errors

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// HTTPErrorAdapter writes RunnerErrors as JSON responses with a status code derived from the category.
type HTTPErrorAdapter struct {
	logger *slog.Logger
}

// NewHTTPErrorAdapter creates a new HTTP error adapter.
func NewHTTPErrorAdapter(logger *slog.Logger) *HTTPErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPErrorAdapter{logger: logger}
}

type errorResponse struct {
	Error    string        `json:"error"`
	Category ErrorCategory `json:"category"`
	Context  ContextFields `json:"context,omitempty"`
}

// StatusCodeFor maps an error to an HTTP status code.
func StatusCodeFor(err error) int {
	re, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch re.Category {
	case CategoryValidation:
		return http.StatusBadRequest
	case CategoryNotFound:
		return http.StatusNotFound
	case CategoryParse, CategoryInclude:
		return http.StatusUnprocessableEntity
	case CategoryRuntime:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// WriteErrorResponse writes err as a JSON body.
func (a *HTTPErrorAdapter) WriteErrorResponse(w http.ResponseWriter, err error) {
	status := StatusCodeFor(err)
	body := errorResponse{Error: err.Error(), Category: GetCategory(err)}
	if re, ok := As(err); ok {
		body.Error = re.Message
		body.Context = re.Context
	}
	if status >= http.StatusInternalServerError {
		a.logger.Error("HTTP request failed", "error", err, "status", status)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
