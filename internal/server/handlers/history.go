package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	rerrors "git.home.luguber.info/inful/nantrunner/internal/errors"
	"git.home.luguber.info/inful/nantrunner/internal/history"
	"git.home.luguber.info/inful/nantrunner/internal/server/responses"
)

const defaultHistoryLimit = 20

// HistoryReader is the read model of past runs.
type HistoryReader interface {
	Recent(limit int) []history.RunSummary
}

// HistoryHandlers serves run history.
type HistoryHandlers struct {
	reader       HistoryReader
	errorAdapter *rerrors.HTTPErrorAdapter
}

// NewHistoryHandlers creates history handlers; reader may be nil when
// history is disabled.
func NewHistoryHandlers(reader HistoryReader) *HistoryHandlers {
	return &HistoryHandlers{
		reader:       reader,
		errorAdapter: rerrors.NewHTTPErrorAdapter(slog.Default()),
	}
}

// HandleHistory lists recent runs; ?limit= caps the result.
func (h *HistoryHandlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.errorAdapter.WriteErrorResponse(w, rerrors.ValidationFailed("limit", "must be a positive integer"))
			return
		}
		limit = n
	}

	runs := []history.RunSummary{}
	if h.reader != nil {
		runs = append(runs, h.reader.Recent(limit)...)
	}
	if err := writeJSONPretty(w, r, http.StatusOK, responses.HistoryResponse{Runs: runs}); err != nil {
		h.errorAdapter.WriteErrorResponse(w, rerrors.InternalError("failed to write history response", err))
	}
}
