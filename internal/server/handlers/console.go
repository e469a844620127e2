package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"git.home.luguber.info/inful/nantrunner/internal/console"
	rerrors "git.home.luguber.info/inful/nantrunner/internal/errors"
	"git.home.luguber.info/inful/nantrunner/internal/logfields"
	"git.home.luguber.info/inful/nantrunner/internal/server/responses"
)

const (
	streamBuffer      = 256
	heartbeatInterval = 15 * time.Second
)

// ConsoleHandlers serves the console buffer.
type ConsoleHandlers struct {
	buffer       *console.Buffer
	heartbeat    time.Duration
	errorAdapter *rerrors.HTTPErrorAdapter
}

// NewConsoleHandlers creates console handlers over buffer.
func NewConsoleHandlers(buffer *console.Buffer) *ConsoleHandlers {
	return &ConsoleHandlers{
		buffer:       buffer,
		heartbeat:    heartbeatInterval,
		errorAdapter: rerrors.NewHTTPErrorAdapter(slog.Default()),
	}
}

// HandleLines returns the buffered lines.
func (h *ConsoleHandlers) HandleLines(w http.ResponseWriter, r *http.Request) {
	lines := h.buffer.Lines()
	if err := writeJSONPretty(w, r, http.StatusOK, responses.ConsoleResponse{Lines: lines, Count: len(lines)}); err != nil {
		h.errorAdapter.WriteErrorResponse(w, rerrors.InternalError("failed to write console response", err))
	}
}

// HandleClear empties the buffer.
func (h *ConsoleHandlers) HandleClear(w http.ResponseWriter, _ *http.Request) {
	h.buffer.Clear()
	w.WriteHeader(http.StatusNoContent)
}

// HandleStream streams console events as Server-Sent Events until the
// client disconnects. Each event carries a console.Event as JSON.
func (h *ConsoleHandlers) HandleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.errorAdapter.WriteErrorResponse(w, rerrors.InternalError("streaming unsupported", nil))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	events, unsubscribe := h.buffer.Subscribe(streamBuffer)
	defer unsubscribe()

	slog.Debug("Console stream opened", logfields.RemoteAddr(r.RemoteAddr))
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			slog.Debug("Console stream closed", logfields.RemoteAddr(r.RemoteAddr))
			return
		case <-ticker.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		case evt, ok := <-events:
			if !ok {
				return
			}
			sendSSEEvent(w, evt)
			flusher.Flush()
		}
	}
}

// sendSSEEvent writes evt in SSE format.
func sendSSEEvent(w http.ResponseWriter, evt console.Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		slog.Error("Failed to marshal SSE event", logfields.Error(err))
		return
	}
	fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", evt.Seq, evt.Type, data)
}
