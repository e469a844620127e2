package httpserver

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/nantrunner/internal/console"
	"git.home.luguber.info/inful/nantrunner/internal/server/handlers"
)

// Runtime is the controller surface the API needs.
type Runtime interface {
	handlers.ScriptSource
	handlers.RunController
}

// Options wires optional collaborators into the server.
type Options struct {
	// Listen is the address to bind, e.g. ":8088".
	Listen string
	// MaxConnections caps simultaneously accepted connections; 0 disables the cap.
	MaxConnections int
	// Console backs the console endpoints; an empty buffer is used when nil.
	Console *console.Buffer
	// History backs /api/history; the endpoint returns no runs when nil.
	History handlers.HistoryReader
	// Services are reported by /healthz when set.
	Services handlers.ServiceLister
	// Registry is exposed on /metrics when set.
	Registry *prometheus.Registry
	Logger   *slog.Logger
}
