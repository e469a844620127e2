// Package httpserver wires the API handlers into a single HTTP server.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/net/netutil"

	"git.home.luguber.info/inful/nantrunner/internal/console"
	rerrors "git.home.luguber.info/inful/nantrunner/internal/errors"
	"git.home.luguber.info/inful/nantrunner/internal/metrics"
	"git.home.luguber.info/inful/nantrunner/internal/server/handlers"
	smw "git.home.luguber.info/inful/nantrunner/internal/server/middleware"
)

// Server serves the nantrunner HTTP API.
type Server struct {
	opts         Options
	logger       *slog.Logger
	errorAdapter *rerrors.HTTPErrorAdapter

	monitoringHandlers *handlers.MonitoringHandlers
	scriptHandlers     *handlers.ScriptHandlers
	runHandlers        *handlers.RunHandlers
	consoleHandlers    *handlers.ConsoleHandlers
	historyHandlers    *handlers.HistoryHandlers

	mu      sync.Mutex
	server  *http.Server
	addr    net.Addr
	running bool
}

// New constructs the server; nothing is bound until Start.
func New(runtime Runtime, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Console == nil {
		opts.Console = console.NewBuffer(console.DefaultBufferLines)
	}
	return &Server{
		opts:               opts,
		logger:             opts.Logger,
		errorAdapter:       rerrors.NewHTTPErrorAdapter(opts.Logger),
		monitoringHandlers: handlers.NewMonitoringHandlers(runtime, opts.Services, time.Now()),
		scriptHandlers:     handlers.NewScriptHandlers(runtime),
		runHandlers:        handlers.NewRunHandlers(runtime),
		consoleHandlers:    handlers.NewConsoleHandlers(opts.Console),
		historyHandlers:    handlers.NewHistoryHandlers(opts.History),
	}
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(smw.Chain(s.logger, s.errorAdapter))

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		s.errorAdapter.WriteErrorResponse(w, rerrors.New(rerrors.CategoryNotFound, rerrors.SeverityInfo, "no such endpoint").
			WithContext("path", req.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	})

	r.Get("/healthz", s.monitoringHandlers.HandleHealthCheck)
	r.Get("/", s.scriptHandlers.HandleCatalog)
	if s.opts.Registry != nil {
		r.Method(http.MethodGet, "/metrics", metrics.HTTPHandler(s.opts.Registry))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/script", s.scriptHandlers.HandleScript)
		r.Get("/script/tree", s.scriptHandlers.HandleTree)
		r.Get("/script/catalog.md", s.scriptHandlers.HandleCatalogMarkdown)
		r.Post("/script/reload", s.scriptHandlers.HandleReload)

		r.Post("/targets/{name}/run", s.runHandlers.HandleStartTarget)
		r.Get("/run", s.runHandlers.HandleStatus)
		r.Post("/run/stop", s.runHandlers.HandleStop)

		r.Get("/console", s.consoleHandlers.HandleLines)
		r.Get("/console/stream", s.consoleHandlers.HandleStream)
		r.Post("/console/clear", s.consoleHandlers.HandleClear)

		r.Get("/history", s.historyHandlers.HandleHistory)
	})
	return r
}

// Start binds the listen address and serves in the background. Binding
// happens before Start returns so address conflicts surface immediately.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server != nil {
		return errors.New("http server already started")
	}

	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.opts.Listen)
	if err != nil {
		return fmt.Errorf("http startup failed: listen %s: %w", s.opts.Listen, err)
	}
	if s.opts.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.opts.MaxConnections)
	}

	// No WriteTimeout: the console stream is long-lived. Streams end when
	// shutdown cancels the base context.
	baseCtx, cancel := context.WithCancel(context.Background())
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	s.server.RegisterOnShutdown(cancel)
	s.addr = ln.Addr()
	s.running = true
	s.startServerWithListener(s.server, ln)

	s.logger.Info("HTTP server started",
		slog.String("addr", s.addr.String()),
		slog.Int("max_connections", s.opts.MaxConnections))
	return nil
}

// Addr returns the bound address, nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// IsRunning reports whether the server is serving.
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.running = false
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

// startServerWithListener serves srv on a pre-bound listener in a goroutine.
func (s *Server) startServerWithListener(srv *http.Server, ln net.Listener) {
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", "error", err)
		}
	}()
}
