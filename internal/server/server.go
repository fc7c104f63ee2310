// Package server exposes editor sessions over HTTP.
//
// Each session owns one [editor.Editor]. Actions for a session are applied
// one at a time and the session's draft is written to a [session.Store]
// after every change, so a restarted server resumes where it left off.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/factoryflow/pkg/editor"
	"github.com/matzehuels/factoryflow/pkg/flow"
	"github.com/matzehuels/factoryflow/pkg/persist"
	"github.com/matzehuels/factoryflow/pkg/session"
)

// Syncer loads and persists factory graphs. [persist.Synchronizer]
// implements it.
type Syncer interface {
	Load(ctx context.Context, factoryID, factoryName string) (flow.Graph, error)
	SaveOrUpdate(ctx context.Context, factoryID string, g flow.Graph) persist.Report
	Refresh(ctx context.Context, factoryID, factoryName string) (flow.Graph, persist.Report)
	Reset(ctx context.Context, factoryID string, g flow.Graph) (flow.Graph, persist.Report)
}

// Metrics records request and session metrics. [prom.Registry] implements
// it.
type Metrics interface {
	RecordHTTPRequest(method, route string, status int, d time.Duration)
	SetSessions(n int)
	Handler() http.Handler
}

// Deps configures a [Server].
type Deps struct {
	Sync     Syncer
	Sessions session.Store

	// Layout is passed to every session's editor. Optional.
	Layout editor.LayoutFunc
	// Metrics enables /metrics and request metrics. Optional.
	Metrics Metrics
	Logger  *log.Logger

	// SessionTTL is how long an idle session is kept. Defaults to
	// session.DefaultTTL.
	SessionTTL time.Duration
}

// Server serves the session API.
type Server struct {
	deps   Deps
	logger *log.Logger
	router chi.Router

	mu   sync.Mutex
	live map[string]*liveSession
}

// New creates a server. Sync and Sessions are required.
func New(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = log.New(io.Discard)
	}
	if deps.SessionTTL <= 0 {
		deps.SessionTTL = session.DefaultTTL
	}
	s := &Server{
		deps:   deps,
		logger: deps.Logger,
		live:   make(map[string]*liveSession),
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/healthz", s.handleHealth)
	if s.deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.deps.Metrics.Handler())
	}

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.handleCreate)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGet)
			r.Delete("/", s.handleClose)
			r.Post("/actions", s.handleAction)
			r.Post("/save", s.handleSave)
			r.Post("/refresh", s.handleRefresh)
			r.Post("/reset", s.handleReset)
		})
	})
	return r
}

// instrument logs each request and records its metrics under the matched
// route pattern.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		d := time.Since(start)
		if s.deps.Metrics != nil {
			s.deps.Metrics.RecordHTTPRequest(r.Method, route, status, d)
		}
		s.logger.Debug("request", "method", r.Method, "route", route, "status", status, "duration", d,
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully
// within shutdownTimeout.
func (s *Server) Serve(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down", "timeout", shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errc
}
