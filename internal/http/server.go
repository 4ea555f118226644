// Package http serves the JSON API consumed by the web frontend.
package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/ndegwamoche/budget-tracker/internal/middleware/ratelimit"
	"github.com/ndegwamoche/budget-tracker/internal/middleware/security"
	"github.com/ndegwamoche/budget-tracker/internal/middleware/trace"
	"github.com/ndegwamoche/budget-tracker/internal/services"
	"github.com/ndegwamoche/budget-tracker/internal/session"
	"github.com/ndegwamoche/budget-tracker/internal/store"
)

// Options carries the collaborators the server needs.
type Options struct {
	Addr       string
	Records    *services.RecordService
	Categories *services.CategoryService
	Reports    *services.ReportService
	Watcher    store.Watcher
	Verifier   *session.Verifier

	// Ready reports whether the backing store is reachable; nil means
	// always ready.
	Ready func(ctx context.Context) error
}

type Server struct {
	http.Server

	records    *services.RecordService
	categories *services.CategoryService
	reports    *services.ReportService
	watcher    store.Watcher
	verifier   *session.Verifier
	ready      func(ctx context.Context) error

	rateLimiter  *ratelimit.Limiter
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(opts Options) *Server {
	mux := http.NewServeMux()

	s := &Server{
		records:     opts.Records,
		categories:  opts.Categories,
		reports:     opts.Reports,
		watcher:     opts.Watcher,
		verifier:    opts.Verifier,
		ready:       opts.Ready,
		rateLimiter: ratelimit.NewLimiter(ratelimit.DefaultConfig()),
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/overview", s.withAuth(s.handleOverview))
	mux.HandleFunc("GET /api/report", s.withAuth(s.handleReport))
	mux.HandleFunc("GET /api/report.xlsx", s.withAuth(s.handleReportXLSX))
	mux.HandleFunc("GET /api/events", s.withAuth(s.handleEvents))

	mux.HandleFunc("GET /api/records", s.withAuth(s.handleListRecords))
	mux.HandleFunc("POST /api/records", s.withAuth(s.handleCreateRecord))
	mux.HandleFunc("GET /api/records/{id}", s.withAuth(s.handleGetRecord))
	mux.HandleFunc("PUT /api/records/{id}", s.withAuth(s.handleUpdateRecord))
	mux.HandleFunc("DELETE /api/records/{id}", s.withAuth(s.handleDeleteRecord))

	mux.HandleFunc("GET /api/categories", s.withAuth(s.handleListCategories))
	mux.HandleFunc("POST /api/categories", s.withAuth(s.handleCreateCategory))
	mux.HandleFunc("PUT /api/categories/{id}", s.withAuth(s.handleUpdateCategory))
	mux.HandleFunc("DELETE /api/categories/{id}", s.withAuth(s.handleDeleteCategory))

	resolver := security.NewIPResolver()
	tracer := trace.NewMiddleware(resolver.ExtractClientIP)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limited := s.rateLimiter.Middleware(resolver.ExtractClientIP)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           tracer.Middleware(headers.Middleware(limited(mux))),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Shutdown stops the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
