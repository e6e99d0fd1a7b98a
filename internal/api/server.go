// Package api exposes the manuscript export pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/inkfeather/bookbinder/internal/book"
	"github.com/inkfeather/bookbinder/internal/delivery"
	"github.com/inkfeather/bookbinder/internal/errors"
	"github.com/inkfeather/bookbinder/internal/jobs"
	"github.com/inkfeather/bookbinder/internal/metrics"
	"github.com/inkfeather/bookbinder/internal/render"
	"github.com/inkfeather/bookbinder/internal/version"
)

// Server is the HTTP front end. All domain decisions live in the packages
// it delegates to; handlers translate between HTTP and those packages.
type Server struct {
	router   *chi.Mux
	server   *http.Server
	errs     *errors.HTTPAdapter
	manager  *jobs.Manager
	source   book.Source
	registry *render.Registry
	store    *delivery.Store
	recorder metrics.Recorder
}

// NewServer wires the HTTP surface. recorder may be a NoopRecorder; in
// that case /metrics serves an empty exposition.
func NewServer(addr string, manager *jobs.Manager, source book.Source, registry *render.Registry, store *delivery.Store, recorder metrics.Recorder) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		errs:     errors.NewHTTPAdapter(slog.Default()),
		manager:  manager,
		source:   source,
		registry: registry,
		store:    store,
		recorder: recorder,
	}
	s.setupRoutes()
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(30 * time.Second))

	s.router.Get("/health", s.handleHealth)
	s.router.Method(http.MethodGet, "/metrics", s.metricsHandler())

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/projects/{projectID}/export", s.handleSubmitExport)
		r.Post("/projects/{projectID}/preview", s.handlePreview)
		r.Get("/exports", s.handleListExports)
		r.Get("/exports/{jobID}", s.handleGetExport)
		r.Get("/exports/{jobID}/download", s.handleDownload)
		r.Get("/exports/{jobID}/events", s.handleExportEvents)
		r.Get("/formats", s.handleFormats)
	})
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start blocks serving HTTP until the listener fails or is shut down.
func (s *Server) Start() error {
	slog.Info("HTTP server listening", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) metricsHandler() http.Handler {
	if pr, ok := s.recorder.(*metrics.PrometheusRecorder); ok && pr != nil {
		return pr.Handler()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "version": version.Version})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
