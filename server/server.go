// Package server provides HTTP server management and lifecycle handling for
// the prescription API: middleware, routes and graceful shutdown.
package server

import (
	"context"
	"errors"
	"net/http"
	_ "net/http/pprof"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/harithra-blueberry/aiprescription/config"
	"github.com/harithra-blueberry/aiprescription/handlers"
	"github.com/harithra-blueberry/aiprescription/logging"
	"github.com/harithra-blueberry/aiprescription/metrics"
)

const rateLimiterCleanupInterval = 30 * time.Minute

// Server represents the HTTP server
type Server struct {
	server  *http.Server
	router  chi.Router
	handler *handlers.HTTPHandlerImpl
	limiter *RateLimiter
	config  *config.Config
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, handler *handlers.HTTPHandlerImpl) *Server {
	router := chi.NewRouter()

	s := &Server{
		server: &http.Server{
			Handler:        router,
			Addr:           cfg.Address + ":" + cfg.Port,
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   60 * time.Second, // audio transcription and delivery call out
			IdleTimeout:    60 * time.Second,
			MaxHeaderBytes: int(cfg.MaxHeaderSize),
		},
		router:  router,
		handler: handler,
		limiter: NewRateLimiter(rateLimiterCleanupInterval),
		config:  cfg,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures all middleware
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(RealIPMiddleware)
	s.router.Use(logging.LoggingMiddleware(logging.Logger()))
	s.router.Use(middleware.RedirectSlashes)
	s.router.Use(middleware.Recoverer)
	s.router.Use(metrics.Metrics)
	s.router.Use(s.limiter.RateLimitHandler)
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	h := s.handler
	jsonLimit := RequestSizeMiddleware(s.config.MaxRequestBody, s.config.MaxHeaderSize)
	audioLimit := RequestSizeMiddleware(s.config.MaxAudioBytes, s.config.MaxHeaderSize)

	s.router.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(jsonLimit)
			r.Post("/prescriptions", h.CreatePrescription)
			r.Post("/prescriptions/batch", h.CreatePrescriptionBatch)
			r.Post("/prescriptions/document", h.RenderPrescription)
			r.Post("/prescriptions/send", h.SendPrescription)
		})
		r.With(audioLimit).Post("/prescriptions/audio", h.CreatePrescriptionFromAudio)

		r.Get("/medicines/resolve", h.ResolveMedicine)
		r.Get("/medicines/export", h.ExportCatalog)
		r.Get("/medicines/{name}", h.MedicineDetails)
	})

	s.router.Get("/health", h.HealthCheck)
	s.router.Handle("/metrics", metrics.Handler())
}

// Handler returns the routed handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the server and blocks until it stops. A graceful shutdown
// is not reported as an error.
func (s *Server) Start() error {
	if s.config.Env == config.EnvDevelopment {
		s.startProfilingServer()
	}

	logging.Info("Starting server", "address", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")
	defer s.limiter.Stop()

	if err := s.server.Shutdown(ctx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
		// If graceful shutdown fails, force close
		if err := s.server.Close(); err != nil {
			logging.Error("Server close error", "error", err)
			return err
		}
	}

	logging.Info("Server shutdown complete")
	return nil
}

// startProfilingServer starts the pprof profiling server in development mode
func (s *Server) startProfilingServer() {
	go func() {
		logging.Info("Profiling server started", "url", "http://localhost:6060/debug/pprof/")
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			logging.Warn("Profiling server failed", "error", err)
		}
	}()
}
