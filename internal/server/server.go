package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rpattn/memberimport/internal/auth"
	"github.com/rpattn/memberimport/internal/config"
	"github.com/rpattn/memberimport/internal/export"
	"github.com/rpattn/memberimport/internal/ingestion"
	"github.com/rpattn/memberimport/internal/logger"
	"github.com/rpattn/memberimport/internal/metrics"
	"github.com/rpattn/memberimport/internal/middleware"
	"github.com/rpattn/memberimport/internal/repository"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// HealthCheck reports whether the backing stores are reachable.
type HealthCheck func(ctx context.Context) error

// Server represents the HTTP server
type Server struct {
	config     *config.Config
	logger     *logger.Logger
	router     *mux.Router
	handler    http.Handler
	httpServer *http.Server
	imports    *ingestion.Handler
	exports    *export.HTTPHandler
	metrics    *metrics.ImportMetrics
	members    repository.MemberRepository
	health     HealthCheck
}

// NewServer creates a new HTTP server
func NewServer(
	cfg *config.Config,
	log *logger.Logger,
	imports *ingestion.Handler,
	exports *export.HTTPHandler,
	m *metrics.ImportMetrics,
	members repository.MemberRepository,
	health HealthCheck,
) *Server {
	s := &Server{
		config:  cfg,
		logger:  log,
		router:  mux.NewRouter(),
		imports: imports,
		exports: exports,
		metrics: m,
		members: members,
		health:  health,
	}

	s.setupRoutes()
	s.setupHTTPServer()

	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	if s.config.Metrics.Enabled && s.metrics != nil {
		s.router.Handle(s.config.Metrics.Path, s.metrics.Handler()).Methods(http.MethodGet)
	}

	s.imports.RegisterRoutes(s.router)
	s.exports.RegisterRoutes(s.router)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   s.config.Server.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Disposition", middleware.RequestIDHeader},
	})

	var h http.Handler = s.router
	h = middleware.DataLoaderMiddleware(s.members)(h)
	h = auth.Middleware(h)
	h = middleware.LoggingMiddleware(s.logger)(h)
	s.handler = corsHandler.Handler(h)
}

func (s *Server) setupHTTPServer() {
	s.httpServer = &http.Server{
		Addr:         s.config.Server.Addr(),
		Handler:      s.handler,
		ReadTimeout:  time.Duration(s.config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(s.config.Server.IdleTimeout) * time.Second,
	}
}

// Handler returns the fully wrapped request handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.health(ctx); err != nil {
			s.logger.WithError(err).Warn("health check failed")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
	}
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// Start starts the HTTP server and blocks until it is shut down.
func (s *Server) Start(ctx context.Context) error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.WithError(err).Error("HTTP server error")
		return err
	}
	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	return s.httpServer.Shutdown(ctx)
}
