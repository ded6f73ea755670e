// Package http provides the HTTP server and handlers for viewport sessions.
package http //nolint:revive // package name conflicts with stdlib but is acceptable in this context

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/jobrunner/mapview/internal/adapters/metrics"
	"github.com/jobrunner/mapview/internal/application"
	"github.com/jobrunner/mapview/internal/config"
)

// Server wraps the HTTP server with application handlers.
type Server struct {
	server     *http.Server
	router     *mux.Router
	sessions   *application.SessionRegistry
	catalog    *application.SourceCatalog
	extent     *application.ExtentService
	health     *application.HealthService
	metrics    *metrics.Collector
	metricsCfg config.MetricsConfig
	logger     *slog.Logger
	config     config.ServerConfig
}

// NewServer creates a new HTTP server. catalog, extent and collector may be
// nil; the routes depending on them are then not registered.
func NewServer(
	cfg config.ServerConfig,
	sessions *application.SessionRegistry,
	catalog *application.SourceCatalog,
	extent *application.ExtentService,
	health *application.HealthService,
	collector *metrics.Collector,
	metricsCfg config.MetricsConfig,
	logger *slog.Logger,
) *Server {
	s := &Server{
		sessions:   sessions,
		catalog:    catalog,
		extent:     extent,
		health:     health,
		metrics:    collector,
		metricsCfg: metricsCfg,
		logger:     logger,
		config:     cfg,
	}

	s.router = s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Address(),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *mux.Router {
	r := mux.NewRouter()

	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
	}
	if s.config.CORS.Enabled() {
		r.Use(s.corsMiddleware)
	}

	// Health endpoints
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/health/live", s.handleLiveness).Methods(http.MethodGet)
	r.HandleFunc("/health/ready", s.handleReadiness).Methods(http.MethodGet)

	if s.metrics != nil && s.metricsCfg.Enabled {
		r.Handle(s.metricsCfg.Path, metrics.Handler()).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api/v1").Subrouter()

	// Viewport sessions
	api.HandleFunc("/viewports", s.handleCreateViewport).Methods(http.MethodPost)
	api.HandleFunc("/viewports", s.handleListViewports).Methods(http.MethodGet)
	api.HandleFunc("/viewports/{id}", s.handleGetViewport).Methods(http.MethodGet)
	api.HandleFunc("/viewports/{id}", s.handleDeleteViewport).Methods(http.MethodDelete)
	api.HandleFunc("/viewports/{id}/screen", s.handleSetScreen).Methods(http.MethodPut)
	api.HandleFunc("/viewports/{id}/bounds", s.handleSetBounds).Methods(http.MethodPut)
	api.HandleFunc("/viewports/{id}/crs", s.handleSetCRS).Methods(http.MethodPut)
	api.HandleFunc("/viewports/{id}/transform", s.handleApplyTransform).Methods(http.MethodPost)
	api.HandleFunc("/viewports/{id}/events", s.handleListEvents).Methods(http.MethodGet)
	api.HandleFunc("/viewports/{id}/point", s.handleConvertPoint).Methods(http.MethodGet)

	// Feature sources
	if s.catalog != nil {
		api.HandleFunc("/packages", s.handleListPackages).Methods(http.MethodGet)
		api.HandleFunc("/packages/{packageId}", s.handleGetPackage).Methods(http.MethodGet)
	}
	if s.extent != nil {
		api.HandleFunc("/packages/{packageId}/layers/{layer}/extent", s.handleLayerExtent).Methods(http.MethodGet)
		api.HandleFunc("/viewports/{id}/fit", s.handleFitToLayer).Methods(http.MethodPost)
		api.HandleFunc("/viewports/{id}/features", s.handleVisibleFeatures).Methods(http.MethodGet)
	}

	r.HandleFunc("/openapi.json", s.handleOpenAPI).Methods(http.MethodGet)

	return r
}

// Router returns the mux router.
func (s *Server) Router() *mux.Router {
	return s.router
}

// HTTPServer returns the underlying server, e.g. for TLS setup.
func (s *Server) HTTPServer() *http.Server {
	return s.server
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "address", s.config.Address())
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs incoming requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"duration", time.Since(start),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// recoveryMiddleware recovers from panics.
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("panic recovered", "error", err, "path", r.URL.Path)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
