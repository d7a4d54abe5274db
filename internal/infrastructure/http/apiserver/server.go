// Package apiserver provides the JSON API HTTP server
package apiserver

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/alchemorsel/mealplan/internal/infrastructure/config"
	"github.com/alchemorsel/mealplan/internal/infrastructure/http/handlers"
	"github.com/alchemorsel/mealplan/internal/infrastructure/http/middleware"
	"github.com/alchemorsel/mealplan/internal/infrastructure/monitoring"
	"github.com/alchemorsel/mealplan/internal/ports/inbound"
	"github.com/alchemorsel/mealplan/pkg/healthcheck"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const (
	healthPath  = "/health"
	readyPath   = "/ready"
	metricsPath = "/metrics"
)

// Server is the meal plan JSON API server
type Server struct {
	config  config.ServerConfig
	logger  *zap.Logger
	server  *http.Server
	router  *chi.Mux
	service inbound.MealPlanService
	health  *healthcheck.HealthCheck
	metrics *monitoring.Metrics
}

// NewServer creates a new API server. metrics may be nil when disabled.
func NewServer(
	cfg *config.Config,
	log *zap.Logger,
	service inbound.MealPlanService,
	health *healthcheck.HealthCheck,
	metrics *monitoring.Metrics,
) *Server {
	s := &Server{
		config:  cfg.Server,
		logger:  log.Named("apiserver"),
		service: service,
		health:  health,
		metrics: metrics,
	}

	s.router = s.setupRoutes()
	s.server = &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      otelhttp.NewHandler(s.router, cfg.App.Name),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s
}

func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(s.logger, healthPath, readyPath, metricsPath))
	r.Use(middleware.Recovery(s.logger))
	if s.metrics != nil {
		r.Use(s.metrics.HTTPMiddleware)
	}
	r.Use(middleware.Security())

	r.NotFound(middleware.NotFound)
	r.MethodNotAllowed(middleware.MethodNotAllowed)

	r.Get(healthPath, s.health.LivenessHandler())
	r.Get(readyPath, s.health.ReadinessHandler())
	if s.metrics != nil {
		r.Method(http.MethodGet, metricsPath, s.metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		if s.config.RequestTimeout > 0 {
			r.Use(chimiddleware.Timeout(s.config.RequestTimeout))
		}
		r.Use(middleware.BodyLimit(s.config.MaxBodyBytes))
		r.Use(middleware.JSONOnly())

		docs := NewOpenAPIHandler(s.logger)
		r.Get("/openapi.yaml", docs.ServeOpenAPISpec)
		r.Get("/openapi.json", docs.ServeOpenAPIJSON)

		handlers.NewMealPlanHandlers(s.service, s.logger).Routes(r)
	})

	return r
}

// Handler returns the instrumented root handler
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start binds the listener and serves in the background. Bind errors are
// returned; serve errors after that are logged.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}

	s.logger.Info("Starting API server", zap.String("address", ln.Addr().String()))
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server stopped unexpectedly", zap.Error(err))
		}
	}()
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server")
	return s.server.Shutdown(ctx)
}
