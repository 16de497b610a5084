package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"namereg/internal/config"
	"namereg/internal/jobs"
	"namereg/internal/registry"
	"namereg/internal/storage"
)

// Registrar runs one registration with whatever strategy it is bound to.
type Registrar interface {
	Handle(ctx context.Context, name string) (storage.Record, error)
	Strategy() registry.Strategy
}

// Database is what the operational endpoints need from the pool.
type Database interface {
	Ping(ctx context.Context) error
	Stats() storage.PoolStats
}

// RunnerStatser reports offload worker statistics.
type RunnerStatser interface {
	Stats() jobs.RunnerStats
}

// Option customizes a Server.
type Option func(*Server)

// WithRunner exposes runner statistics on /metrics.
func WithRunner(r RunnerStatser) Option {
	return func(s *Server) { s.runner = r }
}

// Server represents the HTTP API server
type Server struct {
	router  *http.ServeMux
	server  *http.Server
	cfg     config.ServerConfig
	logger  *slog.Logger
	svc     Registrar
	db      Database
	runner  RunnerStatser
	metrics *MetricsCollector
}

// NewServer creates a new HTTP server instance
func NewServer(cfg config.ServerConfig, svc Registrar, db Database, logger *slog.Logger, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:     cfg,
		logger:  logger,
		svc:     svc,
		db:      db,
		router:  http.NewServeMux(),
		metrics: NewMetricsCollector(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.registerRoutes()

	handler, err := s.applyMiddleware(s.router)
	if err != nil {
		return nil, err
	}
	s.server = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout(),
		WriteTimeout: cfg.WriteTimeout(),
		IdleTimeout:  cfg.IdleTimeout(),
	}

	return s, nil
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.server.Addr
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server",
		"addr", s.server.Addr,
		"strategy", s.svc.Strategy(),
	)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info("Server shut down successfully")
	return nil
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.server.Handler.ServeHTTP(w, r)
}

// applyMiddleware wraps the handler, outermost last.
func (s *Server) applyMiddleware(handler http.Handler) (http.Handler, error) {
	handler = TracingMiddleware()(handler)
	if s.cfg.Compression.Enabled {
		gz, err := CompressionMiddleware(s.cfg.Compression.MinSize)
		if err != nil {
			return nil, fmt.Errorf("failed to configure compression: %w", err)
		}
		handler = gz(handler)
	}
	if s.cfg.RateLimit.Enabled {
		handler = RateLimitMiddleware(NewRateLimiter(s.cfg.RateLimit), s.metrics)(handler)
	}
	handler = RecoveryMiddleware(s.logger)(handler)
	handler = MetricsMiddleware(s.metrics)(handler)
	handler = LoggingMiddleware(s.logger)(handler)
	handler = RequestIDMiddleware()(handler)
	return handler, nil
}
