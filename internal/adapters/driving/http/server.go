package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/custodia-labs/insurance-calc/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger
type PingFunc func(ctx context.Context) error

// Ping calls f(ctx)
func (f PingFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string
	logger     *slog.Logger

	shutdownTimeout time.Duration

	// Services
	authService      driving.AuthService
	insuranceService driving.InsuranceService

	// Infrastructure
	db          Pinger // PostgreSQL health check
	redisClient Pinger // Redis health check (optional)
}

// Config holds server configuration
type Config struct {
	Host            string
	Port            int
	Version         string
	ShutdownTimeout time.Duration
	Logger          *slog.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:            "127.0.0.1",
		Port:            8000,
		Version:         "dev",
		ShutdownTimeout: 30 * time.Second,
	}
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	authService driving.AuthService,
	insuranceService driving.InsuranceService,
	db Pinger,
	redisClient Pinger, // can be nil
) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	shutdownTimeout := cfg.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}

	s := &Server{
		router:           http.NewServeMux(),
		shutdownTimeout:  shutdownTimeout,
		version:          cfg.Version,
		logger:           logger,
		authService:      authService,
		insuranceService: insuranceService,
		db:               db,
		redisClient:      redisClient,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.setupRoutes()
	return s
}

// Handler returns the router wrapped with recovery and access logging
func (s *Server) Handler() http.Handler {
	logging := NewLoggingMiddleware(s.logger)
	recovery := NewRecoveryMiddleware(s.logger)
	return recovery.Handler(logging.Handler(s.router))
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

func (s *Server) setupRoutes() {
	authMiddleware := NewAuthMiddleware(s.authService)

	// Health and docs
	s.router.HandleFunc("GET /api/health", s.handleHealth)
	s.router.HandleFunc("GET /api/version", s.handleVersion)
	s.router.HandleFunc("GET /api/openapi.json", s.handleOpenAPI)

	// Auth endpoints
	s.router.HandleFunc("POST /api/auth/access-token", s.handleAccessToken)

	// Insurance endpoints (public)
	s.router.HandleFunc("GET /api/insurance/query_insurance", s.handleQueryInsurance)
	s.router.HandleFunc("POST /api/insurance/query_insurance", s.handleQueryInsurance)
	s.router.HandleFunc("GET /api/insurance/calculate_insurance", s.handleCalculateInsurance)
	s.router.HandleFunc("POST /api/insurance/calculate_insurance", s.handleCalculateInsurance)

	// Insurance endpoints (authenticated)
	s.router.Handle("POST /api/insurance/upload_insurance",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleUploadInsurance)))
	s.router.Handle("POST /api/insurance/update_insurance",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleUpdateInsurance)))
	s.router.Handle("DELETE /api/insurance/delete_insurance",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleDeleteInsurance)))
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
