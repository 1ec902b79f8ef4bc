package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"mercator-hq/verity/pkg/config"
	"mercator-hq/verity/pkg/engine"
	"mercator-hq/verity/pkg/history"
	"mercator-hq/verity/pkg/rules/ast"
	"mercator-hq/verity/pkg/telemetry/health"
)

// Validator is the part of the engine the server needs.
type Validator interface {
	Validate(ctx context.Context, ruleSet string, subject interface{}) (*engine.Report, error)
	RuleSets() []*ast.RuleSet
}

// Recorder stores validation outcomes.
type Recorder interface {
	Record(ctx context.Context, report *engine.Report, subject any) (*history.Record, error)
}

// HistoryMetrics counts stored history records.
type HistoryMetrics interface {
	RecordHistoryStored(valid bool)
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRecorder records every validation served.
func WithRecorder(r Recorder) Option {
	return func(s *Server) {
		s.recorder = r
	}
}

// WithHistory exposes stored records under /v1/history.
func WithHistory(storage history.Storage) Option {
	return func(s *Server) {
		s.history = storage
	}
}

// WithHistoryMetrics counts records stored by the server.
func WithHistoryMetrics(m HistoryMetrics) Option {
	return func(s *Server) {
		s.historyMetrics = m
	}
}

// WithHealth serves /healthz and /readyz from the checker.
func WithHealth(c *health.Checker) Option {
	return func(s *Server) {
		s.health = c
	}
}

// WithMetricsHandler serves handler at path, usually /metrics.
func WithMetricsHandler(path string, handler http.Handler) Option {
	return func(s *Server) {
		s.metricsPath = path
		s.metricsHandler = handler
	}
}

// Server is the HTTP validation server.
type Server struct {
	config         *config.ServerConfig
	validator      Validator
	recorder       Recorder
	history        history.Storage
	historyMetrics HistoryMetrics
	health         *health.Checker
	metricsPath    string
	metricsHandler http.Handler
	logger         *slog.Logger

	httpServer   *http.Server
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// NewServer creates a server validating with v.
func NewServer(cfg *config.ServerConfig, v Validator, opts ...Option) *Server {
	s := &Server{
		config:    cfg,
		validator: v,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "server")
	return s
}

// Start listens on the configured address and serves until the context is
// cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until the context is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		ln.Close()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.httpServer = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting validation server", "address", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err, ok := <-errChan:
		if ok {
			return err
		}
		return nil
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		running := s.isRunning
		s.isRunning = false
		s.mu.Unlock()
		if !running {
			return
		}

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx := ctx
		if s.config.ShutdownTimeout > 0 {
			var cancel context.CancelFunc
			shutdownCtx, cancel = context.WithTimeout(ctx, s.config.ShutdownTimeout)
			defer cancel()
		}

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.logger.Info("validation server stopped")
	})

	return shutdownErr
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the routed handler with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/validate/{ruleset}", s.handleValidate)
	mux.HandleFunc("GET /v1/rulesets", s.handleRuleSets)
	if s.history != nil {
		mux.HandleFunc("GET /v1/history", s.handleHistoryQuery)
		mux.HandleFunc("GET /v1/history/{id}", s.handleHistoryGet)
	}
	if s.health != nil {
		mux.Handle("/healthz", s.health.LivenessHandler())
		mux.Handle("/readyz", s.health.ReadinessHandler())
	}
	if s.metricsHandler != nil {
		mux.Handle(s.metricsPath, s.metricsHandler)
	}

	var handler http.Handler = mux
	handler = requestIDMiddleware(handler)
	handler = s.loggingMiddleware(handler)
	handler = s.recoveryMiddleware(handler)
	return handler
}
