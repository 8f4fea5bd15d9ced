package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"mercator-hq/growth/pkg/config"
	"mercator-hq/growth/pkg/growth/service"
	"mercator-hq/growth/pkg/server/middleware"
	"mercator-hq/growth/pkg/telemetry/health"
	"mercator-hq/growth/pkg/telemetry/metrics"
	"mercator-hq/growth/pkg/telemetry/tracing"
)

// Options carries optional collaborators of the server.
type Options struct {
	Logger  *slog.Logger
	Metrics *metrics.Collector
	Tracer  *tracing.Tracer

	// MetricsPath is where Prometheus metrics are served.
	// Default: config.DefaultPrometheusPath
	MetricsPath string

	// Build information served on /version.
	Version   string
	Commit    string
	BuildTime string
}

// Server is the HTTP API of the growth engine.
type Server struct {
	config  config.ServerConfig
	svc     *service.Service
	checker *health.Checker
	opts    Options
	logger  *slog.Logger

	httpServer   *http.Server
	listener     net.Listener
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// NewServer creates an API server for svc. opts may be nil.
func NewServer(cfg *config.ServerConfig, svc *service.Service, opts *Options) *Server {
	var o Options
	if opts != nil {
		o = *opts
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.MetricsPath == "" {
		o.MetricsPath = config.DefaultPrometheusPath
	}

	checker := health.New(cfg.RequestTimeout)
	checker.RegisterCheck("storage", health.PingCheck(svc))

	return &Server{
		config:  *cfg,
		svc:     svc,
		checker: checker,
		opts:    o,
		logger:  o.Logger.With("component", "growth.server"),
	}
}

// Start listens on the configured address and serves until ctx is
// cancelled or the server fails. Cancellation triggers a graceful shutdown
// bounded by ShutdownTimeout.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return errors.New("server is already running")
	}

	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress, err)
	}

	s.listener = ln
	s.httpServer = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
	s.isRunning = true
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("Starting API server", "address", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err, ok := <-errChan:
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		if ok {
			return err
		}
		return nil
	}
}

// Shutdown gracefully stops the server. It is safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.RLock()
		running, srv := s.isRunning, s.httpServer
		s.mu.RUnlock()
		if !running || srv == nil {
			return
		}

		s.logger.Info("Initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx := ctx
		if s.config.ShutdownTimeout > 0 {
			var cancel context.CancelFunc
			shutdownCtx, cancel = context.WithTimeout(ctx, s.config.ShutdownTimeout)
			defer cancel()
		}

		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("API server stopped")
	})

	return shutdownErr
}

// Addr returns the bound address once the server is running, or "".
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// IsRunning reports whether the server is serving.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerRoutes(mux)

	return middleware.Chain(mux,
		middleware.RecoveryMiddleware(s.logger),
		middleware.RequestIDMiddleware,
		tracing.HTTPMiddleware(s.opts.Tracer),
		middleware.LoggingMiddleware(s.logger),
		middleware.TimeoutMiddleware(s.config.RequestTimeout),
	)
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	h := &handlers{svc: s.svc, logger: s.logger}

	mux.HandleFunc("POST /v1/experiments/{experiment}/assignments", h.assignVariant)
	mux.HandleFunc("GET /v1/experiments/{experiment}/comparison", h.compareVariants)
	mux.HandleFunc("POST /v1/events", h.recordEvent)
	mux.HandleFunc("GET /v1/funnel", h.funnelStats)
	mux.HandleFunc("PUT /v1/strategies/{type}/versions/{version}", h.setStrategyVersion)
	mux.HandleFunc("GET /v1/strategies/{type}/versions", h.strategyVersions)
	mux.HandleFunc("POST /v1/strategies/{type}/rollback", h.rollback)
	mux.HandleFunc("GET /v1/strategies/{type}/active", h.activeStrategy)

	health.Register(mux, s.checker, s.opts.Version, s.opts.Commit, s.opts.BuildTime)

	if s.opts.Metrics != nil {
		mux.Handle("GET "+s.opts.MetricsPath, s.opts.Metrics.Handler())
	}
}

// requestBodyLimit caps JSON request bodies.
const requestBodyLimit = 1 << 20
