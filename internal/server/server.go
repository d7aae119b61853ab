// Package server wires the reference sync backend: routes, middleware and
// the HTTP listener lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iudanet/offsync/internal/config"
	"github.com/iudanet/offsync/internal/server/handlers"
	"github.com/iudanet/offsync/internal/server/middleware"
	"github.com/iudanet/offsync/internal/server/storage"
)

// API routes.
const (
	RouteChanges = "/api/v1/changes"
	RouteResolve = "/api/v1/conflicts/resolve"
	RouteHealth  = "/api/v1/health"
)

// Server представляет HTTP сервер синхронизации
type Server struct {
	logger  *slog.Logger
	limiter *middleware.RateLimiter
	handler http.Handler
	cfg     config.ServerConfig
}

// New собирает маршруты и цепочку middleware:
// Recovery -> Logging -> RateLimit -> Decompress -> handler
func New(cfg config.ServerConfig, logger *slog.Logger, store storage.ChangeStorage, version string) *Server {
	syncHandler := handlers.NewSyncHandler(logger, store)
	healthHandler := handlers.NewHealthHandler(logger, store, version)

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+RouteChanges, syncHandler.Pull)
	mux.HandleFunc("POST "+RouteChanges, syncHandler.Push)
	mux.HandleFunc("POST "+RouteResolve, syncHandler.Resolve)
	// GET в ServeMux также обслуживает HEAD
	mux.HandleFunc("GET "+RouteHealth, healthHandler.Health)

	s := &Server{
		cfg:    cfg,
		logger: logger,
	}

	var h http.Handler = middleware.Decompress(logger, handlers.MaxBodySize)(mux)
	if cfg.RateLimit > 0 {
		s.limiter = middleware.NewRateLimiter(cfg.RateLimit, cfg.RateWindow, logger)
		h = s.limiter.Middleware(h)
	}
	h = middleware.LoggingWithSkip(logger, []string{RouteHealth})(h)
	h = middleware.Recovery(logger)(h)

	s.handler = h
	return s
}

// Handler returns the complete handler chain.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run listens on cfg.Addr and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully within cfg.ShutdownTimeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("Sync server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("Shutting down sync server")

		timeout := s.cfg.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()

		if s.limiter != nil {
			s.limiter.Stop()
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	err := g.Wait()
	s.logger.Info("Sync server stopped")
	return err
}
