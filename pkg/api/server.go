// Package api hosts the two HTTP surfaces of netsentry: the management
// REST/SSE API served by sentry-ui, and the admission endpoint served by
// sentryd for the intercepting proxy.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/netsentry-io/netsentry/pkg/api/middleware"
	"github.com/netsentry-io/netsentry/pkg/api/service"
)

// Config defines the HTTP server settings.
type Config struct {
	Addr   string
	APIKey string

	// StreamInterval is the SSE emission check period (management only).
	StreamInterval time.Duration
}

// Server hosts a Gin engine over the configured surface.
type Server struct {
	engine *gin.Engine
	config Config
	log    *slog.Logger
}

// NewManagementServer constructs the management API server.
func NewManagementServer(cfg Config, svc *service.Monitor, log *slog.Logger) *Server {
	srv := newServer(cfg, log)
	srv.setupManagementRoutes(svc)
	return srv
}

// NewAdmissionServer constructs the decision daemon's admission server.
func NewAdmissionServer(cfg Config, engine Firewall, log *slog.Logger) *Server {
	srv := newServer(cfg, log)
	srv.setupAdmissionRoutes(engine)
	return srv
}

func newServer(cfg Config, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.Logger(log))

	return &Server{
		engine: engine,
		config: cfg,
		log:    log,
	}
}

// Engine returns the underlying Gin engine (for http.Server and tests).
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Addr returns the configured address.
func (s *Server) Addr() string {
	return s.config.Addr
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpSrv := &http.Server{Addr: s.config.Addr, Handler: s.engine}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http api listening", "addr", s.config.Addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
