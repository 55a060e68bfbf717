// Package server exposes the worker's health and counters over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"

	"mcp-worker/internal/worker"
)

const shutdownTimeout = 5 * time.Second

// Pinger reports broker reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatsSource provides the loop counters.
type StatsSource interface {
	Snapshot() worker.StatsSnapshot
}

// Deps are the components the handlers read from.
type Deps struct {
	Broker  Pinger
	Stats   StatsSource
	AgentID string
	Logger  logr.Logger
}

type Server struct {
	Engine  *gin.Engine
	addr    string
	deps    Deps
	started time.Time
}

func NewServer(addr string, deps Deps) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(deps.Logger))

	s := &Server{Engine: r, addr: addr, deps: deps, started: time.Now()}
	s.RegisterRoutes(r)
	return s
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.deps.Logger.Info("health server listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func requestLogger(logger logr.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.V(1).Info("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
