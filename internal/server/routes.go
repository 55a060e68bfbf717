package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"mcp-worker/internal/worker"
)

const pingTimeout = 2 * time.Second

type statsResponse struct {
	AgentID       string  `json:"agent_id"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	worker.StatsSnapshot
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", s.handleHealth)
	r.GET("/stats", s.handleStats)
}

func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
	defer cancel()

	if err := s.deps.Broker.Ping(ctx); err != nil {
		s.deps.Logger.Error(err, "health check failed")
		c.String(http.StatusServiceUnavailable, "broker unreachable: %v", err)
		return
	}
	c.String(http.StatusOK, "ok")
}

func (s *Server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, statsResponse{
		AgentID:       s.deps.AgentID,
		UptimeSeconds: time.Since(s.started).Seconds(),
		StatsSnapshot: s.deps.Stats.Snapshot(),
	})
}
