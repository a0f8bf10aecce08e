package httpadapter

import (
	"time"

	"github.com/gin-gonic/gin"
)

func (s *Server) health(status string, connected bool) healthData {
	return healthData{
		Service:        s.opts.ServiceName,
		Version:        s.opts.Version,
		Status:         status,
		UptimeSeconds:  time.Since(s.startedAt).Seconds(),
		ModelConnected: connected,
		ActiveSessions: s.svc.ActiveCount(),
	}
}

// GET /api/v1/health
func (s *Server) handleHealth(c *gin.Context) {
	respondOK(c, "Service is healthy", s.health("healthy", s.svc.ModelConnected()))
}

// GET /api/v1/health/ready probes the model. A failed probe reports
// degraded but still answers 200 so guidance keeps flowing on fallbacks.
func (s *Server) handleReady(c *gin.Context) {
	if !s.svc.CheckModel(c.Request.Context()) {
		respondOK(c, "Service is degraded", s.health("degraded", false))
		return
	}
	respondOK(c, "Service is ready", s.health("ready", true))
}

// GET /api/v1/health/version
func (s *Server) handleVersion(c *gin.Context) {
	respondOK(c, "Version information", gin.H{
		"service": s.opts.ServiceName,
		"version": s.opts.Version,
	})
}
