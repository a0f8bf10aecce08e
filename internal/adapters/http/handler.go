package httpadapter

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/PabloGalante/guardian-agent/internal/app/emergency"
	"github.com/PabloGalante/guardian-agent/internal/app/incidents"
	"github.com/PabloGalante/guardian-agent/internal/domain"
)

const defaultMaxFrameBytes = 10 << 20

// Options tunes the router. Zero values are usable.
type Options struct {
	ServiceName    string
	Version        string
	MaxFrameBytes  int
	AllowedOrigins []string
	RequestTimeout time.Duration
	Tracing        bool
	Logger         *zap.Logger
}

type Server struct {
	svc       *emergency.Service
	incidents *incidents.Service
	opts      Options
	startedAt time.Time
}

// NewServer builds the gin engine serving /api/v1. incidentSvc may be nil,
// in which case the archive routes are not registered.
func NewServer(svc *emergency.Service, incidentSvc *incidents.Service, opts Options) http.Handler {
	if opts.MaxFrameBytes <= 0 {
		opts.MaxFrameBytes = defaultMaxFrameBytes
	}
	if opts.ServiceName == "" {
		opts.ServiceName = "guardian-api"
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	useJSONFieldNames()

	s := &Server{
		svc:       svc,
		incidents: incidentSvc,
		opts:      opts,
		startedAt: time.Now(),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	if opts.Tracing {
		r.Use(otelgin.Middleware(opts.ServiceName))
	}
	r.Use(RequestContext())
	r.Use(RequestLogger(opts.Logger))
	r.Use(CORS(opts.AllowedOrigins))

	r.NoRoute(func(c *gin.Context) {
		respondError(c, http.StatusNotFound, "route_not_found", errTypeNotFound, "Route not found", nil)
	})

	api := r.Group("/api/v1")
	{
		api.GET("/health", s.handleHealth)
		api.GET("/health/ready", s.handleReady)
		api.GET("/health/version", s.handleVersion)
	}

	bounded := api.Group("/")
	bounded.Use(RequestTimeout(opts.RequestTimeout))
	{
		// Sessions
		bounded.POST("/session/start", s.handleStartSession)
		bounded.POST("/session/end", s.handleEndSession)
		bounded.GET("/session/:id", s.handleGetSession)
		bounded.GET("/session/:id/status", s.handleSessionStatus)
		bounded.POST("/session/:id/monitor", s.handleMonitor)

		// Emergency guidance
		bounded.POST("/emergency/analyze-frame", s.handleAnalyzeFrame)
		bounded.POST("/emergency/advance-step", s.handleAdvanceStep)
		bounded.GET("/emergency/instruction/:session_id", s.handleCurrentInstruction)
		bounded.POST("/emergency/voice", s.handleVoiceQuery)
		bounded.POST("/emergency/audio", s.handleAudio)

		// Archive
		if s.incidents != nil {
			bounded.GET("/incidents", s.handleListIncidents)
			bounded.GET("/incidents/:id", s.handleGetIncident)
		}
	}

	return r
}

// ─────────────────────────────────────────────
// Sessions
// ─────────────────────────────────────────────

// POST /api/v1/session/start
func (s *Server) handleStartSession(c *gin.Context) {
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// An empty body starts a session with no context.
		if !errors.Is(err, io.EOF) {
			respondBindError(c, err)
			return
		}
		req = startSessionRequest{}
	}

	sess, err := s.svc.StartSession(c.Request.Context(), emergency.StartSessionInput{
		UserNotes:    req.UserNotes,
		LocationData: req.LocationData,
		DeviceInfo:   req.DeviceInfo,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Emergency session started", toSessionData(sess))
}

// GET /api/v1/session/:id
func (s *Server) handleGetSession(c *gin.Context) {
	id, ok := sessionIDParam(c, "id")
	if !ok {
		return
	}
	sess, err := s.svc.GetSession(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondOK(c, "Session retrieved", toSessionData(sess))
}

// GET /api/v1/session/:id/status
func (s *Server) handleSessionStatus(c *gin.Context) {
	id, ok := sessionIDParam(c, "id")
	if !ok {
		return
	}
	sess, err := s.svc.GetSession(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondOK(c, "Session status retrieved", toStatusData(sess))
}

// POST /api/v1/session/end
func (s *Server) handleEndSession(c *gin.Context) {
	var req endSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	sess, err := s.svc.EndSession(c.Request.Context(), emergency.EndSessionInput{
		SessionID:               domain.SessionID(req.SessionID),
		Reason:                  req.Reason,
		Notes:                   req.Notes,
		EmergencyServicesCalled: req.EmergencyServicesCalled,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondOK(c, "Session ended", toSessionData(sess))
}

// POST /api/v1/session/:id/monitor
func (s *Server) handleMonitor(c *gin.Context) {
	id, ok := sessionIDParam(c, "id")
	if !ok {
		return
	}
	var req monitorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	sess, err := s.svc.SetMonitoring(c.Request.Context(), id, *req.Enabled)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	msg := "Monitoring resumed to active guidance"
	if *req.Enabled {
		msg = "Session is now monitoring"
	}
	respondOK(c, msg, toStatusData(sess))
}

// ─────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────

// sessionIDParam reads a path id and rejects anything that is not a UUID.
func sessionIDParam(c *gin.Context, name string) (domain.SessionID, bool) {
	raw := c.Param(name)
	if _, err := uuid.Parse(raw); err != nil {
		respondInvalid(c, "invalid_session_id", err)
		return "", false
	}
	return domain.SessionID(raw), true
}
