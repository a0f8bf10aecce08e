package httpadapter

import (
	"time"

	"github.com/PabloGalante/guardian-agent/internal/app/emergency"
	"github.com/PabloGalante/guardian-agent/internal/domain"
)

// ─────────────────────────────────────────────
// Requests
// ─────────────────────────────────────────────

type startSessionRequest struct {
	UserNotes    string `json:"user_notes" binding:"max=2000"`
	LocationData string `json:"location_data" binding:"max=500"`
	DeviceInfo   string `json:"device_info" binding:"max=500"`
}

type endSessionRequest struct {
	SessionID               string `json:"session_id" binding:"required,uuid"`
	Reason                  string `json:"reason" binding:"required,min=1,max=100"`
	Notes                   string `json:"notes" binding:"max=2000"`
	EmergencyServicesCalled bool   `json:"emergency_services_called"`
}

type monitorRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

type analyzeFrameRequest struct {
	SessionID      string `json:"session_id" binding:"required,uuid"`
	FrameData      string `json:"frame_data" binding:"required,min=100"`
	SequenceNumber *int   `json:"sequence_number" binding:"required,min=0"`
	Width          int    `json:"width" binding:"required,min=1,max=4096"`
	Height         int    `json:"height" binding:"required,min=1,max=4096"`
	Format         string `json:"format" binding:"omitempty,oneof=jpeg jpg png webp"`
	Context        string `json:"context" binding:"max=1000"`
}

type advanceStepRequest struct {
	SessionID   string `json:"session_id" binding:"required,uuid"`
	CurrentStep int    `json:"current_step" binding:"required,min=1"`
	Feedback    string `json:"feedback" binding:"max=500"`
}

type voiceQueryRequest struct {
	SessionID string `json:"session_id" binding:"required,uuid"`
	Text      string `json:"text" binding:"required,min=1,max=1000"`
}

type audioRequest struct {
	SessionID      string `json:"session_id" binding:"required,uuid"`
	AudioData      string `json:"audio_data" binding:"required,min=10"`
	SequenceNumber int    `json:"sequence_number" binding:"min=0"`
	SampleRate     int    `json:"sample_rate" binding:"omitempty,min=8000,max=96000"`
	Channels       int    `json:"channels" binding:"omitempty,min=1,max=8"`
	DurationMS     int    `json:"duration_ms" binding:"required,min=1,max=60000"`
	Format         string `json:"format" binding:"omitempty,oneof=pcm wav webm"`
}

// ─────────────────────────────────────────────
// Responses
// ─────────────────────────────────────────────

type sessionData struct {
	SessionID               string               `json:"session_id"`
	Status                  domain.SessionStatus `json:"status"`
	StartedAt               time.Time            `json:"started_at"`
	UpdatedAt               time.Time            `json:"updated_at"`
	EndedAt                 *time.Time           `json:"ended_at,omitempty"`
	CurrentStep             int                  `json:"current_step"`
	TotalSteps              int                  `json:"total_steps"`
	EmergencyType           domain.EmergencyType `json:"emergency_type,omitempty"`
	Severity                int                  `json:"severity,omitempty"`
	FramesProcessed         int                  `json:"frames_processed"`
	EmergencyServicesCalled bool                 `json:"emergency_services_called"`
}

type statusData struct {
	SessionID   string               `json:"session_id"`
	Status      domain.SessionStatus `json:"status"`
	IsActive    bool                 `json:"is_active"`
	CurrentStep int                  `json:"current_step"`
	TotalSteps  int                  `json:"total_steps"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

type analysisData struct {
	SessionID             string               `json:"session_id"`
	EmergencyType         domain.EmergencyType `json:"emergency_type"`
	EmergencyLabel        string               `json:"emergency_label"`
	Severity              int                  `json:"severity"`
	ConfidenceScore       float64              `json:"confidence_score"`
	Observations          []string             `json:"observations"`
	RecommendedAction     string               `json:"recommended_action"`
	CallEmergencyServices bool                 `json:"call_emergency_services"`
	AdditionalContext     string               `json:"additional_context,omitempty"`
	Instructions          []domain.Instruction `json:"instructions"`
	CurrentInstruction    *domain.Instruction  `json:"current_instruction,omitempty"`
	VoiceGuidance         string               `json:"voice_guidance"`
}

type instructionData struct {
	SessionID       string              `json:"session_id"`
	CurrentStep     int                 `json:"current_step"`
	TotalSteps      int                 `json:"total_steps"`
	Instruction     domain.Instruction  `json:"instruction"`
	NextInstruction *domain.Instruction `json:"next_instruction,omitempty"`
	VoiceText       string              `json:"voice_text"`
}

type voiceData struct {
	SessionID    string `json:"session_id"`
	ResponseText string `json:"response_text"`
}

type audioData struct {
	SessionID     string `json:"session_id"`
	BytesReceived int    `json:"bytes_received"`
	VoiceResponse string `json:"voice_response"`
}

type healthData struct {
	Service        string  `json:"service"`
	Version        string  `json:"version"`
	Status         string  `json:"status"`
	UptimeSeconds  float64 `json:"uptime_seconds"`
	ModelConnected bool    `json:"model_connected"`
	ActiveSessions int     `json:"active_sessions"`
}

type incidentsData struct {
	Incidents []*domain.IncidentRecord `json:"incidents"`
	Count     int                      `json:"count"`
}

// ─────────────────────────────────────────────
// Mapping
// ─────────────────────────────────────────────

func toSessionData(s *domain.Session) sessionData {
	out := sessionData{
		SessionID:               string(s.ID),
		Status:                  s.Status,
		StartedAt:               s.StartedAt,
		UpdatedAt:               s.UpdatedAt,
		EndedAt:                 s.EndedAt,
		CurrentStep:             s.CurrentStep,
		TotalSteps:              s.TotalSteps(),
		FramesProcessed:         s.FramesProcessed,
		EmergencyServicesCalled: s.EmergencyServicesCalled,
	}
	if s.Analysis != nil {
		out.EmergencyType = s.Analysis.EmergencyType
		out.Severity = s.Analysis.Severity
	}
	return out
}

func toStatusData(s *domain.Session) statusData {
	return statusData{
		SessionID:   string(s.ID),
		Status:      s.Status,
		IsActive:    !s.IsTerminal(),
		CurrentStep: s.CurrentStep,
		TotalSteps:  s.TotalSteps(),
		UpdatedAt:   s.UpdatedAt,
	}
}

func toAnalysisData(res *emergency.FrameResult) analysisData {
	a := res.Analysis
	observations := a.Observations
	if observations == nil {
		observations = []string{}
	}
	instructions := res.Session.Instructions
	if instructions == nil {
		instructions = []domain.Instruction{}
	}
	return analysisData{
		SessionID:             string(res.Session.ID),
		EmergencyType:         a.EmergencyType,
		EmergencyLabel:        emergency.TypeLabel(a.EmergencyType),
		Severity:              a.Severity,
		ConfidenceScore:       a.ConfidenceScore,
		Observations:          observations,
		RecommendedAction:     a.RecommendedAction,
		CallEmergencyServices: a.CallEmergencyServices,
		AdditionalContext:     a.AdditionalContext,
		Instructions:          instructions,
		CurrentInstruction:    res.Current,
		VoiceGuidance:         res.VoiceGuidance,
	}
}

func toInstructionView(v *emergency.InstructionView) instructionData {
	return instructionData{
		SessionID:       string(v.SessionID),
		CurrentStep:     v.CurrentStep,
		TotalSteps:      v.TotalSteps,
		Instruction:     v.Instruction,
		NextInstruction: v.Next,
		VoiceText:       v.VoiceText,
	}
}
