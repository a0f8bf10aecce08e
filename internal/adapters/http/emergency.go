package httpadapter

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/PabloGalante/guardian-agent/internal/app/emergency"
	"github.com/PabloGalante/guardian-agent/internal/domain"
)

const (
	defaultSampleRate = 16000
	defaultChannels   = 1
	// Slack for the JSON fields around the base64 frame.
	bodyOverhead = 64 << 10
)

var frameMIME = map[string]string{
	"":     "image/jpeg",
	"jpeg": "image/jpeg",
	"jpg":  "image/jpeg",
	"png":  "image/png",
	"webp": "image/webp",
}

// POST /api/v1/emergency/analyze-frame
func (s *Server) handleAnalyzeFrame(c *gin.Context) {
	limit := int64(base64.StdEncoding.EncodedLen(s.opts.MaxFrameBytes)) + bodyOverhead
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	var req analyzeFrameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	image, err := decodeBase64Payload(req.FrameData)
	if err != nil {
		respondInvalid(c, "invalid_frame_data", err)
		return
	}
	if len(image) > s.opts.MaxFrameBytes {
		respondInvalid(c, "frame_too_large",
			fmt.Errorf("decoded frame is %d bytes, limit is %d", len(image), s.opts.MaxFrameBytes))
		return
	}

	res, err := s.svc.SubmitFrame(c.Request.Context(), emergency.SubmitFrameInput{
		SessionID: domain.SessionID(req.SessionID),
		Image:     image,
		MIMEType:  frameMIME[strings.ToLower(req.Format)],
		Sequence:  *req.SequenceNumber,
		Context:   req.Context,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondOK(c, "Emergency analysis complete", toAnalysisData(res))
}

// POST /api/v1/emergency/advance-step
func (s *Server) handleAdvanceStep(c *gin.Context) {
	var req advanceStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	res, err := s.svc.AdvanceStep(c.Request.Context(), emergency.AdvanceStepInput{
		SessionID:   domain.SessionID(req.SessionID),
		ClaimedStep: req.CurrentStep,
		Feedback:    req.Feedback,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}

	switch {
	case res.Completed:
		respondOK(c, "All instructions completed", toStatusData(res.Session))
	case res.Instruction == nil:
		respondOK(c, "No instructions available yet", nil)
	default:
		respondOK(c, fmt.Sprintf("Advanced to step %d", res.Session.CurrentStep), instructionData{
			SessionID:       string(res.Session.ID),
			CurrentStep:     res.Session.CurrentStep,
			TotalSteps:      res.Session.TotalSteps(),
			Instruction:     *res.Instruction,
			NextInstruction: res.Next,
			VoiceText:       res.VoiceText,
		})
	}
}

// GET /api/v1/emergency/instruction/:session_id
func (s *Server) handleCurrentInstruction(c *gin.Context) {
	id, ok := sessionIDParam(c, "session_id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	view, err := s.svc.CurrentInstruction(ctx, id)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	if view != nil {
		respondOK(c, "Current instruction retrieved", toInstructionView(view))
		return
	}

	sess, err := s.svc.GetSession(ctx, id)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	if sess.TotalSteps() == 0 {
		respondOK(c, "No instructions available yet", nil)
		return
	}
	respondOK(c, "No current instruction", nil)
}

// POST /api/v1/emergency/voice
func (s *Server) handleVoiceQuery(c *gin.Context) {
	var req voiceQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	reply, err := s.svc.VoiceQuery(c.Request.Context(), domain.SessionID(req.SessionID), req.Text)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondOK(c, "Voice query processed", voiceData{
		SessionID:    req.SessionID,
		ResponseText: reply,
	})
}

// POST /api/v1/emergency/audio
func (s *Server) handleAudio(c *gin.Context) {
	var req audioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	data, err := decodeBase64Payload(req.AudioData)
	if err != nil {
		respondInvalid(c, "invalid_audio_data", err)
		return
	}
	if req.SampleRate == 0 {
		req.SampleRate = defaultSampleRate
	}
	if req.Channels == 0 {
		req.Channels = defaultChannels
	}

	ack, err := s.svc.ReceiveAudio(c.Request.Context(), domain.SessionID(req.SessionID), emergency.AudioChunk{
		Data:       data,
		SampleRate: req.SampleRate,
		Channels:   req.Channels,
		DurationMS: req.DurationMS,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondOK(c, "Audio received", audioData{
		SessionID:     string(ack.SessionID),
		BytesReceived: ack.BytesReceived,
		VoiceResponse: ack.VoiceResponse,
	})
}

// decodeBase64Payload accepts raw base64 or a data URL.
func decodeBase64Payload(raw string) ([]byte, error) {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "data:") {
		_, after, found := strings.Cut(s, ",")
		if !found {
			return nil, fmt.Errorf("invalid data URL: %w", domain.ErrInvalidInput)
		}
		s = after
	}
	out, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 encoding: %w", err)
	}
	return out, nil
}
