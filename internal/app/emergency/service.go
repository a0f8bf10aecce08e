package emergency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/PabloGalante/guardian-agent/internal/app/classifier"
	"github.com/PabloGalante/guardian-agent/internal/app/triageflow"
	"github.com/PabloGalante/guardian-agent/internal/domain"
	"github.com/PabloGalante/guardian-agent/internal/observability"
)

// maxUpdateAttempts bounds the read-modify-write retry on version conflicts.
const maxUpdateAttempts = 3

const audioAckVoice = "I received your audio. Please describe what you see."

type Service struct {
	sessions   domain.SessionStore
	incidents  domain.IncidentStore
	classifier *classifier.Classifier
	triage     *triageflow.Orchestrator

	now   func() time.Time
	newID func() string
}

// NewService wires the session operations. incidents may be nil to skip
// archiving.
func NewService(
	sessions domain.SessionStore,
	incidents domain.IncidentStore,
	cls *classifier.Classifier,
) *Service {
	return &Service{
		sessions:   sessions,
		incidents:  incidents,
		classifier: cls,
		triage:     triageflow.NewDefaultOrchestrator(cls),
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// WithClock overrides the time source. Used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// mutate applies fn to a fresh copy of the session and stores it,
// retrying from a re-read if another request won the race.
func (s *Service) mutate(id domain.SessionID, fn func(*domain.Session) error) (*domain.Session, error) {
	for attempt := 1; ; attempt++ {
		sess, err := s.sessions.Get(id)
		if err != nil {
			return nil, err
		}
		if err := fn(sess); err != nil {
			return nil, err
		}
		err = s.sessions.Update(sess)
		if err == nil {
			return sess, nil
		}
		if !errors.Is(err, domain.ErrVersionConflict) || attempt >= maxUpdateAttempts {
			return nil, err
		}
	}
}

// ─────────────────────────────────────────────
// Session lifecycle
// ─────────────────────────────────────────────

type StartSessionInput struct {
	UserNotes    string
	LocationData string
	DeviceInfo   string
}

func (s *Service) StartSession(ctx context.Context, in StartSessionInput) (*domain.Session, error) {
	sess := domain.NewSession(domain.SessionID(s.newID()), in.UserNotes, in.LocationData, in.DeviceInfo, s.now())

	log := observability.LoggerFromContext(ctx).With(zap.String("session_id", string(sess.ID)))

	if err := s.sessions.Create(sess); err != nil {
		log.Error("failed to create session", zap.Error(err))
		return nil, err
	}

	log.Info("session started", zap.Bool("has_location", sess.LocationData != ""))
	return sess, nil
}

func (s *Service) GetSession(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn("session lookup failed",
			zap.String("session_id", string(id)), zap.Error(err))
		return nil, err
	}
	return sess, nil
}

type EndSessionInput struct {
	SessionID               domain.SessionID
	Reason                  string
	Notes                   string
	EmergencyServicesCalled bool
}

func (s *Service) EndSession(ctx context.Context, in EndSessionInput) (*domain.Session, error) {
	log := observability.LoggerFromContext(ctx).With(zap.String("session_id", string(in.SessionID)))

	sess, err := s.sessions.End(in.SessionID, domain.EndRequest{
		Reason:                  in.Reason,
		Notes:                   in.Notes,
		EmergencyServicesCalled: in.EmergencyServicesCalled,
	})
	if err != nil {
		log.Warn("end session rejected", zap.Error(err))
		return nil, err
	}

	log.Info("session ended",
		zap.String("status", string(sess.Status)),
		zap.String("reason", in.Reason),
		zap.Bool("emergency_services_called", in.EmergencyServicesCalled),
	)
	s.archive(ctx, sess)
	return sess, nil
}

// SetMonitoring toggles Active <-> Monitoring.
func (s *Service) SetMonitoring(ctx context.Context, id domain.SessionID, on bool) (*domain.Session, error) {
	sess, err := s.mutate(id, func(sess *domain.Session) error {
		if on {
			return sess.Monitor(s.now())
		}
		return sess.Resume(s.now())
	})
	if err != nil {
		return nil, err
	}
	observability.LoggerFromContext(ctx).Info("monitoring toggled",
		zap.String("session_id", string(id)), zap.String("status", string(sess.Status)))
	return sess, nil
}

func (s *Service) ActiveCount() int {
	return s.sessions.CountActive()
}

// archive records an ended session. Failures are logged, never returned:
// the live session already holds the outcome.
func (s *Service) archive(ctx context.Context, sess *domain.Session) {
	if s.incidents == nil {
		return
	}
	rec := domain.NewIncidentRecord(sess)
	if rec == nil {
		return
	}
	if err := s.incidents.AppendIncident(ctx, rec); err != nil {
		observability.LoggerFromContext(ctx).Error("failed to archive incident",
			zap.String("session_id", string(sess.ID)), zap.Error(err))
	}
}

// ─────────────────────────────────────────────
// Frames and instructions
// ─────────────────────────────────────────────

type SubmitFrameInput struct {
	SessionID domain.SessionID
	Image     []byte
	MIMEType  string
	Sequence  int
	Context   string
}

type FrameResult struct {
	Session       *domain.Session
	Analysis      domain.Analysis
	Current       *domain.Instruction
	VoiceGuidance string
}

// SubmitFrame classifies a frame and replaces the session's instructions.
// The model calls run without any store lock held.
func (s *Service) SubmitFrame(ctx context.Context, in SubmitFrameInput) (*FrameResult, error) {
	log := observability.LoggerFromContext(ctx).With(
		zap.String("session_id", string(in.SessionID)),
		zap.Int("sequence", in.Sequence),
	)

	var (
		userContext string
		prevStatus  domain.SessionStatus
	)
	if _, err := s.mutate(in.SessionID, func(sess *domain.Session) error {
		userContext = analysisContext(sess, in.Context)
		prevStatus = sess.Status
		return sess.BeginAnalysis(s.now())
	}); err != nil {
		log.Warn("frame rejected", zap.Error(err))
		return nil, err
	}

	assessment, err := s.triage.Run(ctx, triageflow.Frame{
		SessionID: in.SessionID,
		Image:     in.Image,
		MIMEType:  in.MIMEType,
		Context:   userContext,
	})
	if err != nil {
		log.Error("triage failed, applying fallback guidance", zap.Error(err))
		assessment = &triageflow.Assessment{
			Analysis:     classifier.FallbackAnalysis(err.Error()),
			Instructions: classifier.DefaultInstructions(domain.EmergencyUnknown),
		}
	}

	sess, err := s.mutate(in.SessionID, func(sess *domain.Session) error {
		return sess.ApplyAnalysis(assessment.Analysis, assessment.Instructions, s.now())
	})
	if err != nil {
		log.Warn("could not apply analysis", zap.Error(err))
		s.abortAnalysis(ctx, in.SessionID, prevStatus)
		return nil, err
	}

	log.Info("frame processed",
		zap.String("emergency_type", string(sess.Analysis.EmergencyType)),
		zap.Int("severity", sess.Analysis.Severity),
		zap.Int("steps", sess.TotalSteps()),
	)

	return &FrameResult{
		Session:       sess,
		Analysis:      *sess.Analysis,
		Current:       sess.CurrentInstruction(),
		VoiceGuidance: BuildVoiceGuidance(sess),
	}, nil
}

// abortAnalysis releases a session left in Analyzing after a failed
// apply. Failures are logged only.
func (s *Service) abortAnalysis(ctx context.Context, id domain.SessionID, prev domain.SessionStatus) {
	if _, err := s.mutate(id, func(sess *domain.Session) error {
		sess.AbortAnalysis(prev, s.now())
		return nil
	}); err != nil {
		observability.LoggerFromContext(ctx).Error("failed to release analyzing session",
			zap.String("session_id", string(id)), zap.Error(err))
	}
}

type AdvanceStepInput struct {
	SessionID   domain.SessionID
	ClaimedStep int
	Feedback    string
}

type AdvanceResult struct {
	Session     *domain.Session
	Advanced    bool
	Completed   bool
	Instruction *domain.Instruction
	Next        *domain.Instruction
	VoiceText   string
}

// AdvanceStep moves to the next instruction after checking the client's
// view of the current step.
func (s *Service) AdvanceStep(ctx context.Context, in AdvanceStepInput) (*AdvanceResult, error) {
	log := observability.LoggerFromContext(ctx).With(
		zap.String("session_id", string(in.SessionID)),
		zap.Int("claimed_step", in.ClaimedStep),
	)

	var advanced bool
	sess, err := s.mutate(in.SessionID, func(sess *domain.Session) error {
		if sess.IsTerminal() {
			return domain.ErrSessionEnded
		}
		if err := sess.CheckClaimedStep(in.ClaimedStep); err != nil {
			return err
		}
		var err error
		advanced, _, err = sess.AdvanceStep(s.now())
		return err
	})
	if err != nil {
		log.Warn("advance rejected", zap.Error(err))
		return nil, err
	}

	if in.Feedback != "" {
		log.Info("step feedback", zap.String("feedback", in.Feedback))
	}

	res := &AdvanceResult{
		Session:   sess,
		Advanced:  advanced,
		Completed: sess.Status == domain.StatusResolved,
	}
	if res.Completed {
		log.Info("all instructions completed", zap.Int("steps", sess.TotalSteps()))
		s.archive(ctx, sess)
		return res, nil
	}

	res.Instruction = sess.CurrentInstruction()
	res.Next = sess.NextInstruction()
	res.VoiceText = StepVoiceText(sess)
	log.Info("advanced step", zap.Int("step", sess.CurrentStep), zap.Int("total", sess.TotalSteps()))
	return res, nil
}

type InstructionView struct {
	SessionID   domain.SessionID
	CurrentStep int
	TotalSteps  int
	Instruction domain.Instruction
	Next        *domain.Instruction
	VoiceText   string
}

// CurrentInstruction is a pure read; nil when no step is current.
func (s *Service) CurrentInstruction(ctx context.Context, id domain.SessionID) (*InstructionView, error) {
	sess, err := s.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	ins := sess.CurrentInstruction()
	if ins == nil {
		return nil, nil
	}
	return &InstructionView{
		SessionID:   sess.ID,
		CurrentStep: sess.CurrentStep,
		TotalSteps:  sess.TotalSteps(),
		Instruction: *ins,
		Next:        sess.NextInstruction(),
		VoiceText:   StepVoiceText(sess),
	}, nil
}

// ─────────────────────────────────────────────
// Voice and audio
// ─────────────────────────────────────────────

// VoiceQuery answers a transcribed question in the context of the session.
func (s *Service) VoiceQuery(ctx context.Context, id domain.SessionID, text string) (string, error) {
	sess, err := s.GetSession(ctx, id)
	if err != nil {
		return "", err
	}
	reply := s.classifier.ProcessVoiceQuery(ctx, text, voiceContext(sess))
	observability.LoggerFromContext(ctx).Info("voice query answered", zap.String("session_id", string(id)))
	return reply, nil
}

type AudioChunk struct {
	Data       []byte
	SampleRate int
	Channels   int
	DurationMS int
}

type AudioAck struct {
	SessionID     domain.SessionID
	BytesReceived int
	VoiceResponse string
}

// ReceiveAudio acknowledges an audio chunk. Speech recognition is not
// wired; clients should send transcribed text to VoiceQuery.
func (s *Service) ReceiveAudio(ctx context.Context, id domain.SessionID, chunk AudioChunk) (*AudioAck, error) {
	sess, err := s.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.IsTerminal() {
		return nil, fmt.Errorf("audio for session %s: %w", id, domain.ErrSessionEnded)
	}
	observability.LoggerFromContext(ctx).Debug("audio chunk received",
		zap.String("session_id", string(id)),
		zap.Int("bytes", len(chunk.Data)),
		zap.Int("duration_ms", chunk.DurationMS),
	)
	return &AudioAck{
		SessionID:     id,
		BytesReceived: len(chunk.Data),
		VoiceResponse: audioAckVoice,
	}, nil
}

// ─────────────────────────────────────────────
// Health
// ─────────────────────────────────────────────

func (s *Service) ModelConnected() bool {
	return s.classifier.Connected()
}

func (s *Service) CheckModel(ctx context.Context) bool {
	return s.classifier.CheckConnectivity(ctx)
}
