package domain

import (
	"fmt"
	"strings"
	"time"
)

// Analysis is the structured classification of a frame.
type Analysis struct {
	EmergencyType         EmergencyType `json:"emergency_type"`
	Severity              int           `json:"severity"`
	ConfidenceScore       float64       `json:"confidence_score"`
	Observations          []string      `json:"observations"`
	RecommendedAction     string        `json:"recommended_action"`
	CallEmergencyServices bool          `json:"call_emergency_services"`
	AdditionalContext     string        `json:"additional_context,omitempty"`

	// SeverityEstimated is set when the model gave no usable severity and
	// the rule table filled it in.
	SeverityEstimated bool `json:"severity_estimated"`
}

// Instruction is one ordered first-aid step.
type Instruction struct {
	StepNumber           int    `json:"step_number"`
	InstructionText      string `json:"instruction_text"`
	VoiceText            string `json:"voice_text"`
	DurationSeconds      *int   `json:"duration_seconds,omitempty"`
	RequiresConfirmation bool   `json:"requires_confirmation"`
	Warning              string `json:"warning,omitempty"`
	VisualCue            string `json:"visual_cue,omitempty"`
}

// Session is one tracked emergency-assistance interaction.
type Session struct {
	ID        SessionID
	Status    SessionStatus
	StartedAt Timestamp
	UpdatedAt Timestamp
	EndedAt   *Timestamp

	Analysis     *Analysis
	Instructions []Instruction
	CurrentStep  int

	UserNotes    string
	LocationData string
	DeviceInfo   string

	EmergencyServicesCalled bool
	FramesProcessed         int

	// Version is bumped by the store on every successful update.
	Version int64
}

// EndRequest carries the inputs of a terminal transition.
type EndRequest struct {
	Reason                  string
	Notes                   string
	EmergencyServicesCalled bool
}

// NewSession returns a Pending session.
func NewSession(id SessionID, notes, location, device string, now time.Time) *Session {
	return &Session{
		ID:           id,
		Status:       StatusPending,
		StartedAt:    now,
		UpdatedAt:    now,
		UserNotes:    strings.TrimSpace(notes),
		LocationData: strings.TrimSpace(location),
		DeviceInfo:   strings.TrimSpace(device),
	}
}

func (s *Session) IsTerminal() bool { return s.Status.IsTerminal() }

func (s *Session) TotalSteps() int { return len(s.Instructions) }

func (s *Session) touch(now time.Time) {
	if now.Before(s.StartedAt) {
		now = s.StartedAt
	}
	s.UpdatedAt = now
}

// BeginAnalysis moves the session into Analyzing.
func (s *Session) BeginAnalysis(now time.Time) error {
	if s.IsTerminal() {
		return ErrSessionEnded
	}
	s.Status = StatusAnalyzing
	s.touch(now)
	return nil
}

// AbortAnalysis puts an Analyzing session back to prev. It is a no-op in
// any other status.
func (s *Session) AbortAnalysis(prev SessionStatus, now time.Time) {
	if s.Status != StatusAnalyzing || prev == StatusAnalyzing || prev.IsTerminal() {
		return
	}
	s.Status = prev
	s.touch(now)
}

// ApplyAnalysis replaces the analysis and instruction list and resets the
// step pointer. The session becomes Active.
func (s *Session) ApplyAnalysis(a Analysis, instructions []Instruction, now time.Time) error {
	if s.IsTerminal() {
		return ErrSessionEnded
	}
	a.Observations = CleanObservations(a.Observations)
	s.Analysis = &a
	s.Instructions = renumber(instructions)
	if len(s.Instructions) > 0 {
		s.CurrentStep = 1
	} else {
		s.CurrentStep = 0
	}
	s.Status = StatusActive
	s.FramesProcessed++
	s.touch(now)
	return nil
}

// CheckClaimedStep verifies a client's view of the step pointer.
func (s *Session) CheckClaimedStep(claimed int) error {
	if claimed != s.CurrentStep {
		return &StepMismatchError{Expected: s.CurrentStep, Claimed: claimed}
	}
	return nil
}

// AdvanceStep moves to the next instruction. At the last step it resolves
// the session and returns (false, nil); with no instructions it is a no-op.
func (s *Session) AdvanceStep(now time.Time) (bool, *Instruction, error) {
	if s.IsTerminal() {
		return false, nil, ErrSessionEnded
	}
	if len(s.Instructions) == 0 {
		return false, nil, nil
	}
	if s.CurrentStep >= len(s.Instructions) {
		s.CurrentStep = len(s.Instructions)
		s.finish(StatusResolved, now)
		return false, nil, nil
	}
	s.CurrentStep++
	if s.Status == StatusMonitoring {
		s.Status = StatusActive
	}
	s.touch(now)
	return true, s.CurrentInstruction(), nil
}

// End performs the terminal transition chosen from the request.
func (s *Session) End(req EndRequest, now time.Time) error {
	if s.IsTerminal() {
		return ErrSessionEnded
	}
	status := StatusResolved
	switch {
	case req.EmergencyServicesCalled:
		status = StatusEscalated
	case strings.Contains(strings.ToLower(req.Reason), "cancel"):
		status = StatusCancelled
	}
	if req.EmergencyServicesCalled {
		s.EmergencyServicesCalled = true
	}
	if notes := strings.TrimSpace(req.Notes); notes != "" {
		s.UserNotes = strings.TrimSpace(fmt.Sprintf("%s\n\nResolution: %s", s.UserNotes, notes))
	}
	s.finish(status, now)
	return nil
}

// Monitor parks an Active session while the responder watches the patient.
func (s *Session) Monitor(now time.Time) error {
	if s.IsTerminal() {
		return ErrSessionEnded
	}
	if s.Status != StatusActive {
		return fmt.Errorf("%w: cannot monitor from %s", ErrInvalidTransition, s.Status)
	}
	s.Status = StatusMonitoring
	s.touch(now)
	return nil
}

// Resume returns a Monitoring session to Active.
func (s *Session) Resume(now time.Time) error {
	if s.IsTerminal() {
		return ErrSessionEnded
	}
	if s.Status != StatusMonitoring {
		return fmt.Errorf("%w: cannot resume from %s", ErrInvalidTransition, s.Status)
	}
	s.Status = StatusActive
	s.touch(now)
	return nil
}

func (s *Session) finish(status SessionStatus, now time.Time) {
	s.Status = status
	s.touch(now)
	ended := s.UpdatedAt
	s.EndedAt = &ended
}

// CurrentInstruction is nil unless 1 <= CurrentStep <= len(Instructions).
func (s *Session) CurrentInstruction() *Instruction {
	if s.CurrentStep < 1 || s.CurrentStep > len(s.Instructions) {
		return nil
	}
	ins := s.Instructions[s.CurrentStep-1]
	return &ins
}

func (s *Session) NextInstruction() *Instruction {
	if s.CurrentStep < 1 || s.CurrentStep >= len(s.Instructions) {
		return nil
	}
	ins := s.Instructions[s.CurrentStep]
	return &ins
}

// Clone returns a deep copy so callers never share slices with the store.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.EndedAt != nil {
		t := *s.EndedAt
		c.EndedAt = &t
	}
	if s.Analysis != nil {
		a := *s.Analysis
		a.Observations = append([]string(nil), s.Analysis.Observations...)
		c.Analysis = &a
	}
	if s.Instructions != nil {
		c.Instructions = make([]Instruction, len(s.Instructions))
		for i, ins := range s.Instructions {
			if ins.DurationSeconds != nil {
				d := *ins.DurationSeconds
				ins.DurationSeconds = &d
			}
			c.Instructions[i] = ins
		}
	}
	return &c
}

// CleanObservations trims entries and drops blanks.
func CleanObservations(in []string) []string {
	out := make([]string, 0, len(in))
	for _, o := range in {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func renumber(in []Instruction) []Instruction {
	out := make([]Instruction, len(in))
	for i, ins := range in {
		ins.StepNumber = i + 1
		out[i] = ins
	}
	return out
}
