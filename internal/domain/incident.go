package domain

import "time"

// IncidentRecord is the after-the-fact summary of an ended session.
type IncidentRecord struct {
	SessionID     SessionID     `json:"session_id"`
	Status        SessionStatus `json:"status"`
	EmergencyType EmergencyType `json:"emergency_type"`
	Severity      int           `json:"severity"`

	StepsCompleted int `json:"steps_completed"`
	TotalSteps     int `json:"total_steps"`

	EmergencyServicesCalled bool `json:"emergency_services_called"`

	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`

	Notes string `json:"notes,omitempty"`
}

// NewIncidentRecord summarizes a terminal session. It returns nil for a
// session that has not ended.
func NewIncidentRecord(s *Session) *IncidentRecord {
	if s == nil || !s.IsTerminal() || s.EndedAt == nil {
		return nil
	}
	rec := &IncidentRecord{
		SessionID:               s.ID,
		Status:                  s.Status,
		EmergencyType:           EmergencyUnknown,
		StepsCompleted:          s.CurrentStep,
		TotalSteps:              len(s.Instructions),
		EmergencyServicesCalled: s.EmergencyServicesCalled,
		StartedAt:               s.StartedAt,
		EndedAt:                 *s.EndedAt,
		Notes:                   s.UserNotes,
	}
	if s.Analysis != nil {
		rec.EmergencyType = s.Analysis.EmergencyType
		rec.Severity = s.Analysis.Severity
	}
	if s.Status != StatusResolved && rec.StepsCompleted > 0 {
		// the current step was shown but not confirmed
		rec.StepsCompleted--
	}
	return rec
}
