package domain

import (
	"strings"
	"time"
)

type SessionID string

type Timestamp = time.Time

// SessionStatus is the lifecycle state of an emergency session.
type SessionStatus string

const (
	StatusPending    SessionStatus = "pending"
	StatusAnalyzing  SessionStatus = "analyzing"
	StatusActive     SessionStatus = "active"
	StatusMonitoring SessionStatus = "monitoring"
	StatusResolved   SessionStatus = "resolved"
	StatusEscalated  SessionStatus = "escalated"
	StatusCancelled  SessionStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are allowed.
func (s SessionStatus) IsTerminal() bool {
	switch s {
	case StatusResolved, StatusEscalated, StatusCancelled:
		return true
	default:
		return false
	}
}

type EmergencyType string

const (
	EmergencyCardiacArrest    EmergencyType = "cardiac_arrest"
	EmergencyHeartAttack      EmergencyType = "heart_attack"
	EmergencyChoking          EmergencyType = "choking"
	EmergencyDrowning         EmergencyType = "drowning"
	EmergencyAsthmaAttack     EmergencyType = "asthma_attack"
	EmergencySevereBleeding   EmergencyType = "severe_bleeding"
	EmergencyFracture         EmergencyType = "fracture"
	EmergencyBurn             EmergencyType = "burn"
	EmergencyHeadInjury       EmergencyType = "head_injury"
	EmergencyStroke           EmergencyType = "stroke"
	EmergencySeizure          EmergencyType = "seizure"
	EmergencyDiabetic         EmergencyType = "diabetic_emergency"
	EmergencyAllergicReaction EmergencyType = "allergic_reaction"
	EmergencyPoisoning        EmergencyType = "poisoning"
	EmergencyUnconscious      EmergencyType = "unconscious"
	EmergencyShock            EmergencyType = "shock"
	EmergencyUnknown          EmergencyType = "unknown"
)

var knownEmergencyTypes = map[EmergencyType]struct{}{
	EmergencyCardiacArrest:    {},
	EmergencyHeartAttack:      {},
	EmergencyChoking:          {},
	EmergencyDrowning:         {},
	EmergencyAsthmaAttack:     {},
	EmergencySevereBleeding:   {},
	EmergencyFracture:         {},
	EmergencyBurn:             {},
	EmergencyHeadInjury:       {},
	EmergencyStroke:           {},
	EmergencySeizure:          {},
	EmergencyDiabetic:         {},
	EmergencyAllergicReaction: {},
	EmergencyPoisoning:        {},
	EmergencyUnconscious:      {},
	EmergencyShock:            {},
	EmergencyUnknown:          {},
}

// ParseEmergencyType normalizes free text from the model ("Cardiac Arrest",
// "cardiac-arrest") into the closed set. Anything else is EmergencyUnknown.
func ParseEmergencyType(s string) EmergencyType {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	t := EmergencyType(norm)
	if _, ok := knownEmergencyTypes[t]; ok {
		return t
	}
	return EmergencyUnknown
}

// Label renders the type for speech, e.g. "cardiac arrest".
func (t EmergencyType) Label() string {
	return strings.ReplaceAll(string(t), "_", " ")
}

const (
	MinSeverity = 1
	MaxSeverity = 5
)

// ClampSeverity forces a value into 1..5.
func ClampSeverity(v int) int {
	if v < MinSeverity {
		return MinSeverity
	}
	if v > MaxSeverity {
		return MaxSeverity
	}
	return v
}

// Field bounds shared by the mapping and HTTP layers.
const (
	MaxVoiceTextLen         = 500
	MaxInstructionTextLen   = 500
	MaxWarningLen           = 200
	MaxVisualCueLen         = 200
	MaxRecommendedActionLen = 500
	MaxAdditionalContextLen = 1000
	MaxNotesLen             = 2000
)

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
