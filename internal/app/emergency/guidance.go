package emergency

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/PabloGalante/guardian-agent/internal/domain"
)

const (
	criticalReminder = "This is a critical emergency. Call 911 immediately if you haven't already."
	softReminder     = "Consider calling 911 if professional help is needed."
)

// TypeLabel renders an emergency type for people, e.g. "Cardiac Arrest".
func TypeLabel(t domain.EmergencyType) string {
	// Casers keep state, so one per call.
	return cases.Title(language.English).String(t.Label())
}

// BuildVoiceGuidance is the text read aloud after an analysis.
func BuildVoiceGuidance(s *domain.Session) string {
	var parts []string

	if a := s.Analysis; a != nil {
		if a.CallEmergencyServices {
			if a.Severity >= 4 {
				parts = append(parts, criticalReminder)
			} else {
				parts = append(parts, softReminder)
			}
		}
		if a.RecommendedAction != "" {
			parts = append(parts, a.RecommendedAction)
		}
	}

	if ins := s.CurrentInstruction(); ins != nil {
		parts = append(parts, fmt.Sprintf("Step %d: %s", ins.StepNumber, ins.VoiceText))
	}

	return strings.Join(parts, " ")
}

// StepVoiceText announces the current step, e.g. "Step 2 of 5. ...".
func StepVoiceText(s *domain.Session) string {
	ins := s.CurrentInstruction()
	if ins == nil {
		return ""
	}
	return fmt.Sprintf("Step %d of %d. %s", s.CurrentStep, s.TotalSteps(), ins.VoiceText)
}

// analysisContext joins what the user told us about the scene.
func analysisContext(s *domain.Session, extra string) string {
	var parts []string
	if s.UserNotes != "" {
		parts = append(parts, "User notes: "+s.UserNotes)
	}
	if s.LocationData != "" {
		parts = append(parts, "Location: "+s.LocationData)
	}
	if extra = strings.TrimSpace(extra); extra != "" {
		parts = append(parts, "Additional info: "+extra)
	}
	return strings.Join(parts, ". ")
}

// voiceContext summarizes the session for a spoken question.
func voiceContext(s *domain.Session) string {
	var parts []string
	if a := s.Analysis; a != nil {
		parts = append(parts,
			"Emergency type: "+TypeLabel(a.EmergencyType),
			fmt.Sprintf("Severity: %d/5", a.Severity),
		)
	}
	if ins := s.CurrentInstruction(); ins != nil {
		parts = append(parts, fmt.Sprintf("Current instruction (step %d): %s", s.CurrentStep, ins.InstructionText))
	}
	return strings.Join(parts, ". ")
}
