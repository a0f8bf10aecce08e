package classifier

import (
	"github.com/PabloGalante/guardian-agent/internal/domain"
)

const (
	fallbackObservation = "Analysis failed - please describe the situation"
	fallbackAction      = "Call emergency services immediately and describe the emergency"

	// VoiceFallback is spoken when the model cannot answer.
	VoiceFallback = "I'm having trouble understanding. Please describe what you see or what help you need."
)

// FallbackAnalysis is the safe default when the model is unavailable or
// unintelligible: treat it as serious and get professionals involved.
func FallbackAnalysis(reason string) domain.Analysis {
	return domain.Analysis{
		EmergencyType:         domain.EmergencyUnknown,
		Severity:              4,
		ConfidenceScore:       0,
		Observations:          []string{fallbackObservation},
		RecommendedAction:     fallbackAction,
		CallEmergencyServices: true,
		AdditionalContext:     domain.Truncate("Analysis error: "+reason, domain.MaxAdditionalContextLen),
	}
}

func seconds(n int) *int { return &n }

// DefaultInstructions returns curated steps for the given type. The
// returned slice is a fresh copy.
func DefaultInstructions(t domain.EmergencyType) []domain.Instruction {
	var steps []domain.Instruction
	switch t {
	case domain.EmergencyCardiacArrest:
		steps = []domain.Instruction{
			{
				InstructionText:      "Call 911 immediately",
				VoiceText:            "First, call 911 or have someone else call. Time is critical.",
				RequiresConfirmation: true,
			},
			{
				InstructionText: "Check for responsiveness",
				VoiceText:       "Tap the person's shoulders and shout 'Are you okay?'",
				DurationSeconds: seconds(5),
			},
			{
				InstructionText:      "Begin chest compressions",
				VoiceText:            "Place the heel of your hand on the center of the chest. Push hard and fast, about 2 inches deep, 100 to 120 times per minute.",
				Warning:              "The person should be on a firm, flat surface",
				RequiresConfirmation: true,
			},
		}
	case domain.EmergencyChoking:
		steps = []domain.Instruction{
			{
				InstructionText: "Ask if they can speak",
				VoiceText:       "Ask the person 'Are you choking?' If they cannot speak, cough, or breathe, they need help.",
				DurationSeconds: seconds(5),
			},
			{
				InstructionText:      "Perform abdominal thrusts",
				VoiceText:            "Stand behind them, make a fist above their navel, and thrust inward and upward.",
				Warning:              "Be careful not to squeeze the ribs",
				RequiresConfirmation: true,
			},
		}
	default:
		steps = []domain.Instruction{
			{
				InstructionText:      "Call 911 immediately",
				VoiceText:            "Call 911 immediately and describe the emergency.",
				RequiresConfirmation: true,
			},
			{
				InstructionText:      "Keep the person calm and still",
				VoiceText:            "Keep the person calm, still, and comfortable while waiting for help.",
				RequiresConfirmation: true,
			},
		}
	}
	for i := range steps {
		steps[i].StepNumber = i + 1
	}
	return steps
}
