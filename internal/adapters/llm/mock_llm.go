package llm

import (
	"context"
	"strings"

	"github.com/PabloGalante/guardian-agent/internal/domain"
)

const mockAnalysis = "Here is my assessment:\n```json\n" + `{
  "emergency_type": "cardiac_arrest",
  "severity": 5,
  "confidence_score": 0.82,
  "observations": ["person lying on the ground", "no visible chest movement"],
  "recommended_action": "Call 911 and start chest compressions",
  "call_emergency_services": true,
  "additional_context": "mock response"
}` + "\n```"

const mockInstructions = `[
  {"step_number": 1, "instruction_text": "Call 911 immediately", "voice_text": "Call 911 now, or ask someone nearby to call.", "requires_confirmation": true},
  {"step_number": 2, "instruction_text": "Check for breathing", "voice_text": "Look at the chest for up to ten seconds. Is it rising?", "duration_seconds": 10},
  {"step_number": 3, "instruction_text": "Start chest compressions", "voice_text": "Push hard and fast in the center of the chest, about two inches deep.", "warning": "Keep the person on a firm, flat surface", "visual_cue": "Hands stacked on the lower half of the breastbone", "requires_confirmation": true},
  {"step_number": 4, "instruction_text": "Keep going until help arrives", "voice_text": "Keep pushing, one hundred to one hundred twenty times a minute, until help takes over."}
]`

const mockVoice = "You're doing great. Keep pushing hard and fast in the center of the chest. Help is on the way."

// MockLLM is a deterministic domain.Generator for local runs and tests.
type MockLLM struct{}

var _ domain.Generator = (*MockLLM)(nil)

func NewMockLLM() *MockLLM {
	return &MockLLM{}
}

func (m *MockLLM) Generate(ctx context.Context, req domain.GenerateRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	switch {
	case strings.Contains(req.Prompt, "JSON array of instruction objects"):
		return mockInstructions, nil
	case strings.Contains(req.Prompt, "Analyze this image"):
		return mockAnalysis, nil
	case strings.Contains(req.Prompt, "User says:"):
		return mockVoice, nil
	default:
		return "Hello! Guardian is online.", nil
	}
}
