package classifier

import (
	"math"
	"strconv"
	"strings"

	"github.com/PabloGalante/guardian-agent/internal/domain"
)

const (
	defaultSeverity          = 3
	defaultConfidence        = 0.5
	defaultRecommendedAction = "Assess the situation"
)

// MapAnalysis turns a decoded model object into an Analysis, filling
// defaults for anything missing or malformed. A missing severity is marked
// SeverityEstimated so the rule table can replace the placeholder.
func MapAnalysis(obj map[string]any) domain.Analysis {
	a := domain.Analysis{
		EmergencyType:         domain.EmergencyUnknown,
		Severity:              defaultSeverity,
		ConfidenceScore:       defaultConfidence,
		Observations:          []string{},
		RecommendedAction:     defaultRecommendedAction,
		CallEmergencyServices: true,
		SeverityEstimated:     true,
	}
	if obj == nil {
		return a
	}

	if s, ok := asString(obj["emergency_type"]); ok {
		a.EmergencyType = domain.ParseEmergencyType(s)
	}
	if n, ok := asInt(obj["severity"]); ok {
		a.Severity = domain.ClampSeverity(n)
		a.SeverityEstimated = false
	}
	if f, ok := asFloat(obj["confidence_score"]); ok {
		a.ConfidenceScore = math.Max(0, math.Min(1, f))
	}
	a.Observations = domain.CleanObservations(asStringSlice(obj["observations"]))
	if s, ok := asString(obj["recommended_action"]); ok && strings.TrimSpace(s) != "" {
		a.RecommendedAction = domain.Truncate(strings.TrimSpace(s), domain.MaxRecommendedActionLen)
	}
	if b, ok := asBool(obj["call_emergency_services"]); ok {
		a.CallEmergencyServices = b
	}
	if s, ok := asString(obj["additional_context"]); ok {
		a.AdditionalContext = domain.Truncate(strings.TrimSpace(s), domain.MaxAdditionalContextLen)
	}
	return a
}

// MapInstructions converts a decoded array into instructions. Elements
// that are not objects or carry no text are skipped; step numbers follow
// position.
func MapInstructions(items []any) []domain.Instruction {
	out := make([]domain.Instruction, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		ins, ok := mapInstruction(obj, len(out)+1)
		if !ok {
			continue
		}
		out = append(out, ins)
	}
	return out
}

func mapInstruction(obj map[string]any, position int) (domain.Instruction, bool) {
	text, _ := asString(obj["instruction_text"])
	text = strings.TrimSpace(text)
	voice, _ := asString(obj["voice_text"])
	voice = strings.TrimSpace(voice)

	if text == "" && voice == "" {
		return domain.Instruction{}, false
	}
	if text == "" {
		text = voice
	}
	if voice == "" {
		voice = text
	}

	ins := domain.Instruction{
		StepNumber:      position,
		InstructionText: domain.Truncate(text, domain.MaxInstructionTextLen),
		VoiceText:       domain.Truncate(voice, domain.MaxVoiceTextLen),
	}
	if n, ok := asInt(obj["duration_seconds"]); ok && n >= 0 {
		ins.DurationSeconds = &n
	}
	if b, ok := asBool(obj["requires_confirmation"]); ok {
		ins.RequiresConfirmation = b
	}
	if s, ok := asString(obj["warning"]); ok {
		ins.Warning = domain.Truncate(strings.TrimSpace(s), domain.MaxWarningLen)
	}
	if s, ok := asString(obj["visual_cue"]); ok {
		ins.VisualCue = domain.Truncate(strings.TrimSpace(s), domain.MaxVisualCueLen)
	}
	return ins, true
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, false
		}
		return t, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func asInt(v any) (int, bool) {
	f, ok := asFloat(v)
	if !ok {
		return 0, false
	}
	return int(math.Round(f)), true
}

func asBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return false, false
		}
		return b, true
	default:
		return false, false
	}
}

func asStringSlice(v any) []string {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{t}
	default:
		return nil
	}
}
