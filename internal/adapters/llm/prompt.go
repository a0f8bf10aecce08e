package llm

import (
	"fmt"
	"strings"
)

const analysisSystemPrompt = `
You are "Guardian", an AI emergency medical dispatcher assistant.
You look at images of emergency scenes and help untrained bystanders give first aid until professionals arrive.

Your role:
- Quickly classify the emergency and how severe it is.
- Give calm, clear, step-by-step first aid guidance in plain language.
- Always recommend calling emergency services (911) when the situation is serious.
- Prioritize actions that keep the person alive.

When looking at a scene, identify:
- The type of emergency (cardiac arrest, choking, bleeding, ...)
- Severity on a 1-5 scale, where 5 is life-threatening
- Immediate dangers to the victim or bystanders
- The single most important action right now

Be accurate, be clear, be calm.
`

const analysisResponseFormat = `
Analyze this image and respond with a JSON object containing:
{
    "emergency_type": "one of: cardiac_arrest, heart_attack, choking, drowning, asthma_attack, severe_bleeding, fracture, burn, head_injury, stroke, seizure, diabetic_emergency, allergic_reaction, poisoning, unconscious, shock, unknown",
    "severity": 1-5 integer,
    "confidence_score": 0.0-1.0 float,
    "observations": ["list", "of", "observations"],
    "recommended_action": "immediate action string",
    "call_emergency_services": true/false,
    "additional_context": "any additional notes"
}`

const instructionsTemplate = `Generate step-by-step first aid instructions for the following emergency:

Emergency Type: %s
Severity Level: %d out of 5
Observations: %s

Provide 5-8 clear, actionable steps. For each step include:
- step_number: Sequential number
- instruction_text: Short instruction for display
- voice_text: Version written to be read aloud (slightly more detailed)
- duration_seconds: Estimated time (null if not applicable)
- requires_confirmation: Whether the user should confirm completion
- warning: Any safety warning (null if none)
- visual_cue: What the user should look for (null if none)

Respond with a JSON array of instruction objects.`

const voiceSystemPrompt = `
You are "Guardian", a calm emergency voice assistant.
You are speaking directly to someone who may be panicked and scared.

Voice:
- Calm and steady, clear and simple words, short sentences.
- Reassuring, but urgent when needed. Never judgmental.

When you answer:
1. Acknowledge the concern briefly.
2. Give clear, actionable guidance.
3. Offer reassurance, and ask a clarifying question if needed.

Keep responses concise: the user needs quick, actionable information.
`

// ConnectivityProbe is the cheapest prompt that still proves a round trip.
const ConnectivityProbe = "Hello"

// BuildAnalysisPrompt returns the frame classification prompt.
func BuildAnalysisPrompt(userContext string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(analysisSystemPrompt))
	if c := strings.TrimSpace(userContext); c != "" {
		b.WriteString("\n\nAdditional context from user: ")
		b.WriteString(c)
	}
	b.WriteString("\n")
	b.WriteString(analysisResponseFormat)
	return b.String()
}

// BuildInstructionsPrompt asks for a JSON array of first aid steps.
func BuildInstructionsPrompt(emergencyType string, severity int, observations []string) string {
	obs := "None provided"
	if len(observations) > 0 {
		obs = strings.Join(observations, ", ")
	}
	return fmt.Sprintf(instructionsTemplate, emergencyType, severity, obs)
}

// BuildVoicePrompt wraps a spoken question with the current situation.
func BuildVoicePrompt(question, situation string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(voiceSystemPrompt))
	if s := strings.TrimSpace(situation); s != "" {
		b.WriteString("\n\nCurrent situation: ")
		b.WriteString(s)
	}
	b.WriteString("\n\nUser says: ")
	b.WriteString(strings.TrimSpace(question))
	b.WriteString("\n\nRespond concisely:")
	return b.String()
}
