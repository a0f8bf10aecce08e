package domain

import "strings"

var baseSeverity = map[EmergencyType]int{
	EmergencyCardiacArrest:    5,
	EmergencyStroke:           5,
	EmergencyDrowning:         5,
	EmergencySevereBleeding:   4,
	EmergencyChoking:          4,
	EmergencyHeadInjury:       4,
	EmergencyHeartAttack:      4,
	EmergencyPoisoning:        4,
	EmergencyAllergicReaction: 4,
	EmergencyUnconscious:      4,
	EmergencyShock:            4,
	EmergencySeizure:          3,
	EmergencyAsthmaAttack:     3,
	EmergencyDiabetic:         3,
	EmergencyBurn:             3,
	EmergencyFracture:         2,
	EmergencyUnknown:          3,
}

var criticalKeywords = []string{
	"not breathing",
	"no pulse",
	"unconscious",
	"unresponsive",
	"severe",
	"massive",
	"arterial",
	"profuse",
}

// ScoreSeverity rates an emergency 1..5 from its type, bumped once if any
// observation mentions a critical sign.
func ScoreSeverity(t EmergencyType, observations []string) int {
	score, ok := baseSeverity[t]
	if !ok {
		score = 3
	}

	text := strings.ToLower(strings.Join(observations, " "))
	for _, kw := range criticalKeywords {
		if strings.Contains(text, kw) {
			score++
			break
		}
	}
	return ClampSeverity(score)
}
