package emergency

import (
	"strings"
	"testing"
	"time"

	"github.com/PabloGalante/guardian-agent/internal/domain"
)

func analyzedSession(t *testing.T, a domain.Analysis) *domain.Session {
	t.Helper()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	sess := domain.NewSession("s-1", "collapsed at the gym", "Main St 12", "", now)
	if err := sess.BeginAnalysis(now); err != nil {
		t.Fatalf("BeginAnalysis: %v", err)
	}
	steps := []domain.Instruction{
		{InstructionText: "Check for breathing", VoiceText: "Check if they are breathing"},
		{InstructionText: "Start chest compressions", VoiceText: "Push hard and fast"},
	}
	if err := sess.ApplyAnalysis(a, steps, now); err != nil {
		t.Fatalf("ApplyAnalysis: %v", err)
	}
	return sess
}

func TestTypeLabel(t *testing.T) {
	if got := TypeLabel(domain.EmergencyCardiacArrest); got != "Cardiac Arrest" {
		t.Fatalf("TypeLabel = %q", got)
	}
	if got := TypeLabel(domain.EmergencyUnknown); got != "Unknown" {
		t.Fatalf("TypeLabel = %q", got)
	}
}

func TestBuildVoiceGuidanceCritical(t *testing.T) {
	sess := analyzedSession(t, domain.Analysis{
		EmergencyType:         domain.EmergencyCardiacArrest,
		Severity:              5,
		CallEmergencyServices: true,
		RecommendedAction:     "Begin CPR now.",
	})

	got := BuildVoiceGuidance(sess)
	want := criticalReminder + " Begin CPR now. Step 1: Check if they are breathing"
	if got != want {
		t.Fatalf("BuildVoiceGuidance =\n%q\nwant\n%q", got, want)
	}
}

func TestBuildVoiceGuidanceSoftReminder(t *testing.T) {
	sess := analyzedSession(t, domain.Analysis{
		EmergencyType:         domain.EmergencyBurn,
		Severity:              2,
		CallEmergencyServices: true,
	})

	got := BuildVoiceGuidance(sess)
	if !strings.HasPrefix(got, softReminder) {
		t.Fatalf("expected soft reminder, got %q", got)
	}
	if strings.Contains(got, criticalReminder) {
		t.Fatalf("unexpected critical reminder in %q", got)
	}
}

func TestStepVoiceText(t *testing.T) {
	sess := analyzedSession(t, domain.Analysis{EmergencyType: domain.EmergencyCardiacArrest, Severity: 5})

	if got := StepVoiceText(sess); got != "Step 1 of 2. Check if they are breathing" {
		t.Fatalf("StepVoiceText = %q", got)
	}

	empty := domain.NewSession("s-2", "", "", "", time.Now())
	if got := StepVoiceText(empty); got != "" {
		t.Fatalf("StepVoiceText without steps = %q", got)
	}
}

func TestAnalysisAndVoiceContext(t *testing.T) {
	sess := analyzedSession(t, domain.Analysis{EmergencyType: domain.EmergencyCardiacArrest, Severity: 5})

	got := analysisContext(sess, "  not breathing  ")
	want := "User notes: collapsed at the gym. Location: Main St 12. Additional info: not breathing"
	if got != want {
		t.Fatalf("analysisContext = %q", got)
	}

	vc := voiceContext(sess)
	for _, part := range []string{"Emergency type: Cardiac Arrest", "Severity: 5/5", "step 1): Check for breathing"} {
		if !strings.Contains(vc, part) {
			t.Errorf("voiceContext %q missing %q", vc, part)
		}
	}
}
