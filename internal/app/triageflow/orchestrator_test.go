package triageflow_test

import (
	"context"
	"errors"
	"testing"

	"github.com/PabloGalante/guardian-agent/internal/app/triageflow"
	"github.com/PabloGalante/guardian-agent/internal/domain"
)

type stubAnalyzer struct {
	analysis     domain.Analysis
	gotSeverity  int
	instructions []domain.Instruction
}

func (s *stubAnalyzer) AnalyzeFrame(ctx context.Context, image []byte, mime, userContext string) domain.Analysis {
	return s.analysis
}

func (s *stubAnalyzer) GenerateInstructions(ctx context.Context, t domain.EmergencyType, severity int, observations []string) []domain.Instruction {
	s.gotSeverity = severity
	return s.instructions
}

func TestDefaultOrchestratorScoresEstimatedSeverity(t *testing.T) {
	tests := []struct {
		name         string
		kind         domain.EmergencyType
		observations []string
		want         int
	}{
		{name: "cardiac arrest raised from placeholder", kind: domain.EmergencyCardiacArrest, observations: []string{"person collapsed"}, want: 5},
		{name: "fracture lowered from placeholder", kind: domain.EmergencyFracture, observations: []string{"leg bent at odd angle"}, want: 2},
		{name: "critical keyword bumps once", kind: domain.EmergencyBurn, observations: []string{"severe blistering", "unresponsive"}, want: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubAnalyzer{
				analysis: domain.Analysis{
					EmergencyType:     tt.kind,
					Severity:          3,
					Observations:      tt.observations,
					SeverityEstimated: true,
				},
				instructions: []domain.Instruction{{InstructionText: "Stay with them", VoiceText: "Stay with them"}},
			}

			a, err := triageflow.NewDefaultOrchestrator(stub).Run(context.Background(), triageflow.Frame{SessionID: "s1"})
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if a.Analysis.Severity != tt.want {
				t.Fatalf("expected heuristic severity %d, got %d", tt.want, a.Analysis.Severity)
			}
			if stub.gotSeverity != tt.want {
				t.Fatalf("instruct stage saw severity %d, want %d", stub.gotSeverity, tt.want)
			}
			if len(a.Instructions) != 1 {
				t.Fatalf("expected instructions carried through")
			}
		})
	}
}

func TestDefaultOrchestratorKeepsProvidedSeverity(t *testing.T) {
	stub := &stubAnalyzer{
		analysis: domain.Analysis{EmergencyType: domain.EmergencyFracture, Severity: 5, Observations: []string{"profuse bleeding"}},
	}

	a, err := triageflow.NewDefaultOrchestrator(stub).Run(context.Background(), triageflow.Frame{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if a.Analysis.Severity != 5 {
		t.Fatalf("expected model severity kept, got %d", a.Analysis.Severity)
	}
}

type failingStage struct{}

func (failingStage) Name() string { return "broken" }
func (failingStage) Run(ctx context.Context, a *triageflow.Assessment) error {
	return errors.New("nope")
}

func TestOrchestratorStopsOnStageError(t *testing.T) {
	o := triageflow.NewOrchestrator(failingStage{}, triageflow.NewSeverityStage())
	if _, err := o.Run(context.Background(), triageflow.Frame{}); err == nil {
		t.Fatalf("expected error")
	}

	if _, err := triageflow.NewOrchestrator().Run(context.Background(), triageflow.Frame{}); err == nil {
		t.Fatalf("expected error for empty orchestrator")
	}
}
