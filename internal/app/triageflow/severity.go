package triageflow

import (
	"context"

	"github.com/PabloGalante/guardian-agent/internal/domain"
)

// SeverityStage scores the analysis from the rule table when the model
// did not give a usable severity.
type SeverityStage struct{}

func NewSeverityStage() *SeverityStage {
	return &SeverityStage{}
}

func (s *SeverityStage) Name() string {
	return "severity"
}

func (s *SeverityStage) Run(ctx context.Context, a *Assessment) error {
	if !a.Analysis.SeverityEstimated {
		return nil
	}
	a.Analysis.Severity = domain.ScoreSeverity(a.Analysis.EmergencyType, a.Analysis.Observations)
	return nil
}
