package triageflow

import "context"

// InstructStage produces the step list for the classified emergency.
type InstructStage struct {
	analyzer Analyzer
}

func NewInstructStage(analyzer Analyzer) *InstructStage {
	return &InstructStage{analyzer: analyzer}
}

func (s *InstructStage) Name() string {
	return "instruct"
}

func (s *InstructStage) Run(ctx context.Context, a *Assessment) error {
	a.Instructions = s.analyzer.GenerateInstructions(ctx,
		a.Analysis.EmergencyType,
		a.Analysis.Severity,
		a.Analysis.Observations,
	)
	return nil
}
