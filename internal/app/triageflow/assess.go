package triageflow

import "context"

// AssessStage classifies the frame.
type AssessStage struct {
	analyzer Analyzer
}

func NewAssessStage(analyzer Analyzer) *AssessStage {
	return &AssessStage{analyzer: analyzer}
}

func (s *AssessStage) Name() string {
	return "assess"
}

func (s *AssessStage) Run(ctx context.Context, a *Assessment) error {
	a.Analysis = s.analyzer.AnalyzeFrame(ctx, a.Frame.Image, a.Frame.MIMEType, a.Frame.Context)
	return nil
}
