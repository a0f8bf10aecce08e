package triageflow

import (
	"context"

	"github.com/PabloGalante/guardian-agent/internal/domain"
)

// Analyzer is the part of the classifier the pipeline needs.
type Analyzer interface {
	AnalyzeFrame(ctx context.Context, image []byte, mime, userContext string) domain.Analysis
	GenerateInstructions(ctx context.Context, t domain.EmergencyType, severity int, observations []string) []domain.Instruction
}

// Frame is the pipeline input.
type Frame struct {
	SessionID domain.SessionID
	Image     []byte
	MIMEType  string
	Context   string
}

// Assessment accumulates stage results.
type Assessment struct {
	Frame        Frame
	Analysis     domain.Analysis
	Instructions []domain.Instruction
}

// Stage is one step of the frame pipeline. Stages run in order and share
// the Assessment.
type Stage interface {
	Name() string
	Run(ctx context.Context, a *Assessment) error
}
