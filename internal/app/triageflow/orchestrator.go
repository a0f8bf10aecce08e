package triageflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/PabloGalante/guardian-agent/internal/observability"
)

// Orchestrator runs the frame stages in sequence.
type Orchestrator struct {
	stages []Stage
}

// NewDefaultOrchestrator constructs assess -> severity -> instruct.
func NewDefaultOrchestrator(analyzer Analyzer) *Orchestrator {
	return NewOrchestrator(
		NewAssessStage(analyzer),
		NewSeverityStage(),
		NewInstructStage(analyzer),
	)
}

func NewOrchestrator(stages ...Stage) *Orchestrator {
	return &Orchestrator{stages: stages}
}

// Run executes every stage against a fresh Assessment for the frame.
func (o *Orchestrator) Run(ctx context.Context, frame Frame) (*Assessment, error) {
	if len(o.stages) == 0 {
		return nil, errors.New("no stages configured in orchestrator")
	}

	log := observability.LoggerFromContext(ctx).With(zap.String("session_id", string(frame.SessionID)))
	log.Debug("triage started", zap.Int("stages_count", len(o.stages)))

	ctx, span := observability.Tracer().Start(ctx, "triage.frame")
	defer span.End()
	span.SetAttributes(attribute.String("session_id", string(frame.SessionID)))

	a := &Assessment{Frame: frame}
	for _, st := range o.stages {
		start := time.Now()

		stageCtx, stageSpan := observability.Tracer().Start(ctx, "triage."+st.Name())
		err := st.Run(stageCtx, a)
		if err != nil {
			stageSpan.RecordError(err)
			stageSpan.SetStatus(codes.Error, err.Error())
		}
		stageSpan.End()

		if err != nil {
			log.Error("stage failed", zap.String("stage", st.Name()), zap.Error(err))
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("stage %s failed: %w", st.Name(), err)
		}
		log.Debug("stage end", zap.String("stage", st.Name()), zap.Int64("elapsed_ms", time.Since(start).Milliseconds()))
	}

	span.SetAttributes(
		attribute.String("emergency_type", string(a.Analysis.EmergencyType)),
		attribute.Int("severity", a.Analysis.Severity),
		attribute.Int("steps", len(a.Instructions)),
	)
	log.Info("triage end",
		zap.String("emergency_type", string(a.Analysis.EmergencyType)),
		zap.Int("severity", a.Analysis.Severity),
		zap.Int("steps", len(a.Instructions)),
	)
	return a, nil
}
