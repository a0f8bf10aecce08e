package domain

import (
	"context"
	"time"
)

// GenerateRequest is a single prompt with an optional image.
type GenerateRequest struct {
	Prompt      string
	Image       []byte
	ImageMIME   string
	Temperature float32
	MaxTokens   int32
}

// Generator defines how the core application talks to a generative model.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// SessionStore defines live session persistence. Implementations return
// copies; Update fails with ErrVersionConflict when the stored Version
// differs from the caller's.
type SessionStore interface {
	Create(session *Session) error
	Get(id SessionID) (*Session, error)
	Update(session *Session) error
	End(id SessionID, req EndRequest) (*Session, error)
	CountActive() int
	SweepExpired(maxAge time.Duration) int
}

// IncidentStore keeps summaries of sessions that already ended.
type IncidentStore interface {
	AppendIncident(ctx context.Context, rec *IncidentRecord) error
	ListIncidents(ctx context.Context, limit int) ([]*IncidentRecord, error)
	GetIncident(ctx context.Context, id SessionID) (*IncidentRecord, error)
}
