package incidents

import (
	"context"

	"go.uber.org/zap"

	"github.com/PabloGalante/guardian-agent/internal/domain"
	"github.com/PabloGalante/guardian-agent/internal/observability"
)

const (
	defaultLimit = 20
	maxLimit     = 200
)

// Service holds the read side of the incident archive.
type Service struct {
	store domain.IncidentStore
}

func NewService(store domain.IncidentStore) *Service {
	return &Service{store: store}
}

// Recent returns the last `limit` archived incidents, newest first.
// limit <= 0 uses a default; large values are capped.
func (s *Service) Recent(ctx context.Context, limit int) ([]*domain.IncidentRecord, error) {
	if s.store == nil {
		return []*domain.IncidentRecord{}, nil
	}

	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	recs, err := s.store.ListIncidents(ctx, limit)
	if err != nil {
		observability.LoggerFromContext(ctx).Error("failed to list incidents", zap.Error(err))
		return nil, err
	}
	if recs == nil {
		recs = []*domain.IncidentRecord{}
	}
	return recs, nil
}

func (s *Service) Get(ctx context.Context, id domain.SessionID) (*domain.IncidentRecord, error) {
	if s.store == nil {
		return nil, domain.ErrSessionNotFound
	}
	return s.store.GetIncident(ctx, id)
}
