package memory

import (
	"context"
	"sync"

	"github.com/PabloGalante/guardian-agent/internal/domain"
)

// IncidentStore is an in-memory domain.IncidentStore. It is not
// persistent and is meant for local runs.
type IncidentStore struct {
	mu      sync.RWMutex
	records []*domain.IncidentRecord
	seen    map[domain.SessionID]struct{}
}

var _ domain.IncidentStore = (*IncidentStore)(nil)

func NewIncidentStore() *IncidentStore {
	return &IncidentStore{
		seen: make(map[domain.SessionID]struct{}),
	}
}

// AppendIncident records rec once per session; repeats are ignored.
func (s *IncidentStore) AppendIncident(ctx context.Context, rec *domain.IncidentRecord) error {
	if rec == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[rec.SessionID]; ok {
		return nil
	}
	cp := *rec
	s.records = append(s.records, &cp)
	s.seen[rec.SessionID] = struct{}{}
	return nil
}

// ListIncidents returns up to limit records, newest first. limit <= 0
// returns all.
func (s *IncidentStore) ListIncidents(ctx context.Context, limit int) ([]*domain.IncidentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.records) {
		limit = len(s.records)
	}

	out := make([]*domain.IncidentRecord, 0, limit)
	for i := len(s.records) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *s.records[i]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *IncidentStore) GetIncident(ctx context.Context, id domain.SessionID) (*domain.IncidentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.records {
		if rec.SessionID == id {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, domain.ErrSessionNotFound
}
