package memory

import (
	"sync"
	"time"

	"github.com/PabloGalante/guardian-agent/internal/domain"
)

// SessionStore keeps live sessions in process memory. It hands out copies
// and rejects stale writes by Version.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]*domain.Session
	now      func() time.Time
}

var _ domain.SessionStore = (*SessionStore)(nil)

func NewSessionStore() *SessionStore {
	return NewSessionStoreWithClock(time.Now)
}

func NewSessionStoreWithClock(now func() time.Time) *SessionStore {
	return &SessionStore{
		sessions: make(map[domain.SessionID]*domain.Session),
		now:      now,
	}
}

func (s *SessionStore) Create(session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.ID]; exists {
		return domain.ErrSessionExists
	}

	stored := session.Clone()
	stored.Version = 1
	s.sessions[session.ID] = stored
	session.Version = stored.Version
	return nil
}

func (s *SessionStore) Get(id domain.SessionID) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return sess.Clone(), nil
}

// Update stores session if its Version matches, then stamps UpdatedAt and
// bumps Version on both the stored record and the caller's copy.
func (s *SessionStore) Update(session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.sessions[session.ID]
	if !exists {
		return domain.ErrSessionNotFound
	}
	if current.Version != session.Version {
		return domain.ErrVersionConflict
	}

	now := s.now()
	if now.After(session.UpdatedAt) {
		session.UpdatedAt = now
	}
	session.Version++
	s.sessions[session.ID] = session.Clone()
	return nil
}

func (s *SessionStore) End(id domain.SessionID, req domain.EndRequest) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}

	next := current.Clone()
	if err := next.End(req, s.now()); err != nil {
		return nil, err
	}
	next.Version++
	s.sessions[id] = next
	return next.Clone(), nil
}

func (s *SessionStore) CountActive() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, sess := range s.sessions {
		if !sess.IsTerminal() {
			n++
		}
	}
	return n
}

// SweepExpired drops terminal sessions that ended (or were last touched)
// more than maxAge ago. Live sessions are never removed.
func (s *SessionStore) SweepExpired(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxAge)
	removed := 0
	for id, sess := range s.sessions {
		if !sess.IsTerminal() {
			continue
		}
		last := sess.UpdatedAt
		if sess.EndedAt != nil {
			last = *sess.EndedAt
		}
		if last.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}
