package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/PabloGalante/guardian-agent/internal/domain"
)

const defaultCollection = "incidents"

// Store archives ended sessions in Firestore, one document per session.
type Store struct {
	client     *firestore.Client
	collection string
}

var _ domain.IncidentStore = (*Store)(nil)

// NewStore creates a Firestore incident store for projectID.
func NewStore(ctx context.Context, projectID, collection string, opts ...option.ClientOption) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}
	if collection == "" {
		collection = defaultCollection
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client, collection: collection}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

func (s *Store) incidentsCol() *firestore.CollectionRef {
	return s.client.Collection(s.collection)
}

func (s *Store) incidentDoc(id domain.SessionID) *firestore.DocumentRef {
	return s.incidentsCol().Doc(string(id))
}

// ─────────────────────────────────────────
// Firestore Types
// ─────────────────────────────────────────

type incidentDoc struct {
	Status                  string    `firestore:"status"`
	EmergencyType           string    `firestore:"emergency_type"`
	Severity                int       `firestore:"severity"`
	StepsCompleted          int       `firestore:"steps_completed"`
	TotalSteps              int       `firestore:"total_steps"`
	EmergencyServicesCalled bool      `firestore:"emergency_services_called"`
	StartedAt               time.Time `firestore:"started_at"`
	EndedAt                 time.Time `firestore:"ended_at"`
	Notes                   string    `firestore:"notes"`
}

func toDoc(rec *domain.IncidentRecord) incidentDoc {
	return incidentDoc{
		Status:                  string(rec.Status),
		EmergencyType:           string(rec.EmergencyType),
		Severity:                rec.Severity,
		StepsCompleted:          rec.StepsCompleted,
		TotalSteps:              rec.TotalSteps,
		EmergencyServicesCalled: rec.EmergencyServicesCalled,
		StartedAt:               rec.StartedAt,
		EndedAt:                 rec.EndedAt,
		Notes:                   rec.Notes,
	}
}

func fromDoc(id string, doc incidentDoc) *domain.IncidentRecord {
	return &domain.IncidentRecord{
		SessionID:               domain.SessionID(id),
		Status:                  domain.SessionStatus(doc.Status),
		EmergencyType:           domain.ParseEmergencyType(doc.EmergencyType),
		Severity:                doc.Severity,
		StepsCompleted:          doc.StepsCompleted,
		TotalSteps:              doc.TotalSteps,
		EmergencyServicesCalled: doc.EmergencyServicesCalled,
		StartedAt:               doc.StartedAt,
		EndedAt:                 doc.EndedAt,
		Notes:                   doc.Notes,
	}
}

// ─────────────────────────────────────────
// IncidentStore implementation
// ─────────────────────────────────────────

// AppendIncident creates the document for the session. A second append
// for the same session is a no-op.
func (s *Store) AppendIncident(ctx context.Context, rec *domain.IncidentRecord) error {
	if rec == nil {
		return nil
	}

	_, err := s.incidentDoc(rec.SessionID).Create(ctx, toDoc(rec))
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil
		}
		return fmt.Errorf("firestore AppendIncident: %w", err)
	}
	return nil
}

func (s *Store) ListIncidents(ctx context.Context, limit int) ([]*domain.IncidentRecord, error) {
	q := s.incidentsCol().OrderBy("ended_at", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []*domain.IncidentRecord
	for {
		snap, err := iter.Next()
		if err != nil {
			if errors.Is(err, iterator.Done) {
				break
			}
			return nil, fmt.Errorf("firestore ListIncidents: %w", err)
		}

		var doc incidentDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode incidentDoc: %w", err)
		}
		out = append(out, fromDoc(snap.Ref.ID, doc))
	}
	return out, nil
}

// GetIncident loads a single archived incident.
func (s *Store) GetIncident(ctx context.Context, id domain.SessionID) (*domain.IncidentRecord, error) {
	snap, err := s.incidentDoc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("firestore GetIncident: %w", err)
	}

	var doc incidentDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore GetIncident decode: %w", err)
	}
	return fromDoc(snap.Ref.ID, doc), nil
}
