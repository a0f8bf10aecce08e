package incidents_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/PabloGalante/guardian-agent/internal/adapters/storage/memory"
	"github.com/PabloGalante/guardian-agent/internal/app/incidents"
	"github.com/PabloGalante/guardian-agent/internal/domain"
)

func TestRecentAppliesDefaultLimit(t *testing.T) {
	ctx := context.Background()
	store := memory.NewIncidentStore()
	for i := 0; i < 25; i++ {
		if err := store.AppendIncident(ctx, &domain.IncidentRecord{SessionID: domain.SessionID(fmt.Sprint(i))}); err != nil {
			t.Fatalf("AppendIncident: %v", err)
		}
	}

	svc := incidents.NewService(store)
	recs, err := svc.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recs) != 20 || recs[0].SessionID != "24" {
		t.Fatalf("unexpected result: %d records, first %v", len(recs), recs[0].SessionID)
	}

	if _, err := svc.Get(ctx, "3"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := svc.Get(ctx, "404"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRecentWithoutStore(t *testing.T) {
	recs, err := incidents.NewService(nil).Recent(context.Background(), 5)
	if err != nil || len(recs) != 0 {
		t.Fatalf("expected empty result, got %v %v", recs, err)
	}
}
