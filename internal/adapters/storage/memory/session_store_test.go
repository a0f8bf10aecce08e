package memory_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/PabloGalante/guardian-agent/internal/adapters/storage/memory"
	"github.com/PabloGalante/guardian-agent/internal/domain"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newStore() (*memory.SessionStore, *clock) {
	c := &clock{t: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)}
	return memory.NewSessionStoreWithClock(c.now), c
}

func TestCreateGetReturnsCopies(t *testing.T) {
	store, c := newStore()
	sess := domain.NewSession("a", "notes", "", "", c.t)

	if err := store.Create(sess); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.Create(sess); !errors.Is(err, domain.ErrSessionExists) {
		t.Fatalf("expected ErrSessionExists, got %v", err)
	}

	got, err := store.Get("a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	got.UserNotes = "mutated"

	again, _ := store.Get("a")
	if again.UserNotes != "notes" {
		t.Fatalf("store shared memory with caller")
	}

	if _, err := store.Get("missing"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestUpdateRejectsStaleVersion(t *testing.T) {
	store, c := newStore()
	if err := store.Create(domain.NewSession("a", "", "", "", c.t)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	first, _ := store.Get("a")
	second, _ := store.Get("a")

	c.t = c.t.Add(time.Minute)
	if err := first.BeginAnalysis(c.t); err != nil {
		t.Fatalf("BeginAnalysis: %v", err)
	}
	if err := store.Update(first); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if first.Version != 2 {
		t.Fatalf("expected caller version bumped to 2, got %d", first.Version)
	}

	second.UserNotes = "late write"
	if err := store.Update(second); !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}

	got, _ := store.Get("a")
	if got.Status != domain.StatusAnalyzing || !got.UpdatedAt.Equal(c.t) {
		t.Fatalf("unexpected stored session %+v", got)
	}

	if err := store.Update(domain.NewSession("ghost", "", "", "", c.t)); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestEndAndCountActive(t *testing.T) {
	store, c := newStore()
	for i := 0; i < 3; i++ {
		if err := store.Create(domain.NewSession(domain.SessionID(fmt.Sprint(i)), "", "", "", c.t)); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	ended, err := store.End("1", domain.EndRequest{Reason: "cancelled by user"})
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if ended.Status != domain.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", ended.Status)
	}
	if store.CountActive() != 2 {
		t.Fatalf("expected 2 active, got %d", store.CountActive())
	}

	if _, err := store.End("1", domain.EndRequest{}); !errors.Is(err, domain.ErrSessionEnded) {
		t.Fatalf("expected ErrSessionEnded, got %v", err)
	}
	if _, err := store.End("nope", domain.EndRequest{}); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSweepExpiredOnlyRemovesOldTerminalSessions(t *testing.T) {
	store, c := newStore()
	start := c.t

	for _, id := range []domain.SessionID{"old-live", "old-ended", "new-ended"} {
		if err := store.Create(domain.NewSession(id, "", "", "", start)); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	if _, err := store.End("old-ended", domain.EndRequest{Reason: "done"}); err != nil {
		t.Fatalf("End: %v", err)
	}

	c.t = start.Add(30 * time.Hour)
	if _, err := store.End("new-ended", domain.EndRequest{Reason: "done"}); err != nil {
		t.Fatalf("End: %v", err)
	}

	c.t = start.Add(48 * time.Hour)
	removed := store.SweepExpired(24 * time.Hour)
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if _, err := store.Get("old-ended"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected old-ended removed")
	}
	if _, err := store.Get("old-live"); err != nil {
		t.Fatalf("live session must never be swept: %v", err)
	}
	if _, err := store.Get("new-ended"); err != nil {
		t.Fatalf("recent terminal session swept too early: %v", err)
	}
}

func TestIncidentStoreNewestFirstAndIdempotent(t *testing.T) {
	store := memory.NewIncidentStore()
	ctx := context.Background()

	for _, id := range []domain.SessionID{"a", "b", "a", "c"} {
		if err := store.AppendIncident(ctx, &domain.IncidentRecord{SessionID: id}); err != nil {
			t.Fatalf("AppendIncident: %v", err)
		}
	}

	all, err := store.ListIncidents(ctx, 0)
	if err != nil {
		t.Fatalf("ListIncidents: %v", err)
	}
	if len(all) != 3 || all[0].SessionID != "c" || all[2].SessionID != "a" {
		t.Fatalf("unexpected listing %+v", all)
	}

	two, _ := store.ListIncidents(ctx, 2)
	if len(two) != 2 || two[1].SessionID != "b" {
		t.Fatalf("unexpected limited listing %+v", two)
	}
}
