package emergency

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/PabloGalante/guardian-agent/internal/domain"
	"github.com/PabloGalante/guardian-agent/internal/observability"
)

// Sweeper periodically drops ended sessions older than MaxAge.
type Sweeper struct {
	store    domain.SessionStore
	interval time.Duration
	maxAge   time.Duration
}

func NewSweeper(store domain.SessionStore, interval, maxAge time.Duration) *Sweeper {
	return &Sweeper{store: store, interval: interval, maxAge: maxAge}
}

// SweepOnce runs a single pass and returns how many sessions were removed.
func (w *Sweeper) SweepOnce(ctx context.Context) int {
	removed := w.store.SweepExpired(w.maxAge)
	if removed > 0 {
		observability.LoggerFromContext(ctx).Info("expired sessions swept",
			zap.Int("removed", removed),
			zap.Int("active", w.store.CountActive()),
		)
	}
	return removed
}

// Run sweeps on every tick until ctx is cancelled.
func (w *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.SweepOnce(ctx)
		}
	}
}
