package marketdata

import (
	"context"
	"fmt"
	"time"

	"Aegis/internal/domain/models"
	drepo "Aegis/internal/domain/repository"
	"Aegis/pkg/cache"
)

// SnapshotSource adapts a HistoryStore to the orchestrator's snapshot port.
// When a shared cache is configured, snapshots are mirrored into it so
// sibling processes (ops tooling, replay jobs) can read the same view.
type SnapshotSource struct {
	store    drepo.HistoryStore
	cache    cache.Service
	cacheTTL time.Duration
}

func NewSnapshotSource(store drepo.HistoryStore, c cache.Service, ttl time.Duration) *SnapshotSource {
	return &SnapshotSource{store: store, cache: c, cacheTTL: ttl}
}

// GetSnapshot returns the symbol's current market view. A symbol with no
// ticks yet is an error; the orchestrator isolates it to one candidate.
func (s *SnapshotSource) GetSnapshot(ctx context.Context, symbol string) (*models.Snapshot, error) {
	snap, ok := s.store.Snapshot(symbol)
	if !ok {
		return nil, fmt.Errorf("no market data for %s", symbol)
	}

	if s.cache != nil {
		// Mirror for out-of-process readers; never on the decision path.
		go func(snap models.Snapshot) {
			cctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = s.cache.Set(cctx, "snapshot:"+snap.Symbol, snap, s.cacheTTL)
		}(*snap)
	}
	return snap, nil
}
