package marketdata

import (
	"context"
	"testing"

	"Aegis/internal/domain/models"
)

func TestRollingStoreBounded(t *testing.T) {
	s := NewRollingStore(5)
	for i := 0; i < 20; i++ {
		s.Append(&models.Tick{Symbol: "BTC", Price: float64(100 + i), Volume: 1})
	}

	snap, ok := s.Snapshot("BTC")
	if !ok {
		t.Fatalf("expected snapshot after appends")
	}
	if len(snap.History) != 5 {
		t.Fatalf("history must be bounded at depth, got %d", len(snap.History))
	}
	if snap.History[4] != 119 || snap.History[0] != 115 {
		t.Fatalf("eviction must drop the oldest closes, got %v", snap.History)
	}
	if snap.Price != 119 {
		t.Fatalf("snapshot price must track the last tick, got %v", snap.Price)
	}
}

func TestRollingStoreUnknownSymbol(t *testing.T) {
	s := NewRollingStore(5)
	if _, ok := s.Snapshot("NOPE"); ok {
		t.Fatalf("unknown symbol must report no snapshot")
	}
}

func TestRollingStoreIgnoresBadTicks(t *testing.T) {
	s := NewRollingStore(5)
	s.Append(nil)
	s.Append(&models.Tick{Symbol: "BTC", Price: 0})
	s.Append(&models.Tick{Symbol: "BTC", Price: -1})
	if _, ok := s.Snapshot("BTC"); ok {
		t.Fatalf("non-positive prices must be ignored")
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	s := NewRollingStore(10)
	s.Append(&models.Tick{Symbol: "BTC", Price: 100})
	snap, _ := s.Snapshot("BTC")
	snap.History[0] = -999

	again, _ := s.Snapshot("BTC")
	if again.History[0] != 100 {
		t.Fatalf("snapshot must not alias store internals")
	}
}

func TestSnapshotSourceErrorsWithoutData(t *testing.T) {
	src := NewSnapshotSource(NewRollingStore(10), nil, 0)
	if _, err := src.GetSnapshot(context.Background(), "BTC"); err == nil {
		t.Fatalf("expected error for symbol with no ticks")
	}
}
