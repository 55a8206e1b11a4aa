// Package marketdata keeps the bounded per-symbol price history fed by the
// live feed and serves snapshots to the decision cycle.
package marketdata

import (
	"sync"

	"Aegis/internal/domain/models"
)

const defaultHistoryDepth = 500

// RollingStore is an in-memory HistoryStore: one bounded ring of closes per
// symbol, newest last. Appends and snapshots are safe for concurrent use.
type RollingStore struct {
	mu      sync.RWMutex
	depth   int
	history map[string][]float64
	last    map[string]*models.Tick
}

func NewRollingStore(depth int) *RollingStore {
	if depth <= 0 {
		depth = defaultHistoryDepth
	}
	return &RollingStore{
		depth:   depth,
		history: make(map[string][]float64),
		last:    make(map[string]*models.Tick),
	}
}

// Append records a tick, evicting the oldest close past the depth bound.
func (s *RollingStore) Append(tick *models.Tick) {
	if tick == nil || tick.Price <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	h := append(s.history[tick.Symbol], tick.Price)
	if len(h) > s.depth {
		h = h[len(h)-s.depth:]
	}
	s.history[tick.Symbol] = h
	s.last[tick.Symbol] = tick
}

// Snapshot returns a copy of the symbol's current view. The bool is false
// when no tick has ever arrived for the symbol.
func (s *RollingStore) Snapshot(symbol string) (*models.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tick, ok := s.last[symbol]
	if !ok {
		return nil, false
	}
	h := s.history[symbol]
	out := &models.Snapshot{
		Symbol:  symbol,
		Price:   tick.Price,
		Volume:  tick.Volume,
		History: append([]float64(nil), h...),
	}
	return out, true
}
