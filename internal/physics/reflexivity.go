package physics

import (
	"math"
	"sync"

	"Aegis/internal/domain/models"
	"Aegis/internal/stats"
)

// reflexivityWindow bounds the per-symbol impact history.
const reflexivityWindow = 100

// minReflexivitySamples is the fewest paired samples needed before the
// correlation is considered meaningful.
const minReflexivitySamples = 5

type impactSample struct {
	volume   float64
	refPrice float64
	delta    float64
	filled   bool
}

type symbolImpacts struct {
	ring      []impactSample
	lastPrice float64
	hasPrice  bool
}

// ReflexivityMonitor correlates a symbol's own trading volume with the price
// moves that follow, exposing the feedback loop between the engine's
// activity and the market it reads. One bounded ring per symbol.
type ReflexivityMonitor struct {
	mu      sync.Mutex
	symbols map[string]*symbolImpacts
}

func NewReflexivityMonitor() *ReflexivityMonitor {
	return &ReflexivityMonitor{symbols: make(map[string]*symbolImpacts)}
}

// RecordExecution appends a pending impact slot for an own trade. The slot's
// price delta is back-filled by the next ObservePrice for the symbol.
func (m *ReflexivityMonitor) RecordExecution(symbol string, signedQty float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.symbol(symbol)
	sample := impactSample{volume: signedQty}
	if s.hasPrice {
		sample.refPrice = s.lastPrice
	}
	s.ring = append(s.ring, sample)
	if len(s.ring) > reflexivityWindow {
		s.ring = s.ring[len(s.ring)-reflexivityWindow:]
	}
}

// ObservePrice back-fills the newest pending slot's delta and returns the
// symbol's reflexivity vector: the price move since the last observation and
// the Pearson correlation of the volume/delta series, clamped to [-1, 1].
// Fewer than 5 paired samples, or a series with undefined variance, reads as
// index 0.
func (m *ReflexivityMonitor) ObservePrice(symbol string, price float64) models.ReflexivityVector {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.symbol(symbol)
	for i := len(s.ring) - 1; i >= 0; i-- {
		if s.ring[i].filled {
			break
		}
		ref := s.ring[i].refPrice
		if ref == 0 {
			ref = price
		}
		s.ring[i].delta = price - ref
		s.ring[i].filled = true
	}
	var sentimentDelta float64
	if s.hasPrice {
		sentimentDelta = price - s.lastPrice
	}
	s.lastPrice = price
	s.hasPrice = true

	return models.ReflexivityVector{
		Symbol:           symbol,
		SentimentDelta:   sentimentDelta,
		ReflexivityIndex: m.indexLocked(s),
	}
}

// Index returns the current reflexivity index without observing a price.
func (m *ReflexivityMonitor) Index(symbol string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.indexLocked(m.symbol(symbol))
}

func (m *ReflexivityMonitor) indexLocked(s *symbolImpacts) float64 {
	var volumes, deltas []float64
	for _, sample := range s.ring {
		if !sample.filled {
			continue
		}
		volumes = append(volumes, sample.volume)
		deltas = append(deltas, sample.delta)
	}
	if len(volumes) < minReflexivitySamples {
		return 0
	}
	r, ok := stats.Pearson(volumes, deltas)
	if !ok || math.IsNaN(r) {
		return 0
	}
	return stats.Clamp(r, -1, 1)
}

func (m *ReflexivityMonitor) symbol(symbol string) *symbolImpacts {
	s, ok := m.symbols[symbol]
	if !ok {
		s = &symbolImpacts{}
		m.symbols[symbol] = s
	}
	return s
}
