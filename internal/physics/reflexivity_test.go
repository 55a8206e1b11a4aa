package physics

import (
	"math"
	"testing"
)

func TestReflexivityTooFewSamples(t *testing.T) {
	m := NewReflexivityMonitor()
	m.ObservePrice("BTC", 100)
	for i := 0; i < 4; i++ {
		m.RecordExecution("BTC", 10)
		if v := m.ObservePrice("BTC", 100+float64(i)); v.ReflexivityIndex != 0 {
			t.Fatalf("expected 0 below 5 paired samples, got %v", v.ReflexivityIndex)
		}
	}
}

func TestReflexivityPerfectCorrelation(t *testing.T) {
	m := NewReflexivityMonitor()
	price := 100.0
	m.ObservePrice("BTC", price)
	// Each buy of size q is followed by a move of exactly q/10.
	for i := 1; i <= 10; i++ {
		q := float64(i)
		m.RecordExecution("BTC", q)
		price += q / 10
		v := m.ObservePrice("BTC", price)
		if i >= 5 && math.Abs(v.ReflexivityIndex-1.0) > 1e-9 {
			t.Fatalf("expected index ~1.0 after %d samples, got %v", i, v.ReflexivityIndex)
		}
		if math.Abs(v.SentimentDelta-q/10) > 1e-9 {
			t.Fatalf("expected delta %v since last observation, got %v", q/10, v.SentimentDelta)
		}
	}
}

func TestReflexivityZeroVarianceVolume(t *testing.T) {
	m := NewReflexivityMonitor()
	price := 100.0
	m.ObservePrice("ETH", price)
	for i := 0; i < 8; i++ {
		m.RecordExecution("ETH", 5) // constant volume
		price += float64(i)
		if v := m.ObservePrice("ETH", price); v.ReflexivityIndex != 0 {
			t.Fatalf("expected 0 for zero-variance volume, got %v", v.ReflexivityIndex)
		}
	}
}

func TestReflexivitySymbolIsolation(t *testing.T) {
	m := NewReflexivityMonitor()
	price := 100.0
	m.ObservePrice("A", price)
	for i := 1; i <= 8; i++ {
		q := float64(i)
		m.RecordExecution("A", q)
		price += q
		m.ObservePrice("A", price)
	}
	if idx := m.Index("B"); idx != 0 {
		t.Fatalf("symbol B should be unaffected by A, got %v", idx)
	}
	if idx := m.Index("A"); idx < 0.9 {
		t.Fatalf("symbol A should show strong reflexivity, got %v", idx)
	}
}

func TestReflexivityRingBounded(t *testing.T) {
	m := NewReflexivityMonitor()
	price := 100.0
	m.ObservePrice("C", price)
	for i := 0; i < 500; i++ {
		m.RecordExecution("C", float64(i%7)+1)
		price += 0.1
		m.ObservePrice("C", price)
	}
	s := m.symbols["C"]
	if len(s.ring) > reflexivityWindow {
		t.Fatalf("ring exceeded bound: %d", len(s.ring))
	}
}
