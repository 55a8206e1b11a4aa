package stats

import (
	"math"
	"testing"
)

func TestPearsonPerfectCorrelation(t *testing.T) {
	xs := []float64{1, 2, 3, 4, 5}
	ys := []float64{2, 4, 6, 8, 10}
	r, ok := Pearson(xs, ys)
	if !ok {
		t.Fatalf("expected ok")
	}
	if math.Abs(r-1.0) > 1e-12 {
		t.Fatalf("expected r=1, got %v", r)
	}
}

func TestPearsonAntiCorrelation(t *testing.T) {
	xs := []float64{1, 2, 3, 4}
	ys := []float64{4, 3, 2, 1}
	r, ok := Pearson(xs, ys)
	if !ok || math.Abs(r+1.0) > 1e-12 {
		t.Fatalf("expected r=-1, got %v ok=%v", r, ok)
	}
}

func TestPearsonZeroVariance(t *testing.T) {
	xs := []float64{5, 5, 5, 5}
	ys := []float64{1, 2, 3, 4}
	if _, ok := Pearson(xs, ys); ok {
		t.Fatalf("expected undefined correlation for constant series")
	}
}

func TestLogReturnsShortSeries(t *testing.T) {
	if got := LogReturns([]float64{100}); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestLogReturns(t *testing.T) {
	rets := LogReturns([]float64{100, 110, 99})
	if len(rets) != 2 {
		t.Fatalf("expected 2 returns, got %d", len(rets))
	}
	if math.Abs(rets[0]-math.Log(1.1)) > 1e-12 {
		t.Fatalf("unexpected first return %v", rets[0])
	}
}

func TestStddevSample(t *testing.T) {
	got := Stddev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	want := math.Sqrt(32.0 / 7.0)
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("stddev = %v, want %v", got, want)
	}
}

func TestClamp(t *testing.T) {
	if Clamp(1.5, 0, 1) != 1 || Clamp(-0.2, 0, 1) != 0 || Clamp(0.3, 0, 1) != 0.3 {
		t.Fatalf("clamp misbehaved")
	}
}
