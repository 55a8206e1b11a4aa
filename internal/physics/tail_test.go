package physics

import (
	"math"
	"math/rand"
	"testing"

	"Aegis/internal/domain/models"
)

func TestEstimateAlphaInsufficientData(t *testing.T) {
	alpha, rel := EstimateAlpha([]float64{0.01, -0.02, 0.03})
	if alpha != 3.0 || rel != models.ReliabilityLow {
		t.Fatalf("expected (3.0, LOW), got (%v, %v)", alpha, rel)
	}
}

func TestEstimateAlphaDegenerateTail(t *testing.T) {
	// All-zero returns give a zero reference order statistic.
	returns := make([]float64, 50)
	alpha, rel := EstimateAlpha(returns)
	if alpha != 3.0 || rel != models.ReliabilityLow {
		t.Fatalf("expected degenerate fallback, got (%v, %v)", alpha, rel)
	}
}

func TestEstimateAlphaBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	returns := make([]float64, 600)
	for i := range returns {
		// Pareto-ish heavy tail.
		returns[i] = math.Pow(rng.Float64()+1e-9, -0.5) * 0.01
		if rng.Intn(2) == 0 {
			returns[i] = -returns[i]
		}
	}
	alpha, rel := EstimateAlpha(returns)
	if alpha < 0.5 || alpha > 10.0 {
		t.Fatalf("alpha out of bounds: %v", alpha)
	}
	if rel != models.ReliabilityHigh {
		t.Fatalf("expected HIGH reliability for n=600, got %v", rel)
	}
}

func TestClassifyRegimePartition(t *testing.T) {
	// The partition over (0.5, 10] must be total and non-overlapping.
	cases := []struct {
		alpha  float64
		regime models.TailRegime
		cap    float64
	}{
		{0.6, models.RegimeCritical, 0.0},
		{2.0, models.RegimeCritical, 0.0},
		{2.0000001, models.RegimeLevyStable, 0.5},
		{3.0, models.RegimeLevyStable, 0.5},
		{3.0000001, models.RegimeGaussian, 1.0},
		{10.0, models.RegimeGaussian, 1.0},
	}
	for _, tc := range cases {
		regime, cap := ClassifyRegime(tc.alpha)
		if regime != tc.regime || cap != tc.cap {
			t.Fatalf("alpha=%v: got (%v, %v), want (%v, %v)", tc.alpha, regime, cap, tc.regime, tc.cap)
		}
	}
}

func TestEstimateHurstTrending(t *testing.T) {
	// Strong drift with small noise should read persistent.
	rng := rand.New(rand.NewSource(42))
	prices := make([]float64, 512)
	p := 100.0
	for i := range prices {
		p += 0.5 + rng.Float64()*0.01
		prices[i] = p
	}
	h, mode := EstimateHurst(prices)
	if mode != models.HurstTrend {
		t.Fatalf("expected TREND for drifting series, got %v (h=%v)", mode, h)
	}
}

func TestEstimateHurstShortSeries(t *testing.T) {
	h, mode := EstimateHurst([]float64{1, 2, 3})
	if mode != models.HurstNeutral || h != 0.5 {
		t.Fatalf("expected neutral fallback, got (%v, %v)", h, mode)
	}
}

func TestEstimateHurstAlternating(t *testing.T) {
	// A strictly alternating series is maximally anti-persistent.
	prices := make([]float64, 256)
	for i := range prices {
		if i%2 == 0 {
			prices[i] = 100
		} else {
			prices[i] = 101
		}
	}
	_, mode := EstimateHurst(prices)
	if mode != models.HurstReversion {
		t.Fatalf("expected REVERSION for alternating series, got %v", mode)
	}
}
