package physics

import (
	"math"
	"sort"

	"Aegis/internal/domain/models"
)

const (
	// Hill estimator bounds and fallback.
	alphaMin     = 0.5
	alphaMax     = 10.0
	alphaDefault = 3.0

	// Minimum usable tail sample.
	minTailSample = 10

	// Regime boundaries on the tail index.
	criticalAlpha = 2.0
	gaussianAlpha = 3.0
)

// EstimateAlpha computes the Hill tail-index over a return window. The tail
// fraction adapts to sample size: 10% below 30 points, 5% below 500, 3%
// beyond. Fewer than 10 returns, or a degenerate tail statistic, fall back
// to (3.0, LOW). The result is clipped to [0.5, 10].
func EstimateAlpha(returns []float64) (float64, models.AlphaReliability) {
	n := len(returns)
	if n < minTailSample {
		return alphaDefault, models.ReliabilityLow
	}

	frac := 0.03
	reliability := models.ReliabilityHigh
	switch {
	case n < 30:
		frac = 0.10
		reliability = models.ReliabilityLow
	case n < 500:
		frac = 0.05
		reliability = models.ReliabilityMedium
	}

	abs := make([]float64, n)
	for i, r := range returns {
		abs[i] = math.Abs(r)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(abs)))

	k := int(math.Round(float64(n) * frac))
	if k < minTailSample {
		k = minTailSample
	}
	if k >= n {
		k = n - 1
	}

	// Hill: alpha = 1 / mean(ln(x_i / x_k)) over the k largest magnitudes,
	// with x_k the first excluded order statistic.
	ref := abs[k]
	if ref <= 0 {
		return alphaDefault, models.ReliabilityLow
	}
	sum := 0.0
	for i := 0; i < k; i++ {
		sum += math.Log(abs[i] / ref)
	}
	mean := sum / float64(k)
	if mean <= 0 || math.IsNaN(mean) || math.IsInf(mean, 0) {
		return alphaDefault, models.ReliabilityLow
	}

	alpha := 1.0 / mean
	if alpha < alphaMin {
		alpha = alphaMin
	}
	if alpha > alphaMax {
		alpha = alphaMax
	}
	return alpha, reliability
}

// ClassifyRegime maps a tail index to its regime and leverage cap:
// alpha > 3 Gaussian (cap 1.0), 2 < alpha <= 3 Lévy-stable (cap 0.5),
// alpha <= 2 critical (cap 0.0, no new exposure).
func ClassifyRegime(alpha float64) (models.TailRegime, float64) {
	switch {
	case alpha > gaussianAlpha:
		return models.RegimeGaussian, 1.0
	case alpha > criticalAlpha:
		return models.RegimeLevyStable, 0.5
	default:
		return models.RegimeCritical, 0.0
	}
}

// ComputeRegimeMetrics runs the full tail-risk classification for a return
// window. Pure and safe for concurrent disjoint inputs.
func ComputeRegimeMetrics(returns []float64) models.RegimeMetrics {
	alpha, reliability := EstimateAlpha(returns)
	regime, cap := ClassifyRegime(alpha)
	return models.RegimeMetrics{
		Alpha:       alpha,
		Reliability: reliability,
		Regime:      regime,
		LeverageCap: cap,
	}
}
