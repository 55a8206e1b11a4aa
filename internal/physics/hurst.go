package physics

import (
	"math"

	"Aegis/internal/domain/models"
	"Aegis/internal/stats"
)

const (
	hurstTrendThreshold     = 0.55
	hurstReversionThreshold = 0.45

	// Smallest subseries length used in the rescaled-range regression.
	hurstMinChunk = 8
)

// EstimateHurst computes a rescaled-range Hurst exponent over a price series
// and classifies its persistence: H > 0.55 trending, H < 0.45 mean
// reverting, otherwise neutral. Series too short for at least two chunk
// sizes classify as neutral.
func EstimateHurst(prices []float64) (float64, models.HurstMode) {
	returns := stats.LogReturns(prices)
	if len(returns) < 2*hurstMinChunk {
		return 0.5, models.HurstNeutral
	}

	var logN, logRS []float64
	for chunk := hurstMinChunk; chunk <= len(returns)/2; chunk *= 2 {
		rs := averageRescaledRange(returns, chunk)
		if rs <= 0 {
			continue
		}
		logN = append(logN, math.Log(float64(chunk)))
		logRS = append(logRS, math.Log(rs))
	}
	if len(logN) < 2 {
		return 0.5, models.HurstNeutral
	}

	h := slope(logN, logRS)
	switch {
	case h > hurstTrendThreshold:
		return h, models.HurstTrend
	case h < hurstReversionThreshold:
		return h, models.HurstReversion
	default:
		return h, models.HurstNeutral
	}
}

// averageRescaledRange computes the mean R/S statistic over consecutive
// non-overlapping subseries of the given length.
func averageRescaledRange(returns []float64, chunk int) float64 {
	count := len(returns) / chunk
	if count == 0 {
		return 0
	}
	sum := 0.0
	used := 0
	for c := 0; c < count; c++ {
		seg := returns[c*chunk : (c+1)*chunk]
		mean := stats.Mean(seg)

		// Range of the mean-adjusted cumulative sum.
		var cum, minCum, maxCum float64
		for _, r := range seg {
			cum += r - mean
			if cum < minCum {
				minCum = cum
			}
			if cum > maxCum {
				maxCum = cum
			}
		}
		s := stats.Stddev(seg)
		if s == 0 {
			continue
		}
		sum += (maxCum - minCum) / s
		used++
	}
	if used == 0 {
		return 0
	}
	return sum / float64(used)
}

// slope is the least-squares slope of ys over xs.
func slope(xs, ys []float64) float64 {
	mx := stats.Mean(xs)
	my := stats.Mean(ys)
	var num, den float64
	for i := range xs {
		dx := xs[i] - mx
		num += dx * (ys[i] - my)
		den += dx * dx
	}
	if den == 0 {
		return 0.5
	}
	return num / den
}
