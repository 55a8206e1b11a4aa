package ooda

import (
	"math"

	"Aegis/internal/stats"
)

// Urgency scale factors. Momentum and jerk arrive price-normalized, so the
// multipliers map typical per-cycle moves onto [0, 1].
const (
	momentumScale = 1000.0
	jerkScale     = 2000.0

	momentumWeight = 0.7
	jerkWeight     = 0.3
)

// ComputeUrgency maps normalized momentum and jerk to an urgency score in
// [0, 1], dampened when the symbol's reflexivity index says the engine is
// reacting to its own footprint: full weight up to 0.5, half up to 0.8, a
// tenth beyond.
func ComputeUrgency(momentum, jerk, reflexivity float64) float64 {
	p := math.Min(1, math.Abs(momentum)*momentumScale)
	j := math.Min(1, math.Abs(jerk)*jerkScale)
	base := momentumWeight*p + jerkWeight*j

	dampener := 1.0
	switch {
	case reflexivity > 0.8:
		dampener = 0.1
	case reflexivity > 0.5:
		dampener = 0.5
	}

	return stats.Clamp(base*dampener, 0, 1)
}
