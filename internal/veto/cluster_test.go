package veto

import (
	"math/rand"
	"testing"

	"Aegis/internal/domain/models"
)

// correlatedSeries returns a pair of length-n price series tracking the same
// random walk with small independent noise, so their correlation is near 1.
func correlatedSeries(n int, seed int64) ([]float64, []float64) {
	rng := rand.New(rand.NewSource(seed))
	a := make([]float64, n)
	b := make([]float64, n)
	base := 100.0
	for i := 0; i < n; i++ {
		base += rng.NormFloat64()
		a[i] = base + rng.NormFloat64()*0.01
		b[i] = base*1.5 + rng.NormFloat64()*0.01
	}
	return a, b
}

func independentSeries(n int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	p := 100.0
	for i := 0; i < n; i++ {
		p += rng.NormFloat64()
		out[i] = p
	}
	return out
}

func candidate(symbol string, confidence, velocity float64, history []float64) *models.Candidate {
	return &models.Candidate{
		Symbol:     symbol,
		Confidence: confidence,
		Velocity:   velocity,
		Side:       models.SideBuy,
		Success:    true,
		History:    history,
	}
}

func TestVetoLowerConfidenceCandidate(t *testing.T) {
	ha, hb := correlatedSeries(50, 1)
	strong := candidate("AAA", 0.9, 0, ha)
	weak := candidate("BBB", 0.5, 0, hb)

	NewEngine().ApplyVeto([]*models.Candidate{strong, weak}, nil)

	if strong.Vetoed() {
		t.Fatalf("high-confidence candidate should survive: %s", strong.VetoReason)
	}
	if !weak.Vetoed() {
		t.Fatalf("low-confidence candidate should be vetoed")
	}
	if weak.Side != models.SideFlat || weak.Success {
		t.Fatalf("vetoed candidate must be flattened and failed: %+v", weak)
	}
}

func TestVetoTieKeepsFirst(t *testing.T) {
	ha, hb := correlatedSeries(50, 2)
	first := candidate("AAA", 0.7, 0.1, ha)
	second := candidate("BBB", 0.7, 0.1, hb)

	NewEngine().ApplyVeto([]*models.Candidate{first, second}, nil)

	if first.Vetoed() || !second.Vetoed() {
		t.Fatalf("tie must keep the first candidate: first=%v second=%v", first.Vetoed(), second.Vetoed())
	}
}

func TestVetoCandidateVersusHeldPosition(t *testing.T) {
	ha, hb := correlatedSeries(50, 3)
	c := candidate("AAA", 0.99, 5.0, ha)

	NewEngine().ApplyVeto([]*models.Candidate{c}, map[string][]float64{"HELD": hb})

	if !c.Vetoed() {
		t.Fatalf("candidate correlated with a held position must be vetoed regardless of score")
	}
}

func TestVetoHeldVersusHeldNoAction(t *testing.T) {
	ha, hb := correlatedSeries(50, 4)
	c := candidate("AAA", 0.9, 0, independentSeries(50, 5))

	NewEngine().ApplyVeto([]*models.Candidate{c}, map[string][]float64{"H1": ha, "H2": hb})

	if c.Vetoed() {
		t.Fatalf("uncorrelated candidate must survive held-vs-held clusters: %s", c.VetoReason)
	}
}

func TestVetoShortHistoriesNoOp(t *testing.T) {
	a := candidate("AAA", 0.9, 0, []float64{1, 2, 3})
	b := candidate("BBB", 0.5, 0, []float64{1, 2, 3})

	NewEngine().ApplyVeto([]*models.Candidate{a, b}, nil)

	if a.Vetoed() || b.Vetoed() {
		t.Fatalf("series with <= 10 points must be excluded")
	}
}

func TestVetoUncorrelatedSurvive(t *testing.T) {
	a := candidate("AAA", 0.9, 0, independentSeries(80, 10))
	b := candidate("BBB", 0.5, 0, independentSeries(80, 11))

	NewEngine().ApplyVeto([]*models.Candidate{a, b}, nil)

	if a.Vetoed() || b.Vetoed() {
		t.Fatalf("independent candidates should not be vetoed")
	}
}

func TestVetoDeterministic(t *testing.T) {
	run := func() (bool, bool, bool) {
		ha, hb := correlatedSeries(120, 6)
		hc := independentSeries(120, 7)
		a := candidate("AAA", 0.8, 0.2, ha)
		b := candidate("BBB", 0.6, 0.1, hb)
		c := candidate("CCC", 0.4, 0.0, hc)
		NewEngine().ApplyVeto([]*models.Candidate{a, b, c}, map[string][]float64{
			"H1": independentSeries(120, 8),
		})
		return a.Vetoed(), b.Vetoed(), c.Vetoed()
	}
	a1, b1, c1 := run()
	a2, b2, c2 := run()
	if a1 != a2 || b1 != b2 || c1 != c2 {
		t.Fatalf("veto outcomes differ across identical runs")
	}
}
