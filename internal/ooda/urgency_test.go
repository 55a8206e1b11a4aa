package ooda

import (
	"math"
	"testing"
)

func TestUrgencySaturation(t *testing.T) {
	// Huge momentum and jerk saturate both terms at 1.
	got := ComputeUrgency(1.0, 1.0, 0)
	if math.Abs(got-1.0) > 1e-12 {
		t.Fatalf("expected saturated urgency 1.0, got %v", got)
	}
}

func TestUrgencyWeights(t *testing.T) {
	// momentum term p=0.5, jerk term j=0: base = 0.7*0.5
	got := ComputeUrgency(0.0005, 0, 0)
	if math.Abs(got-0.35) > 1e-9 {
		t.Fatalf("expected 0.35, got %v", got)
	}
	// jerk only: j=0.5 -> 0.3*0.5
	got = ComputeUrgency(0, 0.00025, 0)
	if math.Abs(got-0.15) > 1e-9 {
		t.Fatalf("expected 0.15, got %v", got)
	}
}

func TestUrgencyDampenerTiers(t *testing.T) {
	full := ComputeUrgency(1, 1, 0.5)
	half := ComputeUrgency(1, 1, 0.8)
	tenth := ComputeUrgency(1, 1, 0.81)
	if full != 1.0 {
		t.Fatalf("reflexivity 0.5 must not dampen, got %v", full)
	}
	if math.Abs(half-0.5) > 1e-12 {
		t.Fatalf("reflexivity 0.8 should halve, got %v", half)
	}
	if math.Abs(tenth-0.1) > 1e-12 {
		t.Fatalf("reflexivity > 0.8 should leave a tenth, got %v", tenth)
	}
}

func TestUrgencyNegativeMomentum(t *testing.T) {
	if ComputeUrgency(-1, 0, 0) != ComputeUrgency(1, 0, 0) {
		t.Fatalf("urgency must use magnitudes")
	}
}

func TestUrgencyBounded(t *testing.T) {
	for _, refl := range []float64{0, 0.6, 0.9} {
		u := ComputeUrgency(123, -456, refl)
		if u < 0 || u > 1 {
			t.Fatalf("urgency out of [0,1]: %v", u)
		}
	}
}
