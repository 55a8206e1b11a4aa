package physics

import (
	"math"
	"testing"
)

func TestKinematicWarmStart(t *testing.T) {
	e := NewKinematicEstimator()

	s := e.Update(100, 0)
	if s.Position != 100 || s.Velocity != 0 || s.Acceleration != 0 {
		t.Fatalf("unexpected first state %+v", s)
	}

	s = e.Update(102, 0)
	if s.Position != 102 || s.Velocity != 2 {
		t.Fatalf("unexpected second state %+v", s)
	}

	// p0=100 p1=102 p2=104: v0=(104-100)/2=2, a0=104-204+100=0
	s = e.Update(104, 0)
	if s.Position != 104 || s.Velocity != 2 || s.Acceleration != 0 {
		t.Fatalf("unexpected warm-start state %+v", s)
	}
}

func TestKinematicConstantVelocityConvergence(t *testing.T) {
	e := NewKinematicEstimator()
	price := 100.0
	const trueVelocity = 0.5
	for i := 0; i < 200; i++ {
		price += trueVelocity
		e.Update(price, 0)
	}
	s := e.State()
	if math.Abs(s.Velocity-trueVelocity) > 0.05 {
		t.Fatalf("velocity did not converge: got %v want %v", s.Velocity, trueVelocity)
	}
	if math.Abs(s.Acceleration) > 0.05 {
		t.Fatalf("acceleration should be near zero, got %v", s.Acceleration)
	}
}

func TestKinematicVolatilityFactorStiffens(t *testing.T) {
	// With a large volatility factor, a single outlier observation should
	// move the estimate less than with no inflation.
	calm := NewKinematicEstimator()
	stiff := NewKinematicEstimator()
	for _, p := range []float64{100, 100, 100, 100, 100} {
		calm.Update(p, 0)
		stiff.Update(p, 0)
	}
	calmState := calm.Update(110, 0)
	stiffState := stiff.Update(110, 10)
	calmMove := math.Abs(calmState.Position - 100)
	stiffMove := math.Abs(stiffState.Position - 100)
	if stiffMove >= calmMove {
		t.Fatalf("expected inflated R to dampen the update: calm=%v stiff=%v", calmMove, stiffMove)
	}
}

func TestKinematicNegativeVolatilityFactorTreatedAsZero(t *testing.T) {
	a := NewKinematicEstimator()
	b := NewKinematicEstimator()
	prices := []float64{100, 101, 102, 103, 104}
	for _, p := range prices {
		a.Update(p, 0)
		b.Update(p, -3)
	}
	sa, sb := a.State(), b.State()
	if sa.Position != sb.Position || sa.Velocity != sb.Velocity {
		t.Fatalf("negative factor should behave like zero: %+v vs %+v", sa, sb)
	}
}
