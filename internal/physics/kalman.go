// Package physics contains the per-symbol market physics estimators: a
// constant-acceleration Kalman filter over noisy prices, the Hill tail-index
// and Hurst persistence classifiers, and the reflexivity monitor.
package physics

import (
	"Aegis/internal/domain/models"
)

const (
	// kalmanDT is the cycle time step. Cycles are the engine's unit of time,
	// so the filter works in per-cycle units.
	kalmanDT = 1.0

	// processNoise is the fixed white-jerk process noise intensity.
	processNoise = 1e-4

	// measurementNoise is the base price measurement variance, inflated per
	// update by the caller's volatility factor.
	measurementNoise = 1e-2

	// warmupObservations before the filter switches from finite differences
	// to predict/update.
	warmupObservations = 3
)

// KinematicEstimator tracks latent position/velocity/acceleration for one
// symbol. Instances are not safe for concurrent use; the orchestrator owns
// one per symbol and never runs two updates for the same symbol at once.
type KinematicEstimator struct {
	state models.KinematicState
	seen  int
	warm  [warmupObservations]float64
}

// NewKinematicEstimator creates an estimator with an uninformative prior.
func NewKinematicEstimator() *KinematicEstimator {
	e := &KinematicEstimator{}
	// Diagonal prior covariance; the warm start leaves it untouched.
	e.state.Covariance = [3][3]float64{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
	return e
}

// State returns the current estimate without updating.
func (e *KinematicEstimator) State() models.KinematicState { return e.state }

// Update folds one price observation into the estimate. The volatility
// factor (>= 0) stiffens the filter against heavy-tailed whipsaw by scaling
// measurement noise with R' = R * (1 + vf^2). A singular innovation
// covariance skips the update and returns the prior unchanged; Update never
// fails the cycle.
func (e *KinematicEstimator) Update(price, volatilityFactor float64) models.KinematicState {
	if volatilityFactor < 0 {
		volatilityFactor = 0
	}
	if e.seen < warmupObservations {
		e.warm[e.seen] = price
		e.seen++
		e.warmStart()
		return e.state
	}
	e.seen++
	e.kalmanStep(price, volatilityFactor)
	return e.state
}

// warmStart seeds the state from finite differences over the first three
// observations: v0 = (p2-p0)/2dt, a0 = (p2-2*p1+p0)/dt^2. Covariance is left
// unchanged during warm-up.
func (e *KinematicEstimator) warmStart() {
	switch e.seen {
	case 1:
		e.state.Position = e.warm[0]
	case 2:
		e.state.Position = e.warm[1]
		e.state.Velocity = (e.warm[1] - e.warm[0]) / kalmanDT
	case 3:
		p0, p1, p2 := e.warm[0], e.warm[1], e.warm[2]
		e.state.Position = p2
		e.state.Velocity = (p2 - p0) / (2 * kalmanDT)
		e.state.Acceleration = (p2 - 2*p1 + p0) / (kalmanDT * kalmanDT)
	}
}

// kalmanStep runs one constant-acceleration predict/update.
func (e *KinematicEstimator) kalmanStep(price, volatilityFactor float64) {
	prior := e.state
	dt := kalmanDT

	// Predict: x = F x with F = [[1,dt,dt^2/2],[0,1,dt],[0,0,1]].
	p := prior.Position + prior.Velocity*dt + 0.5*prior.Acceleration*dt*dt
	v := prior.Velocity + prior.Acceleration*dt
	a := prior.Acceleration

	cov := predictCovariance(prior.Covariance, dt)

	// Update against the price measurement (H = [1 0 0]).
	r := measurementNoise * (1 + volatilityFactor*volatilityFactor)
	s := cov[0][0] + r
	if s <= 0 {
		// Singular innovation covariance: retain the prior state entirely.
		return
	}

	innovation := price - p
	k0 := cov[0][0] / s
	k1 := cov[1][0] / s
	k2 := cov[2][0] / s

	e.state.Position = p + k0*innovation
	e.state.Velocity = v + k1*innovation
	e.state.Acceleration = a + k2*innovation

	// P = (I - K H) P, with K H touching only the first column of each row.
	var next [3][3]float64
	k := [3]float64{k0, k1, k2}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			next[i][j] = cov[i][j] - k[i]*cov[0][j]
		}
	}
	e.state.Covariance = next
}

// predictCovariance computes F P F^T + Q for the constant-acceleration model
// with a white-jerk Q.
func predictCovariance(p [3][3]float64, dt float64) [3][3]float64 {
	f := [3][3]float64{
		{1, dt, 0.5 * dt * dt},
		{0, 1, dt},
		{0, 0, 1},
	}

	// FP
	var fp [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				fp[i][j] += f[i][k] * p[k][j]
			}
		}
	}
	// (FP)F^T
	var out [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				out[i][j] += fp[i][k] * f[j][k]
			}
		}
	}

	// White-jerk process noise.
	dt2 := dt * dt
	dt3 := dt2 * dt
	dt4 := dt3 * dt
	q := processNoise
	out[0][0] += q * dt4 / 4
	out[0][1] += q * dt3 / 2
	out[0][2] += q * dt2 / 2
	out[1][0] += q * dt3 / 2
	out[1][1] += q * dt2
	out[1][2] += q * dt
	out[2][0] += q * dt2 / 2
	out[2][1] += q * dt
	out[2][2] += q

	return out
}
