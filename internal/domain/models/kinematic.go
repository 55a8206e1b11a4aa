package models

// KinematicState is the latent position/velocity/acceleration estimate for a
// single symbol, together with the filter's 3x3 covariance. Each state is
// exclusively owned by one estimator instance and never shared across symbols.
type KinematicState struct {
	Position     float64
	Velocity     float64
	Acceleration float64
	Covariance   [3][3]float64
}
