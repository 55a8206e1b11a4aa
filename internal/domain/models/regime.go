package models

// TailRegime classifies the heaviness of the return distribution's tail.
type TailRegime string

const (
	RegimeGaussian   TailRegime = "GAUSSIAN"
	RegimeLevyStable TailRegime = "LEVY_STABLE"
	RegimeCritical   TailRegime = "CRITICAL"
)

// AlphaReliability grades how trustworthy a Hill estimate is.
type AlphaReliability string

const (
	ReliabilityLow    AlphaReliability = "LOW"
	ReliabilityMedium AlphaReliability = "MEDIUM"
	ReliabilityHigh   AlphaReliability = "HIGH"
)

// HurstMode is the persistence classification of a price series.
type HurstMode string

const (
	HurstTrend     HurstMode = "TREND"
	HurstReversion HurstMode = "REVERSION"
	HurstNeutral   HurstMode = "NEUTRAL"
)

// RegimeMetrics is recomputed each cycle from a rolling return window.
type RegimeMetrics struct {
	Alpha       float64
	Reliability AlphaReliability
	Regime      TailRegime
	LeverageCap float64
}

// ReflexivityVector is the per-symbol feedback reading for one cycle.
// ReflexivityIndex is always within [-1, 1].
type ReflexivityVector struct {
	Symbol           string
	SentimentDelta   float64
	ReflexivityIndex float64
}
