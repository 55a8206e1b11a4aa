package models

// Tick is a single trade print from the market stream.
type Tick struct {
	Symbol    string
	Price     float64
	Volume    float64
	Timestamp int64 // unix seconds
}

// Snapshot is the per-symbol market view handed to the orchestrator each
// cycle. History is oldest-first closes; a short or empty history degrades
// the consumers to safe defaults, it never errors the cycle.
type Snapshot struct {
	Symbol  string
	Price   float64
	History []float64
	Volume  float64
}

// QuantileForecast is the external forecaster's distribution estimate.
// Quantiles holds the 10%..90% deciles in ascending order; the middle entry
// is the distribution mode proxy used for Nash distance.
type QuantileForecast struct {
	Quantiles [9]float64
	Trend     string
}

// Mode returns the median decile as the distribution mode proxy.
func (q QuantileForecast) Mode() float64 { return q.Quantiles[4] }

// ReasonedSignal is the reasoning collaborator's verdict for the primary.
type ReasonedSignal struct {
	Side       SignalSide
	Confidence float64
	Reasoning  string
}
