package models

import "time"

// SignalSide is the direction of a trade signal.
type SignalSide string

const (
	SideBuy  SignalSide = "BUY"
	SideSell SignalSide = "SELL"
	SideFlat SignalSide = "FLAT"
)

// Candidate is one symbol's enriched analysis for a single decision cycle.
// It is created at cycle start, mutated through the pipeline stages and
// discarded after the cycle; nothing here persists between cycles.
type Candidate struct {
	Symbol string
	Price  float64

	// Kinematics (from the per-symbol estimator)
	Velocity     float64
	Acceleration float64

	// Tail-risk physics
	Regime      TailRegime
	Alpha       float64
	Hurst       HurstMode
	Urgency     float64
	Reflexivity float64

	// Council / reasoning outcome
	Side       SignalSide
	Confidence float64
	Reasoning  string

	// Rolling price history used for correlation vetoing.
	History []float64

	Success    bool
	FailReason string
	VetoReason string
}

// Vetoed reports whether the correlation engine suppressed the candidate.
// Analysis failures are tracked separately in FailReason.
func (c *Candidate) Vetoed() bool { return c.VetoReason != "" }

// Fail marks the candidate unusable for this cycle. A failure is not a veto:
// VetoReason is written by the correlation engine only.
func (c *Candidate) Fail(reason string) {
	c.Success = false
	c.Side = SideFlat
	c.FailReason = reason
}

// Veto marks the candidate as suppressed with an audit reason.
// A vetoed candidate is flattened and excluded from primary selection.
func (c *Candidate) Veto(reason string) {
	c.Success = false
	c.Side = SideFlat
	if c.VetoReason != "" {
		c.VetoReason += "; " + reason
	} else {
		c.VetoReason = reason
	}
}

// CycleResult is the output of one OODA cycle: every enriched candidate plus
// the selected primary's hoisted fields.
type CycleResult struct {
	Timestamp  time.Time
	Candidates []*Candidate

	// Primary is nil when no candidate qualifies.
	Primary *Candidate
}
