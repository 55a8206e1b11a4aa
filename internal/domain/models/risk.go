package models

import "time"

// TradingStatus is the governor's session-scoped state machine.
type TradingStatus string

const (
	StatusActive         TradingStatus = "ACTIVE"
	StatusHaltedDrawdown TradingStatus = "HALTED_DRAWDOWN"
	StatusHaltedPhysics  TradingStatus = "HALTED_PHYSICS"
	StatusSleeping       TradingStatus = "SLEEPING"
)

// AccountState is the broker-side capital snapshot the governor sizes against.
type AccountState struct {
	StartingCapital float64
	NAV             float64
	BuyingPower     float64
	PDTExempt       bool

	// HeldHistories maps held-position symbols to their recent price history,
	// used for correlation-against-portfolio sizing.
	HeldHistories map[string][]float64
}

// RiskDecision is the terminal output of one decision cycle.
// ApprovedSize is a notional amount and is zero whenever Status != ACTIVE.
type RiskDecision struct {
	Timestamp    time.Time
	Symbol       string
	Side         SignalSide
	Status       TradingStatus
	ApprovedSize float64
	MaxDrawdown  float64
	Reasoning    string
}
