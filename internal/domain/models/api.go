package models

// HTTP DTOs for the ops API. Transport tags live here, not on domain types.

// DecisionsRequest queries the latest audited decisions.
type DecisionsRequest struct {
	Symbol string `query:"symbol" validate:"omitempty,min=1,max=16"`
	Limit  int    `query:"limit" default:"20" validate:"min=1,max=500"`
	From   string `query:"from" validate:"omitempty"`
	To     string `query:"to" validate:"omitempty"`
}

// KillSwitchRequest engages or releases the process-wide kill switch.
type KillSwitchRequest struct {
	Engaged bool   `json:"engaged"`
	Reason  string `json:"reason" validate:"omitempty,max=256"`
}

// AccountUpdateRequest marks the paper account to market: the current NAV,
// buying power and optionally the price histories of held positions. An
// empty history removes the position.
type AccountUpdateRequest struct {
	NAV         float64              `json:"nav" validate:"gt=0"`
	BuyingPower float64              `json:"buying_power" validate:"gte=0"`
	Held        map[string][]float64 `json:"held" validate:"omitempty"`
}

// StatusResponse reports the governor and engine state.
type StatusResponse struct {
	Environment   string  `json:"environment"`
	TradingStatus string  `json:"trading_status"`
	MaxDrawdown   float64 `json:"max_drawdown"`
	KillSwitch    bool    `json:"kill_switch"`
	CyclesRun     uint64  `json:"cycles_run"`
}
