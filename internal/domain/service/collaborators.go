package service

import (
	"context"

	"Aegis/internal/domain/models"
)

// MarketDataSource provides per-symbol snapshots. A short or missing history
// must degrade to safe defaults downstream, never error the cycle.
type MarketDataSource interface {
	GetSnapshot(ctx context.Context, symbol string) (*models.Snapshot, error)
}

// CouncilMember is one opaque strategy voter. A failing member abstains
// (signal 0.0); it never takes the cycle down.
type CouncilMember interface {
	Name() string
	CalculateSignal(ctx context.Context, window []float64) (float64, error)
}

// Forecaster returns a quantile-based distribution forecast used for VaR/ES
// sizing and Nash distance.
type Forecaster interface {
	Forecast(ctx context.Context, symbol string, history []float64) (models.QuantileForecast, error)
}

// ReasoningEngine is the expensive reasoning collaborator, invoked only for
// the cycle's primary symbol.
type ReasoningEngine interface {
	GenerateSignal(ctx context.Context, c *models.Candidate) (models.ReasonedSignal, error)
}

// AccountSource reports the broker-side capital state sized against each
// cycle.
type AccountSource interface {
	Account(ctx context.Context) (models.AccountState, error)
}
