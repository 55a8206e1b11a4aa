package repository

import (
	"context"
	"time"

	"Aegis/internal/domain/models"
)

// MarketStream is a live tick feed.
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Tick, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// HistoryStore holds bounded per-symbol rolling price history fed by the
// market collector and read by the snapshot source.
type HistoryStore interface {
	Append(tick *models.Tick)
	Snapshot(symbol string) (*models.Snapshot, bool)
}

// DecisionPublisher emits decision events to a message bus.
type DecisionPublisher interface {
	Publish(ctx context.Context, d *models.RiskDecision) error
	PublishBatch(ctx context.Context, decisions []*models.RiskDecision) error
	Close() error
}

// DecisionStore is the audit log of governed decisions.
type DecisionStore interface {
	Store(ctx context.Context, d *models.RiskDecision) error
	StoreBatch(ctx context.Context, decisions []*models.RiskDecision) error
	Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.RiskDecision, error)
	Health(ctx context.Context) error
	Close() error
}

// Metrics is the observability port. Recording must never block or fail the
// decision path.
type Metrics interface {
	RecordCycle(outcome string)
	RecordCandidateFailure(symbol string)
	RecordVeto(reason string)
	RecordTradingStatus(status string)
	RecordMaxDrawdown(dd float64)
	RecordApprovedNotional(symbol string, notional float64)
	RecordLastPrice(symbol string, price float64)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
