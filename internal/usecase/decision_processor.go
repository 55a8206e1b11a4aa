package usecase

import (
	"context"
	"fmt"
	"time"

	"Aegis/internal/domain/models"
	drepo "Aegis/internal/domain/repository"
)

// DecisionProcessor routes governed decisions to the configured audit
// backend.
type DecisionProcessor struct {
	pub     drepo.DecisionPublisher
	store   drepo.DecisionStore
	metrics drepo.Metrics
	backend string
}

// NewDecisionProcessor creates a new DecisionProcessor instance.
func NewDecisionProcessor(
	pub drepo.DecisionPublisher,
	store drepo.DecisionStore,
	metrics drepo.Metrics,
	backend string,
) *DecisionProcessor {
	return &DecisionProcessor{
		pub:     pub,
		store:   store,
		metrics: metrics,
		backend: backend,
	}
}

// Process routes a single decision to the configured backend.
func (p *DecisionProcessor) Process(ctx context.Context, d *models.RiskDecision) error {
	if d == nil {
		return fmt.Errorf("decision is nil")
	}

	start := time.Now()
	var err error

	switch p.backend {
	case "kafka":
		err = p.pub.Publish(ctx, d)
	case "clickhouse":
		err = p.store.Store(ctx, d)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("persist")
		return fmt.Errorf("persist decision: %w", err)
	}

	p.metrics.RecordLatency("persist", time.Since(start).Seconds())
	return nil
}

// ProcessBatch routes multiple decisions in one backend call.
func (p *DecisionProcessor) ProcessBatch(ctx context.Context, decisions []*models.RiskDecision) error {
	if len(decisions) == 0 {
		return nil
	}

	start := time.Now()
	var err error

	switch p.backend {
	case "kafka":
		err = p.pub.PublishBatch(ctx, decisions)
	case "clickhouse":
		err = p.store.StoreBatch(ctx, decisions)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("persist_batch")
		return fmt.Errorf("persist batch: %w", err)
	}

	p.metrics.RecordLatency("persist_batch", time.Since(start).Seconds())
	return nil
}

// Close closes underlying resources if available.
func (p *DecisionProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
	if p.store != nil {
		_ = p.store.Close()
	}
}
