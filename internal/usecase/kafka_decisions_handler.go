package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"Aegis/internal/domain/models"
	drepo "Aegis/internal/domain/repository"
)

// KafkaDecisionsHandler lands decision events from the bus into the
// ClickHouse audit store. It runs when kafka is the primary backend so the
// audit trail stays queryable through the ops API.
type KafkaDecisionsHandler struct {
	topic   string
	store   drepo.DecisionStore
	metrics drepo.Metrics
}

func NewKafkaDecisionsHandler(topic string, store drepo.DecisionStore, metrics drepo.Metrics) *KafkaDecisionsHandler {
	return &KafkaDecisionsHandler{topic: topic, store: store, metrics: metrics}
}

// Topic implements kafka.MessageHandler.
func (h *KafkaDecisionsHandler) Topic() string { return h.topic }

type decisionEvent struct {
	TS           int64   `json:"ts"`
	Symbol       string  `json:"symbol"`
	Side         string  `json:"side"`
	Status       string  `json:"status"`
	ApprovedSize float64 `json:"approved_size"`
	MaxDrawdown  float64 `json:"max_drawdown"`
	Reasoning    string  `json:"reasoning"`
}

// Handle implements kafka.MessageHandler.
func (h *KafkaDecisionsHandler) Handle(ctx context.Context, data []byte) error {
	var ev decisionEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		h.metrics.RecordError("decision_event_decode")
		return fmt.Errorf("decode decision event: %w", err)
	}
	if ev.Status == "" {
		h.metrics.RecordError("decision_event_invalid")
		return fmt.Errorf("decision event missing status")
	}

	d := &models.RiskDecision{
		Timestamp:    time.Unix(ev.TS, 0),
		Symbol:       ev.Symbol,
		Side:         models.SignalSide(ev.Side),
		Status:       models.TradingStatus(ev.Status),
		ApprovedSize: ev.ApprovedSize,
		MaxDrawdown:  ev.MaxDrawdown,
		Reasoning:    ev.Reasoning,
	}
	return h.store.Store(ctx, d)
}
