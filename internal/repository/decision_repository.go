package repository

import (
    "context"
    "database/sql"
    "fmt"
    "strings"
    "time"

	"Aegis/internal/domain/models"
	"Aegis/internal/domain/repository"
	pkgkafka "Aegis/pkg/kafka"
)

// ClickHouseDecisionStore implements DecisionStore for ClickHouse.
type ClickHouseDecisionStore struct {
	db    *sql.DB
	table string
}

// NewClickHouseDecisionStore creates the ClickHouse audit store.
func NewClickHouseDecisionStore(db *sql.DB, table string) repository.DecisionStore {
	return &ClickHouseDecisionStore{db: db, table: table}
}

func (s *ClickHouseDecisionStore) Store(ctx context.Context, d *models.RiskDecision) error {
	q := fmt.Sprintf("INSERT INTO %s (ts, symbol, side, status, approved_size, max_drawdown, reasoning) VALUES (?, ?, ?, ?, ?, ?, ?)", s.table)
	_, err := s.db.ExecContext(ctx, q,
		d.Timestamp,
		d.Symbol,
		string(d.Side),
		string(d.Status),
		d.ApprovedSize,
		d.MaxDrawdown,
		d.Reasoning,
	)
	return err
}

// StoreBatch inserts decisions in chunked multi-row VALUES to reduce
// round-trips.
func (s *ClickHouseDecisionStore) StoreBatch(ctx context.Context, decisions []*models.RiskDecision) error {
    if len(decisions) == 0 {
        return nil
    }
    const chunkSize = 2000
    for start := 0; start < len(decisions); start += chunkSize {
        end := start + chunkSize
        if end > len(decisions) { end = len(decisions) }

        values := make([]string, 0, end-start)
        args := make([]interface{}, 0, (end-start)*7)
        for _, d := range decisions[start:end] {
            if d == nil || d.Timestamp.IsZero() { continue }
            values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
            args = append(args,
                d.Timestamp,
                d.Symbol,
                string(d.Side),
                string(d.Status),
                d.ApprovedSize,
                d.MaxDrawdown,
                d.Reasoning,
            )
        }
        if len(values) == 0 { continue }
        q := fmt.Sprintf("INSERT INTO %s (ts, symbol, side, status, approved_size, max_drawdown, reasoning) VALUES %s", s.table, strings.Join(values, ","))
        if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
            return err
        }
    }
    return nil
}

func (s *ClickHouseDecisionStore) Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.RiskDecision, error) {
	q, args := buildDecisionQuery(s.table, symbol, from, to, limit)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var decisions []*models.RiskDecision
	for rows.Next() {
		var d models.RiskDecision
		var side, status string
		if err := rows.Scan(&d.Timestamp, &d.Symbol, &side, &status, &d.ApprovedSize, &d.MaxDrawdown, &d.Reasoning); err != nil {
			return nil, err
		}
		d.Side = models.SignalSide(side)
		d.Status = models.TradingStatus(status)
		decisions = append(decisions, &d)
	}
	return decisions, rows.Err()
}

// buildDecisionQuery filters by symbol only when one is given, so an empty
// symbol returns the latest decisions across the whole book.
func buildDecisionQuery(table, symbol string, from, to time.Time, limit int) (string, []interface{}) {
	where := "ts >= ? AND ts <= ?"
	args := []interface{}{from, to}
	if symbol != "" {
		where = "symbol = ? AND " + where
		args = append([]interface{}{symbol}, args...)
	}
	args = append(args, limit)
	q := fmt.Sprintf("SELECT ts, symbol, side, status, approved_size, max_drawdown, reasoning FROM %s WHERE %s ORDER BY ts DESC LIMIT ?", table, where)
	return q, args
}

func (s *ClickHouseDecisionStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseDecisionStore) Close() error {
	return nil // Managed by pkg
}

// KafkaDecisionPublisher implements DecisionPublisher for Kafka.
type KafkaDecisionPublisher struct {
    producer *pkgkafka.Producer
    topic    string
}

// NewKafkaDecisionPublisher creates the Kafka decision publisher.
func NewKafkaDecisionPublisher(producer *pkgkafka.Producer, topic string) repository.DecisionPublisher {
	return &KafkaDecisionPublisher{producer: producer, topic: topic}
}

func (p *KafkaDecisionPublisher) Publish(ctx context.Context, d *models.RiskDecision) error {
	return p.producer.Publish(ctx, p.topic, []byte(d.Symbol), map[string]interface{}{
		"ts":            d.Timestamp.Unix(),
		"symbol":        d.Symbol,
		"side":          string(d.Side),
		"status":        string(d.Status),
		"approved_size": d.ApprovedSize,
		"max_drawdown":  d.MaxDrawdown,
		"reasoning":     d.Reasoning,
	})
}

func (p *KafkaDecisionPublisher) PublishBatch(ctx context.Context, decisions []*models.RiskDecision) error {
	if len(decisions) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(decisions))
	for i, d := range decisions {
		msgs[i] = pkgkafka.Message{
			Key: []byte(d.Symbol),
			Value: map[string]interface{}{
				"ts":            d.Timestamp.Unix(),
				"symbol":        d.Symbol,
				"side":          string(d.Side),
				"status":        string(d.Status),
				"approved_size": d.ApprovedSize,
				"max_drawdown":  d.MaxDrawdown,
				"reasoning":     d.Reasoning,
			},
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaDecisionPublisher) Close() error {
    if p.producer != nil {
        return p.producer.Close()
    }
    return nil
}
