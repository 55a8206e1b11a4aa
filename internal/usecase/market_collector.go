package usecase

import (
	"Aegis/internal/domain/models"
	drepo "Aegis/internal/domain/repository"
	"context"
)

// MarketCollector drains the live tick stream into the rolling history store
// that the decision cycle snapshots from.
type MarketCollector struct {
	stream  drepo.MarketStream
	store   drepo.HistoryStore
	metrics drepo.Metrics
}

// NewMarketCollector creates a new MarketCollector instance.
func NewMarketCollector(stream drepo.MarketStream, store drepo.HistoryStore, metrics drepo.Metrics) *MarketCollector {
	return &MarketCollector{stream: stream, store: store, metrics: metrics}
}

// IsConnected returns true if the market stream is connected.
func (c *MarketCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *MarketCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	tickCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, tickCh, errCh)
	return nil
}

func (c *MarketCollector) consume(ctx context.Context, tickCh <-chan *models.Tick, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			if err != nil {
				c.metrics.RecordError("stream")
				_ = c.stream.Reconnect(ctx)
			}
		case t := <-tickCh:
			if t == nil {
				continue
			}
			c.store.Append(t)
			c.metrics.RecordLastPrice(t.Symbol, t.Price)
		}
	}
}

func (c *MarketCollector) Stop() error { return c.stream.Close() }
