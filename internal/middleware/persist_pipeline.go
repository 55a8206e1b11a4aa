package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"Aegis/internal/domain/models"
	domrepo "Aegis/internal/domain/repository"
)

// Proc is the minimal processor interface the pipeline needs.
type Proc interface {
	Process(ctx context.Context, d *models.RiskDecision) error
}

// PersistPipeline sits between the decision engine and the audit backend.
// It validates, forwards, and buffers when downstream is unavailable, so a
// slow or dead backend never stalls the decision loop.
type PersistPipeline struct {
	proc    Proc
	metrics domrepo.Metrics
	bufSize int
	bufCh   chan *models.RiskDecision
	stopCh  chan struct{}
	started bool
	mu      sync.Mutex
	// metrics
	bufDepthGauge func(int)
}

type PipelineOption func(*PersistPipeline)

// WithBufferSize sets the temporary buffer size when downstream is unavailable.
func WithBufferSize(n int) PipelineOption {
	return func(p *PersistPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// NewPersistPipeline creates a new pipeline.
func NewPersistPipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *PersistPipeline {
	p := &PersistPipeline{
		proc:    proc,
		metrics: metrics,
		bufSize: 1000, // default buffer
		bufCh:   make(chan *models.RiskDecision, 1000),
		stopCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufSize != cap(p.bufCh) {
		p.bufCh = make(chan *models.RiskDecision, p.bufSize)
	}
	p.bufDepthGauge = func(n int) { p.metrics.RecordLatency("pipeline_buffer_depth", float64(n)) }
	return p
}

// Start launches background flushing of buffered decisions.
func (p *PersistPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case d := <-p.bufCh:
				if d == nil {
					continue
				}
				if err := p.proc.Process(ctx, d); err != nil {
					// exponential backoff with cap
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
					// requeue if space; drop otherwise
					select {
					case p.bufCh <- d:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (p *PersistPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Process validates and forwards a decision downstream, buffering on errors.
func (p *PersistPipeline) Process(ctx context.Context, d *models.RiskDecision) error {
	start := time.Now()
	if err := validateDecision(d); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}

	if err := p.proc.Process(ctx, d); err != nil {
		p.metrics.RecordError("pipeline_process")
		// buffer non-blocking
		select {
		case p.bufCh <- d:
			if p.bufDepthGauge != nil {
				p.bufDepthGauge(len(p.bufCh))
			}
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

func validateDecision(d *models.RiskDecision) error {
	if d == nil {
		return fmt.Errorf("decision nil")
	}
	if d.Timestamp.IsZero() {
		return fmt.Errorf("timestamp invalid")
	}
	if d.Status == "" {
		return fmt.Errorf("status empty")
	}
	if d.ApprovedSize < 0 {
		return fmt.Errorf("negative approved size")
	}
	return nil
}
