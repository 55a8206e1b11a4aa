package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"Aegis/internal/domain/models"
	drepo "Aegis/internal/domain/repository"
	dsvc "Aegis/internal/domain/service"
	mid "Aegis/internal/middleware"
	xlogger "Aegis/pkg/logger"
	"Aegis/pkg/queue"
)

// Orchestrator runs one analysis cycle over the candidate symbols and
// receives reports of the engine's own fills for reflexivity tracking.
type Orchestrator interface {
	AnalyzeCycle(ctx context.Context, candidateSymbols []string, primarySymbol string, portfolio map[string][]float64) *models.CycleResult
	RecordExecution(symbol string, signedQty float64)
}

// Governor produces the terminal risk decision for a cycle.
type Governor interface {
	Govern(ctx context.Context, primary *models.Candidate, account models.AccountState) models.RiskDecision
	Sleep()
	Wake()
	Status() models.TradingStatus
	MaxDrawdown() float64
}

// DecisionEngine drives the decision loop: session gating, the analysis
// cycle, governance and fire-and-forget persistence. The kill switch is an
// operator override checked at the top of every cycle.
type DecisionEngine struct {
	orchestrator Orchestrator
	governor     Governor
	accounts     dsvc.AccountSource
	pipe         *mid.PersistPipeline
	clock        *SessionClock
	alerts       queue.QueueService
	metrics      drepo.Metrics
	logger       *xlogger.Logger

	prevStatus models.TradingStatus

	symbols  []string
	interval time.Duration
	cursor   int

	killed     atomic.Bool
	killReason string
	killMu     sync.Mutex
	cycles     atomic.Uint64

	lastMu sync.RWMutex
	last   *models.RiskDecision
}

// EngineOptions configures a DecisionEngine.
type EngineOptions struct {
	Orchestrator Orchestrator
	Governor     Governor
	Accounts     dsvc.AccountSource
	Pipeline     *mid.PersistPipeline
	Clock        *SessionClock
	Alerts       queue.QueueService
	Metrics      drepo.Metrics
	Logger       *xlogger.Logger
	Symbols      []string
	Interval     time.Duration
}

func NewDecisionEngine(opts EngineOptions) *DecisionEngine {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Second
	}
	return &DecisionEngine{
		orchestrator: opts.Orchestrator,
		governor:     opts.Governor,
		accounts:     opts.Accounts,
		pipe:         opts.Pipeline,
		clock:        opts.Clock,
		alerts:       opts.Alerts,
		metrics:      opts.Metrics,
		logger:       opts.Logger,
		symbols:      opts.Symbols,
		interval:     opts.Interval,
	}
}

// Run drives cycles at the configured interval until the context ends.
func (e *DecisionEngine) Run(ctx context.Context) {
	if e.pipe != nil {
		e.pipe.Start(ctx)
	}
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if e.pipe != nil {
				e.pipe.Stop()
			}
			return
		case <-ticker.C:
			e.RunCycle(ctx)
		}
	}
}

// RunCycle executes one full cycle and returns the governed decision.
func (e *DecisionEngine) RunCycle(ctx context.Context) models.RiskDecision {
	start := time.Now()
	e.cycles.Add(1)

	if e.killed.Load() {
		d := models.RiskDecision{
			Timestamp: time.Now(),
			Side:      models.SideFlat,
			Status:    e.governor.Status(),
			Reasoning: "kill switch engaged: " + e.KillReason(),
		}
		e.metrics.RecordCycle("killed")
		e.record(d)
		return d
	}

	if e.clock != nil {
		if e.clock.InSession(time.Now()) {
			e.governor.Wake()
		} else {
			e.governor.Sleep()
			d := models.RiskDecision{
				Timestamp: time.Now(),
				Side:      models.SideFlat,
				Status:    models.StatusSleeping,
				Reasoning: "market session closed",
			}
			e.metrics.RecordCycle(string(d.Status))
			e.record(d)
			return d
		}
	}

	account, err := e.accounts.Account(ctx)
	if err != nil {
		d := models.RiskDecision{
			Timestamp: time.Now(),
			Side:      models.SideFlat,
			Status:    e.governor.Status(),
			Reasoning: "fail-closed: account state unavailable",
		}
		e.metrics.RecordError("account")
		e.metrics.RecordCycle("account_error")
		e.record(d)
		return d
	}

	res := e.orchestrator.AnalyzeCycle(ctx, e.symbols, e.primarySymbol(), account.HeldHistories)
	d := e.governor.Govern(ctx, res.Primary, account)

	e.reportExecution(d)
	e.persist(d)
	e.alertOnTransition(d)
	e.metrics.RecordCycle(string(d.Status))
	e.metrics.RecordLatency("cycle", time.Since(start).Seconds())
	e.record(d)
	return d
}

// Halt engages the operator kill switch; Resume releases it.
func (e *DecisionEngine) Halt(reason string) {
	e.killMu.Lock()
	e.killReason = reason
	e.killMu.Unlock()
	e.killed.Store(true)
	e.logger.Warn("kill switch engaged", xlogger.String("reason", reason))
}

func (e *DecisionEngine) Resume() {
	e.killed.Store(false)
	e.logger.Info("kill switch released")
}

func (e *DecisionEngine) Killed() bool { return e.killed.Load() }

// Cycles returns the number of cycles run since start.
func (e *DecisionEngine) Cycles() uint64 { return e.cycles.Load() }

// Governor exposes the governor for status reporting.
func (e *DecisionEngine) GovernorState() (models.TradingStatus, float64) {
	return e.governor.Status(), e.governor.MaxDrawdown()
}

func (e *DecisionEngine) KillReason() string {
	e.killMu.Lock()
	defer e.killMu.Unlock()
	return e.killReason
}

// LastDecision returns the most recent cycle's decision, nil before the
// first cycle.
func (e *DecisionEngine) LastDecision() *models.RiskDecision {
	e.lastMu.RLock()
	defer e.lastMu.RUnlock()
	return e.last
}

// primarySymbol rotates the deep-reasoning slot across the symbol set so
// every symbol periodically gets the expensive pass.
func (e *DecisionEngine) primarySymbol() string {
	if len(e.symbols) == 0 {
		return ""
	}
	s := e.symbols[e.cursor%len(e.symbols)]
	e.cursor++
	return s
}

// reportExecution feeds an approved fill back into the reflexivity ring so
// subsequent price observations can be correlated with the engine's own
// activity. Only sized ACTIVE decisions count; sells carry negative volume.
func (e *DecisionEngine) reportExecution(d models.RiskDecision) {
	if d.Status != models.StatusActive || d.ApprovedSize <= 0 || d.Symbol == "" {
		return
	}
	switch d.Side {
	case models.SideBuy:
		e.orchestrator.RecordExecution(d.Symbol, d.ApprovedSize)
	case models.SideSell:
		e.orchestrator.RecordExecution(d.Symbol, -d.ApprovedSize)
	}
}

// persist hands the decision to the audit pipeline without blocking the
// decision loop.
func (e *DecisionEngine) persist(d models.RiskDecision) {
	if e.pipe == nil {
		return
	}
	go func(d models.RiskDecision) {
		pctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.pipe.Process(pctx, &d); err != nil {
			e.logger.Warn("decision persist failed", xlogger.Error(err))
		}
	}(d)
}

// alertOnTransition pushes a risk alert onto the ops queue when the session
// enters a halted state. Fire-and-forget; alerting never blocks a cycle.
func (e *DecisionEngine) alertOnTransition(d models.RiskDecision) {
	prev := e.prevStatus
	e.prevStatus = d.Status
	if e.alerts == nil || d.Status == prev {
		return
	}
	if d.Status != models.StatusHaltedDrawdown && d.Status != models.StatusHaltedPhysics {
		return
	}
	go func(d models.RiskDecision) {
		actx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := e.alerts.PublishMessage(actx, "risk_alert", map[string]interface{}{
			"status":       string(d.Status),
			"symbol":       d.Symbol,
			"max_drawdown": d.MaxDrawdown,
			"reasoning":    d.Reasoning,
			"ts":           d.Timestamp.Unix(),
		}); err != nil {
			e.logger.Warn("risk alert publish failed", xlogger.Error(err))
		}
	}(d)
}

func (e *DecisionEngine) record(d models.RiskDecision) {
	e.lastMu.Lock()
	e.last = &d
	e.lastMu.Unlock()
}
