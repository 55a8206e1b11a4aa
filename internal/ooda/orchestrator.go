// Package ooda runs the per-cycle Observe-Orient-Decide-Act loop: it fans
// out one analysis task per candidate symbol, enriches each with kinematics,
// tail-risk physics, reflexivity and council votes, applies the cluster veto
// and selects the cycle's primary decision.
package ooda

import (
	"context"
	"fmt"
	"sync"
	"time"

	"Aegis/internal/domain/models"
	drepo "Aegis/internal/domain/repository"
	dsvc "Aegis/internal/domain/service"
	"Aegis/internal/physics"
	"Aegis/internal/stats"
	"Aegis/internal/veto"
	xlogger "Aegis/pkg/logger"
)

const (
	// minRegimeHistory points before tail/Hurst classification runs; shorter
	// histories degrade to safe defaults instead of erroring the cycle.
	minRegimeHistory = 20

	// volatilityWindow for the realized-vol factor fed to the Kalman filter.
	volatilityWindow = 20

	// fallbackReasoning labels candidates that skipped the expensive
	// reasoning collaborator.
	fallbackReasoning = "heuristic: council consensus (no reasoning pass)"

	// councilSideThreshold on the mean vote before a direction is declared.
	councilSideThreshold = 0.1
)

// Orchestrator owns the per-symbol estimator registry and composes the
// estimators with the external collaborators. Distinct symbols may be
// analyzed concurrently; a given symbol is never analyzed twice in a cycle.
type Orchestrator struct {
	market  dsvc.MarketDataSource
	council []dsvc.CouncilMember
	reason  dsvc.ReasoningEngine
	metrics drepo.Metrics
	logger  *xlogger.Logger

	vetoEngine *veto.Engine

	mu          sync.Mutex
	estimators  map[string]*physics.KinematicEstimator
	reflexivity *physics.ReflexivityMonitor
}

// Options configures an Orchestrator.
type Options struct {
	Market    dsvc.MarketDataSource
	Council   []dsvc.CouncilMember
	Reasoning dsvc.ReasoningEngine
	Metrics   drepo.Metrics
	Logger    *xlogger.Logger
}

func New(opts Options) *Orchestrator {
	return &Orchestrator{
		market:      opts.Market,
		council:     opts.Council,
		reason:      opts.Reasoning,
		metrics:     opts.Metrics,
		logger:      opts.Logger,
		vetoEngine:  veto.NewEngine(),
		estimators:  make(map[string]*physics.KinematicEstimator),
		reflexivity: physics.NewReflexivityMonitor(),
	}
}

// RecordExecution reports an own fill to the reflexivity monitor so the next
// price observations can be correlated against it. Sells carry negative
// quantity.
func (o *Orchestrator) RecordExecution(symbol string, signedQty float64) {
	o.reflexivity.RecordExecution(symbol, signedQty)
}

// AnalyzeCycle runs one full decision cycle over the candidate symbols.
// Every candidate is analyzed in its own goroutine and joined before the
// cluster veto runs; a failing candidate is isolated, never the cycle.
// Duplicate symbols are analyzed once: each symbol's estimator must only
// ever be touched by a single task per cycle.
func (o *Orchestrator) AnalyzeCycle(ctx context.Context, candidateSymbols []string, primarySymbol string, portfolio map[string][]float64) *models.CycleResult {
	result := &models.CycleResult{Timestamp: time.Now()}
	symbols := dedupSymbols(candidateSymbols)
	if len(symbols) == 0 {
		return result
	}

	candidates := make([]*models.Candidate, len(symbols))
	var wg sync.WaitGroup
	for i, symbol := range symbols {
		wg.Add(1)
		go func(i int, symbol string) {
			defer wg.Done()
			candidates[i] = o.analyzeCandidate(ctx, symbol, symbol == primarySymbol)
		}(i, symbol)
	}
	wg.Wait()

	result.Candidates = o.vetoEngine.ApplyVeto(candidates, portfolio)
	for _, c := range result.Candidates {
		if c.Vetoed() {
			o.metrics.RecordVeto("cluster")
		}
	}

	result.Primary = selectPrimary(result.Candidates, primarySymbol)
	return result
}

// analyzeCandidate enriches a single symbol. Panics and collaborator errors
// are confined to the returned candidate (success=false).
func (o *Orchestrator) analyzeCandidate(ctx context.Context, symbol string, isPrimary bool) (c *models.Candidate) {
	c = &models.Candidate{Symbol: symbol, Side: models.SideFlat}
	defer func() {
		if r := recover(); r != nil {
			c.Fail(fmt.Sprintf("analysis panic: %v", r))
			o.metrics.RecordCandidateFailure(symbol)
			o.logger.Error("candidate analysis panicked",
				xlogger.String("symbol", symbol), xlogger.Any("panic", r))
		}
	}()

	snap, err := o.market.GetSnapshot(ctx, symbol)
	if err != nil || snap == nil {
		c.Fail("snapshot unavailable")
		o.metrics.RecordCandidateFailure(symbol)
		return c
	}
	c.Price = snap.Price
	c.History = snap.History

	returns := stats.LogReturns(snap.History)
	volFactor := stats.RealizedVolatility(returns, min(volatilityWindow, len(returns)))

	state := o.estimatorFor(symbol).Update(snap.Price, volFactor)
	c.Velocity = state.Velocity
	c.Acceleration = state.Acceleration

	// Tail physics degrade to the neutral defaults on short history.
	if len(snap.History) >= minRegimeHistory {
		rm := physics.ComputeRegimeMetrics(returns)
		c.Alpha = rm.Alpha
		c.Regime = rm.Regime
		_, c.Hurst = physics.EstimateHurst(snap.History)
	} else {
		c.Alpha = 3.0
		c.Regime = models.RegimeLevyStable
		c.Hurst = models.HurstNeutral
	}

	c.Reflexivity = o.reflexivity.ObservePrice(symbol, snap.Price).ReflexivityIndex

	side, confidence := o.pollCouncil(ctx, symbol, snap.History)
	c.Side = side
	c.Confidence = confidence
	c.Reasoning = fallbackReasoning

	if isPrimary && o.reason != nil {
		if rs, rerr := o.reason.GenerateSignal(ctx, c); rerr == nil {
			c.Side = rs.Side
			c.Confidence = rs.Confidence
			c.Reasoning = rs.Reasoning
		} else {
			o.metrics.RecordError("reasoning")
			o.logger.Warn("reasoning collaborator failed, keeping council signal",
				xlogger.String("symbol", symbol), xlogger.Error(rerr))
		}
	}

	if c.Price > 0 {
		c.Urgency = ComputeUrgency(c.Velocity/c.Price, c.Acceleration/c.Price, c.Reflexivity)
	}

	c.Success = true
	return c
}

// pollCouncil gathers one vote per member; a failing member abstains with
// 0.0 and never interrupts the cycle.
func (o *Orchestrator) pollCouncil(ctx context.Context, symbol string, window []float64) (models.SignalSide, float64) {
	if len(o.council) == 0 {
		return models.SideFlat, 0
	}
	sum := 0.0
	for _, member := range o.council {
		signal, err := member.CalculateSignal(ctx, window)
		if err != nil {
			o.metrics.RecordError("council_" + member.Name())
			continue // abstain
		}
		sum += stats.Clamp(signal, -1, 1)
	}
	mean := sum / float64(len(o.council))
	switch {
	case mean > councilSideThreshold:
		return models.SideBuy, stats.Clamp(mean, 0, 1)
	case mean < -councilSideThreshold:
		return models.SideSell, stats.Clamp(-mean, 0, 1)
	default:
		return models.SideFlat, 0
	}
}

// estimatorFor returns the symbol's exclusive estimator, creating it on
// first observation. The registry lock only guards map access; estimator
// updates are exclusive because a symbol appears at most once per cycle.
func (o *Orchestrator) estimatorFor(symbol string) *physics.KinematicEstimator {
	o.mu.Lock()
	defer o.mu.Unlock()
	e, ok := o.estimators[symbol]
	if !ok {
		e = physics.NewKinematicEstimator()
		o.estimators[symbol] = e
	}
	return e
}

// selectPrimary hoists the declared primary, replacing it with the highest
// confidence healthy non-critical candidate when it failed, was vetoed or
// sits in a critical regime. No qualifying candidate means no primary.
func selectPrimary(candidates []*models.Candidate, primarySymbol string) *models.Candidate {
	var declared *models.Candidate
	for _, c := range candidates {
		if c.Symbol == primarySymbol {
			declared = c
			break
		}
	}
	if declared != nil && declared.Success && !declared.Vetoed() && declared.Regime != models.RegimeCritical {
		return declared
	}

	var best *models.Candidate
	for _, c := range candidates {
		if !c.Success || c.Vetoed() || c.Regime == models.RegimeCritical {
			continue
		}
		if best == nil || c.Confidence > best.Confidence {
			best = c
		}
	}
	return best
}

// dedupSymbols keeps the first occurrence of each symbol, dropping blanks.
func dedupSymbols(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
