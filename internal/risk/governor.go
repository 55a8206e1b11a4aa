// Package risk is the final gate of the decision pipeline: a session-scoped
// state machine enforcing circuit breakers, equilibrium vetoes, settlement
// constraints and quantile-based position sizing. Every internal failure
// degrades to a zero-size decision; the governor never throws a cycle away.
package risk

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"Aegis/internal/domain/models"
	drepo "Aegis/internal/domain/repository"
	dsvc "Aegis/internal/domain/service"
	"Aegis/internal/stats"
	xlogger "Aegis/pkg/logger"
)

// Config carries the governance thresholds.
type Config struct {
	// DrawdownLimit on (startingCapital-nav)/startingCapital before the
	// sticky session halt engages.
	DrawdownLimit float64

	// NashThreshold in sigmas of standardized distance from the forecast
	// mode beyond which momentum entries are flattened.
	NashThreshold float64

	// HardCorrLimit and SoftCorrLimit bound correlation with held positions:
	// above hard is a veto, within (soft, hard] is a (1-corr) haircut.
	HardCorrLimit float64
	SoftCorrLimit float64

	// SettlementFloor is the minimum buying power (USD) a non-PDT-exempt
	// account needs before new BUY entries clear the settlement gate.
	SettlementFloor float64

	// RiskBudget is the per-trade fraction of NAV put at VaR.
	RiskBudget float64
}

// DefaultConfig matches the production thresholds.
func DefaultConfig() Config {
	return Config{
		DrawdownLimit:   0.02,
		NashThreshold:   2.0,
		HardCorrLimit:   0.85,
		SoftCorrLimit:   0.70,
		SettlementFloor: 20.0,
		RiskBudget:      0.01,
	}
}

// Governor is the risk state machine. It is session-scoped: the drawdown
// halt is sticky until a new Governor is built for the next session.
type Governor struct {
	cfg        Config
	forecaster dsvc.Forecaster
	metrics    drepo.Metrics
	logger     *xlogger.Logger

	mu             sync.Mutex
	haltedDrawdown bool
	sleeping       bool
	maxDrawdown    float64
	lastStatus     models.TradingStatus
}

func NewGovernor(cfg Config, forecaster dsvc.Forecaster, metrics drepo.Metrics, logger *xlogger.Logger) *Governor {
	return &Governor{
		cfg:        cfg,
		forecaster: forecaster,
		metrics:    metrics,
		logger:     logger,
		lastStatus: models.StatusActive,
	}
}

// MaxDrawdown returns the session's running maximum drawdown.
func (g *Governor) MaxDrawdown() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.maxDrawdown
}

// Status returns the most recent trading status.
func (g *Governor) Status() models.TradingStatus {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastStatus
}

// Sleep marks the session as outside trading hours; Wake reverses it.
// Sleeping never overrides the sticky drawdown halt.
func (g *Governor) Sleep() { g.mu.Lock(); g.sleeping = true; g.mu.Unlock() }
func (g *Governor) Wake()  { g.mu.Lock(); g.sleeping = false; g.mu.Unlock() }

// Govern produces the terminal decision for one cycle. It never returns an
// error and never panics outward; any internal failure yields a zero-size
// decision with the failure as reasoning.
func (g *Governor) Govern(ctx context.Context, primary *models.Candidate, account models.AccountState) (d models.RiskDecision) {
	defer func() {
		if r := recover(); r != nil {
			d = g.finish(models.RiskDecision{
				Timestamp: time.Now(),
				Status:    models.StatusActive,
				Reasoning: fmt.Sprintf("governor fail-closed: %v", r),
			})
			g.metrics.RecordError("governor_panic")
		}
	}()

	d = models.RiskDecision{Timestamp: time.Now(), Side: models.SideFlat}
	if primary != nil {
		d.Symbol = primary.Symbol
		d.Side = primary.Side
	}

	// Circuit breaker first: the drawdown halt is sticky for the session and
	// max drawdown only ever ratchets up.
	drawdown := 0.0
	if account.StartingCapital > 0 {
		drawdown = (account.StartingCapital - account.NAV) / account.StartingCapital
	}
	g.mu.Lock()
	if drawdown > g.maxDrawdown {
		g.maxDrawdown = drawdown
	}
	if drawdown >= g.cfg.DrawdownLimit {
		g.haltedDrawdown = true
	}
	halted := g.haltedDrawdown
	sleeping := g.sleeping
	g.mu.Unlock()

	if halted {
		d.Status = models.StatusHaltedDrawdown
		d.Side = models.SideFlat
		d.Reasoning = fmt.Sprintf("circuit breaker: drawdown %.2f%% breached %.2f%% limit", drawdown*100, g.cfg.DrawdownLimit*100)
		return g.finish(d)
	}
	if sleeping {
		d.Status = models.StatusSleeping
		d.Side = models.SideFlat
		d.Reasoning = "market session closed"
		return g.finish(d)
	}
	if primary != nil && primary.Regime == models.RegimeCritical {
		d.Status = models.StatusHaltedPhysics
		d.Side = models.SideFlat
		d.Reasoning = fmt.Sprintf("physics veto: %s in critical regime (alpha=%.2f)", primary.Symbol, primary.Alpha)
		return g.finish(d)
	}

	d.Status = models.StatusActive
	if primary == nil || primary.Side == models.SideFlat {
		d.Reasoning = "no actionable primary candidate"
		return g.finish(d)
	}

	forecast, err := g.forecaster.Forecast(ctx, primary.Symbol, primary.History)
	if err != nil {
		d.Side = models.SideFlat
		d.Reasoning = fmt.Sprintf("fail-closed: forecaster unavailable (%v)", err)
		g.metrics.RecordError("forecaster")
		return g.finish(d)
	}

	// Nash equilibrium veto: entries chasing price far beyond the forecast
	// mode are flattened; the trading status is unaffected.
	if dist, ok := nashDistance(primary.Price, forecast); ok {
		if (primary.Side == models.SideBuy && dist > g.cfg.NashThreshold) ||
			(primary.Side == models.SideSell && dist < -g.cfg.NashThreshold) {
			d.Side = models.SideFlat
			d.Reasoning = fmt.Sprintf("Nash veto: price %.2f sigma from equilibrium mode", dist)
			g.metrics.RecordVeto("nash")
			return g.finish(d)
		}
	}

	// Settlement gate for cash-constrained accounts.
	if primary.Side == models.SideBuy && !account.PDTExempt && account.BuyingPower < g.cfg.SettlementFloor {
		d.Side = models.SideFlat
		d.Reasoning = fmt.Sprintf("Settlement Lock: buying power $%.2f below $%.2f floor", account.BuyingPower, g.cfg.SettlementFloor)
		g.metrics.RecordVeto("settlement")
		return g.finish(d)
	}

	// Correlation against the held book: hard veto above the hard limit,
	// linear haircut inside the soft band.
	corrMultiplier := 1.0
	if maxCorr := maxHeldCorrelation(primary.History, account.HeldHistories); maxCorr > g.cfg.HardCorrLimit {
		d.Side = models.SideFlat
		d.Reasoning = fmt.Sprintf("portfolio correlation veto: max |corr|=%.3f", maxCorr)
		g.metrics.RecordVeto("portfolio_correlation")
		return g.finish(d)
	} else if maxCorr > g.cfg.SoftCorrLimit {
		corrMultiplier = 1 - maxCorr
	}

	d.ApprovedSize = g.size(primary, account, forecast) * corrMultiplier
	if d.ApprovedSize < 0 {
		d.ApprovedSize = 0
	}
	d.Reasoning = fmt.Sprintf("approved: %s %s notional %.2f (alpha=%.2f confidence=%.2f)",
		d.Side, d.Symbol, d.ApprovedSize, primary.Alpha, primary.Confidence)
	return g.finish(d)
}

// size computes the VaR-budgeted notional: the per-unit adverse move implied
// by the forecast deciles sets how much NAV the risk budget can carry,
// scaled down by tail heaviness and signal confidence, capped by the
// regime's leverage limit.
func (g *Governor) size(primary *models.Candidate, account models.AccountState, forecast models.QuantileForecast) float64 {
	mode := forecast.Mode()
	if mode <= 0 || account.NAV <= 0 {
		return 0
	}

	var adverse float64
	if primary.Side == models.SideBuy {
		adverse = (mode - forecast.Quantiles[0]) / mode
	} else {
		adverse = (forecast.Quantiles[8] - mode) / mode
	}
	if adverse <= 0 {
		return 0
	}

	sizePct := g.cfg.RiskBudget / adverse
	sizePct *= stats.Clamp(primary.Alpha-1.5, 0, 1)
	sizePct *= stats.Clamp(primary.Confidence, 0, 1)

	if cap := leverageFor(primary.Regime); sizePct > cap {
		sizePct = cap
	}
	return sizePct * account.NAV
}

// finish records metrics and the last status; every Govern exit passes here.
func (g *Governor) finish(d models.RiskDecision) models.RiskDecision {
	g.mu.Lock()
	g.lastStatus = d.Status
	d.MaxDrawdown = g.maxDrawdown
	g.mu.Unlock()

	if d.Status != models.StatusActive {
		d.ApprovedSize = 0
	}
	g.metrics.RecordTradingStatus(string(d.Status))
	g.metrics.RecordMaxDrawdown(d.MaxDrawdown)
	if d.ApprovedSize > 0 {
		g.metrics.RecordApprovedNotional(d.Symbol, d.ApprovedSize)
	}
	return d
}

// nashDistance standardizes the price's distance from the forecast mode
// using the inter-decile spread as the sigma proxy. A degenerate spread
// reports not-ok and disables the veto.
func nashDistance(price float64, forecast models.QuantileForecast) (float64, bool) {
	// 20%..80% deciles sit at +/-0.8416 sigma under normality.
	const z2080 = 0.8416
	sigma := (forecast.Quantiles[7] - forecast.Quantiles[1]) / (2 * z2080)
	if sigma <= 0 || math.IsNaN(sigma) {
		return 0, false
	}
	return (price - forecast.Mode()) / sigma, true
}

// maxHeldCorrelation returns the largest |corr| between the candidate's
// history and any held position over a common truncated window, using the
// same qualification rules as the cluster veto (>10 points, cap 100).
func maxHeldCorrelation(history []float64, held map[string][]float64) float64 {
	if len(history) <= 10 || len(held) == 0 {
		return 0
	}
	maxCorr := 0.0
	for _, h := range held {
		if len(h) <= 10 {
			continue
		}
		window := len(history)
		if len(h) < window {
			window = len(h)
		}
		if window > 100 {
			window = 100
		}
		r, ok := stats.Pearson(history[len(history)-window:], h[len(h)-window:])
		if !ok {
			continue
		}
		if a := math.Abs(r); a > maxCorr {
			maxCorr = a
		}
	}
	return maxCorr
}

// leverageFor mirrors the physics regime caps without importing the
// estimator package.
func leverageFor(regime models.TailRegime) float64 {
	switch regime {
	case models.RegimeGaussian:
		return 1.0
	case models.RegimeLevyStable:
		return 0.5
	default:
		return 0.0
	}
}
