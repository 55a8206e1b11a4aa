package risk

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"Aegis/internal/domain/models"
	xlogger "Aegis/pkg/logger"
)

type fakeForecaster struct {
	forecast models.QuantileForecast
	err      error
}

func (f fakeForecaster) Forecast(context.Context, string, []float64) (models.QuantileForecast, error) {
	return f.forecast, f.err
}

type nopMetrics struct{}

func (nopMetrics) RecordCycle(string)                     {}
func (nopMetrics) RecordCandidateFailure(string)          {}
func (nopMetrics) RecordVeto(string)                      {}
func (nopMetrics) RecordTradingStatus(string)             {}
func (nopMetrics) RecordMaxDrawdown(float64)              {}
func (nopMetrics) RecordApprovedNotional(string, float64) {}
func (nopMetrics) RecordLastPrice(string, float64)        {}
func (nopMetrics) RecordError(string)                     {}
func (nopMetrics) RecordLatency(string, float64)          {}

// normalForecast builds deciles of a normal distribution around mode with
// the given sigma, so nashDistance recovers sigma exactly.
func normalForecast(mode, sigma float64) models.QuantileForecast {
	z := [9]float64{-1.2816, -0.8416, -0.5244, -0.2533, 0, 0.2533, 0.5244, 0.8416, 1.2816}
	var q models.QuantileForecast
	for i, zi := range z {
		q.Quantiles[i] = mode + sigma*zi
	}
	return q
}

func testGovernor(t *testing.T, f fakeForecaster) *Governor {
	t.Helper()
	l, err := xlogger.New(&xlogger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return NewGovernor(DefaultConfig(), f, nopMetrics{}, l)
}

func buyCandidate(price float64) *models.Candidate {
	return &models.Candidate{
		Symbol:     "BTC",
		Price:      price,
		Side:       models.SideBuy,
		Confidence: 0.8,
		Alpha:      3.5,
		Regime:     models.RegimeGaussian,
		History:    rampHistory(30, price-3, 0.1),
		Success:    true,
	}
}

func rampHistory(n int, start, step float64) []float64 {
	out := make([]float64, n)
	p := start
	for i := range out {
		p += step
		out[i] = p
	}
	return out
}

func account(nav float64) models.AccountState {
	return models.AccountState{
		StartingCapital: 100000,
		NAV:             nav,
		BuyingPower:     50000,
		PDTExempt:       true,
	}
}

func TestDrawdownHaltSticky(t *testing.T) {
	g := testGovernor(t, fakeForecaster{forecast: normalForecast(100, 1)})

	d := g.Govern(context.Background(), buyCandidate(100), account(97400))
	if d.Status != models.StatusHaltedDrawdown {
		t.Fatalf("2.6%% drawdown must halt, got %v", d.Status)
	}
	if d.ApprovedSize != 0 {
		t.Fatalf("halted status must zero the size, got %v", d.ApprovedSize)
	}

	// Recovery does not lift the halt within the session.
	d = g.Govern(context.Background(), buyCandidate(100), account(100000))
	if d.Status != models.StatusHaltedDrawdown || d.ApprovedSize != 0 {
		t.Fatalf("drawdown halt must be sticky, got %v size=%v", d.Status, d.ApprovedSize)
	}
}

func TestMaxDrawdownMonotone(t *testing.T) {
	g := testGovernor(t, fakeForecaster{forecast: normalForecast(100, 1)})

	g.Govern(context.Background(), buyCandidate(100), account(99000)) // dd 1%
	first := g.MaxDrawdown()
	g.Govern(context.Background(), buyCandidate(100), account(99500)) // dd 0.5%
	second := g.MaxDrawdown()
	g.Govern(context.Background(), buyCandidate(100), account(97000)) // dd 3%
	third := g.MaxDrawdown()

	if second < first {
		t.Fatalf("max drawdown decreased: %v -> %v", first, second)
	}
	if third < 0.03-1e-9 {
		t.Fatalf("max drawdown should ratchet to 3%%, got %v", third)
	}
}

func TestPhysicsHaltOnCriticalRegime(t *testing.T) {
	g := testGovernor(t, fakeForecaster{forecast: normalForecast(100, 1)})
	c := buyCandidate(100)
	c.Regime = models.RegimeCritical
	c.Alpha = 1.4

	d := g.Govern(context.Background(), c, account(100000))
	if d.Status != models.StatusHaltedPhysics || d.ApprovedSize != 0 {
		t.Fatalf("critical regime must halt physics: %v size=%v", d.Status, d.ApprovedSize)
	}
}

func TestNashVeto(t *testing.T) {
	g := testGovernor(t, fakeForecaster{forecast: normalForecast(100, 1)})

	// BUY 2.1 sigma above the mode: flattened, status stays ACTIVE.
	d := g.Govern(context.Background(), buyCandidate(102.1), account(100000))
	if d.Side != models.SideFlat || d.ApprovedSize != 0 {
		t.Fatalf("BUY at +2.1 sigma must flatten, got %v size=%v", d.Side, d.ApprovedSize)
	}
	if d.Status != models.StatusActive {
		t.Fatalf("Nash veto must not change trading status, got %v", d.Status)
	}

	// BUY 1.9 sigma above: unchanged.
	d = g.Govern(context.Background(), buyCandidate(101.9), account(100000))
	if d.Side != models.SideBuy || d.ApprovedSize <= 0 {
		t.Fatalf("BUY at +1.9 sigma must pass, got %v size=%v", d.Side, d.ApprovedSize)
	}

	// SELL 2.1 sigma below: flattened.
	c := buyCandidate(97.9)
	c.Side = models.SideSell
	d = g.Govern(context.Background(), c, account(100000))
	if d.Side != models.SideFlat || d.ApprovedSize != 0 {
		t.Fatalf("SELL at -2.1 sigma must flatten, got %v size=%v", d.Side, d.ApprovedSize)
	}
}

func TestSettlementGate(t *testing.T) {
	g := testGovernor(t, fakeForecaster{forecast: normalForecast(100, 1)})

	acct := account(100000)
	acct.PDTExempt = false
	acct.BuyingPower = 19.99
	d := g.Govern(context.Background(), buyCandidate(100), acct)
	if d.Side != models.SideFlat || !strings.Contains(d.Reasoning, "Settlement Lock") {
		t.Fatalf("expected Settlement Lock, got %v %q", d.Side, d.Reasoning)
	}

	acct.BuyingPower = 20.01
	d = g.Govern(context.Background(), buyCandidate(100), acct)
	if d.Side != models.SideBuy || d.ApprovedSize <= 0 {
		t.Fatalf("buying power above floor must pass, got %v size=%v", d.Side, d.ApprovedSize)
	}

	// SELL is never settlement gated.
	acct.BuyingPower = 5
	c := buyCandidate(100)
	c.Side = models.SideSell
	d = g.Govern(context.Background(), c, acct)
	if d.Side != models.SideSell {
		t.Fatalf("settlement gate must only veto BUY, got %v", d.Side)
	}
}

func TestPortfolioCorrelationHardVeto(t *testing.T) {
	g := testGovernor(t, fakeForecaster{forecast: normalForecast(100, 1)})
	c := buyCandidate(100)

	held := make([]float64, len(c.History))
	for i, p := range c.History {
		held[i] = 2*p + 5 // exactly correlated
	}
	acct := account(100000)
	acct.HeldHistories = map[string][]float64{"ETH": held}

	d := g.Govern(context.Background(), c, acct)
	if d.Side != models.SideFlat || d.ApprovedSize != 0 {
		t.Fatalf("perfect correlation with held position must hard veto, got %v size=%v", d.Side, d.ApprovedSize)
	}
}

func TestPortfolioCorrelationHaircut(t *testing.T) {
	g := testGovernor(t, fakeForecaster{forecast: normalForecast(100, 1)})

	// Candidate history x_i = i+1 over 12 points; held = x + d with d
	// orthogonal to x and scaled so the exact Pearson correlation is 0.8.
	x := make([]float64, 12)
	for i := range x {
		x[i] = float64(i + 1)
	}
	pattern := []float64{1, -1, -1, 1, 1, -1, -1, 1, 1, -1, -1, 1}
	scale := math.Sqrt(7.3125 * 11.0 / 12.0)
	held := make([]float64, 12)
	for i := range held {
		held[i] = x[i] + pattern[i]*scale
	}

	base := buyCandidate(100)
	base.History = x
	acct := account(100000)
	unhaircut := g.Govern(context.Background(), base, acct)

	g2 := testGovernor(t, fakeForecaster{forecast: normalForecast(100, 1)})
	withHeld := buyCandidate(100)
	withHeld.History = x
	acct.HeldHistories = map[string][]float64{"ETH": held}
	haircut := g2.Govern(context.Background(), withHeld, acct)

	if haircut.ApprovedSize <= 0 {
		t.Fatalf("0.8 correlation sits in the haircut band, size must stay positive")
	}
	want := unhaircut.ApprovedSize * 0.2
	if math.Abs(haircut.ApprovedSize-want) > unhaircut.ApprovedSize*0.01 {
		t.Fatalf("expected (1-0.8) haircut: got %v want ~%v", haircut.ApprovedSize, want)
	}
}

func TestForecasterFailureFailsClosed(t *testing.T) {
	g := testGovernor(t, fakeForecaster{err: errors.New("service down")})

	d := g.Govern(context.Background(), buyCandidate(100), account(100000))
	if d.ApprovedSize != 0 || d.Side != models.SideFlat {
		t.Fatalf("forecaster failure must fail closed, got %+v", d)
	}
	if d.Status != models.StatusActive {
		t.Fatalf("fail-closed must not halt the session, got %v", d.Status)
	}
}

func TestNoPrimaryZeroSize(t *testing.T) {
	g := testGovernor(t, fakeForecaster{forecast: normalForecast(100, 1)})
	d := g.Govern(context.Background(), nil, account(100000))
	if d.Status != models.StatusActive || d.ApprovedSize != 0 {
		t.Fatalf("no primary must be a zero-size ACTIVE decision, got %+v", d)
	}
}

func TestSleepingStatus(t *testing.T) {
	g := testGovernor(t, fakeForecaster{forecast: normalForecast(100, 1)})
	g.Sleep()
	d := g.Govern(context.Background(), buyCandidate(100), account(100000))
	if d.Status != models.StatusSleeping || d.ApprovedSize != 0 {
		t.Fatalf("sleeping session must zero-size, got %+v", d)
	}
	g.Wake()
	d = g.Govern(context.Background(), buyCandidate(100), account(100000))
	if d.Status != models.StatusActive || d.ApprovedSize <= 0 {
		t.Fatalf("waking must restore sizing, got %+v", d)
	}
}

func TestApprovedSizeNeverNegative(t *testing.T) {
	g := testGovernor(t, fakeForecaster{forecast: normalForecast(100, 1)})
	for _, nav := range []float64{100000, 99000, 50, 0} {
		c := buyCandidate(100)
		d := g.Govern(context.Background(), c, account(nav))
		if d.ApprovedSize < 0 {
			t.Fatalf("approved size went negative at nav=%v: %v", nav, d.ApprovedSize)
		}
	}
}
