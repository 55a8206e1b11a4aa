package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"Aegis/internal/domain/models"
	mid "Aegis/internal/middleware"
	xlogger "Aegis/pkg/logger"
)

type execReport struct {
	symbol string
	qty    float64
}

type fakeOrchestrator struct {
	mu        sync.Mutex
	calls     int
	primaries []string
	result    *models.CycleResult
	execs     []execReport
}

func (f *fakeOrchestrator) AnalyzeCycle(_ context.Context, _ []string, primary string, _ map[string][]float64) *models.CycleResult {
	f.mu.Lock()
	f.calls++
	f.primaries = append(f.primaries, primary)
	f.mu.Unlock()
	if f.result != nil {
		return f.result
	}
	return &models.CycleResult{Timestamp: time.Now()}
}

func (f *fakeOrchestrator) RecordExecution(symbol string, signedQty float64) {
	f.mu.Lock()
	f.execs = append(f.execs, execReport{symbol: symbol, qty: signedQty})
	f.mu.Unlock()
}

type fakeGovernor struct {
	mu       sync.Mutex
	sleeping bool
	decision models.RiskDecision
}

func (g *fakeGovernor) Govern(_ context.Context, primary *models.Candidate, _ models.AccountState) models.RiskDecision {
	d := g.decision
	if d.Status == "" {
		d.Status = models.StatusActive
	}
	if primary != nil {
		d.Symbol = primary.Symbol
	}
	d.Timestamp = time.Now()
	return d
}

func (g *fakeGovernor) Sleep() { g.mu.Lock(); g.sleeping = true; g.mu.Unlock() }
func (g *fakeGovernor) Wake()  { g.mu.Lock(); g.sleeping = false; g.mu.Unlock() }
func (g *fakeGovernor) Status() models.TradingStatus {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sleeping {
		return models.StatusSleeping
	}
	return models.StatusActive
}
func (g *fakeGovernor) MaxDrawdown() float64 { return 0 }

type fakeAccounts struct {
	err error
}

func (f fakeAccounts) Account(context.Context) (models.AccountState, error) {
	if f.err != nil {
		return models.AccountState{}, f.err
	}
	return models.AccountState{StartingCapital: 100000, NAV: 100000, BuyingPower: 50000}, nil
}

type captureProc struct {
	ch chan *models.RiskDecision
}

func (c *captureProc) Process(_ context.Context, d *models.RiskDecision) error {
	select {
	case c.ch <- d:
	default:
	}
	return nil
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

func testLogger(t *testing.T) *xlogger.Logger {
	t.Helper()
	l, err := xlogger.New(&xlogger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func testEngine(t *testing.T, orch *fakeOrchestrator, gov *fakeGovernor, acct fakeAccounts, proc *captureProc, clock *SessionClock) *DecisionEngine {
	t.Helper()
	var pipe *mid.PersistPipeline
	if proc != nil {
		pipe = mid.NewPersistPipeline(proc, nopMetrics{})
	}
	return NewDecisionEngine(EngineOptions{
		Orchestrator: orch,
		Governor:     gov,
		Accounts:     acct,
		Pipeline:     pipe,
		Clock:        clock,
		Metrics:      nopMetrics{},
		Logger:       testLogger(t),
		Symbols:      []string{"BTC", "ETH", "SOL"},
		Interval:     time.Second,
	})
}

func TestKillSwitchSkipsCycle(t *testing.T) {
	orch := &fakeOrchestrator{}
	e := testEngine(t, orch, &fakeGovernor{}, fakeAccounts{}, nil, nil)

	e.Halt("operator drill")
	d := e.RunCycle(context.Background())
	if d.Side != models.SideFlat || d.ApprovedSize != 0 {
		t.Fatalf("killed cycle must be flat and zero-size, got %+v", d)
	}
	if orch.calls != 0 {
		t.Fatalf("kill switch must short-circuit before analysis")
	}

	e.Resume()
	e.RunCycle(context.Background())
	if orch.calls != 1 {
		t.Fatalf("resume must restore the cycle, calls=%d", orch.calls)
	}
}

func TestOutOfSessionPutsGovernorToSleep(t *testing.T) {
	// A weekday-hours clock evaluated far outside any session by pinning the
	// window to one minute past midnight.
	clock, err := NewSessionClock("00:00", "00:01", "UTC")
	if err != nil {
		t.Fatalf("clock: %v", err)
	}
	gov := &fakeGovernor{}
	orch := &fakeOrchestrator{}
	e := testEngine(t, orch, gov, fakeAccounts{}, nil, clock)

	d := e.RunCycle(context.Background())
	now := time.Now().UTC()
	inWindow := now.Hour() == 0 && now.Minute() == 0 && now.Weekday() != time.Saturday && now.Weekday() != time.Sunday
	if inWindow {
		t.Skip("wall clock inside the test window")
	}
	if gov.Status() != models.StatusSleeping {
		t.Fatalf("out-of-session cycle must put the governor to sleep")
	}
	if d.Status != models.StatusSleeping || d.ApprovedSize != 0 {
		t.Fatalf("out-of-session cycle must emit a sleeping zero-size decision, got %+v", d)
	}
	if orch.calls != 0 {
		t.Fatalf("no analysis while the market is closed")
	}
}

func TestAccountFailureFailsClosed(t *testing.T) {
	orch := &fakeOrchestrator{}
	e := testEngine(t, orch, &fakeGovernor{}, fakeAccounts{err: errors.New("broker down")}, nil, nil)

	d := e.RunCycle(context.Background())
	if d.Side != models.SideFlat || d.ApprovedSize != 0 {
		t.Fatalf("account failure must fail closed, got %+v", d)
	}
	if orch.calls != 0 {
		t.Fatalf("no analysis without account state")
	}
}

func TestPrimaryRotation(t *testing.T) {
	orch := &fakeOrchestrator{}
	e := testEngine(t, orch, &fakeGovernor{}, fakeAccounts{}, nil, nil)

	for i := 0; i < 4; i++ {
		e.RunCycle(context.Background())
	}
	want := []string{"BTC", "ETH", "SOL", "BTC"}
	for i, p := range want {
		if orch.primaries[i] != p {
			t.Fatalf("rotation mismatch at %d: got %v want %v", i, orch.primaries, want)
		}
	}
}

func TestDecisionReachesPipeline(t *testing.T) {
	proc := &captureProc{ch: make(chan *models.RiskDecision, 1)}
	gov := &fakeGovernor{decision: models.RiskDecision{Status: models.StatusActive, Side: models.SideBuy, ApprovedSize: 1234}}
	orch := &fakeOrchestrator{result: &models.CycleResult{
		Timestamp: time.Now(),
		Primary:   &models.Candidate{Symbol: "BTC", Success: true},
	}}
	e := testEngine(t, orch, gov, fakeAccounts{}, proc, nil)

	e.RunCycle(context.Background())
	select {
	case got := <-proc.ch:
		if got.Symbol != "BTC" || got.ApprovedSize != 1234 {
			t.Fatalf("persisted decision mismatch: %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("decision never reached the persistence pipeline")
	}
}

func TestApprovedFillFeedsReflexivity(t *testing.T) {
	primary := &models.Candidate{Symbol: "BTC", Success: true}
	orch := &fakeOrchestrator{result: &models.CycleResult{Timestamp: time.Now(), Primary: primary}}
	gov := &fakeGovernor{decision: models.RiskDecision{Status: models.StatusActive, Side: models.SideBuy, ApprovedSize: 500}}
	e := testEngine(t, orch, gov, fakeAccounts{}, nil, nil)

	e.RunCycle(context.Background())
	if len(orch.execs) != 1 || orch.execs[0].symbol != "BTC" || orch.execs[0].qty != 500 {
		t.Fatalf("approved buy must be reported as positive volume, got %+v", orch.execs)
	}

	gov.decision = models.RiskDecision{Status: models.StatusActive, Side: models.SideSell, ApprovedSize: 200}
	e.RunCycle(context.Background())
	if len(orch.execs) != 2 || orch.execs[1].qty != -200 {
		t.Fatalf("approved sell must be reported as negative volume, got %+v", orch.execs)
	}
}

func TestUnsizedDecisionNotReportedAsFill(t *testing.T) {
	primary := &models.Candidate{Symbol: "BTC", Success: true}
	orch := &fakeOrchestrator{result: &models.CycleResult{Timestamp: time.Now(), Primary: primary}}
	gov := &fakeGovernor{decision: models.RiskDecision{Status: models.StatusActive, Side: models.SideFlat}}
	e := testEngine(t, orch, gov, fakeAccounts{}, nil, nil)

	e.RunCycle(context.Background())

	gov.decision = models.RiskDecision{Status: models.StatusHaltedDrawdown, Side: models.SideBuy, ApprovedSize: 100}
	e.RunCycle(context.Background())
	if len(orch.execs) != 0 {
		t.Fatalf("flat and halted decisions must not touch the impact ring, got %+v", orch.execs)
	}
}

func TestLastDecisionExposed(t *testing.T) {
	e := testEngine(t, &fakeOrchestrator{}, &fakeGovernor{}, fakeAccounts{}, nil, nil)
	if e.LastDecision() != nil {
		t.Fatalf("no decision before the first cycle")
	}
	e.RunCycle(context.Background())
	if e.LastDecision() == nil {
		t.Fatalf("last decision must be recorded")
	}
}
