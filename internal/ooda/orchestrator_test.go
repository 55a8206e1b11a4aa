package ooda

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"Aegis/internal/domain/models"
	dsvc "Aegis/internal/domain/service"
	xlogger "Aegis/pkg/logger"
)

type fakeMarket struct {
	snapshots map[string]*models.Snapshot
	panicOn   string
}

func (f *fakeMarket) GetSnapshot(_ context.Context, symbol string) (*models.Snapshot, error) {
	if symbol == f.panicOn {
		panic("market adapter blew up")
	}
	s, ok := f.snapshots[symbol]
	if !ok {
		return nil, errors.New("no data")
	}
	return s, nil
}

type fakeVoter struct {
	name   string
	signal float64
	err    error
}

func (v fakeVoter) Name() string { return v.name }
func (v fakeVoter) CalculateSignal(context.Context, []float64) (float64, error) {
	return v.signal, v.err
}

type fakeReasoner struct {
	signal models.ReasonedSignal
	err    error
	calls  int
}

func (r *fakeReasoner) GenerateSignal(context.Context, *models.Candidate) (models.ReasonedSignal, error) {
	r.calls++
	return r.signal, r.err
}

type nopMetrics struct{}

func (nopMetrics) RecordCycle(string)                    {}
func (nopMetrics) RecordCandidateFailure(string)         {}
func (nopMetrics) RecordVeto(string)                     {}
func (nopMetrics) RecordTradingStatus(string)            {}
func (nopMetrics) RecordMaxDrawdown(float64)             {}
func (nopMetrics) RecordApprovedNotional(string, float64) {}
func (nopMetrics) RecordLastPrice(string, float64)       {}
func (nopMetrics) RecordError(string)                    {}
func (nopMetrics) RecordLatency(string, float64)         {}

type countingMetrics struct {
	nopMetrics
	mu       sync.Mutex
	vetoes   map[string]int
	failures map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{vetoes: make(map[string]int), failures: make(map[string]int)}
}

func (m *countingMetrics) RecordVeto(source string) {
	m.mu.Lock()
	m.vetoes[source]++
	m.mu.Unlock()
}

func (m *countingMetrics) RecordCandidateFailure(symbol string) {
	m.mu.Lock()
	m.failures[symbol]++
	m.mu.Unlock()
}

func testLogger(t *testing.T) *xlogger.Logger {
	t.Helper()
	l, err := xlogger.New(&xlogger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func steadyHistory(n int, start, step float64) []float64 {
	out := make([]float64, n)
	p := start
	for i := range out {
		p += step
		out[i] = p
	}
	return out
}

func newTestOrchestrator(t *testing.T, market *fakeMarket, council []fakeVoter, reason *fakeReasoner) *Orchestrator {
	t.Helper()
	opts := Options{
		Market:  market,
		Metrics: nopMetrics{},
		Logger:  testLogger(t),
	}
	for _, v := range council {
		opts.Council = append(opts.Council, v)
	}
	if reason != nil {
		opts.Reasoning = reason
	}
	return New(opts)
}

func TestAnalyzeCycleFailureIsolation(t *testing.T) {
	market := &fakeMarket{snapshots: map[string]*models.Snapshot{
		"GOOD": {Symbol: "GOOD", Price: 105, History: steadyHistory(50, 100, 0.1)},
	}}
	o := newTestOrchestrator(t, market, []fakeVoter{{name: "mom", signal: 0.8}}, nil)

	res := o.AnalyzeCycle(context.Background(), []string{"GOOD", "BAD"}, "GOOD", nil)
	if len(res.Candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(res.Candidates))
	}
	var good, bad *models.Candidate
	for _, c := range res.Candidates {
		switch c.Symbol {
		case "GOOD":
			good = c
		case "BAD":
			bad = c
		}
	}
	if !good.Success {
		t.Fatalf("healthy candidate failed: %+v", good)
	}
	if bad.Success {
		t.Fatalf("candidate without data must fail in isolation")
	}
}

func TestAnalyzeCyclePanicIsolation(t *testing.T) {
	market := &fakeMarket{
		snapshots: map[string]*models.Snapshot{
			"OK": {Symbol: "OK", Price: 100, History: steadyHistory(50, 100, 0.1)},
		},
		panicOn: "BOOM",
	}
	o := newTestOrchestrator(t, market, nil, nil)

	res := o.AnalyzeCycle(context.Background(), []string{"BOOM", "OK"}, "OK", nil)
	for _, c := range res.Candidates {
		if c.Symbol == "BOOM" && c.Success {
			t.Fatalf("panicked candidate must be marked failed")
		}
		if c.Symbol == "OK" && !c.Success {
			t.Fatalf("panic must not leak into sibling candidates")
		}
	}
}

func TestPrimaryReasoningOnlyForPrimary(t *testing.T) {
	market := &fakeMarket{snapshots: map[string]*models.Snapshot{
		"A": {Symbol: "A", Price: 100, History: steadyHistory(60, 100, 0.1)},
		"B": {Symbol: "B", Price: 50, History: steadyHistory(60, 50, -0.1)},
	}}
	reason := &fakeReasoner{signal: models.ReasonedSignal{
		Side: models.SideBuy, Confidence: 0.9, Reasoning: "deep dive",
	}}
	o := newTestOrchestrator(t, market, []fakeVoter{{name: "mom", signal: 0.5}}, reason)

	res := o.AnalyzeCycle(context.Background(), []string{"A", "B"}, "A", nil)
	if reason.calls != 1 {
		t.Fatalf("reasoning must run exactly once (primary only), ran %d times", reason.calls)
	}
	if res.Primary == nil || res.Primary.Symbol != "A" {
		t.Fatalf("expected primary A, got %+v", res.Primary)
	}
	if res.Primary.Reasoning != "deep dive" {
		t.Fatalf("primary should carry the reasoned label, got %q", res.Primary.Reasoning)
	}
	for _, c := range res.Candidates {
		if c.Symbol == "B" && c.Reasoning == "deep dive" {
			t.Fatalf("non-primary must keep the cheap fallback label")
		}
	}
}

func TestPrimaryReselectionOnFailure(t *testing.T) {
	market := &fakeMarket{snapshots: map[string]*models.Snapshot{
		"B": {Symbol: "B", Price: 50, History: steadyHistory(60, 50, 0.05)},
	}}
	o := newTestOrchestrator(t, market, []fakeVoter{{name: "mom", signal: 0.7}}, nil)

	res := o.AnalyzeCycle(context.Background(), []string{"A", "B"}, "A", nil)
	if res.Primary == nil || res.Primary.Symbol != "B" {
		t.Fatalf("failed primary must be replaced by the best healthy candidate, got %+v", res.Primary)
	}
}

func TestNoPrimaryWhenAllFail(t *testing.T) {
	market := &fakeMarket{snapshots: map[string]*models.Snapshot{}}
	o := newTestOrchestrator(t, market, nil, nil)

	res := o.AnalyzeCycle(context.Background(), []string{"A", "B"}, "A", nil)
	if res.Primary != nil {
		t.Fatalf("expected no primary, got %+v", res.Primary)
	}
}

func TestCouncilAbstainOnError(t *testing.T) {
	market := &fakeMarket{snapshots: map[string]*models.Snapshot{
		"A": {Symbol: "A", Price: 100, History: steadyHistory(60, 100, 0.1)},
	}}
	council := []fakeVoter{
		{name: "ok", signal: 0.9},
		{name: "broken", err: fmt.Errorf("model offline")},
	}
	o := newTestOrchestrator(t, market, council, nil)

	res := o.AnalyzeCycle(context.Background(), []string{"A"}, "A", nil)
	c := res.Candidates[0]
	if !c.Success {
		t.Fatalf("failing voter must not fail the candidate")
	}
	// Broken member abstains with 0.0: mean = 0.45.
	if c.Side != models.SideBuy {
		t.Fatalf("expected BUY from surviving voter, got %v", c.Side)
	}
	if c.Confidence > 0.5 {
		t.Fatalf("abstention should dilute confidence, got %v", c.Confidence)
	}
}

func TestEstimatorRegistryPersistsAcrossCycles(t *testing.T) {
	market := &fakeMarket{snapshots: map[string]*models.Snapshot{
		"A": {Symbol: "A", Price: 100, History: steadyHistory(30, 100, 0.5)},
	}}
	o := newTestOrchestrator(t, market, nil, nil)

	for i := 0; i < 10; i++ {
		market.snapshots["A"].Price = 100 + float64(i)*0.5
		o.AnalyzeCycle(context.Background(), []string{"A"}, "A", nil)
	}
	res := o.AnalyzeCycle(context.Background(), []string{"A"}, "A", nil)
	c := res.Candidates[0]
	if c.Velocity <= 0 {
		t.Fatalf("estimator state should persist and track the climb, velocity=%v", c.Velocity)
	}
}

func TestFailedCandidatesAreNotVetoes(t *testing.T) {
	market := &fakeMarket{snapshots: map[string]*models.Snapshot{}}
	metrics := newCountingMetrics()
	o := New(Options{Market: market, Metrics: metrics, Logger: testLogger(t)})

	res := o.AnalyzeCycle(context.Background(), []string{"A", "B"}, "A", nil)
	if len(metrics.vetoes) != 0 {
		t.Fatalf("data failures must not count as vetoes: %v", metrics.vetoes)
	}
	if metrics.failures["A"] != 1 || metrics.failures["B"] != 1 {
		t.Fatalf("every failed candidate must record a failure: %v", metrics.failures)
	}
	for _, c := range res.Candidates {
		if c.Vetoed() {
			t.Fatalf("failed candidate must not read as vetoed: %+v", c)
		}
		if c.FailReason == "" || c.Success {
			t.Fatalf("failed candidate must carry a failure reason: %+v", c)
		}
	}
}

func TestVetoMetricCountsClusterVetoesOnly(t *testing.T) {
	// Two near-identical climbs form one cluster; the third symbol has no
	// data and fails.
	market := &fakeMarket{snapshots: map[string]*models.Snapshot{
		"A": {Symbol: "A", Price: 105, History: steadyHistory(60, 100, 0.1)},
		"B": {Symbol: "B", Price: 52.5, History: steadyHistory(60, 50, 0.05)},
	}}
	metrics := newCountingMetrics()
	o := New(Options{
		Market:  market,
		Council: []dsvc.CouncilMember{fakeVoter{name: "mom", signal: 0.8}},
		Metrics: metrics,
		Logger:  testLogger(t),
	})

	o.AnalyzeCycle(context.Background(), []string{"A", "B", "C"}, "A", nil)
	if metrics.vetoes["cluster"] != 1 {
		t.Fatalf("exactly one cluster veto expected, got %v", metrics.vetoes)
	}
}

func TestDuplicateSymbolsAnalyzedOnce(t *testing.T) {
	market := &fakeMarket{snapshots: map[string]*models.Snapshot{
		"A": {Symbol: "A", Price: 100, History: steadyHistory(50, 100, 0.1)},
	}}
	o := newTestOrchestrator(t, market, nil, nil)

	res := o.AnalyzeCycle(context.Background(), []string{"A", "A", "", "A"}, "A", nil)
	if len(res.Candidates) != 1 {
		t.Fatalf("duplicate symbols must collapse to one candidate, got %d", len(res.Candidates))
	}
	if res.Candidates[0].Symbol != "A" {
		t.Fatalf("unexpected candidate %q", res.Candidates[0].Symbol)
	}
}

func TestSelectPrimarySkipsCriticalRegime(t *testing.T) {
	critical := &models.Candidate{Symbol: "A", Success: true, Regime: models.RegimeCritical, Confidence: 0.99}
	stable := &models.Candidate{Symbol: "B", Success: true, Regime: models.RegimeGaussian, Confidence: 0.4}
	vetoed := &models.Candidate{Symbol: "C", Success: true, Regime: models.RegimeGaussian, Confidence: 0.9}
	vetoed.Veto("cluster veto: test")

	got := selectPrimary([]*models.Candidate{critical, stable, vetoed}, "A")
	if got == nil || got.Symbol != "B" {
		t.Fatalf("critical primary must be replaced by best healthy non-critical candidate, got %+v", got)
	}

	if p := selectPrimary([]*models.Candidate{critical, vetoed}, "A"); p != nil {
		t.Fatalf("no qualifying candidate should mean no primary, got %+v", p)
	}
}
