package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	cyclesTotal       *prometheus.CounterVec
	candidateFailures *prometheus.CounterVec
	vetoesTotal       *prometheus.CounterVec
	errorsTotal       *prometheus.CounterVec
	tradingStatus     *prometheus.GaugeVec
	maxDrawdown       prometheus.Gauge
	approvedNotional  *prometheus.GaugeVec
	lastPrice         *prometheus.GaugeVec
	latency           *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		cyclesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aegis_cycles_total",
				Help: "Total number of completed decision cycles",
			},
			[]string{"result"},
		),
		candidateFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aegis_candidate_failures_total",
				Help: "Candidate analyses that failed in isolation",
			},
			[]string{"symbol"},
		),
		vetoesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aegis_vetoes_total",
				Help: "Vetoes applied, by source (cluster, nash, settlement, portfolio_correlation)",
			},
			[]string{"source"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aegis_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		tradingStatus: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "aegis_trading_status",
				Help: "Current trading status (1 for the active state, 0 otherwise)",
			},
			[]string{"status"},
		),
		maxDrawdown: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "aegis_max_drawdown",
				Help: "Session maximum drawdown as a fraction of starting capital",
			},
		),
		approvedNotional: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "aegis_approved_notional",
				Help: "Last approved position notional per symbol (USD)",
			},
			[]string{"symbol"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "aegis_last_price",
				Help: "Last recorded price for a symbol",
			},
			[]string{"symbol"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "aegis_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordCycle records a completed decision cycle.
func (r *Recorder) RecordCycle(result string) {
	r.cyclesTotal.WithLabelValues(result).Inc()
}

// RecordCandidateFailure records an isolated candidate failure.
func (r *Recorder) RecordCandidateFailure(symbol string) {
	r.candidateFailures.WithLabelValues(symbol).Inc()
}

// RecordVeto records a veto by source.
func (r *Recorder) RecordVeto(source string) {
	r.vetoesTotal.WithLabelValues(source).Inc()
}

// RecordTradingStatus records the current trading status. All known states
// are reset so the gauge is one-hot.
func (r *Recorder) RecordTradingStatus(status string) {
	for _, s := range []string{"ACTIVE", "HALTED_DRAWDOWN", "HALTED_PHYSICS", "SLEEPING"} {
		v := 0.0
		if s == status {
			v = 1.0
		}
		r.tradingStatus.WithLabelValues(s).Set(v)
	}
}

// RecordMaxDrawdown records the session maximum drawdown.
func (r *Recorder) RecordMaxDrawdown(dd float64) {
	r.maxDrawdown.Set(dd)
}

// RecordApprovedNotional records the approved notional for a symbol.
func (r *Recorder) RecordApprovedNotional(symbol string, notional float64) {
	r.approvedNotional.WithLabelValues(symbol).Set(notional)
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
