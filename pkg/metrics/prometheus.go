package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	signals   *prometheus.CounterVec
	closes    *prometheus.CounterVec
	dropped   *prometheus.CounterVec
	errors    *prometheus.CounterVec
	lastPrice *prometheus.GaugeVec
	latency   *prometheus.HistogramVec
}

// New registers the trading collectors on reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		signals: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowtrader_signals_total",
				Help: "Non-hold signals emitted by strategies",
			},
			[]string{"market", "kind"},
		),
		closes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowtrader_positions_closed_total",
				Help: "Closed positions by outcome",
			},
			[]string{"market", "outcome"},
		),
		dropped: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowtrader_feed_dropped_total",
				Help: "Feed messages dropped before dispatch",
			},
			[]string{"reason"},
		),
		errors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowtrader_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "flowtrader_last_price",
				Help: "Last observed price per market",
			},
			[]string{"market"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "flowtrader_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordSignal(market, kind string) {
	r.signals.WithLabelValues(market, kind).Inc()
}

// RecordPositionClosed counts a close; outcome is "win" or "loss".
func (r *Recorder) RecordPositionClosed(market, outcome string) {
	r.closes.WithLabelValues(market, outcome).Inc()
}

func (r *Recorder) RecordDropped(reason string) {
	r.dropped.WithLabelValues(reason).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errors.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a market.
func (r *Recorder) RecordLastPrice(market string, price float64) {
	r.lastPrice.WithLabelValues(market).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
