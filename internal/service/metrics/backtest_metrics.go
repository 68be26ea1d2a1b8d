package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Backtest records historical replay runs served by the API and the CLI.
type Backtest struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	trades   *prometheus.HistogramVec
	pnl      *prometheus.GaugeVec
}

func NewBacktest(reg prometheus.Registerer) *Backtest {
	f := promauto.With(reg)
	return &Backtest{
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowtrader",
			Subsystem: "backtest",
			Name:      "runs_total",
			Help:      "Backtest runs by strategy and result",
		}, []string{"strategy", "result"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "flowtrader",
			Subsystem: "backtest",
			Name:      "duration_seconds",
			Help:      "Wall time of a backtest including history fetch",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"strategy"}),
		trades: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "flowtrader",
			Subsystem: "backtest",
			Name:      "trades",
			Help:      "Closed trades per backtest",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}, []string{"strategy"}),
		pnl: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "flowtrader",
			Subsystem: "backtest",
			Name:      "last_cumulative_pnl_ratio",
			Help:      "Cumulative realized pnl of the latest run per market and strategy",
		}, []string{"market", "strategy"}),
	}
}

// ObserveRun records one finished run. err marks the run as failed.
func (b *Backtest) ObserveRun(market, strategy string, trades int, cumulativePnL float64, elapsed time.Duration, err error) {
	if err != nil {
		b.runs.WithLabelValues(strategy, "error").Inc()
		return
	}
	b.runs.WithLabelValues(strategy, "ok").Inc()
	b.duration.WithLabelValues(strategy).Observe(elapsed.Seconds())
	b.trades.WithLabelValues(strategy).Observe(float64(trades))
	b.pnl.WithLabelValues(market, strategy).Set(cumulativePnL)
}
