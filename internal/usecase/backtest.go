package usecase

import (
	"context"
	"fmt"
	"time"

	"FlowTrader/internal/aggregator"
	"FlowTrader/internal/domain/models"
	drepo "FlowTrader/internal/domain/repository"
	"FlowTrader/internal/position"
	"FlowTrader/internal/strategy"
	applogger "FlowTrader/pkg/logger"
)

// RunObserver is told about every finished backtest.
type RunObserver interface {
	ObserveRun(market, strategy string, trades int, cumulativePnL float64, elapsed time.Duration, err error)
}

type BacktestParams struct {
	Market         string
	Unit           drepo.Unit
	To             time.Time
	Count          int
	Warmup         int
	Strategy       strategy.Kind
	Params         strategy.Params
	InitialCapital float64
	FeePct         float64
	// Notify forwards position events and the summary to the notifier.
	Notify bool
}

// ReplayConfig configures a replay over candles already in memory.
type ReplayConfig struct {
	Market         string
	Warmup         int
	InitialCapital float64
	FeePct         float64
	Notifier       drepo.Notifier
}

type BacktestResult struct {
	Market   string                `json:"market"`
	Strategy string                `json:"strategy"`
	From     time.Time             `json:"from"`
	To       time.Time             `json:"to"`
	Candles  int                   `json:"candles"`
	Warmup   int                   `json:"warmup"`
	Trades   []models.ClosedTrade  `json:"trades"`
	Signals  []SignalRecord        `json:"signals"`
	Ledger   models.Ledger         `json:"ledger"`
	Summary  models.SessionSummary `json:"summary"`
	Elapsed  time.Duration         `json:"elapsed_ns"`
}

// Backtester runs historical replays. It is safe for concurrent use; each run
// builds its own session.
type Backtester struct {
	history  *HistoryFetcher
	aggCfg   aggregator.Config
	notifier drepo.Notifier
	metrics  drepo.Metrics
	observer RunObserver
	log      *applogger.Logger
}

func NewBacktester(history *HistoryFetcher, aggCfg aggregator.Config, notifier drepo.Notifier, metrics drepo.Metrics, observer RunObserver, l *applogger.Logger) *Backtester {
	if metrics == nil {
		metrics = drepo.NopMetrics{}
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &Backtester{
		history:  history,
		aggCfg:   aggCfg,
		notifier: notifier,
		metrics:  metrics,
		observer: observer,
		log:      l,
	}
}

// Run fetches count+warmup candles and replays them with a fresh strategy.
func (b *Backtester) Run(ctx context.Context, p BacktestParams) (res *BacktestResult, err error) {
	start := time.Now()
	defer func() {
		if b.observer == nil {
			return
		}
		trades, pnl := 0, 0.0
		if res != nil {
			trades, pnl = len(res.Trades), res.Ledger.CumulativePnLPct
		}
		b.observer.ObserveRun(p.Market, string(p.Strategy), trades, pnl, time.Since(start), err)
	}()

	strat, err := strategy.New(p.Strategy, p.Params)
	if err != nil {
		return nil, err
	}
	unit := p.Unit
	if !drepo.IsValidUnit(unit) {
		unit = drepo.DefaultUnit()
	}
	candles, err := b.history.Fetch(ctx, p.Market, unit, p.To, p.Count+p.Warmup)
	if err != nil {
		return nil, err
	}

	cfg := ReplayConfig{
		Market:         p.Market,
		Warmup:         p.Warmup,
		InitialCapital: p.InitialCapital,
		FeePct:         p.FeePct,
	}
	if p.Notify {
		cfg.Notifier = b.notifier
	}
	res, err = b.Replay(ctx, candles, cfg, strat)
	if err != nil {
		return nil, err
	}
	res.Elapsed = time.Since(start)
	return res, nil
}

// Replay drives one session over candles in order and ends flat with a
// forced sell at the last close. It has no time dependence: the same
// candles and strategy always produce the same signals and ledger.
func (b *Backtester) Replay(ctx context.Context, candles []models.Candle, cfg ReplayConfig, strat strategy.Strategy) (*BacktestResult, error) {
	if len(candles) == 0 {
		return nil, fmt.Errorf("replay %s: %w", cfg.Market, ErrNoCandles)
	}
	warmup := min(max(cfg.Warmup, 0), len(candles)-1)

	agg := aggregator.New(cfg.Market, b.aggCfg)
	mgr := position.NewManager(position.Config{
		Market:         cfg.Market,
		Strategy:       strat.Name(),
		InitialCapital: cfg.InitialCapital,
		FeePct:         cfg.FeePct,
	}, cfg.Notifier, b.metrics, b.log)
	sess := NewSession(agg, mgr, strat, b.metrics, b.log)

	for i, c := range candles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if i < warmup {
			sess.Warm(c)
			continue
		}
		sess.OnHistoricalCandle(ctx, c)
	}
	last := candles[len(candles)-1]
	sess.Finish(ctx, last.Close, last.TimeUTC)

	ledger := sess.Ledger()
	b.log.Info("backtest finished",
		applogger.String("market", cfg.Market),
		applogger.String("strategy", strat.Name()),
		applogger.Int("candles", len(candles)),
		applogger.Int("trades", ledger.TotalTrades()),
		applogger.Float64("win_rate", ledger.WinRate()),
		applogger.Float64("cumulative_pnl", ledger.CumulativePnLPct),
		applogger.Float64("max_drawdown", ledger.MaxDrawdownPct),
	)
	return &BacktestResult{
		Market:   cfg.Market,
		Strategy: strat.Name(),
		From:     candles[warmup].TimeUTC,
		To:       last.TimeUTC,
		Candles:  len(candles) - warmup,
		Warmup:   warmup,
		Trades:   sess.Trades(),
		Signals:  sess.Signals(),
		Ledger:   ledger,
		Summary:  sess.Summary(last.TimeUTC),
	}, nil
}
