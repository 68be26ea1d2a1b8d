package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"FlowTrader/internal/di"
	drepo "FlowTrader/internal/domain/repository"
	"FlowTrader/internal/strategy"
	"FlowTrader/internal/usecase"
	"FlowTrader/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	market := flag.String("market", "", "market code, defaults to history.market")
	count := flag.Int("count", 0, "candles to replay after warmup, defaults to history.count")
	warmup := flag.Int("warmup", -1, "candles preloaded before deciding, defaults to history.warmup")
	strat := flag.String("strategy", "", "strategy kind, defaults to trading.strategy")
	to := flag.String("to", "", "replay candles before this RFC3339 time, defaults to now")
	notify := flag.Bool("notify", false, "send position events to the configured sinks")
	asJSON := flag.Bool("json", false, "print the full result as JSON")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if *market != "" {
		cfg.History.Market = *market
	}
	if *count > 0 {
		cfg.History.Count = *count
	}
	if *warmup >= 0 {
		cfg.History.Warmup = *warmup
	}
	if *strat != "" {
		cfg.Trading.Strategy = *strat
	}
	if *to != "" {
		cfg.History.To = *to
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid options: %v", err)
	}

	params, err := strategy.DecodeParams(cfg.Trading.Params)
	if err != nil {
		log.Fatalf("trading.params: %v", err)
	}
	var cursor time.Time
	if cfg.History.To != "" {
		cursor, _ = time.Parse(time.RFC3339, cfg.History.To)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := di.InitializeBacktester(ctx, cfg)
	if err != nil {
		log.Fatalf("backtester initialization failed: %v", err)
	}
	err = app.Run(ctx, usecase.BacktestParams{
		Market:         cfg.HistoryMarket(),
		Unit:           drepo.NormalizeUnit(cfg.History.Unit),
		To:             cursor,
		Count:          cfg.History.Count,
		Warmup:         cfg.History.Warmup,
		Strategy:       strategy.Kind(cfg.Trading.Strategy),
		Params:         params,
		InitialCapital: cfg.Trading.InitialCapital,
		FeePct:         cfg.Trading.FeePct,
		Notify:         *notify,
	}, *asJSON)
	cleanup()
	if err != nil {
		log.Printf("backtest failed: %v", err)
		os.Exit(1)
	}
}
