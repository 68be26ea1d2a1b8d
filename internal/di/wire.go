//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"FlowTrader/pkg/config"
	"FlowTrader/pkg/server"

	"github.com/google/wire"
)

// historySet builds the backtester and everything it needs.
var historySet = wire.NewSet(
	ProvideLogger,
	ProvideRegistry,
	ProvideMetrics,
	ProvideRunObserver,
	ProvideHTTPClient,
	ProvideCandleSource,
	ProvideKafkaProducer,
	ProvideNotifier,
	ProvideAggregatorConfig,
	ProvideHistoryFetcher,
	ProvideBacktester,
)

// InitializeApp wires the live trading app with its status API.
func InitializeApp(ctx context.Context, cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		historySet,
		ProvideStrategyParams,
		ProvideBoard,
		ProvideSessionFactory,
		ProvideTransport,
		ProvideCodec,
		ProvideLiveRunner,
		ProvideHTTPServer,
		ProvideApp,
	)
	return nil, nil, nil
}

// InitializeBacktester wires a one-shot historical replay.
func InitializeBacktester(ctx context.Context, cfg *config.Config) (*server.BacktestApp, func(), error) {
	wire.Build(
		historySet,
		ProvideBacktestApp,
	)
	return nil, nil, nil
}
