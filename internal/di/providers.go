package di

import (
	"context"
	"fmt"

	"FlowTrader/internal/aggregator"
	drepo "FlowTrader/internal/domain/repository"
	"FlowTrader/internal/feed"
	"FlowTrader/internal/handler/api"
	"FlowTrader/internal/position"
	internalrepo "FlowTrader/internal/repository"
	icache "FlowTrader/internal/service/cache"
	svcmetrics "FlowTrader/internal/service/metrics"
	"FlowTrader/internal/service/notify"
	"FlowTrader/internal/service/ratelimit"
	"FlowTrader/internal/service/upbit"
	"FlowTrader/internal/strategy"
	"FlowTrader/internal/usecase"
	pkgch "FlowTrader/pkg/clickhouse"
	"FlowTrader/pkg/config"
	xhttp "FlowTrader/pkg/http"
	pkgkafka "FlowTrader/pkg/kafka"
	applogger "FlowTrader/pkg/logger"
	"FlowTrader/pkg/metrics"
	"FlowTrader/pkg/server"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideRegistry creates the process registry with Go runtime collectors.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

func ProvideMetrics(reg *prometheus.Registry) drepo.Metrics {
	return metrics.New(reg)
}

func ProvideRunObserver(reg *prometheus.Registry) usecase.RunObserver {
	return svcmetrics.NewBacktest(reg)
}

func ProvideHTTPClient(cfg *config.Config) *xhttp.Client {
	return xhttp.NewClient(xhttp.WithTimeout(cfg.Upbit.Timeout))
}

// ProvideCandleSource picks the historical backend and layers the optional
// archive and page cache on top.
func ProvideCandleSource(ctx context.Context, cfg *config.Config, client *xhttp.Client, l *applogger.Logger) (drepo.CandleSource, func(), error) {
	var (
		src      drepo.CandleSource
		chClient *pkgch.Client
		closers  []func() error
	)
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				l.Warn("history source close error", applogger.Error(err))
			}
		}
	}

	if cfg.History.Source == "clickhouse" || cfg.History.Archive {
		c, err := pkgch.NewClient(ctx,
			pkgch.WithAddr(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
			pkgch.WithDatabase(cfg.ClickHouse.Database),
			pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
			pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
			pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
			pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("clickhouse client: %w", err)
		}
		closers = append(closers, c.Close)
		if err := c.InitSchema(ctx, internalrepo.CandleSchema(cfg.ClickHouse.Table)); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
		}
		chClient = c
	}

	if cfg.History.Source == "clickhouse" {
		src = internalrepo.NewCHCandleStore(chClient, cfg.ClickHouse.Table, l)
	} else {
		pacer := ratelimit.NewPacer(ratelimit.New(), "upbit:candles", cfg.Upbit.RequestInterval)
		src = upbit.NewREST(cfg.Upbit.RestURL, client, pacer)
		if cfg.History.Archive {
			src = internalrepo.NewArchivingSource(src, internalrepo.NewCHCandleStore(chClient, cfg.ClickHouse.Table, l), l)
		}
	}

	switch cfg.History.Cache.Backend {
	case "memory":
		src = internalrepo.NewCachedCandleSource(src, icache.NewTTLCache(4096), cfg.History.Cache.TTL, l)
	case "redis":
		rc, err := icache.NewRedisCache(ctx, icache.RedisConfig{
			Addr:     cfg.History.Cache.Redis.Addr,
			Password: cfg.History.Cache.Redis.Password,
			DB:       cfg.History.Cache.Redis.DB,
		})
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, rc.Close)
		src = internalrepo.NewCachedCandleSource(src, rc, cfg.History.Cache.TTL, l)
	}

	l.Info("history source ready",
		applogger.String("source", cfg.History.Source),
		applogger.String("cache", cfg.History.Cache.Backend),
		applogger.Bool("archive", cfg.History.Archive),
	)
	return src, cleanup, nil
}

// ProvideKafkaProducer returns nil when Kafka notifications are disabled.
func ProvideKafkaProducer(cfg *config.Config, reg *prometheus.Registry, l *applogger.Logger) (*pkgkafka.Producer, func(), error) {
	if !cfg.Notify.Kafka.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithRegisterer(reg),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	cleanup := func() {
		if err := producer.Close(); err != nil {
			l.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	return producer, cleanup, nil
}

// ProvideNotifier fans out to the enabled sinks asynchronously. It returns a
// nil Notifier when no sink is enabled.
func ProvideNotifier(cfg *config.Config, producer *pkgkafka.Producer, m drepo.Metrics, l *applogger.Logger) (drepo.Notifier, func()) {
	var sinks notify.Multi
	if cfg.Notify.Webhook.Enabled {
		client := xhttp.NewClient(xhttp.WithTimeout(cfg.Notify.Webhook.Timeout))
		sinks = append(sinks, notify.NewWebhook(cfg.Notify.Webhook.URL, cfg.Notify.Webhook.Username, client))
	}
	if producer != nil {
		sinks = append(sinks, notify.NewKafka(producer, cfg.Notify.Kafka.Topic))
	}
	if len(sinks) == 0 {
		return nil, func() {}
	}
	async := notify.NewAsync(sinks, cfg.Notify.Webhook.Timeout, m, l)
	return async, async.Wait
}

func ProvideAggregatorConfig(cfg *config.Config) aggregator.Config {
	return aggregator.Config{
		HistoryCap:   cfg.Aggregator.HistoryCap,
		FootprintCap: cfg.Aggregator.FootprintCap,
		TradeHorizon: cfg.Aggregator.TradeHorizon,
		VolumeWindow: cfg.Aggregator.VolumeWindow,
		RangeWindow:  cfg.Aggregator.RangeWindow,
	}
}

func ProvideStrategyParams(cfg *config.Config) (strategy.Params, error) {
	p, err := strategy.DecodeParams(cfg.Trading.Params)
	if err != nil {
		return strategy.Params{}, fmt.Errorf("trading.params: %w", err)
	}
	return p, nil
}

func ProvideHistoryFetcher(src drepo.CandleSource, l *applogger.Logger) *usecase.HistoryFetcher {
	return usecase.NewHistoryFetcher(src, l)
}

func ProvideBacktester(h *usecase.HistoryFetcher, aggCfg aggregator.Config, n drepo.Notifier, m drepo.Metrics, obs usecase.RunObserver, l *applogger.Logger) *usecase.Backtester {
	return usecase.NewBacktester(h, aggCfg, n, m, obs, l)
}

func ProvideBoard() *usecase.Board {
	return usecase.NewBoard()
}

// ProvideSessionFactory builds one independent session per live market.
func ProvideSessionFactory(cfg *config.Config, aggCfg aggregator.Config, params strategy.Params, n drepo.Notifier, m drepo.Metrics, l *applogger.Logger) usecase.SessionFactory {
	kind := strategy.Kind(cfg.Trading.Strategy)
	return func(market string) (*usecase.Session, error) {
		strat, err := strategy.New(kind, params)
		if err != nil {
			return nil, err
		}
		mgr := position.NewManager(position.Config{
			Market:         market,
			Strategy:       strat.Name(),
			InitialCapital: cfg.Trading.InitialCapital,
			FeePct:         cfg.Trading.FeePct,
		}, n, m, l)
		return usecase.NewSession(aggregator.New(market, aggCfg), mgr, strat, m, l), nil
	}
}

func ProvideTransport(cfg *config.Config, l *applogger.Logger) feed.Transport {
	return upbit.NewStream(cfg.Feed.WebSocketURL, cfg.Feed.HandshakeTimeout, cfg.Feed.PingInterval, l)
}

func ProvideCodec() feed.Codec {
	return upbit.NewCodec("")
}

func ProvideLiveRunner(cfg *config.Config, t feed.Transport, c feed.Codec, f usecase.SessionFactory, b *usecase.Board, m drepo.Metrics, l *applogger.Logger) *usecase.LiveRunner {
	return usecase.NewLiveRunner(t, c, cfg.Feed.Markets, f, b, cfg.Feed.BookkeepingInterval, m, l)
}

// ProvideHTTPServer returns nil when the API is disabled.
func ProvideHTTPServer(cfg *config.Config, b *usecase.Board, bt *usecase.Backtester, reg *prometheus.Registry, l *applogger.Logger) *xhttp.Server {
	if !cfg.Server.Enabled {
		return nil
	}
	opts := []xhttp.ServerOption{
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithSlowThreshold(cfg.Server.SlowThreshold),
		xhttp.WithCORS(cfg.Server.CORS),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(reg, reg))
	}
	return xhttp.NewServer(api.NewMarketsHandler(l, b, bt), l, opts...)
}

func ProvideApp(r *usecase.LiveRunner, srv *xhttp.Server, l *applogger.Logger) *server.App {
	return server.New(r, srv, l)
}

func ProvideBacktestApp(bt *usecase.Backtester, l *applogger.Logger) *server.BacktestApp {
	return server.NewBacktestApp(bt, l)
}
