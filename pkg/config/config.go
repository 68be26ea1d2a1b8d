package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"dev" validate:"required"`
	Log         struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=json console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Server struct {
		Enabled         bool          `yaml:"enabled" default:"true"`
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		SlowThreshold   time.Duration `yaml:"slow_threshold" default:"2s"`
		CORS            bool          `yaml:"cors" default:"true"`
	} `yaml:"server"`
	Metrics struct {
		// Enabled serves /metrics and instruments HTTP requests.
		Enabled bool `yaml:"enabled" default:"true"`
	} `yaml:"metrics"`
	Feed struct {
		WebSocketURL        string        `yaml:"websocket_url" default:"wss://api.upbit.com/websocket/v1" validate:"required"`
		Markets             []string      `yaml:"markets" validate:"required,min=1,dive,required"`
		PingInterval        time.Duration `yaml:"ping_interval" default:"30s"`
		HandshakeTimeout    time.Duration `yaml:"handshake_timeout" default:"10s"`
		BookkeepingInterval time.Duration `yaml:"bookkeeping_interval" default:"5s"`
	} `yaml:"feed"`
	Upbit struct {
		RestURL         string        `yaml:"rest_url" default:"https://api.upbit.com/v1" validate:"required"`
		Timeout         time.Duration `yaml:"timeout" default:"10s"`
		RequestInterval time.Duration `yaml:"request_interval" default:"120ms"`
	} `yaml:"upbit"`
	History struct {
		Source string `yaml:"source" default:"upbit" validate:"oneof=upbit clickhouse"`
		Market string `yaml:"market"`
		Count  int    `yaml:"count" default:"600" validate:"gte=1"`
		Unit   int    `yaml:"unit" default:"1" validate:"oneof=1 3 5 10 15 30 60 240"`
		To     string `yaml:"to"`
		Warmup int    `yaml:"warmup" default:"0" validate:"gte=0"`

		// Archive copies candles fetched from the exchange into ClickHouse.
		Archive bool `yaml:"archive"`

		Cache struct {
			Backend string        `yaml:"backend" default:"none" validate:"oneof=none memory redis"`
			TTL     time.Duration `yaml:"ttl" default:"24h"`
			Redis   struct {
				Addr     string `yaml:"addr" default:"localhost:6379"`
				Password string `yaml:"password"`
				DB       int    `yaml:"db"`
			} `yaml:"redis"`
		} `yaml:"cache"`
	} `yaml:"history"`
	Aggregator struct {
		HistoryCap   int           `yaml:"history_cap" default:"200" validate:"gte=1"`
		FootprintCap int           `yaml:"footprint_cap" default:"200" validate:"gte=1"`
		TradeHorizon time.Duration `yaml:"trade_horizon" default:"3m"`
		VolumeWindow int           `yaml:"volume_window" default:"10" validate:"gte=1"`
		RangeWindow  int           `yaml:"range_window" default:"20" validate:"gte=1"`
	} `yaml:"aggregator"`
	Trading struct {
		InitialCapital float64            `yaml:"initial_capital" default:"1000000" validate:"gt=0"`
		FeePct         float64            `yaml:"fee_pct" default:"0.0005" validate:"gte=0,lt=1"`
		Strategy       string             `yaml:"strategy" default:"absorption" validate:"oneof=absorption mean_reversion breakout"`
		Params         map[string]float64 `yaml:"params"`
	} `yaml:"trading"`
	Notify struct {
		Webhook struct {
			Enabled  bool          `yaml:"enabled"`
			URL      string        `yaml:"url"`
			Username string        `yaml:"username" default:"ctb"`
			Timeout  time.Duration `yaml:"timeout" default:"5s"`
		} `yaml:"webhook"`
		Kafka struct {
			Enabled bool   `yaml:"enabled"`
			Topic   string `yaml:"topic" default:"flowtrader.positions"`
		} `yaml:"kafka"`
	} `yaml:"notify"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"100ms"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"flowtrader"`
		Table            string        `yaml:"table" default:"candles_1m"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
}

var validate = validator.New()

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes, applies defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	c, err := decode(b)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	c, err := decode(b)
	if err != nil {
		return nil, err
	}

	c.applyEnv(os.Getenv)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func decode(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("MARKETS"); v != "" {
		c.Feed.Markets = splitList(v)
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("WEBHOOK_URL"); v != "" {
		c.Notify.Webhook.URL = v
		c.Notify.Webhook.Enabled = true
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	if v := getenv("KAFKA_TOPIC"); v != "" {
		c.Notify.Kafka.Topic = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.History.Cache.Redis.Addr = v
	}
	if v := getenv("SERVER_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Notify.Webhook.Enabled && c.Notify.Webhook.URL == "" {
		return fmt.Errorf("notify.webhook.url is required when webhook is enabled")
	}
	if c.Notify.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka notifications are enabled")
	}
	if c.History.Source == "clickhouse" && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required for history.source=clickhouse")
	}
	if c.History.To != "" {
		if _, err := time.Parse(time.RFC3339, c.History.To); err != nil {
			return fmt.Errorf("history.to must be RFC3339: %w", err)
		}
	}
	return nil
}

// HistoryMarket returns the market replayed by the backtester.
func (c *Config) HistoryMarket() string {
	if c.History.Market != "" {
		return c.History.Market
	}
	return c.Feed.Markets[0]
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
