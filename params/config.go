package params

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/uhyunpark/tickreplay/pkg/sim"
)

type Engine struct {
	// ActivationLatency is how many ticks an order waits before it can fill.
	ActivationLatency int `env:"ACTIVATION_LATENCY" envDefault:"10"`
	// MaxLifetime is the age at which an unfilled order expires.
	MaxLifetime int   `env:"MAX_LIFETIME" envDefault:"100"`
	MaxPosition int64 `env:"MAX_POSITION" envDefault:"10"`
	// PriceRule is "cross" or "inverse".
	PriceRule string `env:"PRICE_RULE" envDefault:"cross"`
}

type Data struct {
	Path           string `env:"PATH" envDefault:"result.csv"`
	RecordsPerTick int    `env:"RECORDS_PER_TICK" envDefault:"250"`
	Ticks          int    `env:"TICKS" envDefault:"5000"`

	TimestampColumn string `env:"TIMESTAMP_COLUMN" envDefault:"exchange_ts"`
	BidPriceColumn  string `env:"BID_PRICE_COLUMN" envDefault:"price_BID"`
	BidSizeColumn   string `env:"BID_SIZE_COLUMN" envDefault:"size_BID"`
	AskPriceColumn  string `env:"ASK_PRICE_COLUMN" envDefault:"price_ASK"`
	AskSizeColumn   string `env:"ASK_SIZE_COLUMN" envDefault:"size_ASK"`
}

type Policy struct {
	BidPercent int    `env:"BID_PERCENT" envDefault:"30"`
	OrderSize  string `env:"ORDER_SIZE" envDefault:"0.02"`
	Seed       int64  `env:"SEED" envDefault:"1"`
	// CancelAfter withdraws orders older than this many ticks; 0 disables.
	CancelAfter int `env:"CANCEL_AFTER" envDefault:"0"`
}

// Size parses OrderSize. Call Validate first.
func (p Policy) Size() decimal.Decimal {
	d, err := decimal.NewFromString(p.OrderSize)
	if err != nil {
		return decimal.Zero
	}
	return d
}

type Store struct {
	// Path of the pebble directory. Empty keeps runs in memory.
	Path string `env:"PATH"`
	// JournalPath, if set, receives one JSON line per fill.
	JournalPath string `env:"JOURNAL_PATH"`
}

type API struct {
	Addr           string   `env:"ADDR" envDefault:":8080"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
}

type Log struct {
	Level string `env:"LEVEL" envDefault:"info"`
	File  string `env:"FILE"`
}

type Config struct {
	Engine Engine `envPrefix:"ENGINE_"`
	Data   Data   `envPrefix:"DATA_"`
	Policy Policy `envPrefix:"POLICY_"`
	Store  Store  `envPrefix:"STORE_"`
	API    API    `envPrefix:"API_"`
	Log    Log    `envPrefix:"LOG_"`
	// Verbose enables per-tick debug logging in the engine.
	Verbose bool `env:"VERBOSE" envDefault:"false"`
}

// Default returns the built-in configuration, ignoring the environment.
func Default() Config {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: map[string]string{}}); err != nil {
		panic(fmt.Sprintf("params: bad default tags: %v", err))
	}
	return cfg
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
func LoadFromEnv(envPath string) (Config, error) {
	// Try to load .env file (optional - won't fail if not exists)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SimConfig is the engine's view of the configuration.
func (c Config) SimConfig() sim.Config {
	return sim.Config{
		ActivationLatency: c.Engine.ActivationLatency,
		MaxLifetime:       c.Engine.MaxLifetime,
		MaxPosition:       c.Engine.MaxPosition,
	}
}

func (c Config) Validate() error {
	if err := c.SimConfig().Validate(); err != nil {
		return err
	}
	if _, err := sim.ParsePriceRule(c.Engine.PriceRule); err != nil {
		return err
	}
	if c.Data.RecordsPerTick <= 0 {
		return &sim.ConfigError{Field: "records_per_tick", Reason: fmt.Sprintf("must be > 0, got %d", c.Data.RecordsPerTick)}
	}
	if c.Data.Ticks <= 0 {
		return &sim.ConfigError{Field: "ticks", Reason: fmt.Sprintf("must be > 0, got %d", c.Data.Ticks)}
	}
	if c.Data.Path == "" {
		return &sim.ConfigError{Field: "data_path", Reason: "is empty"}
	}
	if c.Policy.BidPercent < 0 || c.Policy.BidPercent > 100 {
		return &sim.ConfigError{Field: "bid_percent", Reason: fmt.Sprintf("must be in [0, 100], got %d", c.Policy.BidPercent)}
	}
	size, err := decimal.NewFromString(c.Policy.OrderSize)
	if err != nil {
		return &sim.ConfigError{Field: "order_size", Reason: err.Error()}
	}
	if !size.IsPositive() {
		return &sim.ConfigError{Field: "order_size", Reason: fmt.Sprintf("must be > 0, got %s", size)}
	}
	return nil
}
