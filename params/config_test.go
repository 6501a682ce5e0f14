package params

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uhyunpark/tickreplay/pkg/sim"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 10, cfg.Engine.ActivationLatency)
	assert.Equal(t, 100, cfg.Engine.MaxLifetime)
	assert.Equal(t, int64(10), cfg.Engine.MaxPosition)
	assert.Equal(t, "cross", cfg.Engine.PriceRule)
	assert.Equal(t, 250, cfg.Data.RecordsPerTick)
	assert.Equal(t, 5000, cfg.Data.Ticks)
	assert.Equal(t, "result.csv", cfg.Data.Path)
	assert.Equal(t, "exchange_ts", cfg.Data.TimestampColumn)
	assert.Equal(t, 30, cfg.Policy.BidPercent)
	assert.Equal(t, "0.02", cfg.Policy.Size().String())
	assert.Equal(t, []string{"*"}, cfg.API.AllowedOrigins)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Verbose)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnv_EnvOverrides(t *testing.T) {
	t.Setenv("ENGINE_MAX_LIFETIME", "7")
	t.Setenv("DATA_TICKS", "12")
	t.Setenv("POLICY_ORDER_SIZE", "1.5")
	t.Setenv("API_ALLOWED_ORIGINS", "http://a,http://b")
	t.Setenv("VERBOSE", "true")

	cfg, err := LoadFromEnv(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Engine.MaxLifetime)
	assert.Equal(t, 12, cfg.Data.Ticks)
	assert.Equal(t, "1.5", cfg.Policy.Size().String())
	assert.Equal(t, []string{"http://a", "http://b"}, cfg.API.AllowedOrigins)
	assert.True(t, cfg.Verbose)
	// untouched values keep their defaults
	assert.Equal(t, 10, cfg.Engine.ActivationLatency)
}

func TestLoadFromEnv_DotEnvFile(t *testing.T) {
	// register cleanup for keys godotenv will set, then clear them
	for _, k := range []string{"ENGINE_ACTIVATION_LATENCY", "DATA_PATH"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	t.Setenv("DATA_PATH", "from-env.csv")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("ENGINE_ACTIVATION_LATENCY=3\nDATA_PATH=from-file.csv\n"), 0o644))

	cfg, err := LoadFromEnv(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Engine.ActivationLatency)
	assert.Equal(t, "from-env.csv", cfg.Data.Path, "environment wins over .env")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		mod   func(*Config)
		field string
	}{
		{"negative latency", func(c *Config) { c.Engine.ActivationLatency = -1 }, "activation_latency"},
		{"zero lifetime", func(c *Config) { c.Engine.MaxLifetime = 0 }, "max_lifetime"},
		{"negative position", func(c *Config) { c.Engine.MaxPosition = -2 }, "max_position"},
		{"bad rule", func(c *Config) { c.Engine.PriceRule = "sideways" }, "price_rule"},
		{"zero records per tick", func(c *Config) { c.Data.RecordsPerTick = 0 }, "records_per_tick"},
		{"zero ticks", func(c *Config) { c.Data.Ticks = 0 }, "ticks"},
		{"empty path", func(c *Config) { c.Data.Path = "" }, "data_path"},
		{"bid percent", func(c *Config) { c.Policy.BidPercent = 101 }, "bid_percent"},
		{"bad size", func(c *Config) { c.Policy.OrderSize = "lots" }, "order_size"},
		{"zero size", func(c *Config) { c.Policy.OrderSize = "0" }, "order_size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mod(&cfg)
			err := cfg.Validate()
			var cfgErr *sim.ConfigError
			require.True(t, errors.As(err, &cfgErr), "want *sim.ConfigError, got %v", err)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}

	t.Run("zero latency and position are allowed", func(t *testing.T) {
		cfg := Default()
		cfg.Engine.ActivationLatency = 0
		cfg.Engine.MaxPosition = 0
		assert.NoError(t, cfg.Validate())
	})
}

func TestLoadFromEnv_InvalidValue(t *testing.T) {
	t.Setenv("ENGINE_MAX_POSITION", "many")
	_, err := LoadFromEnv(filepath.Join(t.TempDir(), "absent.env"))
	assert.Error(t, err)
}
