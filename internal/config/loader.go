package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix         = "SIGNAL_BACKTEST"
	defaultConfigPath = "config/config.yaml"
)

// Load reads and parses the configuration from file and environment variables
// It expands environment variable placeholders in the YAML file (${VAR_NAME})
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v := newViper()
	if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// LoadWithDefaults loads configuration with default values for optional fields.
// A missing file is not an error; defaults and environment variables still apply.
func LoadWithDefaults(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	v := newViper()
	setDefaults(v)

	if data, err := os.ReadFile(configPath); err == nil {
		if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")

	// SIGNAL_BACKTEST_BACKTEST_INITIAL_CAPITAL overrides backtest.initial_capital
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "signal-backtest")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("market_data.source", "synthetic")
	v.SetDefault("market_data.seed", 42)
	v.SetDefault("market_data.base_price", 100)
	v.SetDefault("market_data.volatility", 0.01)
	v.SetDefault("market_data.rate_limit", 10)
	v.SetDefault("market_data.timeout_seconds", 30)
	v.SetDefault("market_data.max_retries", 3)
	v.SetDefault("market_data.cache_ttl_minutes", 60)

	v.SetDefault("backtest.initial_capital", 10000)
	v.SetDefault("backtest.commission_rate", 0.1)
	v.SetDefault("backtest.symbols", []string{"BTCUSDT"})
	v.SetDefault("backtest.timeframe", "1h")
	v.SetDefault("backtest.currency", "USD")
	v.SetDefault("backtest.capital_allocation", "shared")
	v.SetDefault("backtest.indicator_mode", "simplified")
	v.SetDefault("backtest.max_lookback", 50)
	v.SetDefault("backtest.strategy", "rsi_macd")
	v.SetDefault("backtest.monte_carlo_seed", 1)
	v.SetDefault("backtest.walk_forward_in_sample_ratio", 0.7)

	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.min_connections", 1)

	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")
}
