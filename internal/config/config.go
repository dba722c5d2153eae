// Package config provides configuration management for the signal backtester.
package config

import (
	"fmt"
	"time"
)

// DateLayout is the layout of every date in the configuration
const DateLayout = "2006-01-02"

// Config represents the complete application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database"`
	MarketData MarketDataConfig `mapstructure:"market_data" validate:"required"`
	Backtest   BacktestConfig   `mapstructure:"backtest" validate:"required"`
	Strategies []StrategyConfig `mapstructure:"strategies" validate:"dive"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Secrets    SecretsConfig    `mapstructure:"secrets"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// DatabaseConfig represents database connection configuration. Persistence is optional;
// the connection fields are only checked when it is enabled.
type DatabaseConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Host           string `mapstructure:"host" validate:"required_if=Enabled true"`
	Port           int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Name           string `mapstructure:"name" validate:"required_if=Enabled true"`
	User           string `mapstructure:"user" validate:"required_if=Enabled true"`
	Password       string `mapstructure:"password"`
	SSLMode        string `mapstructure:"ssl_mode" validate:"omitempty,oneof=disable require verify-full"`
	MaxConnections int    `mapstructure:"max_connections" validate:"gte=0"`
	MinConnections int    `mapstructure:"min_connections" validate:"gte=0"`
}

// MarketDataConfig selects and configures the market data source
type MarketDataConfig struct {
	Source          string  `mapstructure:"source" validate:"required,marketsource"`
	BaseURL         string  `mapstructure:"base_url" validate:"omitempty,url"`
	APIKey          string  `mapstructure:"api_key"`
	CSVDir          string  `mapstructure:"csv_dir"`
	Seed            int64   `mapstructure:"seed"`
	BasePrice       float64 `mapstructure:"base_price" validate:"gte=0"`
	Volatility      float64 `mapstructure:"volatility" validate:"gte=0,lt=1"`
	Drift           float64 `mapstructure:"drift"`
	RateLimit       float64 `mapstructure:"rate_limit" validate:"gte=0"`
	TimeoutSeconds  int     `mapstructure:"timeout_seconds" validate:"gte=0"`
	MaxRetries      int     `mapstructure:"max_retries" validate:"gte=0"`
	CacheEnabled    bool    `mapstructure:"cache_enabled"`
	CacheTTLMinutes int     `mapstructure:"cache_ttl_minutes" validate:"gte=0"`
}

// BacktestConfig represents backtesting configuration
type BacktestConfig struct {
	StartDate         string   `mapstructure:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate           string   `mapstructure:"end_date" validate:"required,datetime=2006-01-02"`
	InitialCapital    float64  `mapstructure:"initial_capital" validate:"required,gt=0"`
	CommissionRate    float64  `mapstructure:"commission_rate" validate:"gte=0,lte=5"`
	Slippage          float64  `mapstructure:"slippage" validate:"gte=0"`
	Symbols           []string `mapstructure:"symbols" validate:"required,min=1,dive,required"`
	Timeframe         string   `mapstructure:"timeframe" validate:"required,timeframe"`
	Currency          string   `mapstructure:"currency" validate:"omitempty,len=3"`
	CapitalAllocation string   `mapstructure:"capital_allocation" validate:"omitempty,allocation"`
	IndicatorMode     string   `mapstructure:"indicator_mode" validate:"omitempty,indicatormode"`
	MaxLookback       int      `mapstructure:"max_lookback" validate:"gte=0"`
	Strategy          string   `mapstructure:"strategy"`
	OutputPath        string   `mapstructure:"output_path"`

	MonteCarloIterations int   `mapstructure:"monte_carlo_iterations" validate:"gte=0"`
	MonteCarloSeed       int64 `mapstructure:"monte_carlo_seed"`

	WalkForwardWindows       int     `mapstructure:"walk_forward_windows" validate:"gte=0"`
	WalkForwardInSampleRatio float64 `mapstructure:"walk_forward_in_sample_ratio" validate:"gte=0,lt=1"`
}

// StrategyConfig is a strategy definition supplied in configuration
type StrategyConfig struct {
	ID             string             `mapstructure:"id" validate:"required"`
	Name           string             `mapstructure:"name"`
	Description    string             `mapstructure:"description"`
	Evaluator      string             `mapstructure:"evaluator"`
	Parameters     map[string]float64 `mapstructure:"parameters"`
	RiskManagement RiskConfig         `mapstructure:"risk_management"`
}

// RiskConfig holds the strategy risk parameters in percent
type RiskConfig struct {
	MaxRiskPercent    float64 `mapstructure:"max_risk_percent" validate:"gt=0,lte=100"`
	StopLossPercent   float64 `mapstructure:"stop_loss_percent" validate:"gt=0,lt=100"`
	TakeProfitPercent float64 `mapstructure:"take_profit_percent" validate:"gt=0"`
	PositionSizing    string  `mapstructure:"position_sizing" validate:"omitempty,oneof=fixed percentage dynamic"`
}

// SchedulerConfig represents scheduled backtest jobs
type SchedulerConfig struct {
	Enabled bool        `mapstructure:"enabled"`
	Jobs    []JobConfig `mapstructure:"jobs" validate:"dive"`
}

// JobConfig is one cron-triggered backtest
type JobConfig struct {
	Name         string   `mapstructure:"name" validate:"required"`
	Cron         string   `mapstructure:"cron" validate:"required"`
	Strategy     string   `mapstructure:"strategy" validate:"required"`
	Symbols      []string `mapstructure:"symbols"`
	LookbackDays int      `mapstructure:"lookback_days" validate:"gte=0"`
	Persist      bool     `mapstructure:"persist"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Path    string `mapstructure:"path"`
}

// SecretsConfig points at the AWS Secrets Manager secret overlaid on the configuration
type SecretsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Region     string `mapstructure:"region" validate:"required_if=Enabled true"`
	SecretName string `mapstructure:"secret_name" validate:"required_if=Enabled true"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsStaging checks if the application is running in staging mode
func (c *Config) IsStaging() bool {
	return c.App.Environment == "staging"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// DateRange parses the backtest start and end dates. The end date covers the whole day.
func (b BacktestConfig) DateRange() (time.Time, time.Time, error) {
	start, err := time.Parse(DateLayout, b.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid backtest start_date: %w", err)
	}
	end, err := time.Parse(DateLayout, b.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid backtest end_date: %w", err)
	}
	return start, end.Add(24*time.Hour - time.Nanosecond), nil
}
