package backtest

import (
	"errors"
	"fmt"
	"time"

	"github.com/yourusername/signal-backtest/internal/config"
	"github.com/yourusername/signal-backtest/internal/indicators"
	"github.com/yourusername/signal-backtest/internal/models"
)

// ErrInvalidConfig is wrapped by every configuration error returned from this package
var ErrInvalidConfig = errors.New("invalid backtest config")

// CapitalAllocation selects how capital is shared between symbols
type CapitalAllocation string

const (
	// AllocationShared runs every symbol against one running balance. Symbols are
	// processed in order, so later symbols size positions from the capital the
	// earlier ones left behind.
	AllocationShared CapitalAllocation = "shared"
	// AllocationPerSymbol gives each symbol an equal, isolated slice of the capital
	AllocationPerSymbol CapitalAllocation = "per_symbol"
)

const (
	// DefaultMaxLookback is the number of trailing bars handed to the evaluator
	DefaultMaxLookback = 50
	// DefaultTimeframe is used when none is configured
	DefaultTimeframe = "1h"
)

// BacktestConfig holds the engine settings for one run
type BacktestConfig struct {
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	InitialCapital float64   `json:"initial_capital"`
	// CommissionRate is a percentage charged on entry plus exit notional
	CommissionRate float64 `json:"commission_rate"`
	// Slippage is carried for reporting and not applied to fills
	Slippage          float64           `json:"slippage"`
	Symbols           []string          `json:"symbols"`
	Timeframe         string            `json:"timeframe"`
	Currency          string            `json:"currency"`
	CapitalAllocation CapitalAllocation `json:"capital_allocation"`
	IndicatorMode     indicators.Mode   `json:"indicator_mode"`
	MaxLookback       int               `json:"max_lookback"`
	OutputPath        string            `json:"output_path,omitempty"`

	MonteCarloIterations     int     `json:"monte_carlo_iterations,omitempty"`
	MonteCarloSeed           int64   `json:"monte_carlo_seed,omitempty"`
	WalkForwardWindows       int     `json:"walk_forward_windows,omitempty"`
	WalkForwardInSampleRatio float64 `json:"walk_forward_in_sample_ratio,omitempty"`
}

// FromConfig converts app config to backtest config
func FromConfig(cfg *config.BacktestConfig) (BacktestConfig, error) {
	if cfg == nil {
		return BacktestConfig{}, fmt.Errorf("%w: backtest config is required", ErrInvalidConfig)
	}
	start, end, err := cfg.DateRange()
	if err != nil {
		return BacktestConfig{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	mode, err := indicators.ParseMode(cfg.IndicatorMode)
	if err != nil {
		return BacktestConfig{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	bt := BacktestConfig{
		StartDate:                start,
		EndDate:                  end,
		InitialCapital:           cfg.InitialCapital,
		CommissionRate:           cfg.CommissionRate,
		Slippage:                 cfg.Slippage,
		Symbols:                  append([]string(nil), cfg.Symbols...),
		Timeframe:                cfg.Timeframe,
		Currency:                 cfg.Currency,
		CapitalAllocation:        CapitalAllocation(cfg.CapitalAllocation),
		IndicatorMode:            mode,
		MaxLookback:              cfg.MaxLookback,
		OutputPath:               cfg.OutputPath,
		MonteCarloIterations:     cfg.MonteCarloIterations,
		MonteCarloSeed:           cfg.MonteCarloSeed,
		WalkForwardWindows:       cfg.WalkForwardWindows,
		WalkForwardInSampleRatio: cfg.WalkForwardInSampleRatio,
	}.WithDefaults()

	return bt, bt.Validate()
}

// WithDefaults fills unset optional fields
func (b BacktestConfig) WithDefaults() BacktestConfig {
	if b.Timeframe == "" {
		b.Timeframe = DefaultTimeframe
	}
	if b.Currency == "" {
		b.Currency = "USD"
	}
	if b.CapitalAllocation == "" {
		b.CapitalAllocation = AllocationShared
	}
	if b.IndicatorMode == "" {
		b.IndicatorMode = indicators.ModeSimplified
	}
	if b.MaxLookback == 0 {
		b.MaxLookback = DefaultMaxLookback
	}
	return b
}

// Validate validates backtest config parameters
func (b BacktestConfig) Validate() error {
	if len(b.Symbols) == 0 {
		return fmt.Errorf("%w: at least one symbol is required", ErrInvalidConfig)
	}
	seen := make(map[string]bool, len(b.Symbols))
	for _, symbol := range b.Symbols {
		if symbol == "" {
			return fmt.Errorf("%w: empty symbol", ErrInvalidConfig)
		}
		if seen[symbol] {
			return fmt.Errorf("%w: duplicate symbol %q", ErrInvalidConfig, symbol)
		}
		seen[symbol] = true
	}
	if b.InitialCapital <= 0 {
		return fmt.Errorf("%w: initial capital must be positive", ErrInvalidConfig)
	}
	if b.StartDate.After(b.EndDate) {
		return fmt.Errorf("%w: start date must be before end date", ErrInvalidConfig)
	}
	if b.CommissionRate < 0 {
		return fmt.Errorf("%w: commission rate cannot be negative", ErrInvalidConfig)
	}
	if b.Slippage < 0 {
		return fmt.Errorf("%w: slippage cannot be negative", ErrInvalidConfig)
	}
	if !models.IsValidTimeframe(b.Timeframe) {
		return fmt.Errorf("%w: unknown timeframe %q", ErrInvalidConfig, b.Timeframe)
	}
	switch b.CapitalAllocation {
	case AllocationShared, AllocationPerSymbol:
	default:
		return fmt.Errorf("%w: unknown capital allocation %q", ErrInvalidConfig, b.CapitalAllocation)
	}
	if _, err := indicators.ParseMode(string(b.IndicatorMode)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if b.MaxLookback < 2 {
		return fmt.Errorf("%w: max lookback must be at least 2 bars", ErrInvalidConfig)
	}
	if b.MonteCarloIterations < 0 || b.WalkForwardWindows < 0 {
		return fmt.Errorf("%w: iteration and window counts cannot be negative", ErrInvalidConfig)
	}
	if b.WalkForwardInSampleRatio < 0 || b.WalkForwardInSampleRatio >= 1 {
		return fmt.Errorf("%w: in-sample ratio must be in [0, 1)", ErrInvalidConfig)
	}
	return nil
}
