package models

import (
	"fmt"
	"strings"
)

// PositionSizing selects how the risk amount of a new position is derived
type PositionSizing string

const (
	// SizingFixed risks a fixed share of the initial capital on every trade
	SizingFixed PositionSizing = "fixed"
	// SizingPercentage risks a share of the capital available when the trade opens
	SizingPercentage PositionSizing = "percentage"
	// SizingDynamic behaves like SizingPercentage but caps notional at available capital
	SizingDynamic PositionSizing = "dynamic"
)

// RiskManagement holds the risk parameters of a strategy, all in percent
type RiskManagement struct {
	MaxRiskPercent    float64        `json:"max_risk_percent" mapstructure:"max_risk_percent"`
	StopLossPercent   float64        `json:"stop_loss_percent" mapstructure:"stop_loss_percent"`
	TakeProfitPercent float64        `json:"take_profit_percent" mapstructure:"take_profit_percent"`
	PositionSizing    PositionSizing `json:"position_sizing" mapstructure:"position_sizing"`
}

// Strategy is the immutable definition consumed by a backtest run
type Strategy struct {
	ID              string             `json:"id" mapstructure:"id"`
	Name            string             `json:"name" mapstructure:"name"`
	Description     string             `json:"description" mapstructure:"description"`
	Parameters      map[string]float64 `json:"parameters" mapstructure:"parameters"`
	EntryConditions []string           `json:"entry_conditions" mapstructure:"entry_conditions"`
	ExitConditions  []string           `json:"exit_conditions" mapstructure:"exit_conditions"`
	RiskManagement  RiskManagement     `json:"risk_management" mapstructure:"risk_management"`
}

// Param returns a numeric parameter or the fallback when it is absent or non-positive.
// Keys match case-insensitively since config loaders lowercase map keys.
func (s Strategy) Param(key string, fallback float64) float64 {
	v, ok := s.Parameters[key]
	if !ok {
		for k, candidate := range s.Parameters {
			if strings.EqualFold(k, key) {
				v, ok = candidate, true
				break
			}
		}
	}
	if ok && v > 0 {
		return v
	}
	return fallback
}

// Key returns the registry key for the strategy, preferring the ID over the display name
func (s Strategy) Key() string {
	if s.ID != "" {
		return s.ID
	}
	return s.Name
}

// Validate performs basic validation on the strategy
func (s Strategy) Validate() error {
	if s.Key() == "" {
		return ErrStrategyIDRequired
	}
	rm := s.RiskManagement
	if rm.MaxRiskPercent <= 0 || rm.StopLossPercent <= 0 || rm.TakeProfitPercent <= 0 {
		return fmt.Errorf("strategy %s: %w", s.Key(), ErrInvalidRiskParameter)
	}
	switch rm.PositionSizing {
	case SizingFixed, SizingPercentage, SizingDynamic, "":
	default:
		return fmt.Errorf("strategy %s: %w: %q", s.Key(), ErrUnknownSizingMode, rm.PositionSizing)
	}
	return nil
}
