package models

import "errors"

// Custom errors
var (
	ErrStrategyIDRequired   = errors.New("strategy id is required")
	ErrInvalidRiskParameter = errors.New("risk management percentages must be positive")
	ErrUnknownSizingMode    = errors.New("unknown position sizing mode")
	ErrUnknownTimeframe     = errors.New("unknown timeframe")
	ErrNotFound             = errors.New("record not found")
)
