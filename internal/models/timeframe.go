package models

import (
	"fmt"
	"time"
)

var timeframes = map[string]time.Duration{
	"1m":  time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"4h":  4 * time.Hour,
	"1d":  24 * time.Hour,
}

// ParseTimeframe converts a timeframe label such as "1h" to its bar spacing
func ParseTimeframe(label string) (time.Duration, error) {
	d, ok := timeframes[label]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownTimeframe, label)
	}
	return d, nil
}

// IsValidTimeframe reports whether the label is a supported timeframe
func IsValidTimeframe(label string) bool {
	_, ok := timeframes[label]
	return ok
}
