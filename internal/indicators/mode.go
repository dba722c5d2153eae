// Package indicators computes technical indicators over ordered close prices.
//
// Every function degrades to a neutral value when the input is too short instead
// of returning an error.
package indicators

import "fmt"

// Mode selects between the simplified indicator math used by the signal product
// and the textbook formulas.
type Mode string

const (
	// ModeSimplified computes RSI from the first period window only and derives the
	// MACD signal line as 0.9 times the MACD line.
	ModeSimplified Mode = "simplified"
	// ModeStandard uses Wilder smoothing for RSI and a 9-period EMA of the MACD line
	// as signal.
	ModeStandard Mode = "standard"
)

// ParseMode converts a config label to a Mode. An empty label selects ModeSimplified.
func ParseMode(label string) (Mode, error) {
	switch Mode(label) {
	case "", ModeSimplified:
		return ModeSimplified, nil
	case ModeStandard:
		return ModeStandard, nil
	default:
		return "", fmt.Errorf("unknown indicator mode %q", label)
	}
}
