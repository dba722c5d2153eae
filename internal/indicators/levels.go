package indicators

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultLevelLookback is the trailing window for support and resistance.
const DefaultLevelLookback = 50

// SupportResistance returns the min and max of the trailing lookback closes.
func SupportResistance(prices []float64, lookback int) (support, resistance float64) {
	if len(prices) == 0 {
		return 0, 0
	}
	if lookback <= 0 {
		lookback = DefaultLevelLookback
	}
	start := len(prices) - lookback
	if start < 0 {
		start = 0
	}
	window := prices[start:]
	return floats.Min(window), floats.Max(window)
}

// Returns converts a price series into simple period returns, skipping zero prices.
func Returns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			continue
		}
		returns = append(returns, (prices[i]-prices[i-1])/prices[i-1])
	}
	return returns
}

// Volatility is the sample standard deviation of per-bar returns, not annualized.
func Volatility(prices []float64) float64 {
	returns := Returns(prices)
	if len(returns) < 2 {
		return 0
	}
	return stat.StdDev(returns, nil)
}

// AnnualizedVolatility scales Volatility by sqrt(periodsPerYear).
func AnnualizedVolatility(prices []float64, periodsPerYear float64) float64 {
	if periodsPerYear <= 0 {
		return 0
	}
	return Volatility(prices) * math.Sqrt(periodsPerYear)
}
