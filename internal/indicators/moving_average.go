package indicators

// SMA returns the mean of the last period prices. With fewer prices than period it
// averages what is available.
func SMA(prices []float64, period int) float64 {
	if len(prices) == 0 || period <= 0 {
		return 0
	}
	start := len(prices) - period
	if start < 0 {
		start = 0
	}
	sum := 0.0
	for _, p := range prices[start:] {
		sum += p
	}
	return sum / float64(len(prices)-start)
}

// EMASeries returns the exponential moving average aligned to the input, seeded with
// the first price and smoothed with k = 2/(period+1).
func EMASeries(prices []float64, period int) []float64 {
	if len(prices) == 0 || period <= 0 {
		return nil
	}
	k := 2.0 / float64(period+1)
	out := make([]float64, len(prices))
	out[0] = prices[0]
	for i := 1; i < len(prices); i++ {
		out[i] = prices[i]*k + out[i-1]*(1-k)
	}
	return out
}

// EMA returns the last value of EMASeries, or 0 for empty input.
func EMA(prices []float64, period int) float64 {
	series := EMASeries(prices, period)
	if len(series) == 0 {
		return 0
	}
	return series[len(series)-1]
}
