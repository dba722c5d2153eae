package indicators

const (
	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9

	// simplifiedSignalFactor approximates the signal line as a fixed fraction of the MACD line
	simplifiedSignalFactor = 0.9
)

// MACDMinPrices is the number of prices MACD needs before it returns a non-zero result
const MACDMinPrices = macdSlow

// MACDResult holds the MACD line, its signal line and the histogram
type MACDResult struct {
	Line      float64
	Signal    float64
	Histogram float64
}

// MACD computes EMA(12) - EMA(26) over the window. The signal line depends on mode.
// Returns a zero result with fewer than 26 prices.
func MACD(prices []float64, mode Mode) MACDResult {
	if len(prices) < macdSlow {
		return MACDResult{}
	}

	fast := EMASeries(prices, macdFast)
	slow := EMASeries(prices, macdSlow)
	line := fast[len(fast)-1] - slow[len(slow)-1]

	var signal float64
	if mode == ModeStandard {
		lines := make([]float64, len(prices))
		for i := range prices {
			lines[i] = fast[i] - slow[i]
		}
		signal = EMA(lines, macdSignal)
	} else {
		signal = line * simplifiedSignalFactor
	}

	return MACDResult{
		Line:      line,
		Signal:    signal,
		Histogram: line - signal,
	}
}
