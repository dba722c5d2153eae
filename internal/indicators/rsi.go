package indicators

// DefaultRSIPeriod is the lookback used when a strategy does not set one.
const DefaultRSIPeriod = 14

// RSI computes the relative strength index of the price window.
//
// Both modes average the gains and losses of the first period changes. ModeSimplified
// stops there; ModeStandard then rolls the averages forward over the remaining changes
// with Wilder smoothing. Returns 50 when fewer than period+1 prices are available.
func RSI(prices []float64, period int, mode Mode) float64 {
	if period <= 0 {
		period = DefaultRSIPeriod
	}
	if len(prices) < period+1 {
		return 50
	}

	gains, losses := 0.0, 0.0
	for i := 1; i <= period; i++ {
		gain, loss := splitChange(prices[i] - prices[i-1])
		gains += gain
		losses += loss
	}
	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	if mode == ModeStandard {
		p := float64(period)
		for i := period + 1; i < len(prices); i++ {
			gain, loss := splitChange(prices[i] - prices[i-1])
			avgGain = (avgGain*(p-1) + gain) / p
			avgLoss = (avgLoss*(p-1) + loss) / p
		}
	}

	return rsiFromAverages(avgGain, avgLoss)
}

func splitChange(change float64) (gain, loss float64) {
	if change > 0 {
		return change, 0
	}
	return 0, -change
}

func rsiFromAverages(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
