package indicators

import "gonum.org/v1/gonum/stat"

// BandPosition classifies the current price against the Bollinger Bands
type BandPosition string

const (
	BandOversold   BandPosition = "oversold"
	BandOverbought BandPosition = "overbought"
	BandNeutral    BandPosition = "neutral"
)

// BollingerBands holds the band levels for the last price of a window
type BollingerBands struct {
	Upper    float64
	Middle   float64
	Lower    float64
	Position BandPosition
}

// Bollinger computes SMA +/- k standard deviations over the trailing period and
// classifies the last price. With fewer than period prices all bands collapse onto the
// last price and the position is neutral.
func Bollinger(prices []float64, period int, k float64) BollingerBands {
	if len(prices) == 0 {
		return BollingerBands{Position: BandNeutral}
	}
	price := prices[len(prices)-1]
	if period <= 0 || len(prices) < period {
		return BollingerBands{Upper: price, Middle: price, Lower: price, Position: BandNeutral}
	}

	window := prices[len(prices)-period:]
	mean, std := stat.PopMeanStdDev(window, nil)
	bands := BollingerBands{
		Upper:    mean + k*std,
		Middle:   mean,
		Lower:    mean - k*std,
		Position: BandNeutral,
	}
	switch {
	case price < bands.Lower:
		bands.Position = BandOversold
	case price > bands.Upper:
		bands.Position = BandOverbought
	}
	return bands
}
