package indicators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatSeries(n int, price float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = price
	}
	return out
}

func TestRSI(t *testing.T) {
	tests := []struct {
		name   string
		prices []float64
		period int
		mode   Mode
		want   float64
	}{
		{"insufficient data is neutral", []float64{1, 2, 3}, 14, ModeSimplified, 50},
		{"flat series is neutral", flatSeries(20, 100), 14, ModeSimplified, 50},
		{"only gains", []float64{1, 2, 3, 4}, 3, ModeSimplified, 100},
		{"mixed changes", []float64{10, 12, 11}, 2, ModeSimplified, 100 - 100/3.0},
		{"simplified ignores later changes", []float64{10, 12, 11, 9}, 2, ModeSimplified, 100 - 100/3.0},
		{"standard rolls averages forward", []float64{10, 12, 11, 9}, 2, ModeStandard, 100 - 100/1.4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, RSI(tt.prices, tt.period, tt.mode), 1e-9)
		})
	}
}

func TestMovingAverages(t *testing.T) {
	assert.InDelta(t, 3.5, SMA([]float64{1, 2, 3, 4}, 2), 1e-12)
	assert.InDelta(t, 2.5, SMA([]float64{1, 2, 3, 4}, 10), 1e-12)
	assert.Zero(t, SMA(nil, 3))

	series := EMASeries([]float64{1, 2, 3}, 3)
	require.Len(t, series, 3)
	assert.InDelta(t, 1.0, series[0], 1e-12)
	assert.InDelta(t, 1.5, series[1], 1e-12)
	assert.InDelta(t, 2.25, series[2], 1e-12)
	assert.InDelta(t, 2.25, EMA([]float64{1, 2, 3}, 3), 1e-12)
	assert.Zero(t, EMA(nil, 3))
}

func TestMACD(t *testing.T) {
	assert.Equal(t, MACDResult{}, MACD([]float64{1, 2, 3}, ModeSimplified))

	flat := MACD(flatSeries(40, 50), ModeSimplified)
	assert.InDelta(t, 0, flat.Line, 1e-12)
	assert.InDelta(t, 0, flat.Signal, 1e-12)

	rising := make([]float64, 40)
	for i := range rising {
		rising[i] = 100 + float64(i)
	}
	simplified := MACD(rising, ModeSimplified)
	assert.Greater(t, simplified.Line, 0.0)
	assert.InDelta(t, simplified.Line*0.9, simplified.Signal, 1e-12)
	assert.InDelta(t, simplified.Line-simplified.Signal, simplified.Histogram, 1e-12)

	standard := MACD(rising, ModeStandard)
	assert.InDelta(t, simplified.Line, standard.Line, 1e-12)
	assert.NotEqual(t, simplified.Signal, standard.Signal)
}

func TestBollinger(t *testing.T) {
	flat := Bollinger(flatSeries(25, 10), 20, 2)
	assert.Equal(t, BandNeutral, flat.Position)
	assert.InDelta(t, 10, flat.Middle, 1e-12)

	spike := Bollinger([]float64{1, 1, 1, 1, 5}, 5, 1)
	assert.InDelta(t, 1.8, spike.Middle, 1e-12)
	assert.InDelta(t, 3.4, spike.Upper, 1e-12)
	assert.InDelta(t, 0.2, spike.Lower, 1e-12)
	assert.Equal(t, BandOverbought, spike.Position)

	drop := Bollinger([]float64{5, 5, 5, 5, 1}, 5, 1)
	assert.Equal(t, BandOversold, drop.Position)

	short := Bollinger([]float64{3, 4}, 20, 2)
	assert.Equal(t, BandNeutral, short.Position)
	assert.InDelta(t, 4, short.Upper, 1e-12)
}

func TestSupportResistance(t *testing.T) {
	support, resistance := SupportResistance([]float64{5, 3, 8, 1, 9}, 3)
	assert.Equal(t, 1.0, support)
	assert.Equal(t, 9.0, resistance)

	support, resistance = SupportResistance(nil, 3)
	assert.Zero(t, support)
	assert.Zero(t, resistance)
}

func TestVolatility(t *testing.T) {
	assert.Zero(t, Volatility(flatSeries(10, 3)))
	assert.Zero(t, Volatility([]float64{1, 2}))

	prices := []float64{100, 110, 99, 120}
	vol := Volatility(prices)
	assert.Greater(t, vol, 0.0)
	assert.InDelta(t, vol*math.Sqrt(252), AnnualizedVolatility(prices, 252), 1e-12)
	assert.Zero(t, AnnualizedVolatility(prices, 0))
}

func TestParseMode(t *testing.T) {
	mode, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeSimplified, mode)

	mode, err = ParseMode("standard")
	require.NoError(t, err)
	assert.Equal(t, ModeStandard, mode)

	_, err = ParseMode("textbook")
	assert.Error(t, err)
}
