package backtest

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"time"

	"github.com/yourusername/signal-backtest/internal/models"
)

// EquityPoint represents a point in the equity curve
type EquityPoint struct {
	Time   time.Time `json:"time"`
	Equity float64   `json:"equity"`
	// Drawdown is the percent decline from the running peak, between 0 and 100
	Drawdown float64 `json:"drawdown"`
}

// EquityCurve represents a time-series of equity points
type EquityCurve []EquityPoint

// BuildEquityCurve replays trades ordered by exit time on top of the initial capital
func BuildEquityCurve(initialCapital float64, start time.Time, trades []models.Trade) EquityCurve {
	curve := make(EquityCurve, 0, len(trades)+1)
	equity := initialCapital
	peak := initialCapital
	curve = append(curve, EquityPoint{Time: start, Equity: equity})

	for _, trade := range trades {
		equity += trade.Profit
		if equity > peak {
			peak = equity
		}
		curve = append(curve, EquityPoint{
			Time:     trade.ExitTime,
			Equity:   equity,
			Drawdown: drawdownPercent(peak, equity),
		})
	}
	return curve
}

func drawdownPercent(peak, equity float64) float64 {
	if peak <= 0 {
		return 0
	}
	dd := (peak - equity) / peak * 100
	switch {
	case dd < 0:
		return 0
	case dd > 100:
		return 100
	}
	return dd
}

// MaxDrawdown returns the deepest drawdown along the curve in percent
func (e EquityCurve) MaxDrawdown() float64 {
	maxDD := 0.0
	for _, point := range e {
		if point.Drawdown > maxDD {
			maxDD = point.Drawdown
		}
	}
	return maxDD
}

// Final returns the last equity value, or zero for an empty curve
func (e EquityCurve) Final() float64 {
	if len(e) == 0 {
		return 0
	}
	return e[len(e)-1].Equity
}

// Returns calculates step returns between consecutive points
func (e EquityCurve) Returns() []float64 {
	if len(e) < 2 {
		return []float64{}
	}
	returns := make([]float64, 0, len(e)-1)
	for i := 1; i < len(e); i++ {
		returns = append(returns, safeDiv(e[i].Equity-e[i-1].Equity, e[i-1].Equity))
	}
	return returns
}

// Range returns the lowest and highest equity reached
func (e EquityCurve) Range() (low, high float64) {
	values := make([]float64, len(e))
	for i, point := range e {
		values[i] = point.Equity
	}
	return minMax(values)
}

// ToCSV exports the equity curve as CSV
func (e EquityCurve) ToCSV() ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write([]string{"time", "equity", "drawdown"}); err != nil {
		return nil, err
	}
	for _, point := range e {
		record := []string{
			point.Time.UTC().Format(time.RFC3339),
			strconv.FormatFloat(point.Equity, 'f', -1, 64),
			strconv.FormatFloat(point.Drawdown, 'f', -1, 64),
		}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	return buf.Bytes(), writer.Error()
}
