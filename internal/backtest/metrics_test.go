package backtest

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/signal-backtest/internal/models"
)

func tradeAt(exit time.Time, profit, profitPercent float64) models.Trade {
	return models.Trade{
		Symbol:        "BTCUSDT",
		Direction:     models.DirectionLong,
		EntryTime:     exit.Add(-2 * time.Hour),
		ExitTime:      exit,
		EntryPrice:    100,
		ExitPrice:     100 + profitPercent,
		Quantity:      1,
		Commission:    0.5,
		Profit:        profit,
		ProfitPercent: profitPercent,
		DurationHours: 2,
		ExitReason:    models.ExitStrategyExit,
	}
}

func TestCalculatePerformance(t *testing.T) {
	trades := []models.Trade{
		tradeAt(t0.Add(1*time.Hour), 100, 1),
		tradeAt(t0.Add(2*time.Hour), 200, 2),
		tradeAt(t0.Add(3*time.Hour), -150, -1.5),
		tradeAt(t0.Add(4*time.Hour), 0, 0),
		tradeAt(t0.Add(5*time.Hour), -50, -0.5),
	}
	curve := BuildEquityCurve(1000, t0, trades)
	perf := CalculatePerformance(trades, 1000, curve)

	assert.Equal(t, 5, perf.TotalTrades)
	assert.Equal(t, 2, perf.WinningTrades)
	assert.Equal(t, 2, perf.LosingTrades)
	assert.Equal(t, 1, perf.BreakevenTrades)
	assert.InDelta(t, 50.0, perf.WinRate, 1e-9)
	assert.InDelta(t, 150.0, perf.AverageWin, 1e-9)
	assert.InDelta(t, -100.0, perf.AverageLoss, 1e-9)
	assert.Equal(t, 200.0, perf.LargestWin)
	assert.Equal(t, -150.0, perf.LargestLoss)
	assert.InDelta(t, 1.5, perf.ProfitFactor, 1e-9)
	assert.InDelta(t, 25.0, perf.Expectancy, 1e-9)
	assert.InDelta(t, 1100.0, perf.FinalCapital, 1e-9)
	assert.InDelta(t, 10.0, perf.TotalReturnPercent, 1e-9)
	assert.InDelta(t, 2.5, perf.TotalCommission, 1e-9)
	assert.InDelta(t, 2.0, perf.AverageHoldingHours, 1e-9)
	assert.Equal(t, 2, perf.MaxConsecutiveWins)
	assert.Equal(t, 1, perf.MaxConsecutiveLoss)

	// peak 1300 then 1100 is the deepest point
	assert.InDelta(t, 200.0/1300*100, perf.MaxDrawdown, 1e-9)
	assert.InDelta(t, perf.TotalReturnPercent/perf.MaxDrawdown, perf.CalmarRatio, 1e-9)

	assert.InDelta(t, 0.2/math.Sqrt(7.3/4), perf.SharpeRatio, 1e-9)
	assert.InDelta(t, 0.2/math.Sqrt(0.5), perf.SortinoRatio, 1e-9)
}

func TestCalculatePerformance_EdgeCases(t *testing.T) {
	t.Run("no trades", func(t *testing.T) {
		perf := CalculatePerformance(nil, 500, BuildEquityCurve(500, t0, nil))
		assert.Equal(t, 500.0, perf.FinalCapital)
		assert.Zero(t, perf.WinRate)
		assert.Zero(t, perf.ProfitFactor)
		assert.Zero(t, perf.SharpeRatio)
		assert.Zero(t, perf.SortinoRatio)
		assert.Zero(t, perf.CalmarRatio)
		assert.Zero(t, perf.MaxDrawdown)
	})

	t.Run("single trade has no sharpe", func(t *testing.T) {
		trades := []models.Trade{tradeAt(t0, 10, 1)}
		perf := CalculatePerformance(trades, 500, BuildEquityCurve(500, t0, trades))
		assert.Zero(t, perf.SharpeRatio)
		assert.Equal(t, 100.0, perf.WinRate)
		assert.Equal(t, 10.0, perf.ProfitFactor)
	})

	t.Run("identical returns have no sharpe", func(t *testing.T) {
		trades := []models.Trade{tradeAt(t0, 10, 1), tradeAt(t0.Add(time.Hour), 10, 1)}
		perf := CalculatePerformance(trades, 500, BuildEquityCurve(500, t0, trades))
		assert.Zero(t, perf.SharpeRatio)
	})

	t.Run("breakeven resets streaks", func(t *testing.T) {
		trades := []models.Trade{
			tradeAt(t0, -1, -1),
			tradeAt(t0.Add(time.Hour), 0, 0),
			tradeAt(t0.Add(2*time.Hour), -1, -1),
		}
		_, losses := streaks(trades)
		assert.Equal(t, 1, losses)
	})
}

func TestBuildEquityCurve_DrawdownBounds(t *testing.T) {
	trades := []models.Trade{
		tradeAt(t0.Add(time.Hour), -800, -80),
		tradeAt(t0.Add(2*time.Hour), -400, -40),
	}
	curve := BuildEquityCurve(1000, t0, trades)
	require.Len(t, curve, 3)
	assert.Equal(t, t0, curve[0].Time)
	assert.InDelta(t, -200.0, curve.Final(), 1e-9)
	assert.Equal(t, 100.0, curve.MaxDrawdown())

	low, high := curve.Range()
	assert.InDelta(t, -200.0, low, 1e-9)
	assert.InDelta(t, 1000.0, high, 1e-9)
}

func TestEquityCurve_ToCSV(t *testing.T) {
	curve := BuildEquityCurve(1000, t0, []models.Trade{tradeAt(t0.Add(time.Hour), 25.5, 2.55)})
	data, err := curve.ToCSV()
	require.NoError(t, err)
	assert.Equal(t, "time,equity,drawdown\n2024-01-01T00:00:00Z,1000,0\n2024-01-01T01:00:00Z,1025.5,0\n", string(data))
}

func TestCalculateMonthlyReturns(t *testing.T) {
	feb := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	trades := []models.Trade{
		tradeAt(t0.Add(time.Hour), 100, 1),
		tradeAt(feb, -20, -0.2),
		tradeAt(t0.Add(48*time.Hour), 50, 0.5),
	}
	months := CalculateMonthlyReturns(trades, 1000)
	require.Len(t, months, 2)
	assert.Equal(t, "2024-01", months[0].Month)
	assert.Equal(t, 2, months[0].Trades)
	assert.InDelta(t, 150.0, months[0].Profit, 1e-9)
	assert.InDelta(t, 15.0, months[0].ReturnPercent, 1e-9)
	assert.Equal(t, "2024-02", months[1].Month)
	assert.InDelta(t, -2.0, months[1].ReturnPercent, 1e-9)
}

func TestCalculateRiskMetrics(t *testing.T) {
	assert.Equal(t, RiskMetrics{}, CalculateRiskMetrics(nil))

	var trades []models.Trade
	for i := 1; i <= 100; i++ {
		trades = append(trades, tradeAt(t0.Add(time.Duration(i)*time.Hour), float64(i-50), float64(i-50)))
	}
	risk := CalculateRiskMetrics(trades)
	assert.Greater(t, risk.Volatility, 0.0)
	assert.Greater(t, risk.DownsideDeviation, 0.0)
	assert.Equal(t, -45.0, risk.VaR95)
	assert.Equal(t, -49.0, risk.VaR99)
}

func TestPositionManager(t *testing.T) {
	bar := models.Bar{Time: t0, Close: 200}
	definition := models.Strategy{ID: "x", RiskManagement: models.RiskManagement{
		MaxRiskPercent: 1, StopLossPercent: 5, TakeProfitPercent: 10, PositionSizing: models.SizingPercentage,
	}}
	pm := PositionManager{CommissionRate: 0.1}

	t.Run("short levels", func(t *testing.T) {
		pos, ok := pm.Open("X", models.DirectionShort, bar, definition, 5000, 10000)
		require.True(t, ok)
		assert.Equal(t, 210.0, pos.StopLoss)
		assert.Equal(t, 180.0, pos.TakeProfit)
		assert.InDelta(t, 5.0, pos.Quantity, 1e-9)

		trade := pm.Close(pos, models.Bar{Time: t0.Add(3 * time.Hour), Close: 190}, models.ExitStrategyExit)
		assert.InDelta(t, 50.0, trade.GrossProfit(), 1e-9)
		assert.InDelta(t, 1.95, trade.Commission, 1e-9)
		assert.InDelta(t, 48.05/1000*100, trade.ProfitPercent, 1e-9)
		assert.InDelta(t, 3.0, trade.DurationHours, 1e-9)
	})

	t.Run("fixed sizing uses initial capital", func(t *testing.T) {
		fixed := definition
		fixed.RiskManagement.PositionSizing = models.SizingFixed
		pos, ok := pm.Open("X", models.DirectionLong, bar, fixed, 5000, 10000)
		require.True(t, ok)
		assert.InDelta(t, 10.0, pos.Quantity, 1e-9)
	})

	t.Run("dynamic sizing caps notional", func(t *testing.T) {
		dynamic := definition
		dynamic.RiskManagement.MaxRiskPercent = 20
		dynamic.RiskManagement.StopLossPercent = 1
		dynamic.RiskManagement.PositionSizing = models.SizingDynamic
		pos, ok := pm.Open("X", models.DirectionLong, bar, dynamic, 5000, 10000)
		require.True(t, ok)
		assert.InDelta(t, 25.0, pos.Quantity, 1e-9)
	})

	t.Run("no capital", func(t *testing.T) {
		_, ok := pm.Open("X", models.DirectionLong, bar, definition, 0, 10000)
		assert.False(t, ok)
	})
}
