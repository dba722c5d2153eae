package backtest

import (
	"math"
	"sort"

	"github.com/yourusername/signal-backtest/internal/models"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Performance represents backtest performance metrics. Percent fields are on a 0-100 scale
// and ratios are computed on per-trade percent returns without annualization.
type Performance struct {
	InitialCapital      float64 `json:"initial_capital"`
	FinalCapital        float64 `json:"final_capital"`
	TotalReturn         float64 `json:"total_return"`
	TotalReturnPercent  float64 `json:"total_return_percent"`
	TotalTrades         int     `json:"total_trades"`
	WinningTrades       int     `json:"winning_trades"`
	LosingTrades        int     `json:"losing_trades"`
	BreakevenTrades     int     `json:"breakeven_trades"`
	WinRate             float64 `json:"win_rate"`
	AverageWin          float64 `json:"average_win"`
	AverageLoss         float64 `json:"average_loss"`
	LargestWin          float64 `json:"largest_win"`
	LargestLoss         float64 `json:"largest_loss"`
	ProfitFactor        float64 `json:"profit_factor"`
	Expectancy          float64 `json:"expectancy"`
	MaxDrawdown         float64 `json:"max_drawdown"`
	SharpeRatio         float64 `json:"sharpe_ratio"`
	SortinoRatio        float64 `json:"sortino_ratio"`
	CalmarRatio         float64 `json:"calmar_ratio"`
	MaxConsecutiveWins  int     `json:"max_consecutive_wins"`
	MaxConsecutiveLoss  int     `json:"max_consecutive_losses"`
	AverageHoldingHours float64 `json:"average_holding_hours"`
	TotalCommission     float64 `json:"total_commission"`
}

// RiskMetrics summarizes the distribution of per-trade percent returns
type RiskMetrics struct {
	Volatility        float64 `json:"volatility"`
	DownsideDeviation float64 `json:"downside_deviation"`
	VaR95             float64 `json:"var_95"`
	VaR99             float64 `json:"var_99"`
}

// MonthlyReturn aggregates trades by the month they exited
type MonthlyReturn struct {
	Month         string  `json:"month"`
	Profit        float64 `json:"profit"`
	ReturnPercent float64 `json:"return_percent"`
	Trades        int     `json:"trades"`
}

// CalculatePerformance calculates metrics from trades ordered by exit time
func CalculatePerformance(trades []models.Trade, initialCapital float64, curve EquityCurve) Performance {
	perf := Performance{
		InitialCapital: initialCapital,
		FinalCapital:   initialCapital,
		TotalTrades:    len(trades),
	}

	var totalWin, totalLoss, holding float64
	for _, trade := range trades {
		perf.TotalReturn += trade.Profit
		perf.TotalCommission += trade.Commission
		holding += trade.DurationHours

		switch {
		case trade.IsWin():
			perf.WinningTrades++
			totalWin += trade.Profit
			perf.LargestWin = math.Max(perf.LargestWin, trade.Profit)
		case trade.IsLoss():
			perf.LosingTrades++
			totalLoss += trade.Profit
			perf.LargestLoss = math.Min(perf.LargestLoss, trade.Profit)
		default:
			perf.BreakevenTrades++
		}
	}
	perf.FinalCapital = initialCapital + perf.TotalReturn
	perf.TotalReturnPercent = safeDiv(perf.TotalReturn, initialCapital) * 100

	if len(trades) > 0 {
		perf.AverageHoldingHours = holding / float64(len(trades))
	}
	if perf.WinningTrades > 0 {
		perf.AverageWin = totalWin / float64(perf.WinningTrades)
	}
	if perf.LosingTrades > 0 {
		perf.AverageLoss = totalLoss / float64(perf.LosingTrades)
	}

	decided := perf.WinningTrades + perf.LosingTrades
	winRate := safeDiv(float64(perf.WinningTrades), float64(decided))
	perf.WinRate = winRate * 100
	perf.Expectancy = winRate*perf.AverageWin - (1-winRate)*math.Abs(perf.AverageLoss)

	switch {
	case totalLoss < 0:
		perf.ProfitFactor = totalWin / math.Abs(totalLoss)
	case totalWin > 0:
		perf.ProfitFactor = totalWin
	}

	perf.MaxDrawdown = curve.MaxDrawdown()
	returns := tradeReturns(trades)
	perf.SharpeRatio = sharpeRatio(returns)
	perf.SortinoRatio = sortinoRatio(returns)
	if perf.MaxDrawdown > 0 {
		perf.CalmarRatio = perf.TotalReturnPercent / perf.MaxDrawdown
	}
	perf.MaxConsecutiveWins, perf.MaxConsecutiveLoss = streaks(trades)

	return perf
}

// CalculateRiskMetrics computes dispersion and tail statistics of trade returns
func CalculateRiskMetrics(trades []models.Trade) RiskMetrics {
	returns := tradeReturns(trades)
	risk := RiskMetrics{}
	if len(returns) == 0 {
		return risk
	}
	if len(returns) > 1 {
		risk.Volatility = stat.StdDev(returns, nil)
	}
	if negative := negativeReturns(returns); len(negative) > 1 {
		risk.DownsideDeviation = stat.StdDev(negative, nil)
	}

	sorted := append([]float64(nil), returns...)
	sort.Float64s(sorted)
	risk.VaR95 = stat.Quantile(0.05, stat.Empirical, sorted, nil)
	risk.VaR99 = stat.Quantile(0.01, stat.Empirical, sorted, nil)
	return risk
}

// CalculateMonthlyReturns groups trade profit by exit month in chronological order
func CalculateMonthlyReturns(trades []models.Trade, initialCapital float64) []MonthlyReturn {
	byMonth := make(map[string]*MonthlyReturn)
	months := make([]string, 0)
	for _, trade := range trades {
		month := trade.ExitTime.UTC().Format("2006-01")
		entry, ok := byMonth[month]
		if !ok {
			entry = &MonthlyReturn{Month: month}
			byMonth[month] = entry
			months = append(months, month)
		}
		entry.Profit += trade.Profit
		entry.Trades++
	}
	sort.Strings(months)

	out := make([]MonthlyReturn, 0, len(months))
	for _, month := range months {
		entry := byMonth[month]
		entry.ReturnPercent = safeDiv(entry.Profit, initialCapital) * 100
		out = append(out, *entry)
	}
	return out
}

func tradeReturns(trades []models.Trade) []float64 {
	returns := make([]float64, len(trades))
	for i, trade := range trades {
		returns[i] = trade.ProfitPercent
	}
	return returns
}

func negativeReturns(returns []float64) []float64 {
	out := make([]float64, 0, len(returns))
	for _, r := range returns {
		if r < 0 {
			out = append(out, r)
		}
	}
	return out
}

func sharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	mean, std := stat.MeanStdDev(returns, nil)
	return safeDiv(mean, std)
}

func sortinoRatio(returns []float64) float64 {
	negative := negativeReturns(returns)
	if len(negative) < 2 {
		return 0
	}
	return safeDiv(stat.Mean(returns, nil), stat.StdDev(negative, nil))
}

// streaks returns the longest run of wins and of losses. Breakeven trades end both runs.
func streaks(trades []models.Trade) (wins, losses int) {
	var curWins, curLosses int
	for _, trade := range trades {
		switch {
		case trade.IsWin():
			curWins++
			curLosses = 0
		case trade.IsLoss():
			curLosses++
			curWins = 0
		default:
			curWins, curLosses = 0, 0
		}
		wins = max(wins, curWins)
		losses = max(losses, curLosses)
	}
	return wins, losses
}

func safeDiv(num, den float64) float64 {
	if den == 0 || math.IsNaN(den) {
		return 0
	}
	return num / den
}

// minMax returns the extremes of a non-empty slice
func minMax(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	return floats.Min(values), floats.Max(values)
}
