package backtest

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// GenerateConsoleReport renders the run summary, exit reasons, symbol coverage and
// monthly returns as terminal tables. assessment may be nil.
func GenerateConsoleReport(result *BacktestResult, assessment *Assessment) string {
	var builder strings.Builder
	WriteConsoleReport(&builder, result, assessment)
	return builder.String()
}

// WriteConsoleReport writes the console report to w
func WriteConsoleReport(w io.Writer, result *BacktestResult, assessment *Assessment) {
	numberTransformer := text.NewNumberTransformer("%.2f")
	percentTransformer := func(val interface{}) string {
		return fmt.Sprintf("%.2f%%", val)
	}
	currency := result.Config.Currency
	moneyTransformer := func(val interface{}) string {
		return fmt.Sprintf("%.2f %s", val, currency)
	}
	perf := result.Performance

	summary := table.NewWriter()
	summary.SetOutputMirror(w)
	summary.SetTitle(fmt.Sprintf("Backtest %s (%s)", result.Strategy.Key(), result.Config.Timeframe))
	summary.AppendHeader(table.Row{"Metric", "Value"})
	summary.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Value", Align: text.AlignRight},
	})
	summary.AppendRows([]table.Row{
		{"Period", fmt.Sprintf("%s → %s", result.Config.StartDate.Format("2006-01-02"), result.Config.EndDate.Format("2006-01-02"))},
		{"Symbols", strings.Join(result.Config.Symbols, ", ")},
		{"Initial Capital", moneyTransformer(perf.InitialCapital)},
		{"Final Capital", moneyTransformer(perf.FinalCapital)},
		{"Total Return", moneyTransformer(perf.TotalReturn)},
		{"Total Return %", percentTransformer(perf.TotalReturnPercent)},
		{"Trades", perf.TotalTrades},
		{"Wins / Losses / Even", fmt.Sprintf("%d / %d / %d", perf.WinningTrades, perf.LosingTrades, perf.BreakevenTrades)},
		{"Win Rate", percentTransformer(perf.WinRate)},
		{"Profit Factor", fmt.Sprintf("%.2f", perf.ProfitFactor)},
		{"Expectancy", moneyTransformer(perf.Expectancy)},
		{"Max Drawdown", percentTransformer(perf.MaxDrawdown)},
		{"Sharpe Ratio", fmt.Sprintf("%.2f", perf.SharpeRatio)},
		{"Sortino Ratio", fmt.Sprintf("%.2f", perf.SortinoRatio)},
		{"Calmar Ratio", fmt.Sprintf("%.2f", perf.CalmarRatio)},
		{"Max Consecutive Wins", perf.MaxConsecutiveWins},
		{"Max Consecutive Losses", perf.MaxConsecutiveLoss},
		{"Avg Holding (h)", fmt.Sprintf("%.1f", perf.AverageHoldingHours)},
		{"Commission Paid", moneyTransformer(perf.TotalCommission)},
	})
	if assessment != nil {
		summary.AppendSeparator()
		summary.AppendRow(table.Row{"Composite Score", fmt.Sprintf("%.2f", assessment.CompositeScore)})
		summary.AppendRow(table.Row{"Recommendation", assessment.Recommendation})
	}
	summary.Render()

	exits := table.NewWriter()
	exits.SetOutputMirror(w)
	exits.AppendHeader(table.Row{"Exit Reason", "Exits", "Tot Profit", "Avg Profit %"})
	exits.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Exits", Align: text.AlignRight},
		{Name: "Tot Profit", Align: text.AlignRight, Transformer: numberTransformer},
		{Name: "Avg Profit %", Align: text.AlignRight, Transformer: numberTransformer},
	})
	exits.SortBy([]table.SortBy{{Name: "Exits", Mode: table.DscNumeric}})
	for _, row := range exitReasonRows(result) {
		exits.AppendRow(row)
	}
	exits.Render()

	coverage := table.NewWriter()
	coverage.SetOutputMirror(w)
	coverage.AppendHeader(table.Row{"Symbol", "Bars", "Opened", "Trades", "Status"})
	coverage.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Bars", Align: text.AlignRight},
		{Name: "Opened", Align: text.AlignRight},
		{Name: "Trades", Align: text.AlignRight},
	})
	for _, cov := range result.Coverage {
		coverage.AppendRow(table.Row{cov.Symbol, cov.Bars, cov.Opened, cov.Trades, string(cov.Status)})
	}
	coverage.Render()

	if len(result.MonthlyReturns) > 0 {
		monthly := table.NewWriter()
		monthly.SetOutputMirror(w)
		monthly.AppendHeader(table.Row{"Month", "Trades", "Profit", "Return %"})
		monthly.SetColumnConfigs([]table.ColumnConfig{
			{Name: "Trades", Align: text.AlignRight},
			{Name: "Profit", Align: text.AlignRight, Transformer: numberTransformer},
			{Name: "Return %", Align: text.AlignRight, Transformer: numberTransformer},
		})
		for _, m := range result.MonthlyReturns {
			monthly.AppendRow(table.Row{m.Month, m.Trades, m.Profit, m.ReturnPercent})
		}
		monthly.Render()
	}
}

func exitReasonRows(result *BacktestResult) []table.Row {
	type agg struct {
		exits         int
		profit        float64
		profitPercent float64
	}
	byReason := make(map[string]*agg)
	for _, trade := range result.Trades {
		reason := string(trade.ExitReason)
		a, ok := byReason[reason]
		if !ok {
			a = &agg{}
			byReason[reason] = a
		}
		a.exits++
		a.profit += trade.Profit
		a.profitPercent += trade.ProfitPercent
	}

	reasons := make([]string, 0, len(byReason))
	for reason := range byReason {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)

	rows := make([]table.Row, 0, len(reasons))
	for _, reason := range reasons {
		a := byReason[reason]
		rows = append(rows, table.Row{reason, a.exits, a.profit, a.profitPercent / float64(a.exits)})
	}
	return rows
}
