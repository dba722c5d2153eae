// Package metrics defines backtesting-specific metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Backtest counter vectors
var (
	BacktestRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "backtest_runs_total",
		Help:      "Total number of backtest runs by method and status",
	}, []string{"method", "status"})
	TradesClosedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "trades_closed_total",
		Help:      "Total number of simulated trades by strategy and exit reason",
	}, []string{"strategy_id", "exit_reason"})
)

// Backtest histograms
var (
	BacktestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "backtest_duration_seconds",
		Help:      "Duration of backtest runs in seconds",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
	}, []string{"method"})
)

// Backtest gauge vectors
var (
	FinalEquity = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "final_equity",
		Help:      "Final capital of the latest run for each strategy",
	}, []string{"strategy_id"})
	MaxDrawdownPercent = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "max_drawdown_percent",
		Help:      "Maximum drawdown of the latest run for each strategy",
	}, []string{"strategy_id"})
)

// RecordBacktestRun records a backtest run event.
// method should be one of: "historical_replay", "monte_carlo", "walk_forward"
// status should be one of: "success", "failure", "canceled"
func RecordBacktestRun(method, status string, durationSeconds float64) {
	BacktestRunsTotal.WithLabelValues(method, status).Inc()
	BacktestDuration.WithLabelValues(method).Observe(durationSeconds)
}

// RecordTradeClosed records a closed simulated trade.
func RecordTradeClosed(strategyID, exitReason string) {
	TradesClosedTotal.WithLabelValues(strategyID, exitReason).Inc()
}

// UpdateRunOutcome updates the final equity and drawdown gauges for a strategy.
func UpdateRunOutcome(strategyID string, finalEquity, maxDrawdown float64) {
	FinalEquity.WithLabelValues(strategyID).Set(finalEquity)
	MaxDrawdownPercent.WithLabelValues(strategyID).Set(maxDrawdown)
}
