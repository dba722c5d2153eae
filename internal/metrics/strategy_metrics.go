// Package metrics defines strategy-specific metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	StrategySignalsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "strategy_signals_total",
		Help:      "Entry signals acted on by strategy and direction",
	}, []string{"strategy_id", "direction"})

	StrategyWinRate = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "strategy_win_rate",
		Help:      "Win rate in percent of the latest run for each strategy",
	}, []string{"strategy_id"})
)

// RecordStrategySignal records an entry signal that opened a position.
func RecordStrategySignal(strategyID, direction string) {
	StrategySignalsTotal.WithLabelValues(strategyID, direction).Inc()
}

// UpdateStrategyWinRate updates the win rate gauge.
func UpdateStrategyWinRate(strategyID string, winRate float64) {
	StrategyWinRate.WithLabelValues(strategyID).Set(winRate)
}
