// Package logger provides backtest-specific logging.
package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// drawdownWarnPercent is the drawdown above which a finished run logs a warning
const drawdownWarnPercent = 20.0

// BacktestLogger provides dedicated logging for simulation runs.
type BacktestLogger struct {
	*logrus.Entry
}

// NewBacktestLogger creates a new backtest logger.
func NewBacktestLogger(baseLogger *logrus.Logger) *BacktestLogger {
	return &BacktestLogger{
		Entry: OrDefault(baseLogger).WithField("component", "backtest"),
	}
}

// LogRunStarted logs the start of a backtest run.
func (bl *BacktestLogger) LogRunStarted(runID, strategyID string, symbols []string, timeframe string, start, end time.Time, initialCapital float64) {
	bl.WithFields(logrus.Fields{
		"run_id":          runID,
		"strategy_id":     strategyID,
		"symbols":         symbols,
		"timeframe":       timeframe,
		"start_date":      start.Format(time.RFC3339),
		"end_date":        end.Format(time.RFC3339),
		"initial_capital": initialCapital,
	}).Info("Backtest started")
}

// LogRunFinished logs the outcome of a backtest run and warns on deep drawdowns.
func (bl *BacktestLogger) LogRunFinished(runID, strategyID string, totalTrades int, finalCapital, totalReturn, maxDrawdown float64, duration time.Duration) {
	entry := bl.WithFields(logrus.Fields{
		"run_id":           runID,
		"strategy_id":      strategyID,
		"total_trades":     totalTrades,
		"final_capital":    finalCapital,
		"total_return_pct": totalReturn,
		"max_drawdown_pct": maxDrawdown,
		"duration_ms":      duration.Milliseconds(),
	})
	entry.Info("Backtest completed")

	if maxDrawdown > drawdownWarnPercent {
		entry.Warn("Backtest drawdown exceeded warning threshold")
	}
}

// LogPositionOpened logs a simulated entry.
func (bl *BacktestLogger) LogPositionOpened(symbol, direction string, at time.Time, entryPrice, quantity, stopLoss, takeProfit float64) {
	bl.WithFields(logrus.Fields{
		"symbol":      symbol,
		"direction":   direction,
		"time":        at.Format(time.RFC3339),
		"entry_price": entryPrice,
		"quantity":    quantity,
		"stop_loss":   stopLoss,
		"take_profit": takeProfit,
	}).Debug("Position opened")
}

// LogPositionClosed logs a simulated exit.
func (bl *BacktestLogger) LogPositionClosed(symbol, direction, exitReason string, at time.Time, exitPrice, profit, capital float64) {
	bl.WithFields(logrus.Fields{
		"symbol":      symbol,
		"direction":   direction,
		"exit_reason": exitReason,
		"time":        at.Format(time.RFC3339),
		"exit_price":  exitPrice,
		"profit":      profit,
		"capital":     capital,
	}).Debug("Position closed")
}

// LogSymbolCoverage logs how much of a symbol's data was used.
func (bl *BacktestLogger) LogSymbolCoverage(symbol, status string, bars, trades int) {
	entry := bl.WithFields(logrus.Fields{
		"symbol": symbol,
		"status": status,
		"bars":   bars,
		"trades": trades,
	})
	if status == "no_data" {
		entry.Warn("No market data for symbol")
		return
	}
	entry.Info("Symbol processed")
}
