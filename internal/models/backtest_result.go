package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// BacktestRun represents a persisted backtest run
type BacktestRun struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	StrategyID     string          `db:"strategy_id" json:"strategy_id"`
	StrategyName   string          `db:"strategy_name" json:"strategy_name"`
	RunDate        time.Time       `db:"run_date" json:"run_date"`
	StartDate      time.Time       `db:"start_date" json:"start_date"`
	EndDate        time.Time       `db:"end_date" json:"end_date"`
	Timeframe      string          `db:"timeframe" json:"timeframe"`
	Symbols        []string        `db:"symbols" json:"symbols"`
	Currency       string          `db:"currency" json:"currency"`
	InitialCapital float64         `db:"initial_capital" json:"initial_capital"`
	FinalCapital   float64         `db:"final_capital" json:"final_capital"`
	TotalReturn    float64         `db:"total_return" json:"total_return"`
	SharpeRatio    float64         `db:"sharpe_ratio" json:"sharpe_ratio"`
	SortinoRatio   float64         `db:"sortino_ratio" json:"sortino_ratio"`
	MaxDrawdown    float64         `db:"max_drawdown" json:"max_drawdown"`
	TotalTrades    int             `db:"total_trades" json:"total_trades"`
	WinRate        float64         `db:"win_rate" json:"win_rate"`
	ProfitFactor   float64         `db:"profit_factor" json:"profit_factor"`
	FullResults    json.RawMessage `db:"full_results" json:"full_results"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// TradeRecord is a trade persisted against a backtest run
type TradeRecord struct {
	ID    uuid.UUID `db:"id" json:"id"`
	RunID uuid.UUID `db:"run_id" json:"run_id"`
	Trade
}
