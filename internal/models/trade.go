package models

import "time"

// Direction is the side of a position
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

// ExitReason records why a position was closed
type ExitReason string

const (
	ExitStopLoss     ExitReason = "stop_loss"
	ExitTakeProfit   ExitReason = "take_profit"
	ExitStrategyExit ExitReason = "strategy_exit"
	ExitTimeLimit    ExitReason = "time_limit"
)

// Position is an open simulated trade
type Position struct {
	Symbol     string    `json:"symbol"`
	Direction  Direction `json:"direction"`
	EntryPrice float64   `json:"entry_price"`
	EntryTime  time.Time `json:"entry_time"`
	StopLoss   float64   `json:"stop_loss"`
	TakeProfit float64   `json:"take_profit"`
	Quantity   float64   `json:"quantity"`
}

// Trade is a closed position with realized P&L
type Trade struct {
	Symbol        string     `json:"symbol"`
	Direction     Direction  `json:"direction"`
	EntryTime     time.Time  `json:"entry_time"`
	ExitTime      time.Time  `json:"exit_time"`
	EntryPrice    float64    `json:"entry_price"`
	ExitPrice     float64    `json:"exit_price"`
	Quantity      float64    `json:"quantity"`
	Commission    float64    `json:"commission"`
	Profit        float64    `json:"profit"`
	ProfitPercent float64    `json:"profit_percent"`
	DurationHours float64    `json:"duration_hours"`
	ExitReason    ExitReason `json:"exit_reason"`
}

// GrossProfit returns the P&L before commission
func (t Trade) GrossProfit() float64 {
	return t.Profit + t.Commission
}

// IsWin reports whether the trade closed with a positive profit
func (t Trade) IsWin() bool {
	return t.Profit > 0
}

// IsLoss reports whether the trade closed with a negative profit
func (t Trade) IsLoss() bool {
	return t.Profit < 0
}
