package backtest

import (
	"math"

	"github.com/yourusername/signal-backtest/internal/models"
)

// PositionManager opens and closes simulated positions
type PositionManager struct {
	// CommissionRate is a percentage of entry plus exit notional
	CommissionRate float64
}

// Open sizes a position at the bar close. available is the capital the symbol may
// use now and initial the capital it started with. ok is false when the position
// cannot be sized.
func (pm PositionManager) Open(symbol string, direction models.Direction, bar models.Bar, definition models.Strategy, available, initial float64) (position models.Position, ok bool) {
	entry := bar.Close
	rm := definition.RiskManagement
	if entry <= 0 || available <= 0 {
		return models.Position{}, false
	}

	base := available
	if rm.PositionSizing == models.SizingFixed {
		base = initial
	}
	risk := base * rm.MaxRiskPercent / 100

	stopOffset := entry * rm.StopLossPercent / 100
	targetOffset := entry * rm.TakeProfitPercent / 100
	var stop, target float64
	switch direction {
	case models.DirectionLong:
		stop, target = entry-stopOffset, entry+targetOffset
	case models.DirectionShort:
		stop, target = entry+stopOffset, entry-targetOffset
	default:
		return models.Position{}, false
	}

	distance := math.Abs(entry - stop)
	if risk <= 0 || distance == 0 {
		return models.Position{}, false
	}
	quantity := risk / distance

	if rm.PositionSizing == models.SizingDynamic && quantity*entry > available {
		quantity = available / entry
	}

	return models.Position{
		Symbol:     symbol,
		Direction:  direction,
		EntryPrice: entry,
		EntryTime:  bar.Time,
		StopLoss:   stop,
		TakeProfit: target,
		Quantity:   quantity,
	}, true
}

// Close realizes the position at the bar close
func (pm PositionManager) Close(position models.Position, bar models.Bar, reason models.ExitReason) models.Trade {
	exit := bar.Close
	qty := position.Quantity

	gross := (exit - position.EntryPrice) * qty
	if position.Direction == models.DirectionShort {
		gross = (position.EntryPrice - exit) * qty
	}
	commission := (position.EntryPrice + exit) * qty * pm.CommissionRate / 100
	profit := gross - commission

	profitPercent := 0.0
	if notional := position.EntryPrice * qty; notional != 0 {
		profitPercent = profit / notional * 100
	}

	return models.Trade{
		Symbol:        position.Symbol,
		Direction:     position.Direction,
		EntryTime:     position.EntryTime,
		ExitTime:      bar.Time,
		EntryPrice:    position.EntryPrice,
		ExitPrice:     exit,
		Quantity:      qty,
		Commission:    commission,
		Profit:        profit,
		ProfitPercent: profitPercent,
		DurationHours: bar.Time.Sub(position.EntryTime).Hours(),
		ExitReason:    reason,
	}
}
