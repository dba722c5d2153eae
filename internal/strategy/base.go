package strategy

import (
	"github.com/yourusername/signal-backtest/internal/models"
)

// DefaultMaxHoldingHours is used when a strategy has no maxHoldingTime parameter
const DefaultMaxHoldingHours = 24.0

// BaseEvaluator provides the exit rules shared by every strategy
type BaseEvaluator struct{}

// CheckExit checks stop-loss, then take-profit, then the holding time limit against
// the current close. At most one reason fires per bar.
func (BaseEvaluator) CheckExit(ctx Context, position models.Position) *ExitSignal {
	price := ctx.Current.Close

	switch position.Direction {
	case models.DirectionLong:
		if price <= position.StopLoss {
			return &ExitSignal{Reason: models.ExitStopLoss}
		}
		if price >= position.TakeProfit {
			return &ExitSignal{Reason: models.ExitTakeProfit}
		}
	case models.DirectionShort:
		if price >= position.StopLoss {
			return &ExitSignal{Reason: models.ExitStopLoss}
		}
		if price <= position.TakeProfit {
			return &ExitSignal{Reason: models.ExitTakeProfit}
		}
	}

	maxHolding := ctx.Definition.Param("maxHoldingTime", DefaultMaxHoldingHours)
	if ctx.Current.Time.Sub(position.EntryTime).Hours() > maxHolding {
		return &ExitSignal{Reason: models.ExitTimeLimit}
	}
	return nil
}

// priorBars returns up to n bars immediately before the current bar
func priorBars(history []models.Bar, n int) []models.Bar {
	if len(history) < 2 {
		return nil
	}
	end := len(history) - 1
	start := end - n
	if start < 0 {
		start = 0
	}
	return history[start:end]
}

func long(reasoning string) *EntrySignal {
	return &EntrySignal{Direction: models.DirectionLong, Reasoning: reasoning}
}

func short(reasoning string) *EntrySignal {
	return &EntrySignal{Direction: models.DirectionShort, Reasoning: reasoning}
}
