package strategy

import (
	"github.com/yourusername/signal-backtest/internal/indicators"
	"github.com/yourusername/signal-backtest/internal/models"
)

// MACrossoverStrategy follows fast/slow moving average crosses
type MACrossoverStrategy struct {
	BaseEvaluator
}

// NewMACrossoverStrategy creates the moving average crossover evaluator
func NewMACrossoverStrategy() *MACrossoverStrategy {
	return &MACrossoverStrategy{}
}

// ID returns the registry key
func (s *MACrossoverStrategy) ID() string {
	return "ma_crossover"
}

// MinHistory is the slow period plus the previous bar needed to detect a cross
func (s *MACrossoverStrategy) MinHistory(definition models.Strategy) int {
	return int(definition.Param("slowPeriod", 30)) + 1
}

// CheckEntry fires when the fast SMA crosses the slow SMA between the previous and
// the current bar
func (s *MACrossoverStrategy) CheckEntry(ctx Context) *EntrySignal {
	fast := int(ctx.Definition.Param("fastPeriod", 10))
	slow := int(ctx.Definition.Param("slowPeriod", 30))
	closes := ctx.Closes()
	if len(closes) < slow+1 || fast >= slow {
		return nil
	}

	prev := closes[:len(closes)-1]
	prevFast, prevSlow := indicators.SMA(prev, fast), indicators.SMA(prev, slow)
	currFast, currSlow := indicators.SMA(closes, fast), indicators.SMA(closes, slow)

	if prevFast <= prevSlow && currFast > currSlow {
		return long("fast average crossed above slow")
	}
	if prevFast >= prevSlow && currFast < currSlow {
		return short("fast average crossed below slow")
	}
	return nil
}
