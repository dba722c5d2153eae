package strategy

import (
	"github.com/yourusername/signal-backtest/internal/models"
)

// BreakoutStrategy trades closes beyond the recent trading range
type BreakoutStrategy struct {
	BaseEvaluator
}

// NewBreakoutStrategy creates the breakout evaluator
func NewBreakoutStrategy() *BreakoutStrategy {
	return &BreakoutStrategy{}
}

// ID returns the registry key
func (s *BreakoutStrategy) ID() string {
	return "breakout"
}

// MinHistory is the range length plus the current bar
func (s *BreakoutStrategy) MinHistory(definition models.Strategy) int {
	return int(definition.Param("breakoutPeriod", 20)) + 1
}

// CheckEntry goes long when the close exceeds the highest high of the previous
// lookback bars and short when it breaks the lowest low
func (s *BreakoutStrategy) CheckEntry(ctx Context) *EntrySignal {
	lookback := int(ctx.Definition.Param("breakoutPeriod", 20))
	prior := priorBars(ctx.History, lookback)
	if len(prior) < lookback {
		return nil
	}

	high, low := prior[0].High, prior[0].Low
	for _, bar := range prior[1:] {
		if bar.High > high {
			high = bar.High
		}
		if bar.Low < low {
			low = bar.Low
		}
	}

	price := ctx.Current.Close
	if price > high {
		return long("close above range high")
	}
	if price < low {
		return short("close below range low")
	}
	return nil
}
