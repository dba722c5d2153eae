package strategy

import (
	"github.com/yourusername/signal-backtest/internal/indicators"
	"github.com/yourusername/signal-backtest/internal/models"
)

// BollingerReversionStrategy fades closes outside the Bollinger Bands
type BollingerReversionStrategy struct {
	BaseEvaluator
}

// NewBollingerReversionStrategy creates the Bollinger mean-reversion evaluator
func NewBollingerReversionStrategy() *BollingerReversionStrategy {
	return &BollingerReversionStrategy{}
}

// ID returns the registry key
func (s *BollingerReversionStrategy) ID() string {
	return "bollinger_reversion"
}

func (s *BollingerReversionStrategy) MinHistory(definition models.Strategy) int {
	return int(definition.Param("bbPeriod", 20))
}

// CheckEntry goes long below the lower band and short above the upper band
func (s *BollingerReversionStrategy) CheckEntry(ctx Context) *EntrySignal {
	period := int(ctx.Definition.Param("bbPeriod", 20))
	k := ctx.Definition.Param("bbStdDev", 2)

	bands := indicators.Bollinger(ctx.Closes(), period, k)
	switch bands.Position {
	case indicators.BandOversold:
		return long("close below lower band")
	case indicators.BandOverbought:
		return short("close above upper band")
	}
	return nil
}
