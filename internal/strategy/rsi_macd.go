package strategy

import (
	"github.com/yourusername/signal-backtest/internal/indicators"
	"github.com/yourusername/signal-backtest/internal/models"
)

// RSIMACDStrategy enters against RSI extremes once MACD confirms the turn
type RSIMACDStrategy struct {
	BaseEvaluator
}

// NewRSIMACDStrategy creates the RSI/MACD evaluator
func NewRSIMACDStrategy() *RSIMACDStrategy {
	return &RSIMACDStrategy{}
}

// ID returns the registry key
func (s *RSIMACDStrategy) ID() string {
	return "rsi_macd"
}

// MinHistory covers the RSI period plus one change and the MACD slow average
func (s *RSIMACDStrategy) MinHistory(definition models.Strategy) int {
	period := int(definition.Param("rsiPeriod", indicators.DefaultRSIPeriod))
	return max(period+1, indicators.MACDMinPrices)
}

// CheckEntry goes long when RSI is oversold and the MACD line is above its signal,
// short on the mirrored condition
func (s *RSIMACDStrategy) CheckEntry(ctx Context) *EntrySignal {
	closes := ctx.Closes()
	period := int(ctx.Definition.Param("rsiPeriod", indicators.DefaultRSIPeriod))
	oversold := ctx.Definition.Param("rsiOversold", 30)
	overbought := ctx.Definition.Param("rsiOverbought", 70)

	rsi := indicators.RSI(closes, period, ctx.Mode)
	macd := indicators.MACD(closes, ctx.Mode)

	if rsi < oversold && macd.Line > macd.Signal {
		return long("RSI oversold with bullish MACD")
	}
	if rsi > overbought && macd.Line < macd.Signal {
		return short("RSI overbought with bearish MACD")
	}
	return nil
}
