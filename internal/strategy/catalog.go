package strategy

import (
	"github.com/yourusername/signal-backtest/internal/models"
)

// Catalog returns the built-in strategy definitions with their default parameters
func Catalog() []models.Strategy {
	return []models.Strategy{
		{
			ID:          "rsi_macd",
			Name:        "RSI_MACD_Strategy",
			Description: "Mean reversion on RSI extremes confirmed by MACD",
			Parameters: map[string]float64{
				"rsiPeriod":      14,
				"rsiOversold":    30,
				"rsiOverbought":  70,
				"maxHoldingTime": 24,
			},
			EntryConditions: []string{"RSI below oversold and MACD line above signal", "RSI above overbought and MACD line below signal"},
			ExitConditions:  []string{"stop loss", "take profit", "max holding time"},
			RiskManagement: models.RiskManagement{
				MaxRiskPercent:    2,
				StopLossPercent:   2,
				TakeProfitPercent: 4,
				PositionSizing:    models.SizingPercentage,
			},
		},
		{
			ID:          "breakout",
			Name:        "Breakout_Strategy",
			Description: "Trades closes outside the recent high/low range",
			Parameters: map[string]float64{
				"breakoutPeriod": 20,
				"maxHoldingTime": 48,
			},
			EntryConditions: []string{"close above highest high", "close below lowest low"},
			ExitConditions:  []string{"stop loss", "take profit", "max holding time"},
			RiskManagement: models.RiskManagement{
				MaxRiskPercent:    1.5,
				StopLossPercent:   3,
				TakeProfitPercent: 6,
				PositionSizing:    models.SizingPercentage,
			},
		},
		{
			ID:          "ma_crossover",
			Name:        "MA_Crossover_Strategy",
			Description: "Trend following on fast/slow moving average crosses",
			Parameters: map[string]float64{
				"fastPeriod":     10,
				"slowPeriod":     30,
				"maxHoldingTime": 72,
			},
			EntryConditions: []string{"fast SMA crosses above slow SMA", "fast SMA crosses below slow SMA"},
			ExitConditions:  []string{"stop loss", "take profit", "max holding time"},
			RiskManagement: models.RiskManagement{
				MaxRiskPercent:    1,
				StopLossPercent:   2.5,
				TakeProfitPercent: 5,
				PositionSizing:    models.SizingFixed,
			},
		},
		{
			ID:          "bollinger_reversion",
			Name:        "Bollinger_Reversion_Strategy",
			Description: "Fades closes outside the Bollinger Bands",
			Parameters: map[string]float64{
				"bbPeriod":       20,
				"bbStdDev":       2,
				"maxHoldingTime": 24,
			},
			EntryConditions: []string{"close below lower band", "close above upper band"},
			ExitConditions:  []string{"stop loss", "take profit", "max holding time"},
			RiskManagement: models.RiskManagement{
				MaxRiskPercent:    1,
				StopLossPercent:   1.5,
				TakeProfitPercent: 3,
				PositionSizing:    models.SizingDynamic,
			},
		},
	}
}

// FindInCatalog returns the catalog entry matching an ID or name
func FindInCatalog(key string) (models.Strategy, bool) {
	normalized := normalizeKey(key)
	for _, s := range Catalog() {
		if normalizeKey(s.ID) == normalized || normalizeKey(s.Name) == normalized {
			return s, true
		}
	}
	return models.Strategy{}, false
}
