package config

import (
	"github.com/yourusername/signal-backtest/internal/models"
)

// ToModel converts a configured strategy into its model definition
func (s StrategyConfig) ToModel() models.Strategy {
	name := s.Name
	if s.Evaluator != "" {
		// Name doubles as the registry fallback when the ID is not a known evaluator
		name = s.Evaluator
	}
	return models.Strategy{
		ID:          s.ID,
		Name:        name,
		Description: s.Description,
		Parameters:  s.Parameters,
		RiskManagement: models.RiskManagement{
			MaxRiskPercent:    s.RiskManagement.MaxRiskPercent,
			StopLossPercent:   s.RiskManagement.StopLossPercent,
			TakeProfitPercent: s.RiskManagement.TakeProfitPercent,
			PositionSizing:    models.PositionSizing(s.RiskManagement.PositionSizing),
		},
	}
}

// FindStrategy returns the configured strategy with the given ID
func (c *Config) FindStrategy(id string) (models.Strategy, bool) {
	for _, s := range c.Strategies {
		if s.ID == id {
			return s.ToModel(), true
		}
	}
	return models.Strategy{}, false
}
