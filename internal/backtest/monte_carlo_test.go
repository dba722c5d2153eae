package backtest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/signal-backtest/internal/models"
)

func TestRunMonteCarloDeterministic(t *testing.T) {
	trades := []models.Trade{
		tradeAt(t0.Add(time.Hour), 120, 1.2),
		tradeAt(t0.Add(2*time.Hour), -80, -0.8),
		tradeAt(t0.Add(3*time.Hour), 40, 0.4),
		tradeAt(t0.Add(4*time.Hour), -30, -0.3),
	}
	cfg := MonteCarloConfig{Iterations: 500, Seed: 42, InitialCapital: 1000}

	first, err := RunMonteCarlo(context.Background(), trades, cfg)
	require.NoError(t, err)
	second, err := RunMonteCarlo(context.Background(), trades, cfg)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 500, first.Iterations)
	assert.Len(t, first.Distribution, 500)
	assert.GreaterOrEqual(t, first.ProbabilityOfProfit, 0.0)
	assert.LessOrEqual(t, first.ProbabilityOfProfit, 1.0)
	assert.GreaterOrEqual(t, first.WorstMaxDrawdown, first.MedianMaxDrawdown)
	assert.Contains(t, first.ConfidenceIntervals, "95%")

	low, high := minMax(first.Distribution)
	// every path draws four trades from [-80, 120]
	assert.GreaterOrEqual(t, low, 1000.0-4*80)
	assert.LessOrEqual(t, high, 1000.0+4*120)
}

func TestRunMonteCarlo_EdgeCases(t *testing.T) {
	t.Run("no trades", func(t *testing.T) {
		result, err := RunMonteCarlo(context.Background(), nil, MonteCarloConfig{InitialCapital: 1000})
		require.NoError(t, err)
		assert.Equal(t, DefaultMonteCarloIterations, result.Iterations)
		assert.Equal(t, 1000.0, result.MeanFinalEquity)
		assert.Zero(t, result.ProbabilityOfProfit)
	})

	t.Run("all winners", func(t *testing.T) {
		trades := []models.Trade{tradeAt(t0, 10, 1), tradeAt(t0.Add(time.Hour), 20, 2)}
		result, err := RunMonteCarlo(context.Background(), trades, MonteCarloConfig{Iterations: 50, InitialCapital: 100})
		require.NoError(t, err)
		assert.Equal(t, 1.0, result.ProbabilityOfProfit)
		assert.Zero(t, result.ProbabilityOfRuin)
		assert.Zero(t, result.WorstMaxDrawdown)
	})

	t.Run("requires capital", func(t *testing.T) {
		_, err := RunMonteCarlo(context.Background(), nil, MonteCarloConfig{})
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := RunMonteCarlo(ctx, []models.Trade{tradeAt(t0, 1, 1)}, MonteCarloConfig{InitialCapital: 100})
		assert.ErrorIs(t, err, context.Canceled)
	})
}
