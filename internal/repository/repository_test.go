package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/signal-backtest/internal/database"
	"github.com/yourusername/signal-backtest/internal/models"
)

func sampleTrades() []models.Trade {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return []models.Trade{
		{
			Symbol: "BTCUSDT", Direction: models.DirectionLong,
			EntryTime: start, ExitTime: start.Add(2 * time.Hour),
			EntryPrice: 100, ExitPrice: 104, Quantity: 10, Commission: 2.04,
			Profit: 37.96, ProfitPercent: 3.796, DurationHours: 2, ExitReason: models.ExitTakeProfit,
		},
		{
			Symbol: "ETHUSDT", Direction: models.DirectionShort,
			EntryTime: start.Add(time.Hour), ExitTime: start.Add(5 * time.Hour),
			EntryPrice: 50, ExitPrice: 51, Quantity: 20, Commission: 2.02,
			Profit: -22.02, ProfitPercent: -2.202, DurationHours: 4, ExitReason: models.ExitStopLoss,
		},
	}
}

func TestNewTradeBatch(t *testing.T) {
	runID := uuid.New()
	batch := NewTradeBatch(runID, sampleTrades())
	assert.Equal(t, 2, batch.Len())

	assert.Equal(t, 0, NewTradeBatch(runID, nil).Len())
}

func TestNewRepositories_RequiresDB(t *testing.T) {
	_, err := NewRepositories(nil)
	assert.Error(t, err)
}

func TestBacktestRunRepository_RoundTrip(t *testing.T) {
	db := database.SetupTestDB(t)
	repos, err := NewRepositories(db)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	trades := sampleTrades()
	run := &models.BacktestRun{
		StrategyID:     "breakout",
		StrategyName:   "Breakout_Strategy",
		RunDate:        time.Now().UTC().Truncate(time.Microsecond),
		StartDate:      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		Timeframe:      "1h",
		Symbols:        []string{"BTCUSDT", "ETHUSDT"},
		Currency:       "USD",
		InitialCapital: 10000,
		FinalCapital:   10015.94,
		TotalTrades:    len(trades),
		FullResults:    json.RawMessage(`{"ok":true}`),
	}
	require.NoError(t, repos.BacktestRun.Save(ctx, run, trades))
	t.Cleanup(func() { _ = repos.BacktestRun.Delete(context.Background(), run.ID) })

	loaded, err := repos.BacktestRun.GetByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.StrategyID, loaded.StrategyID)
	assert.Equal(t, run.Symbols, loaded.Symbols)
	assert.Equal(t, run.FinalCapital, loaded.FinalCapital)

	records, err := repos.BacktestRun.GetTrades(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, models.ExitTakeProfit, records[0].ExitReason)
	assert.Equal(t, run.ID, records[1].RunID)

	_, err = repos.BacktestRun.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}
