package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/yourusername/signal-backtest/internal/models"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

// BacktestRunRepository defines backtest run persistence
type BacktestRunRepository interface {
	// Save stores the run and its trades atomically
	Save(ctx context.Context, run *models.BacktestRun, trades []models.Trade) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.BacktestRun, error)
	GetByStrategyID(ctx context.Context, strategyID string, limit int) ([]*models.BacktestRun, error)
	GetLatest(ctx context.Context, limit int) ([]*models.BacktestRun, error)
	GetTrades(ctx context.Context, runID uuid.UUID) ([]models.TradeRecord, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
