package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yourusername/signal-backtest/internal/database"
	"github.com/yourusername/signal-backtest/internal/models"
)

const (
	errScanBacktestRun = "failed to scan backtest run: %w"

	backtestRunColumns = `id, strategy_id, strategy_name, run_date, start_date, end_date, timeframe,
		symbols, currency, initial_capital, final_capital, total_return, sharpe_ratio, sortino_ratio,
		max_drawdown, total_trades, win_rate, profit_factor, full_results, created_at`

	insertTradeQuery = `
		INSERT INTO backtest_trades (
			id, run_id, symbol, direction, entry_time, exit_time, entry_price, exit_price,
			quantity, commission, profit, profit_percent, duration_hours, exit_reason
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`
)

// PostgresBacktestRunRepository implements BacktestRunRepository for PostgreSQL
type PostgresBacktestRunRepository struct {
	db *database.DB
}

// NewPostgresBacktestRunRepository creates a new backtest run repository
func NewPostgresBacktestRunRepository(db *database.DB) BacktestRunRepository {
	return &PostgresBacktestRunRepository{db: db}
}

// Save inserts the run row and queues every trade in one batch inside a transaction
func (r *PostgresBacktestRunRepository) Save(ctx context.Context, run *models.BacktestRun, trades []models.Trade) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO backtest_runs (` + backtestRunColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
	`

	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, query,
			run.ID, run.StrategyID, run.StrategyName, run.RunDate, run.StartDate, run.EndDate, run.Timeframe,
			run.Symbols, run.Currency, run.InitialCapital, run.FinalCapital, run.TotalReturn, run.SharpeRatio, run.SortinoRatio,
			run.MaxDrawdown, run.TotalTrades, run.WinRate, run.ProfitFactor, run.FullResults, run.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to save backtest run: %w", err)
		}

		if len(trades) == 0 {
			return nil
		}
		results := tx.SendBatch(ctx, NewTradeBatch(run.ID, trades))
		for i := range trades {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return fmt.Errorf("failed to save trade %d: %w", i, err)
			}
		}
		return results.Close()
	})
}

// NewTradeBatch queues one insert per trade with a fresh trade ID
func NewTradeBatch(runID uuid.UUID, trades []models.Trade) *pgx.Batch {
	batch := &pgx.Batch{}
	for _, t := range trades {
		batch.Queue(insertTradeQuery,
			uuid.New(), runID, t.Symbol, string(t.Direction), t.EntryTime, t.ExitTime, t.EntryPrice, t.ExitPrice,
			t.Quantity, t.Commission, t.Profit, t.ProfitPercent, t.DurationHours, string(t.ExitReason),
		)
	}
	return batch
}

// GetByID retrieves a backtest run by ID
func (r *PostgresBacktestRunRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.BacktestRun, error) {
	query := `SELECT ` + backtestRunColumns + ` FROM backtest_runs WHERE id = $1`
	run, err := scanRun(r.db.GetPool().QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("backtest run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf(errScanBacktestRun, err)
	}
	return run, nil
}

// GetByStrategyID retrieves the most recent runs of a strategy
func (r *PostgresBacktestRunRepository) GetByStrategyID(ctx context.Context, strategyID string, limit int) ([]*models.BacktestRun, error) {
	query := `SELECT ` + backtestRunColumns + ` FROM backtest_runs WHERE strategy_id = $1 ORDER BY run_date DESC LIMIT $2`
	rows, err := r.db.GetPool().Query(ctx, query, strategyID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query backtest runs: %w", err)
	}
	return collectRuns(rows)
}

// GetLatest retrieves the latest backtest runs
func (r *PostgresBacktestRunRepository) GetLatest(ctx context.Context, limit int) ([]*models.BacktestRun, error) {
	query := `SELECT ` + backtestRunColumns + ` FROM backtest_runs ORDER BY run_date DESC LIMIT $1`
	rows, err := r.db.GetPool().Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest backtest runs: %w", err)
	}
	return collectRuns(rows)
}

// GetTrades retrieves the trades of a run ordered by exit time
func (r *PostgresBacktestRunRepository) GetTrades(ctx context.Context, runID uuid.UUID) ([]models.TradeRecord, error) {
	query := `
		SELECT id, run_id, symbol, direction, entry_time, exit_time, entry_price, exit_price,
			quantity, commission, profit, profit_percent, duration_hours, exit_reason
		FROM backtest_trades WHERE run_id = $1 ORDER BY exit_time ASC
	`
	rows, err := r.db.GetPool().Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var records []models.TradeRecord
	for rows.Next() {
		var (
			rec       models.TradeRecord
			direction string
			reason    string
		)
		if err := rows.Scan(
			&rec.ID, &rec.RunID, &rec.Symbol, &direction, &rec.EntryTime, &rec.ExitTime, &rec.EntryPrice, &rec.ExitPrice,
			&rec.Quantity, &rec.Commission, &rec.Profit, &rec.ProfitPercent, &rec.DurationHours, &reason,
		); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		rec.Direction = models.Direction(direction)
		rec.ExitReason = models.ExitReason(reason)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Delete removes a run and, through the foreign key, its trades
func (r *PostgresBacktestRunRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.GetPool().Exec(ctx, `DELETE FROM backtest_runs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete backtest run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("backtest run %s: %w", id, ErrNotFound)
	}
	return nil
}

func collectRuns(rows pgx.Rows) ([]*models.BacktestRun, error) {
	defer rows.Close()

	var runs []*models.BacktestRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf(errScanBacktestRun, err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func scanRun(row pgx.Row) (*models.BacktestRun, error) {
	run := &models.BacktestRun{}
	err := row.Scan(
		&run.ID, &run.StrategyID, &run.StrategyName, &run.RunDate, &run.StartDate, &run.EndDate, &run.Timeframe,
		&run.Symbols, &run.Currency, &run.InitialCapital, &run.FinalCapital, &run.TotalReturn, &run.SharpeRatio, &run.SortinoRatio,
		&run.MaxDrawdown, &run.TotalTrades, &run.WinRate, &run.ProfitFactor, &run.FullResults, &run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return run, nil
}
