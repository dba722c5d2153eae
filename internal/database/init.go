package database

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/signal-backtest/internal/config"
)

// schema creates the tables backing persisted runs. Statements are idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS backtest_runs (
		id              UUID PRIMARY KEY,
		strategy_id     TEXT NOT NULL,
		strategy_name   TEXT NOT NULL DEFAULT '',
		run_date        TIMESTAMPTZ NOT NULL,
		start_date      TIMESTAMPTZ NOT NULL,
		end_date        TIMESTAMPTZ NOT NULL,
		timeframe       TEXT NOT NULL,
		symbols         TEXT[] NOT NULL,
		currency        TEXT NOT NULL,
		initial_capital DOUBLE PRECISION NOT NULL,
		final_capital   DOUBLE PRECISION NOT NULL,
		total_return    DOUBLE PRECISION NOT NULL,
		sharpe_ratio    DOUBLE PRECISION NOT NULL,
		sortino_ratio   DOUBLE PRECISION NOT NULL,
		max_drawdown    DOUBLE PRECISION NOT NULL,
		total_trades    INTEGER NOT NULL,
		win_rate        DOUBLE PRECISION NOT NULL,
		profit_factor   DOUBLE PRECISION NOT NULL,
		full_results    JSONB,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_backtest_runs_strategy ON backtest_runs (strategy_id, run_date DESC)`,
	`CREATE TABLE IF NOT EXISTS backtest_trades (
		id             UUID PRIMARY KEY,
		run_id         UUID NOT NULL REFERENCES backtest_runs (id) ON DELETE CASCADE,
		symbol         TEXT NOT NULL,
		direction      TEXT NOT NULL,
		entry_time     TIMESTAMPTZ NOT NULL,
		exit_time      TIMESTAMPTZ NOT NULL,
		entry_price    DOUBLE PRECISION NOT NULL,
		exit_price     DOUBLE PRECISION NOT NULL,
		quantity       DOUBLE PRECISION NOT NULL,
		commission     DOUBLE PRECISION NOT NULL,
		profit         DOUBLE PRECISION NOT NULL,
		profit_percent DOUBLE PRECISION NOT NULL,
		duration_hours DOUBLE PRECISION NOT NULL,
		exit_reason    TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_backtest_trades_run ON backtest_trades (run_id, exit_time)`,
}

// Initialize creates a database connection pool and makes sure the schema exists
func Initialize(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*DB, error) {
	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if log != nil {
		log.WithFields(logrus.Fields{
			"host":     cfg.Database.Host,
			"database": cfg.Database.Name,
		}).Info("Database initialized")
	}
	return db, nil
}

// EnsureSchema applies the table definitions in one transaction
func (db *DB) EnsureSchema(ctx context.Context) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, stmt := range schema {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return tx.Commit(ctx)
}
