package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/signal-backtest/internal/backtest"
	"github.com/yourusername/signal-backtest/internal/config"
	"github.com/yourusername/signal-backtest/internal/datasource"
	"github.com/yourusername/signal-backtest/internal/logger"
	"github.com/yourusername/signal-backtest/internal/models"
	"github.com/yourusername/signal-backtest/internal/repository"
)

// DefaultLookbackDays is the window of a job without lookback_days
const DefaultLookbackDays = 30

// StrategyResolver finds a strategy definition by ID or name
type StrategyResolver func(key string) (models.Strategy, bool)

// BacktestJobRunner runs a job as a backtest over a trailing window ending today
type BacktestJobRunner struct {
	base       backtest.BacktestConfig
	source     datasource.MarketDataSource
	strategies StrategyResolver
	runs       repository.BacktestRunRepository
	logger     *logrus.Logger
	audit      *logger.AuditLogger
	clock      func() time.Time
}

// NewBacktestJobRunner creates a runner. runs may be nil when persistence is disabled.
func NewBacktestJobRunner(base backtest.BacktestConfig, source datasource.MarketDataSource, strategies StrategyResolver,
	runs repository.BacktestRunRepository, log *logrus.Logger) *BacktestJobRunner {
	log = logger.OrDefault(log)
	return &BacktestJobRunner{
		base:       base,
		source:     source,
		strategies: strategies,
		runs:       runs,
		logger:     log,
		audit:      logger.NewAuditLogger(log),
		clock:      time.Now,
	}
}

// RunJob runs the job's strategy and persists the run when the job asks for it
func (r *BacktestJobRunner) RunJob(ctx context.Context, job config.JobConfig) error {
	now := r.clock().UTC()
	r.audit.LogJobTriggered(job.Name, job.Strategy, now)

	err := r.run(ctx, job, now)
	if err != nil {
		r.audit.LogJobFailed(job.Name, job.Strategy, err)
	}
	return err
}

func (r *BacktestJobRunner) run(ctx context.Context, job config.JobConfig, now time.Time) error {
	definition, ok := r.strategies(job.Strategy)
	if !ok {
		return fmt.Errorf("job %s: unknown strategy %q", job.Name, job.Strategy)
	}

	cfg := r.JobConfig(job, now)
	engine, err := backtest.NewEngine(cfg, r.source, backtest.WithLogger(r.logger))
	if err != nil {
		return fmt.Errorf("job %s: %w", job.Name, err)
	}
	result, err := engine.RunBacktest(ctx, definition)
	if err != nil {
		return fmt.Errorf("job %s: %w", job.Name, err)
	}

	if !job.Persist {
		return nil
	}
	if r.runs == nil {
		return fmt.Errorf("job %s: persistence requested but no repository configured", job.Name)
	}
	run, err := result.ToRun()
	if err != nil {
		return err
	}
	if err := r.runs.Save(ctx, run, result.Trades); err != nil {
		return fmt.Errorf("job %s: %w", job.Name, err)
	}
	r.audit.LogRunPersisted(run.ID.String(), run.StrategyID, len(result.Trades))
	return nil
}

// JobConfig derives the engine config of a job firing at now
func (r *BacktestJobRunner) JobConfig(job config.JobConfig, now time.Time) backtest.BacktestConfig {
	lookback := job.LookbackDays
	if lookback <= 0 {
		lookback = DefaultLookbackDays
	}
	end := now.Truncate(24 * time.Hour)

	cfg := r.base
	cfg.StartDate = end.AddDate(0, 0, -lookback)
	cfg.EndDate = end
	if len(job.Symbols) > 0 {
		cfg.Symbols = append([]string(nil), job.Symbols...)
	}
	return cfg
}
