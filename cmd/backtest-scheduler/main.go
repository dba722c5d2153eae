// Package main runs configured backtests on cron schedules.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/signal-backtest/internal/backtest"
	"github.com/yourusername/signal-backtest/internal/config"
	"github.com/yourusername/signal-backtest/internal/database"
	"github.com/yourusername/signal-backtest/internal/datasource"
	"github.com/yourusername/signal-backtest/internal/health"
	"github.com/yourusername/signal-backtest/internal/logger"
	"github.com/yourusername/signal-backtest/internal/metrics"
	"github.com/yourusername/signal-backtest/internal/models"
	"github.com/yourusername/signal-backtest/internal/repository"
	"github.com/yourusername/signal-backtest/internal/scheduler"
	"github.com/yourusername/signal-backtest/internal/strategy"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	configFile string
	runOnce    string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.Flags().StringVar(&runOnce, "run-once", "", "Run the named job immediately and exit")
}

var rootCmd = &cobra.Command{
	Use:          "backtest-scheduler",
	Short:        "Run scheduled strategy backtests",
	Long:         `Runs the backtest jobs listed under scheduler.jobs on their cron schedules and stores the results.`,
	Version:      fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildDate),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := config.LoadSecretsFromAWS(ctx, cfg); err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	appLog := logger.NewLogger(cfg.App.LogLevel)

	if !cfg.Scheduler.Enabled && runOnce == "" {
		return errors.New("scheduler is disabled in configuration")
	}
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
	}

	base, err := backtest.FromConfig(&cfg.Backtest)
	if err != nil {
		return err
	}

	// Jobs replay overlapping windows, so bars are always cached here
	marketData := cfg.MarketData
	marketData.CacheEnabled = true
	source, err := datasource.NewFactory(marketData, appLog).Create()
	if err != nil {
		return fmt.Errorf("failed to create market data source: %w", err)
	}

	var runs repository.BacktestRunRepository
	db, err := database.Initialize(ctx, cfg, appLog)
	switch {
	case errors.Is(err, database.ErrDisabled):
		appLog.Warn("Database disabled, scheduled runs will not be persisted")
	case err != nil:
		return fmt.Errorf("failed to connect to database: %w", err)
	default:
		defer db.Close()
		repos, err := repository.NewRepositories(db)
		if err != nil {
			return err
		}
		runs = repos.BacktestRun
	}

	runner := scheduler.NewBacktestJobRunner(base, source, strategyResolver(cfg), runs, appLog)
	sched := scheduler.NewScheduler(runner, appLog)
	if err := sched.AddJobs(cfg.Scheduler.Jobs); err != nil {
		return err
	}

	if runOnce != "" {
		return sched.RunNow(ctx, runOnce)
	}

	healthServer := newHealthServer(cfg, db, sched, appLog)
	if err := healthServer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start health server: %w", err)
	}

	if err := sched.Start(); err != nil {
		return err
	}
	healthServer.SetReady(true)

	appLog.WithFields(logrus.Fields{
		"jobs":     sched.Jobs(),
		"next_run": sched.GetNextRun(),
		"persist":  runs != nil,
	}).Info("Backtest scheduler started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		appLog.WithField("signal", sig).Info("Shutdown signal received")
	case <-ctx.Done():
	}

	healthServer.SetReady(false)
	cancel()
	if err := sched.Stop(); err != nil {
		appLog.WithError(err).Error("Error during scheduler shutdown")
	}
	if err := healthServer.Shutdown(); err != nil {
		appLog.WithError(err).Error("Error during health server shutdown")
	}

	appLog.Info("Backtest scheduler shut down")
	return nil
}

// strategyResolver prefers configured strategies over the built-in catalog
func strategyResolver(cfg *config.Config) scheduler.StrategyResolver {
	return func(key string) (models.Strategy, bool) {
		if definition, ok := cfg.FindStrategy(key); ok {
			return definition, true
		}
		return strategy.FindInCatalog(key)
	}
}

func newHealthServer(cfg *config.Config, db *database.DB, sched *scheduler.Scheduler, appLog *logrus.Logger) *health.Server {
	serverCfg := health.Config{
		ServiceName: cfg.App.Name,
		Version:     Version,
		Commit:      GitCommit,
		Logger:      appLog,
		Scheduler:   sched,
	}
	if db != nil {
		serverCfg.DB = db
	}
	if cfg.Metrics.Enabled {
		serverCfg.MetricsHandler = metrics.Handler()
		serverCfg.MetricsPath = cfg.Metrics.Path
		if cfg.Metrics.Port > 0 {
			serverCfg.Port = strconv.Itoa(cfg.Metrics.Port)
		}
	}
	return health.NewServer(serverCfg)
}
