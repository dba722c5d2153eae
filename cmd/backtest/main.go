// Package main provides the entry point for the backtesting CLI tool.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/signal-backtest/internal/backtest"
	"github.com/yourusername/signal-backtest/internal/config"
	"github.com/yourusername/signal-backtest/internal/database"
	"github.com/yourusername/signal-backtest/internal/datasource"
	"github.com/yourusername/signal-backtest/internal/logger"
	"github.com/yourusername/signal-backtest/internal/models"
	"github.com/yourusername/signal-backtest/internal/repository"
	"github.com/yourusername/signal-backtest/internal/strategy"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

const defaultStrategy = "rsi_macd"

var (
	configFile string
	appLogger  *logrus.Logger
	cfg        *config.Config

	strategyName string
	startDate    string
	endDate      string
	mode         string
	outputDir    string
	persist      bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")

	runCmd.Flags().StringVarP(&strategyName, "strategy", "s", "", "Strategy ID or name (defaults to backtest.strategy)")
	runCmd.Flags().StringVar(&startDate, "start-date", "", "Override start date (YYYY-MM-DD)")
	runCmd.Flags().StringVar(&endDate, "end-date", "", "Override end date (YYYY-MM-DD)")
	runCmd.Flags().StringVarP(&mode, "mode", "m", "historical", "Backtest mode: historical, monte-carlo, walk-forward, all")
	runCmd.Flags().StringVarP(&outputDir, "output", "o", "", "Directory for trade, equity and result exports")
	runCmd.Flags().BoolVar(&persist, "persist", false, "Store the run in the database")

	rootCmd.AddCommand(runCmd, catalogCmd, historyCmd, exportCmd)
}

var rootCmd = &cobra.Command{
	Use:     "backtest",
	Short:   "Replay trading strategies over historical market data",
	Long:    `Runs strategy backtests over historical bars and reports performance, risk and robustness metrics.`,
	Version: fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildDate),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfigWithSecrets(cmd.Context())
	},
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a backtest",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBacktest(cmd.Context())
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func loadConfigWithSecrets(ctx context.Context) error {
	loaded, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := config.LoadSecretsFromAWS(ctx, loaded); err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}
	if err := config.Validate(loaded); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	cfg = loaded
	appLogger = logger.NewLogger(cfg.App.LogLevel)
	return nil
}

func buildBacktestConfig() (backtest.BacktestConfig, error) {
	settings := cfg.Backtest
	if startDate != "" {
		settings.StartDate = startDate
	}
	if endDate != "" {
		settings.EndDate = endDate
	}

	btConfig, err := backtest.FromConfig(&settings)
	if err != nil {
		return backtest.BacktestConfig{}, err
	}
	if outputDir != "" {
		btConfig.OutputPath = outputDir
	}
	return btConfig, nil
}

// resolveStrategy looks the key up in the configured strategies first, then the catalog
func resolveStrategy(key string) (models.Strategy, error) {
	if key == "" {
		key = cfg.Backtest.Strategy
	}
	if key == "" {
		key = defaultStrategy
	}
	if definition, ok := cfg.FindStrategy(key); ok {
		return definition, nil
	}
	if definition, ok := strategy.FindInCatalog(key); ok {
		return definition, nil
	}
	return models.Strategy{}, fmt.Errorf("%w: %s", strategy.ErrUnknownStrategy, key)
}

func runBacktest(ctx context.Context) error {
	btConfig, err := buildBacktestConfig()
	if err != nil {
		return err
	}
	definition, err := resolveStrategy(strategyName)
	if err != nil {
		return err
	}
	source, err := datasource.NewFactory(cfg.MarketData, appLogger).Create()
	if err != nil {
		return fmt.Errorf("failed to create market data source: %w", err)
	}
	engine, err := backtest.NewEngine(btConfig, source, backtest.WithLogger(appLogger))
	if err != nil {
		return err
	}

	appLogger.WithFields(logrus.Fields{"mode": mode, "strategy": definition.Key()}).Info("Starting backtest")

	result, monteCarlo, walkForward, err := runMode(ctx, engine, btConfig, definition, mode)
	if err != nil {
		return err
	}

	assessment := backtest.Assess(result, monteCarlo, walkForward, backtest.DefaultAssessmentWeights())
	backtest.WriteConsoleReport(os.Stdout, result, &assessment)

	if btConfig.OutputPath != "" {
		if err := exportResult(btConfig.OutputPath, result); err != nil {
			return err
		}
	}
	if persist {
		return persistResult(ctx, result)
	}
	return nil
}

func runMode(ctx context.Context, engine *backtest.Engine, btConfig backtest.BacktestConfig, definition models.Strategy,
	mode string) (*backtest.BacktestResult, *backtest.MonteCarloResult, *backtest.WalkForwardResult, error) {
	switch mode {
	case "historical", "monte-carlo", "walk-forward", "all":
	default:
		return nil, nil, nil, fmt.Errorf("unsupported mode: %s", mode)
	}

	result, err := engine.RunBacktest(ctx, definition)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("historical backtest failed: %w", err)
	}

	var monteCarlo *backtest.MonteCarloResult
	if mode == "monte-carlo" || mode == "all" {
		mc, err := backtest.RunMonteCarlo(ctx, result.Trades, backtest.MonteCarloConfig{
			Iterations:     btConfig.MonteCarloIterations,
			Seed:           btConfig.MonteCarloSeed,
			InitialCapital: btConfig.InitialCapital,
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("monte carlo failed: %w", err)
		}
		monteCarlo = &mc
	}

	var walkForward *backtest.WalkForwardResult
	if mode == "walk-forward" || mode == "all" {
		wf, err := backtest.RunWalkForward(ctx, engine, definition, backtest.WalkForwardConfig{
			Windows:       btConfig.WalkForwardWindows,
			InSampleRatio: btConfig.WalkForwardInSampleRatio,
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("walk-forward failed: %w", err)
		}
		walkForward = &wf
	}

	return result, monteCarlo, walkForward, nil
}

func exportResult(dir string, result *backtest.BacktestResult) error {
	paths, err := backtest.ExportFiles(dir, result)
	if err != nil {
		return fmt.Errorf("failed to export results: %w", err)
	}

	audit := logger.NewAuditLogger(appLogger)
	audit.LogExport(result.RunID.String(), "csv", paths[0], len(result.Trades))
	audit.LogExport(result.RunID.String(), "csv", paths[1], len(result.EquityCurve))
	audit.LogExport(result.RunID.String(), "json", paths[2], 1)
	return nil
}

func persistResult(ctx context.Context, result *backtest.BacktestResult) error {
	repos, closeDB, err := openRepositories(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	run, err := result.ToRun()
	if err != nil {
		return err
	}
	if err := repos.BacktestRun.Save(ctx, run, result.Trades); err != nil {
		return fmt.Errorf("failed to persist backtest run: %w", err)
	}
	logger.NewAuditLogger(appLogger).LogRunPersisted(run.ID.String(), run.StrategyID, len(result.Trades))
	return nil
}

func openRepositories(ctx context.Context) (*repository.Repositories, func(), error) {
	db, err := database.Initialize(ctx, cfg, appLogger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	repos, err := repository.NewRepositories(db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return repos, db.Close, nil
}
