package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/yourusername/signal-backtest/internal/backtest"
	"github.com/yourusername/signal-backtest/internal/logger"
	"github.com/yourusername/signal-backtest/internal/models"
	"github.com/yourusername/signal-backtest/internal/strategy"
)

var (
	historyStrategy string
	historyLimit    int

	exportRunID  string
	exportOutput string
)

func init() {
	historyCmd.Flags().StringVarP(&historyStrategy, "strategy", "s", "", "Only list runs of this strategy")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of runs")

	exportCmd.Flags().StringVar(&exportRunID, "run-id", "", "ID of the stored run")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "CSV file to write (defaults to stdout)")
	_ = exportCmd.MarkFlagRequired("run-id")
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the built-in and configured strategies",
	// The catalog is static; configured strategies are added when a config file loads
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfigWithSecrets(cmd.Context()); err != nil {
			cfg = nil
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		renderCatalog()
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored backtest runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		repos, closeDB, err := openRepositories(ctx)
		if err != nil {
			return err
		}
		defer closeDB()

		var runs []*models.BacktestRun
		if historyStrategy != "" {
			runs, err = repos.BacktestRun.GetByStrategyID(ctx, historyStrategy, historyLimit)
		} else {
			runs, err = repos.BacktestRun.GetLatest(ctx, historyLimit)
		}
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}
		renderHistory(runs)
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the trades of a stored run as CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		runID, err := uuid.Parse(exportRunID)
		if err != nil {
			return fmt.Errorf("invalid run id %q: %w", exportRunID, err)
		}

		ctx := cmd.Context()
		repos, closeDB, err := openRepositories(ctx)
		if err != nil {
			return err
		}
		defer closeDB()

		records, err := repos.BacktestRun.GetTrades(ctx, runID)
		if err != nil {
			return fmt.Errorf("failed to load trades: %w", err)
		}
		trades := make([]models.Trade, len(records))
		for i, record := range records {
			trades[i] = record.Trade
		}

		path := "stdout"
		if exportOutput != "" {
			path = exportOutput
			err = backtest.WriteTradesFile(exportOutput, trades)
		} else {
			err = backtest.WriteTradesCSV(os.Stdout, trades)
		}
		if err != nil {
			return err
		}
		logger.NewAuditLogger(appLogger).LogExport(runID.String(), "csv", path, len(trades))
		return nil
	},
}

func renderCatalog() {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("Strategies")
	t.AppendHeader(table.Row{"ID", "Name", "Source", "Stop %", "Target %", "Risk %", "Sizing"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Stop %", Align: text.AlignRight},
		{Name: "Target %", Align: text.AlignRight},
		{Name: "Risk %", Align: text.AlignRight},
	})

	appendRow := func(s models.Strategy, source string) {
		risk := s.RiskManagement
		t.AppendRow(table.Row{s.ID, s.Name, source, risk.StopLossPercent, risk.TakeProfitPercent, risk.MaxRiskPercent, risk.PositionSizing})
	}
	for _, s := range strategy.Catalog() {
		appendRow(s, "catalog")
	}
	if cfg != nil {
		for _, s := range cfg.Strategies {
			appendRow(s.ToModel(), "config")
		}
	}
	t.AppendFooter(table.Row{"Evaluators", strings.Join(strategy.DefaultRegistry().IDs(), ", ")})
	t.Render()
}

func renderHistory(runs []*models.BacktestRun) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("Backtest Runs")
	t.AppendHeader(table.Row{"Run", "Strategy", "Period", "Trades", "Return %", "Max DD %", "Win Rate %"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Return %", Align: text.AlignRight, Transformer: text.NewNumberTransformer("%.2f")},
		{Name: "Max DD %", Align: text.AlignRight, Transformer: text.NewNumberTransformer("%.2f")},
		{Name: "Win Rate %", Align: text.AlignRight, Transformer: text.NewNumberTransformer("%.2f")},
	})
	for _, run := range runs {
		period := fmt.Sprintf("%s → %s", run.StartDate.Format("2006-01-02"), run.EndDate.Format("2006-01-02"))
		t.AppendRow(table.Row{run.ID.String(), run.StrategyID, period, run.TotalTrades, run.TotalReturn, run.MaxDrawdown, run.WinRate})
	}
	if len(runs) == 0 {
		t.AppendRow(table.Row{"(none)"})
	}
	t.Render()
}
