package backtest

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/yourusername/signal-backtest/internal/models"
)

// TradeCSVHeader is the header row of the trade export
var TradeCSVHeader = []string{"date", "symbol", "direction", "entry_price", "exit_price", "profit", "profit_percent"}

// Export file names written by ExportFiles
const (
	TradesFileName = "trades.csv"
	EquityFileName = "equity.csv"
	ResultFileName = "result.json"
)

// WriteTradesCSV writes one row per trade, dated by exit time, with floats in shortest
// round-trip form
func WriteTradesCSV(w io.Writer, trades []models.Trade) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(TradeCSVHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, trade := range trades {
		record := []string{
			trade.ExitTime.UTC().Format(time.RFC3339),
			trade.Symbol,
			string(trade.Direction),
			formatFloat(trade.EntryPrice),
			formatFloat(trade.ExitPrice),
			formatFloat(trade.Profit),
			formatFloat(trade.ProfitPercent),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write trade row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// ExportJSON writes the full result as indented JSON
func ExportJSON(w io.Writer, result *BacktestResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// ExportFiles writes the trade CSV, equity CSV and JSON result into dir and returns the paths
func ExportFiles(dir string, result *BacktestResult) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	tradesPath := filepath.Join(dir, TradesFileName)
	if err := WriteTradesFile(tradesPath, result.Trades); err != nil {
		return nil, err
	}

	equityPath := filepath.Join(dir, EquityFileName)
	equity, err := result.EquityCurve.ToCSV()
	if err != nil {
		return nil, fmt.Errorf("encode equity curve: %w", err)
	}
	if err := os.WriteFile(equityPath, equity, 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", equityPath, err)
	}

	resultPath := filepath.Join(dir, ResultFileName)
	if err := writeFile(resultPath, func(w io.Writer) error { return ExportJSON(w, result) }); err != nil {
		return nil, err
	}

	return []string{tradesPath, equityPath, resultPath}, nil
}

// WriteTradesFile writes the trade CSV to path, reporting write and close failures
func WriteTradesFile(path string, trades []models.Trade) error {
	return writeFile(path, func(w io.Writer) error { return WriteTradesCSV(w, trades) })
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
