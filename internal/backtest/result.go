package backtest

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/signal-backtest/internal/models"
)

// CoverageStatus tells why a symbol did or did not trade
type CoverageStatus string

const (
	CoverageNoData    CoverageStatus = "no_data"
	CoverageNoSignals CoverageStatus = "no_signals"
	CoverageTraded    CoverageStatus = "traded"
)

// SymbolCoverage reports the data and activity seen for one symbol
type SymbolCoverage struct {
	Symbol   string         `json:"symbol"`
	Bars     int            `json:"bars"`
	FirstBar time.Time      `json:"first_bar,omitempty"`
	LastBar  time.Time      `json:"last_bar,omitempty"`
	Opened   int            `json:"opened"`
	Trades   int            `json:"trades"`
	Status   CoverageStatus `json:"status"`
}

// BacktestResult is the outcome of one engine run
type BacktestResult struct {
	RunID          uuid.UUID        `json:"run_id"`
	Strategy       models.Strategy  `json:"strategy"`
	Config         BacktestConfig   `json:"config"`
	Performance    Performance      `json:"performance"`
	Trades         []models.Trade   `json:"trades"`
	EquityCurve    EquityCurve      `json:"equity_curve"`
	MonthlyReturns []MonthlyReturn  `json:"monthly_returns"`
	RiskMetrics    RiskMetrics      `json:"risk_metrics"`
	Coverage       []SymbolCoverage `json:"coverage"`
	StartedAt      time.Time        `json:"started_at"`
	FinishedAt     time.Time        `json:"finished_at"`
}

// ToRun converts the result into a persisted run row with the full result embedded
func (r *BacktestResult) ToRun() (*models.BacktestRun, error) {
	full, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal backtest result: %w", err)
	}
	perf := r.Performance
	return &models.BacktestRun{
		ID:             r.RunID,
		StrategyID:     r.Strategy.Key(),
		StrategyName:   r.Strategy.Name,
		RunDate:        r.StartedAt,
		StartDate:      r.Config.StartDate,
		EndDate:        r.Config.EndDate,
		Timeframe:      r.Config.Timeframe,
		Symbols:        append([]string(nil), r.Config.Symbols...),
		Currency:       r.Config.Currency,
		InitialCapital: perf.InitialCapital,
		FinalCapital:   perf.FinalCapital,
		TotalReturn:    perf.TotalReturnPercent,
		SharpeRatio:    perf.SharpeRatio,
		SortinoRatio:   perf.SortinoRatio,
		MaxDrawdown:    perf.MaxDrawdown,
		TotalTrades:    perf.TotalTrades,
		WinRate:        perf.WinRate,
		ProfitFactor:   perf.ProfitFactor,
		FullResults:    full,
	}, nil
}

// CoverageFor returns the coverage entry of a symbol
func (r *BacktestResult) CoverageFor(symbol string) (SymbolCoverage, bool) {
	for _, cov := range r.Coverage {
		if cov.Symbol == symbol {
			return cov, true
		}
	}
	return SymbolCoverage{}, false
}
