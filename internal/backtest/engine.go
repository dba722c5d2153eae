package backtest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/signal-backtest/internal/datasource"
	"github.com/yourusername/signal-backtest/internal/logger"
	"github.com/yourusername/signal-backtest/internal/metrics"
	"github.com/yourusername/signal-backtest/internal/models"
	"github.com/yourusername/signal-backtest/internal/strategy"
)

// Engine orchestrates backtesting runs over a market data source
type Engine struct {
	config   BacktestConfig
	source   datasource.MarketDataSource
	registry *strategy.Registry
	logger   *logrus.Logger
	btLogger *logger.BacktestLogger
	clock    func() time.Time

	// bars caches the full configured range per symbol for this engine
	bars map[string][]models.Bar
}

// Option customizes an Engine
type Option func(*Engine)

// WithLogger sets the engine logger
func WithLogger(log *logrus.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.logger = log
		}
	}
}

// WithRegistry replaces the default strategy registry
func WithRegistry(registry *strategy.Registry) Option {
	return func(e *Engine) {
		if registry != nil {
			e.registry = registry
		}
	}
}

// WithClock overrides the wall clock used for run timestamps
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// NewEngine creates a new backtesting engine
func NewEngine(cfg BacktestConfig, source datasource.MarketDataSource, opts ...Option) (*Engine, error) {
	if source == nil {
		return nil, fmt.Errorf("%w: market data source is required", ErrInvalidConfig)
	}
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		config:   cfg,
		source:   source,
		registry: strategy.DefaultRegistry(),
		logger:   logrus.New(),
		clock:    time.Now,
		bars:     make(map[string][]models.Bar),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.btLogger = logger.NewBacktestLogger(e.logger)
	return e, nil
}

// Config returns the backtest configuration
func (e *Engine) Config() BacktestConfig {
	return e.config
}

// Logger returns the engine logger
func (e *Engine) Logger() *logrus.Logger {
	return e.logger
}

// RunBacktest simulates the strategy over every configured symbol
func (e *Engine) RunBacktest(ctx context.Context, definition models.Strategy) (*BacktestResult, error) {
	started := e.clock()
	result, err := e.run(ctx, definition, e.config.StartDate, e.config.EndDate)
	elapsed := e.clock().Sub(started)
	if err != nil {
		metrics.RecordBacktestRun("historical_replay", "error", elapsed.Seconds())
		return nil, err
	}
	metrics.RecordBacktestRun("historical_replay", "success", elapsed.Seconds())

	result.StartedAt = started
	result.FinishedAt = started.Add(elapsed)
	perf := result.Performance
	e.btLogger.LogRunFinished(result.RunID.String(), definition.Key(), perf.TotalTrades,
		perf.FinalCapital, perf.TotalReturnPercent, perf.MaxDrawdown, elapsed)
	return result, nil
}

// run executes the simulation restricted to [start, end]
func (e *Engine) run(ctx context.Context, definition models.Strategy, start, end time.Time) (*BacktestResult, error) {
	if err := definition.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	evaluator, err := e.registry.Resolve(definition)
	if err != nil {
		return nil, err
	}

	runID := uuid.New()
	e.btLogger.LogRunStarted(runID.String(), definition.Key(), e.config.Symbols, e.config.Timeframe,
		start, end, e.config.InitialCapital)

	lookback := e.historyLength(evaluator, definition)
	capital := NewCapitalAllocator(e.config.CapitalAllocation, e.config.InitialCapital, e.config.Symbols)
	pm := PositionManager{CommissionRate: e.config.CommissionRate}

	var trades []models.Trade
	coverage := make([]SymbolCoverage, 0, len(e.config.Symbols))

	for _, symbol := range e.config.Symbols {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("backtest cancelled before %s: %w", symbol, err)
		}
		bars, err := e.loadBars(ctx, symbol)
		if err != nil {
			return nil, err
		}
		window := models.FilterByTime(bars, start, end)

		symbolTrades, cov := e.simulateSymbol(symbol, window, definition, evaluator, lookback, capital, pm)
		trades = append(trades, symbolTrades...)
		coverage = append(coverage, cov)
		e.btLogger.LogSymbolCoverage(symbol, string(cov.Status), cov.Bars, len(symbolTrades))
	}

	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].ExitTime.Before(trades[j].ExitTime)
	})

	curve := BuildEquityCurve(e.config.InitialCapital, start, trades)
	perf := CalculatePerformance(trades, e.config.InitialCapital, curve)

	for _, trade := range trades {
		metrics.RecordTradeClosed(definition.Key(), string(trade.ExitReason))
	}
	metrics.UpdateRunOutcome(definition.Key(), perf.FinalCapital, perf.MaxDrawdown)
	metrics.UpdateStrategyWinRate(definition.Key(), perf.WinRate)

	return &BacktestResult{
		RunID:          runID,
		Strategy:       definition,
		Config:         e.config,
		Performance:    perf,
		Trades:         trades,
		EquityCurve:    curve,
		MonthlyReturns: CalculateMonthlyReturns(trades, e.config.InitialCapital),
		RiskMetrics:    CalculateRiskMetrics(trades),
		Coverage:       coverage,
	}, nil
}

// loadBars fetches the configured range once per symbol and serves repeats from the cache
func (e *Engine) loadBars(ctx context.Context, symbol string) ([]models.Bar, error) {
	if bars, ok := e.bars[symbol]; ok {
		return bars, nil
	}

	fetchStart := time.Now()
	bars, err := e.source.FetchBars(ctx, symbol, e.config.Timeframe, e.config.StartDate, e.config.EndDate)
	metrics.RecordDataFetch(e.source.Name(), time.Since(fetchStart).Seconds(), len(bars), err)
	if err != nil {
		if !errors.Is(err, datasource.ErrNoMarketData) {
			return nil, fmt.Errorf("failed to load bars for %s: %w", symbol, err)
		}
		e.logger.WithFields(logrus.Fields{
			"symbol": symbol,
			"source": e.source.Name(),
		}).Debug("No market data for symbol")
		bars = nil
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	e.bars[symbol] = bars
	return bars, nil
}

// historyLength is the evaluator window: the configured lookback, widened to what the
// evaluator needs for the definition's parameters
func (e *Engine) historyLength(evaluator strategy.Evaluator, definition models.Strategy) int {
	need := strategy.MinHistory(evaluator, definition)
	if need <= e.config.MaxLookback {
		return e.config.MaxLookback
	}
	e.logger.WithFields(logrus.Fields{
		"strategy":     definition.Key(),
		"max_lookback": e.config.MaxLookback,
		"required":     need,
	}).Info("Widening history window to the strategy warm-up")
	return need
}

// simulateSymbol walks the bars of one symbol through the FLAT and OPEN states
func (e *Engine) simulateSymbol(symbol string, bars []models.Bar, definition models.Strategy,
	evaluator strategy.Evaluator, lookback int, capital CapitalAllocator, pm PositionManager) ([]models.Trade, SymbolCoverage) {

	cov := SymbolCoverage{Symbol: symbol, Bars: len(bars), Status: CoverageNoData}
	if len(bars) == 0 {
		return nil, cov
	}
	cov.FirstBar = bars[0].Time
	cov.LastBar = bars[len(bars)-1].Time
	cov.Status = CoverageNoSignals

	var (
		trades   []models.Trade
		position *models.Position
	)

	closePosition := func(bar models.Bar, reason models.ExitReason) {
		trade := pm.Close(*position, bar, reason)
		capital.Apply(symbol, trade.Profit)
		trades = append(trades, trade)
		position = nil
		e.btLogger.LogPositionClosed(symbol, string(trade.Direction), string(reason), bar.Time,
			trade.ExitPrice, trade.Profit, capital.Available(symbol))
	}

	for i := 1; i < len(bars); i++ {
		from := i + 1 - lookback
		if from < 0 {
			from = 0
		}
		sctx := strategy.Context{
			Definition: definition,
			Current:    bars[i],
			Previous:   bars[i-1],
			History:    bars[from : i+1],
			Mode:       e.config.IndicatorMode,
		}

		if position != nil {
			if exit := evaluator.CheckExit(sctx, *position); exit != nil {
				closePosition(bars[i], exit.Reason)
			}
			continue
		}

		entry := evaluator.CheckEntry(sctx)
		if entry == nil {
			continue
		}
		metrics.RecordStrategySignal(evaluator.ID(), string(entry.Direction))
		opened, ok := pm.Open(symbol, entry.Direction, bars[i], definition,
			capital.Available(symbol), capital.Initial(symbol))
		if !ok {
			e.logger.WithFields(logrus.Fields{
				"symbol":    symbol,
				"direction": entry.Direction,
				"at":        bars[i].Time,
			}).Debug("Entry signal skipped, position could not be sized")
			continue
		}
		position = &opened
		cov.Opened++
		e.btLogger.LogPositionOpened(symbol, string(opened.Direction), opened.EntryTime,
			opened.EntryPrice, opened.Quantity, opened.StopLoss, opened.TakeProfit)
	}

	if position != nil {
		closePosition(bars[len(bars)-1], models.ExitStrategyExit)
	}

	cov.Trades = len(trades)
	if cov.Trades > 0 {
		cov.Status = CoverageTraded
	}
	return trades, cov
}
