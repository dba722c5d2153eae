package backtest

import (
	"context"
	"fmt"
	"math/rand"
	"sort"

	"github.com/yourusername/signal-backtest/internal/models"
	"gonum.org/v1/gonum/stat"
)

// DefaultMonteCarloIterations is used when no iteration count is configured
const DefaultMonteCarloIterations = 1000

// MonteCarloConfig configures monte carlo simulation
type MonteCarloConfig struct {
	Iterations     int
	Seed           int64
	InitialCapital float64
	// RuinDrawdownPercent is the drawdown at which a path counts as ruined
	RuinDrawdownPercent float64
}

// MonteCarloResult represents monte carlo outcomes over resampled trade sequences
type MonteCarloResult struct {
	Iterations          int                `json:"iterations"`
	Trades              int                `json:"trades"`
	MeanFinalEquity     float64            `json:"mean_final_equity"`
	StdFinalEquity      float64            `json:"std_final_equity"`
	MeanReturnPercent   float64            `json:"mean_return_percent"`
	VaR95               float64            `json:"var_95"`
	VaR99               float64            `json:"var_99"`
	ProbabilityOfProfit float64            `json:"probability_of_profit"`
	ProbabilityOfRuin   float64            `json:"probability_of_ruin"`
	MedianMaxDrawdown   float64            `json:"median_max_drawdown"`
	WorstMaxDrawdown    float64            `json:"worst_max_drawdown"`
	ConfidenceIntervals map[string]float64 `json:"confidence_intervals"`
	Distribution        []float64          `json:"-"`
}

// RunMonteCarlo resamples closed trades with replacement and replays them against the
// initial capital. The same seed always yields the same result; seed 0 is treated as 1.
func RunMonteCarlo(ctx context.Context, trades []models.Trade, cfg MonteCarloConfig) (MonteCarloResult, error) {
	if cfg.InitialCapital <= 0 {
		return MonteCarloResult{}, fmt.Errorf("%w: monte carlo needs positive initial capital", ErrInvalidConfig)
	}
	if cfg.Iterations <= 0 {
		cfg.Iterations = DefaultMonteCarloIterations
	}
	if cfg.RuinDrawdownPercent <= 0 {
		cfg.RuinDrawdownPercent = 50
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = 1
	}

	result := MonteCarloResult{Iterations: cfg.Iterations, Trades: len(trades)}
	if len(trades) == 0 {
		result.MeanFinalEquity = cfg.InitialCapital
		result.ConfidenceIntervals = map[string]float64{}
		return result, nil
	}

	profits := make([]float64, len(trades))
	for i, trade := range trades {
		profits[i] = trade.Profit
	}

	rng := rand.New(rand.NewSource(seed))
	finals := make([]float64, cfg.Iterations)
	drawdowns := make([]float64, cfg.Iterations)
	ruined := 0

	for i := 0; i < cfg.Iterations; i++ {
		if i%100 == 0 {
			if err := ctx.Err(); err != nil {
				return MonteCarloResult{}, err
			}
		}
		equity, peak, maxDD := cfg.InitialCapital, cfg.InitialCapital, 0.0
		for range profits {
			equity += profits[rng.Intn(len(profits))]
			if equity > peak {
				peak = equity
			}
			if dd := drawdownPercent(peak, equity); dd > maxDD {
				maxDD = dd
			}
		}
		finals[i] = equity
		drawdowns[i] = maxDD
		if maxDD >= cfg.RuinDrawdownPercent {
			ruined++
		}
	}

	result.MeanFinalEquity, result.StdFinalEquity = stat.MeanStdDev(finals, nil)
	result.MeanReturnPercent = (result.MeanFinalEquity - cfg.InitialCapital) / cfg.InitialCapital * 100
	result.ProbabilityOfProfit = fractionAbove(finals, cfg.InitialCapital)
	result.ProbabilityOfRuin = float64(ruined) / float64(cfg.Iterations)

	sortedFinals := append([]float64(nil), finals...)
	sort.Float64s(sortedFinals)
	result.VaR95 = cfg.InitialCapital - stat.Quantile(0.05, stat.Empirical, sortedFinals, nil)
	result.VaR99 = cfg.InitialCapital - stat.Quantile(0.01, stat.Empirical, sortedFinals, nil)
	result.ConfidenceIntervals = CalculateConfidenceIntervals(sortedFinals, []float64{0.9, 0.95, 0.99})

	sort.Float64s(drawdowns)
	result.MedianMaxDrawdown = stat.Quantile(0.5, stat.Empirical, drawdowns, nil)
	result.WorstMaxDrawdown = drawdowns[len(drawdowns)-1]
	result.Distribution = finals

	return result, nil
}

// CalculateConfidenceIntervals returns the width of each central interval of a sorted distribution
func CalculateConfidenceIntervals(sorted []float64, levels []float64) map[string]float64 {
	results := make(map[string]float64, len(levels))
	if len(sorted) == 0 {
		return results
	}
	for _, level := range levels {
		p := (1.0 - level) / 2.0
		low := stat.Quantile(p, stat.Empirical, sorted, nil)
		high := stat.Quantile(1.0-p, stat.Empirical, sorted, nil)
		results[fmt.Sprintf("%.0f%%", level*100)] = high - low
	}
	return results
}

func fractionAbove(values []float64, threshold float64) float64 {
	if len(values) == 0 {
		return 0
	}
	count := 0
	for _, v := range values {
		if v > threshold {
			count++
		}
	}
	return float64(count) / float64(len(values))
}
