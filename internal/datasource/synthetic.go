package datasource

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"github.com/yourusername/signal-backtest/internal/models"
)

// SyntheticConfig parameterizes the random-walk generator
type SyntheticConfig struct {
	Seed       int64
	BasePrice  float64 // starting price for every symbol
	Volatility float64 // stdev of the per-bar return
	Drift      float64 // mean of the per-bar return
}

// DefaultSyntheticConfig returns the generator defaults
func DefaultSyntheticConfig() SyntheticConfig {
	return SyntheticConfig{
		Seed:       42,
		BasePrice:  100,
		Volatility: 0.01,
	}
}

// SyntheticSource generates random-walk bars. Output depends only on the seed, the
// symbol, the timeframe and the range, so repeated fetches are identical.
type SyntheticSource struct {
	cfg SyntheticConfig
}

// NewSyntheticSource creates a seeded synthetic generator
func NewSyntheticSource(cfg SyntheticConfig) *SyntheticSource {
	defaults := DefaultSyntheticConfig()
	if cfg.BasePrice <= 0 {
		cfg.BasePrice = defaults.BasePrice
	}
	if cfg.Volatility <= 0 {
		cfg.Volatility = defaults.Volatility
	}
	return &SyntheticSource{cfg: cfg}
}

// FetchBars generates one bar per timeframe step from start through end
func (s *SyntheticSource) FetchBars(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]models.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	step, err := models.ParseTimeframe(timeframe)
	if err != nil {
		return nil, NewDataSourceError(s.Name(), ErrCodeInvalidData, "unsupported timeframe", err)
	}
	if end.Before(start) {
		return nil, nil
	}

	rng := rand.New(rand.NewSource(s.symbolSeed(symbol)))
	count := int(end.Sub(start)/step) + 1
	bars := make([]models.Bar, 0, count)

	price := s.cfg.BasePrice
	for i := 0; i < count; i++ {
		open := price
		change := s.cfg.Drift + rng.NormFloat64()*s.cfg.Volatility
		closePrice := math.Max(open*(1+change), 0.01)
		wick := math.Abs(rng.NormFloat64()) * s.cfg.Volatility / 2

		bars = append(bars, models.Bar{
			Time:   start.Add(time.Duration(i) * step),
			Open:   open,
			High:   math.Max(open, closePrice) * (1 + wick),
			Low:    math.Min(open, closePrice) * (1 - wick),
			Close:  closePrice,
			Volume: 1000 + rng.Float64()*9000,
		})
		price = closePrice
	}
	return bars, nil
}

// Name returns the name of the data source
func (s *SyntheticSource) Name() string {
	return "synthetic"
}

func (s *SyntheticSource) symbolSeed(symbol string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(symbol))
	return s.cfg.Seed ^ int64(h.Sum64())
}
