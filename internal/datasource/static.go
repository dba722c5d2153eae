package datasource

import (
	"context"
	"sort"
	"time"

	"github.com/yourusername/signal-backtest/internal/models"
)

// StaticSource serves bars held in memory. Symbols it does not know return no bars.
type StaticSource struct {
	name string
	bars map[string][]models.Bar
}

// NewStaticSource creates a source over the given bars, sorting each series by time
func NewStaticSource(name string, bars map[string][]models.Bar) *StaticSource {
	if name == "" {
		name = "static"
	}
	sorted := make(map[string][]models.Bar, len(bars))
	for symbol, series := range bars {
		copied := append([]models.Bar(nil), series...)
		sort.SliceStable(copied, func(i, j int) bool {
			return copied[i].Time.Before(copied[j].Time)
		})
		sorted[symbol] = copied
	}
	return &StaticSource{name: name, bars: sorted}
}

// FetchBars returns a copy of the stored bars within the range
func (s *StaticSource) FetchBars(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]models.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return clip(s.bars[symbol], start, end), nil
}

// Name returns the name of the data source
func (s *StaticSource) Name() string {
	return s.name
}
