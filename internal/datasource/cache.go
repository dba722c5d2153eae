package datasource

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/yourusername/signal-backtest/internal/metrics"
	"github.com/yourusername/signal-backtest/internal/models"
)

// CachedSource keeps fetched bar series in a TTL cache shared across engine runs
type CachedSource struct {
	inner MarketDataSource
	cache *cache.Cache
}

// NewCachedSource wraps a source with a cache whose entries expire after ttl
func NewCachedSource(inner MarketDataSource, ttl time.Duration) *CachedSource {
	return &CachedSource{
		inner: inner,
		cache: cache.New(ttl, 2*ttl),
	}
}

// Name returns the name of the wrapped source
func (s *CachedSource) Name() string {
	return s.inner.Name()
}

// FetchBars serves a cached copy when available and otherwise fetches and stores.
// Errors are never cached.
func (s *CachedSource) FetchBars(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]models.Bar, error) {
	key := fmt.Sprintf("%s|%s|%s|%d|%d", s.inner.Name(), symbol, timeframe, start.Unix(), end.Unix())

	if cached, found := s.cache.Get(key); found {
		metrics.RecordCacheLookup(true)
		return append([]models.Bar(nil), cached.([]models.Bar)...), nil
	}
	metrics.RecordCacheLookup(false)

	bars, err := s.inner.FetchBars(ctx, symbol, timeframe, start, end)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, append([]models.Bar(nil), bars...), cache.DefaultExpiration)
	return bars, nil
}

// Flush drops every cached series
func (s *CachedSource) Flush() {
	s.cache.Flush()
}

// ItemCount returns the number of cached series
func (s *CachedSource) ItemCount() int {
	return s.cache.ItemCount()
}
