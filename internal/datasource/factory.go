package datasource

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/signal-backtest/internal/config"
	"github.com/yourusername/signal-backtest/internal/logger"
)

// SourceType represents the type of data source
type SourceType string

const (
	// SyntheticSourceType generates seeded random-walk bars
	SyntheticSourceType SourceType = "synthetic"
	// HistoricalSourceType fetches bars from a REST API
	HistoricalSourceType SourceType = "historical"
	// CSVSourceType reads bars from files
	CSVSourceType SourceType = "csv"
)

// Factory creates MarketDataSource implementations based on configuration
type Factory struct {
	logger *logrus.Logger
	config config.MarketDataConfig
}

// NewFactory creates a new data source factory
func NewFactory(cfg config.MarketDataConfig, log *logrus.Logger) *Factory {
	return &Factory{
		logger: logger.OrDefault(log),
		config: cfg,
	}
}

// Create builds the configured source, wrapped in a cache when enabled
func (f *Factory) Create() (MarketDataSource, error) {
	source, err := f.create(SourceType(f.config.Source))
	if err != nil {
		return nil, err
	}

	if f.config.CacheEnabled {
		ttl := time.Duration(f.config.CacheTTLMinutes) * time.Minute
		if ttl <= 0 {
			ttl = time.Hour
		}
		source = NewCachedSource(source, ttl)
	}

	f.logger.WithFields(logrus.Fields{
		"component": "market_data",
		"source":    source.Name(),
		"cached":    f.config.CacheEnabled,
	}).Info("Created market data source")
	return source, nil
}

func (f *Factory) create(sourceType SourceType) (MarketDataSource, error) {
	switch sourceType {
	case SyntheticSourceType, "":
		return NewSyntheticSource(SyntheticConfig{
			Seed:       f.config.Seed,
			BasePrice:  f.config.BasePrice,
			Volatility: f.config.Volatility,
			Drift:      f.config.Drift,
		}), nil

	case HistoricalSourceType:
		if f.config.BaseURL == "" {
			return nil, fmt.Errorf("historical source requires a base URL")
		}
		return NewHistoricalClient(NewRateLimitedHTTPClient(f.httpConfig(), f.logger), f.config.BaseURL, f.config.APIKey, f.logger), nil

	case CSVSourceType:
		if f.config.CSVDir == "" {
			return nil, fmt.Errorf("csv source requires a directory")
		}
		return NewCSVSource(f.config.CSVDir), nil

	default:
		return nil, fmt.Errorf("unknown data source type: %s", sourceType)
	}
}

func (f *Factory) httpConfig() HTTPClientConfig {
	cfg := DefaultHTTPClientConfig()
	if f.config.TimeoutSeconds > 0 {
		cfg.Timeout = time.Duration(f.config.TimeoutSeconds) * time.Second
	}
	if f.config.MaxRetries > 0 {
		cfg.MaxRetries = f.config.MaxRetries
	}
	if f.config.RateLimit > 0 {
		cfg.RateLimit = f.config.RateLimit
	}
	return cfg
}

// ListAvailableSources returns the source types the factory can build
func (f *Factory) ListAvailableSources() []SourceType {
	return []SourceType{SyntheticSourceType, HistoricalSourceType, CSVSourceType}
}
