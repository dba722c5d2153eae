package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/signal-backtest/internal/models"
)

// Walk-forward defaults
const (
	DefaultWalkForwardWindows = 4
	DefaultInSampleRatio      = 0.7
)

// WalkForwardConfig configures walk-forward analysis
type WalkForwardConfig struct {
	Windows       int
	InSampleRatio float64
}

// WalkForwardWindow represents one walk-forward window. End times are exclusive except
// OutOfSampleEnd of the last window, which is the end of the configured range.
type WalkForwardWindow struct {
	WindowID           int         `json:"window_id"`
	InSampleStart      time.Time   `json:"in_sample_start"`
	InSampleEnd        time.Time   `json:"in_sample_end"`
	OutOfSampleStart   time.Time   `json:"out_of_sample_start"`
	OutOfSampleEnd     time.Time   `json:"out_of_sample_end"`
	InSampleMetrics    Performance `json:"in_sample_metrics"`
	OutOfSampleMetrics Performance `json:"out_of_sample_metrics"`
}

// WalkForwardResult represents walk-forward analysis result
type WalkForwardResult struct {
	Windows []WalkForwardWindow `json:"windows"`
	// ConsistencyScore is the share of windows with a profitable out-of-sample segment
	ConsistencyScore float64 `json:"consistency_score"`
	// Degradation is mean in-sample return percent minus mean out-of-sample return percent
	Degradation              float64 `json:"degradation"`
	AverageInSampleReturn    float64 `json:"average_in_sample_return"`
	AverageOutOfSampleReturn float64 `json:"average_out_of_sample_return"`
}

// RunWalkForward splits the engine's date range into consecutive windows and runs the
// strategy over the in-sample and out-of-sample part of each, reusing the engine's bar cache
func RunWalkForward(ctx context.Context, engine *Engine, definition models.Strategy, cfg WalkForwardConfig) (WalkForwardResult, error) {
	if engine == nil {
		return WalkForwardResult{}, fmt.Errorf("engine is required")
	}
	if cfg.Windows <= 0 {
		cfg.Windows = DefaultWalkForwardWindows
	}
	if cfg.InSampleRatio <= 0 || cfg.InSampleRatio >= 1 {
		cfg.InSampleRatio = DefaultInSampleRatio
	}

	start := engine.config.StartDate
	end := engine.config.EndDate
	span := end.Sub(start) / time.Duration(cfg.Windows)
	if span <= 0 {
		return WalkForwardResult{}, fmt.Errorf("%w: date range too short for %d windows", ErrInvalidConfig, cfg.Windows)
	}

	result := WalkForwardResult{Windows: make([]WalkForwardWindow, 0, cfg.Windows)}
	profitable := 0

	for i := 0; i < cfg.Windows; i++ {
		windowStart := start.Add(time.Duration(i) * span)
		windowEnd := windowStart.Add(span)
		if i == cfg.Windows-1 {
			windowEnd = end
		}
		split := windowStart.Add(time.Duration(float64(windowEnd.Sub(windowStart)) * cfg.InSampleRatio))

		// Windows are half-open so a bar on a boundary is replayed exactly once;
		// the last window keeps the inclusive end of the configured range.
		outOfSampleEnd := windowEnd
		if i < cfg.Windows-1 {
			outOfSampleEnd = windowEnd.Add(-time.Nanosecond)
		}

		inSample, err := engine.run(ctx, definition, windowStart, split.Add(-time.Nanosecond))
		if err != nil {
			return WalkForwardResult{}, fmt.Errorf("window %d in-sample: %w", i+1, err)
		}
		outOfSample, err := engine.run(ctx, definition, split, outOfSampleEnd)
		if err != nil {
			return WalkForwardResult{}, fmt.Errorf("window %d out-of-sample: %w", i+1, err)
		}

		window := WalkForwardWindow{
			WindowID:           i + 1,
			InSampleStart:      windowStart,
			InSampleEnd:        split,
			OutOfSampleStart:   split,
			OutOfSampleEnd:     windowEnd,
			InSampleMetrics:    inSample.Performance,
			OutOfSampleMetrics: outOfSample.Performance,
		}
		result.Windows = append(result.Windows, window)

		result.AverageInSampleReturn += inSample.Performance.TotalReturnPercent
		result.AverageOutOfSampleReturn += outOfSample.Performance.TotalReturnPercent
		if outOfSample.Performance.TotalReturn > 0 {
			profitable++
		}
	}

	n := float64(len(result.Windows))
	result.AverageInSampleReturn /= n
	result.AverageOutOfSampleReturn /= n
	result.ConsistencyScore = float64(profitable) / n
	result.Degradation = result.AverageInSampleReturn - result.AverageOutOfSampleReturn

	engine.logger.WithFields(logrus.Fields{
		"windows":     len(result.Windows),
		"consistency": result.ConsistencyScore,
		"degradation": result.Degradation,
	}).Info("Walk-forward analysis completed")

	return result, nil
}
