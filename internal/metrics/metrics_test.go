package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegistry(t *testing.T) {
	InitRegistry()
	registry := GetRegistry()

	assert.NotNil(t, registry)
	assert.IsType(t, &prometheus.Registry{}, registry)
}

func TestRecordDataFetch(t *testing.T) {
	InitRegistry()

	before := testutil.ToFloat64(BarsLoadedTotal.WithLabelValues("test_source"))
	RecordDataFetch("test_source", 0.2, 120, nil)
	assert.Equal(t, before+120, testutil.ToFloat64(BarsLoadedTotal.WithLabelValues("test_source")))

	errorsBefore := testutil.ToFloat64(DataFetchErrorsTotal.WithLabelValues("test_source"))
	RecordDataFetch("test_source", 0.1, 0, errors.New("boom"))
	assert.Equal(t, errorsBefore+1, testutil.ToFloat64(DataFetchErrorsTotal.WithLabelValues("test_source")))
}

func TestRecordCacheLookup(t *testing.T) {
	InitRegistry()

	RecordCacheLookup(true)
	RecordCacheLookup(false)

	ratio := testutil.ToFloat64(CacheHitRatio)
	assert.Greater(t, ratio, 0.0)
	assert.Less(t, ratio, 1.0)
}

func TestBacktestMetrics(t *testing.T) {
	InitRegistry()

	strategyID := "rsi_macd"

	before := testutil.ToFloat64(BacktestRunsTotal.WithLabelValues("historical_replay", "success"))
	RecordBacktestRun("historical_replay", "success", 0.4)
	assert.Equal(t, before+1, testutil.ToFloat64(BacktestRunsTotal.WithLabelValues("historical_replay", "success")))

	assert.NotPanics(t, func() {
		RecordTradeClosed(strategyID, "stop_loss")
	})

	UpdateRunOutcome(strategyID, 10500, 3.2)
	assert.Equal(t, 10500.0, testutil.ToFloat64(FinalEquity.WithLabelValues(strategyID)))
	assert.Equal(t, 3.2, testutil.ToFloat64(MaxDrawdownPercent.WithLabelValues(strategyID)))
}

func TestStrategyMetrics(t *testing.T) {
	InitRegistry()

	assert.NotPanics(t, func() {
		RecordStrategySignal("breakout", "long")
	})

	UpdateStrategyWinRate("breakout", 55)
	assert.Equal(t, 55.0, testutil.ToFloat64(StrategyWinRate.WithLabelValues("breakout")))
}

func TestSchedulerMetrics(t *testing.T) {
	InitRegistry()

	assert.NotPanics(t, func() {
		RecordScheduledJob("nightly", "success")
		UpdateActiveJobs(2)
		RecordCircuitBreakerTrip()
	})
}

func TestMetricsHandler(t *testing.T) {
	InitRegistry()
	RecordBacktestRun("monte_carlo", "success", 0.01)

	handler := Handler()
	require.NotNil(t, handler)
	assert.Implements(t, (*http.Handler)(nil), handler)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "signal_backtest_backtest_runs_total"))
}

func BenchmarkRecordTradeClosed(b *testing.B) {
	InitRegistry()

	for i := 0; i < b.N; i++ {
		RecordTradeClosed("rsi_macd", "take_profit")
	}
}
