// Package metrics provides the centralized Prometheus registry for backtest runs.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "signal_backtest"

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Market data metrics
var (
	DataFetchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "data_fetch_duration_seconds",
		Help:      "Latency of market data fetches by source",
		Buckets:   prometheus.DefBuckets,
	}, []string{"source"})
	DataFetchErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "data_fetch_errors_total",
		Help:      "Total number of failed market data fetches by source",
	}, []string{"source"})
	BarsLoadedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bars_loaded_total",
		Help:      "Total number of bars loaded by source",
	}, []string{"source"})
	CacheRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_requests_total",
		Help:      "Bar cache lookups by result",
	}, []string{"result"})
	CacheHitRatio = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "cache_hit_ratio",
		Help:      "Ratio of bar cache hits to lookups",
	})
	CircuitBreakerTripsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "circuit_breaker_trips_total",
		Help:      "Total number of HTTP circuit breaker trips",
	})
)

// Scheduler metrics
var (
	ScheduledJobsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scheduled_jobs_total",
		Help:      "Scheduled backtest jobs by job and status",
	}, []string{"job", "status"})
	ActiveJobs = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_jobs",
		Help:      "Number of registered scheduler jobs",
	})
)

var cacheStats struct {
	mu     sync.Mutex
	hits   float64
	misses float64
}

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(DataFetchDuration)
		registry.MustRegister(DataFetchErrorsTotal)
		registry.MustRegister(BarsLoadedTotal)
		registry.MustRegister(CacheRequestsTotal)
		registry.MustRegister(CacheHitRatio)
		registry.MustRegister(CircuitBreakerTripsTotal)

		registry.MustRegister(ScheduledJobsTotal)
		registry.MustRegister(ActiveJobs)

		// Register backtest metrics
		registry.MustRegister(BacktestRunsTotal)
		registry.MustRegister(BacktestDuration)
		registry.MustRegister(TradesClosedTotal)
		registry.MustRegister(FinalEquity)
		registry.MustRegister(MaxDrawdownPercent)

		// Register strategy metrics
		registry.MustRegister(StrategySignalsTotal)
		registry.MustRegister(StrategyWinRate)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordDataFetch records a market data fetch.
func RecordDataFetch(source string, durationSeconds float64, bars int, err error) {
	DataFetchDuration.WithLabelValues(source).Observe(durationSeconds)
	if err != nil {
		DataFetchErrorsTotal.WithLabelValues(source).Inc()
		return
	}
	BarsLoadedTotal.WithLabelValues(source).Add(float64(bars))
}

// RecordCacheLookup records a bar cache hit or miss and refreshes the hit ratio.
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheRequestsTotal.WithLabelValues(result).Inc()

	cacheStats.mu.Lock()
	defer cacheStats.mu.Unlock()
	if hit {
		cacheStats.hits++
	} else {
		cacheStats.misses++
	}
	CacheHitRatio.Set(cacheStats.hits / (cacheStats.hits + cacheStats.misses))
}

// RecordCircuitBreakerTrip records a circuit breaker trip event.
func RecordCircuitBreakerTrip() {
	CircuitBreakerTripsTotal.Inc()
}

// RecordScheduledJob records the outcome of a scheduled job.
func RecordScheduledJob(job, status string) {
	ScheduledJobsTotal.WithLabelValues(job, status).Inc()
}

// UpdateActiveJobs updates the registered jobs gauge.
func UpdateActiveJobs(count float64) {
	ActiveJobs.Set(count)
}
