// Package metrics provides centralized Prometheus metrics registry for the backtester.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "equity_backtest"

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	PanelRecordsLoadedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "panel_records_loaded_total",
		Help:      "Total number of security-day records loaded by source",
	}, []string{"source"})
	WeightingDaysTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "weighting_days_total",
		Help:      "Total number of trading days processed by the weight engine",
	})
	WeightingEmptyDaysTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "weighting_empty_days_total",
		Help:      "Trading days on which no security was both tradable and selected",
	})
	SelectedRecordsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "selected_records_total",
		Help:      "Total number of security-days flagged by the factor selector",
	})
)

// Gauge metrics
var (
	LockedWeight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "locked_weight",
		Help:      "Weight carried by non-tradable holdings on the last processed day",
	})
	InvestedWeight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "invested_weight",
		Help:      "Total weight allocated on the last processed day",
	})
)

// Histogram metrics
var (
	StageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "stage_duration_seconds",
		Help:      "Duration of pipeline stages in seconds",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
	}, []string{"stage"})
	DailyHoldings = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "daily_valid_securities",
		Help:      "Number of tradable and selected securities per trading day",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		// Register counter metrics
		registry.MustRegister(PanelRecordsLoadedTotal)
		registry.MustRegister(WeightingDaysTotal)
		registry.MustRegister(WeightingEmptyDaysTotal)
		registry.MustRegister(SelectedRecordsTotal)

		// Register gauge metrics
		registry.MustRegister(LockedWeight)
		registry.MustRegister(InvestedWeight)

		// Register histogram metrics
		registry.MustRegister(StageDuration)
		registry.MustRegister(DailyHoldings)

		// Register backtest metrics
		registry.MustRegister(BacktestRunsTotal)
		registry.MustRegister(BacktestRunMetric)
		registry.MustRegister(BacktestTradingDays)
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

// RecordPanelLoaded records how many records a loader produced.
func RecordPanelLoaded(source string, records int) {
	PanelRecordsLoadedTotal.WithLabelValues(source).Add(float64(records))
}

// RecordSelected records the number of selected security-days.
func RecordSelected(count int) {
	SelectedRecordsTotal.Add(float64(count))
}

// RecordWeightingDay records one weight engine day.
func RecordWeightingDay(valid int, locked, invested float64) {
	WeightingDaysTotal.Inc()
	if valid == 0 {
		WeightingEmptyDaysTotal.Inc()
	}
	DailyHoldings.Observe(float64(valid))
	LockedWeight.Set(locked)
	InvestedWeight.Set(invested)
}

// ObserveStageDuration records the duration of a pipeline stage.
func ObserveStageDuration(stage string, durationSeconds float64) {
	StageDuration.WithLabelValues(stage).Observe(durationSeconds)
}
