package metrics

import "github.com/prometheus/client_golang/prometheus"

// Backtest counter vectors
var (
	BacktestRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "backtest_runs_total",
		Help:      "Total number of backtest runs by status",
	}, []string{"status"})
)

// Backtest gauge vectors
var (
	BacktestRunMetric = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "backtest_run_metric",
		Help:      "Summary statistic of the latest backtest run by version tag and metric name",
	}, []string{"version", "metric"})

	BacktestTradingDays = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "backtest_trading_days",
		Help:      "Number of trading days in the latest backtest run by version tag",
	}, []string{"version"})
)

// RecordBacktestRun records a backtest run event.
// status should be one of: "success", "failure"
func RecordBacktestRun(status string) {
	BacktestRunsTotal.WithLabelValues(status).Inc()
}

// SetRunMetrics publishes every named statistic of a run.
func SetRunMetrics(version string, named map[string]float64) {
	for name, value := range named {
		BacktestRunMetric.WithLabelValues(version, name).Set(value)
	}
}

// SetTradingDays publishes the window length of a run.
func SetTradingDays(version string, days int) {
	BacktestTradingDays.WithLabelValues(version).Set(float64(days))
}
