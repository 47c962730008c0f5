package backtest

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/equity-backtest/internal/metrics"
	"github.com/yourusername/equity-backtest/internal/models"
)

// RequiredColumns lists the panel columns a backtest run cannot do without
var RequiredColumns = []string{
	models.ColTradingDay,
	models.ColSecuCode,
	models.ColNextRet,
	models.ColWeights,
}

// Result bundles everything one backtest run produces
type Result struct {
	Config     BacktestConfig    `json:"config"`
	Timeseries Timeseries        `json:"timeseries"`
	Metrics    Metrics           `json:"metrics"`
	Yearly     YearlyPerformance `json:"yearly"`
	Holdings   []DailyHoldings   `json:"-"`
	Duration   time.Duration     `json:"duration"`
}

// Engine orchestrates backtesting runs
type Engine struct {
	config  BacktestConfig
	returns *ReturnEngine
	logger  *logrus.Logger
}

// NewEngine creates a new backtesting engine
func NewEngine(cfg BacktestConfig, logger *logrus.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid backtest config: %w", err)
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Engine{
		config:  cfg,
		returns: NewReturnEngine(cfg.TransactionFeeRate),
		logger:  logger,
	}, nil
}

// Config returns the backtest configuration
func (e *Engine) Config() BacktestConfig {
	return e.config
}

// Logger returns the engine logger
func (e *Engine) Logger() *logrus.Logger {
	return e.logger
}

// Run backtests a weighted panel against an optional benchmark.
// columns, when non-nil, is the set of columns the panel was loaded with;
// a missing required column aborts the run before any computation.
func (e *Engine) Run(panel models.Panel, columns models.ColumnSet, bench models.BenchmarkSeries) (*Result, error) {
	started := time.Now()
	if columns != nil {
		if err := models.RequireColumns(columns, "backtest", RequiredColumns...); err != nil {
			metrics.RecordBacktestRun("failure")
			return nil, err
		}
	}
	if len(panel) == 0 {
		metrics.RecordBacktestRun("failure")
		return nil, models.ErrEmptyPanel
	}

	e.logger.WithFields(logrus.Fields{
		"start":    e.config.StartDate.Format("2006-01-02"),
		"end":      e.config.EndDate.Format("2006-01-02"),
		"fee_rate": e.config.TransactionFeeRate,
		"records":  len(panel),
	}).Info("Starting backtest run")

	window := panel.Window(e.config.StartDate, e.config.EndDate)
	window.Sort()
	benchWindow := bench.Window(e.config.StartDate, e.config.EndDate)
	benchWindow.Sort()

	if len(window) == 0 {
		e.logger.Warn("No panel records fall inside the backtest window")
	}

	ts := e.returns.Compute(window, benchWindow)
	result := &Result{
		Config:     e.config,
		Timeseries: ts,
		Metrics:    CalculateMetrics(ts, e.config),
		Yearly:     CalculateYearlyPerformance(ts, benchWindow),
		Holdings:   CollectHoldings(window),
	}
	result.Duration = time.Since(started)

	metrics.RecordBacktestRun("success")
	metrics.ObserveStageDuration("backtest", result.Duration.Seconds())
	metrics.SetRunMetrics(e.config.VersionTag, result.Metrics.Named())
	metrics.SetTradingDays(e.config.VersionTag, len(ts))

	e.logger.WithFields(logrus.Fields{
		"trading_days":   len(ts),
		"cum_ret":        result.Metrics.Strategy.CumulativeReturn,
		"ann_ret_excess": result.Metrics.Excess.AnnualReturn,
		"duration_ms":    result.Duration.Milliseconds(),
	}).Info("Backtest run completed")

	return result, nil
}
