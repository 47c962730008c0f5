package backtest

import (
	"fmt"
	"time"

	"github.com/yourusername/equity-backtest/internal/config"
)

// DefaultTradingDaysPerYear is the annualization factor used when none is configured
const DefaultTradingDaysPerYear = 242

// BacktestConfig extends core config with run-specific settings
type BacktestConfig struct {
	StartDate              time.Time
	EndDate                time.Time
	TransactionFeeRate     float64
	TradingDaysPerYear     int
	BenchmarkReturnColumn  string
	OutputDir              string
	VersionTag             string
	MetricsFilename        string
	YearlyFilename         string
	SelectedStocksFilename string
}

// DefaultBacktestConfig returns a config with the stock defaults for the window
func DefaultBacktestConfig(start, end time.Time) BacktestConfig {
	return BacktestConfig{
		StartDate:              start,
		EndDate:                end,
		TransactionFeeRate:     0.001,
		TradingDaysPerYear:     DefaultTradingDaysPerYear,
		BenchmarkReturnColumn:  "next_ret",
		OutputDir:              "outputs",
		VersionTag:             "v1",
		MetricsFilename:        "backtest_metrics.csv",
		YearlyFilename:         "yearly_performance.csv",
		SelectedStocksFilename: "selected_stocks.csv",
	}
}

// FromConfig converts app config to backtest config
func FromConfig(cfg *config.BacktestConfig) (BacktestConfig, error) {
	if cfg == nil {
		return BacktestConfig{}, fmt.Errorf("backtest config is required")
	}
	start, err := time.Parse("2006-01-02", cfg.StartDate)
	if err != nil {
		return BacktestConfig{}, fmt.Errorf("invalid start date: %w", err)
	}
	end, err := time.Parse("2006-01-02", cfg.EndDate)
	if err != nil {
		return BacktestConfig{}, fmt.Errorf("invalid end date: %w", err)
	}

	bt := DefaultBacktestConfig(start, end)
	bt.TransactionFeeRate = cfg.TransactionFeeRate
	if cfg.TradingDaysPerYear > 0 {
		bt.TradingDaysPerYear = cfg.TradingDaysPerYear
	}
	if cfg.BenchmarkReturnColumn != "" {
		bt.BenchmarkReturnColumn = cfg.BenchmarkReturnColumn
	}
	if cfg.OutputDir != "" {
		bt.OutputDir = cfg.OutputDir
	}
	if cfg.VersionTag != "" {
		bt.VersionTag = cfg.VersionTag
	}
	if cfg.MetricsFilename != "" {
		bt.MetricsFilename = cfg.MetricsFilename
	}
	if cfg.YearlyFilename != "" {
		bt.YearlyFilename = cfg.YearlyFilename
	}
	if cfg.SelectedStocksFilename != "" {
		bt.SelectedStocksFilename = cfg.SelectedStocksFilename
	}

	return bt, bt.Validate()
}

// Validate validates backtest config parameters
func (b BacktestConfig) Validate() error {
	if b.StartDate.IsZero() || b.EndDate.IsZero() {
		return fmt.Errorf("start and end dates are required")
	}
	if b.StartDate.After(b.EndDate) {
		return fmt.Errorf("start date must not be after end date")
	}
	if b.TransactionFeeRate < 0 {
		return fmt.Errorf("transaction fee rate cannot be negative")
	}
	if b.TradingDaysPerYear <= 0 {
		return fmt.Errorf("trading days per year must be positive")
	}
	return nil
}
