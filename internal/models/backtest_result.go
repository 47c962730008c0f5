package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DailyResult is one row of the per-day backtest table
type DailyResult struct {
	TradingDay      time.Time `db:"trading_day" json:"trading_day"`
	StrategyReturn  float64   `db:"strategy_return" json:"strategy_return"`
	StrategyValue   float64   `db:"strategy_value" json:"strategy_value"`
	PortfolioReturn float64   `db:"portfolio_return" json:"portfolio_return"`
	Turnover        float64   `db:"turnover" json:"turnover"`
	NHoldings       int       `db:"n_holdings" json:"n_holdings"`

	// Populated only when the benchmark has an observation for the day
	BenchmarkReturn     *float64 `db:"benchmark_return" json:"benchmark_return,omitempty"`
	ExcessReturn        *float64 `db:"excess_return" json:"excess_return,omitempty"`
	BaseValue           *float64 `db:"base_value" json:"base_value,omitempty"`
	ExcessValue         *float64 `db:"excess_value" json:"excess_value,omitempty"`
	ExcessValueRelative *float64 `db:"excess_value_relative" json:"excess_value_relative,omitempty"`
}

// BacktestRun represents a persisted backtest run
type BacktestRun struct {
	ID                 uuid.UUID       `db:"id" json:"id"`
	VersionTag         string          `db:"version_tag" json:"version_tag"`
	RunDate            time.Time       `db:"run_date" json:"run_date"`
	StartDate          time.Time       `db:"start_date" json:"start_date"`
	EndDate            time.Time       `db:"end_date" json:"end_date"`
	TransactionFeeRate float64         `db:"transaction_fee_rate" json:"transaction_fee_rate"`
	TradingDays        int             `db:"trading_days" json:"trading_days"`
	CumulativeReturn   float64         `db:"cumulative_return" json:"cumulative_return"`
	AnnualReturn       float64         `db:"annual_return" json:"annual_return"`
	AnnualVolatility   float64         `db:"annual_volatility" json:"annual_volatility"`
	MaxDrawdownExcess  float64         `db:"max_drawdown_excess" json:"max_drawdown_excess"`
	InformationRatio   float64         `db:"information_ratio" json:"information_ratio"`
	AvgTurnover        float64         `db:"avg_turnover" json:"avg_turnover"`
	Metrics            json.RawMessage `db:"metrics" json:"metrics"`
	Yearly             json.RawMessage `db:"yearly" json:"yearly"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
}
