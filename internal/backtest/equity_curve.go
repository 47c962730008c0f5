package backtest

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/yourusername/equity-backtest/internal/models"
)

// Timeseries is the per-day result table of a backtest
type Timeseries []models.DailyResult

// StrategyReturns returns the fee-adjusted daily returns
func (ts Timeseries) StrategyReturns() []float64 {
	returns := make([]float64, len(ts))
	for i, row := range ts {
		returns[i] = row.StrategyReturn
	}
	return returns
}

// ExcessReturns returns the excess returns of days with a benchmark observation
func (ts Timeseries) ExcessReturns() []float64 {
	returns := make([]float64, 0, len(ts))
	for _, row := range ts {
		if row.ExcessReturn != nil {
			returns = append(returns, *row.ExcessReturn)
		}
	}
	return returns
}

// HasBenchmark reports whether any day carries benchmark columns
func (ts Timeseries) HasBenchmark() bool {
	for _, row := range ts {
		if row.BaseValue != nil {
			return true
		}
	}
	return false
}

// AverageHoldings returns the mean number of held securities per day
func (ts Timeseries) AverageHoldings() float64 {
	if len(ts) == 0 {
		return 0
	}
	total := 0
	for _, row := range ts {
		total += row.NHoldings
	}
	return float64(total) / float64(len(ts))
}

// AverageTurnover returns the mean daily turnover
func (ts Timeseries) AverageTurnover() float64 {
	if len(ts) == 0 {
		return 0
	}
	total := 0.0
	for _, row := range ts {
		total += row.Turnover
	}
	return total / float64(len(ts))
}

// ToCSV exports the table to a CSV string. Benchmark columns are written
// only when a benchmark is present; days without a value are left empty.
func (ts Timeseries) ToCSV() string {
	withBench := ts.HasBenchmark()

	var buf bytes.Buffer
	buf.WriteString("TradingDay,strategy_return,strategy_value,portfolio_return,turnover,n_holdings")
	if withBench {
		buf.WriteString(",base_value,excess_value,excess_value_relative")
	}
	buf.WriteString("\n")
	for _, row := range ts {
		buf.WriteString(row.TradingDay.Format("2006-01-02"))
		buf.WriteString(",")
		buf.WriteString(formatFloat(row.StrategyReturn))
		buf.WriteString(",")
		buf.WriteString(formatFloat(row.StrategyValue))
		buf.WriteString(",")
		buf.WriteString(formatFloat(row.PortfolioReturn))
		buf.WriteString(",")
		buf.WriteString(formatFloat(row.Turnover))
		buf.WriteString(",")
		buf.WriteString(strconv.Itoa(row.NHoldings))
		if withBench {
			buf.WriteString(",")
			buf.WriteString(formatOptional(row.BaseValue))
			buf.WriteString(",")
			buf.WriteString(formatOptional(row.ExcessValue))
			buf.WriteString(",")
			buf.WriteString(formatOptional(row.ExcessValueRelative))
		}
		buf.WriteString("\n")
	}
	return buf.String()
}

// ToJSON exports the table to a JSON string
func (ts Timeseries) ToJSON() string {
	data, _ := json.Marshal(ts)
	return string(data)
}

// Days returns the trading days of the table
func (ts Timeseries) Days() []time.Time {
	days := make([]time.Time, len(ts))
	for i, row := range ts {
		days[i] = row.TradingDay
	}
	return days
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func formatFloat(v float64) string {
	return strconvFormat(v, 6)
}

func strconvFormat(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}
