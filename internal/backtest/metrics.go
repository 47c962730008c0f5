package backtest

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// SeriesStats summarizes one daily return series
type SeriesStats struct {
	CumulativeReturn   float64 `json:"cumulative_return"`
	AnnualReturn       float64 `json:"annual_return"`
	AnnualVolatility   float64 `json:"annual_volatility"`
	MaxDrawdown        float64 `json:"max_drawdown"`
	InformationRatioV1 float64 `json:"information_ratio_v1"`
	InformationRatioV2 float64 `json:"information_ratio_v2"`
	WinProbability     float64 `json:"win_probability"`
	ProfitLossRatio    float64 `json:"profit_loss_ratio"`
	Observations       int     `json:"observations"`
}

// Metrics represents backtest performance metrics.
// Every statistic is computed on fee-adjusted returns.
type Metrics struct {
	Strategy        SeriesStats `json:"strategy"`
	Excess          SeriesStats `json:"excess"`
	HasBenchmark    bool        `json:"has_benchmark"`
	AvgHoldings     float64     `json:"avg_n_holdings"`
	AvgTurnover     float64     `json:"avg_turnover"`
	TradingDays     int         `json:"trading_days"`
	StartDate       time.Time   `json:"start_date"`
	EndDate         time.Time   `json:"end_date"`
	TradingDaysYear int         `json:"trading_days_per_year"`
}

// CalculateMetrics calculates metrics from the per-day table
func CalculateMetrics(ts Timeseries, cfg BacktestConfig) Metrics {
	tdpy := cfg.TradingDaysPerYear
	if tdpy <= 0 {
		tdpy = DefaultTradingDaysPerYear
	}
	metrics := Metrics{
		StartDate:       cfg.StartDate,
		EndDate:         cfg.EndDate,
		TradingDays:     len(ts),
		TradingDaysYear: tdpy,
		HasBenchmark:    ts.HasBenchmark(),
		AvgHoldings:     ts.AverageHoldings(),
		AvgTurnover:     ts.AverageTurnover(),
	}
	if len(ts) == 0 {
		return metrics
	}

	metrics.Strategy = ComputeSeriesStats(ts.StrategyReturns(), tdpy)
	if metrics.HasBenchmark {
		metrics.Excess = ComputeSeriesStats(ts.ExcessReturns(), tdpy)
	}
	return metrics
}

// ComputeSeriesStats computes every summary statistic of a daily series
func ComputeSeriesStats(returns []float64, tradingDaysPerYear int) SeriesStats {
	clean := dropNaN(returns)
	return SeriesStats{
		CumulativeReturn:   CumulativeReturn(clean),
		AnnualReturn:       AnnualReturn(clean, tradingDaysPerYear),
		AnnualVolatility:   AnnualVolatility(clean, tradingDaysPerYear),
		MaxDrawdown:        MaxDrawdown(returns),
		InformationRatioV1: InformationRatio(clean, tradingDaysPerYear),
		InformationRatioV2: DrawdownPenalizedInformationRatio(clean, tradingDaysPerYear),
		WinProbability:     WinProbability(clean),
		ProfitLossRatio:    ProfitLossRatio(clean),
		Observations:       len(clean),
	}
}

// CumulativeReturn is the simple sum of the non-missing daily returns
func CumulativeReturn(returns []float64) float64 {
	total := 0.0
	for _, r := range returns {
		if math.IsNaN(r) {
			continue
		}
		total += r
	}
	return total
}

// AnnualReturn scales the mean daily return to a year
func AnnualReturn(returns []float64, tradingDaysPerYear int) float64 {
	clean := dropNaN(returns)
	if len(clean) == 0 {
		return 0
	}
	return stat.Mean(clean, nil) * float64(tradingDaysPerYear)
}

// AnnualVolatility scales the sample standard deviation of daily returns to a year.
// Fewer than two observations give 0.
func AnnualVolatility(returns []float64, tradingDaysPerYear int) float64 {
	clean := dropNaN(returns)
	if len(clean) < 2 {
		return 0
	}
	return stat.StdDev(clean, nil) * math.Sqrt(float64(tradingDaysPerYear))
}

// MaxDrawdown returns the largest peak-to-trough decline of the additive
// equity curve 1 + cumsum(returns). Missing returns count as 0 and points
// with a zero peak are skipped.
func MaxDrawdown(returns []float64) float64 {
	maxDD := 0.0
	equity := 1.0
	peak := math.Inf(-1)
	for _, r := range returns {
		if !math.IsNaN(r) {
			equity += r
		}
		if equity > peak {
			peak = equity
		}
		if peak == 0 {
			continue
		}
		drawdown := (peak - equity) / peak
		if drawdown > maxDD {
			maxDD = drawdown
		}
	}
	return maxDD
}

// InformationRatio is annual return over annual volatility, 0 when volatility is 0
func InformationRatio(excess []float64, tradingDaysPerYear int) float64 {
	sig := AnnualVolatility(excess, tradingDaysPerYear)
	if sig == 0 {
		return 0
	}
	return AnnualReturn(excess, tradingDaysPerYear) / sig
}

// DrawdownPenalizedInformationRatio subtracts a quarter of the max drawdown
// from the annual return before dividing by annual volatility
func DrawdownPenalizedInformationRatio(excess []float64, tradingDaysPerYear int) float64 {
	sig := AnnualVolatility(excess, tradingDaysPerYear)
	if sig == 0 {
		return 0
	}
	mdd := MaxDrawdown(excess)
	return (AnnualReturn(excess, tradingDaysPerYear) - mdd/4.0) / sig
}

// WinProbability is the share of positive days among the nonzero days
func WinProbability(returns []float64) float64 {
	nonzero, wins := 0, 0
	for _, r := range returns {
		if r == 0 || math.IsNaN(r) {
			continue
		}
		nonzero++
		if r > 0 {
			wins++
		}
	}
	if nonzero == 0 {
		return 0
	}
	return float64(wins) / float64(nonzero)
}

// ProfitLossRatio is the mean gain over the mean absolute loss, 0 when either side is empty
func ProfitLossRatio(returns []float64) float64 {
	gains := make([]float64, 0)
	losses := make([]float64, 0)
	for _, r := range returns {
		switch {
		case r > 0:
			gains = append(gains, r)
		case r < 0:
			losses = append(losses, math.Abs(r))
		}
	}
	if len(gains) == 0 || len(losses) == 0 {
		return 0
	}
	return stat.Mean(gains, nil) / stat.Mean(losses, nil)
}

// Named returns the raw statistics keyed by metric name
func (m Metrics) Named() map[string]float64 {
	return map[string]float64{
		"cum_ret":        m.Strategy.CumulativeReturn,
		"ann_ret":        m.Strategy.AnnualReturn,
		"ann_vol":        m.Strategy.AnnualVolatility,
		"mdd":            m.Strategy.MaxDrawdown,
		"win":            m.Strategy.WinProbability,
		"pl":             m.Strategy.ProfitLossRatio,
		"cum_ret_excess": m.Excess.CumulativeReturn,
		"ann_ret_excess": m.Excess.AnnualReturn,
		"ann_vol_excess": m.Excess.AnnualVolatility,
		"ir1_excess":     m.Excess.InformationRatioV1,
		"ir2_excess":     m.Excess.InformationRatioV2,
		"win_excess":     m.Excess.WinProbability,
		"mdd_excess":     m.Excess.MaxDrawdown,
		"pl_excess":      m.Excess.ProfitLossRatio,
		"avg_n_holdings": m.AvgHoldings,
		"avg_turnover":   m.AvgTurnover,
	}
}

// MetricLine is one labelled, formatted statistic
type MetricLine struct {
	Label string
	Value string
}

// FormatMetrics renders the headline statistics for reports.
// Percentages use 2 decimals, ratios 6.
func FormatMetrics(m Metrics) []MetricLine {
	pct := func(v float64) string { return fmt.Sprintf("%.2f%%", v*100) }
	ratio := func(v float64) string { return fmt.Sprintf("%.6f", v) }
	return []MetricLine{
		{Label: "Cumulative Return (Adj)", Value: ratio(m.Strategy.CumulativeReturn)},
		{Label: "Annual Return (Adj)", Value: pct(m.Strategy.AnnualReturn)},
		{Label: "Annual Volatility (Adj)", Value: pct(m.Strategy.AnnualVolatility)},
		{Label: "Cumulative Return (Excess)", Value: ratio(m.Excess.CumulativeReturn)},
		{Label: "Annual Return (Excess)", Value: pct(m.Excess.AnnualReturn)},
		{Label: "Annual Volatility (Excess)", Value: pct(m.Excess.AnnualVolatility)},
		{Label: "IR1 (Excess)", Value: ratio(m.Excess.InformationRatioV1)},
		{Label: "IR2 (Excess)", Value: ratio(m.Excess.InformationRatioV2)},
		{Label: "Win Rate (Excess)", Value: pct(m.Excess.WinProbability)},
		{Label: "Max Drawdown (Excess)", Value: pct(m.Excess.MaxDrawdown)},
		{Label: "P/L Ratio (Excess)", Value: ratio(m.Excess.ProfitLossRatio)},
		{Label: "Avg #Holdings", Value: fmt.Sprintf("%.2f", m.AvgHoldings)},
		{Label: "Avg Turnover", Value: pct(m.AvgTurnover)},
	}
}

// ToJSON exports metrics to JSON
func (m Metrics) ToJSON() string {
	data, _ := json.Marshal(m)
	return string(data)
}

func dropNaN(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}
