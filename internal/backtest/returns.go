package backtest

import (
	"math"
	"time"

	"github.com/yourusername/equity-backtest/internal/models"
)

// ReturnEngine turns a weighted panel into daily returns, turnover and equity curves
type ReturnEngine struct {
	feeRate float64
}

// NewReturnEngine creates a return engine charging feeRate per unit of turnover
func NewReturnEngine(feeRate float64) *ReturnEngine {
	return &ReturnEngine{feeRate: feeRate}
}

// Compute builds the per-day table for a panel already filtered to the
// backtest window and sorted by (TradingDay, SecuCode). bench may be nil.
//
// Equity curves cumulate returns additively: value_t = 1 + sum(returns).
func (r *ReturnEngine) Compute(panel models.Panel, bench models.BenchmarkSeries) Timeseries {
	days := panel.Days()
	out := make(Timeseries, 0, len(days))

	var prev map[int64]float64
	value := 1.0
	for _, day := range days {
		records := panel[day.Start:day.End]

		row := models.DailyResult{TradingDay: day.Day}
		current := make(map[int64]float64, len(records))
		for _, rec := range records {
			current[rec.SecuCode] = rec.Weight
			if rec.Weight > 0 {
				row.NHoldings++
			}
			// a missing forward return contributes nothing
			if !isFinite(rec.NextRet) {
				continue
			}
			row.PortfolioReturn += rec.Weight * rec.NextRet
		}
		if prev != nil {
			row.Turnover = Turnover(prev, current)
		}
		row.StrategyReturn = row.PortfolioReturn - r.feeRate*row.Turnover
		value += row.StrategyReturn
		row.StrategyValue = value

		out = append(out, row)
		prev = current
	}

	if len(bench) > 0 {
		attachBenchmark(out, bench)
	}
	return out
}

// Turnover returns half the summed absolute weight change between two
// weight vectors. A security missing from either side counts as weight 0.
func Turnover(prev, current map[int64]float64) float64 {
	total := 0.0
	for code, w := range current {
		total += math.Abs(w - prev[code])
	}
	for code, w := range prev {
		if _, ok := current[code]; !ok {
			total += math.Abs(w)
		}
	}
	return total / 2.0
}

// attachBenchmark fills the benchmark-relative columns. The base curve
// cumulates every benchmark day in the window, including days the panel
// does not cover; only days present on both sides get excess values.
func attachBenchmark(rows Timeseries, bench models.BenchmarkSeries) {
	type benchDay struct {
		ret  float64
		base float64
	}
	byDay := make(map[time.Time]benchDay, len(bench))
	base := 1.0
	for _, p := range bench {
		if !isFinite(p.Return) {
			continue
		}
		base += p.Return
		byDay[models.DateOf(p.Day)] = benchDay{ret: p.Return, base: base}
	}

	for i := range rows {
		b, ok := byDay[rows[i].TradingDay]
		if !ok {
			continue
		}
		ret := b.ret
		baseValue := b.base
		excess := rows[i].StrategyReturn - ret
		excessValue := rows[i].StrategyValue - baseValue

		rows[i].BenchmarkReturn = &ret
		rows[i].ExcessReturn = &excess
		rows[i].BaseValue = &baseValue
		rows[i].ExcessValue = &excessValue
		if baseValue != 0 {
			rel := excessValue / baseValue
			rows[i].ExcessValueRelative = &rel
		}
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
