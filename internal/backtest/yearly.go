package backtest

import (
	"bytes"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/yourusername/equity-backtest/internal/models"
)

const yearlyPlaces = 4

// YearlyRow holds one calendar year of summed daily returns.
// Benchmark and Excess are nil when no benchmark observation falls in the year.
type YearlyRow struct {
	Year      int      `json:"year"`
	Strategy  *float64 `json:"strategy"`
	Benchmark *float64 `json:"benchmark,omitempty"`
	Excess    *float64 `json:"excess,omitempty"`
}

// YearlyPerformance is the per-year breakdown ordered by year
type YearlyPerformance []YearlyRow

// CalculateYearlyPerformance sums the fee-adjusted strategy returns and the
// benchmark returns per calendar year, rounded half-even to 4 places.
// The excess column is the difference of the two rounded sums. Non-finite
// returns are left out of the sums.
func CalculateYearlyPerformance(ts Timeseries, bench models.BenchmarkSeries) YearlyPerformance {
	strategy := make(map[int]decimal.Decimal)
	benchmark := make(map[int]decimal.Decimal)
	years := make(map[int]struct{})

	for _, row := range ts {
		year := row.TradingDay.Year()
		years[year] = struct{}{}
		if !isFinite(row.StrategyReturn) {
			continue
		}
		strategy[year] = strategy[year].Add(decimal.NewFromFloat(row.StrategyReturn))
	}
	for _, p := range bench {
		if !isFinite(p.Return) {
			continue
		}
		year := p.Day.Year()
		years[year] = struct{}{}
		benchmark[year] = benchmark[year].Add(decimal.NewFromFloat(p.Return))
	}

	ordered := make([]int, 0, len(years))
	for year := range years {
		ordered = append(ordered, year)
	}
	sort.Ints(ordered)

	out := make(YearlyPerformance, 0, len(ordered))
	for _, year := range ordered {
		row := YearlyRow{Year: year}
		s, hasStrategy := strategy[year]
		if hasStrategy {
			row.Strategy = roundedFloat(s)
		}
		b, hasBench := benchmark[year]
		if hasBench {
			row.Benchmark = roundedFloat(b)
		}
		if hasStrategy && hasBench {
			row.Excess = roundedFloat(s.RoundBank(yearlyPlaces).Sub(b.RoundBank(yearlyPlaces)))
		}
		out = append(out, row)
	}
	return out
}

// ToCSV exports the yearly table to a CSV string
func (y YearlyPerformance) ToCSV() string {
	var buf bytes.Buffer
	buf.WriteString("year,strategy,benchmark,excess\n")
	for _, row := range y {
		buf.WriteString(strconv.Itoa(row.Year))
		buf.WriteString(",")
		buf.WriteString(formatYearly(row.Strategy))
		buf.WriteString(",")
		buf.WriteString(formatYearly(row.Benchmark))
		buf.WriteString(",")
		buf.WriteString(formatYearly(row.Excess))
		buf.WriteString("\n")
	}
	return buf.String()
}

func roundedFloat(d decimal.Decimal) *float64 {
	v, _ := d.RoundBank(yearlyPlaces).Float64()
	return &v
}

func formatYearly(v *float64) string {
	if v == nil {
		return ""
	}
	return strconvFormat(*v, yearlyPlaces)
}
