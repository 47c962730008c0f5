package models

import (
	"sort"
	"time"
)

// BenchmarkPoint is one daily benchmark return
type BenchmarkPoint struct {
	Day    time.Time `db:"trading_day" json:"trading_day"`
	Return float64   `db:"pct_change" json:"return"`
}

// BenchmarkSeries is a date-ordered benchmark return series
type BenchmarkSeries []BenchmarkPoint

// Sort orders the series by day in place
func (b BenchmarkSeries) Sort() {
	sort.SliceStable(b, func(i, j int) bool {
		return DateOf(b[i].Day).Before(DateOf(b[j].Day))
	})
}

// Window returns the points whose day falls in [start, end], compared by date only
func (b BenchmarkSeries) Window(start, end time.Time) BenchmarkSeries {
	from, to := DateOf(start), DateOf(end)
	out := make(BenchmarkSeries, 0, len(b))
	for _, p := range b {
		day := DateOf(p.Day)
		if day.Before(from) || day.After(to) {
			continue
		}
		out = append(out, p)
	}
	return out
}
