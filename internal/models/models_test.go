package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2021, time.January, d, 0, 0, 0, 0, time.UTC)
}

func TestTradeFlagsTradable(t *testing.T) {
	ok := TradeFlags{TradeStatus: 1, SwingStatus: 1, StopTradeStatus3: 1, StopTradeStatus5: 0, IpoStatus: 1}
	tests := []struct {
		name   string
		mutate func(*TradeFlags)
		want   bool
	}{
		{name: "all clear", mutate: func(*TradeFlags) {}, want: true},
		{name: "suspended", mutate: func(f *TradeFlags) { f.TradeStatus = 0 }, want: false},
		{name: "limit move", mutate: func(f *TradeFlags) { f.SwingStatus = 0 }, want: false},
		{name: "stop3", mutate: func(f *TradeFlags) { f.StopTradeStatus3 = 0 }, want: false},
		{name: "stop5 set", mutate: func(f *TradeFlags) { f.StopTradeStatus5 = 1 }, want: false},
		{name: "ipo window", mutate: func(f *TradeFlags) { f.IpoStatus = 0 }, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := ok
			tt.mutate(&f)
			assert.Equal(t, tt.want, f.Tradable())
		})
	}
}

func TestPanelSortAndDays(t *testing.T) {
	p := Panel{
		{TradingDay: day(5), SecuCode: 2},
		{TradingDay: day(4).Add(15 * time.Hour), SecuCode: 3},
		{TradingDay: day(4), SecuCode: 1},
		{TradingDay: day(5), SecuCode: 1},
	}
	p.Sort()
	assert.Equal(t, []int64{1, 3, 1, 2}, []int64{p[0].SecuCode, p[1].SecuCode, p[2].SecuCode, p[3].SecuCode})

	days := p.Days()
	require.Len(t, days, 2)
	assert.Equal(t, day(4), days[0].Day)
	assert.Equal(t, 2, days[0].Len())
	assert.Equal(t, DayRange{Day: day(5), Start: 2, End: 4}, days[1])

	assert.Nil(t, Panel{}.Days())
}

func TestPanelWindowIsDateOnly(t *testing.T) {
	p := Panel{
		{TradingDay: day(3)},
		{TradingDay: day(4).Add(23 * time.Hour)},
		{TradingDay: day(6)},
		{TradingDay: day(7)},
	}
	got := p.Window(day(4).Add(12*time.Hour), day(6))
	require.Len(t, got, 2)
	assert.Equal(t, day(6), got[1].TradingDay)
}

func TestPanelCloneCopiesFactors(t *testing.T) {
	p := Panel{{SecuCode: 1, Factors: map[string]float64{"ep": 1}}}
	c := p.Clone()
	c[0].Factors["ep"] = 2
	c[0].Weight = 1
	assert.Equal(t, 1.0, p[0].Factors["ep"])
	assert.Equal(t, 0.0, p[0].Weight)
}

func TestBenchmarkSeriesWindow(t *testing.T) {
	b := BenchmarkSeries{{Day: day(6), Return: 0.3}, {Day: day(4), Return: 0.1}, {Day: day(5), Return: 0.2}}
	b.Sort()
	assert.Equal(t, 0.1, b[0].Return)
	w := b.Window(day(5), day(9))
	require.Len(t, w, 2)
	assert.Equal(t, 0.2, w[0].Return)
}

func TestRequireColumns(t *testing.T) {
	have := NewColumnSet(ColTradingDay, ColSecuCode)
	assert.NoError(t, RequireColumns(have, "test", ColTradingDay))

	err := RequireColumns(have, "backtest", ColNextRet, ColWeights)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingField))
	assert.Contains(t, err.Error(), "next_ret, weights")
	assert.Equal(t, []string{ColSecuCode, ColTradingDay}, have.Names())
}
