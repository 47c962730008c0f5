package weighting

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/equity-backtest/internal/models"
)

const eps = 1e-12

var (
	tradable  = models.TradeFlags{TradeStatus: 1, SwingStatus: 1, StopTradeStatus3: 1, StopTradeStatus5: 0, IpoStatus: 1}
	suspended = models.TradeFlags{TradeStatus: 0, SwingStatus: 1, StopTradeStatus3: 1, StopTradeStatus5: 0, IpoStatus: 1}
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func day(n int) time.Time {
	return time.Date(2021, time.January, 4, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func rec(d int, code int64, flags models.TradeFlags, sel int) models.SecurityDay {
	return models.SecurityDay{TradingDay: day(d), SecuCode: code, Flags: flags, Select: sel}
}

func weightOf(t *testing.T, panel models.Panel, d int, code int64) float64 {
	t.Helper()
	for _, r := range panel {
		if r.SecuCode == code && r.TradingDay.Equal(day(d)) {
			return r.Weight
		}
	}
	t.Fatalf("no record for code %d on day %d", code, d)
	return 0
}

func daySums(panel models.Panel) map[time.Time]float64 {
	sums := map[time.Time]float64{}
	for _, r := range panel {
		sums[models.DateOf(r.TradingDay)] += r.Weight
	}
	return sums
}

func TestTradableFlags(t *testing.T) {
	tests := []struct {
		name  string
		flags models.TradeFlags
		want  bool
	}{
		{name: "all clear", flags: tradable, want: true},
		{name: "trade halted", flags: suspended, want: false},
		{name: "price limit", flags: models.TradeFlags{TradeStatus: 1, SwingStatus: 0, StopTradeStatus3: 1, IpoStatus: 1}, want: false},
		{name: "stop trade 3", flags: models.TradeFlags{TradeStatus: 1, SwingStatus: 1, StopTradeStatus3: 0, IpoStatus: 1}, want: false},
		{name: "stop trade 5 set", flags: models.TradeFlags{TradeStatus: 1, SwingStatus: 1, StopTradeStatus3: 1, StopTradeStatus5: 1, IpoStatus: 1}, want: false},
		{name: "ipo lockup", flags: models.TradeFlags{TradeStatus: 1, SwingStatus: 1, StopTradeStatus3: 1, IpoStatus: 0}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.flags.Tradable())
		})
	}
}

func TestAssignTwoSecurityCarry(t *testing.T) {
	panel := models.Panel{
		rec(0, 1, tradable, 1),
		rec(0, 2, tradable, 1),
		rec(1, 1, suspended, 1),
		rec(1, 2, tradable, 1),
	}

	out, err := NewEngine(quietLogger()).Assign(panel)
	require.NoError(t, err)

	assert.Equal(t, 0.5, weightOf(t, out, 0, 1))
	assert.Equal(t, 0.5, weightOf(t, out, 0, 2))
	assert.Equal(t, 0.5, weightOf(t, out, 1, 1))
	// the valid name receives only what the carried weight leaves over
	assert.Equal(t, 0.5, weightOf(t, out, 1, 2))
	assert.Equal(t, 1.0, daySums(out)[day(1)])

	for _, r := range out {
		if r.TradingDay.Equal(day(1)) && r.SecuCode == 1 {
			assert.Equal(t, 0.5, r.LockedWeight)
		} else {
			assert.Equal(t, 0.0, r.LockedWeight)
		}
		assert.Equal(t, r.Weight, r.PrevWeight)
	}
}

func TestAssignFirstDayEqualWeight(t *testing.T) {
	panel := models.Panel{
		rec(0, 3, tradable, 1),
		rec(0, 1, tradable, 1),
		rec(0, 2, tradable, 0),
		rec(0, 4, suspended, 1),
	}
	out, err := NewEngine(quietLogger()).Assign(panel)
	require.NoError(t, err)

	assert.InDelta(t, 0.5, weightOf(t, out, 0, 1), eps)
	assert.Equal(t, 0.0, weightOf(t, out, 0, 2))
	assert.InDelta(t, 0.5, weightOf(t, out, 0, 3), eps)
	assert.Equal(t, 0.0, weightOf(t, out, 0, 4))
	assert.InDelta(t, 1.0, daySums(out)[day(0)], eps)
}

func TestAssignFirstDayNoValid(t *testing.T) {
	panel := models.Panel{
		rec(0, 1, suspended, 1),
		rec(0, 2, tradable, 0),
		rec(1, 1, tradable, 1),
	}
	out, err := NewEngine(quietLogger()).Assign(panel)
	require.NoError(t, err)

	assert.Equal(t, 0.0, weightOf(t, out, 0, 1))
	assert.Equal(t, 0.0, weightOf(t, out, 0, 2))
	assert.Equal(t, 1.0, weightOf(t, out, 1, 1))
}

func TestAssignRemainderDroppedWithoutValid(t *testing.T) {
	panel := models.Panel{
		rec(0, 1, tradable, 1),
		rec(0, 2, tradable, 1),
		rec(0, 3, tradable, 1),
		rec(0, 4, tradable, 1),
		// day 1: one holding locked, the rest tradable but deselected
		rec(1, 1, suspended, 1),
		rec(1, 2, tradable, 0),
		rec(1, 3, tradable, 0),
		rec(1, 4, tradable, 0),
		// day 2: the locked holding stays locked, a new valid name appears
		rec(2, 1, suspended, 0),
		rec(2, 5, tradable, 1),
	}
	out, err := NewEngine(quietLogger()).Assign(panel)
	require.NoError(t, err)

	sums := daySums(out)
	assert.InDelta(t, 1.0, sums[day(0)], eps)
	assert.InDelta(t, 0.25, sums[day(1)], eps, "unallocated budget is not reinvested")
	assert.Equal(t, 0.25, weightOf(t, out, 1, 1))
	assert.Equal(t, 0.0, weightOf(t, out, 1, 2))

	assert.Equal(t, 0.25, weightOf(t, out, 2, 1))
	assert.InDelta(t, 0.75, weightOf(t, out, 2, 5), eps)
	assert.InDelta(t, 1.0, sums[day(2)], eps)
}

func TestAssignCarryOnlyForHeldSecurities(t *testing.T) {
	panel := models.Panel{
		rec(0, 1, tradable, 1),
		rec(0, 2, tradable, 0),
		rec(1, 1, tradable, 1),
		rec(1, 2, suspended, 1),
	}
	out, err := NewEngine(quietLogger()).Assign(panel)
	require.NoError(t, err)

	assert.Equal(t, 0.0, weightOf(t, out, 1, 2), "unheld suspended name gets nothing")
	assert.Equal(t, 1.0, weightOf(t, out, 1, 1))
}

func TestAssignCarryLostWhenSecurityDisappears(t *testing.T) {
	panel := models.Panel{
		rec(0, 1, tradable, 1),
		rec(0, 2, tradable, 1),
		rec(1, 2, tradable, 1),
		rec(2, 1, suspended, 1),
		rec(2, 2, tradable, 1),
	}
	out, err := NewEngine(quietLogger()).Assign(panel)
	require.NoError(t, err)

	assert.Equal(t, 1.0, weightOf(t, out, 1, 2))
	assert.Equal(t, 0.0, weightOf(t, out, 2, 1))
	assert.Equal(t, 1.0, weightOf(t, out, 2, 2))
}

func TestAssignCarryInvariantAndBounds(t *testing.T) {
	panel := models.Panel{}
	flagsByDay := [][]models.TradeFlags{
		{tradable, tradable, tradable, tradable, tradable},
		{suspended, tradable, tradable, suspended, tradable},
		{suspended, suspended, tradable, tradable, tradable},
		{tradable, suspended, suspended, suspended, tradable},
		{suspended, suspended, suspended, suspended, suspended},
		{tradable, tradable, tradable, tradable, tradable},
	}
	selectByDay := [][]int{
		{1, 1, 1, 0, 1},
		{1, 0, 1, 1, 1},
		{0, 1, 1, 1, 0},
		{1, 1, 0, 1, 1},
		{1, 1, 1, 1, 1},
		{0, 0, 1, 1, 0},
	}
	for d := range flagsByDay {
		for i := range flagsByDay[d] {
			panel = append(panel, rec(d, int64(i+1), flagsByDay[d][i], selectByDay[d][i]))
		}
	}

	out, err := NewEngine(quietLogger()).Assign(panel)
	require.NoError(t, err)

	for dayIdx, sum := range daySums(out) {
		assert.LessOrEqual(t, sum, 1.0+1e-9, "weight sum on %s", dayIdx)
	}
	for _, r := range out {
		assert.GreaterOrEqual(t, r.Weight, 0.0)
	}
	for d := 1; d < len(flagsByDay); d++ {
		for i := range flagsByDay[d] {
			code := int64(i + 1)
			prev := weightOf(t, out, d-1, code)
			if !flagsByDay[d][i].Tradable() && prev > 0 {
				assert.Equal(t, prev, weightOf(t, out, d, code), "carry day %d code %d", d, code)
			}
		}
	}
}

func TestAssignDeterministicAcrossInputOrder(t *testing.T) {
	base := models.Panel{
		rec(0, 1, tradable, 1),
		rec(0, 2, tradable, 1),
		rec(0, 3, tradable, 1),
		rec(1, 1, suspended, 1),
		rec(1, 2, tradable, 1),
		rec(1, 3, suspended, 0),
		rec(2, 1, tradable, 1),
		rec(2, 2, suspended, 1),
		rec(2, 3, tradable, 1),
	}
	reversed := make(models.Panel, len(base))
	for i := range base {
		reversed[len(base)-1-i] = base[i]
	}

	a, err := NewEngine(quietLogger()).Assign(base)
	require.NoError(t, err)
	b, err := NewEngine(quietLogger()).Assign(reversed)
	require.NoError(t, err)

	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].SecuCode, b[i].SecuCode)
		assert.True(t, a[i].TradingDay.Equal(b[i].TradingDay))
		assert.Equal(t, a[i].Weight, b[i].Weight)
	}
}

func TestAssignDoesNotMutateInput(t *testing.T) {
	panel := models.Panel{rec(0, 2, tradable, 1), rec(0, 1, tradable, 1)}
	_, err := NewEngine(quietLogger()).Assign(panel)
	require.NoError(t, err)
	assert.Equal(t, int64(2), panel[0].SecuCode)
	assert.Equal(t, 0.0, panel[0].Weight)
}

func TestAssignSummary(t *testing.T) {
	panel := models.Panel{
		rec(0, 1, tradable, 1),
		rec(0, 2, tradable, 1),
		rec(1, 1, suspended, 1),
		rec(1, 2, tradable, 1),
	}
	engine := NewEngine(quietLogger())
	var seen int
	engine.OnDay(func(DaySummary) { seen++ })

	_, err := engine.Assign(panel)
	require.NoError(t, err)

	summary := engine.Summary()
	require.Len(t, summary, 2)
	assert.Equal(t, 2, seen)
	assert.Equal(t, 2, summary[0].Valid)
	assert.Equal(t, 1, summary[1].Locked)
	assert.Equal(t, 0.5, summary[1].LockedTotal)
	assert.InDelta(t, 1.0, summary[1].Invested, eps)
}

func TestAssignValidation(t *testing.T) {
	t.Run("empty panel", func(t *testing.T) {
		_, err := NewEngine(quietLogger()).Assign(nil)
		assert.ErrorIs(t, err, models.ErrEmptyPanel)
	})

	t.Run("missing fields reported together", func(t *testing.T) {
		panel := models.Panel{
			{SecuCode: 1, Select: 1},
			{TradingDay: day(0), SecuCode: -1, Select: 2},
		}
		_, err := NewEngine(quietLogger()).Assign(panel)
		require.Error(t, err)
		assert.True(t, errors.Is(err, models.ErrMissingField))

		var verr *models.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.ElementsMatch(t, []string{models.ColTradingDay, models.ColSecuCode, models.ColSelect}, verr.Missing)
	})

	t.Run("zero code is a security", func(t *testing.T) {
		panel := models.Panel{rec(0, 0, tradable, 1), rec(0, 7, tradable, 1)}
		out, err := NewEngine(quietLogger()).Assign(panel)
		require.NoError(t, err)
		assert.InDelta(t, 0.5, weightOf(t, out, 0, 0), eps)
		assert.InDelta(t, 0.5, weightOf(t, out, 0, 7), eps)
	})

	t.Run("duplicate code on a day", func(t *testing.T) {
		panel := models.Panel{rec(0, 1, tradable, 1), rec(0, 1, tradable, 1)}
		_, err := NewEngine(quietLogger()).Assign(panel)
		assert.Error(t, err)
	})
}
