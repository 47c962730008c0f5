package selection

import (
	"io"
	"math"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/equity-backtest/internal/models"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestQuantile(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		q      float64
		want   float64
	}{
		{name: "median odd", values: []float64{3, 1, 2}, q: 0.5, want: 2},
		{name: "median even", values: []float64{4, 1, 3, 2}, q: 0.5, want: 2.5},
		{name: "70th percentile", values: []float64{1, 2, 3, 4, 5}, q: 0.7, want: 3.8},
		{name: "min", values: []float64{5, 2, 9}, q: 0, want: 2},
		{name: "max", values: []float64{5, 2, 9}, q: 1, want: 9},
		{name: "ignores NaN", values: []float64{math.NaN(), 1, 3}, q: 0.5, want: 2},
		{name: "single", values: []float64{7}, q: 0.8, want: 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Quantile(tt.values, tt.q), 1e-12)
		})
	}

	assert.True(t, math.IsNaN(Quantile(nil, 0.5)))
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	bad := []Config{
		{Rules: []Rule{{Factor: "ep", Op: OpGTValue}}},
		{UniverseFactor: "u"},
		{UniverseFactor: "u", Rules: []Rule{{Op: OpGTValue}}},
		{UniverseFactor: "u", Rules: []Rule{{Factor: "ep", Op: OpGTEQuantile, Quantile: 1.5}}},
		{UniverseFactor: "u", Rules: []Rule{{Factor: "ep", Op: "lt"}}},
	}
	for i, cfg := range bad {
		assert.Error(t, cfg.Validate(), "case %d", i)
	}
}

func TestSelectorApply(t *testing.T) {
	d0 := time.Date(2022, time.March, 1, 0, 0, 0, 0, time.UTC)
	d1 := d0.AddDate(0, 0, 1)
	cfg := Config{
		UniverseFactor: "pool",
		Threshold:      1.5,
		Rules: []Rule{
			{Factor: "ep", Op: OpGTEQuantile, Quantile: 0.5, Weight: 1},
			{Factor: "div", Op: OpGTValue, Value: 0, Weight: 1},
		},
	}
	row := func(d time.Time, code int64, pool, ep, div float64) models.SecurityDay {
		return models.SecurityDay{
			TradingDay: d,
			SecuCode:   code,
			Select:     1,
			Score:      99,
			Factors:    map[string]float64{"pool": pool, "ep": ep, "div": div},
		}
	}
	panel := models.Panel{
		row(d0, 1, 1, 0.10, 0.02),
		row(d0, 2, 1, 0.05, 0.01),
		row(d0, 3, 1, 0.20, 0),
		row(d0, 4, 0, 0.90, 0.05), // outside the universe
		row(d1, 1, 1, 0.01, 0.02),
		row(d1, 2, 1, 0.30, 0.03),
	}

	selector, err := NewSelector(cfg, quietLogger())
	require.NoError(t, err)
	out, err := selector.Apply(panel)
	require.NoError(t, err)
	require.Len(t, out, len(panel))

	got := map[int64][2]float64{}
	for _, r := range out {
		if r.TradingDay.Equal(d0) {
			got[r.SecuCode] = [2]float64{r.Score, float64(r.Select)}
		}
	}
	// day 0 universe ep = {0.10, 0.05, 0.20}, median 0.10
	assert.Equal(t, [2]float64{2, 1}, got[1])
	assert.Equal(t, [2]float64{1, 0}, got[2])
	assert.Equal(t, [2]float64{1, 0}, got[3])
	assert.Equal(t, [2]float64{0, 0}, got[4])

	for _, r := range out {
		if r.TradingDay.Equal(d1) && r.SecuCode == 2 {
			assert.Equal(t, 1, r.Select)
		}
		if r.TradingDay.Equal(d1) && r.SecuCode == 1 {
			assert.Equal(t, 0, r.Select)
		}
	}

	// the input is untouched
	assert.Equal(t, 99.0, panel[0].Score)
}

func TestSelectorMissingFactor(t *testing.T) {
	selector, err := NewSelector(DefaultConfig(), quietLogger())
	require.NoError(t, err)

	panel := models.Panel{{
		TradingDay: time.Date(2022, time.March, 1, 0, 0, 0, 0, time.UTC),
		SecuCode:   1,
		Factors:    map[string]float64{"lowbeta_pool": 1, "ep": 0.1},
	}}
	_, err = selector.Apply(panel)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrMissingField)
}

func TestSelectorEmptyPanel(t *testing.T) {
	selector, err := NewSelector(DefaultConfig(), quietLogger())
	require.NoError(t, err)
	_, err = selector.Apply(nil)
	assert.ErrorIs(t, err, models.ErrEmptyPanel)
}
