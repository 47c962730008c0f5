package repository

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/equity-backtest/internal/database"
	"github.com/yourusername/equity-backtest/internal/models"
)

func TestNewRepositoriesRequiresDB(t *testing.T) {
	repos, err := NewRepositories(nil)
	assert.Error(t, err)
	assert.Nil(t, repos)
}

func TestNullableFloat(t *testing.T) {
	assert.Nil(t, nullableFloat(math.NaN()))
	v := nullableFloat(0.25)
	require.NotNil(t, v)
	assert.Equal(t, 0.25, *v)
}

// testDay returns a date far in the future so test rows never collide with real data
func testDay(offset int) time.Time {
	return time.Date(2099, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func cleanup(t *testing.T, db *database.DB) {
	t.Helper()
	ctx := context.Background()
	if _, err := db.Exec(ctx, `DELETE FROM security_days WHERE trading_day >= $1`, testDay(0)); err != nil {
		t.Fatalf("failed to clean security_days: %v", err)
	}
	if _, err := db.Exec(ctx, `DELETE FROM benchmark_returns WHERE benchmark = 'test_bench'`); err != nil {
		t.Fatalf("failed to clean benchmark_returns: %v", err)
	}
}

func TestPanelRepositoryRoundTrip(t *testing.T) {
	db := database.SetupTestDB(t)
	defer database.TeardownTestDB(t, db)
	cleanup(t, db)
	defer cleanup(t, db)

	repos, err := NewRepositories(db)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	flags := models.TradeFlags{TradeStatus: 1, SwingStatus: 1, StopTradeStatus3: 1, IpoStatus: 1}
	panel := models.Panel{
		{TradingDay: testDay(0), SecuCode: 1, Flags: flags, Select: 1, NextRet: 0.01, Factors: map[string]float64{"mv": 10}},
		{TradingDay: testDay(0), SecuCode: 2, Flags: flags, Select: 0, NextRet: math.NaN()},
		{TradingDay: testDay(1), SecuCode: 1, Flags: flags, Select: 1, NextRet: -0.02},
	}
	require.NoError(t, repos.Panel.InsertBatch(ctx, panel))

	panel[0].Weight = 1.0
	panel[2].Weight = 1.0
	require.NoError(t, repos.Panel.UpdateWeights(ctx, panel))

	got, err := repos.Panel.GetByDateRange(ctx, testDay(0), testDay(1))
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, int64(1), got[0].SecuCode)
	assert.Equal(t, 1.0, got[0].Weight)
	assert.Equal(t, 10.0, got[0].Factors["mv"])
	assert.True(t, math.IsNaN(got[1].NextRet))
	assert.True(t, got[2].TradingDay.Equal(testDay(1)))
}

func TestBenchmarkRepositoryUpsert(t *testing.T) {
	db := database.SetupTestDB(t)
	defer database.TeardownTestDB(t, db)
	cleanup(t, db)
	defer cleanup(t, db)

	repos, err := NewRepositories(db)
	require.NoError(t, err)
	ctx := context.Background()

	series := models.BenchmarkSeries{{Day: testDay(0), Return: 0.001}, {Day: testDay(1), Return: -0.002}}
	require.NoError(t, repos.Benchmark.InsertBatch(ctx, "test_bench", series))

	series[1].Return = 0.003
	require.NoError(t, repos.Benchmark.InsertBatch(ctx, "test_bench", series))

	got, err := repos.Benchmark.GetByDateRange(ctx, "test_bench", testDay(0), testDay(5))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 0.003, got[1].Return)
}

func TestBacktestRunRepositorySave(t *testing.T) {
	db := database.SetupTestDB(t)
	defer database.TeardownTestDB(t, db)

	repos, err := NewRepositories(db)
	require.NoError(t, err)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	bench := 0.001
	run := &models.BacktestRun{
		ID:               uuid.New(),
		VersionTag:       "repo_test",
		RunDate:          now,
		StartDate:        testDay(0),
		EndDate:          testDay(1),
		TradingDays:      2,
		CumulativeReturn: 0.01,
		Metrics:          json.RawMessage(`{"cum_ret":0.01}`),
		Yearly:           json.RawMessage(`[]`),
		CreatedAt:        now,
	}
	daily := []models.DailyResult{
		{TradingDay: testDay(0), StrategyReturn: 0.01, StrategyValue: 1.01, NHoldings: 1, BenchmarkReturn: &bench},
		{TradingDay: testDay(1), StrategyReturn: 0, StrategyValue: 1.01},
	}
	require.NoError(t, repos.BacktestRun.SaveRun(ctx, run, daily))
	defer func() {
		_, _ = db.Exec(ctx, `DELETE FROM backtest_runs WHERE id = $1`, run.ID)
	}()

	got, err := repos.BacktestRun.GetByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "repo_test", got.VersionTag)
	assert.Equal(t, 2, got.TradingDays)

	rows, err := repos.BacktestRun.GetDaily(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.NotNil(t, rows[0].BenchmarkReturn)
	assert.Equal(t, bench, *rows[0].BenchmarkReturn)
	assert.Nil(t, rows[1].BenchmarkReturn)

	latest, err := repos.BacktestRun.GetLatest(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, latest, 1)

	_, err = repos.BacktestRun.GetByID(ctx, uuid.New())
	assert.True(t, errors.Is(err, models.ErrNotFound))
}
