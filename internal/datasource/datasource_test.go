package datasource

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/equity-backtest/internal/config"
	"github.com/yourusername/equity-backtest/internal/models"
)

const panelFixture = "\ufeffTradingDay,SecuCode,TradeStatus,SwingStatus,StopTradeStatus3,StopTradeStatus5,IpoStatus,select,next_ret,ep,name\n" +
	"2021-01-05,2,1,1,1,0,1,1,0.02,0.5,beta\n" +
	"2021-01-04,1,1.0,1,1,0,1,0,,0.1,alpha\n"

func TestReadPanelCSV(t *testing.T) {
	panel, columns, err := ReadPanelCSV(strings.NewReader(panelFixture))
	require.NoError(t, err)
	require.Len(t, panel, 2)

	assert.True(t, columns[models.ColTradingDay])
	assert.True(t, columns["ep"])

	first := panel[0]
	assert.Equal(t, time.Date(2021, 1, 5, 0, 0, 0, 0, time.UTC), first.TradingDay)
	assert.Equal(t, int64(2), first.SecuCode)
	assert.True(t, first.Valid())
	assert.Equal(t, 0.02, first.NextRet)
	assert.Equal(t, 0.5, first.Factors["ep"])
	_, hasName := first.Factors["name"]
	assert.False(t, hasName, "non-numeric columns are not factors")

	second := panel[1]
	assert.Equal(t, 1, second.Flags.TradeStatus)
	assert.True(t, math.IsNaN(second.NextRet))
}

func TestReadPanelCSVErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "empty", input: "", wantErr: models.ErrEmptyPanel},
		{name: "missing columns", input: "TradingDay,next_ret\n2021-01-04,0.1\n", wantErr: models.ErrMissingField},
		{name: "bad date", input: "TradingDay,SecuCode\n04/01/2021,1\n", wantErr: models.ErrInvalidDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ReadPanelCSV(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestParseDateLayouts(t *testing.T) {
	want := time.Date(2021, 3, 9, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2021-03-09", "2021-03-09 15:00:00", "2021-03-09T09:30:00Z", "2021/03/09", "20210309"} {
		got, err := ParseDate(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestWritePanelRoundTrip(t *testing.T) {
	panel, _, err := ReadPanelCSV(strings.NewReader(panelFixture))
	require.NoError(t, err)
	panel[0].Weight = 1.0

	path := filepath.Join(t.TempDir(), "out", "weights.csv")
	require.NoError(t, WritePanelFile(path, panel))

	src := NewCSVPanelSource(path)
	back, columns, err := src.LoadPanel(context.Background())
	require.NoError(t, err)
	require.Len(t, back, 2)
	assert.True(t, columns[models.ColWeights])
	assert.Equal(t, 1.0, back[0].Weight)
	assert.Equal(t, 0.5, back[0].Factors["ep"])
	assert.True(t, math.IsNaN(back[1].NextRet))
}

func TestReadBenchmarkCSV(t *testing.T) {
	input := "TradingDay,close,pct\n2021-01-05,10,0.02\n2021-01-04,9,-0.01\n2021-01-06,11,\n"
	series, err := ReadBenchmarkCSV(strings.NewReader(input), "pct")
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, -0.01, series[0].Return)
	assert.Equal(t, 0.02, series[1].Return)

	_, err = ReadBenchmarkCSV(strings.NewReader(input), "next_ret")
	assert.True(t, errors.Is(err, models.ErrMissingField))
}

func TestReadBenchmarkCSVSkipsNonFinite(t *testing.T) {
	input := "TradingDay,next_ret\n2021-01-04,0.01\n2021-01-05,NaN\n2021-01-06,+Inf\n2021-01-07,-inf\n"
	series, err := ReadBenchmarkCSV(strings.NewReader(input), "")
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, 0.01, series[0].Return)
}

func TestCSVBenchmarkSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.csv")
	require.NoError(t, os.WriteFile(path, []byte("TradingDay,next_ret\n2021-01-04,0.001\n"), 0o644))

	src := NewCSVBenchmarkSource(path, "")
	series, err := src.LoadBenchmark(context.Background())
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, SourceCSV, src.Name())
	assert.Equal(t, path, src.Location())
}

func testClient() *RateLimitedHTTPClient {
	cfg := DefaultHTTPClientConfig()
	cfg.MaxRetries = 1
	cfg.RetryWaitMin = time.Millisecond
	cfg.RetryWaitMax = 2 * time.Millisecond
	cfg.RateLimit = 1000
	return NewRateLimitedHTTPClient(cfg, nil)
}

func TestHTTPBenchmarkSourceCaches(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte("TradingDay,next_ret\n2021-01-04,0.001\n2021-01-05,0.002\n"))
	}))
	defer srv.Close()

	src := NewHTTPBenchmarkSource(testClient(), srv.URL, "next_ret", NewBenchmarkCache(time.Minute))
	for i := 0; i < 2; i++ {
		series, err := src.LoadBenchmark(context.Background())
		require.NoError(t, err)
		require.Len(t, series, 2)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestHTTPBenchmarkSourceRetriesServerErrors(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("TradingDay,next_ret\n2021-01-04,0.001\n"))
	}))
	defer srv.Close()

	src := NewHTTPBenchmarkSource(testClient(), srv.URL, "next_ret", nil)
	series, err := src.LoadBenchmark(context.Background())
	require.NoError(t, err)
	assert.Len(t, series, 1)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestHTTPBenchmarkSourceNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	src := NewHTTPBenchmarkSource(testClient(), srv.URL, "next_ret", nil)
	_, err := src.LoadBenchmark(context.Background())
	require.Error(t, err)

	var dsErr DataSourceError
	require.True(t, errors.As(err, &dsErr))
	assert.Equal(t, ErrCodeNotFound, dsErr.Code)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestFactorySources(t *testing.T) {
	cfg := &config.Config{
		Data:     config.DataConfig{Source: config.SourceCSV, PanelPath: "panel.csv"},
		Backtest: config.BacktestConfig{StartDate: "2021-01-01", EndDate: "2021-12-31", BenchmarkReturnColumn: "next_ret"},
	}
	f := NewFactory(cfg, nil, nil)
	defer f.Close()

	panelSrc, err := f.PanelSource()
	require.NoError(t, err)
	assert.Equal(t, "panel.csv", panelSrc.Location())

	benchSrc, err := f.BenchmarkSource()
	require.NoError(t, err)
	assert.Nil(t, benchSrc)

	cfg.Data.BenchmarkURL = "https://example.com/bench.csv"
	benchSrc, err = f.BenchmarkSource()
	require.NoError(t, err)
	assert.Equal(t, SourceHTTP, benchSrc.Name())

	cfg.Data.Source = config.SourcePostgres
	_, err = f.PanelSource()
	assert.Error(t, err)
}
