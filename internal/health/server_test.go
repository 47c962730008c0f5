package health

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

func get(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]any
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHealth(t *testing.T) {
	s := NewServer(Config{ServiceName: "equity-backtest", Version: "1.0.0"})

	rec, body := get(t, s.Handler(), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "1.0.0", body["version"])
}

func TestReadyFollowsLastRun(t *testing.T) {
	s := NewServer(Config{ServiceName: "equity-backtest"})
	h := s.Handler()

	rec, body := get(t, h, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "pending", body["checks"].(map[string]any)["last_run"])

	s.RecordRun(time.Date(2024, 1, 2, 18, 0, 0, 0, time.UTC), nil)
	rec, body = get(t, h, "/ready")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2024-01-02T18:00:00Z", body["last_run"])

	s.RecordRun(time.Now(), errors.New("panel missing"))
	rec, body = get(t, h, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "error: panel missing", body["checks"].(map[string]any)["last_run"])
}

func TestReadyChecksDatabase(t *testing.T) {
	s := NewServer(Config{ServiceName: "equity-backtest", DB: fakePinger{err: errors.New("down")}})
	s.RecordRun(time.Now(), nil)

	rec, body := get(t, s.Handler(), "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, body["checks"].(map[string]any)["database"], "down")
}

func TestMetricsEndpoint(t *testing.T) {
	s := NewServer(Config{ServiceName: "equity-backtest"})
	rec, _ := get(t, s.Handler(), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStartReportsBusyPort(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer ln.Close()
	port := strconv.Itoa(ln.Addr().(*net.TCPAddr).Port)

	s := NewServer(Config{ServiceName: "equity-backtest", Port: port})
	err = s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), port)
	assert.NoError(t, s.Shutdown())
}
