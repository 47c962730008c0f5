package datasource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/yourusername/equity-backtest/internal/models"
)

// SourceHTTP is the name reported by the HTTP benchmark source
const SourceHTTP = "http"

// DefaultBenchmarkCacheTTL bounds how long a downloaded series is reused
const DefaultBenchmarkCacheTTL = 10 * time.Minute

// HTTPBenchmarkSource downloads a benchmark CSV over HTTP. Downloads are
// cached per URL and column so repeated runs in one process fetch once.
type HTTPBenchmarkSource struct {
	client *RateLimitedHTTPClient
	url    string
	column string
	cache  *cache.Cache
}

// NewHTTPBenchmarkSource creates an HTTP benchmark source. A nil cache
// disables caching.
func NewHTTPBenchmarkSource(client *RateLimitedHTTPClient, url, column string, c *cache.Cache) *HTTPBenchmarkSource {
	return &HTTPBenchmarkSource{client: client, url: url, column: column, cache: c}
}

// NewBenchmarkCache creates the download cache shared by HTTP sources
func NewBenchmarkCache(ttl time.Duration) *cache.Cache {
	if ttl <= 0 {
		ttl = DefaultBenchmarkCacheTTL
	}
	return cache.New(ttl, 2*ttl)
}

// Name returns the name of the data source
func (s *HTTPBenchmarkSource) Name() string { return SourceHTTP }

// Location returns the download URL
func (s *HTTPBenchmarkSource) Location() string { return s.url }

// LoadBenchmark downloads and parses the series
func (s *HTTPBenchmarkSource) LoadBenchmark(ctx context.Context) (models.BenchmarkSeries, error) {
	key := s.url + "#" + s.column
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			return append(models.BenchmarkSeries(nil), cached.(models.BenchmarkSeries)...), nil
		}
	}

	resp, err := s.client.Get(ctx, s.url)
	if err != nil {
		return nil, NewDataSourceError(SourceHTTP, ErrCodeNetworkError, "benchmark download failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, NewDataSourceError(SourceHTTP, ErrCodeNotFound, s.url, models.ErrNotFound)
	case resp.StatusCode >= 500:
		return nil, NewDataSourceError(SourceHTTP, ErrCodeServerError, fmt.Sprintf("status %d", resp.StatusCode), ErrServerError)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, NewDataSourceError(SourceHTTP, ErrCodeInvalidData, fmt.Sprintf("status %d: %s", resp.StatusCode, body), ErrInvalidData)
	}

	series, err := ReadBenchmarkCSV(resp.Body, s.column)
	if err != nil {
		return nil, NewDataSourceError(SourceHTTP, ErrCodeInvalidData, "benchmark body rejected", err)
	}

	if s.cache != nil {
		s.cache.Set(key, series, cache.DefaultExpiration)
	}
	return append(models.BenchmarkSeries(nil), series...), nil
}
