package datasource

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/equity-backtest/internal/config"
	"github.com/yourusername/equity-backtest/internal/logger"
	"github.com/yourusername/equity-backtest/internal/metrics"
	"github.com/yourusername/equity-backtest/internal/models"
	"github.com/yourusername/equity-backtest/internal/repository"
)

// Factory creates panel and benchmark sources based on configuration
type Factory struct {
	logger *logrus.Logger
	config *config.Config
	repos  *repository.Repositories
	cache  *cache.Cache
	client *RateLimitedHTTPClient
}

// NewFactory creates a new data source factory. repos may be nil when the
// configuration never reads from the database.
func NewFactory(cfg *config.Config, logger *logrus.Logger, repos *repository.Repositories) *Factory {
	if logger == nil {
		logger = logrus.New()
	}
	return &Factory{
		logger: logger,
		config: cfg,
		repos:  repos,
		cache:  NewBenchmarkCache(DefaultBenchmarkCacheTTL),
	}
}

// PanelSource creates the configured panel source
func (f *Factory) PanelSource() (PanelSource, error) {
	switch f.config.Data.Source {
	case config.SourceCSV:
		if f.config.Data.PanelPath == "" {
			return nil, fmt.Errorf("data.panel_path is required for csv source")
		}
		return NewCSVPanelSource(f.config.Data.PanelPath), nil

	case config.SourcePostgres:
		if f.repos == nil {
			return nil, fmt.Errorf("postgres source requires a database connection")
		}
		end, err := ParseDate(f.config.Backtest.EndDate)
		if err != nil {
			return nil, fmt.Errorf("backtest.end_date: %w", err)
		}
		return NewPostgresPanelSource(f.repos.Panel, end), nil

	default:
		return nil, fmt.Errorf("unknown data source: %s", f.config.Data.Source)
	}
}

// BenchmarkSource creates the configured benchmark source, or returns nil
// when no benchmark is configured
func (f *Factory) BenchmarkSource() (BenchmarkSource, error) {
	data := f.config.Data
	column := f.config.Backtest.BenchmarkReturnColumn

	switch {
	case data.BenchmarkPath != "":
		return NewCSVBenchmarkSource(data.BenchmarkPath, column), nil

	case data.BenchmarkURL != "":
		return NewHTTPBenchmarkSource(f.httpClient(), data.BenchmarkURL, column, f.cache), nil

	case data.BenchmarkName != "":
		if f.repos == nil {
			return nil, fmt.Errorf("benchmark %q requires a database connection", data.BenchmarkName)
		}
		start, err := ParseDate(f.config.Backtest.StartDate)
		if err != nil {
			return nil, fmt.Errorf("backtest.start_date: %w", err)
		}
		end, err := ParseDate(f.config.Backtest.EndDate)
		if err != nil {
			return nil, fmt.Errorf("backtest.end_date: %w", err)
		}
		return NewPostgresBenchmarkSource(f.repos.Benchmark, data.BenchmarkName, start, end), nil
	}
	return nil, nil
}

// Close releases the HTTP client if one was created
func (f *Factory) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

func (f *Factory) httpClient() *RateLimitedHTTPClient {
	if f.client == nil {
		cfg := DefaultHTTPClientConfig()
		if f.config.Data.BenchmarkTimeoutSeconds > 0 {
			cfg.Timeout = time.Duration(f.config.Data.BenchmarkTimeoutSeconds) * time.Second
		}
		cfg.MaxRetries = f.config.Data.BenchmarkRetryAttempts
		f.client = NewRateLimitedHTTPClient(cfg, f.logger)
	}
	return f.client
}

// LoadPanel loads from src and records the load in logs and metrics
func LoadPanel(ctx context.Context, src PanelSource, dl *logger.DataLogger) (models.Panel, models.ColumnSet, error) {
	started := time.Now()
	panel, columns, err := src.LoadPanel(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load panel from %s: %w", src.Name(), err)
	}
	metrics.RecordPanelLoaded(src.Name(), len(panel))
	metrics.ObserveStageDuration("load_panel", time.Since(started).Seconds())
	if dl != nil {
		dl.LogPanelLoaded(src.Name(), src.Location(), len(panel), columns.Names())
	}
	return panel, columns, nil
}

// LoadBenchmark loads from src, returning nil when src is nil
func LoadBenchmark(ctx context.Context, src BenchmarkSource, column string, dl *logger.DataLogger) (models.BenchmarkSeries, error) {
	if src == nil {
		return nil, nil
	}
	started := time.Now()
	series, err := src.LoadBenchmark(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load benchmark from %s: %w", src.Name(), err)
	}
	metrics.ObserveStageDuration("load_benchmark", time.Since(started).Seconds())
	if dl != nil {
		dl.LogBenchmarkLoaded(src.Name(), src.Location(), column, len(series))
	}
	return series, nil
}
