package datasource

import (
	"context"
	"time"

	"github.com/yourusername/equity-backtest/internal/models"
	"github.com/yourusername/equity-backtest/internal/repository"
)

// SourcePostgres is the name reported by database-backed sources
const SourcePostgres = "postgres"

// PostgresPanelSource reads the panel from the security_days table up to
// an end date. Days before the backtest window are loaded too so weights
// carry in correctly.
type PostgresPanelSource struct {
	repo repository.PanelRepository
	end  time.Time
}

// NewPostgresPanelSource creates a database panel source
func NewPostgresPanelSource(repo repository.PanelRepository, end time.Time) *PostgresPanelSource {
	return &PostgresPanelSource{repo: repo, end: end}
}

// Name returns the name of the data source
func (s *PostgresPanelSource) Name() string { return SourcePostgres }

// Location returns the table read from
func (s *PostgresPanelSource) Location() string { return "security_days" }

// LoadPanel reads every record on or before the end date
func (s *PostgresPanelSource) LoadPanel(ctx context.Context) (models.Panel, models.ColumnSet, error) {
	panel, err := s.repo.GetByDateRange(ctx, time.Time{}, s.end)
	if err != nil {
		return nil, nil, err
	}

	columns := models.NewColumnSet(
		models.ColTradingDay, models.ColSecuCode,
		models.ColTradeStatus, models.ColSwingStatus, models.ColStopTradeStatus3,
		models.ColStopTradeStatus5, models.ColIpoStatus,
		models.ColSelect, models.ColScore, models.ColNextRet, models.ColWeights,
	)
	for _, rec := range panel {
		for name := range rec.Factors {
			columns[name] = true
		}
	}
	return panel, columns, nil
}

// PostgresBenchmarkSource reads one named benchmark from benchmark_returns
type PostgresBenchmarkSource struct {
	repo       repository.BenchmarkRepository
	benchmark  string
	start, end time.Time
}

// NewPostgresBenchmarkSource creates a database benchmark source
func NewPostgresBenchmarkSource(repo repository.BenchmarkRepository, benchmark string, start, end time.Time) *PostgresBenchmarkSource {
	return &PostgresBenchmarkSource{repo: repo, benchmark: benchmark, start: start, end: end}
}

// Name returns the name of the data source
func (s *PostgresBenchmarkSource) Name() string { return SourcePostgres }

// Location returns the benchmark name
func (s *PostgresBenchmarkSource) Location() string { return "benchmark_returns/" + s.benchmark }

// LoadBenchmark reads the series within the configured dates
func (s *PostgresBenchmarkSource) LoadBenchmark(ctx context.Context) (models.BenchmarkSeries, error) {
	return s.repo.GetByDateRange(ctx, s.benchmark, s.start, s.end)
}
