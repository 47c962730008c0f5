package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/equity-backtest/internal/models"
)

// PanelRepository defines the interface for security-day panel access
type PanelRepository interface {
	GetByDateRange(ctx context.Context, start, end time.Time) (models.Panel, error)
	InsertBatch(ctx context.Context, panel models.Panel) error
	UpdateWeights(ctx context.Context, panel models.Panel) error
}

// BenchmarkRepository defines the interface for benchmark return series
type BenchmarkRepository interface {
	GetByDateRange(ctx context.Context, benchmark string, start, end time.Time) (models.BenchmarkSeries, error)
	InsertBatch(ctx context.Context, benchmark string, series models.BenchmarkSeries) error
}

// BacktestRunRepository defines the interface for persisted backtest runs
type BacktestRunRepository interface {
	SaveRun(ctx context.Context, run *models.BacktestRun, daily []models.DailyResult) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.BacktestRun, error)
	GetLatest(ctx context.Context, limit int) ([]*models.BacktestRun, error)
	GetDaily(ctx context.Context, runID uuid.UUID) ([]models.DailyResult, error)
}
