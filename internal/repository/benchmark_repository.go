package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/yourusername/equity-backtest/internal/database"
	"github.com/yourusername/equity-backtest/internal/models"
)

// PostgresBenchmarkRepository implements BenchmarkRepository for PostgreSQL
type PostgresBenchmarkRepository struct {
	db *database.DB
}

// NewPostgresBenchmarkRepository creates a new benchmark repository
func NewPostgresBenchmarkRepository(db *database.DB) BenchmarkRepository {
	return &PostgresBenchmarkRepository{db: db}
}

// GetByDateRange retrieves one benchmark's daily returns ordered by day
func (r *PostgresBenchmarkRepository) GetByDateRange(ctx context.Context, benchmark string, start, end time.Time) (models.BenchmarkSeries, error) {
	query := `
		SELECT trading_day, pct_change
		FROM benchmark_returns
		WHERE benchmark = $1 AND trading_day >= $2 AND trading_day <= $3
		ORDER BY trading_day
	`
	rows, err := r.db.GetPool().Query(ctx, query, benchmark, models.DateOf(start), models.DateOf(end))
	if err != nil {
		return nil, fmt.Errorf("failed to query benchmark returns: %w", err)
	}
	defer rows.Close()

	var series models.BenchmarkSeries
	for rows.Next() {
		var p models.BenchmarkPoint
		if err := rows.Scan(&p.Day, &p.Return); err != nil {
			return nil, fmt.Errorf("failed to scan benchmark return: %w", err)
		}
		p.Day = models.DateOf(p.Day)
		series = append(series, p)
	}
	return series, rows.Err()
}

// InsertBatch upserts a benchmark series
func (r *PostgresBenchmarkRepository) InsertBatch(ctx context.Context, benchmark string, series models.BenchmarkSeries) error {
	if len(series) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO benchmark_returns (benchmark, trading_day, pct_change)
		VALUES ($1, $2, $3)
		ON CONFLICT (benchmark, trading_day) DO UPDATE SET pct_change = EXCLUDED.pct_change`
	for _, p := range series {
		batch.Queue(query, benchmark, models.DateOf(p.Day), p.Return)
	}

	br := r.db.GetPool().SendBatch(ctx, batch)
	defer br.Close()

	for range series {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to insert benchmark returns: %w", err)
		}
	}
	return nil
}
