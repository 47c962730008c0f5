package repository

import (
	"fmt"

	"github.com/yourusername/equity-backtest/internal/database"
)

// Repositories holds all repository implementations
type Repositories struct {
	Panel       PanelRepository
	Benchmark   BenchmarkRepository
	BacktestRun BacktestRunRepository
}

// NewRepositories creates and returns all repository implementations
func NewRepositories(db *database.DB) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &Repositories{
		Panel:       NewPostgresPanelRepository(db),
		Benchmark:   NewPostgresBenchmarkRepository(db),
		BacktestRun: NewPostgresBacktestRunRepository(db),
	}, nil
}
