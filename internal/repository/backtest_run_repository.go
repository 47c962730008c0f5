package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yourusername/equity-backtest/internal/database"
	"github.com/yourusername/equity-backtest/internal/models"
)

// PostgresBacktestRunRepository implements BacktestRunRepository for PostgreSQL
type PostgresBacktestRunRepository struct {
	db *database.DB
}

// NewPostgresBacktestRunRepository creates a new backtest run repository
func NewPostgresBacktestRunRepository(db *database.DB) BacktestRunRepository {
	return &PostgresBacktestRunRepository{db: db}
}

const backtestRunColumns = `id, version_tag, run_date, start_date, end_date, transaction_fee_rate,
	trading_days, cumulative_return, annual_return, annual_volatility, max_drawdown_excess,
	information_ratio, avg_turnover, metrics, yearly, created_at`

// SaveRun stores the run summary and its daily table in one transaction
func (r *PostgresBacktestRunRepository) SaveRun(ctx context.Context, run *models.BacktestRun, daily []models.DailyResult) error {
	if run == nil {
		return fmt.Errorf("backtest run is required")
	}
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}

	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO backtest_runs (` + backtestRunColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		`
		_, err := tx.Exec(ctx, query,
			run.ID, run.VersionTag, run.RunDate, models.DateOf(run.StartDate), models.DateOf(run.EndDate),
			run.TransactionFeeRate, run.TradingDays, run.CumulativeReturn, run.AnnualReturn,
			run.AnnualVolatility, run.MaxDrawdownExcess, run.InformationRatio, run.AvgTurnover,
			run.Metrics, run.Yearly, run.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert backtest run: %w", err)
		}

		if len(daily) == 0 {
			return nil
		}

		columns := []string{
			"run_id", "trading_day", "strategy_return", "strategy_value", "portfolio_return",
			"turnover", "n_holdings", "benchmark_return", "excess_return", "base_value",
			"excess_value", "excess_value_relative",
		}
		rows := make([][]any, len(daily))
		for i, d := range daily {
			rows[i] = []any{
				run.ID, models.DateOf(d.TradingDay), d.StrategyReturn, d.StrategyValue, d.PortfolioReturn,
				d.Turnover, d.NHoldings, d.BenchmarkReturn, d.ExcessReturn, d.BaseValue,
				d.ExcessValue, d.ExcessValueRelative,
			}
		}

		count, err := tx.CopyFrom(ctx, pgx.Identifier{"backtest_daily"}, columns, pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("failed to insert backtest daily rows: %w", err)
		}
		if count != int64(len(daily)) {
			return fmt.Errorf("inserted %d daily rows, expected %d", count, len(daily))
		}
		return nil
	})
}

// GetByID retrieves a run by its ID
func (r *PostgresBacktestRunRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.BacktestRun, error) {
	query := `SELECT ` + backtestRunColumns + ` FROM backtest_runs WHERE id = $1`

	run, err := scanBacktestRun(r.db.GetPool().QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("backtest run %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get backtest run: %w", err)
	}
	return run, nil
}

// GetLatest retrieves the most recent runs
func (r *PostgresBacktestRunRepository) GetLatest(ctx context.Context, limit int) ([]*models.BacktestRun, error) {
	query := `SELECT ` + backtestRunColumns + ` FROM backtest_runs ORDER BY run_date DESC LIMIT $1`

	rows, err := r.db.GetPool().Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query backtest runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.BacktestRun
	for rows.Next() {
		run, err := scanBacktestRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan backtest run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetDaily retrieves the daily table of a run ordered by trading day
func (r *PostgresBacktestRunRepository) GetDaily(ctx context.Context, runID uuid.UUID) ([]models.DailyResult, error) {
	query := `
		SELECT trading_day, strategy_return, strategy_value, portfolio_return, turnover, n_holdings,
			benchmark_return, excess_return, base_value, excess_value, excess_value_relative
		FROM backtest_daily
		WHERE run_id = $1
		ORDER BY trading_day
	`
	rows, err := r.db.GetPool().Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query backtest daily rows: %w", err)
	}
	defer rows.Close()

	var daily []models.DailyResult
	for rows.Next() {
		var d models.DailyResult
		if err := rows.Scan(
			&d.TradingDay, &d.StrategyReturn, &d.StrategyValue, &d.PortfolioReturn, &d.Turnover, &d.NHoldings,
			&d.BenchmarkReturn, &d.ExcessReturn, &d.BaseValue, &d.ExcessValue, &d.ExcessValueRelative,
		); err != nil {
			return nil, fmt.Errorf("failed to scan backtest daily row: %w", err)
		}
		d.TradingDay = models.DateOf(d.TradingDay)
		daily = append(daily, d)
	}
	return daily, rows.Err()
}

func scanBacktestRun(row pgx.Row) (*models.BacktestRun, error) {
	var run models.BacktestRun
	err := row.Scan(
		&run.ID, &run.VersionTag, &run.RunDate, &run.StartDate, &run.EndDate, &run.TransactionFeeRate,
		&run.TradingDays, &run.CumulativeReturn, &run.AnnualReturn, &run.AnnualVolatility,
		&run.MaxDrawdownExcess, &run.InformationRatio, &run.AvgTurnover, &run.Metrics, &run.Yearly,
		&run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &run, nil
}
