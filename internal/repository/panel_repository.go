package repository

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/yourusername/equity-backtest/internal/database"
	"github.com/yourusername/equity-backtest/internal/models"
)

// PostgresPanelRepository implements PanelRepository for PostgreSQL
type PostgresPanelRepository struct {
	db *database.DB
}

// NewPostgresPanelRepository creates a new panel repository
func NewPostgresPanelRepository(db *database.DB) PanelRepository {
	return &PostgresPanelRepository{db: db}
}

// GetByDateRange retrieves the panel between start and end inclusive,
// ordered by trading day and security code
func (r *PostgresPanelRepository) GetByDateRange(ctx context.Context, start, end time.Time) (models.Panel, error) {
	query := `
		SELECT trading_day, secu_code, trade_status, swing_status, stop_trade_status3,
			stop_trade_status5, ipo_status, select_flag, score, next_ret, weight, factors
		FROM security_days
		WHERE trading_day >= $1 AND trading_day <= $2
		ORDER BY trading_day, secu_code
	`
	rows, err := r.db.GetPool().Query(ctx, query, models.DateOf(start), models.DateOf(end))
	if err != nil {
		return nil, fmt.Errorf("failed to query security days: %w", err)
	}
	defer rows.Close()

	var panel models.Panel
	for rows.Next() {
		var rec models.SecurityDay
		var nextRet *float64
		if err := rows.Scan(
			&rec.TradingDay, &rec.SecuCode,
			&rec.Flags.TradeStatus, &rec.Flags.SwingStatus, &rec.Flags.StopTradeStatus3,
			&rec.Flags.StopTradeStatus5, &rec.Flags.IpoStatus,
			&rec.Select, &rec.Score, &nextRet, &rec.Weight, &rec.Factors,
		); err != nil {
			return nil, fmt.Errorf("failed to scan security day: %w", err)
		}
		rec.TradingDay = models.DateOf(rec.TradingDay)
		rec.NextRet = math.NaN()
		if nextRet != nil {
			rec.NextRet = *nextRet
		}
		panel = append(panel, rec)
	}
	return panel, rows.Err()
}

// InsertBatch inserts security days using high-performance batch insert
func (r *PostgresPanelRepository) InsertBatch(ctx context.Context, panel models.Panel) error {
	if len(panel) == 0 {
		return nil
	}

	// Use COPY for high-performance bulk insert
	columns := []string{
		"trading_day", "secu_code", "trade_status", "swing_status", "stop_trade_status3",
		"stop_trade_status5", "ipo_status", "select_flag", "score", "next_ret", "weight", "factors",
	}

	copyFromSource := make([][]any, len(panel))
	for i, rec := range panel {
		factors := rec.Factors
		if factors == nil {
			factors = map[string]float64{}
		}
		copyFromSource[i] = []any{
			models.DateOf(rec.TradingDay), rec.SecuCode,
			rec.Flags.TradeStatus, rec.Flags.SwingStatus, rec.Flags.StopTradeStatus3,
			rec.Flags.StopTradeStatus5, rec.Flags.IpoStatus,
			rec.Select, rec.Score, nullableFloat(rec.NextRet), rec.Weight, factors,
		}
	}

	count, err := r.db.GetPool().CopyFrom(ctx, pgx.Identifier{"security_days"}, columns, pgx.CopyFromRows(copyFromSource))
	if err != nil {
		return fmt.Errorf("failed to batch insert security days: %w", err)
	}

	if count != int64(len(panel)) {
		return fmt.Errorf("inserted %d rows, expected %d", count, len(panel))
	}

	return nil
}

// UpdateWeights writes the assigned weights back onto existing rows
func (r *PostgresPanelRepository) UpdateWeights(ctx context.Context, panel models.Panel) error {
	if len(panel) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `UPDATE security_days SET weight = $3 WHERE trading_day = $1 AND secu_code = $2`
	for _, rec := range panel {
		batch.Queue(query, models.DateOf(rec.TradingDay), rec.SecuCode, rec.Weight)
	}

	br := r.db.GetPool().SendBatch(ctx, batch)
	defer br.Close()

	for range panel {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to update weights: %w", err)
		}
	}
	return nil
}

func nullableFloat(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}
