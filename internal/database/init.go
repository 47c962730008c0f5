package database

import (
	"context"
	"fmt"

	"github.com/yourusername/equity-backtest/internal/config"
)

// Schema creates every table the backtester reads or writes
const Schema = `
CREATE TABLE IF NOT EXISTS security_days (
	trading_day        DATE             NOT NULL,
	secu_code          BIGINT           NOT NULL,
	trade_status       INTEGER          NOT NULL DEFAULT 1,
	swing_status       INTEGER          NOT NULL DEFAULT 1,
	stop_trade_status3 INTEGER          NOT NULL DEFAULT 1,
	stop_trade_status5 INTEGER          NOT NULL DEFAULT 1,
	ipo_status         INTEGER          NOT NULL DEFAULT 1,
	select_flag        SMALLINT         NOT NULL DEFAULT 0,
	score              DOUBLE PRECISION NOT NULL DEFAULT 0,
	next_ret           DOUBLE PRECISION,
	weight             DOUBLE PRECISION NOT NULL DEFAULT 0,
	factors            JSONB            NOT NULL DEFAULT '{}'::jsonb,
	PRIMARY KEY (trading_day, secu_code)
);

CREATE TABLE IF NOT EXISTS benchmark_returns (
	benchmark   TEXT             NOT NULL,
	trading_day DATE             NOT NULL,
	pct_change  DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (benchmark, trading_day)
);

CREATE TABLE IF NOT EXISTS backtest_runs (
	id                   UUID PRIMARY KEY,
	version_tag          TEXT             NOT NULL,
	run_date             TIMESTAMPTZ      NOT NULL,
	start_date           DATE             NOT NULL,
	end_date             DATE             NOT NULL,
	transaction_fee_rate DOUBLE PRECISION NOT NULL,
	trading_days         INTEGER          NOT NULL,
	cumulative_return    DOUBLE PRECISION NOT NULL,
	annual_return        DOUBLE PRECISION NOT NULL,
	annual_volatility    DOUBLE PRECISION NOT NULL,
	max_drawdown_excess  DOUBLE PRECISION NOT NULL,
	information_ratio    DOUBLE PRECISION NOT NULL,
	avg_turnover         DOUBLE PRECISION NOT NULL,
	metrics              JSONB            NOT NULL,
	yearly               JSONB            NOT NULL,
	created_at           TIMESTAMPTZ      NOT NULL
);

CREATE TABLE IF NOT EXISTS backtest_daily (
	run_id                UUID             NOT NULL REFERENCES backtest_runs(id) ON DELETE CASCADE,
	trading_day           DATE             NOT NULL,
	strategy_return       DOUBLE PRECISION NOT NULL,
	strategy_value        DOUBLE PRECISION NOT NULL,
	portfolio_return      DOUBLE PRECISION NOT NULL,
	turnover              DOUBLE PRECISION NOT NULL,
	n_holdings            INTEGER          NOT NULL,
	benchmark_return      DOUBLE PRECISION,
	excess_return         DOUBLE PRECISION,
	base_value            DOUBLE PRECISION,
	excess_value          DOUBLE PRECISION,
	excess_value_relative DOUBLE PRECISION,
	PRIMARY KEY (run_id, trading_day)
);
`

// Initialize creates a database connection pool and makes sure the schema exists
func Initialize(ctx context.Context, cfg *config.Config) (*DB, error) {
	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	if err := EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// EnsureSchema applies the idempotent table definitions
func EnsureSchema(ctx context.Context, db *DB) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
