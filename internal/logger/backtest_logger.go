package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// BacktestLogger provides dedicated logging for the weighting and backtest pipeline.
type BacktestLogger struct {
	*logrus.Entry
}

// NewBacktestLogger creates a new backtest logger.
func NewBacktestLogger(baseLogger *logrus.Logger, versionTag string) *BacktestLogger {
	return &BacktestLogger{
		Entry: baseLogger.WithFields(logrus.Fields{
			"component":   "backtest",
			"version_tag": versionTag,
		}),
	}
}

// LogWeighting logs the allocation outcome of one trading day.
func (bl *BacktestLogger) LogWeighting(day time.Time, records, valid, locked int, lockedTotal, invested float64) {
	bl.WithFields(logrus.Fields{
		"trading_day":  day.Format("2006-01-02"),
		"records":      records,
		"valid":        valid,
		"locked":       locked,
		"locked_total": lockedTotal,
		"invested":     invested,
	}).Debug("Weights assigned")
}

// LogWindow logs the backtest window and cost settings.
func (bl *BacktestLogger) LogWindow(start, end time.Time, feeRate float64, tradingDaysPerYear int) {
	bl.WithFields(logrus.Fields{
		"start_date":            start.Format("2006-01-02"),
		"end_date":              end.Format("2006-01-02"),
		"transaction_fee_rate":  feeRate,
		"trading_days_per_year": tradingDaysPerYear,
	}).Info("Backtest window configured")
}

// LogRunSummary logs the headline statistics of a finished run.
func (bl *BacktestLogger) LogRunSummary(tradingDays int, cumReturn, annReturnExcess, irExcess, avgTurnover float64, duration time.Duration) {
	bl.WithFields(logrus.Fields{
		"trading_days":   tradingDays,
		"cum_ret":        cumReturn,
		"ann_ret_excess": annReturnExcess,
		"ir1_excess":     irExcess,
		"avg_turnover":   avgTurnover,
		"duration_ms":    duration.Milliseconds(),
	}).Info("Backtest summary")
}

// LogArtifact logs a written report file.
func (bl *BacktestLogger) LogArtifact(kind, path string) {
	bl.WithFields(logrus.Fields{
		"artifact": kind,
		"path":     path,
	}).Info("Report artifact written")
}

// LogPersisted logs a run saved to the database.
func (bl *BacktestLogger) LogPersisted(runID string, dailyRows int) {
	bl.WithFields(logrus.Fields{
		"run_id":     runID,
		"daily_rows": dailyRows,
	}).Info("Backtest run persisted")
}
