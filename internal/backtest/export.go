package backtest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/equity-backtest/internal/models"
	"github.com/yourusername/equity-backtest/internal/repository"
)

// Summary is the machine-readable digest of one run
type Summary struct {
	VersionTag         string             `json:"version_tag"`
	StartDate          time.Time          `json:"start_date"`
	EndDate            time.Time          `json:"end_date"`
	TransactionFeeRate float64            `json:"transaction_fee_rate"`
	TradingDays        int                `json:"trading_days"`
	FinalValue         float64            `json:"final_value"`
	Metrics            map[string]float64 `json:"metrics"`
	Formatted          map[string]string  `json:"formatted"`
	Yearly             YearlyPerformance  `json:"yearly"`
}

// NewSummary builds the digest of a run
func NewSummary(result *Result) Summary {
	formatted := make(map[string]string)
	for _, line := range FormatMetrics(result.Metrics) {
		formatted[line.Label] = line.Value
	}
	summary := Summary{
		VersionTag:         result.Config.VersionTag,
		StartDate:          result.Config.StartDate,
		EndDate:            result.Config.EndDate,
		TransactionFeeRate: result.Config.TransactionFeeRate,
		TradingDays:        result.Metrics.TradingDays,
		FinalValue:         1.0,
		Metrics:            result.Metrics.Named(),
		Formatted:          formatted,
		Yearly:             result.Yearly,
	}
	if n := len(result.Timeseries); n > 0 {
		summary.FinalValue = result.Timeseries[n-1].StrategyValue
	}
	return summary
}

// ExportToJSON writes export data to JSON file
func ExportToJSON(export any, outputPath string) error {
	if outputPath == "" {
		return fmt.Errorf("output path is required")
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal export: %w", err)
	}
	return os.WriteFile(outputPath, data, 0o644)
}

// NewRunRecord converts a result into its persisted form
func NewRunRecord(result *Result) (*models.BacktestRun, error) {
	metricsJSON, err := json.Marshal(result.Metrics.Named())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metrics: %w", err)
	}
	yearlyJSON, err := json.Marshal(result.Yearly)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal yearly performance: %w", err)
	}

	now := time.Now().UTC()
	return &models.BacktestRun{
		ID:                 uuid.New(),
		VersionTag:         result.Config.VersionTag,
		RunDate:            now,
		StartDate:          result.Config.StartDate,
		EndDate:            result.Config.EndDate,
		TransactionFeeRate: result.Config.TransactionFeeRate,
		TradingDays:        result.Metrics.TradingDays,
		CumulativeReturn:   result.Metrics.Strategy.CumulativeReturn,
		AnnualReturn:       result.Metrics.Strategy.AnnualReturn,
		AnnualVolatility:   result.Metrics.Strategy.AnnualVolatility,
		MaxDrawdownExcess:  result.Metrics.Excess.MaxDrawdown,
		InformationRatio:   result.Metrics.Excess.InformationRatioV1,
		AvgTurnover:        result.Metrics.AvgTurnover,
		Metrics:            metricsJSON,
		Yearly:             yearlyJSON,
		CreatedAt:          now,
	}, nil
}

// ExportToDatabase persists backtest result and its daily table
func ExportToDatabase(ctx context.Context, result *Result, repo repository.BacktestRunRepository) (uuid.UUID, error) {
	if repo == nil {
		return uuid.Nil, fmt.Errorf("backtest run repository is required")
	}
	run, err := NewRunRecord(result)
	if err != nil {
		return uuid.Nil, err
	}
	if err := repo.SaveRun(ctx, run, result.Timeseries); err != nil {
		return uuid.Nil, err
	}
	return run.ID, nil
}
