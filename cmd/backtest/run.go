package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yourusername/equity-backtest/internal/backtest"
	applogger "github.com/yourusername/equity-backtest/internal/logger"
	"github.com/yourusername/equity-backtest/internal/metrics"
	"github.com/yourusername/equity-backtest/internal/models"
	"github.com/yourusername/equity-backtest/internal/storage"
)

var feeSweep []float64

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Select, weight and backtest the panel",
	Long: `Runs the full pipeline: load the panel, score and select securities,
assign constrained weights, compute the daily return table and metrics,
then write report artifacts. Optionally persists the run, uploads the
artifacts to S3 and pushes run metrics to a Pushgateway.`,
	RunE: runBacktest,
}

func init() {
	runCmd.Flags().Float64SliceVar(&feeSweep, "fee-sweep", nil, "Additional fee rates to backtest on the same weights")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return executeRun(ctx)
}

// executeRun runs the pipeline once, plus any fee sweep
func executeRun(ctx context.Context) error {
	p, err := newPipeline(ctx)
	if err != nil {
		return err
	}
	defer p.Close()

	btCfg, err := backtest.FromConfig(&cfg.Backtest)
	if err != nil {
		return err
	}
	bl := applogger.NewBacktestLogger(logger, btCfg.VersionTag)
	bl.LogWindow(btCfg.StartDate, btCfg.EndDate, btCfg.TransactionFeeRate, btCfg.TradingDaysPerYear)

	panel, columns, err := p.weightedPanel(ctx, bl)
	if err != nil {
		return err
	}

	if err := runOnce(ctx, p, btCfg, panel, columns, bl); err != nil {
		return err
	}

	for _, fee := range feeSweep {
		sweepCfg := btCfg
		sweepCfg.TransactionFeeRate = fee
		sweepCfg.VersionTag = fmt.Sprintf("%s_fee%g", btCfg.VersionTag, fee)
		sweepLogger := applogger.NewBacktestLogger(logger, sweepCfg.VersionTag)
		if err := runOnce(ctx, p, sweepCfg, panel, columns, sweepLogger); err != nil {
			return fmt.Errorf("fee sweep %g: %w", fee, err)
		}
	}

	if cfg.Metrics.Enabled {
		pushCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := metrics.Push(pushCtx, cfg.Metrics.PushgatewayURL, cfg.Metrics.Job); err != nil {
			logger.WithError(err).Warn("Failed to push run metrics")
		}
	}
	return nil
}

// runOnce backtests one configuration and ships its results
func runOnce(ctx context.Context, p *pipeline, btCfg backtest.BacktestConfig, panel models.Panel, columns models.ColumnSet, bl *applogger.BacktestLogger) error {
	bench, err := p.benchmark(ctx)
	if err != nil {
		return err
	}

	engine, err := backtest.NewEngine(btCfg, logger)
	if err != nil {
		return err
	}
	result, err := engine.Run(panel, columns, bench)
	if err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}
	bl.LogRunSummary(
		result.Metrics.TradingDays,
		result.Metrics.Strategy.CumulativeReturn,
		result.Metrics.Excess.AnnualReturn,
		result.Metrics.Excess.InformationRatioV1,
		result.Metrics.AvgTurnover,
		result.Duration,
	)

	paths, err := backtest.WriteArtifacts(result)
	if err != nil {
		return err
	}
	artifacts := []struct{ kind, path string }{
		{"metrics", paths.Metrics},
		{"yearly", paths.Yearly},
		{"timeseries", paths.Timeseries},
		{"selected_stocks", paths.SelectedStocks},
		{"summary", paths.Summary},
	}
	for _, a := range artifacts {
		bl.LogArtifact(a.kind, a.path)
	}

	fmt.Println(backtest.GenerateConsoleReport(result))

	runID := uuid.New()
	if cfg.Database.Enabled && p.repos != nil {
		id, err := backtest.ExportToDatabase(ctx, result, p.repos.BacktestRun)
		if err != nil {
			return fmt.Errorf("failed to persist run: %w", err)
		}
		runID = id
		bl.LogPersisted(runID.String(), len(result.Timeseries))
	}

	if cfg.Storage.Enabled {
		store, err := storage.NewS3ArtifactStore(ctx, cfg.Storage, p.data)
		if err != nil {
			return err
		}
		if _, err := store.UploadArtifacts(ctx, btCfg.VersionTag, runID.String(), paths.All()); err != nil {
			return err
		}
	}
	return nil
}
