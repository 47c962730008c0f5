package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/equity-backtest/internal/datasource"
)

var (
	importPanelPath     string
	importBenchmarkPath string
	importBenchmarkName string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load panel and benchmark CSV files into PostgreSQL",
	RunE:  runImport,
}

func init() {
	importCmd.Flags().StringVar(&importPanelPath, "panel-file", "", "Panel CSV to insert into security_days")
	importCmd.Flags().StringVar(&importBenchmarkPath, "benchmark-file", "", "Benchmark CSV to upsert into benchmark_returns")
	importCmd.Flags().StringVar(&importBenchmarkName, "benchmark-name", "", "Name stored with the benchmark series")
}

func runImport(cmd *cobra.Command, args []string) error {
	if !cfg.UsesDatabase() {
		return fmt.Errorf("import requires database.enabled")
	}
	ctx := context.Background()
	p, err := newPipeline(ctx)
	if err != nil {
		return err
	}
	defer p.Close()

	if importPanelPath != "" {
		panel, _, err := datasource.LoadPanel(ctx, datasource.NewCSVPanelSource(importPanelPath), p.data)
		if err != nil {
			return err
		}
		if err := p.repos.Panel.InsertBatch(ctx, panel); err != nil {
			return err
		}
		logger.WithField("records", len(panel)).Info("Panel imported")
	}

	if importBenchmarkPath != "" {
		if importBenchmarkName == "" {
			return fmt.Errorf("--benchmark-name is required with --benchmark-file")
		}
		src := datasource.NewCSVBenchmarkSource(importBenchmarkPath, cfg.Backtest.BenchmarkReturnColumn)
		series, err := datasource.LoadBenchmark(ctx, src, cfg.Backtest.BenchmarkReturnColumn, p.data)
		if err != nil {
			return err
		}
		if err := p.repos.Benchmark.InsertBatch(ctx, importBenchmarkName, series); err != nil {
			return err
		}
		logger.WithFields(logrus.Fields{"benchmark": importBenchmarkName, "points": len(series)}).Info("Benchmark imported")
	}
	return nil
}
