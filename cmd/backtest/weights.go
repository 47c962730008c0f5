package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/yourusername/equity-backtest/internal/datasource"
	applogger "github.com/yourusername/equity-backtest/internal/logger"
)

var writeWeightsToDB bool

var weightsCmd = &cobra.Command{
	Use:   "weights",
	Short: "Select and weight the panel without backtesting",
	Long: `Writes the weighted panel as CSV. With --to-db the weights are also
written back onto the security_days table.`,
	RunE: runWeights,
}

func init() {
	weightsCmd.Flags().BoolVar(&writeWeightsToDB, "to-db", false, "Write weights back to the security_days table")
}

func runWeights(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	p, err := newPipeline(ctx)
	if err != nil {
		return err
	}
	defer p.Close()

	bl := applogger.NewBacktestLogger(logger, cfg.Backtest.VersionTag)
	panel, _, err := p.weightedPanel(ctx, bl)
	if err != nil {
		return err
	}

	out := cfg.Data.WeightsOutputPath
	if out == "" {
		out = filepath.Join(cfg.Backtest.OutputDir, fmt.Sprintf("weights_%s.csv", cfg.Backtest.VersionTag))
	}
	if err := datasource.WritePanelFile(out, panel); err != nil {
		return err
	}
	bl.LogArtifact("weights", out)

	if writeWeightsToDB {
		if p.repos == nil {
			return fmt.Errorf("--to-db requires database.enabled")
		}
		if err := p.repos.Panel.UpdateWeights(ctx, panel); err != nil {
			return err
		}
		logger.WithField("records", len(panel)).Info("Weights written to database")
	}
	return nil
}
