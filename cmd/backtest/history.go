package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yourusername/equity-backtest/internal/backtest"
)

var (
	historyLimit int
	historyRunID string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List persisted backtest runs",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "Number of runs to list")
	historyCmd.Flags().StringVar(&historyRunID, "run", "", "Print the daily table of one run")
}

func runHistory(cmd *cobra.Command, args []string) error {
	if !cfg.UsesDatabase() {
		return fmt.Errorf("history requires database.enabled")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	p, err := newPipeline(ctx)
	if err != nil {
		return err
	}
	defer p.Close()

	if historyRunID != "" {
		id, err := uuid.Parse(historyRunID)
		if err != nil {
			return fmt.Errorf("invalid run id: %w", err)
		}
		daily, err := p.repos.BacktestRun.GetDaily(ctx, id)
		if err != nil {
			return err
		}
		fmt.Print(backtest.Timeseries(daily).ToCSV())
		return nil
	}

	runs, err := p.repos.BacktestRun.GetLatest(ctx, historyLimit)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tVERSION\tWINDOW\tDAYS\tCUM RET\tIR (EXCESS)\tRUN AT")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s..%s\t%d\t%.4f\t%.4f\t%s\n",
			run.ID, run.VersionTag,
			run.StartDate.Format("2006-01-02"), run.EndDate.Format("2006-01-02"),
			run.TradingDays, run.CumulativeReturn, run.InformationRatio,
			run.RunDate.Format(time.RFC3339))
	}
	return w.Flush()
}
