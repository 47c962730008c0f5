// Package main provides the entry point for the equity backtesting CLI.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/equity-backtest/internal/config"
	applogger "github.com/yourusername/equity-backtest/internal/logger"
	"github.com/yourusername/equity-backtest/internal/metrics"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	configFile string
	envFile    string
	logger     *logrus.Logger
	cfg        *config.Config
	overrides  cliOverrides
)

// cliOverrides mirror the config keys most often changed per run
type cliOverrides struct {
	start, end    string
	fee           float64
	versionTag    string
	outputDir     string
	panelPath     string
	benchmarkPath string
	benchmarkCol  string
	logLevel      string
}

var rootCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Daily-rebalanced equity strategy backtester",
	Long: `Turns a per-day selection signal into tradable portfolio weights and
measures the resulting strategy against a benchmark.

Examples:
  backtest run --config config/config.yaml
  backtest run --start 2021-01-04 --end 2021-12-31 --fee 0.0015 --tag v2
  backtest weights --panel data/panel.csv
  backtest history --limit 5`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(cmd); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		logger = applogger.NewLogger(cfg.App.LogLevel, cfg.App.Environment)
		metrics.InitRegistry()
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	flags.StringVar(&envFile, "env-file", ".env", "Path to a .env file loaded before the configuration")
	flags.StringVar(&overrides.start, "start", "", "Override backtest start date (YYYY-MM-DD)")
	flags.StringVar(&overrides.end, "end", "", "Override backtest end date (YYYY-MM-DD)")
	flags.Float64Var(&overrides.fee, "fee", 0, "Override transaction fee rate per unit turnover")
	flags.StringVar(&overrides.versionTag, "tag", "", "Override version tag used in output names")
	flags.StringVar(&overrides.outputDir, "out", "", "Override output directory")
	flags.StringVar(&overrides.panelPath, "panel", "", "Override panel CSV path")
	flags.StringVar(&overrides.benchmarkPath, "benchmark", "", "Override benchmark CSV path")
	flags.StringVar(&overrides.benchmarkCol, "bench-col", "", "Override benchmark return column")
	flags.StringVar(&overrides.logLevel, "log-level", "", "Override log level")

	rootCmd.AddCommand(runCmd, weightsCmd, importCmd, historyCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

// loadConfig reads .env, the YAML file, flag overrides and secrets, then
// validates the result
func loadConfig(cmd *cobra.Command) error {
	config.LoadDotEnv(envFile)

	loaded, err := config.LoadWithDefaults(configFile)
	if err != nil {
		return err
	}
	applyOverrides(cmd, loaded)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := config.LoadSecretsFromAWS(ctx, loaded); err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	if err := config.Validate(loaded); err != nil {
		return err
	}
	cfg = loaded
	return nil
}

func applyOverrides(cmd *cobra.Command, c *config.Config) {
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}
	if changed("start") {
		c.Backtest.StartDate = overrides.start
	}
	if changed("end") {
		c.Backtest.EndDate = overrides.end
	}
	if changed("fee") {
		c.Backtest.TransactionFeeRate = overrides.fee
	}
	if changed("tag") {
		c.Backtest.VersionTag = overrides.versionTag
	}
	if changed("out") {
		c.Backtest.OutputDir = overrides.outputDir
	}
	if changed("panel") {
		c.Data.Source = config.SourceCSV
		c.Data.PanelPath = overrides.panelPath
	}
	if changed("benchmark") {
		c.Data.BenchmarkPath = overrides.benchmarkPath
		c.Data.BenchmarkURL = ""
		c.Data.BenchmarkName = ""
	}
	if changed("bench-col") {
		c.Backtest.BenchmarkReturnColumn = overrides.benchmarkCol
	}
	if changed("log-level") {
		c.App.LogLevel = overrides.logLevel
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	// Skip configuration loading
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("backtest %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
	},
}
