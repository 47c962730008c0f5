package backtest

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yourusername/equity-backtest/internal/models"
)

// Holding is one held position on a day
type Holding struct {
	SecuCode int64   `json:"secu_code"`
	Weight   float64 `json:"weight"`
}

// DailyHoldings lists the positions with positive weight on one trading day
type DailyHoldings struct {
	TradingDay time.Time `json:"trading_day"`
	Holdings   []Holding `json:"holdings"`
}

// CollectHoldings groups the positive-weight records of a sorted panel by day.
// Days without any position are omitted.
func CollectHoldings(panel models.Panel) []DailyHoldings {
	out := make([]DailyHoldings, 0)
	for _, day := range panel.Days() {
		var held []Holding
		for _, rec := range panel[day.Start:day.End] {
			if rec.Weight > 0 {
				held = append(held, Holding{SecuCode: rec.SecuCode, Weight: rec.Weight})
			}
		}
		if len(held) > 0 {
			out = append(out, DailyHoldings{TradingDay: day.Day, Holdings: held})
		}
	}
	return out
}

// String renders the holdings as "code:weight, code:weight"
func (d DailyHoldings) String() string {
	parts := make([]string, len(d.Holdings))
	for i, h := range d.Holdings {
		parts[i] = fmt.Sprintf("%d:%.4f", h.SecuCode, h.Weight)
	}
	return strings.Join(parts, ", ")
}

// GenerateConsoleReport formats metrics for terminal output
func GenerateConsoleReport(result *Result) string {
	var builder strings.Builder
	builder.WriteString("Backtest Report\n")
	builder.WriteString("================\n")
	builder.WriteString(fmt.Sprintf("Version: %s\n", result.Config.VersionTag))
	builder.WriteString(fmt.Sprintf("Window: %s to %s (%d trading days)\n",
		result.Config.StartDate.Format("2006-01-02"),
		result.Config.EndDate.Format("2006-01-02"),
		result.Metrics.TradingDays,
	))
	for _, line := range FormatMetrics(result.Metrics) {
		builder.WriteString(fmt.Sprintf("%-28s %s\n", line.Label+":", line.Value))
	}
	if len(result.Yearly) > 0 {
		builder.WriteString("\nYearly Performance\n")
		builder.WriteString(fmt.Sprintf("%-6s %10s %10s %10s\n", "year", "strategy", "benchmark", "excess"))
		for _, row := range result.Yearly {
			builder.WriteString(fmt.Sprintf("%-6d %10s %10s %10s\n",
				row.Year, formatYearly(row.Strategy), formatYearly(row.Benchmark), formatYearly(row.Excess)))
		}
	}
	return builder.String()
}

// GenerateCSVExport exports the formatted metrics for spreadsheets
func GenerateCSVExport(m Metrics, outputPath string) error {
	rows := [][]string{{"metric", "value"}}
	for _, line := range FormatMetrics(m) {
		rows = append(rows, []string{line.Label, line.Value})
	}
	return writeCSV(outputPath, rows)
}

// GenerateSelectedStocksExport writes one row per day listing the held codes and weights
func GenerateSelectedStocksExport(holdings []DailyHoldings, outputPath string) error {
	rows := [][]string{{"TradingDay", "selected_stocks"}}
	for _, day := range holdings {
		rows = append(rows, []string{day.TradingDay.Format("2006-01-02"), day.String()})
	}
	return writeCSV(outputPath, rows)
}

// ArtifactPaths names the files a run writes into the output directory
type ArtifactPaths struct {
	Metrics        string
	Yearly         string
	Timeseries     string
	SelectedStocks string
	Summary        string
}

// All returns every artifact path
func (a ArtifactPaths) All() []string {
	return []string{a.Metrics, a.Yearly, a.Timeseries, a.SelectedStocks, a.Summary}
}

// ArtifactPathsFor resolves the artifact file names for a config
func ArtifactPathsFor(cfg BacktestConfig) ArtifactPaths {
	tagged := func(filename string) string {
		base := strings.TrimSuffix(filename, filepath.Ext(filename))
		return filepath.Join(cfg.OutputDir, fmt.Sprintf("%s_%s.csv", base, cfg.VersionTag))
	}
	return ArtifactPaths{
		Metrics:        filepath.Join(cfg.OutputDir, cfg.MetricsFilename),
		Yearly:         filepath.Join(cfg.OutputDir, cfg.YearlyFilename),
		Timeseries:     tagged("timeseries.csv"),
		SelectedStocks: tagged(cfg.SelectedStocksFilename),
		Summary:        filepath.Join(cfg.OutputDir, fmt.Sprintf("summary_%s.json", cfg.VersionTag)),
	}
}

// WriteArtifacts writes every report file of a run and returns their paths
func WriteArtifacts(result *Result) (ArtifactPaths, error) {
	paths := ArtifactPathsFor(result.Config)
	if err := os.MkdirAll(result.Config.OutputDir, 0o755); err != nil {
		return paths, fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := GenerateCSVExport(result.Metrics, paths.Metrics); err != nil {
		return paths, fmt.Errorf("failed to write metrics: %w", err)
	}
	if err := os.WriteFile(paths.Yearly, []byte(result.Yearly.ToCSV()), 0o644); err != nil {
		return paths, fmt.Errorf("failed to write yearly performance: %w", err)
	}
	if err := os.WriteFile(paths.Timeseries, []byte(result.Timeseries.ToCSV()), 0o644); err != nil {
		return paths, fmt.Errorf("failed to write timeseries: %w", err)
	}
	if err := GenerateSelectedStocksExport(result.Holdings, paths.SelectedStocks); err != nil {
		return paths, fmt.Errorf("failed to write selected stocks: %w", err)
	}
	if err := ExportToJSON(NewSummary(result), paths.Summary); err != nil {
		return paths, err
	}
	return paths, nil
}

func writeCSV(outputPath string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return f.Close()
}
