package datasource

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/yourusername/equity-backtest/internal/models"
)

// CSVBenchmarkSource reads a benchmark from a CSV file with a TradingDay
// column and a configurable return column
type CSVBenchmarkSource struct {
	path   string
	column string
}

// NewCSVBenchmarkSource creates a benchmark source for a CSV file
func NewCSVBenchmarkSource(path, column string) *CSVBenchmarkSource {
	return &CSVBenchmarkSource{path: path, column: column}
}

// Name returns the name of the data source
func (s *CSVBenchmarkSource) Name() string { return SourceCSV }

// Location returns the file path
func (s *CSVBenchmarkSource) Location() string { return s.path }

// LoadBenchmark reads and parses the file
func (s *CSVBenchmarkSource) LoadBenchmark(ctx context.Context) (models.BenchmarkSeries, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open benchmark file: %w", err)
	}
	defer f.Close()

	series, err := ReadBenchmarkCSV(f, s.column)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return series, nil
}

// ReadBenchmarkCSV parses a benchmark series sorted by day. Rows with an
// empty return cell are skipped.
func ReadBenchmarkCSV(r io.Reader, column string) (models.BenchmarkSeries, error) {
	if column == "" {
		column = models.ColNextRet
	}
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	dayIdx, retIdx := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case models.ColTradingDay:
			dayIdx = i
		case column:
			retIdx = i
		}
	}
	var missing []string
	if dayIdx < 0 {
		missing = append(missing, models.ColTradingDay)
	}
	if retIdx < 0 {
		missing = append(missing, column)
	}
	if len(missing) > 0 {
		return nil, &models.ValidationError{Scope: "benchmark", Missing: missing}
	}

	var series models.BenchmarkSeries
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		cell := strings.TrimSpace(row[retIdx])
		if cell == "" {
			continue
		}
		day, err := ParseDate(row[dayIdx])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: column %s: %w", line, column, err)
		}
		// NaN and Inf parse cleanly but mark a missing observation
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		series = append(series, models.BenchmarkPoint{Day: day, Return: v})
	}
	series.Sort()
	return series, nil
}
