package datasource

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/yourusername/equity-backtest/internal/models"
)

// SourceCSV is the name reported by file-backed sources
const SourceCSV = "csv"

const utf8BOM = "\ufeff"

// dateLayouts are tried in order when parsing a TradingDay cell
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
	"20060102",
}

// panelRequired are the columns without which a panel file is rejected
var panelRequired = []string{models.ColTradingDay, models.ColSecuCode}

// CSVPanelSource reads the panel from a CSV file
type CSVPanelSource struct {
	path string
}

// NewCSVPanelSource creates a panel source for a CSV file
func NewCSVPanelSource(path string) *CSVPanelSource {
	return &CSVPanelSource{path: path}
}

// Name returns the name of the data source
func (s *CSVPanelSource) Name() string { return SourceCSV }

// Location returns the file path
func (s *CSVPanelSource) Location() string { return s.path }

// LoadPanel reads and parses the whole file
func (s *CSVPanelSource) LoadPanel(ctx context.Context) (models.Panel, models.ColumnSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open panel file: %w", err)
	}
	defer f.Close()

	panel, columns, err := ReadPanelCSV(f)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return panel, columns, nil
}

// ParseDate parses a trading day in any of the accepted layouts
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return models.DateOf(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("%q: %w", value, models.ErrInvalidDate)
}

// ReadPanelCSV parses a panel. Known columns map onto SecurityDay fields;
// every other column whose values all parse as numbers becomes a factor.
// Empty next_ret and factor cells read as NaN.
func ReadPanelCSV(r io.Reader) (models.Panel, models.ColumnSet, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = false

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, models.ErrEmptyPanel
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	columns := models.NewColumnSet(header...)
	if err := models.RequireColumns(columns, "panel", panelRequired...); err != nil {
		return nil, nil, err
	}

	nonNumeric := make(map[string]bool)
	var panel models.Panel
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", line, err)
		}

		rec, err := parsePanelRow(header, row, nonNumeric)
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", line, err)
		}
		panel = append(panel, rec)
	}

	if len(nonNumeric) > 0 {
		for i := range panel {
			for name := range nonNumeric {
				delete(panel[i].Factors, name)
			}
		}
	}
	return panel, columns, nil
}

func parsePanelRow(header, row []string, nonNumeric map[string]bool) (models.SecurityDay, error) {
	rec := models.SecurityDay{NextRet: math.NaN()}
	for i, name := range header {
		if i >= len(row) {
			break
		}
		cell := strings.TrimSpace(row[i])
		var err error
		switch name {
		case models.ColTradingDay:
			rec.TradingDay, err = ParseDate(cell)
		case models.ColSecuCode:
			rec.SecuCode, err = parseCode(cell)
		case models.ColTradeStatus:
			rec.Flags.TradeStatus, err = parseFlag(cell)
		case models.ColSwingStatus:
			rec.Flags.SwingStatus, err = parseFlag(cell)
		case models.ColStopTradeStatus3:
			rec.Flags.StopTradeStatus3, err = parseFlag(cell)
		case models.ColStopTradeStatus5:
			rec.Flags.StopTradeStatus5, err = parseFlag(cell)
		case models.ColIpoStatus:
			rec.Flags.IpoStatus, err = parseFlag(cell)
		case models.ColSelect:
			rec.Select, err = parseFlag(cell)
		case models.ColScore:
			rec.Score, err = parseNumber(cell, 0)
		case models.ColNextRet:
			rec.NextRet, err = parseNumber(cell, math.NaN())
		case models.ColWeights:
			rec.Weight, err = parseNumber(cell, 0)
		case models.ColPrevWeight:
			rec.PrevWeight, err = parseNumber(cell, 0)
		case models.ColLockedWeight:
			rec.LockedWeight, err = parseNumber(cell, 0)
		default:
			if nonNumeric[name] {
				continue
			}
			v, perr := parseNumber(cell, math.NaN())
			if perr != nil {
				nonNumeric[name] = true
				continue
			}
			if rec.Factors == nil {
				rec.Factors = make(map[string]float64)
			}
			rec.Factors[name] = v
		}
		if err != nil {
			return rec, fmt.Errorf("column %s: %w", name, err)
		}
	}
	return rec, nil
}

func parseNumber(cell string, empty float64) (float64, error) {
	if cell == "" {
		return empty, nil
	}
	return strconv.ParseFloat(cell, 64)
}

// parseFlag accepts integer cells written either as "1" or "1.0"
func parseFlag(cell string) (int, error) {
	if cell == "" {
		return 0, nil
	}
	if v, err := strconv.Atoi(cell); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

func parseCode(cell string) (int64, error) {
	if v, err := strconv.ParseInt(cell, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}

// PanelHeader returns the column order WritePanelCSV emits
func PanelHeader(panel models.Panel) []string {
	header := []string{
		models.ColTradingDay, models.ColSecuCode,
		models.ColTradeStatus, models.ColSwingStatus, models.ColStopTradeStatus3,
		models.ColStopTradeStatus5, models.ColIpoStatus,
		models.ColSelect, models.ColScore, models.ColNextRet,
		models.ColWeights, models.ColPrevWeight, models.ColLockedWeight,
	}
	return append(header, factorNames(panel)...)
}

// WritePanelCSV writes a weighted panel in the layout ReadPanelCSV accepts
func WritePanelCSV(w io.Writer, panel models.Panel) error {
	writer := csv.NewWriter(w)
	factors := factorNames(panel)
	if err := writer.Write(PanelHeader(panel)); err != nil {
		return err
	}

	for _, rec := range panel {
		row := []string{
			rec.TradingDay.Format("2006-01-02"),
			strconv.FormatInt(rec.SecuCode, 10),
			strconv.Itoa(rec.Flags.TradeStatus),
			strconv.Itoa(rec.Flags.SwingStatus),
			strconv.Itoa(rec.Flags.StopTradeStatus3),
			strconv.Itoa(rec.Flags.StopTradeStatus5),
			strconv.Itoa(rec.Flags.IpoStatus),
			strconv.Itoa(rec.Select),
			formatCell(rec.Score),
			formatCell(rec.NextRet),
			formatCell(rec.Weight),
			formatCell(rec.PrevWeight),
			formatCell(rec.LockedWeight),
		}
		for _, name := range factors {
			v, ok := rec.Factors[name]
			if !ok {
				v = math.NaN()
			}
			row = append(row, formatCell(v))
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WritePanelFile writes a weighted panel to path, creating parent directories
func WritePanelFile(path string, panel models.Panel) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create panel file: %w", err)
	}
	if err := WritePanelCSV(f, panel); err != nil {
		f.Close()
		return fmt.Errorf("failed to write panel file: %w", err)
	}
	return f.Close()
}

func formatCell(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func factorNames(panel models.Panel) []string {
	seen := make(map[string]bool)
	var names []string
	for _, rec := range panel {
		for name := range rec.Factors {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}
