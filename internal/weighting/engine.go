// Package weighting assigns daily portfolio weights under tradability constraints.
package weighting

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/equity-backtest/internal/models"
)

// RequiredColumns lists the panel columns the engine reads
var RequiredColumns = []string{
	models.ColTradeStatus,
	models.ColSwingStatus,
	models.ColStopTradeStatus3,
	models.ColStopTradeStatus5,
	models.ColIpoStatus,
	models.ColTradingDay,
	models.ColSecuCode,
	models.ColSelect,
}

// carry maps a SecuCode to the weight it held on the previous trading day.
// A nil carry means no day has been processed yet.
type carry map[int64]float64

// DaySummary describes the allocation produced for a single trading day
type DaySummary struct {
	Day         time.Time
	Records     int
	Valid       int
	Locked      int
	LockedTotal float64
	Invested    float64
}

// Engine walks trading days in order and assigns weights.
// An Engine is not safe for concurrent use.
type Engine struct {
	logger  *logrus.Logger
	onDay   func(DaySummary)
	summary []DaySummary
}

// NewEngine creates a new weight engine
func NewEngine(logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = logrus.New()
	}
	return &Engine{logger: logger}
}

// OnDay registers a callback invoked after each day is allocated
func (e *Engine) OnDay(fn func(DaySummary)) {
	e.onDay = fn
}

// Summary returns the per-day allocation summary of the last Assign call
func (e *Engine) Summary() []DaySummary {
	return e.summary
}

// Validate checks every record for structurally missing values and reports
// all problems at once.
func Validate(panel models.Panel) error {
	if len(panel) == 0 {
		return models.ErrEmptyPanel
	}
	var missing []string
	seen := map[string]bool{}
	note := func(field string) {
		if !seen[field] {
			seen[field] = true
			missing = append(missing, field)
		}
	}
	for _, rec := range panel {
		if rec.TradingDay.IsZero() {
			note(models.ColTradingDay)
		}
		// code 0 is a valid security; an absent code cell fails at load time
		if rec.SecuCode < 0 {
			note(models.ColSecuCode)
		}
		if rec.Select != 0 && rec.Select != 1 {
			note(models.ColSelect)
		}
	}
	if len(missing) > 0 {
		return &models.ValidationError{Scope: "weighting", Missing: missing}
	}
	return nil
}

// Assign returns a sorted copy of panel with Weight, PrevWeight and
// LockedWeight populated. The input panel is not modified.
func (e *Engine) Assign(panel models.Panel) (models.Panel, error) {
	if err := Validate(panel); err != nil {
		return nil, err
	}

	out := panel.Clone()
	out.Sort()
	days := out.Days()
	if err := checkUniqueCodes(out, days); err != nil {
		return nil, err
	}

	e.logger.WithFields(logrus.Fields{
		"records": len(out),
		"days":    len(days),
	}).Info("Computing weights with trading constraints")

	e.summary = make([]DaySummary, 0, len(days))
	var prev carry
	for _, day := range days {
		records := out[day.Start:day.End]
		weights := allocateDay(records, prev)

		next := make(carry, len(records))
		summary := DaySummary{Day: day.Day, Records: len(records)}
		for i := range records {
			w := weights[i]
			records[i].Weight = w
			// w_prev keeps the post-update weight of the same day
			records[i].PrevWeight = w
			if records[i].Tradable() {
				records[i].LockedWeight = 0
				if records[i].Selected() {
					summary.Valid++
				}
			} else {
				records[i].LockedWeight = w
				if w > 0 {
					summary.Locked++
					summary.LockedTotal += w
				}
			}
			summary.Invested += w
			next[records[i].SecuCode] = w
		}
		prev = next

		e.summary = append(e.summary, summary)
		if e.onDay != nil {
			e.onDay(summary)
		}
		if summary.Valid == 0 && summary.Invested < 1 {
			e.logger.WithFields(logrus.Fields{
				"day":      day.Day.Format("2006-01-02"),
				"invested": summary.Invested,
				"locked":   summary.Locked,
			}).Debug("No valid positions, remaining budget left unallocated")
		}
	}

	return out, nil
}

// allocateDay computes the weight vector of one day given the previous
// day's carry. Records must be sorted by SecuCode.
func allocateDay(records []models.SecurityDay, prev carry) []float64 {
	n := len(records)
	daily := make([]float64, n)

	tradable := make([]bool, n)
	valid := make([]bool, n)
	validCount := 0
	for i := range records {
		tradable[i] = records[i].Tradable()
		valid[i] = tradable[i] && records[i].Selected()
		if valid[i] {
			validCount++
		}
	}

	if prev == nil {
		if validCount > 0 {
			share := 1.0 / float64(validCount)
			for i := range daily {
				if valid[i] {
					daily[i] = share
				}
			}
		}
		return daily
	}

	remaining := 1.0
	for i := range records {
		if tradable[i] {
			continue
		}
		if w, ok := prev[records[i].SecuCode]; ok && w > 0 {
			daily[i] = w
			remaining -= w
		}
	}

	// With no valid record the remaining budget is dropped, not held as cash.
	if remaining > 0 && validCount > 0 {
		share := remaining / float64(validCount)
		for i := range daily {
			if valid[i] {
				daily[i] += share
			}
		}
	}
	return daily
}

func checkUniqueCodes(panel models.Panel, days []models.DayRange) error {
	for _, day := range days {
		for i := day.Start + 1; i < day.End; i++ {
			if panel[i].SecuCode == panel[i-1].SecuCode {
				return fmt.Errorf("duplicate SecuCode %d on %s", panel[i].SecuCode, day.Day.Format("2006-01-02"))
			}
		}
	}
	return nil
}
