// Package selection scores securities against per-day factor percentile thresholds.
package selection

import (
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/equity-backtest/internal/models"
)

// Op is the comparison a rule applies to a factor value
type Op string

// Supported rule operations
const (
	OpGTEQuantile Op = "gte_quantile"
	OpGTValue     Op = "gt_value"
)

// Rule awards Weight points when a factor passes its test
type Rule struct {
	Factor   string
	Op       Op
	Quantile float64
	Value    float64
	Weight   float64
}

// Config defines the universe filter, scoring rules and selection threshold
type Config struct {
	UniverseFactor string
	Rules          []Rule
	Threshold      float64
}

// DefaultConfig returns the low-beta dividend rule set
func DefaultConfig() Config {
	return Config{
		UniverseFactor: "lowbeta_pool",
		Threshold:      6.0,
		Rules: []Rule{
			{Factor: "ep", Op: OpGTEQuantile, Quantile: 0.7, Weight: 1.0},
			{Factor: "bp", Op: OpGTEQuantile, Quantile: 0.5, Weight: 1.0},
			{Factor: "dividend_years", Op: OpGTValue, Value: 3, Weight: 0.5},
			{Factor: "roe", Op: OpGTValue, Value: 0, Weight: 0.5},
			{Factor: "dp", Op: OpGTEQuantile, Quantile: 0.7, Weight: 1.0},
			{Factor: "eps_growth", Op: OpGTEQuantile, Quantile: 0.7, Weight: 1.0},
			{Factor: "op_growth", Op: OpGTEQuantile, Quantile: 0.7, Weight: 0.5},
			{Factor: "np_growth", Op: OpGTValue, Value: 0, Weight: 0.5},
			{Factor: "ocfp", Op: OpGTEQuantile, Quantile: 0.6, Weight: 1.0},
			{Factor: "sfhp", Op: OpGTEQuantile, Quantile: 0.8, Weight: 0.5},
		},
	}
}

// Validate checks the rule set
func (c Config) Validate() error {
	if c.UniverseFactor == "" {
		return fmt.Errorf("universe factor is required")
	}
	if len(c.Rules) == 0 {
		return fmt.Errorf("at least one selection rule is required")
	}
	for i, r := range c.Rules {
		if r.Factor == "" {
			return fmt.Errorf("rule %d: factor is required", i)
		}
		switch r.Op {
		case OpGTEQuantile:
			if r.Quantile < 0 || r.Quantile > 1 {
				return fmt.Errorf("rule %d (%s): quantile must be between 0 and 1", i, r.Factor)
			}
		case OpGTValue:
		default:
			return fmt.Errorf("rule %d (%s): unsupported op %q", i, r.Factor, r.Op)
		}
	}
	return nil
}

// Factors returns every factor name the configuration reads
func (c Config) Factors() []string {
	seen := map[string]bool{c.UniverseFactor: true}
	names := []string{c.UniverseFactor}
	for _, r := range c.Rules {
		if !seen[r.Factor] {
			seen[r.Factor] = true
			names = append(names, r.Factor)
		}
	}
	return names
}

// Selector assigns Select and Score to every record of a panel
type Selector struct {
	config Config
	logger *logrus.Logger
}

// NewSelector creates a selector from a validated configuration
func NewSelector(cfg Config, logger *logrus.Logger) (*Selector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid selection config: %w", err)
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Selector{config: cfg, logger: logger}, nil
}

// Apply returns a sorted copy of panel with Select and Score populated.
// Records outside the universe get select=0 and score=0.
func (s *Selector) Apply(panel models.Panel) (models.Panel, error) {
	if len(panel) == 0 {
		return nil, models.ErrEmptyPanel
	}
	if err := s.checkFactors(panel); err != nil {
		return nil, err
	}

	out := panel.Clone()
	out.Sort()

	selected := 0
	for _, day := range out.Days() {
		records := out[day.Start:day.End]
		universe := universeOf(records, s.config.UniverseFactor)

		scores := make([]float64, len(universe))
		for _, rule := range s.config.Rules {
			values := factorColumn(records, universe, rule.Factor)
			cut := rule.Value
			if rule.Op == OpGTEQuantile {
				cut = Quantile(values, rule.Quantile)
			}
			for k, v := range values {
				if passes(rule.Op, v, cut) {
					scores[k] += rule.Weight
				}
			}
		}

		for i := range records {
			records[i].Select = 0
			records[i].Score = 0
		}
		for k, idx := range universe {
			records[idx].Score = scores[k]
			if scores[k] >= s.config.Threshold {
				records[idx].Select = 1
				selected++
			}
		}
	}

	s.logger.WithFields(logrus.Fields{
		"records":  len(out),
		"selected": selected,
	}).Info("Selection scores computed")
	return out, nil
}

func (s *Selector) checkFactors(panel models.Panel) error {
	present := models.ColumnSet{}
	for _, rec := range panel {
		for name := range rec.Factors {
			present[name] = true
		}
	}
	return models.RequireColumns(present, "selection", s.config.Factors()...)
}

func universeOf(records []models.SecurityDay, factor string) []int {
	idx := make([]int, 0, len(records))
	for i := range records {
		if v, ok := records[i].Factors[factor]; ok && v > 0 {
			idx = append(idx, i)
		}
	}
	return idx
}

func factorColumn(records []models.SecurityDay, universe []int, factor string) []float64 {
	values := make([]float64, len(universe))
	for k, idx := range universe {
		v, ok := records[idx].Factors[factor]
		if !ok {
			v = math.NaN()
		}
		values[k] = v
	}
	return values
}

func passes(op Op, v, cut float64) bool {
	if math.IsNaN(v) || math.IsNaN(cut) {
		return false
	}
	if op == OpGTEQuantile {
		return v >= cut
	}
	return v > cut
}

// Quantile returns the q-th quantile of values using linear interpolation
// between closest ranks, position (n-1)*q. NaN values are ignored; an
// input without finite values yields NaN.
func Quantile(values []float64, q float64) float64 {
	sorted := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			sorted = append(sorted, v)
		}
	}
	if len(sorted) == 0 {
		return math.NaN()
	}
	sort.Float64s(sorted)

	pos := float64(len(sorted)-1) * q
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
