package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Custom errors
var (
	ErrMissingField = errors.New("missing required field")
	ErrEmptyPanel   = errors.New("panel has no records")
	ErrInvalidDate  = errors.New("invalid date")
	ErrNotFound     = errors.New("record not found")
)

// ValidationError collects every structural problem found in an input
type ValidationError struct {
	Scope   string
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required columns for %s: [%s]", e.Scope, strings.Join(e.Missing, ", "))
}

// Unwrap allows errors.Is(err, ErrMissingField)
func (e *ValidationError) Unwrap() error {
	return ErrMissingField
}

// ColumnSet records which columns an input source provided
type ColumnSet map[string]bool

// NewColumnSet builds a column set from names
func NewColumnSet(names ...string) ColumnSet {
	set := make(ColumnSet, len(names))
	for _, name := range names {
		set[name] = true
	}
	return set
}

// Names returns the column names in sorted order
func (c ColumnSet) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RequireColumns returns a single ValidationError naming every absent column
func RequireColumns(have ColumnSet, scope string, required ...string) error {
	var missing []string
	for _, col := range required {
		if !have[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &ValidationError{Scope: scope, Missing: missing}
}
