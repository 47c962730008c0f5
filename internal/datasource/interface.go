package datasource

import (
	"context"
	"errors"

	"github.com/yourusername/equity-backtest/internal/models"
)

// PanelSource loads the full security-day panel. Windowing is left to the
// backtest engine because weights depend on the days before the window.
type PanelSource interface {
	// LoadPanel returns the panel and the set of columns it was read with
	LoadPanel(ctx context.Context) (models.Panel, models.ColumnSet, error)

	// Name returns the name of the data source
	Name() string

	// Location describes where the data is read from
	Location() string
}

// BenchmarkSource loads a daily benchmark return series
type BenchmarkSource interface {
	LoadBenchmark(ctx context.Context) (models.BenchmarkSeries, error)
	Name() string
	Location() string
}

// DataSourceError represents errors from data source operations
type DataSourceError struct {
	Source  string // Data source name
	Code    string // Error code (e.g., "invalid_data")
	Message string // Error message
	Err     error  // Underlying error
}

func (e DataSourceError) Error() string {
	if e.Err != nil {
		return e.Source + ": " + e.Code + ": " + e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Source + ": " + e.Code + ": " + e.Message
}

func (e DataSourceError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrCodeNotFound     = "not_found"
	ErrCodeInvalidData  = "invalid_data"
	ErrCodeNetworkError = "network_error"
	ErrCodeServerError  = "server_error"
)

// Error constructors
var (
	ErrInvalidData  = errors.New("invalid data format")
	ErrNetworkError = errors.New("network error")
	ErrServerError  = errors.New("server error")
)

// NewDataSourceError creates a new data source error
func NewDataSourceError(source, code, message string, err error) DataSourceError {
	return DataSourceError{
		Source:  source,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
