package logger

import (
	"github.com/sirupsen/logrus"
)

// DataLogger logs input loading and artifact shipping.
type DataLogger struct {
	*logrus.Entry
}

// NewDataLogger creates a new data logger.
func NewDataLogger(baseLogger *logrus.Logger) *DataLogger {
	return &DataLogger{
		Entry: baseLogger.WithField("component", "data"),
	}
}

// LogPanelLoaded logs a loaded security-day panel.
func (dl *DataLogger) LogPanelLoaded(source, location string, records int, columns []string) {
	dl.WithFields(logrus.Fields{
		"source":   source,
		"location": location,
		"records":  records,
		"columns":  columns,
	}).Info("Panel loaded")
}

// LogBenchmarkLoaded logs a loaded benchmark series.
func (dl *DataLogger) LogBenchmarkLoaded(source, location, column string, points int) {
	dl.WithFields(logrus.Fields{
		"source":   source,
		"location": location,
		"column":   column,
		"points":   points,
	}).Info("Benchmark loaded")
}

// LogUpload logs an artifact shipped to object storage.
func (dl *DataLogger) LogUpload(bucket, key string, bytes int64) {
	dl.WithFields(logrus.Fields{
		"bucket": bucket,
		"key":    key,
		"bytes":  bytes,
	}).Info("Artifact uploaded")
}
