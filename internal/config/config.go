// Package config provides configuration management for the equity backtester.
package config

import (
	"fmt"
)

// Data sources a panel can be read from
const (
	SourceCSV      = "csv"
	SourcePostgres = "postgres"
)

// Config represents the complete application configuration
type Config struct {
	App       AppConfig       `mapstructure:"app" validate:"required"`
	Backtest  BacktestConfig  `mapstructure:"backtest" validate:"required"`
	Data      DataConfig      `mapstructure:"data" validate:"required"`
	Selection SelectionConfig `mapstructure:"selection"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Secrets   SecretsConfig   `mapstructure:"secrets"`
	Schedule  ScheduleConfig  `mapstructure:"schedule"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// BacktestConfig represents backtesting configuration
type BacktestConfig struct {
	StartDate              string  `mapstructure:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate                string  `mapstructure:"end_date" validate:"required,datetime=2006-01-02"`
	TransactionFeeRate     float64 `mapstructure:"transaction_fee_rate" validate:"gte=0,lte=0.1"`
	TradingDaysPerYear     int     `mapstructure:"trading_days_per_year" validate:"omitempty,gt=0,lte=366"`
	BenchmarkReturnColumn  string  `mapstructure:"benchmark_return_column"`
	OutputDir              string  `mapstructure:"output_dir" validate:"required"`
	VersionTag             string  `mapstructure:"version_tag" validate:"required"`
	MetricsFilename        string  `mapstructure:"metrics_filename"`
	YearlyFilename         string  `mapstructure:"yearly_filename"`
	SelectedStocksFilename string  `mapstructure:"selected_stocks_filename"`
}

// DataConfig represents where panel and benchmark inputs come from
type DataConfig struct {
	Source                  string `mapstructure:"source" validate:"required,datasource"`
	PanelPath               string `mapstructure:"panel_path"`
	BenchmarkPath           string `mapstructure:"benchmark_path"`
	BenchmarkURL            string `mapstructure:"benchmark_url" validate:"omitempty,url"`
	BenchmarkName           string `mapstructure:"benchmark_name"`
	BenchmarkTimeoutSeconds int    `mapstructure:"benchmark_timeout_seconds" validate:"omitempty,gt=0"`
	BenchmarkRetryAttempts  int    `mapstructure:"benchmark_retry_attempts" validate:"gte=0"`
	WeightsOutputPath       string `mapstructure:"weights_output_path"`
}

// SelectionConfig represents the factor-scoring selector
type SelectionConfig struct {
	Enabled        bool                  `mapstructure:"enabled"`
	UniverseFactor string                `mapstructure:"universe_factor"`
	Threshold      float64               `mapstructure:"threshold" validate:"gte=0"`
	Rules          []SelectionRuleConfig `mapstructure:"rules" validate:"dive"`
}

// SelectionRuleConfig is one scoring rule
type SelectionRuleConfig struct {
	Factor   string  `mapstructure:"factor" validate:"required"`
	Op       string  `mapstructure:"op" validate:"required,oneof=gte_quantile gt_value"`
	Quantile float64 `mapstructure:"quantile" validate:"gte=0,lte=1"`
	Value    float64 `mapstructure:"value"`
	Weight   float64 `mapstructure:"weight" validate:"gt=0"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	Host               string `mapstructure:"host"`
	Port               int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Name               string `mapstructure:"name"`
	User               string `mapstructure:"user"`
	Password           string `mapstructure:"password"`
	SSLMode            string `mapstructure:"ssl_mode" validate:"omitempty,oneof=disable require verify-full"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"gte=0"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"gte=0"`
}

// StorageConfig represents S3 artifact upload configuration
type StorageConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Bucket  string `mapstructure:"bucket"`
	Prefix  string `mapstructure:"prefix"`
	Region  string `mapstructure:"region"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	PushgatewayURL string `mapstructure:"pushgateway_url" validate:"omitempty,url"`
	Job            string `mapstructure:"job"`
}

// SecretsConfig points at an AWS Secrets Manager secret overlaid on the config
type SecretsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Region     string `mapstructure:"region"`
	SecretName string `mapstructure:"secret_name"`
}

// ScheduleConfig drives the long-running scheduled rerun mode
type ScheduleConfig struct {
	Cron              string `mapstructure:"cron"`
	HealthPort        string `mapstructure:"health_port"`
	RunTimeoutMinutes int    `mapstructure:"run_timeout_minutes" validate:"gte=0"`
	RunOnStart        bool   `mapstructure:"run_on_start"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsStaging checks if the application is running in staging mode
func (c *Config) IsStaging() bool {
	return c.App.Environment == "staging"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// UsesDatabase reports whether any component needs a PostgreSQL connection
func (c *Config) UsesDatabase() bool {
	return c.Data.Source == SourcePostgres || c.Database.Enabled
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}
