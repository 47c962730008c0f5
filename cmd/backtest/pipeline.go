package main

import (
	"context"
	"fmt"
	"time"

	"github.com/yourusername/equity-backtest/internal/config"
	"github.com/yourusername/equity-backtest/internal/database"
	"github.com/yourusername/equity-backtest/internal/datasource"
	applogger "github.com/yourusername/equity-backtest/internal/logger"
	"github.com/yourusername/equity-backtest/internal/metrics"
	"github.com/yourusername/equity-backtest/internal/models"
	"github.com/yourusername/equity-backtest/internal/repository"
	"github.com/yourusername/equity-backtest/internal/selection"
	"github.com/yourusername/equity-backtest/internal/weighting"
)

// pipeline owns the connections and sources shared by the subcommands
type pipeline struct {
	db      *database.DB
	repos   *repository.Repositories
	factory *datasource.Factory
	data    *applogger.DataLogger
}

func newPipeline(ctx context.Context) (*pipeline, error) {
	p := &pipeline{data: applogger.NewDataLogger(logger)}

	if cfg.UsesDatabase() {
		db, err := database.Initialize(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		repos, err := repository.NewRepositories(db)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize repositories: %w", err)
		}
		p.db = db
		p.repos = repos
	}

	p.factory = datasource.NewFactory(cfg, logger, p.repos)
	return p, nil
}

func (p *pipeline) Close() {
	if p.factory != nil {
		_ = p.factory.Close()
	}
	if p.db != nil {
		p.db.Close()
	}
}

// weightedPanel loads the panel, applies the selector when enabled and
// assigns weights
func (p *pipeline) weightedPanel(ctx context.Context, bl *applogger.BacktestLogger) (models.Panel, models.ColumnSet, error) {
	src, err := p.factory.PanelSource()
	if err != nil {
		return nil, nil, err
	}
	panel, columns, err := datasource.LoadPanel(ctx, src, p.data)
	if err != nil {
		return nil, nil, err
	}

	if cfg.Selection.Enabled {
		started := time.Now()
		selector, err := selection.NewSelector(selectionConfig(cfg.Selection), logger)
		if err != nil {
			return nil, nil, err
		}
		panel, err = selector.Apply(panel)
		if err != nil {
			return nil, nil, fmt.Errorf("selection failed: %w", err)
		}
		columns[models.ColSelect] = true
		columns[models.ColScore] = true
		metrics.RecordSelected(countSelected(panel))
		metrics.ObserveStageDuration("selection", time.Since(started).Seconds())
	}

	if err := models.RequireColumns(columns, "weighting", weighting.RequiredColumns...); err != nil {
		return nil, nil, err
	}

	started := time.Now()
	engine := weighting.NewEngine(logger)
	engine.OnDay(func(s weighting.DaySummary) {
		metrics.RecordWeightingDay(s.Valid, s.LockedTotal, s.Invested)
		bl.LogWeighting(s.Day, s.Records, s.Valid, s.Locked, s.LockedTotal, s.Invested)
	})
	weighted, err := engine.Assign(panel)
	if err != nil {
		return nil, nil, fmt.Errorf("weighting failed: %w", err)
	}
	columns[models.ColWeights] = true
	metrics.ObserveStageDuration("weighting", time.Since(started).Seconds())

	return weighted, columns, nil
}

func (p *pipeline) benchmark(ctx context.Context) (models.BenchmarkSeries, error) {
	src, err := p.factory.BenchmarkSource()
	if err != nil {
		return nil, err
	}
	return datasource.LoadBenchmark(ctx, src, cfg.Backtest.BenchmarkReturnColumn, p.data)
}

func selectionConfig(sc config.SelectionConfig) selection.Config {
	out := selection.Config{
		UniverseFactor: sc.UniverseFactor,
		Threshold:      sc.Threshold,
	}
	for _, r := range sc.Rules {
		out.Rules = append(out.Rules, selection.Rule{
			Factor:   r.Factor,
			Op:       selection.Op(r.Op),
			Quantile: r.Quantile,
			Value:    r.Value,
			Weight:   r.Weight,
		})
	}
	return out
}

func countSelected(panel models.Panel) int {
	n := 0
	for _, rec := range panel {
		if rec.Selected() {
			n++
		}
	}
	return n
}
