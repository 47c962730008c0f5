package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yourusername/equity-backtest/internal/health"
	"github.com/yourusername/equity-backtest/internal/scheduler"
)

const scheduledJob = "backtest"

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Rerun the backtest on a cron schedule",
	Long: `Keeps running and reruns the full pipeline whenever the cron expression
in schedule.cron fires, so results track newly landed panel data. Serves
/health, /ready and /metrics on schedule.health_port.`,
	RunE: runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A long-lived connection is only needed for readiness pings; runs open their own.
	p, err := newPipeline(ctx)
	if err != nil {
		return err
	}
	defer p.Close()

	hcfg := health.Config{
		ServiceName: cfg.App.Name,
		Version:     Version,
		Commit:      GitCommit,
		Port:        cfg.Schedule.HealthPort,
		Logger:      logger,
	}
	if p.db != nil {
		hcfg.DB = p.db
	}
	server := health.NewServer(hcfg)
	if err := server.Start(ctx); err != nil {
		return err
	}

	timeout := time.Duration(cfg.Schedule.RunTimeoutMinutes) * time.Minute
	sched := scheduler.NewScheduler(logger, timeout)
	sched.OnResult(func(name string, finished time.Time, err error) {
		server.RecordRun(finished, err)
	})
	if err := sched.Schedule(scheduledJob, cfg.Schedule.Cron, executeRun); err != nil {
		return err
	}

	if cfg.Schedule.RunOnStart {
		_ = sched.RunNow(scheduledJob)
	}
	if err := sched.Start(); err != nil {
		return err
	}
	logger.WithField("next_run", sched.GetNextRun().Format(time.RFC3339)).Info("Waiting for next scheduled run")

	<-ctx.Done()
	sched.Stop()
	return server.Shutdown()
}
