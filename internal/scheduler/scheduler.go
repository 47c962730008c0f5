// Package scheduler reruns backtest jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Job is one scheduled unit of work
type Job func(ctx context.Context) error

type namedJob struct {
	name    string
	entryID cron.EntryID
	run     Job
}

// Scheduler manages scheduled backtest jobs
type Scheduler struct {
	cron       *cron.Cron
	logger     *logrus.Logger
	jobTimeout time.Duration

	mu        sync.RWMutex
	isRunning bool
	jobs      []namedJob
	onResult  func(name string, finished time.Time, err error)
}

// NewScheduler creates a new scheduler. Overlapping runs of the same job are skipped.
func NewScheduler(logger *logrus.Logger, jobTimeout time.Duration) *Scheduler {
	if logger == nil {
		logger = logrus.New()
	}
	if jobTimeout <= 0 {
		jobTimeout = time.Hour
	}
	cronLogger := cron.PrintfLogger(logger.WithField("component", "scheduler"))
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		logger:     logger,
		jobTimeout: jobTimeout,
	}
}

// OnResult registers a callback invoked after every job execution
func (s *Scheduler) OnResult(fn func(name string, finished time.Time, err error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onResult = fn
}

// Schedule adds a job under a cron expression
func (s *Scheduler) Schedule(name, cronExpression string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}

	entryID, err := s.cron.AddFunc(cronExpression, func() { s.execute(name, job) })
	if err != nil {
		return fmt.Errorf("failed to add job %s: %w", name, err)
	}

	s.jobs = append(s.jobs, namedJob{name: name, entryID: entryID, run: job})
	s.logger.WithFields(logrus.Fields{"job": name, "cron": cronExpression}).Info("Scheduled job")
	return nil
}

// RunNow executes a scheduled job synchronously
func (s *Scheduler) RunNow(name string) error {
	s.mu.RLock()
	var job Job
	for _, j := range s.jobs {
		if j.name == name {
			job = j.run
		}
	}
	s.mu.RUnlock()

	if job == nil {
		return fmt.Errorf("unknown job: %s", name)
	}
	return s.execute(name, job)
}

func (s *Scheduler) execute(name string, job Job) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()

	started := time.Now()
	entry := s.logger.WithField("job", name)
	entry.Info("Starting scheduled job")

	err := job(ctx)
	if err != nil {
		entry.WithError(err).Error("Scheduled job failed")
	} else {
		entry.WithField("duration_ms", time.Since(started).Milliseconds()).Info("Scheduled job completed")
	}

	s.mu.RLock()
	onResult := s.onResult
	s.mu.RUnlock()
	if onResult != nil {
		onResult(name, time.Now(), err)
	}
	return err
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}
	if len(s.jobs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobs)).Info("Scheduler started")
	return nil
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}
	<-s.cron.Stop().Done()
	s.isRunning = false
	s.logger.Info("Scheduler stopped")
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRun returns the time of the next scheduled job run
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nextRun := time.Time{}
	for _, j := range s.jobs {
		entry := s.cron.Entry(j.entryID)
		if entry.Valid() && !entry.Next.IsZero() {
			if nextRun.IsZero() || entry.Next.Before(nextRun) {
				nextRun = entry.Next
			}
		}
	}
	return nextRun
}
