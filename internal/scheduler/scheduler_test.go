package scheduler

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestScheduleRejectsInvalidExpression(t *testing.T) {
	s := NewScheduler(quietLogger(), time.Minute)
	err := s.Schedule("nightly", "not a cron", func(ctx context.Context) error { return nil })
	assert.Error(t, err)
}

func TestStartRequiresJobs(t *testing.T) {
	s := NewScheduler(quietLogger(), time.Minute)
	assert.Error(t, s.Start())
}

func TestRunNowReportsResult(t *testing.T) {
	s := NewScheduler(quietLogger(), time.Minute)
	boom := errors.New("boom")

	calls := 0
	require.NoError(t, s.Schedule("nightly", "0 18 * * 1-5", func(ctx context.Context) error {
		calls++
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return boom
	}))

	var gotName string
	var gotErr error
	s.OnResult(func(name string, finished time.Time, err error) {
		gotName, gotErr = name, err
	})

	err := s.RunNow("nightly")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "nightly", gotName)
	assert.ErrorIs(t, gotErr, boom)

	assert.Error(t, s.RunNow("missing"))
}

func TestStartStopAndNextRun(t *testing.T) {
	s := NewScheduler(quietLogger(), time.Minute)
	require.NoError(t, s.Schedule("nightly", "0 18 * * *", func(ctx context.Context) error { return nil }))

	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())
	assert.Error(t, s.Start())
	assert.Error(t, s.Schedule("other", "@daily", func(ctx context.Context) error { return nil }))

	next := s.GetNextRun()
	assert.False(t, next.IsZero())
	assert.Equal(t, 18, next.UTC().Hour())

	s.Stop()
	assert.False(t, s.IsRunning())
}
