package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rt44/backend/internal/domain/shared"
	"github.com/rt44/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in       string
		hour     int
		minute   int
		expectOK bool
	}{
		{"00:05", 0, 5, true},
		{" 9:30 ", 9, 30, true},
		{"23:59", 23, 59, true},
		{"24:00", 0, 0, false},
		{"12:60", 0, 0, false},
		{"0905", 0, 0, false},
		{"ab:cd", 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			h, m, err := ParseTimeOfDay(tt.in)
			if !tt.expectOK {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.hour, h)
			assert.Equal(t, tt.minute, m)
		})
	}
}

func TestDailyRunsFrom(t *testing.T) {
	runs, err := DailyRunsFrom(config.SchedulerConfig{ReminderTime: "07:15"})
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, DailyRun{Kind: JobGenerateDues, Hour: 0, Minute: 5, MonthDay: 1}, runs[0])
	assert.Equal(t, DailyRun{Kind: JobOverdueSweep, Hour: 0, Minute: 10}, runs[1])
	assert.Equal(t, DailyRun{Kind: JobAutoReminders, Hour: 7, Minute: 15}, runs[2])

	_, err = DailyRunsFrom(config.SchedulerConfig{SweepTime: "late"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestConfigFrom(t *testing.T) {
	c := ConfigFrom(config.SchedulerConfig{Enabled: true, MaxConcurrentJobs: 4})
	assert.True(t, c.Enabled)
	assert.Equal(t, 4, c.MaxConcurrentJobs)
	assert.Equal(t, 10*time.Minute, c.JobTimeout)
	assert.Equal(t, 5*time.Minute, c.RetryDelay)
}

type recordingSubmitter struct {
	mu   sync.Mutex
	jobs []*Job
	err  error
}

func (r *recordingSubmitter) Submit(kind JobKind, day time.Time) (*Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	j := NewJob(kind, day, 0)
	r.jobs = append(r.jobs, j)
	return j, nil
}

func TestCronTrigger_CheckAndTrigger(t *testing.T) {
	runs := []DailyRun{
		{Kind: JobGenerateDues, Hour: 0, Minute: 5, MonthDay: 1},
		{Kind: JobOverdueSweep, Hour: 0, Minute: 5},
	}
	jakarta := time.FixedZone("WIB", 7*3600)

	t.Run("month day gate", func(t *testing.T) {
		sub := &recordingSubmitter{}
		c := NewCronTrigger(runs, sub, shared.FixedClock{}, zap.NewNop())

		fired := c.checkAndTrigger(time.Date(2025, 3, 2, 0, 5, 0, 0, jakarta))
		assert.Equal(t, []JobKind{JobOverdueSweep}, fired)

		fired = c.checkAndTrigger(time.Date(2025, 4, 1, 0, 5, 30, 0, jakarta))
		assert.ElementsMatch(t, []JobKind{JobGenerateDues, JobOverdueSweep}, fired)
		// the day is the local calendar date
		assert.Equal(t, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), sub.jobs[1].Day)
	})

	t.Run("fires once per day", func(t *testing.T) {
		sub := &recordingSubmitter{}
		c := NewCronTrigger(runs[1:], sub, shared.FixedClock{}, zap.NewNop())

		at := time.Date(2025, 3, 2, 0, 5, 0, 0, time.UTC)
		assert.Len(t, c.checkAndTrigger(at), 1)
		assert.Empty(t, c.checkAndTrigger(at.Add(40*time.Second)))
		assert.Len(t, c.checkAndTrigger(at.AddDate(0, 0, 1)), 1)
	})

	t.Run("outside the minute", func(t *testing.T) {
		sub := &recordingSubmitter{}
		c := NewCronTrigger(runs, sub, shared.FixedClock{}, zap.NewNop())
		assert.Empty(t, c.checkAndTrigger(time.Date(2025, 3, 1, 0, 6, 0, 0, time.UTC)))
	})

	t.Run("submit failure is logged", func(t *testing.T) {
		sub := &recordingSubmitter{err: ErrJobQueueFull}
		c := NewCronTrigger(runs[1:], sub, shared.FixedClock{}, zaptest.NewLogger(t))
		assert.Empty(t, c.checkAndTrigger(time.Date(2025, 3, 1, 0, 5, 0, 0, time.UTC)))
	})

	t.Run("manual trigger uses the clock", func(t *testing.T) {
		sub := &recordingSubmitter{}
		c := NewCronTrigger(nil, sub, shared.FixedClock{At: time.Date(2025, 6, 9, 15, 0, 0, 0, time.UTC)}, zap.NewNop())
		job, err := c.TriggerNow(JobAutoReminders)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC), job.Day)
	})
}

func TestScheduler_RunsTasks(t *testing.T) {
	var calls atomic.Int32
	days := make(chan time.Time, 1)
	tasks := Tasks{
		JobOverdueSweep: func(ctx context.Context, day time.Time) error {
			calls.Add(1)
			days <- day
			return nil
		},
	}
	s := NewScheduler(DefaultSchedulerConfig(), tasks, zaptest.NewLogger(t))

	_, err := s.Submit(JobOverdueSweep, time.Now())
	assert.ErrorIs(t, err, ErrSchedulerNotRunning)

	require.NoError(t, s.Start(t.Context()))
	day := time.Date(2025, 5, 11, 0, 0, 0, 0, time.UTC)
	_, err = s.Submit(JobOverdueSweep, day)
	require.NoError(t, err)

	select {
	case got := <-days:
		assert.Equal(t, day, got)
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.False(t, s.IsRunning())
	assert.Equal(t, int32(1), calls.Load())
}

func TestScheduler_RetriesFailedJobs(t *testing.T) {
	var attempts atomic.Int32
	done := make(chan struct{})
	tasks := Tasks{
		JobAutoReminders: func(ctx context.Context, day time.Time) error {
			if attempts.Add(1) < 3 {
				return errors.New("gateway down")
			}
			close(done)
			return nil
		},
	}
	cfg := DefaultSchedulerConfig()
	cfg.MaxConcurrentJobs = 1
	cfg.RetryDelay = time.Millisecond
	s := NewScheduler(cfg, tasks, zap.NewNop())
	require.NoError(t, s.Start(t.Context()))
	defer func() { _ = s.Stop(context.Background()) }()

	_, err := s.Submit(JobAutoReminders, time.Now())
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not retried")
	}
	assert.Equal(t, int32(3), attempts.Load())
}

func TestTasks_UnknownKind(t *testing.T) {
	err := Tasks{}.Execute(context.Background(), NewJob(JobGenerateDues, time.Now(), 0))
	assert.ErrorIs(t, err, ErrUnknownJobKind)
}

func TestJobLifecycle(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 5, 0, 0, time.UTC)
	j := NewJob(JobGenerateDues, now, 1)
	assert.Equal(t, JobStatusPending, j.Status)

	j.Start(now)
	j.Fail(now, "boom")
	assert.True(t, j.ShouldRetry())
	j.ScheduleRetry(now, time.Minute)
	assert.Equal(t, now.Add(time.Minute), *j.NextRetryAt)
	assert.Empty(t, j.Error)

	j.Start(now)
	j.Fail(now, "boom")
	assert.False(t, j.ShouldRetry())
}

func TestScheduler_InvalidConfig(t *testing.T) {
	s := NewScheduler(SchedulerConfig{}, Tasks{}, zap.NewNop())
	assert.ErrorIs(t, s.Start(t.Context()), ErrInvalidConfig)
}
