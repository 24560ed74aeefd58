package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rt44/backend/internal/domain/shared"
	"github.com/rt44/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// DailyRun fires a job kind once a day at Hour:Minute. A non-zero MonthDay
// limits it to that day of the month.
type DailyRun struct {
	Kind     JobKind
	Hour     int
	Minute   int
	MonthDay int
}

func (r DailyRun) due(now time.Time) bool {
	if r.MonthDay != 0 && now.Day() != r.MonthDay {
		return false
	}
	return now.Hour() == r.Hour && now.Minute() == r.Minute
}

// ParseTimeOfDay reads "HH:MM" in 24h format
func ParseTimeOfDay(s string) (hour, minute int, err error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, 0, fmt.Errorf("%w: time of day %q is not HH:MM", ErrInvalidConfig, s)
	}
	if hour, err = strconv.Atoi(h); err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: hour must be 0-23, got %q", ErrInvalidConfig, h)
	}
	if minute, err = strconv.Atoi(m); err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: minute must be 0-59, got %q", ErrInvalidConfig, m)
	}
	return hour, minute, nil
}

// DailyRunsFrom builds the standard schedule: dues on the 1st, the overdue
// sweep and the auto reminders every day.
func DailyRunsFrom(cfg config.SchedulerConfig) ([]DailyRun, error) {
	specs := []struct {
		kind     JobKind
		at       string
		fallback string
		monthDay int
	}{
		{JobGenerateDues, cfg.GenerateTime, "00:05", 1},
		{JobOverdueSweep, cfg.SweepTime, "00:10", 0},
		{JobAutoReminders, cfg.ReminderTime, "09:00", 0},
	}

	runs := make([]DailyRun, 0, len(specs))
	for _, s := range specs {
		at := s.at
		if at == "" {
			at = s.fallback
		}
		hour, minute, err := ParseTimeOfDay(at)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.kind, err)
		}
		runs = append(runs, DailyRun{Kind: s.kind, Hour: hour, Minute: minute, MonthDay: s.monthDay})
	}
	return runs, nil
}

// JobSubmitter accepts jobs; *Scheduler implements it
type JobSubmitter interface {
	Submit(kind JobKind, day time.Time) (*Job, error)
}

// CronTrigger checks the clock periodically and submits each DailyRun at
// most once per calendar day.
type CronTrigger struct {
	runs          []DailyRun
	submitter     JobSubmitter
	clock         shared.Clock
	checkInterval time.Duration
	logger        *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	lastRun   map[JobKind]string
}

// NewCronTrigger creates a new cron trigger
func NewCronTrigger(runs []DailyRun, submitter JobSubmitter, clock shared.Clock, logger *zap.Logger) *CronTrigger {
	return &CronTrigger{
		runs:          runs,
		submitter:     submitter,
		clock:         clock,
		checkInterval: 20 * time.Second,
		logger:        logger,
		lastRun:       make(map[JobKind]string),
	}
}

// Start starts the cron trigger
func (c *CronTrigger) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = true
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.runLoop(ctx)

	for _, r := range c.runs {
		c.logger.Info("Daily job registered",
			zap.String("kind", string(r.Kind)),
			zap.String("at", fmt.Sprintf("%02d:%02d", r.Hour, r.Minute)),
			zap.Int("month_day", r.MonthDay),
		)
	}
	return nil
}

// Stop stops the cron trigger
func (c *CronTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("Cron trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *CronTrigger) runLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.checkAndTrigger(c.clock.Now())
		}
	}
}

// checkAndTrigger submits every run due at now that has not fired today.
// It returns the kinds submitted.
func (c *CronTrigger) checkAndTrigger(now time.Time) []JobKind {
	today := shared.Today(now)
	key := today.Format(time.DateOnly)

	var fired []JobKind
	for _, r := range c.runs {
		if !r.due(now) {
			continue
		}
		c.mu.Lock()
		if c.lastRun[r.Kind] == key {
			c.mu.Unlock()
			continue
		}
		c.lastRun[r.Kind] = key
		c.mu.Unlock()

		if _, err := c.submitter.Submit(r.Kind, today); err != nil {
			c.logger.Error("Failed to submit daily job", zap.String("kind", string(r.Kind)), zap.Error(err))
			continue
		}
		fired = append(fired, r.Kind)
	}
	return fired
}

// TriggerNow submits a job immediately regardless of the schedule
func (c *CronTrigger) TriggerNow(kind JobKind) (*Job, error) {
	return c.submitter.Submit(kind, shared.Today(c.clock.Now()))
}
