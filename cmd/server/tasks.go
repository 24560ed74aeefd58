package main

import (
	"context"
	"time"

	appdues "github.com/rt44/backend/internal/application/dues"
	appreminder "github.com/rt44/backend/internal/application/reminder"
	"github.com/rt44/backend/internal/domain/shared/valueobject"
	"github.com/rt44/backend/internal/infrastructure/scheduler"
	"github.com/rt44/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// scheduledTasks binds each recurring job kind to its service call. day is
// the business day the job was triggered for.
func scheduledTasks(duesService *appdues.DuesService, reminders *appreminder.ReminderService, log *zap.Logger) scheduler.Tasks {
	return scheduler.Tasks{
		scheduler.JobGenerateDues: func(ctx context.Context, day time.Time) error {
			period := valueobject.PeriodOf(day)
			res, err := duesService.Generate(ctx, &period)
			if err != nil {
				return err
			}
			log.Info("Monthly dues generated",
				zap.String("period", res.Period),
				zap.Int("created", res.Created),
				zap.Int("skipped", res.Skipped),
				zap.Int("subsidized", res.Subsidized),
			)
			return nil
		},
		scheduler.JobOverdueSweep: func(ctx context.Context, day time.Time) error {
			changed, err := duesService.SweepOverdue(ctx, day)
			if err != nil {
				return err
			}
			log.Info("Overdue sweep finished", zap.Time("today", day), zap.Int("changed", changed))
			return nil
		},
		scheduler.JobAutoReminders: func(ctx context.Context, _ time.Time) error {
			res, err := reminders.SendAuto(ctx)
			if err != nil {
				return err
			}
			if !res.Enabled {
				log.Debug("Auto reminder disabled, nothing sent")
				return nil
			}
			log.Info("Auto reminders sent",
				zap.Int("considered", res.Considered),
				zap.Int("sent", res.Sent),
				zap.Int("skipped", res.Skipped),
				zap.Int("failed", res.Failed),
			)
			return nil
		},
	}
}

// profiledExecutor labels each job run in CPU profiles with its kind
type profiledExecutor struct {
	next scheduler.JobExecutor
}

func (e profiledExecutor) Execute(ctx context.Context, job *scheduler.Job) error {
	return telemetry.ProfileJob(ctx, string(job.Kind), func(ctx context.Context) error {
		return e.next.Execute(ctx, job)
	})
}
