package temporal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.temporal.io/sdk/client"
	sdktemporal "go.temporal.io/sdk/temporal"
)

// ScheduleCreator is satisfied by client.ScheduleClient.
type ScheduleCreator interface {
	Create(ctx context.Context, options client.ScheduleOptions) (client.ScheduleHandle, error)
}

type jobSchedule struct {
	id       string
	workflow string
	every    time.Duration
}

// EnsureSchedules registers the interval schedules that trigger the publish
// and sweep workflows. Schedules that already exist are left as they are.
func EnsureSchedules(ctx context.Context, schedules ScheduleCreator, publishEvery, sweepEvery time.Duration, logger zerolog.Logger) error {
	jobs := []jobSchedule{
		{id: PublishDueScheduleID, workflow: PublishDueWorkflowName, every: publishEvery},
		{id: SweepScheduleID, workflow: SweepWorkflowName, every: sweepEvery},
	}

	for _, job := range jobs {
		if job.every <= 0 {
			return fmt.Errorf("schedule %s: interval must be positive", job.id)
		}
		_, err := schedules.Create(ctx, client.ScheduleOptions{
			ID: job.id,
			Spec: client.ScheduleSpec{
				Intervals: []client.ScheduleIntervalSpec{{Every: job.every}},
			},
			Action: &client.ScheduleWorkflowAction{
				ID:        job.id + "-run",
				Workflow:  job.workflow,
				TaskQueue: TaskQueueName,
			},
		})
		if errors.Is(err, sdktemporal.ErrScheduleAlreadyRunning) {
			logger.Debug().Str("schedule_id", job.id).Msg("schedule already registered")
			continue
		}
		if err != nil {
			return fmt.Errorf("create schedule %s: %w", job.id, err)
		}
		logger.Info().
			Str("schedule_id", job.id).
			Dur("every", job.every).
			Msg("schedule registered")
	}
	return nil
}
