package workflows

import (
	"time"

	"github.com/ami-notifications/notifier/internal/notification"
	"github.com/ami-notifications/notifier/internal/temporal"
	"github.com/ami-notifications/notifier/internal/temporal/activities"
	sdktemporal "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
)

func jobOptions(ctx workflow.Context) workflow.Context {
	return workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: temporal.DefaultActivityTimeout,
		// Runs are idempotent; the next scheduled run picks up anything left.
		RetryPolicy: &sdktemporal.RetryPolicy{
			InitialInterval:    5 * time.Second,
			BackoffCoefficient: 2,
			MaximumAttempts:    3,
		},
	})
}

func PublishDueWorkflow(ctx workflow.Context) (notification.PublishReport, error) {
	ctx = jobOptions(ctx)
	logger := workflow.GetLogger(ctx)

	var a *activities.Activities
	var report notification.PublishReport
	if err := workflow.ExecuteActivity(ctx, a.PublishDueActivity).Get(ctx, &report); err != nil {
		logger.Error("Publish due run failed.", "error", err)
		return report, err
	}
	logger.Info("Publish due run completed.", "published", report.Published)
	return report, nil
}

func SweepWorkflow(ctx workflow.Context) (int64, error) {
	ctx = jobOptions(ctx)
	logger := workflow.GetLogger(ctx)

	var a *activities.Activities
	var deleted int64
	if err := workflow.ExecuteActivity(ctx, a.SweepActivity).Get(ctx, &deleted); err != nil {
		logger.Error("Retention sweep run failed.", "error", err)
		return 0, err
	}
	logger.Info("Retention sweep run completed.", "deleted", deleted)
	return deleted, nil
}

// Register wires the job workflows under the names used by the schedules.
func Register(w worker.Registry, acts *activities.Activities) {
	w.RegisterWorkflowWithOptions(PublishDueWorkflow, workflow.RegisterOptions{Name: temporal.PublishDueWorkflowName})
	w.RegisterWorkflowWithOptions(SweepWorkflow, workflow.RegisterOptions{Name: temporal.SweepWorkflowName})
	w.RegisterActivity(acts)
}
