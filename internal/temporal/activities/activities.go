package activities

import (
	"context"

	"github.com/ami-notifications/notifier/internal/notification"
	"github.com/pkg/errors"
	"go.temporal.io/sdk/activity"
)

type DuePublisher interface {
	PublishDue(ctx context.Context) (notification.PublishReport, error)
}

type RetentionSweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

type Activities struct {
	Publisher DuePublisher
	Sweeper   RetentionSweeper
}

func (a *Activities) PublishDueActivity(ctx context.Context) (notification.PublishReport, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Publishing due scheduled notifications")

	report, err := a.Publisher.PublishDue(ctx)
	if err != nil {
		logger.Error("Failed to publish due scheduled notifications", "error", err)
		return report, errors.Wrap(err, "publish due")
	}
	logger.Info("Published due scheduled notifications",
		"candidates", report.Candidates,
		"published", report.Published,
		"skipped", report.Skipped,
		"failed", report.Failed)
	return report, nil
}

func (a *Activities) SweepActivity(ctx context.Context) (int64, error) {
	logger := activity.GetLogger(ctx)

	deleted, err := a.Sweeper.Sweep(ctx)
	if err != nil {
		logger.Error("Retention sweep failed", "error", err)
		return 0, errors.Wrap(err, "retention sweep")
	}
	logger.Info("Retention sweep finished", "deleted", deleted)
	return deleted, nil
}
