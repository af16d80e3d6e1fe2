package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/ami-notifications/notifier/internal/repository"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type PublishReport struct {
	Candidates int `json:"candidates"`
	Published  int `json:"published"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

func (r PublishReport) String() string {
	return fmt.Sprintf("candidates=%d published=%d skipped=%d failed=%d", r.Candidates, r.Published, r.Skipped, r.Failed)
}

// Publisher materializes due scheduled notifications. Each candidate is
// claimed under a row lock, so concurrent publishers create at most one
// notification per scheduled row.
type Publisher struct {
	scheduled  repository.ScheduledNotificationRepository
	dispatcher NotificationDispatcher
	now        func() time.Time
	logger     zerolog.Logger
}

func NewPublisher(scheduled repository.ScheduledNotificationRepository, dispatcher NotificationDispatcher, logger zerolog.Logger) *Publisher {
	return &Publisher{
		scheduled:  scheduled,
		dispatcher: dispatcher,
		now:        time.Now,
		logger:     logger.With().Str("component", "publisher").Logger(),
	}
}

// PublishDue fails only when the candidate scan fails. A store error on one
// row leaves it due for the next run.
func (p *Publisher) PublishDue(ctx context.Context) (PublishReport, error) {
	var report PublishReport

	due, err := p.scheduled.ListDue(ctx, p.now())
	if err != nil {
		return report, errors.Wrap(err, "failed to list due scheduled notifications")
	}
	report.Candidates = len(due)

	for _, candidate := range due {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		notif, claimed, err := p.scheduled.Claim(ctx, candidate.ID, p.now())
		if err != nil {
			report.Failed++
			ScheduledPublishFailed.Inc()
			p.logger.Error().Err(err).
				Str("scheduled_notification_id", candidate.ID).
				Str("user_id", candidate.UserID).
				Msg("failed to publish scheduled notification")
			continue
		}
		if !claimed {
			report.Skipped++
			ScheduledClaimSkipped.Inc()
			p.logger.Debug().
				Str("scheduled_notification_id", candidate.ID).
				Msg("scheduled notification already claimed")
			continue
		}

		report.Published++
		ScheduledPublished.Inc()
		p.logger.Info().
			Str("scheduled_notification_id", candidate.ID).
			Str("notification_id", notif.ID).
			Str("user_id", notif.UserID).
			Str("reference", candidate.Reference).
			Msg("scheduled notification published")

		p.dispatcher.Dispatch(ctx, notif, true)
	}

	return report, nil
}
