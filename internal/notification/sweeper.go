package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/ami-notifications/notifier/internal/repository"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Sweeper deletes sent scheduled notifications once the retention window has
// passed since they were sent. Unsent rows are never touched.
type Sweeper struct {
	scheduled repository.ScheduledNotificationRepository
	retention time.Duration
	now       func() time.Time
	logger    zerolog.Logger
}

func NewSweeper(scheduled repository.ScheduledNotificationRepository, retention time.Duration, logger zerolog.Logger) *Sweeper {
	return &Sweeper{
		scheduled: scheduled,
		retention: retention,
		now:       time.Now,
		logger:    logger.With().Str("component", "sweeper").Logger(),
	}
}

func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	return s.DeleteExpiredSent(ctx, s.retention)
}

func (s *Sweeper) DeleteExpiredSent(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, fmt.Errorf("retention window must be positive, got %s", retention)
	}
	cutoff := s.now().Add(-retention)
	deleted, err := s.scheduled.DeleteSentBefore(ctx, cutoff)
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete expired scheduled notifications")
	}

	ScheduledSwept.Add(float64(deleted))
	s.logger.Info().
		Int64("deleted", deleted).
		Time("cutoff", cutoff).
		Msg("retention sweep finished")
	return deleted, nil
}
