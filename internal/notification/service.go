package notification

import (
	"context"
	"strings"
	"time"

	"github.com/ami-notifications/notifier/internal/eventbus"
	"github.com/ami-notifications/notifier/internal/models"
	"github.com/ami-notifications/notifier/internal/repository"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// ErrInvalidInput is returned for caller mistakes; handlers map it to 400.
var ErrInvalidInput = errors.New("invalid input")

const (
	WelcomeReference = "welcome"
	WelcomeTitle     = "Bienvenue sur AMI"
	WelcomeBody      = "Vous recevrez ici les notifications concernant vos démarches administratives."
	WelcomeIcon      = "/images/logo.png"
)

type Service interface {
	CreateOrReschedule(ctx context.Context, in models.ScheduledNotificationInput) (string, bool, error)
	ScheduleWelcome(ctx context.Context, userID string) (string, bool, error)
	PublishDue(ctx context.Context) (PublishReport, error)
	Sweep(ctx context.Context) (int64, error)
	DeleteExpiredSent(ctx context.Context, retention time.Duration) (int64, error)
	CreateAndDispatch(ctx context.Context, in models.NotificationInput, tryPush bool) (models.Notification, error)
	DispatchByID(ctx context.Context, notificationID string, tryPush bool) error
	List(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	SetRead(ctx context.Context, userID, notificationID string, read bool) (models.Notification, error)
}

type ServiceConfig struct {
	Notifications repository.NotificationRepository
	Scheduled     repository.ScheduledNotificationRepository
	Dispatcher    NotificationDispatcher
	Publisher     *Publisher
	Sweeper       *Sweeper
	Events        eventbus.Publisher
	Logger        zerolog.Logger
}

type service struct {
	notifications repository.NotificationRepository
	scheduled     repository.ScheduledNotificationRepository
	dispatcher    NotificationDispatcher
	publisher     *Publisher
	sweeper       *Sweeper
	events        eventbus.Publisher
	now           func() time.Time
	logger        zerolog.Logger
}

func NewService(cfg ServiceConfig) Service {
	return &service{
		notifications: cfg.Notifications,
		scheduled:     cfg.Scheduled,
		dispatcher:    cfg.Dispatcher,
		publisher:     cfg.Publisher,
		sweeper:       cfg.Sweeper,
		events:        cfg.Events,
		now:           time.Now,
		logger:        cfg.Logger.With().Str("component", "notification_service").Logger(),
	}
}

// CreateOrReschedule stores the scheduled notification keyed by
// (user, reference). created is false when an existing row was updated or
// was already sent. A row that is already due is published right away.
func (s *service) CreateOrReschedule(ctx context.Context, in models.ScheduledNotificationInput) (string, bool, error) {
	in.UserID = strings.TrimSpace(in.UserID)
	in.Reference = strings.TrimSpace(in.Reference)
	in.ContentTitle = strings.TrimSpace(in.ContentTitle)
	in.Sender = strings.TrimSpace(in.Sender)
	switch {
	case in.UserID == "":
		return "", false, errors.Wrap(ErrInvalidInput, "user id is required")
	case in.Reference == "":
		return "", false, errors.Wrap(ErrInvalidInput, "reference is required")
	case in.ContentTitle == "":
		return "", false, errors.Wrap(ErrInvalidInput, "content title is required")
	case in.ScheduledAt.IsZero():
		return "", false, errors.Wrap(ErrInvalidInput, "scheduled_at is required")
	}
	if in.Sender == "" {
		in.Sender = models.DefaultSender
	}

	id, created, err := s.scheduled.CreateOrReschedule(ctx, in)
	if err != nil {
		s.logger.Error().Err(err).
			Str("user_id", in.UserID).
			Str("reference", in.Reference).
			Msg("failed to store scheduled notification")
		return "", false, err
	}

	if !in.ScheduledAt.After(s.now()) && s.publisher != nil {
		// Claimed rows must be dispatched even if the caller goes away.
		report, err := s.publisher.PublishDue(context.WithoutCancel(ctx))
		if err != nil {
			s.logger.Error().Err(err).Str("scheduled_notification_id", id).Msg("immediate publication failed")
		} else {
			s.logger.Debug().Stringer("report", report).Msg("immediate publication finished")
		}
	}
	return id, created, nil
}

// ScheduleWelcome is triggered on a user's first login.
func (s *service) ScheduleWelcome(ctx context.Context, userID string) (string, bool, error) {
	icon := WelcomeIcon
	return s.CreateOrReschedule(ctx, models.ScheduledNotificationInput{
		UserID:       userID,
		Reference:    WelcomeReference,
		ContentTitle: WelcomeTitle,
		ContentBody:  WelcomeBody,
		ContentIcon:  &icon,
		Sender:       models.DefaultSender,
		ScheduledAt:  s.now().Add(-time.Second),
	})
}

func (s *service) PublishDue(ctx context.Context) (PublishReport, error) {
	return s.publisher.PublishDue(ctx)
}

func (s *service) Sweep(ctx context.Context) (int64, error) {
	return s.sweeper.Sweep(ctx)
}

func (s *service) DeleteExpiredSent(ctx context.Context, retention time.Duration) (int64, error) {
	return s.sweeper.DeleteExpiredSent(ctx, retention)
}

// CreateAndDispatch persists an immediate notification and dispatches it.
func (s *service) CreateAndDispatch(ctx context.Context, in models.NotificationInput, tryPush bool) (models.Notification, error) {
	in.UserID = strings.TrimSpace(in.UserID)
	in.ContentTitle = strings.TrimSpace(in.ContentTitle)
	if in.UserID == "" {
		return models.Notification{}, errors.Wrap(ErrInvalidInput, "user id is required")
	}
	if in.ContentTitle == "" {
		return models.Notification{}, errors.Wrap(ErrInvalidInput, "content title is required")
	}
	if in.SendDate.IsZero() {
		in.SendDate = s.now()
	}

	notif, err := s.notifications.Create(ctx, in)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", in.UserID).Msg("failed to persist notification")
		return models.Notification{}, err
	}
	s.dispatcher.Dispatch(ctx, notif, tryPush)
	return notif, nil
}

func (s *service) DispatchByID(ctx context.Context, notificationID string, tryPush bool) error {
	notif, err := s.notifications.Get(ctx, notificationID)
	if err != nil {
		return errors.Wrapf(err, "failed to load notification %s", notificationID)
	}
	s.dispatcher.Dispatch(ctx, notif, tryPush)
	return nil
}

func (s *service) List(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	return s.notifications.ListForUser(ctx, userID, limit)
}

// SetRead toggles the read flag and announces the change to live sessions.
func (s *service) SetRead(ctx context.Context, userID, notificationID string, read bool) (models.Notification, error) {
	notif, err := s.notifications.SetUnread(ctx, userID, notificationID, !read)
	if err != nil {
		return models.Notification{}, err
	}
	s.events.Publish(models.Event{
		UserID:         notif.UserID,
		NotificationID: notif.ID,
		Kind:           models.EventUpdated,
	})
	return notif, nil
}
