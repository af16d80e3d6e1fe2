package notification

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ami-notifications/notifier/internal/eventbus"
	"github.com/ami-notifications/notifier/internal/models"
	"github.com/ami-notifications/notifier/internal/push"
	"github.com/ami-notifications/notifier/internal/repository"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// NotificationDispatcher announces a materialized notification and pushes it
// to the user's devices.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, notif models.Notification, tryPush bool)
}

type Dispatcher struct {
	registrations repository.RegistrationRepository
	notifications repository.NotificationRepository
	events        eventbus.Publisher
	notifiers     map[models.SubscriptionKind]Notifier
	concurrency   int
	logger        zerolog.Logger
}

func NewDispatcher(
	registrations repository.RegistrationRepository,
	notifications repository.NotificationRepository,
	events eventbus.Publisher,
	concurrency int,
	logger zerolog.Logger,
	notifiers ...Notifier,
) *Dispatcher {
	if concurrency <= 0 {
		concurrency = 1
	}
	active := make(map[models.SubscriptionKind]Notifier, len(notifiers))
	for _, n := range notifiers {
		if n != nil {
			active[n.Kind()] = n
		}
	}
	return &Dispatcher{
		registrations: registrations,
		notifications: notifications,
		events:        events,
		notifiers:     active,
		concurrency:   concurrency,
		logger:        logger.With().Str("component", "dispatcher").Logger(),
	}
}

// Dispatch never fails: push outcomes and store errors are logged. The
// created event is published before any push attempt.
func (d *Dispatcher) Dispatch(ctx context.Context, notif models.Notification, tryPush bool) {
	start := time.Now()
	defer func() {
		DispatchDuration.WithLabelValues(strconv.FormatBool(tryPush)).Observe(time.Since(start).Seconds())
	}()

	d.events.Publish(models.Event{
		UserID:         notif.UserID,
		NotificationID: notif.ID,
		Kind:           models.EventCreated,
	})

	if !tryPush {
		d.markTryPush(ctx, notif.ID, boolPtr(false))
		return
	}

	regs, err := d.registrations.ListEnabled(ctx, notif.UserID)
	if err != nil {
		d.logger.Error().Err(err).
			Str("notification_id", notif.ID).
			Str("user_id", notif.UserID).
			Msg("failed to load registrations")
		return
	}
	if len(regs) == 0 {
		d.markTryPush(ctx, notif.ID, nil)
		return
	}

	msg := push.NewMessage(notif)
	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for _, reg := range regs {
		g.Go(func() error {
			d.deliver(ctx, notif, reg, msg)
			return nil
		})
	}
	_ = g.Wait()

	d.markTryPush(ctx, notif.ID, boolPtr(true))
}

func (d *Dispatcher) deliver(ctx context.Context, notif models.Notification, reg models.Registration, msg push.Message) {
	kind := reg.Subscription.Kind()
	channel := string(kind)

	defer func() {
		if r := recover(); r != nil {
			PushAttempts.WithLabelValues(channel, push.Transient.String()).Inc()
			logNotifyOutcome(d.logger, push.Transient, fmt.Errorf("panic: %v", r), channel, notif, reg)
		}
	}()

	if kind == "" {
		d.logger.Warn().
			Str("notification_id", notif.ID).
			Str("registration_id", reg.ID).
			Msg("skipping registration with unreadable subscription")
		return
	}
	notifier, ok := d.notifiers[kind]
	if !ok {
		d.logger.Debug().
			Str("registration_id", reg.ID).
			Str("channel", channel).
			Msg("no notifier configured for channel")
		return
	}

	outcome, err := notifier.Notify(ctx, reg, msg)
	PushAttempts.WithLabelValues(channel, outcome.String()).Inc()
	logNotifyOutcome(d.logger, outcome, err, notifierChannelName(notifier), notif, reg)
}

func (d *Dispatcher) markTryPush(ctx context.Context, notificationID string, value *bool) {
	if err := d.notifications.SetTryPush(ctx, notificationID, value); err != nil {
		d.logger.Error().Err(err).Str("notification_id", notificationID).Msg("failed to record try_push")
	}
}

func boolPtr(v bool) *bool {
	return &v
}
