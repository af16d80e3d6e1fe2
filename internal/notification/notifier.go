package notification

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ami-notifications/notifier/internal/models"
	"github.com/ami-notifications/notifier/internal/push"
	"github.com/rs/zerolog"
)

// Notifier delivers a message to one registration of a given subscription
// kind. The returned error describes the failure for logging only.
type Notifier interface {
	Kind() models.SubscriptionKind
	Notify(ctx context.Context, reg models.Registration, msg push.Message) (push.Outcome, error)
}

// WebPushPreparer builds encrypted browser push requests.
type WebPushPreparer interface {
	Prepare(ctx context.Context, sub models.WebPushSubscription, payload []byte) (push.PreparedRequest, error)
}

type WebPushNotifier struct {
	preparer WebPushPreparer
	client   push.HTTPDoer
}

func NewWebPushNotifier(preparer WebPushPreparer, client push.HTTPDoer) *WebPushNotifier {
	if client == nil {
		client = http.DefaultClient
	}
	return &WebPushNotifier{preparer: preparer, client: client}
}

func (n *WebPushNotifier) Kind() models.SubscriptionKind {
	return models.SubscriptionWebPush
}

func (n *WebPushNotifier) Notify(ctx context.Context, reg models.Registration, msg push.Message) (push.Outcome, error) {
	sub := reg.Subscription.WebPush
	if sub == nil {
		return push.Transient, models.ErrUnknownSubscription
	}
	payload, err := msg.Payload()
	if err != nil {
		return push.Transient, fmt.Errorf("encode payload: %w", err)
	}
	prepared, err := n.preparer.Prepare(ctx, *sub, payload)
	if err != nil {
		return push.Transient, err
	}
	status, err := push.Submit(ctx, n.client, prepared)
	outcome := push.Classify(status, err)
	if err == nil && outcome != push.Delivered {
		err = fmt.Errorf("push service responded %d", status)
	}
	return outcome, err
}

func (n *WebPushNotifier) String() string {
	return "WebPushNotifier"
}

type MobileNotifier struct {
	gateway push.MobileGateway
}

func NewMobileNotifier(gateway push.MobileGateway) *MobileNotifier {
	return &MobileNotifier{gateway: gateway}
}

func (n *MobileNotifier) Kind() models.SubscriptionKind {
	return models.SubscriptionMobile
}

func (n *MobileNotifier) Notify(ctx context.Context, reg models.Registration, msg push.Message) (push.Outcome, error) {
	sub := reg.Subscription.Mobile
	if sub == nil {
		return push.Transient, models.ErrUnknownSubscription
	}
	err := n.gateway.Send(ctx, sub.Token, msg.Mobile())
	return push.Classify(0, err), err
}

func (n *MobileNotifier) String() string {
	return fmt.Sprintf("MobileNotifier(%s)", notifierChannelName(n.gateway))
}

func logNotifyOutcome(logger zerolog.Logger, outcome push.Outcome, err error, channel string, notif models.Notification, reg models.Registration) {
	switch outcome {
	case push.Delivered:
		logger.Debug().
			Str("notification_id", notif.ID).
			Str("registration_id", reg.ID).
			Str("channel", channel).
			Msg("push delivered")
	case push.Gone:
		logger.Warn().
			Err(err).
			Str("notification_id", notif.ID).
			Str("registration_id", reg.ID).
			Str("user_id", reg.UserID).
			Str("channel", channel).
			Bool("flag_for_removal", true).
			Msg("push registration is gone")
	default:
		logger.Error().
			Err(err).
			Str("notification_id", notif.ID).
			Str("registration_id", reg.ID).
			Str("channel", channel).
			Msg("failed to deliver notification")
	}
}

func notifierChannelName(n interface{}) string {
	type named interface {
		String() string
	}
	if v, ok := n.(named); ok {
		return v.String()
	}
	return fmt.Sprintf("%T", n)
}
