package push

import (
	"context"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/ami-notifications/notifier/internal/config"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

type fcmSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMGateway sends to Firebase Cloud Messaging device tokens.
type FCMGateway struct {
	client    fcmSender
	projectID string
	logger    zerolog.Logger
}

func NewFCMGateway(ctx context.Context, cfg config.FCMConfig, logger zerolog.Logger) (*FCMGateway, error) {
	var opts []option.ClientOption
	if file := strings.TrimSpace(cfg.CredentialsFile); file != "" {
		opts = append(opts, option.WithCredentialsFile(file))
	}
	var fbCfg *firebase.Config
	if cfg.ProjectID != "" {
		fbCfg = &firebase.Config{ProjectID: cfg.ProjectID}
	}

	app, err := firebase.NewApp(ctx, fbCfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase messaging: %w", err)
	}
	return newFCMGateway(client, cfg.ProjectID, logger), nil
}

func newFCMGateway(client fcmSender, projectID string, logger zerolog.Logger) *FCMGateway {
	return &FCMGateway{
		client:    client,
		projectID: projectID,
		logger:    logger.With().Str("gateway", "fcm").Logger(),
	}
}

func (g *FCMGateway) Send(ctx context.Context, token string, msg MobileMessage) error {
	id, err := g.client.Send(ctx, &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title:    msg.Title,
			Body:     msg.Body,
			ImageURL: msg.ImageURL,
		},
		Data: msg.Data,
	})
	if err != nil {
		if messaging.IsUnregistered(err) || messaging.IsSenderIDMismatch(err) {
			return fmt.Errorf("%w: %v", ErrGone, err)
		}
		return err
	}
	g.logger.Debug().Str("message_id", id).Msg("fcm message accepted")
	return nil
}

func (g *FCMGateway) String() string {
	return fmt.Sprintf("FCMGateway(project=%s)", g.projectID)
}
