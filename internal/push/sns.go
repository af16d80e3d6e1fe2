package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ami-notifications/notifier/internal/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/rs/zerolog"
)

type snsPublisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSGateway publishes to AWS SNS platform endpoints. The registration token
// holds the endpoint ARN.
type SNSGateway struct {
	client snsPublisher
	region string
	logger zerolog.Logger
}

func NewSNSGateway(ctx context.Context, cfg config.SNSConfig, logger zerolog.Logger) (*SNSGateway, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return newSNSGateway(sns.NewFromConfig(awsCfg), cfg.Region, logger), nil
}

func newSNSGateway(client snsPublisher, region string, logger zerolog.Logger) *SNSGateway {
	return &SNSGateway{
		client: client,
		region: region,
		logger: logger.With().Str("gateway", "sns").Logger(),
	}
}

type gcmPayload struct {
	Notification struct {
		Title string `json:"title"`
		Body  string `json:"body"`
		Image string `json:"image,omitempty"`
	} `json:"notification"`
	Data map[string]string `json:"data,omitempty"`
}

type apnsAlert struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func snsMessage(msg MobileMessage) (string, error) {
	var gcm gcmPayload
	gcm.Notification.Title = msg.Title
	gcm.Notification.Body = msg.Body
	gcm.Notification.Image = msg.ImageURL
	gcm.Data = msg.Data
	gcmJSON, err := json.Marshal(gcm)
	if err != nil {
		return "", err
	}

	apns := map[string]interface{}{
		"aps": map[string]interface{}{"alert": apnsAlert{Title: msg.Title, Body: msg.Body}},
	}
	for k, v := range msg.Data {
		apns[k] = v
	}
	apnsJSON, err := json.Marshal(apns)
	if err != nil {
		return "", err
	}

	out, err := json.Marshal(map[string]string{
		"default":      msg.Body,
		"GCM":          string(gcmJSON),
		"APNS":         string(apnsJSON),
		"APNS_SANDBOX": string(apnsJSON),
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (g *SNSGateway) Send(ctx context.Context, token string, msg MobileMessage) error {
	body, err := snsMessage(msg)
	if err != nil {
		return fmt.Errorf("encode sns message: %w", err)
	}
	out, err := g.client.Publish(ctx, &sns.PublishInput{
		TargetArn:        aws.String(token),
		Message:          aws.String(body),
		MessageStructure: aws.String("json"),
	})
	if err != nil {
		var disabled *types.EndpointDisabledException
		var notFound *types.NotFoundException
		if errors.As(err, &disabled) || errors.As(err, &notFound) {
			return fmt.Errorf("%w: %v", ErrGone, err)
		}
		return err
	}
	g.logger.Debug().Str("message_id", aws.ToString(out.MessageId)).Msg("sns message accepted")
	return nil
}

func (g *SNSGateway) String() string {
	return fmt.Sprintf("SNSGateway(region=%s)", g.region)
}
