package push

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"firebase.google.com/go/v4/messaging"
	"github.com/ami-notifications/notifier/internal/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestFlattenData(t *testing.T) {
	label := "En cours"
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	var nilString *string

	got := FlattenData(map[string]interface{}{
		"s":      "value",
		"ptr":    &label,
		"nilptr": nilString,
		"nil":    nil,
		"bool":   true,
		"int":    42,
		"float":  1.5,
		"time":   ts,
		"list":   []string{"a", "b"},
	})

	assert.Equal(t, map[string]string{
		"s":      "value",
		"ptr":    "En cours",
		"nilptr": "",
		"nil":    "",
		"bool":   "true",
		"int":    "42",
		"float":  "1.5",
		"time":   "2024-03-01T10:00:00Z",
		"list":   `["a","b"]`,
	}, got)
}

func TestMessage_Mobile(t *testing.T) {
	icon := "https://ami.example/icon.png"
	sender := "ANTS"
	itemID := "dossier-1"
	msg := NewMessage(models.Notification{
		ID:           "n-1",
		ContentTitle: "Titre",
		ContentBody:  "Corps",
		ContentIcon:  &icon,
		Sender:       &sender,
		ItemID:       &itemID,
		SendDate:     time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	})

	mobile := msg.Mobile()
	assert.Equal(t, "Titre", mobile.Title)
	assert.Equal(t, "Corps", mobile.Body)
	assert.Equal(t, icon, mobile.ImageURL)
	assert.Equal(t, "n-1", mobile.Data["notification_id"])
	assert.Equal(t, "ANTS", mobile.Data["sender"])
	assert.Equal(t, "dossier-1", mobile.Data["item_id"])
	assert.Equal(t, "2024-01-02T03:04:05Z", mobile.Data["send_date"])

	payload, err := msg.Payload()
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, "Titre", decoded["title"])
	assert.Equal(t, "n-1", decoded["notification_id"])
}

type mockFCM struct {
	mock.Mock
}

func (m *mockFCM) Send(ctx context.Context, message *messaging.Message) (string, error) {
	args := m.Called(ctx, message)
	return args.String(0), args.Error(1)
}

func TestFCMGateway_Send(t *testing.T) {
	client := new(mockFCM)
	client.On("Send", mock.Anything, mock.MatchedBy(func(m *messaging.Message) bool {
		return m.Token == "tok-1" &&
			m.Notification.Title == "Titre" &&
			m.Data["notification_id"] == "n-1"
	})).Return("projects/p/messages/1", nil)

	gw := newFCMGateway(client, "p", zerolog.Nop())
	err := gw.Send(context.Background(), "tok-1", MobileMessage{
		Title: "Titre",
		Body:  "Corps",
		Data:  map[string]string{"notification_id": "n-1"},
	})
	require.NoError(t, err)
	client.AssertExpectations(t)
}

func TestFCMGateway_SendError(t *testing.T) {
	client := new(mockFCM)
	client.On("Send", mock.Anything, mock.Anything).Return("", errors.New("unavailable"))

	gw := newFCMGateway(client, "p", zerolog.Nop())
	err := gw.Send(context.Background(), "tok-1", MobileMessage{Title: "t"})
	require.Error(t, err)
	assert.Equal(t, Transient, Classify(0, err))
}

type mockSNS struct {
	mock.Mock
}

func (m *mockSNS) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*sns.PublishOutput)
	return out, args.Error(1)
}

func TestSNSGateway_Send(t *testing.T) {
	client := new(mockSNS)
	var captured *sns.PublishInput
	client.On("Publish", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(1).(*sns.PublishInput) }).
		Return(&sns.PublishOutput{MessageId: aws.String("m-1")}, nil)

	gw := newSNSGateway(client, "eu-west-3", zerolog.Nop())
	err := gw.Send(context.Background(), "arn:aws:sns:eu-west-3:1:endpoint/GCM/ami/abc", MobileMessage{
		Title: "Titre",
		Body:  "Corps",
		Data:  map[string]string{"notification_id": "n-1"},
	})
	require.NoError(t, err)
	require.NotNil(t, captured)

	assert.Equal(t, "arn:aws:sns:eu-west-3:1:endpoint/GCM/ami/abc", aws.ToString(captured.TargetArn))
	assert.Equal(t, "json", aws.ToString(captured.MessageStructure))

	var envelope map[string]string
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(captured.Message)), &envelope))
	assert.Equal(t, "Corps", envelope["default"])

	var gcm gcmPayload
	require.NoError(t, json.Unmarshal([]byte(envelope["GCM"]), &gcm))
	assert.Equal(t, "Titre", gcm.Notification.Title)
	assert.Equal(t, "n-1", gcm.Data["notification_id"])
}

func TestSNSGateway_DisabledEndpointIsGone(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Outcome
	}{
		{name: "endpoint disabled", err: &types.EndpointDisabledException{Message: aws.String("disabled")}, want: Gone},
		{name: "not found", err: &types.NotFoundException{Message: aws.String("missing")}, want: Gone},
		{name: "throttled", err: &types.ThrottledException{Message: aws.String("slow down")}, want: Transient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := new(mockSNS)
			client.On("Publish", mock.Anything, mock.Anything).Return(nil, tt.err)

			gw := newSNSGateway(client, "eu-west-3", zerolog.Nop())
			err := gw.Send(context.Background(), "arn", MobileMessage{Title: "t"})
			require.Error(t, err)
			assert.Equal(t, tt.want, Classify(0, err))
		})
	}
}
