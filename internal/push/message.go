package push

import (
	"encoding/json"
	"time"

	"github.com/ami-notifications/notifier/internal/models"
)

// Message is the channel-neutral content delivered for one notification.
type Message struct {
	NotificationID string                 `json:"notification_id"`
	Title          string                 `json:"title"`
	Body           string                 `json:"body"`
	Icon           string                 `json:"icon,omitempty"`
	Sender         string                 `json:"sender,omitempty"`
	SendDate       time.Time              `json:"send_date"`
	Data           map[string]interface{} `json:"data,omitempty"`
}

func NewMessage(n models.Notification) Message {
	msg := Message{
		NotificationID: n.ID,
		Title:          n.ContentTitle,
		Body:           n.ContentBody,
		SendDate:       n.SendDate,
	}
	if n.ContentIcon != nil {
		msg.Icon = *n.ContentIcon
	}
	if n.Sender != nil {
		msg.Sender = *n.Sender
	}

	data := map[string]interface{}{}
	setIf := func(key string, v *string) {
		if v != nil {
			data[key] = *v
		}
	}
	setIf("item_type", n.ItemType)
	setIf("item_id", n.ItemID)
	setIf("item_status_label", n.ItemStatusLabel)
	setIf("item_generic_status", n.ItemGenericStatus)
	setIf("item_canal", n.ItemCanal)
	setIf("item_external_url", n.ItemExternalURL)
	if n.ItemMilestoneStartDate != nil {
		data["item_milestone_start_date"] = *n.ItemMilestoneStartDate
	}
	if n.ItemMilestoneEndDate != nil {
		data["item_milestone_end_date"] = *n.ItemMilestoneEndDate
	}
	if len(data) > 0 {
		msg.Data = data
	}
	return msg
}

// Payload is the JSON body encrypted into a browser push message.
func (m Message) Payload() ([]byte, error) {
	return json.Marshal(m)
}

// Mobile converts the message for a mobile gateway. Mobile data payloads
// only carry strings, so every extra field is flattened.
func (m Message) Mobile() MobileMessage {
	data := map[string]interface{}{
		"notification_id": m.NotificationID,
		"send_date":       m.SendDate,
	}
	if m.Sender != "" {
		data["sender"] = m.Sender
	}
	for k, v := range m.Data {
		data[k] = v
	}
	return MobileMessage{
		Title:    m.Title,
		Body:     m.Body,
		ImageURL: m.Icon,
		Data:     FlattenData(data),
	}
}
