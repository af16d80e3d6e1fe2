package models

import "time"

type Notification struct {
	ID           string  `json:"id" db:"id"`
	UserID       string  `json:"user_id" db:"user_id"`
	ContentTitle string  `json:"content_title" db:"content_title"`
	ContentBody  string  `json:"content_body" db:"content_body"`
	ContentIcon  *string `json:"content_icon,omitempty" db:"content_icon"`
	Sender       *string `json:"sender,omitempty" db:"sender"`

	// Partner integration fields, set when the notification tracks a
	// procedure item handled by a third-party service.
	ItemType               *string    `json:"item_type,omitempty" db:"item_type"`
	ItemID                 *string    `json:"item_id,omitempty" db:"item_id"`
	ItemStatusLabel        *string    `json:"item_status_label,omitempty" db:"item_status_label"`
	ItemGenericStatus      *string    `json:"item_generic_status,omitempty" db:"item_generic_status"`
	ItemCanal              *string    `json:"item_canal,omitempty" db:"item_canal"`
	ItemMilestoneStartDate *time.Time `json:"item_milestone_start_date,omitempty" db:"item_milestone_start_date"`
	ItemMilestoneEndDate   *time.Time `json:"item_milestone_end_date,omitempty" db:"item_milestone_end_date"`
	ItemExternalURL        *string    `json:"item_external_url,omitempty" db:"item_external_url"`

	SendDate   time.Time `json:"send_date" db:"send_date"`
	Unread     bool      `json:"unread" db:"unread"`
	SendStatus bool      `json:"send_status" db:"send_status"`
	// TryPush is nil until the dispatcher acted: false when no push was
	// requested, true once every registration was attempted.
	TryPush   *bool     `json:"try_push" db:"try_push"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NotificationInput carries the fields needed to materialize a notification.
type NotificationInput struct {
	UserID       string
	ContentTitle string
	ContentBody  string
	ContentIcon  *string
	Sender       *string

	ItemType               *string
	ItemID                 *string
	ItemStatusLabel        *string
	ItemGenericStatus      *string
	ItemCanal              *string
	ItemMilestoneStartDate *time.Time
	ItemMilestoneEndDate   *time.Time
	ItemExternalURL        *string

	SendDate time.Time
}
