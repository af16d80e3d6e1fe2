package models

import "time"

// DefaultSender is used for notifications emitted by the app itself.
const DefaultSender = "AMI"

type ScheduledNotification struct {
	ID           string     `json:"id" db:"id"`
	UserID       string     `json:"user_id" db:"user_id"`
	ContentTitle string     `json:"content_title" db:"content_title"`
	ContentBody  string     `json:"content_body" db:"content_body"`
	ContentIcon  *string    `json:"content_icon,omitempty" db:"content_icon"`
	Sender       string     `json:"sender" db:"sender"`
	Reference    string     `json:"reference" db:"reference"`
	ScheduledAt  time.Time  `json:"scheduled_at" db:"scheduled_at"`
	SentAt       *time.Time `json:"sent_at,omitempty" db:"sent_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// Sent reports whether the row was already materialized into a notification.
func (s ScheduledNotification) Sent() bool {
	return s.SentAt != nil
}

// Due reports whether the row is unsent and its time has passed.
func (s ScheduledNotification) Due(now time.Time) bool {
	return s.SentAt == nil && s.ScheduledAt.Before(now)
}

// NotificationInput converts the scheduled content into a notification to create.
func (s ScheduledNotification) NotificationInput(sendDate time.Time) NotificationInput {
	sender := s.Sender
	return NotificationInput{
		UserID:       s.UserID,
		ContentTitle: s.ContentTitle,
		ContentBody:  s.ContentBody,
		ContentIcon:  s.ContentIcon,
		Sender:       &sender,
		SendDate:     sendDate,
	}
}

type ScheduledNotificationInput struct {
	UserID       string
	Reference    string
	ContentTitle string
	ContentBody  string
	ContentIcon  *string
	Sender       string
	ScheduledAt  time.Time
}
