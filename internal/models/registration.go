package models

import (
	"encoding/json"
	"errors"
	"time"
)

type SubscriptionKind string

const (
	SubscriptionWebPush SubscriptionKind = "web_push"
	SubscriptionMobile  SubscriptionKind = "mobile"
)

var ErrUnknownSubscription = errors.New("unknown subscription shape")

type WebPushKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// WebPushSubscription is the PushSubscription object handed out by a browser.
type WebPushSubscription struct {
	Endpoint string      `json:"endpoint"`
	Keys     WebPushKeys `json:"keys"`
}

// MobileSubscription holds a device token for the mobile push gateway.
type MobileSubscription struct {
	Token string `json:"fcm_token"`
}

// Subscription is a tagged variant: exactly one of WebPush or Mobile is set.
type Subscription struct {
	WebPush *WebPushSubscription
	Mobile  *MobileSubscription
}

func (s Subscription) Kind() SubscriptionKind {
	switch {
	case s.WebPush != nil:
		return SubscriptionWebPush
	case s.Mobile != nil:
		return SubscriptionMobile
	default:
		return ""
	}
}

func (s *Subscription) UnmarshalJSON(data []byte) error {
	var probe struct {
		Endpoint string      `json:"endpoint"`
		Keys     WebPushKeys `json:"keys"`
		Token    string      `json:"fcm_token"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	switch {
	case probe.Endpoint != "":
		*s = Subscription{WebPush: &WebPushSubscription{Endpoint: probe.Endpoint, Keys: probe.Keys}}
	case probe.Token != "":
		*s = Subscription{Mobile: &MobileSubscription{Token: probe.Token}}
	default:
		return ErrUnknownSubscription
	}
	return nil
}

func (s Subscription) MarshalJSON() ([]byte, error) {
	switch {
	case s.WebPush != nil:
		return json.Marshal(s.WebPush)
	case s.Mobile != nil:
		return json.Marshal(s.Mobile)
	default:
		return nil, ErrUnknownSubscription
	}
}

type Registration struct {
	ID           string       `json:"id" db:"id"`
	UserID       string       `json:"user_id" db:"user_id"`
	Subscription Subscription `json:"subscription" db:"subscription"`
	Enabled      bool         `json:"enabled" db:"enabled"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
}
