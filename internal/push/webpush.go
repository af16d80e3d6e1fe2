package push

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/ami-notifications/notifier/internal/config"
	"github.com/ami-notifications/notifier/internal/models"
)

// PreparedRequest is a fully encrypted and signed browser push request,
// ready to be POSTed to Target.
type PreparedRequest struct {
	Target  string
	Body    []byte
	Headers http.Header
}

// HTTPDoer is satisfied by *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type WebPushAdapter struct {
	publicKey  string
	privateKey string
	subscriber string
	ttl        int
}

func NewWebPushAdapter(cfg config.WebPushConfig) (*WebPushAdapter, error) {
	if strings.TrimSpace(cfg.VAPIDPublicKey) == "" || strings.TrimSpace(cfg.VAPIDPrivateKey) == "" {
		return nil, fmt.Errorf("vapid keys are required for web push")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 86400
	}
	return &WebPushAdapter{
		publicKey:  strings.TrimSpace(cfg.VAPIDPublicKey),
		privateKey: strings.TrimSpace(cfg.VAPIDPrivateKey),
		// webpush-go adds the mailto: scheme itself.
		subscriber: strings.TrimPrefix(strings.TrimSpace(cfg.Subscriber), "mailto:"),
		ttl:        ttl,
	}, nil
}

// captureClient records the request built by webpush-go instead of sending it.
type captureClient struct {
	req  *http.Request
	body []byte
}

func (c *captureClient) Do(req *http.Request) (*http.Response, error) {
	c.req = req
	if req.Body != nil {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		_ = req.Body.Close()
		c.body = body
	}
	return &http.Response{
		StatusCode: http.StatusCreated,
		Body:       io.NopCloser(bytes.NewReader(nil)),
		Header:     make(http.Header),
		Request:    req,
	}, nil
}

// Prepare encrypts payload for sub and signs it with the VAPID key pair.
// Nothing is sent over the network.
func (a *WebPushAdapter) Prepare(ctx context.Context, sub models.WebPushSubscription, payload []byte) (PreparedRequest, error) {
	if sub.Endpoint == "" {
		return PreparedRequest{}, fmt.Errorf("web push subscription has no endpoint")
	}
	capture := &captureClient{}
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.Keys.P256dh,
			Auth:   sub.Keys.Auth,
		},
	}, &webpush.Options{
		HTTPClient:      capture,
		Subscriber:      a.subscriber,
		VAPIDPublicKey:  a.publicKey,
		VAPIDPrivateKey: a.privateKey,
		TTL:             a.ttl,
		Urgency:         webpush.UrgencyNormal,
	})
	if err != nil {
		return PreparedRequest{}, fmt.Errorf("prepare web push request: %w", err)
	}
	_ = resp.Body.Close()
	if capture.req == nil {
		return PreparedRequest{}, fmt.Errorf("prepare web push request: no request built")
	}

	return PreparedRequest{
		Target:  capture.req.URL.String(),
		Body:    capture.body,
		Headers: capture.req.Header.Clone(),
	}, nil
}

// Submit POSTs a prepared request and returns the provider's status code.
func Submit(ctx context.Context, client HTTPDoer, prepared PreparedRequest) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, prepared.Target, bytes.NewReader(prepared.Body))
	if err != nil {
		return 0, fmt.Errorf("build push request: %w", err)
	}
	for key, values := range prepared.Headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}
