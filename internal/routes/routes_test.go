package routes

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ami-notifications/notifier/internal/authz"
	"github.com/ami-notifications/notifier/internal/eventbus"
	"github.com/ami-notifications/notifier/internal/handlers"
	"github.com/ami-notifications/notifier/internal/notification"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "routes-secret"

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

func newTestRouter(db handlers.Pinger) http.Handler {
	logger := zerolog.Nop()
	// Requests rejected before reaching a handler never touch the service.
	var svc notification.Service
	return NewRouter(Handlers{
		Auth:          authz.NewAuthenticator(secret),
		DB:            db,
		Notifications: handlers.NewNotificationHandler(svc, logger),
		Scheduled:     handlers.NewScheduledHandler(svc, logger),
		Jobs:          handlers.NewJobHandler(svc, logger),
		Stream:        handlers.NewStreamHandler(eventbus.New(eventbus.DefaultBufferSize, logger), nil, logger),
	})
}

func bearer(t *testing.T, roles ...authz.Role) string {
	t.Helper()
	token, err := authz.IssueToken(secret, "user-1", roles, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestRouter_Health(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(fakePinger{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	newTestRouter(fakePinger{err: errors.New("down")}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouter_Metrics(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(fakePinger{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRouter_Access(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		auth       string
		wantStatus int
	}{
		{name: "anonymous list", method: http.MethodGet, path: "/api/v1/notifications", wantStatus: http.StatusUnauthorized},
		{name: "anonymous stream", method: http.MethodGet, path: "/api/v1/notifications/stream", wantStatus: http.StatusUnauthorized},
		{name: "user creates for others", method: http.MethodPost, path: "/api/v1/notifications", auth: "user", wantStatus: http.StatusForbidden},
		{name: "user triggers publish", method: http.MethodPost, path: "/api/v1/internal/publish-due", auth: "user", wantStatus: http.StatusForbidden},
		{name: "user triggers sweep", method: http.MethodPost, path: "/api/v1/internal/sweep", auth: "user", wantStatus: http.StatusForbidden},
	}

	router := newTestRouter(fakePinger{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.auth == "user" {
				req.Header.Set("Authorization", bearer(t))
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
