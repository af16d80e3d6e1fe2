package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/ami-notifications/notifier/internal/authz"
	"github.com/ami-notifications/notifier/internal/models"
	"github.com/ami-notifications/notifier/internal/notification"
	"github.com/stretchr/testify/mock"
)

type mockService struct {
	mock.Mock
}

var _ notification.Service = (*mockService)(nil)

func (m *mockService) CreateOrReschedule(ctx context.Context, in models.ScheduledNotificationInput) (string, bool, error) {
	args := m.Called(ctx, in)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *mockService) ScheduleWelcome(ctx context.Context, userID string) (string, bool, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *mockService) PublishDue(ctx context.Context) (notification.PublishReport, error) {
	args := m.Called(ctx)
	return args.Get(0).(notification.PublishReport), args.Error(1)
}

func (m *mockService) Sweep(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockService) DeleteExpiredSent(ctx context.Context, retention time.Duration) (int64, error) {
	args := m.Called(ctx, retention)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockService) CreateAndDispatch(ctx context.Context, in models.NotificationInput, tryPush bool) (models.Notification, error) {
	args := m.Called(ctx, in, tryPush)
	return args.Get(0).(models.Notification), args.Error(1)
}

func (m *mockService) DispatchByID(ctx context.Context, notificationID string, tryPush bool) error {
	args := m.Called(ctx, notificationID, tryPush)
	return args.Error(0)
}

func (m *mockService) List(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Notification), args.Error(1)
}

func (m *mockService) SetRead(ctx context.Context, userID, notificationID string, read bool) (models.Notification, error) {
	args := m.Called(ctx, userID, notificationID, read)
	return args.Get(0).(models.Notification), args.Error(1)
}

func asUser(r *http.Request, userID string, roles ...authz.Role) *http.Request {
	return r.WithContext(authz.WithIdentity(r.Context(), userID, roles))
}
