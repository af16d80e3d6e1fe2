package notification

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/ami-notifications/notifier/internal/models"
	"github.com/ami-notifications/notifier/internal/push"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type mockNotificationRepo struct {
	mock.Mock
}

func (m *mockNotificationRepo) Create(ctx context.Context, in models.NotificationInput) (models.Notification, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(models.Notification), args.Error(1)
}

func (m *mockNotificationRepo) Get(ctx context.Context, id string) (models.Notification, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.Notification), args.Error(1)
}

func (m *mockNotificationRepo) ListForUser(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	args := m.Called(ctx, userID, limit)
	out, _ := args.Get(0).([]models.Notification)
	return out, args.Error(1)
}

func (m *mockNotificationRepo) SetUnread(ctx context.Context, userID, id string, unread bool) (models.Notification, error) {
	args := m.Called(ctx, userID, id, unread)
	return args.Get(0).(models.Notification), args.Error(1)
}

func (m *mockNotificationRepo) SetTryPush(ctx context.Context, id string, tryPush *bool) error {
	args := m.Called(ctx, id, tryPush)
	return args.Error(0)
}

type mockScheduledRepo struct {
	mock.Mock
}

func (m *mockScheduledRepo) CreateOrReschedule(ctx context.Context, in models.ScheduledNotificationInput) (string, bool, error) {
	args := m.Called(ctx, in)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *mockScheduledRepo) Get(ctx context.Context, id string) (models.ScheduledNotification, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.ScheduledNotification), args.Error(1)
}

func (m *mockScheduledRepo) ListDue(ctx context.Context, now time.Time) ([]models.ScheduledNotification, error) {
	args := m.Called(ctx, now)
	out, _ := args.Get(0).([]models.ScheduledNotification)
	return out, args.Error(1)
}

func (m *mockScheduledRepo) Claim(ctx context.Context, id string, now time.Time) (models.Notification, bool, error) {
	args := m.Called(ctx, id, now)
	return args.Get(0).(models.Notification), args.Bool(1), args.Error(2)
}

func (m *mockScheduledRepo) DeleteSentBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

type mockRegistrationRepo struct {
	mock.Mock
}

func (m *mockRegistrationRepo) ListEnabled(ctx context.Context, userID string) ([]models.Registration, error) {
	args := m.Called(ctx, userID)
	out, _ := args.Get(0).([]models.Registration)
	return out, args.Error(1)
}

// recordingEvents captures published events in order.
type recordingEvents struct {
	mu     sync.Mutex
	events []models.Event
}

func (r *recordingEvents) Publish(evt models.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recordingEvents) All() []models.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Event(nil), r.events...)
}

type recordingDispatcher struct {
	mu      sync.Mutex
	calls   []models.Notification
	ctxErrs []error
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, notif models.Notification, _ bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, notif)
	d.ctxErrs = append(d.ctxErrs, ctx.Err())
}

func (d *recordingDispatcher) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

// scriptedNotifier returns a fixed outcome per registration id, or panics
// when the registration id is listed in panics.
type scriptedNotifier struct {
	kind     models.SubscriptionKind
	outcomes map[string]push.Outcome
	panics   map[string]bool

	mu       sync.Mutex
	notified []string
}

func (n *scriptedNotifier) Kind() models.SubscriptionKind {
	return n.kind
}

func (n *scriptedNotifier) Notify(_ context.Context, reg models.Registration, _ push.Message) (push.Outcome, error) {
	n.mu.Lock()
	n.notified = append(n.notified, reg.ID)
	n.mu.Unlock()
	if n.panics[reg.ID] {
		panic("provider client exploded")
	}
	return n.outcomes[reg.ID], nil
}

func (n *scriptedNotifier) Notified() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.notified...)
}

// memoryScheduledStore emulates the row lock taken by Claim with a mutex.
type memoryScheduledStore struct {
	mu      sync.Mutex
	rows    map[string]*models.ScheduledNotification
	created []models.Notification
}

func newMemoryScheduledStore(rows ...models.ScheduledNotification) *memoryScheduledStore {
	s := &memoryScheduledStore{rows: make(map[string]*models.ScheduledNotification)}
	for i := range rows {
		row := rows[i]
		s.rows[row.ID] = &row
	}
	return s
}

func (s *memoryScheduledStore) CreateOrReschedule(_ context.Context, in models.ScheduledNotificationInput) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.UserID == in.UserID && row.Reference == in.Reference {
			if row.SentAt == nil {
				row.ContentTitle = in.ContentTitle
				row.ContentBody = in.ContentBody
				row.ContentIcon = in.ContentIcon
				row.ScheduledAt = in.ScheduledAt
			}
			return row.ID, false, nil
		}
	}
	row := &models.ScheduledNotification{
		ID:           uuid.NewString(),
		UserID:       in.UserID,
		ContentTitle: in.ContentTitle,
		ContentBody:  in.ContentBody,
		ContentIcon:  in.ContentIcon,
		Sender:       in.Sender,
		Reference:    in.Reference,
		ScheduledAt:  in.ScheduledAt,
		CreatedAt:    time.Now(),
	}
	s.rows[row.ID] = row
	return row.ID, true, nil
}

func (s *memoryScheduledStore) Get(_ context.Context, id string) (models.ScheduledNotification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return models.ScheduledNotification{}, sql.ErrNoRows
	}
	return *row, nil
}

func (s *memoryScheduledStore) ListDue(_ context.Context, now time.Time) ([]models.ScheduledNotification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []models.ScheduledNotification
	for _, row := range s.rows {
		if row.Due(now) {
			due = append(due, *row)
		}
	}
	return due, nil
}

func (s *memoryScheduledStore) Claim(_ context.Context, id string, now time.Time) (models.Notification, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok || !row.Due(now) {
		return models.Notification{}, false, nil
	}
	in := row.NotificationInput(now)
	notif := models.Notification{
		ID:           uuid.NewString(),
		UserID:       in.UserID,
		ContentTitle: in.ContentTitle,
		ContentBody:  in.ContentBody,
		ContentIcon:  in.ContentIcon,
		Sender:       in.Sender,
		SendDate:     in.SendDate,
		Unread:       true,
		SendStatus:   true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.created = append(s.created, notif)
	sentAt := notif.CreatedAt
	row.SentAt = &sentAt
	return notif, true, nil
}

func (s *memoryScheduledStore) DeleteSentBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for id, row := range s.rows {
		if row.SentAt != nil && row.SentAt.Before(cutoff) {
			delete(s.rows, id)
			deleted++
		}
	}
	return deleted, nil
}

func (s *memoryScheduledStore) Created() []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Notification(nil), s.created...)
}
