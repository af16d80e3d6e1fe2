package repository

import (
	"database/sql"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

var notificationRowColumns = []string{
	"id", "user_id", "content_title", "content_body", "content_icon", "sender",
	"item_type", "item_id", "item_status_label", "item_generic_status", "item_canal",
	"item_milestone_start_date", "item_milestone_end_date", "item_external_url",
	"send_date", "unread", "send_status", "try_push", "created_at", "updated_at",
}

func notificationRow(id, userID, title string, createdAt time.Time, tryPush driver.Value) []driver.Value {
	return []driver.Value{
		id, userID, title, "body", nil, "AMI",
		nil, nil, nil, nil, nil,
		nil, nil, nil,
		createdAt, true, true, tryPush, createdAt, createdAt,
	}
}

var scheduledRowColumns = []string{
	"id", "user_id", "content_title", "content_body", "content_icon", "sender",
	"reference", "scheduled_at", "sent_at", "created_at", "updated_at",
}

func scheduledRow(id, userID, reference string, scheduledAt time.Time, sentAt driver.Value) []driver.Value {
	return []driver.Value{
		id, userID, "Bienvenue", "Bienvenue sur AMI", "icon.png", "AMI",
		reference, scheduledAt, sentAt, scheduledAt, scheduledAt,
	}
}
