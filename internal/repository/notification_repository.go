package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/ami-notifications/notifier/internal/models"
)

const notificationColumns = `id, user_id, content_title, content_body, content_icon, sender,
		item_type, item_id, item_status_label, item_generic_status, item_canal,
		item_milestone_start_date, item_milestone_end_date, item_external_url,
		send_date, unread, send_status, try_push, created_at, updated_at`

type NotificationRepository interface {
	Create(ctx context.Context, in models.NotificationInput) (models.Notification, error)
	Get(ctx context.Context, notificationID string) (models.Notification, error)
	ListForUser(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	SetUnread(ctx context.Context, userID, notificationID string, unread bool) (models.Notification, error)
	SetTryPush(ctx context.Context, notificationID string, tryPush *bool) error
}

type notificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, in models.NotificationInput) (models.Notification, error) {
	return insertNotification(ctx, r.db, in)
}

func insertNotification(ctx context.Context, q queryRower, in models.NotificationInput) (models.Notification, error) {
	query := `
		INSERT INTO ami.notifications (
			user_id, content_title, content_body, content_icon, sender,
			item_type, item_id, item_status_label, item_generic_status, item_canal,
			item_milestone_start_date, item_milestone_end_date, item_external_url, send_date
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING ` + notificationColumns

	row := q.QueryRowContext(ctx, query,
		strings.TrimSpace(in.UserID),
		in.ContentTitle,
		in.ContentBody,
		in.ContentIcon,
		in.Sender,
		in.ItemType,
		in.ItemID,
		in.ItemStatusLabel,
		in.ItemGenericStatus,
		in.ItemCanal,
		in.ItemMilestoneStartDate,
		in.ItemMilestoneEndDate,
		in.ItemExternalURL,
		in.SendDate,
	)
	return scanNotification(row)
}

func (r *notificationRepository) Get(ctx context.Context, notificationID string) (models.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM ami.notifications WHERE id = $1`
	return scanNotification(r.db.QueryRowContext(ctx, query, strings.TrimSpace(notificationID)))
}

func (r *notificationRepository) ListForUser(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}

	query := `
		SELECT ` + notificationColumns + `
		FROM ami.notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, strings.TrimSpace(userID), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := make([]models.Notification, 0, limit)
	for rows.Next() {
		notif, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, notif)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return notifications, nil
}

func (r *notificationRepository) SetUnread(ctx context.Context, userID, notificationID string, unread bool) (models.Notification, error) {
	query := `
		UPDATE ami.notifications
		SET unread = $3, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + notificationColumns
	row := r.db.QueryRowContext(ctx, query, strings.TrimSpace(notificationID), strings.TrimSpace(userID), unread)
	return scanNotification(row)
}

func (r *notificationRepository) SetTryPush(ctx context.Context, notificationID string, tryPush *bool) error {
	const query = `
		UPDATE ami.notifications
		SET try_push = $2, updated_at = NOW()
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, notificationID, tryPush)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func scanNotification(scanner rowScanner) (models.Notification, error) {
	var (
		notif          models.Notification
		icon, sender   sql.NullString
		itemType       sql.NullString
		itemID         sql.NullString
		itemStatus     sql.NullString
		itemGeneric    sql.NullString
		itemCanal      sql.NullString
		milestoneStart sql.NullTime
		milestoneEnd   sql.NullTime
		externalURL    sql.NullString
		tryPush        sql.NullBool
	)

	if err := scanner.Scan(
		&notif.ID,
		&notif.UserID,
		&notif.ContentTitle,
		&notif.ContentBody,
		&icon,
		&sender,
		&itemType,
		&itemID,
		&itemStatus,
		&itemGeneric,
		&itemCanal,
		&milestoneStart,
		&milestoneEnd,
		&externalURL,
		&notif.SendDate,
		&notif.Unread,
		&notif.SendStatus,
		&tryPush,
		&notif.CreatedAt,
		&notif.UpdatedAt,
	); err != nil {
		return models.Notification{}, err
	}

	notif.ContentIcon = stringPtr(icon)
	notif.Sender = stringPtr(sender)
	notif.ItemType = stringPtr(itemType)
	notif.ItemID = stringPtr(itemID)
	notif.ItemStatusLabel = stringPtr(itemStatus)
	notif.ItemGenericStatus = stringPtr(itemGeneric)
	notif.ItemCanal = stringPtr(itemCanal)
	notif.ItemMilestoneStartDate = timePtr(milestoneStart)
	notif.ItemMilestoneEndDate = timePtr(milestoneEnd)
	notif.ItemExternalURL = stringPtr(externalURL)
	notif.TryPush = boolPtr(tryPush)

	return notif, nil
}
