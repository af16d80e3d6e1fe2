package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ami-notifications/notifier/internal/models"
)

const scheduledColumns = `id, user_id, content_title, content_body, content_icon, sender,
		reference, scheduled_at, sent_at, created_at, updated_at`

type ScheduledNotificationRepository interface {
	// CreateOrReschedule upserts the intent identified by (user, reference).
	// created is false when an existing row was rescheduled or left untouched
	// because it was already sent.
	CreateOrReschedule(ctx context.Context, in models.ScheduledNotificationInput) (id string, created bool, err error)
	Get(ctx context.Context, id string) (models.ScheduledNotification, error)
	ListDue(ctx context.Context, now time.Time) ([]models.ScheduledNotification, error)
	// Claim locks the row, re-checks that it is still due and unsent, then
	// materializes it into a notification and marks it sent in the same
	// transaction. claimed is false when another publisher got there first.
	Claim(ctx context.Context, id string, now time.Time) (notif models.Notification, claimed bool, err error)
	DeleteSentBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type scheduledNotificationRepository struct {
	db *sql.DB
}

func NewScheduledNotificationRepository(db *sql.DB) ScheduledNotificationRepository {
	return &scheduledNotificationRepository{db: db}
}

func (r *scheduledNotificationRepository) CreateOrReschedule(ctx context.Context, in models.ScheduledNotificationInput) (string, bool, error) {
	const upsert = `
		INSERT INTO ami.scheduled_notifications (user_id, reference, content_title, content_body, content_icon, sender, scheduled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, reference) DO UPDATE
		SET content_title = EXCLUDED.content_title,
		    content_body  = EXCLUDED.content_body,
		    content_icon  = EXCLUDED.content_icon,
		    scheduled_at  = EXCLUDED.scheduled_at,
		    updated_at    = NOW()
		WHERE ami.scheduled_notifications.sent_at IS NULL
		RETURNING id, (xmax = 0) AS inserted
	`

	userID := strings.TrimSpace(in.UserID)
	reference := strings.TrimSpace(in.Reference)

	var (
		id       string
		inserted bool
	)
	err := r.db.QueryRowContext(ctx, upsert,
		userID,
		reference,
		in.ContentTitle,
		in.ContentBody,
		in.ContentIcon,
		in.Sender,
		in.ScheduledAt,
	).Scan(&id, &inserted)
	if err == nil {
		return id, inserted, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", false, fmt.Errorf("upsert scheduled notification: %w", err)
	}

	// The conflicting row is already sent: keep it as is.
	const existing = `
		SELECT id
		FROM ami.scheduled_notifications
		WHERE user_id = $1 AND reference = $2
	`
	if err := r.db.QueryRowContext(ctx, existing, userID, reference).Scan(&id); err != nil {
		return "", false, fmt.Errorf("load sent scheduled notification: %w", err)
	}
	return id, false, nil
}

func (r *scheduledNotificationRepository) Get(ctx context.Context, id string) (models.ScheduledNotification, error) {
	query := `SELECT ` + scheduledColumns + ` FROM ami.scheduled_notifications WHERE id = $1`
	return scanScheduledNotification(r.db.QueryRowContext(ctx, query, strings.TrimSpace(id)))
}

func (r *scheduledNotificationRepository) ListDue(ctx context.Context, now time.Time) ([]models.ScheduledNotification, error) {
	query := `
		SELECT ` + scheduledColumns + `
		FROM ami.scheduled_notifications
		WHERE scheduled_at < $1 AND sent_at IS NULL
		ORDER BY created_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var due []models.ScheduledNotification
	for rows.Next() {
		sched, err := scanScheduledNotification(rows)
		if err != nil {
			return nil, err
		}
		due = append(due, sched)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return due, nil
}

func (r *scheduledNotificationRepository) Claim(ctx context.Context, id string, now time.Time) (models.Notification, bool, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return models.Notification{}, false, fmt.Errorf("begin claim transaction: %w", err)
	}
	defer tx.Rollback()

	lock := `
		SELECT ` + scheduledColumns + `
		FROM ami.scheduled_notifications
		WHERE id = $1 AND scheduled_at < $2 AND sent_at IS NULL
		FOR UPDATE
	`
	sched, err := scanScheduledNotification(tx.QueryRowContext(ctx, lock, id, now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Notification{}, false, nil
		}
		return models.Notification{}, false, fmt.Errorf("lock scheduled notification: %w", err)
	}

	notif, err := insertNotification(ctx, tx, sched.NotificationInput(now))
	if err != nil {
		return models.Notification{}, false, fmt.Errorf("materialize scheduled notification: %w", err)
	}

	const markSent = `
		UPDATE ami.scheduled_notifications
		SET sent_at = $2, updated_at = NOW()
		WHERE id = $1
	`
	if _, err := tx.ExecContext(ctx, markSent, sched.ID, notif.CreatedAt); err != nil {
		return models.Notification{}, false, fmt.Errorf("mark scheduled notification sent: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.Notification{}, false, fmt.Errorf("commit claim transaction: %w", err)
	}
	return notif, true, nil
}

func (r *scheduledNotificationRepository) DeleteSentBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `
		DELETE FROM ami.scheduled_notifications
		WHERE sent_at IS NOT NULL AND sent_at < $1
	`
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanScheduledNotification(scanner rowScanner) (models.ScheduledNotification, error) {
	var (
		sched  models.ScheduledNotification
		icon   sql.NullString
		sentAt sql.NullTime
	)
	if err := scanner.Scan(
		&sched.ID,
		&sched.UserID,
		&sched.ContentTitle,
		&sched.ContentBody,
		&icon,
		&sched.Sender,
		&sched.Reference,
		&sched.ScheduledAt,
		&sentAt,
		&sched.CreatedAt,
		&sched.UpdatedAt,
	); err != nil {
		return models.ScheduledNotification{}, err
	}
	sched.ContentIcon = stringPtr(icon)
	sched.SentAt = timePtr(sentAt)
	return sched, nil
}
