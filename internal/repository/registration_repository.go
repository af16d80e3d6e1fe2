package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/ami-notifications/notifier/internal/models"
)

// RegistrationRepository is the read side of the registration directory.
// Registrations are owned and mutated by the registration CRUD surface.
type RegistrationRepository interface {
	ListEnabled(ctx context.Context, userID string) ([]models.Registration, error)
}

type registrationRepository struct {
	db *sql.DB
}

func NewRegistrationRepository(db *sql.DB) RegistrationRepository {
	return &registrationRepository{db: db}
}

// ListEnabled returns the user's enabled registrations. A row whose
// subscription payload cannot be decoded is returned with an empty
// Subscription so the caller can report it without losing the others.
func (r *registrationRepository) ListEnabled(ctx context.Context, userID string) ([]models.Registration, error) {
	const query = `
		SELECT id, user_id, subscription, enabled, created_at
		FROM ami.registrations
		WHERE user_id = $1 AND enabled
		ORDER BY created_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, strings.TrimSpace(userID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var registrations []models.Registration
	for rows.Next() {
		var (
			reg models.Registration
			raw []byte
		)
		if err := rows.Scan(&reg.ID, &reg.UserID, &raw, &reg.Enabled, &reg.CreatedAt); err != nil {
			return nil, err
		}
		var sub models.Subscription
		if err := json.Unmarshal(raw, &sub); err == nil {
			reg.Subscription = sub
		}
		registrations = append(registrations, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return registrations, nil
}
