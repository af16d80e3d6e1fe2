package handlers

import (
	"net/http"
	"time"

	"github.com/ami-notifications/notifier/internal/authz"
	"github.com/ami-notifications/notifier/internal/models"
	"github.com/ami-notifications/notifier/internal/notification"
	"github.com/rs/zerolog"
)

type ScheduledHandler struct {
	service notification.Service
	logger  zerolog.Logger
}

func NewScheduledHandler(service notification.Service, logger zerolog.Logger) *ScheduledHandler {
	return &ScheduledHandler{
		service: service,
		logger:  logger.With().Str("handler", "scheduled_notification").Logger(),
	}
}

type scheduleRequest struct {
	Reference    string    `json:"reference" validate:"required,max=255"`
	ContentTitle string    `json:"content_title" validate:"required,max=255"`
	ContentBody  string    `json:"content_body" validate:"max=4096"`
	ContentIcon  *string   `json:"content_icon" validate:"omitempty,max=1024"`
	Sender       string    `json:"sender" validate:"max=255"`
	ScheduledAt  time.Time `json:"scheduled_at" validate:"required"`
}

type scheduleResponse struct {
	ID      string `json:"id"`
	Created bool   `json:"created"`
}

// Create stores or reschedules a notification for the caller, keyed by
// reference. 201 when a row was inserted, 200 otherwise.
func (h *ScheduledHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing user context", http.StatusUnauthorized)
		return
	}

	var req scheduleRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id, created, err := h.service.CreateOrReschedule(r.Context(), models.ScheduledNotificationInput{
		UserID:       userID,
		Reference:    req.Reference,
		ContentTitle: req.ContentTitle,
		ContentBody:  req.ContentBody,
		ContentIcon:  req.ContentIcon,
		Sender:       req.Sender,
		ScheduledAt:  req.ScheduledAt,
	})
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to schedule notification")
		return
	}

	writeJSON(w, createdStatus(created), scheduleResponse{ID: id, Created: created})
}

// Welcome is called by the app after the caller's first login.
func (h *ScheduledHandler) Welcome(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing user context", http.StatusUnauthorized)
		return
	}

	id, created, err := h.service.ScheduleWelcome(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to schedule welcome notification")
		return
	}

	writeJSON(w, createdStatus(created), scheduleResponse{ID: id, Created: created})
}

func createdStatus(created bool) int {
	if created {
		return http.StatusCreated
	}
	return http.StatusOK
}
