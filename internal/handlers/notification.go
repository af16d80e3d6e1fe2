package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ami-notifications/notifier/internal/authz"
	"github.com/ami-notifications/notifier/internal/models"
	"github.com/ami-notifications/notifier/internal/notification"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

type NotificationHandler struct {
	service notification.Service
	logger  zerolog.Logger
}

func NewNotificationHandler(service notification.Service, logger zerolog.Logger) *NotificationHandler {
	return &NotificationHandler{
		service: service,
		logger:  logger.With().Str("handler", "notification").Logger(),
	}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing user context", http.StatusUnauthorized)
		return
	}

	limit := 25
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	notifications, err := h.service.List(r.Context(), userID, limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list notifications")
		http.Error(w, "Failed to list notifications", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": notifications,
	})
}

type setReadRequest struct {
	Read *bool `json:"read" validate:"required"`
}

func (h *NotificationHandler) SetRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing user context", http.StatusUnauthorized)
		return
	}

	notifID := strings.TrimSpace(mux.Vars(r)["notificationID"])
	if notifID == "" {
		http.Error(w, "Notification ID is required", http.StatusBadRequest)
		return
	}

	var req setReadRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	notif, err := h.service.SetRead(r.Context(), userID, notifID, *req.Read)
	if err != nil {
		writeServiceError(w, h.logger.With().Str("notification_id", notifID).Logger(), err, "Failed to update notification")
		return
	}

	writeJSON(w, http.StatusOK, notif)
}

type createNotificationRequest struct {
	UserID       string  `json:"user_id" validate:"required,max=255"`
	ContentTitle string  `json:"content_title" validate:"required,max=255"`
	ContentBody  string  `json:"content_body" validate:"max=4096"`
	ContentIcon  *string `json:"content_icon" validate:"omitempty,max=1024"`
	Sender       *string `json:"sender" validate:"omitempty,max=255"`

	ItemType               *string    `json:"item_type"`
	ItemID                 *string    `json:"item_id"`
	ItemStatusLabel        *string    `json:"item_status_label"`
	ItemGenericStatus      *string    `json:"item_generic_status"`
	ItemCanal              *string    `json:"item_canal"`
	ItemMilestoneStartDate *time.Time `json:"item_milestone_start_date"`
	ItemMilestoneEndDate   *time.Time `json:"item_milestone_end_date"`
	ItemExternalURL        *string    `json:"item_external_url" validate:"omitempty,url"`

	TryPush *bool `json:"try_push"`
}

// Create persists a notification for any user and dispatches it. Internal
// callers only.
func (h *NotificationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createNotificationRequest
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tryPush := true
	if req.TryPush != nil {
		tryPush = *req.TryPush
	}

	notif, err := h.service.CreateAndDispatch(r.Context(), models.NotificationInput{
		UserID:                 req.UserID,
		ContentTitle:           req.ContentTitle,
		ContentBody:            req.ContentBody,
		ContentIcon:            req.ContentIcon,
		Sender:                 req.Sender,
		ItemType:               req.ItemType,
		ItemID:                 req.ItemID,
		ItemStatusLabel:        req.ItemStatusLabel,
		ItemGenericStatus:      req.ItemGenericStatus,
		ItemCanal:              req.ItemCanal,
		ItemMilestoneStartDate: req.ItemMilestoneStartDate,
		ItemMilestoneEndDate:   req.ItemMilestoneEndDate,
		ItemExternalURL:        req.ItemExternalURL,
	}, tryPush)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to create notification")
		return
	}

	writeJSON(w, http.StatusCreated, notif)
}
