package handlers

import (
	"net/http"
	"time"

	"github.com/ami-notifications/notifier/internal/notification"
	"github.com/rs/zerolog"
)

// JobHandler exposes manual triggers for the periodic jobs.
type JobHandler struct {
	service notification.Service
	logger  zerolog.Logger
}

func NewJobHandler(service notification.Service, logger zerolog.Logger) *JobHandler {
	return &JobHandler{
		service: service,
		logger:  logger.With().Str("handler", "jobs").Logger(),
	}
}

func (h *JobHandler) PublishDue(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.PublishDue(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("manual publish-due failed")
		http.Error(w, "Failed to publish due notifications", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// maxRetentionDays keeps the window well inside time.Duration's range.
const maxRetentionDays = 36500

type sweepRequest struct {
	RetentionDays int `json:"retention_days" validate:"omitempty,min=1,max=36500"`
}

// Sweep deletes sent scheduled rows older than the configured window, or
// than retention_days when the body sets it.
func (h *JobHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	var req sweepRequest
	if r.ContentLength != 0 {
		if err := decodeBody(r, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	var (
		deleted int64
		err     error
	)
	if req.RetentionDays > maxRetentionDays {
		http.Error(w, "retention_days out of range", http.StatusBadRequest)
		return
	}
	if req.RetentionDays > 0 {
		deleted, err = h.service.DeleteExpiredSent(r.Context(), time.Duration(req.RetentionDays)*24*time.Hour)
	} else {
		deleted, err = h.service.Sweep(r.Context())
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("manual sweep failed")
		http.Error(w, "Failed to sweep scheduled notifications", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}
