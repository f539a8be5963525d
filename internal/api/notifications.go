package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lalithlochan/solebox/internal/apperr"
	"github.com/lalithlochan/solebox/internal/notify"
)

// SweepResponse is returned by the sweep endpoint
type SweepResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	DeletedCount int64  `json:"deletedCount"`
}

// SweepNotifications handles POST /internal/notifications/sweep
func (h *Handler) SweepNotifications(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.notifications.Sweep(r.Context())
	if err != nil {
		h.logger.Error("notification sweep failed", zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"message": "Failed to clean up expired notifications",
		})
		return
	}

	h.writeJSON(w, http.StatusOK, SweepResponse{
		Success:      true,
		Message:      fmt.Sprintf("Deleted %d expired notifications", deleted),
		DeletedCount: deleted,
	})
}

// MarkNotificationRead handles PATCH /v1/notifications/{id}/read
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid notification ID", "ID must be a valid UUID")
		return
	}

	n, err := h.notifications.MarkRead(r.Context(), userID, id)
	if errors.Is(err, apperr.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "not_found", "Notification not found", "")
		return
	}
	if err != nil {
		h.logger.Error("failed to mark notification read", zap.Error(err), zap.String("notification_id", id.String()))
		h.writeError(w, http.StatusInternalServerError, "internal_error", "Failed to mark notification read", "")
		return
	}

	h.writeJSON(w, http.StatusOK, n)
}

// MarkAllNotificationsRead handles POST /v1/notifications/read-all
func (h *Handler) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	marked, err := h.notifications.MarkAllRead(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to mark all notifications read", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal_error", "Failed to mark notifications read", "")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"markedCount": marked,
	})
}

// ListNotifications handles GET /v1/notifications
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	limit := notify.DefaultPageSize
	offset := 0
	if v := q.Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil && l > 0 {
			limit = l
		}
	}
	if limit > notify.MaxPageSize {
		limit = notify.MaxPageSize
	}
	if v := q.Get("offset"); v != "" {
		if o, err := strconv.Atoi(v); err == nil && o >= 0 {
			offset = o
		}
	}
	unreadOnly := q.Get("unread") == "true"

	list, err := h.notifications.List(r.Context(), userID, unreadOnly, limit, offset)
	if err != nil {
		h.logger.Error("failed to list notifications", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list notifications", "")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":   list,
		"limit":  limit,
		"offset": offset,
		"count":  len(list),
	})
}

// UnreadCount handles GET /v1/notifications/unread-count
func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	count, err := h.notifications.UnreadCount(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to count unread notifications", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal_error", "Failed to count notifications", "")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

// DeleteNotification handles DELETE /v1/notifications/{id}
func (h *Handler) DeleteNotification(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid notification ID", "ID must be a valid UUID")
		return
	}

	err = h.notifications.Delete(r.Context(), userID, id)
	if errors.Is(err, apperr.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "not_found", "Notification not found", "")
		return
	}
	if err != nil {
		h.logger.Error("failed to delete notification", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal_error", "Failed to delete notification", "")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
