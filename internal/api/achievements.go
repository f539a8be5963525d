package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/lalithlochan/solebox/internal/achievement"
)

// CheckAchievements handles POST /v1/achievements/check
// With ?async=true and a configured queue the check is handed to the worker.
func (h *Handler) CheckAchievements(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	if r.URL.Query().Get("async") == "true" && h.activity != nil {
		messageID, err := h.activity.Enqueue(ctx, userID, "manual_check")
		if err != nil {
			h.writeError(w, http.StatusInternalServerError, "internal_error", "Failed to queue achievement check", "")
			return
		}

		h.logger.Info("achievement check queued",
			zap.String("user_id", userID.String()),
			zap.String("message_id", messageID),
		)
		h.writeJSON(w, http.StatusAccepted, map[string]interface{}{
			"success": true,
			"queued":  true,
		})
		return
	}

	unlocked, err := h.achievements.Check(ctx, userID)
	if err != nil {
		h.logger.Error("achievement check failed",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		h.writeError(w, http.StatusInternalServerError, "internal_error", "Failed to check achievements", "")
		return
	}
	if unlocked == nil {
		unlocked = []string{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"unlocked": unlocked,
	})
}

// ListAchievements handles GET /v1/achievements
func (h *Handler) ListAchievements(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	list, err := h.achievements.List(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list achievements", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list achievements", "")
		return
	}
	if list == nil {
		list = []achievement.Unlocked{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":  list,
		"count": len(list),
	})
}
