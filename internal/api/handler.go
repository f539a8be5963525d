package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lalithlochan/solebox/internal/achievement"
	"github.com/lalithlochan/solebox/internal/auth"
	"github.com/lalithlochan/solebox/internal/db"
	"github.com/lalithlochan/solebox/internal/pricing"
	"github.com/lalithlochan/solebox/internal/redis"
	"github.com/lalithlochan/solebox/internal/sqs"
)

// PriceRefresher refreshes one tracked item's price
type PriceRefresher interface {
	Refresh(ctx context.Context, userID, itemID uuid.UUID) (*pricing.Quote, error)
}

// AchievementChecker evaluates and lists achievements
type AchievementChecker interface {
	Check(ctx context.Context, userID uuid.UUID) ([]string, error)
	List(ctx context.Context, userID uuid.UUID) ([]achievement.Unlocked, error)
}

// NotificationService defines the notification operations exposed over HTTP
type NotificationService interface {
	Sweep(ctx context.Context) (int64, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) (*db.Notification, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	List(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]*db.Notification, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// ErrorResponse represents an error in problem+json format
type ErrorResponse struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Services bundles the handler's collaborators. Idempotency and Activity
// are nil when Redis or SQS are not configured.
type Services struct {
	Prices        PriceRefresher
	Achievements  AchievementChecker
	Notifications NotificationService
	Idempotency   *redis.IdempotencyService
	Activity      *sqs.Producer
}

// Handler holds dependencies for API handlers
type Handler struct {
	logger        *zap.Logger
	prices        PriceRefresher
	achievements  AchievementChecker
	notifications NotificationService
	idempotency   *redis.IdempotencyService
	activity      *sqs.Producer
}

// NewHandler creates a new API handler
func NewHandler(logger *zap.Logger, svc Services) *Handler {
	return &Handler{
		logger:        logger,
		prices:        svc.Prices,
		achievements:  svc.Achievements,
		notifications: svc.Notifications,
		idempotency:   svc.Idempotency,
		activity:      svc.Activity,
	}
}

// callerID returns the authenticated user or writes a 401.
func (h *Handler) callerID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", "")
		return uuid.Nil, false
	}
	return userID, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, errType, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Type:   errType,
		Title:  title,
		Status: status,
		Detail: detail,
	})
}
