package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/lalithlochan/solebox/internal/auth"
	"github.com/lalithlochan/solebox/internal/metrics"
	"github.com/lalithlochan/solebox/internal/redis"
)

// RouterConfig holds what the router needs beyond the handler.
type RouterConfig struct {
	Verifier    *auth.Verifier
	ServiceKey  string
	RateLimiter *redis.RateLimiter // nil disables rate limiting
	Logger      *zap.Logger
}

// NewRouter mounts every route on a chi router.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)
	r.Use(RequestLogger(cfg.Logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", metrics.Handler())

	// Scheduler endpoints carry no user identity.
	r.Route("/internal", func(r chi.Router) {
		r.Use(RateLimitMiddleware(cfg.RateLimiter, cfg.Logger, IPKeyFunc))
		r.Use(auth.ServiceKeyMiddleware(cfg.ServiceKey))

		r.Post("/notifications/sweep", h.SweepNotifications)
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(auth.Middleware(cfg.Verifier, cfg.Logger))
		r.Use(RateLimitMiddleware(cfg.RateLimiter, cfg.Logger, UserKeyFunc))

		r.Post("/items/{id}/refresh-price", h.RefreshPrice)

		r.Post("/achievements/check", h.CheckAchievements)
		r.Get("/achievements", h.ListAchievements)

		r.Get("/notifications", h.ListNotifications)
		r.Get("/notifications/unread-count", h.UnreadCount)
		r.Post("/notifications/read-all", h.MarkAllNotificationsRead)
		r.Patch("/notifications/{id}/read", h.MarkNotificationRead)
		r.Delete("/notifications/{id}", h.DeleteNotification)
	})

	return r
}
