package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lalithlochan/solebox/internal/apperr"
	"github.com/lalithlochan/solebox/internal/metrics"
	"github.com/lalithlochan/solebox/internal/pricing"
	"github.com/lalithlochan/solebox/internal/redis"
)

// PriceRefreshResponse is returned for a successful refresh
type PriceRefreshResponse struct {
	Success     bool      `json:"success"`
	Price       float64   `json:"price"`
	RetailPrice *float64  `json:"retailPrice"`
	StoreName   string    `json:"storeName"`
	InStock     *bool     `json:"inStock"`
	Message     string    `json:"message"`
	CheckedAt   time.Time `json:"checkedAt"`
}

// PriceRefreshFailure is returned when the refresh could not produce a price
type PriceRefreshFailure struct {
	Success       bool   `json:"success"`
	ErrorCategory string `json:"errorCategory"`
	Message       string `json:"message"`
	Retryable     bool   `json:"retryable"`
}

var categoryMessages = map[string]string{
	apperr.CategoryUnsupportedRetailer: "This retailer is not supported for automatic price checks",
	apperr.CategoryLayoutChanged:       "Could not find a price on the product page",
	apperr.CategoryInvalidURL:          "The product link is not a valid web address",
	apperr.CategoryFetchFailed:         "Could not reach the retailer, try again later",
}

// RefreshPrice handles POST /v1/items/{id}/refresh-price
// Supports idempotency via the Idempotency-Key header.
func (h *Handler) RefreshPrice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid item ID", "ID must be a valid UUID")
		return
	}

	idempotencyKey := r.Header.Get("Idempotency-Key")
	scope := userID.String()
	reserved := false

	if idempotencyKey != "" && h.idempotency != nil {
		cached, err := h.idempotency.CheckOrReserve(ctx, scope, idempotencyKey)
		switch {
		case errors.Is(err, redis.ErrDuplicateRequest):
			h.writeError(w, http.StatusConflict, "duplicate_request",
				"Request is already being processed",
				"Another request with this idempotency key is in progress")
			return
		case err != nil:
			h.logger.Warn("idempotency check failed, proceeding",
				zap.Error(err),
				zap.String("idempotency_key", idempotencyKey),
			)
		case cached != nil:
			metrics.RecordIdempotencyHit()
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-Idempotency-Replayed", "true")
			w.WriteHeader(cached.StatusCode)
			_, _ = w.Write(cached.Body)
			return
		default:
			reserved = true
		}
	}

	status, body := h.refresh(ctx, userID, itemID)

	if reserved {
		h.finishIdempotent(ctx, scope, idempotencyKey, status, body)
	}

	if problem, ok := body.(ErrorResponse); ok {
		h.writeError(w, status, problem.Type, problem.Title, problem.Detail)
		return
	}
	h.writeJSON(w, status, body)
}

// refresh runs the refresh and maps the outcome to a status and body.
func (h *Handler) refresh(ctx context.Context, userID, itemID uuid.UUID) (int, interface{}) {
	quote, err := h.prices.Refresh(ctx, userID, itemID)
	if err == nil {
		return http.StatusOK, PriceRefreshResponse{
			Success:     true,
			Price:       quote.Price,
			RetailPrice: quote.RetailPrice,
			StoreName:   quote.StoreName,
			InStock:     quote.InStock,
			Message:     quoteMessage(quote),
			CheckedAt:   quote.CheckedAt,
		}
	}

	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound, ErrorResponse{
			Type:   "not_found",
			Title:  "Tracked item not found",
			Status: http.StatusNotFound,
		}

	case errors.Is(err, apperr.ErrUnsupportedSource):
		category := apperr.Category(err)
		return http.StatusUnprocessableEntity, PriceRefreshFailure{
			ErrorCategory: category,
			Message:       categoryMessages[category],
		}

	case errors.Is(err, apperr.ErrTransientFetch):
		return http.StatusBadGateway, PriceRefreshFailure{
			ErrorCategory: apperr.CategoryFetchFailed,
			Message:       categoryMessages[apperr.CategoryFetchFailed],
			Retryable:     true,
		}
	}

	h.logger.Error("price refresh failed",
		zap.Error(err),
		zap.String("item_id", itemID.String()),
	)
	return http.StatusInternalServerError, ErrorResponse{
		Type:   "internal_error",
		Title:  "Failed to refresh price",
		Status: http.StatusInternalServerError,
	}
}

// finishIdempotent caches outcomes a retry would reproduce and releases
// the key for the rest, so a client can retry a transient failure with
// the same key.
func (h *Handler) finishIdempotent(ctx context.Context, scope, key string, status int, body interface{}) {
	if status != http.StatusOK && status != http.StatusUnprocessableEntity {
		if err := h.idempotency.Release(ctx, scope, key); err != nil {
			h.logger.Warn("failed to release idempotency key", zap.Error(err), zap.String("idempotency_key", key))
		}
		return
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return
	}
	result := &redis.IdempotencyResult{StatusCode: status, Body: raw}
	if err := h.idempotency.Store(ctx, scope, key, result, redis.IdempotencyTTL); err != nil {
		h.logger.Warn("failed to store idempotency result",
			zap.Error(err),
			zap.String("idempotency_key", key),
		)
	}
}

func quoteMessage(q *pricing.Quote) string {
	if q.Dropped() {
		return fmt.Sprintf("Price dropped from %.2f to %.2f at %s", *q.PreviousPrice, q.Price, q.StoreName)
	}
	return fmt.Sprintf("Price updated from %s", q.StoreName)
}
