// Package pricing refreshes the retailer price of a tracked item.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lalithlochan/solebox/internal/apperr"
	"github.com/lalithlochan/solebox/internal/db"
	"github.com/lalithlochan/solebox/internal/metrics"
	"github.com/lalithlochan/solebox/internal/notify"
)

const (
	// DefaultPriceDropTTL is how long a price drop notification stays visible.
	DefaultPriceDropTTL = 30 * 24 * time.Hour

	// unresolvedRetailer labels refreshes whose URL matched no retailer rule.
	unresolvedRetailer = "unsupported"
)

// Store reads and updates tracked items, always scoped to their owner.
type Store interface {
	GetTrackedItem(ctx context.Context, userID, id uuid.UUID) (*db.TrackedItem, error)
	UpdateTrackedItemPrice(ctx context.Context, userID, id uuid.UUID, upd db.PriceUpdate) error
}

// PageFetcher downloads and parses a product page for a retailer rule.
type PageFetcher interface {
	Fetch(ctx context.Context, rule *Rule, productURL string) (*goquery.Document, error)
}

// Notifier emits user notifications.
type Notifier interface {
	Emit(ctx context.Context, n notify.NewNotification) (*db.Notification, error)
}

// Quote is the result of a successful refresh.
type Quote struct {
	ItemID        uuid.UUID
	Price         float64
	RetailPrice   *float64
	StoreName     string
	InStock       *bool
	PreviousPrice *float64
	CheckedAt     time.Time
}

// Dropped reports whether the sale price fell below the last known one.
func (q *Quote) Dropped() bool {
	return q.PreviousPrice != nil && q.Price < *q.PreviousPrice
}

// Config tunes the refresh service. Zero values take defaults.
type Config struct {
	PriceDropTTL time.Duration
}

// Service refreshes the price of one tracked item on demand.
type Service struct {
	store    Store
	fetcher  PageFetcher
	notifier Notifier
	config   Config
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates the refresh service. notifier may be nil, in which
// case price drops are not announced.
func NewService(store Store, fetcher PageFetcher, notifier Notifier, cfg Config, logger *zap.Logger) *Service {
	if cfg.PriceDropTTL <= 0 {
		cfg.PriceDropTTL = DefaultPriceDropTTL
	}

	return &Service{
		store:    store,
		fetcher:  fetcher,
		notifier: notifier,
		config:   cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Refresh fetches the current price of one of the user's tracked items
// and stores it. Items the user does not own are reported as
// apperr.ErrNotFound; retailer problems come back as
// *apperr.UnsupportedSourceError or *apperr.TransientFetchError and leave
// the item untouched.
func (s *Service) Refresh(ctx context.Context, userID, itemID uuid.UUID) (*Quote, error) {
	item, err := s.store.GetTrackedItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	rule, host, err := Resolve(item.ProductURL)
	if err != nil {
		// The host is user input; keep it out of metric labels.
		s.recordFailure(item, unresolvedRetailer, err, zap.String("host", host))
		return nil, err
	}

	doc, err := s.fetcher.Fetch(ctx, rule, item.ProductURL)
	if err != nil {
		s.recordFailure(item, rule.Key(), err)
		return nil, err
	}

	ext, err := Extract(doc, rule)
	if err != nil {
		s.recordFailure(item, rule.Key(), err)
		return nil, err
	}

	quote := &Quote{
		ItemID:        item.ID,
		Price:         ext.SalePrice,
		RetailPrice:   ext.RetailPrice,
		StoreName:     ext.StoreName,
		InStock:       ext.InStock,
		PreviousPrice: item.SalePrice,
		CheckedAt:     s.now(),
	}

	err = s.store.UpdateTrackedItemPrice(ctx, userID, itemID, db.PriceUpdate{
		SalePrice:   quote.Price,
		RetailPrice: quote.RetailPrice,
		Retailer:    quote.StoreName,
		InStock:     quote.InStock,
		CheckedAt:   quote.CheckedAt,
	})
	if err != nil {
		// Ownership was checked above, so a miss here means the item was
		// deleted mid-refresh.
		if !errors.Is(err, apperr.ErrNotFound) {
			s.logger.Error("failed to store refreshed price",
				zap.String("item_id", itemID.String()),
				zap.Error(err),
			)
		}
		return nil, err
	}

	metrics.RecordPriceRefresh(rule.Key(), "ok")
	s.logger.Info("price refreshed",
		zap.String("item_id", itemID.String()),
		zap.String("retailer", rule.Key()),
		zap.Float64("price", quote.Price),
	)

	if quote.Dropped() {
		s.announceDrop(ctx, item, quote)
	}

	return quote, nil
}

func (s *Service) recordFailure(item *db.TrackedItem, retailer string, err error, extra ...zap.Field) {
	category := apperr.Category(err)
	if category == "" {
		category = "error"
	}
	metrics.RecordPriceRefresh(retailer, category)

	fields := append([]zap.Field{
		zap.String("item_id", item.ID.String()),
		zap.String("retailer", retailer),
		zap.String("category", category),
		zap.Error(err),
	}, extra...)
	s.logger.Info("price refresh failed", fields...)
}

func (s *Service) announceDrop(ctx context.Context, item *db.TrackedItem, q *Quote) {
	if s.notifier == nil {
		return
	}

	_, err := s.notifier.Emit(ctx, notify.NewNotification{
		UserID:   item.UserID,
		Type:     db.TypePriceDrop,
		Title:    "Price drop",
		Message:  fmt.Sprintf("%s dropped from %.2f to %.2f at %s", item.Name, *q.PreviousPrice, q.Price, q.StoreName),
		Severity: db.SeveritySuccess,
		TTL:      s.config.PriceDropTTL,
		Metadata: map[string]any{
			"item_id":        item.ID.String(),
			"previous_price": *q.PreviousPrice,
			"price":          q.Price,
			"retailer":       q.StoreName,
			"product_url":    item.ProductURL,
		},
	})
	if err != nil {
		s.logger.Warn("failed to emit price drop notification",
			zap.String("item_id", item.ID.String()),
			zap.Error(err),
		)
	}
}
