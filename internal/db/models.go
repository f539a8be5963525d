package db

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TrackedItem is a wishlist or owned product whose retailer price is monitored.
type TrackedItem struct {
	ID            uuid.UUID  `json:"id"`
	UserID        uuid.UUID  `json:"user_id"`
	Name          string     `json:"name"`
	ProductURL    string     `json:"product_url"`
	SalePrice     *float64   `json:"sale_price,omitempty"`
	RetailPrice   *float64   `json:"retail_price,omitempty"`
	Retailer      *string    `json:"retailer,omitempty"`
	InStock       *bool      `json:"in_stock,omitempty"`
	LastCheckedAt *time.Time `json:"last_checked_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// PriceUpdate is what a successful refresh writes back to a tracked item.
type PriceUpdate struct {
	SalePrice   float64
	RetailPrice *float64
	Retailer    string
	InStock     *bool
	CheckedAt   time.Time
}

// Achievement is an unlocked milestone. Unique per (UserID, Key).
type Achievement struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	Key        string    `json:"achievement_key"`
	UnlockedAt time.Time `json:"unlocked_at"`
}

// UserStats are the aggregates achievement rules are evaluated against.
type UserStats struct {
	OwnedItems    int
	WishlistItems int
	WearLogs      int
	TrackedItems  int
}

// Notification is an in-app notification row.
// ReadAt is non-nil exactly when IsRead is true.
type Notification struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Type      string          `json:"type"`
	Title     string          `json:"title"`
	Message   string          `json:"message"`
	Severity  string          `json:"severity"`
	IsRead    bool            `json:"is_read"`
	ReadAt    *time.Time      `json:"read_at,omitempty"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Severity constants
const (
	SeverityInfo    = "info"
	SeveritySuccess = "success"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Notification type constants
const (
	TypeAchievementUnlocked = "achievement_unlocked"
	TypePriceDrop           = "price_drop"
)
