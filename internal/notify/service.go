// Package notify owns in-app notification lifecycle: creation, read
// marking, listing and the expiry sweep.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lalithlochan/solebox/internal/db"
	"github.com/lalithlochan/solebox/internal/metrics"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Store is the persistence the service needs. *db.Repository satisfies it.
type Store interface {
	CreateNotification(ctx context.Context, notif *db.Notification) error
	DeleteExpiredNotifications(ctx context.Context, now time.Time) (int64, error)
	CountExpiredNotifications(ctx context.Context, now time.Time) (int64, error)
	MarkNotificationRead(ctx context.Context, userID, id uuid.UUID, at time.Time) (*db.Notification, bool, error)
	MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error)
	ListNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool, now time.Time, limit, offset int) ([]*db.Notification, error)
	CountUnreadNotifications(ctx context.Context, userID uuid.UUID, now time.Time) (int, error)
	DeleteNotification(ctx context.Context, userID, id uuid.UUID) error
}

// Publisher pushes a stored notification to out-of-app subscribers.
type Publisher interface {
	PublishNotification(ctx context.Context, notif *db.Notification) (string, error)
}

// NewNotification describes a notification to emit. A zero TTL means the
// notification never expires.
type NewNotification struct {
	UserID   uuid.UUID
	Type     string
	Title    string
	Message  string
	Severity string
	TTL      time.Duration
	Metadata map[string]any
}

// Service owns the notification lifecycle.
type Service struct {
	store     Store
	publisher Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates the service. publisher may be nil when push fan-out
// is not configured.
func NewService(store Store, publisher Publisher, logger *zap.Logger) *Service {
	return &Service{
		store:     store,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Emit stores a notification for the user and pushes it when a publisher
// is configured. Push failures are logged and do not fail the call.
func (s *Service) Emit(ctx context.Context, n NewNotification) (*db.Notification, error) {
	if n.Severity == "" {
		n.Severity = db.SeverityInfo
	}
	if !validSeverity(n.Severity) {
		return nil, fmt.Errorf("invalid severity %q", n.Severity)
	}

	notif := &db.Notification{
		ID:       uuid.New(),
		UserID:   n.UserID,
		Type:     n.Type,
		Title:    n.Title,
		Message:  n.Message,
		Severity: n.Severity,
	}
	if n.TTL > 0 {
		expires := s.now().Add(n.TTL)
		notif.ExpiresAt = &expires
	}
	if len(n.Metadata) > 0 {
		raw, err := json.Marshal(n.Metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal metadata: %w", err)
		}
		notif.Metadata = raw
	}

	if err := s.store.CreateNotification(ctx, notif); err != nil {
		return nil, err
	}

	s.logger.Info("notification created",
		zap.String("notification_id", notif.ID.String()),
		zap.String("user_id", notif.UserID.String()),
		zap.String("type", notif.Type),
	)

	if s.publisher != nil {
		if msgID, err := s.publisher.PublishNotification(ctx, notif); err != nil {
			s.logger.Warn("failed to push notification",
				zap.String("notification_id", notif.ID.String()),
				zap.Error(err),
			)
		} else {
			s.logger.Debug("notification pushed",
				zap.String("notification_id", notif.ID.String()),
				zap.String("message_id", msgID),
			)
		}
	}

	return notif, nil
}

// Sweep deletes every notification whose expiry is strictly before now.
func (s *Service) Sweep(ctx context.Context) (int64, error) {
	now := s.now()

	deleted, err := s.store.DeleteExpiredNotifications(ctx, now)
	if err != nil {
		s.logger.Error("notification sweep failed", zap.Error(err))
		return 0, err
	}

	metrics.RecordNotificationsSwept(deleted)
	s.logger.Info("notification sweep complete",
		zap.Int64("deleted", deleted),
		zap.Time("cutoff", now),
	)

	return deleted, nil
}

// CountExpired reports how many notifications a Sweep run now would delete.
func (s *Service) CountExpired(ctx context.Context) (int64, error) {
	return s.store.CountExpiredNotifications(ctx, s.now())
}

// MarkRead marks one of the user's notifications read. It returns
// apperr.ErrNotFound when the row is missing or owned by someone else.
func (s *Service) MarkRead(ctx context.Context, userID, id uuid.UUID) (*db.Notification, error) {
	at := s.now()

	notif, changed, err := s.store.MarkNotificationRead(ctx, userID, id, at)
	if err != nil {
		return nil, err
	}

	if changed {
		metrics.RecordNotificationsMarkedRead(1)
	}

	return notif, nil
}

// MarkAllRead marks all of the user's unread notifications read and
// returns how many changed.
func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	marked, err := s.store.MarkAllNotificationsRead(ctx, userID, s.now())
	if err != nil {
		return 0, err
	}

	metrics.RecordNotificationsMarkedRead(marked)
	s.logger.Debug("notifications marked read",
		zap.String("user_id", userID.String()),
		zap.Int64("count", marked),
	)

	return marked, nil
}

// List returns a page of the user's unexpired notifications, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]*db.Notification, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	notifications, err := s.store.ListNotifications(ctx, userID, unreadOnly, s.now(), limit, offset)
	if err != nil {
		return nil, err
	}
	if notifications == nil {
		notifications = []*db.Notification{}
	}
	return notifications, nil
}

// UnreadCount counts the user's unread, unexpired notifications.
func (s *Service) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.store.CountUnreadNotifications(ctx, userID, s.now())
}

// Delete removes one of the user's notifications. Another user's id
// returns db.ErrNotFound.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return s.store.DeleteNotification(ctx, userID, id)
}

func validSeverity(s string) bool {
	switch s {
	case db.SeverityInfo, db.SeveritySuccess, db.SeverityWarning, db.SeverityError:
		return true
	}
	return false
}
