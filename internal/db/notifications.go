package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/lalithlochan/solebox/internal/apperr"
)

// CreateNotification inserts a new notification
func (r *Repository) CreateNotification(ctx context.Context, notif *Notification) error {
	query := `
		INSERT INTO notifications (
			id, user_id, type, title, message, severity,
			is_read, read_at, expires_at, metadata
		) VALUES (
			$1, $2, $3, $4, $5, $6, FALSE, NULL, $7, $8
		)
		RETURNING created_at
	`

	var metadata []byte
	if len(notif.Metadata) > 0 {
		metadata = notif.Metadata
	}

	err := r.db.Pool().QueryRow(
		ctx,
		query,
		notif.ID,
		notif.UserID,
		notif.Type,
		notif.Title,
		notif.Message,
		notif.Severity,
		notif.ExpiresAt,
		metadata,
	).Scan(&notif.CreatedAt)

	if err != nil {
		r.logger.Error("failed to create notification",
			zap.Error(err),
			zap.String("notification_id", notif.ID.String()),
		)
		return fmt.Errorf("insert notification: %w", err)
	}

	notif.IsRead = false
	notif.ReadAt = nil

	return nil
}

// DeleteExpiredNotifications removes rows whose expiry is strictly before now.
func (r *Repository) DeleteExpiredNotifications(ctx context.Context, now time.Time) (int64, error) {
	query := `
		DELETE FROM notifications
		WHERE expires_at IS NOT NULL AND expires_at < $1
	`

	result, err := r.db.Pool().Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired notifications: %w", err)
	}

	return result.RowsAffected(), nil
}

// CountExpiredNotifications counts the rows DeleteExpiredNotifications
// would remove for the same now.
func (r *Repository) CountExpiredNotifications(ctx context.Context, now time.Time) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM notifications
		WHERE expires_at IS NOT NULL AND expires_at < $1
	`

	var count int64
	if err := r.db.Pool().QueryRow(ctx, query, now).Scan(&count); err != nil {
		return 0, fmt.Errorf("count expired notifications: %w", err)
	}

	return count, nil
}

// MarkNotificationRead flags one notification owned by userID as read.
// An already-read row keeps its original read_at; changed reports whether
// this call flipped the row from unread to read.
func (r *Repository) MarkNotificationRead(ctx context.Context, userID, id uuid.UUID, at time.Time) (notif *Notification, changed bool, err error) {
	query := `
		WITH prev AS (
			SELECT is_read AS was_read
			FROM notifications
			WHERE id = $1 AND user_id = $2
			FOR UPDATE
		)
		UPDATE notifications
		SET is_read = TRUE, read_at = COALESCE(read_at, $3)
		FROM prev
		WHERE id = $1 AND user_id = $2
		RETURNING ` + notificationColumns + `, NOT prev.was_read`

	notif, err = scanNotification(r.db.Pool().QueryRow(ctx, query, id, userID, at), &changed)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("notification %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, false, fmt.Errorf("mark notification read: %w", err)
	}

	return notif, changed, nil
}

// MarkAllNotificationsRead flags every unread notification of userID and
// returns how many rows changed.
func (r *Repository) MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	query := `
		UPDATE notifications
		SET is_read = TRUE, read_at = $2
		WHERE user_id = $1 AND is_read = FALSE
	`

	result, err := r.db.Pool().Exec(ctx, query, userID, at)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}

	return result.RowsAffected(), nil
}

// ListNotifications returns the user's live notifications, newest first.
func (r *Repository) ListNotifications(
	ctx context.Context,
	userID uuid.UUID,
	unreadOnly bool,
	now time.Time,
	limit int,
	offset int,
) ([]*Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE user_id = $1
		  AND ($2 = FALSE OR is_read = FALSE)
		  AND (expires_at IS NULL OR expires_at >= $3)
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5
	`

	rows, err := r.db.Pool().Query(ctx, query, userID, unreadOnly, now, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*Notification
	for rows.Next() {
		notif, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, notif)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return notifications, nil
}

// CountUnreadNotifications counts the user's live unread notifications.
func (r *Repository) CountUnreadNotifications(ctx context.Context, userID uuid.UUID, now time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM notifications
		WHERE user_id = $1 AND is_read = FALSE
		  AND (expires_at IS NULL OR expires_at >= $2)
	`

	var count int
	if err := r.db.Pool().QueryRow(ctx, query, userID, now).Scan(&count); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}

	return count, nil
}

// DeleteNotification removes one notification owned by userID
func (r *Repository) DeleteNotification(ctx context.Context, userID, id uuid.UUID) error {
	result, err := r.db.Pool().Exec(ctx,
		`DELETE FROM notifications WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("notification %s: %w", id, apperr.ErrNotFound)
	}

	r.logger.Info("notification deleted", zap.String("notification_id", id.String()))

	return nil
}
