package db

import (
	"go.uber.org/zap"
)

// Repository handles database operations for tracked items, achievements
// and notifications. Every user-scoped query filters on user_id so a row
// owned by someone else behaves exactly like a missing row.
type Repository struct {
	db     *DB
	logger *zap.Logger
}

// NewRepository creates a new repository
func NewRepository(db *DB, logger *zap.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const notificationColumns = `
	id, user_id, type, title, message, severity,
	is_read, read_at, expires_at, metadata, created_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

// scanNotification reads notificationColumns, followed by any extra
// columns into extra.
func scanNotification(row rowScanner, extra ...any) (*Notification, error) {
	var n Notification
	var metadata []byte
	dest := []any{
		&n.ID,
		&n.UserID,
		&n.Type,
		&n.Title,
		&n.Message,
		&n.Severity,
		&n.IsRead,
		&n.ReadAt,
		&n.ExpiresAt,
		&metadata,
		&n.CreatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		n.Metadata = metadata
	}
	return &n, nil
}
