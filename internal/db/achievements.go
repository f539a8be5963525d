package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// GetUserStats loads the aggregates achievement rules are evaluated against.
func (r *Repository) GetUserStats(ctx context.Context, userID uuid.UUID) (*UserStats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM user_items WHERE user_id = $1 AND status = 'owned'),
			(SELECT COUNT(*) FROM user_items WHERE user_id = $1 AND status = 'wishlist'),
			(SELECT COUNT(*) FROM wear_logs WHERE user_id = $1),
			(SELECT COUNT(*) FROM tracked_items WHERE user_id = $1)
	`

	var stats UserStats
	err := r.db.Pool().QueryRow(ctx, query, userID).Scan(
		&stats.OwnedItems,
		&stats.WishlistItems,
		&stats.WearLogs,
		&stats.TrackedItems,
	)
	if err != nil {
		r.logger.Error("failed to load user stats",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return nil, fmt.Errorf("query user stats: %w", err)
	}

	return &stats, nil
}

// ListAchievements returns the user's unlocked achievements, oldest first.
func (r *Repository) ListAchievements(ctx context.Context, userID uuid.UUID) ([]*Achievement, error) {
	query := `
		SELECT id, user_id, achievement_key, unlocked_at
		FROM achievements
		WHERE user_id = $1
		ORDER BY unlocked_at ASC
	`

	rows, err := r.db.Pool().Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query achievements: %w", err)
	}
	defer rows.Close()

	var achievements []*Achievement
	for rows.Next() {
		var a Achievement
		if err := rows.Scan(&a.ID, &a.UserID, &a.Key, &a.UnlockedAt); err != nil {
			return nil, fmt.Errorf("scan achievement: %w", err)
		}
		achievements = append(achievements, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return achievements, nil
}

// InsertAchievement records key for userID. It reports false when the row
// already existed; the (user_id, achievement_key) unique constraint decides,
// so concurrent callers can never both see true.
func (r *Repository) InsertAchievement(ctx context.Context, userID uuid.UUID, key string, unlockedAt time.Time) (bool, error) {
	query := `
		INSERT INTO achievements (id, user_id, achievement_key, unlocked_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, achievement_key) DO NOTHING
		RETURNING id
	`

	var id uuid.UUID
	err := r.db.Pool().QueryRow(ctx, query, uuid.New(), userID, key, unlockedAt).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		r.logger.Error("failed to insert achievement",
			zap.Error(err),
			zap.String("user_id", userID.String()),
			zap.String("achievement_key", key),
		)
		return false, fmt.Errorf("insert achievement: %w", err)
	}

	return true, nil
}
