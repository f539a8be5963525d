// Package achievement evaluates milestone rules against a user's wardrobe
// activity and records each milestone at most once.
package achievement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lalithlochan/solebox/internal/db"
	"github.com/lalithlochan/solebox/internal/metrics"
	"github.com/lalithlochan/solebox/internal/notify"
)

// Store provides user stats and the unlocked set.
type Store interface {
	GetUserStats(ctx context.Context, userID uuid.UUID) (*db.UserStats, error)
	ListAchievements(ctx context.Context, userID uuid.UUID) ([]*db.Achievement, error)
	InsertAchievement(ctx context.Context, userID uuid.UUID, key string, unlockedAt time.Time) (bool, error)
}

// Notifier emits user notifications.
type Notifier interface {
	Emit(ctx context.Context, n notify.NewNotification) (*db.Notification, error)
}

// Unlocked is an achievement the user holds, joined with its catalog entry.
type Unlocked struct {
	Rule
	UnlockedAt time.Time `json:"unlocked_at"`
}

// Checker evaluates the achievement catalog against a user's stats and
// unlocks every rule the user newly meets.
type Checker struct {
	store    Store
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewChecker creates a checker. notifier may be nil.
func NewChecker(store Store, notifier Notifier, logger *zap.Logger) *Checker {
	return &Checker{
		store:    store,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Check evaluates every rule for userID and returns the keys unlocked by
// this call. A key is reported only by the call whose insert created the
// row, so concurrent checks never report the same key twice.
func (c *Checker) Check(ctx context.Context, userID uuid.UUID) ([]string, error) {
	stats, err := c.store.GetUserStats(ctx, userID)
	if err != nil {
		return nil, err
	}

	existing, err := c.store.ListAchievements(ctx, userID)
	if err != nil {
		return nil, err
	}
	have := make(map[string]bool, len(existing))
	for _, a := range existing {
		have[a.Key] = true
	}

	unlocked := []string{}
	now := c.now()

	for _, rule := range catalog {
		if have[rule.Key] || !rule.Satisfied(stats) {
			continue
		}

		inserted, err := c.store.InsertAchievement(ctx, userID, rule.Key, now)
		if err != nil {
			return nil, err
		}
		if !inserted {
			// A concurrent check got there first.
			continue
		}

		unlocked = append(unlocked, rule.Key)
		metrics.RecordAchievementUnlocked(rule.Key)
		c.logger.Info("achievement unlocked",
			zap.String("user_id", userID.String()),
			zap.String("achievement_key", rule.Key),
		)

		c.announce(ctx, userID, rule)
	}

	return unlocked, nil
}

// List returns the user's unlocked achievements. Rows whose key is no
// longer in the catalog are skipped.
func (c *Checker) List(ctx context.Context, userID uuid.UUID) ([]Unlocked, error) {
	rows, err := c.store.ListAchievements(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]Unlocked, 0, len(rows))
	for _, a := range rows {
		rule, ok := Lookup(a.Key)
		if !ok {
			continue
		}
		out = append(out, Unlocked{Rule: rule, UnlockedAt: a.UnlockedAt})
	}
	return out, nil
}

func (c *Checker) announce(ctx context.Context, userID uuid.UUID, rule Rule) {
	if c.notifier == nil {
		return
	}

	_, err := c.notifier.Emit(ctx, notify.NewNotification{
		UserID:   userID,
		Type:     db.TypeAchievementUnlocked,
		Title:    "Achievement unlocked: " + rule.Title,
		Message:  rule.Description,
		Severity: db.SeveritySuccess,
		Metadata: map[string]any{"achievement_key": rule.Key},
	})
	if err != nil {
		c.logger.Warn("failed to emit achievement notification",
			zap.String("user_id", userID.String()),
			zap.String("achievement_key", rule.Key),
			zap.Error(err),
		)
	}
}
