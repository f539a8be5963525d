package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/lalithlochan/solebox/internal/apperr"
)

// GetTrackedItem retrieves a tracked item owned by userID
func (r *Repository) GetTrackedItem(ctx context.Context, userID, id uuid.UUID) (*TrackedItem, error) {
	query := `
		SELECT
			id, user_id, name, product_url, sale_price, retail_price,
			retailer, in_stock, last_checked_at, created_at
		FROM tracked_items
		WHERE id = $1 AND user_id = $2
	`

	var item TrackedItem
	err := r.db.Pool().QueryRow(ctx, query, id, userID).Scan(
		&item.ID,
		&item.UserID,
		&item.Name,
		&item.ProductURL,
		&item.SalePrice,
		&item.RetailPrice,
		&item.Retailer,
		&item.InStock,
		&item.LastCheckedAt,
		&item.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("tracked item %s: %w", id, apperr.ErrNotFound)
	}

	if err != nil {
		r.logger.Error("failed to get tracked item",
			zap.Error(err),
			zap.String("item_id", id.String()),
		)
		return nil, fmt.Errorf("query tracked item: %w", err)
	}

	return &item, nil
}

// UpdateTrackedItemPrice stores the result of a price refresh and appends
// a price_history row in the same transaction.
func (r *Repository) UpdateTrackedItemPrice(ctx context.Context, userID, id uuid.UUID, upd PriceUpdate) error {
	tx, err := r.db.Pool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	updateQuery := `
		UPDATE tracked_items
		SET sale_price = $1, retail_price = $2, retailer = $3,
		    in_stock = $4, last_checked_at = $5
		WHERE id = $6 AND user_id = $7
	`

	result, err := tx.Exec(ctx, updateQuery,
		upd.SalePrice,
		upd.RetailPrice,
		upd.Retailer,
		upd.InStock,
		upd.CheckedAt,
		id,
		userID,
	)
	if err != nil {
		return fmt.Errorf("update tracked item price: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("tracked item %s: %w", id, apperr.ErrNotFound)
	}

	historyQuery := `
		INSERT INTO price_history (
			id, tracked_item_id, sale_price, retail_price, in_stock, checked_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = tx.Exec(ctx, historyQuery,
		uuid.New(),
		id,
		upd.SalePrice,
		upd.RetailPrice,
		upd.InStock,
		upd.CheckedAt,
	)
	if err != nil {
		return fmt.Errorf("insert price history: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	r.logger.Debug("tracked item price updated",
		zap.String("item_id", id.String()),
		zap.String("retailer", upd.Retailer),
		zap.Float64("sale_price", upd.SalePrice),
	)

	return nil
}
