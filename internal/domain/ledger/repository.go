package ledger

import (
	"context"

	"restock/internal/core/id"
	"restock/internal/core/types"
)

// Repository defines persistence operations for the stock ledger.
type Repository interface {
	// Level operations

	// GetLevel returns the current level for a key, or a zero-quantity
	// level when no row exists yet.
	GetLevel(ctx context.Context, key StockKey) (StockLevel, error)

	// GetLevelForUpdate returns the level with a row lock. Must be called
	// within a transaction; returns a zero-quantity level when no row exists.
	GetLevelForUpdate(ctx context.Context, key StockKey) (StockLevel, error)

	// UpsertLevel creates or updates the level row for a key.
	UpsertLevel(ctx context.Context, level StockLevel) error

	// SetThresholds updates min/max thresholds without touching the quantity.
	SetThresholds(ctx context.Context, key StockKey, min, max *types.Quantity) error

	// ListLevels returns levels for a branch, optionally excluding zeros.
	ListLevels(ctx context.Context, businessID, branchID id.ID, excludeZero bool) ([]StockLevel, error)

	// Movement log operations (write-once: no update or delete exists)

	// InsertMovements appends movements to the log.
	InsertMovements(ctx context.Context, movements []Movement) error

	// ListMovements returns a page of movements matching the filter
	// plus the total count.
	ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, int64, error)

	// SumMovements returns the sum of deltas for a key (audit/consistency checks).
	SumMovements(ctx context.Context, key StockKey) (types.Quantity, error)

	// Stats aggregates movement counts and totals by transaction type.
	Stats(ctx context.Context, businessID id.ID, branchID *id.ID) ([]TypeCount, error)
}
