package stockcount

import (
	"context"

	"restock/internal/core/id"
)

// Repository defines inventory count persistence.
type Repository interface {
	Create(ctx context.Context, c *InventoryCount) error
	Update(ctx context.Context, c *InventoryCount) error

	// GetByID returns the count with items, scoped to businessID.
	GetByID(ctx context.Context, businessID, countID id.ID) (*InventoryCount, error)

	// GetForUpdate locks the count row for completion.
	GetForUpdate(ctx context.Context, businessID, countID id.ID) (*InventoryCount, error)

	GetItems(ctx context.Context, countID id.ID) ([]CountItem, error)
	SaveItems(ctx context.Context, countID id.ID, items []CountItem) error
	UpsertItem(ctx context.Context, countID id.ID, item CountItem) error

	List(ctx context.Context, businessID id.ID, branchID *id.ID, status *Status, page, limit int) ([]InventoryCount, int64, error)
}
