package item

import (
	"context"

	"restock/internal/core/id"
)

// Repository defines the catalog lookups the workflows depend on.
type Repository interface {
	// Get returns the item only if it belongs to businessID.
	Get(ctx context.Context, businessID, itemID id.ID) (*Item, error)

	// GetMany resolves a set of item IDs within a business. Missing
	// IDs are simply absent from the result.
	GetMany(ctx context.Context, businessID id.ID, itemIDs []id.ID) (map[id.ID]Item, error)

	// ListActive returns the active items of a business.
	ListActive(ctx context.Context, businessID id.ID) ([]Item, error)
}

// BarcodeRepository defines barcode persistence.
type BarcodeRepository interface {
	Insert(ctx context.Context, b *Barcode) error
	DeleteByItem(ctx context.Context, businessID, itemID id.ID) error

	// FindByCode returns the association for a code within a business.
	FindByCode(ctx context.Context, businessID id.ID, code string) (*Barcode, error)

	// FindByItem returns the association bound to an item, if any.
	FindByItem(ctx context.Context, businessID, itemID id.ID) (*Barcode, error)
}
