package transfer

import (
	"context"

	"restock/internal/core/id"
)

// Repository defines transfer persistence.
type Repository interface {
	Create(ctx context.Context, t *Transfer) error
	Update(ctx context.Context, t *Transfer) error

	// GetByID returns a transfer visible to businessID, which may sit
	// on either end of it.
	GetByID(ctx context.Context, businessID, transferID id.ID) (*Transfer, error)

	// GetForUpdate locks the transfer row for the workflow
	// transitions.
	GetForUpdate(ctx context.Context, businessID, transferID id.ID) (*Transfer, error)

	GetItems(ctx context.Context, transferID id.ID) ([]TransferItem, error)
	SaveItems(ctx context.Context, transferID id.ID, items []TransferItem) error

	// List returns transfers where businessID is source or
	// destination, newest first.
	List(ctx context.Context, businessID id.ID, branchID *id.ID, status *Status, page, limit int) ([]Transfer, int64, error)
}
