package purchaseorder

import (
	"context"
	"time"

	"restock/internal/core/id"
)

// Repository defines purchase order persistence.
type Repository interface {
	Create(ctx context.Context, order *PurchaseOrder) error
	Update(ctx context.Context, order *PurchaseOrder) error

	// GetByID returns the order with items, scoped to businessID.
	GetByID(ctx context.Context, businessID, orderID id.ID) (*PurchaseOrder, error)

	// GetForUpdate locks the order row for the workflow transitions.
	GetForUpdate(ctx context.Context, businessID, orderID id.ID) (*PurchaseOrder, error)

	GetItems(ctx context.Context, orderID id.ID) ([]OrderItem, error)
	SaveItems(ctx context.Context, orderID id.ID, items []OrderItem) error

	List(ctx context.Context, filter ListFilter) ([]PurchaseOrder, int64, error)

	// HasOpenOrders reports whether a vendor has orders outside the
	// terminal states. Backs the vendor deletion guard.
	HasOpenOrders(ctx context.Context, businessID, vendorID id.ID) (bool, error)
}

// ListFilter selects orders for listing.
type ListFilter struct {
	BusinessID id.ID
	BranchID   *id.ID
	VendorID   *id.ID
	Status     *Status
	DateFrom   *time.Time
	DateTo     *time.Time

	Page  int
	Limit int
}

// Offset converts 1-based paging to a row offset.
func (f ListFilter) Offset() int {
	page := f.Page
	if page < 1 {
		page = 1
	}
	return (page - 1) * f.PageSize()
}

func (f ListFilter) PageSize() int {
	if f.Limit <= 0 || f.Limit > 200 {
		return 50
	}
	return f.Limit
}
