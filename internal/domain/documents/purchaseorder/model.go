// Package purchaseorder provides the purchase order document and its
// workflow: pending, counted on delivery check-in, received once the
// invoice arrives and stock is booked, or cancelled.
package purchaseorder

import (
	"context"
	"strings"
	"time"

	"restock/internal/core/apperror"
	"restock/internal/core/entity"
	"restock/internal/core/id"
	"restock/internal/core/types"
)

// Status is the lifecycle state of a purchase order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCounted   Status = "counted"
	StatusReceived  Status = "received"
	StatusCancelled Status = "cancelled"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusCounted, StatusReceived, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is legal.
func (s Status) IsTerminal() bool {
	return s == StatusReceived || s == StatusCancelled
}

// CanTransition reports whether s -> to is a legal transition.
func (s Status) CanTransition(to Status) bool {
	switch s {
	case StatusPending:
		return to == StatusCounted || to == StatusReceived || to == StatusCancelled
	case StatusCounted:
		return to == StatusReceived
	}
	return false
}

// VarianceReason explains a short count against the ordered quantity.
type VarianceReason string

const (
	VarianceMissing  VarianceReason = "missing"
	VarianceCanceled VarianceReason = "canceled"
	VarianceRejected VarianceReason = "rejected"
)

func (r VarianceReason) IsValid() bool {
	switch r {
	case VarianceMissing, VarianceCanceled, VarianceRejected:
		return true
	}
	return false
}

// PurchaseOrder is an order placed with a vendor for one branch.
type PurchaseOrder struct {
	entity.BaseDocument

	BusinessID id.ID `db:"business_id" json:"businessId"`
	BranchID   id.ID `db:"branch_id" json:"branchId"`
	VendorID   id.ID `db:"vendor_id" json:"vendorId"`

	Number string `db:"number" json:"number"`
	Status Status `db:"status" json:"status"`

	ExpectedDate    *time.Time `db:"expected_date" json:"expectedDate,omitempty"`
	InvoiceImageURL *string    `db:"invoice_image_url" json:"invoiceImageUrl,omitempty"`
	Notes           *string    `db:"notes" json:"notes,omitempty"`

	Items []OrderItem `db:"-" json:"items"`
}

// OrderItem is one ordered line. Counted and received figures are
// filled in as the order moves through its lifecycle.
type OrderItem struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	ItemID          id.ID           `db:"item_id" json:"itemId"`
	OrderedQty      types.Quantity  `db:"ordered_qty" json:"orderedQty"`
	CountedQty      *types.Quantity `db:"counted_qty" json:"countedQty,omitempty"`
	ReceivedQty     *types.Quantity `db:"received_qty" json:"receivedQty,omitempty"`
	UnitCost        *types.Money    `db:"unit_cost" json:"unitCost,omitempty"`
	TotalCost       *types.Money    `db:"total_cost" json:"totalCost,omitempty"`
	VarianceReason  *VarianceReason `db:"variance_reason" json:"varianceReason,omitempty"`
	VarianceNote    *string         `db:"variance_note" json:"varianceNote,omitempty"`
	BarcodeScanned  bool            `db:"barcode_scanned" json:"barcodeScanned"`
}

// New creates a pending purchase order.
func New(businessID, branchID, vendorID, createdBy id.ID) *PurchaseOrder {
	return &PurchaseOrder{
		BaseDocument: entity.NewBaseDocument(createdBy),
		BusinessID:   businessID,
		BranchID:     branchID,
		VendorID:     vendorID,
		Status:       StatusPending,
		Items:        make([]OrderItem, 0),
	}
}

// AddItem appends an ordered line.
func (o *PurchaseOrder) AddItem(itemID id.ID, quantity types.Quantity) {
	o.Items = append(o.Items, OrderItem{
		LineID:     id.New(),
		LineNo:     len(o.Items) + 1,
		ItemID:     itemID,
		OrderedQty: quantity,
	})
}

// Item returns the line for an item id, or nil.
func (o *PurchaseOrder) Item(itemID id.ID) *OrderItem {
	for i := range o.Items {
		if o.Items[i].ItemID == itemID {
			return &o.Items[i]
		}
	}
	return nil
}

// Validate implements entity.Validatable.
func (o *PurchaseOrder) Validate(ctx context.Context) error {
	if id.IsNil(o.BusinessID) || id.IsNil(o.BranchID) {
		return apperror.NewValidation("business and branch are required")
	}
	if id.IsNil(o.VendorID) {
		return apperror.NewValidation("vendor is required").
			WithDetail("field", "vendorId")
	}
	if !o.Status.IsValid() {
		return apperror.NewValidation("invalid order status").
			WithDetail("value", string(o.Status))
	}
	if len(o.Items) == 0 {
		return apperror.NewValidation("at least one item is required").
			WithDetail("field", "items")
	}

	seen := make(map[id.ID]struct{}, len(o.Items))
	for i, item := range o.Items {
		if id.IsNil(item.ItemID) {
			return apperror.NewValidation("item is required").
				WithDetail("field", "items").
				WithDetail("lineNo", i+1)
		}
		if !item.OrderedQty.IsPositive() {
			return apperror.NewValidation("ordered quantity must be positive").
				WithDetail("field", "items").
				WithDetail("lineNo", i+1)
		}
		if _, dup := seen[item.ItemID]; dup {
			return apperror.NewValidation("duplicate item in order").
				WithDetail("item_id", item.ItemID)
		}
		seen[item.ItemID] = struct{}{}
	}
	return nil
}

// validateVariance enforces the justification rules for a line whose
// checked quantity deviates from the ordered one. Short counts need a
// categorical reason, over counts a free-text note.
func validateVariance(ordered, actual types.Quantity, reason *VarianceReason, note *string, lineNo int) error {
	switch {
	case actual < ordered:
		if reason == nil || !reason.IsValid() {
			return apperror.NewValidation("variance reason required for short quantity").
				WithDetail("lineNo", lineNo).
				WithDetail("allowed", []VarianceReason{VarianceMissing, VarianceCanceled, VarianceRejected})
		}
	case actual > ordered:
		if note == nil || strings.TrimSpace(*note) == "" {
			return apperror.NewValidation("variance note required for over quantity").
				WithDetail("lineNo", lineNo)
		}
	}
	return nil
}
