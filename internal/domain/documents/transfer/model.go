// Package transfer provides stock transfers between two branches,
// possibly of different businesses. Stock leaves the source when the
// transfer is created and exists nowhere until it is received at the
// destination or restored on cancel.
package transfer

import (
	"context"

	"restock/internal/core/apperror"
	"restock/internal/core/entity"
	"restock/internal/core/id"
	"restock/internal/core/types"
)

// Status is the lifecycle state of a transfer.
type Status string

const (
	StatusPending   Status = "pending"
	StatusReceived  Status = "received"
	StatusCancelled Status = "cancelled"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusReceived, StatusCancelled:
		return true
	}
	return false
}

func (s Status) IsTerminal() bool {
	return s == StatusReceived || s == StatusCancelled
}

// CanTransition reports whether s -> to is a legal transition.
func (s Status) CanTransition(to Status) bool {
	return s == StatusPending && (to == StatusReceived || to == StatusCancelled)
}

// Transfer moves stock between two (business, branch) pairs.
type Transfer struct {
	entity.BaseDocument

	FromBusinessID id.ID `db:"from_business_id" json:"fromBusinessId"`
	FromBranchID   id.ID `db:"from_branch_id" json:"fromBranchId"`
	ToBusinessID   id.ID `db:"to_business_id" json:"toBusinessId"`
	ToBranchID     id.ID `db:"to_branch_id" json:"toBranchId"`

	Number string  `db:"number" json:"number"`
	Status Status  `db:"status" json:"status"`
	Notes  *string `db:"notes" json:"notes,omitempty"`

	Items []TransferItem `db:"-" json:"items"`
}

// TransferItem is one moved line.
type TransferItem struct {
	LineID   id.ID          `db:"line_id" json:"lineId"`
	LineNo   int            `db:"line_no" json:"lineNo"`
	ItemID   id.ID          `db:"item_id" json:"itemId"`
	Quantity types.Quantity `db:"quantity" json:"quantity"`
}

// New creates a pending transfer.
func New(fromBusinessID, fromBranchID, toBusinessID, toBranchID, createdBy id.ID) *Transfer {
	return &Transfer{
		BaseDocument:   entity.NewBaseDocument(createdBy),
		FromBusinessID: fromBusinessID,
		FromBranchID:   fromBranchID,
		ToBusinessID:   toBusinessID,
		ToBranchID:     toBranchID,
		Status:         StatusPending,
		Items:          make([]TransferItem, 0),
	}
}

// AddItem appends a moved line.
func (t *Transfer) AddItem(itemID id.ID, quantity types.Quantity) {
	t.Items = append(t.Items, TransferItem{
		LineID:   id.New(),
		LineNo:   len(t.Items) + 1,
		ItemID:   itemID,
		Quantity: quantity,
	})
}

// Validate implements entity.Validatable.
func (t *Transfer) Validate(ctx context.Context) error {
	if id.IsNil(t.FromBusinessID) || id.IsNil(t.FromBranchID) {
		return apperror.NewValidation("source business and branch are required")
	}
	if id.IsNil(t.ToBusinessID) || id.IsNil(t.ToBranchID) {
		return apperror.NewValidation("destination business and branch are required")
	}
	if t.FromBusinessID == t.ToBusinessID && t.FromBranchID == t.ToBranchID {
		return apperror.NewValidation("source and destination must differ")
	}
	if len(t.Items) == 0 {
		return apperror.NewValidation("at least one item is required").
			WithDetail("field", "items")
	}

	seen := make(map[id.ID]struct{}, len(t.Items))
	for i, item := range t.Items {
		if id.IsNil(item.ItemID) {
			return apperror.NewValidation("item is required").
				WithDetail("lineNo", i+1)
		}
		if !item.Quantity.IsPositive() {
			return apperror.NewValidation("quantity must be positive").
				WithDetail("lineNo", i+1)
		}
		if _, dup := seen[item.ItemID]; dup {
			return apperror.NewValidation("duplicate item in transfer").
				WithDetail("item_id", item.ItemID)
		}
		seen[item.ItemID] = struct{}{}
	}
	return nil
}
