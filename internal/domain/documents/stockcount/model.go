// Package stockcount provides physical inventory counts. A count is a
// draft worksheet until completed, at which point every counted
// quantity that differs from the ledger produces one adjustment
// movement and the count locks.
package stockcount

import (
	"context"
	"time"

	"restock/internal/core/apperror"
	"restock/internal/core/entity"
	"restock/internal/core/id"
	"restock/internal/core/types"
)

// Status is the lifecycle state of a count.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusCompleted Status = "completed"
)

func (s Status) IsValid() bool {
	return s == StatusDraft || s == StatusCompleted
}

// CanTransition reports whether s -> to is a legal transition. There
// is no cancellation; drafts are simply abandoned.
func (s Status) CanTransition(to Status) bool {
	return s == StatusDraft && to == StatusCompleted
}

// CountType scopes what a count covers.
type CountType string

const (
	CountFull    CountType = "full"
	CountPartial CountType = "partial"
	CountSpot    CountType = "spot"
)

func (t CountType) IsValid() bool {
	switch t {
	case CountFull, CountPartial, CountSpot:
		return true
	}
	return false
}

// InventoryCount is a counting worksheet for one branch.
type InventoryCount struct {
	entity.BaseDocument

	BusinessID id.ID `db:"business_id" json:"businessId"`
	BranchID   id.ID `db:"branch_id" json:"branchId"`

	Number    string    `db:"number" json:"number"`
	Status    Status    `db:"status" json:"status"`
	CountType CountType `db:"count_type" json:"countType"`

	CompletedAt *time.Time `db:"completed_at" json:"completedAt,omitempty"`

	Items []CountItem `db:"-" json:"items"`
}

// CountItem is one counted line. CountedQty stays nil until someone
// actually counts the item.
type CountItem struct {
	LineID         id.ID           `db:"line_id" json:"lineId"`
	ItemID         id.ID           `db:"item_id" json:"itemId"`
	CountedQty     *types.Quantity `db:"counted_qty" json:"countedQty,omitempty"`
	VarianceReason *string         `db:"variance_reason" json:"varianceReason,omitempty"`
}

// New creates a draft count.
func New(businessID, branchID, createdBy id.ID, countType CountType) *InventoryCount {
	return &InventoryCount{
		BaseDocument: entity.NewBaseDocument(createdBy),
		BusinessID:   businessID,
		BranchID:     branchID,
		Status:       StatusDraft,
		CountType:    countType,
		Items:        make([]CountItem, 0),
	}
}

// AddItem seeds a line for an item.
func (c *InventoryCount) AddItem(itemID id.ID) {
	c.Items = append(c.Items, CountItem{
		LineID: id.New(),
		ItemID: itemID,
	})
}

// Item returns the line for an item id, or nil.
func (c *InventoryCount) Item(itemID id.ID) *CountItem {
	for i := range c.Items {
		if c.Items[i].ItemID == itemID {
			return &c.Items[i]
		}
	}
	return nil
}

// Validate implements entity.Validatable.
func (c *InventoryCount) Validate(ctx context.Context) error {
	if id.IsNil(c.BusinessID) || id.IsNil(c.BranchID) {
		return apperror.NewValidation("business and branch are required")
	}
	if !c.Status.IsValid() {
		return apperror.NewValidation("invalid count status").
			WithDetail("value", string(c.Status))
	}
	if !c.CountType.IsValid() {
		return apperror.NewValidation("invalid count type").
			WithDetail("value", string(c.CountType))
	}

	seen := make(map[id.ID]struct{}, len(c.Items))
	for _, item := range c.Items {
		if id.IsNil(item.ItemID) {
			return apperror.NewValidation("item is required")
		}
		if item.CountedQty != nil && item.CountedQty.IsNegative() {
			return apperror.NewValidation("counted quantity cannot be negative").
				WithDetail("item_id", item.ItemID)
		}
		if _, dup := seen[item.ItemID]; dup {
			return apperror.NewValidation("duplicate item in count").
				WithDetail("item_id", item.ItemID)
		}
		seen[item.ItemID] = struct{}{}
	}
	return nil
}
