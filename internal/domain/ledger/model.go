// Package ledger provides the authoritative stock ledger and its movement log.
// Every quantity change in the platform funnels through this package; the
// movement log is the system of record and stock levels are a projection of it.
package ledger

import (
	"time"

	"restock/internal/core/id"
	"restock/internal/core/types"
)

// TransactionType classifies the cause of a stock movement.
type TransactionType string

const (
	TypePurchaseReceipt     TransactionType = "purchase_receipt"
	TypeTransferIn          TransactionType = "transfer_in"
	TypeTransferOut         TransactionType = "transfer_out"
	TypeTransferOutReversal TransactionType = "transfer_out_reversal"
	TypeCountAdjustment     TransactionType = "count_adjustment"
	TypeManualAdd           TransactionType = "manual_add"
	TypeManualDeduct        TransactionType = "manual_deduct"
	TypeWaste               TransactionType = "waste"
	TypeDamage              TransactionType = "damage"
	TypeExpiry              TransactionType = "expiry"
	TypeOther               TransactionType = "other"
)

// IsValid reports whether the transaction type is a known cause.
func (t TransactionType) IsValid() bool {
	switch t {
	case TypePurchaseReceipt, TypeTransferIn, TypeTransferOut, TypeTransferOutReversal,
		TypeCountAdjustment, TypeManualAdd, TypeManualDeduct,
		TypeWaste, TypeDamage, TypeExpiry, TypeOther:
		return true
	}
	return false
}

// IsDeduction reports whether a negative delta of this type must be
// rejected when it would take the on-hand quantity below zero.
// Count adjustments and administrative corrections may legitimately
// push a level to zero or correct past drift.
func (t TransactionType) IsDeduction() bool {
	switch t {
	case TypeManualDeduct, TypeTransferOut, TypeWaste, TypeDamage, TypeExpiry:
		return true
	}
	return false
}

// StockKey identifies one stock level row.
type StockKey struct {
	BusinessID id.ID `db:"business_id" json:"businessId"`
	BranchID   id.ID `db:"branch_id" json:"branchId"`
	ItemID     id.ID `db:"item_id" json:"itemId"`
}

// StockLevel is the materialized on-hand quantity for a key.
// Created lazily on first movement, never deleted, only zeroed.
type StockLevel struct {
	StockKey

	Quantity types.Quantity `db:"quantity" json:"quantity"`

	// Reorder thresholds; unset when nil.
	MinThreshold *types.Quantity `db:"min_threshold" json:"minThreshold,omitempty"`
	MaxThreshold *types.Quantity `db:"max_threshold" json:"maxThreshold,omitempty"`

	LastMovementAt time.Time `db:"last_movement_at" json:"lastMovementAt"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
}

// Movement is one immutable ledger entry. Movements are never updated
// or deleted; corrections are expressed as new movements.
type Movement struct {
	ID id.ID `db:"id" json:"id"`

	BusinessID id.ID `db:"business_id" json:"businessId"`
	BranchID   id.ID `db:"branch_id" json:"branchId"`
	ItemID     id.ID `db:"item_id" json:"itemId"`

	// QuantityDelta is signed: positive for receipts, negative for deductions.
	QuantityDelta types.Quantity  `db:"quantity_delta" json:"quantityDelta"`
	Type          TransactionType `db:"transaction_type" json:"transactionType"`

	// Reference to the document that caused the movement, if any.
	ReferenceType string `db:"reference_type" json:"referenceType,omitempty"`
	ReferenceID   *id.ID `db:"reference_id" json:"referenceId,omitempty"`

	PerformedBy id.ID  `db:"performed_by" json:"performedBy"`
	Notes       string `db:"notes" json:"notes,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Key returns the stock key the movement applies to.
func (m *Movement) Key() StockKey {
	return StockKey{BusinessID: m.BusinessID, BranchID: m.BranchID, ItemID: m.ItemID}
}

// Change is one requested quantity change. Changes are turned into
// Movements by Service.Apply after validation against the level.
type Change struct {
	Key   StockKey
	Delta types.Quantity
	Type  TransactionType

	ReferenceType string
	ReferenceID   *id.ID
	Notes         string

	// AdminOverride permits a deduction-type change to drive the level
	// negative (explicit administrative correction).
	AdminOverride bool
}

// MovementFilter filters movement log queries.
type MovementFilter struct {
	BusinessID    id.ID
	BranchID      *id.ID
	ItemID        *id.ID
	Type          *TransactionType
	ReferenceType *string
	ReferenceID   *id.ID
	FromDate      *time.Time
	ToDate        *time.Time

	// Pagination (page is 1-based).
	Page  int
	Limit int
}

// Offset returns the row offset for the filter's page/limit.
func (f MovementFilter) Offset() int {
	page := f.Page
	if page < 1 {
		page = 1
	}
	return (page - 1) * f.PageSize()
}

// PageSize returns the effective page size.
func (f MovementFilter) PageSize() int {
	if f.Limit <= 0 {
		return 50
	}
	return f.Limit
}

// TypeCount is one row of the movement stats aggregation.
type TypeCount struct {
	Type  TransactionType `db:"transaction_type" json:"transactionType"`
	Count int64           `db:"count" json:"count"`
	Total types.Quantity  `db:"total" json:"total"`
}

// MovementPage is a page of movement log entries with the total count.
type MovementPage struct {
	Items      []Movement `json:"items"`
	TotalCount int64      `json:"totalCount"`
	Page       int        `json:"page"`
	Limit      int        `json:"limit"`
}
