package dto

import (
	"time"

	"restock/internal/domain/ledger"
)

// --- Response DTOs ---

// StockLevelResponse represents one stock level row.
type StockLevelResponse struct {
	BranchID       string   `json:"branchId"`
	ItemID         string   `json:"itemId"`
	Quantity       float64  `json:"quantity"`
	MinThreshold   *float64 `json:"minThreshold,omitempty"`
	MaxThreshold   *float64 `json:"maxThreshold,omitempty"`
	BelowMin       bool     `json:"belowMin"`
	LastMovementAt string   `json:"lastMovementAt,omitempty"`
}

// FromStockLevel converts a ledger level to a response.
func FromStockLevel(l ledger.StockLevel) StockLevelResponse {
	resp := StockLevelResponse{
		BranchID: l.BranchID.String(),
		ItemID:   l.ItemID.String(),
		Quantity: l.Quantity.Float64(),
	}
	if l.MinThreshold != nil {
		v := l.MinThreshold.Float64()
		resp.MinThreshold = &v
		resp.BelowMin = l.Quantity < *l.MinThreshold
	}
	if l.MaxThreshold != nil {
		v := l.MaxThreshold.Float64()
		resp.MaxThreshold = &v
	}
	if !l.LastMovementAt.IsZero() {
		resp.LastMovementAt = l.LastMovementAt.Format(time.RFC3339)
	}
	return resp
}

// MovementResponse represents one movement log entry.
type MovementResponse struct {
	ID            string    `json:"id"`
	BranchID      string    `json:"branchId"`
	ItemID        string    `json:"itemId"`
	QuantityDelta float64   `json:"quantityDelta"`
	Type          string    `json:"transactionType"`
	ReferenceType string    `json:"referenceType,omitempty"`
	ReferenceID   *string   `json:"referenceId,omitempty"`
	PerformedBy   string    `json:"performedBy"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// FromMovement converts a movement to a response.
func FromMovement(m ledger.Movement) MovementResponse {
	resp := MovementResponse{
		ID:            m.ID.String(),
		BranchID:      m.BranchID.String(),
		ItemID:        m.ItemID.String(),
		QuantityDelta: m.QuantityDelta.Float64(),
		Type:          string(m.Type),
		ReferenceType: m.ReferenceType,
		PerformedBy:   m.PerformedBy.String(),
		Notes:         m.Notes,
		CreatedAt:     m.CreatedAt,
	}
	if m.ReferenceID != nil {
		s := m.ReferenceID.String()
		resp.ReferenceID = &s
	}
	return resp
}

// StatsResponse aggregates movement counts by type.
type StatsResponse struct {
	Items []TypeCountResponse `json:"items"`
}

// TypeCountResponse is one row of the stats aggregation.
type TypeCountResponse struct {
	Type  string  `json:"transactionType"`
	Count int64   `json:"count"`
	Total float64 `json:"total"`
}

// FromTypeCounts converts the aggregation rows.
func FromTypeCounts(counts []ledger.TypeCount) StatsResponse {
	items := make([]TypeCountResponse, len(counts))
	for i, tc := range counts {
		items[i] = TypeCountResponse{
			Type:  string(tc.Type),
			Count: tc.Count,
			Total: tc.Total.Float64(),
		}
	}
	return StatsResponse{Items: items}
}

// --- Request DTOs ---

// ApplyMovementRequest records a manual stock adjustment.
type ApplyMovementRequest struct {
	BranchID      string  `json:"branchId" binding:"required"`
	ItemID        string  `json:"itemId" binding:"required"`
	QuantityDelta float64 `json:"quantityDelta" binding:"required"`
	Type          string  `json:"transactionType" binding:"required"`
	Notes         string  `json:"notes,omitempty"`
	AdminOverride bool    `json:"adminOverride,omitempty"`
}

// SetThresholdsRequest updates reorder thresholds for an item.
type SetThresholdsRequest struct {
	BranchID     string   `json:"branchId" binding:"required"`
	ItemID       string   `json:"itemId" binding:"required"`
	MinThreshold *float64 `json:"minThreshold,omitempty"`
	MaxThreshold *float64 `json:"maxThreshold,omitempty"`
}
