package dto

import (
	"time"

	"restock/internal/core/id"
	"restock/internal/domain/documents/stockcount"
)

// --- Request DTOs ---

// CreateStockCountRequest opens a draft counting worksheet.
type CreateStockCountRequest struct {
	BranchID  string   `json:"branchId" binding:"required,uuid"`
	CountType string   `json:"countType" binding:"required"`
	ItemIDs   []string `json:"itemIds,omitempty" binding:"omitempty,dive,uuid"`
}

// ParsedItemIDs converts the optional item scope.
func (r *CreateStockCountRequest) ParsedItemIDs() []id.ID {
	if len(r.ItemIDs) == 0 {
		return nil
	}
	out := make([]id.ID, 0, len(r.ItemIDs))
	for _, s := range r.ItemIDs {
		parsed, _ := id.Parse(s)
		out = append(out, parsed)
	}
	return out
}

// RecordCountItemRequest records one counted quantity on a draft.
type RecordCountItemRequest struct {
	ItemID         string  `json:"itemId" binding:"required,uuid"`
	CountedQty     float64 `json:"countedQty" binding:"gte=0"`
	VarianceReason *string `json:"varianceReason,omitempty"`
}

// --- Response DTOs ---

// StockCountResponse represents a counting worksheet.
type StockCountResponse struct {
	ID          string                   `json:"id"`
	BranchID    string                   `json:"branchId"`
	Number      string                   `json:"number"`
	Status      string                   `json:"status"`
	CountType   string                   `json:"countType"`
	CompletedAt *time.Time               `json:"completedAt,omitempty"`
	Items       []StockCountItemResponse `json:"items,omitempty"`
	CreatedAt   time.Time                `json:"createdAt"`
	CreatedBy   string                   `json:"createdBy"`
}

// StockCountItemResponse is one line of the worksheet.
type StockCountItemResponse struct {
	ItemID         string   `json:"itemId"`
	CountedQty     *float64 `json:"countedQty,omitempty"`
	VarianceReason *string  `json:"varianceReason,omitempty"`
}

// FromStockCount converts a domain entity to a response.
func FromStockCount(c *stockcount.InventoryCount) StockCountResponse {
	resp := StockCountResponse{
		ID:          c.ID.String(),
		BranchID:    c.BranchID.String(),
		Number:      c.Number,
		Status:      string(c.Status),
		CountType:   string(c.CountType),
		CompletedAt: c.CompletedAt,
		CreatedAt:   c.CreatedAt,
		CreatedBy:   c.CreatedBy.String(),
	}
	for _, it := range c.Items {
		line := StockCountItemResponse{
			ItemID:         it.ItemID.String(),
			VarianceReason: it.VarianceReason,
		}
		if it.CountedQty != nil {
			v := it.CountedQty.Float64()
			line.CountedQty = &v
		}
		resp.Items = append(resp.Items, line)
	}
	return resp
}
