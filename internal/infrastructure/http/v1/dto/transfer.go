package dto

import (
	"time"

	"restock/internal/core/id"
	"restock/internal/core/types"
	"restock/internal/domain/documents/transfer"
)

// --- Request DTOs ---

// CreateTransferRequest opens a transfer and deducts source stock.
type CreateTransferRequest struct {
	FromBranchID string                `json:"fromBranchId" binding:"required,uuid"`
	ToBusinessID string                `json:"toBusinessId" binding:"required,uuid"`
	ToBranchID   string                `json:"toBranchId" binding:"required,uuid"`
	Notes        *string               `json:"notes,omitempty"`
	Items        []TransferItemRequest `json:"items" binding:"required,min=1,dive"`
}

// TransferItemRequest is one moved line.
type TransferItemRequest struct {
	ItemID   string  `json:"itemId" binding:"required,uuid"`
	Quantity float64 `json:"quantity" binding:"required,gt=0"`
}

// ToInput converts the request to a service input.
func (r *CreateTransferRequest) ToInput() transfer.CreateInput {
	fromBranchID, _ := id.Parse(r.FromBranchID)
	toBusinessID, _ := id.Parse(r.ToBusinessID)
	toBranchID, _ := id.Parse(r.ToBranchID)

	in := transfer.CreateInput{
		FromBranchID: fromBranchID,
		ToBusinessID: toBusinessID,
		ToBranchID:   toBranchID,
		Notes:        r.Notes,
	}
	for _, it := range r.Items {
		itemID, _ := id.Parse(it.ItemID)
		in.Items = append(in.Items, transfer.Item{
			ItemID:   itemID,
			Quantity: types.NewQuantityFromFloat64(it.Quantity),
		})
	}
	return in
}

// --- Response DTOs ---

// TransferResponse represents a transfer in API responses.
type TransferResponse struct {
	ID             string                 `json:"id"`
	FromBusinessID string                 `json:"fromBusinessId"`
	FromBranchID   string                 `json:"fromBranchId"`
	ToBusinessID   string                 `json:"toBusinessId"`
	ToBranchID     string                 `json:"toBranchId"`
	Number         string                 `json:"number"`
	Status         string                 `json:"status"`
	Notes          *string                `json:"notes,omitempty"`
	Items          []TransferItemResponse `json:"items,omitempty"`
	CreatedAt      time.Time              `json:"createdAt"`
	UpdatedAt      time.Time              `json:"updatedAt"`
	CreatedBy      string                 `json:"createdBy"`
}

// TransferItemResponse is one transfer line.
type TransferItemResponse struct {
	LineNo   int     `json:"lineNo"`
	ItemID   string  `json:"itemId"`
	Quantity float64 `json:"quantity"`
}

// FromTransfer converts a domain entity to a response.
func FromTransfer(t *transfer.Transfer) TransferResponse {
	resp := TransferResponse{
		ID:             t.ID.String(),
		FromBusinessID: t.FromBusinessID.String(),
		FromBranchID:   t.FromBranchID.String(),
		ToBusinessID:   t.ToBusinessID.String(),
		ToBranchID:     t.ToBranchID.String(),
		Number:         t.Number,
		Status:         string(t.Status),
		Notes:          t.Notes,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
		CreatedBy:      t.CreatedBy.String(),
	}
	for _, it := range t.Items {
		resp.Items = append(resp.Items, TransferItemResponse{
			LineNo:   it.LineNo,
			ItemID:   it.ItemID.String(),
			Quantity: it.Quantity.Float64(),
		})
	}
	return resp
}

// DestinationResponse is one business with its transferable branches.
type DestinationResponse struct {
	BusinessID   string                      `json:"businessId"`
	BusinessName string                      `json:"businessName"`
	Branches     []DestinationBranchResponse `json:"branches"`
}

// DestinationBranchResponse is one branch of a destination business.
type DestinationBranchResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FromDestinations converts the destination listing.
func FromDestinations(destinations []transfer.Destination) []DestinationResponse {
	out := make([]DestinationResponse, 0, len(destinations))
	for _, d := range destinations {
		resp := DestinationResponse{
			BusinessID:   d.BusinessID.String(),
			BusinessName: d.BusinessName,
		}
		for _, b := range d.Branches {
			resp.Branches = append(resp.Branches, DestinationBranchResponse{
				ID:   b.ID.String(),
				Name: b.Name,
			})
		}
		out = append(out, resp)
	}
	return out
}
