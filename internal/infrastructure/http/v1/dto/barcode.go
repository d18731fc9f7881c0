package dto

import (
	"restock/internal/domain/catalogs/item"
)

// AssociateBarcodeRequest binds a code to an item.
type AssociateBarcodeRequest struct {
	ItemID string `json:"itemId" binding:"required,uuid"`
	Code   string `json:"code" binding:"required,max=64"`
}

// BarcodeResponse represents a barcode association.
type BarcodeResponse struct {
	ID     string `json:"id"`
	ItemID string `json:"itemId"`
	Code   string `json:"code"`
}

// FromBarcode converts a domain entity to a response.
func FromBarcode(b *item.Barcode) BarcodeResponse {
	return BarcodeResponse{
		ID:     b.ID.String(),
		ItemID: b.ItemID.String(),
		Code:   b.Code,
	}
}

// ItemResponse represents a catalog item.
type ItemResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Unit   string `json:"unit"`
	Kind   string `json:"kind"`
	Active bool   `json:"active"`
}

// FromItem converts a domain entity to a response.
func FromItem(i *item.Item) ItemResponse {
	return ItemResponse{
		ID:     i.ID.String(),
		Name:   i.Name,
		Unit:   i.Unit,
		Kind:   string(i.Kind),
		Active: i.Active,
	}
}
