package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"restock/internal/core/id"
	"restock/internal/core/types"
	"restock/internal/domain/documents/purchaseorder"
)

// --- Request DTOs ---

// CreatePurchaseOrderRequest opens a new pending order.
type CreatePurchaseOrderRequest struct {
	BranchID     string                     `json:"branchId" binding:"required,uuid"`
	VendorID     string                     `json:"vendorId" binding:"required,uuid"`
	ExpectedDate *time.Time                 `json:"expectedDate,omitempty"`
	Notes        *string                    `json:"notes,omitempty"`
	Items        []PurchaseOrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

// PurchaseOrderItemRequest is one ordered line.
type PurchaseOrderItemRequest struct {
	ItemID   string  `json:"itemId" binding:"required,uuid"`
	Quantity float64 `json:"quantity" binding:"required,gt=0"`
}

// ToInput converts the request to a service input.
func (r *CreatePurchaseOrderRequest) ToInput() purchaseorder.CreateInput {
	branchID, _ := id.Parse(r.BranchID)
	vendorID, _ := id.Parse(r.VendorID)

	in := purchaseorder.CreateInput{
		BranchID:     branchID,
		VendorID:     vendorID,
		ExpectedDate: r.ExpectedDate,
		Notes:        r.Notes,
	}
	for _, it := range r.Items {
		itemID, _ := id.Parse(it.ItemID)
		in.Items = append(in.Items, purchaseorder.CreateItem{
			ItemID:   itemID,
			Quantity: types.NewQuantityFromFloat64(it.Quantity),
		})
	}
	return in
}

// UpdatePurchaseOrderRequest edits a pending order.
type UpdatePurchaseOrderRequest struct {
	ExpectedDate *time.Time                 `json:"expectedDate,omitempty"`
	Notes        *string                    `json:"notes,omitempty"`
	Items        []PurchaseOrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

// ToInput converts the request to a service input.
func (r *UpdatePurchaseOrderRequest) ToInput() purchaseorder.UpdateInput {
	in := purchaseorder.UpdateInput{
		ExpectedDate: r.ExpectedDate,
		Notes:        r.Notes,
	}
	for _, it := range r.Items {
		itemID, _ := id.Parse(it.ItemID)
		in.Items = append(in.Items, purchaseorder.CreateItem{
			ItemID:   itemID,
			Quantity: types.NewQuantityFromFloat64(it.Quantity),
		})
	}
	return in
}

// CountOrderRequest records the physical delivery check.
type CountOrderRequest struct {
	Items []CountOrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

// CountOrderItemRequest is one counted line.
type CountOrderItemRequest struct {
	ItemID         string  `json:"itemId" binding:"required,uuid"`
	CountedQty     float64 `json:"countedQty" binding:"gte=0"`
	BarcodeScanned bool    `json:"barcodeScanned"`
	VarianceReason *string `json:"varianceReason,omitempty"`
	VarianceNote   *string `json:"varianceNote,omitempty"`
}

// ToItems converts the request lines to service inputs.
func (r *CountOrderRequest) ToItems() []purchaseorder.CountItem {
	items := make([]purchaseorder.CountItem, 0, len(r.Items))
	for _, it := range r.Items {
		itemID, _ := id.Parse(it.ItemID)
		ci := purchaseorder.CountItem{
			ItemID:         itemID,
			CountedQty:     types.NewQuantityFromFloat64(it.CountedQty),
			BarcodeScanned: it.BarcodeScanned,
			VarianceNote:   it.VarianceNote,
		}
		if it.VarianceReason != nil {
			reason := purchaseorder.VarianceReason(*it.VarianceReason)
			ci.VarianceReason = &reason
		}
		items = append(items, ci)
	}
	return items
}

// ReceiveOrderRequest books the order into stock.
type ReceiveOrderRequest struct {
	InvoiceImageURL string                    `json:"invoiceImageUrl" binding:"required"`
	Items           []ReceiveOrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

// ReceiveOrderItemRequest is one received line with its invoice cost.
type ReceiveOrderItemRequest struct {
	ItemID         string          `json:"itemId" binding:"required,uuid"`
	ReceivedQty    *float64        `json:"receivedQty,omitempty"`
	TotalCost      decimal.Decimal `json:"totalCost"`
	VarianceReason *string         `json:"varianceReason,omitempty"`
	VarianceNote   *string         `json:"varianceNote,omitempty"`
}

// ToItems converts the request lines to service inputs.
func (r *ReceiveOrderRequest) ToItems() []purchaseorder.ReceiveItem {
	items := make([]purchaseorder.ReceiveItem, 0, len(r.Items))
	for _, it := range r.Items {
		itemID, _ := id.Parse(it.ItemID)
		ri := purchaseorder.ReceiveItem{
			ItemID:       itemID,
			TotalCost:    it.TotalCost,
			VarianceNote: it.VarianceNote,
		}
		if it.ReceivedQty != nil {
			qty := types.NewQuantityFromFloat64(*it.ReceivedQty)
			ri.ReceivedQty = &qty
		}
		if it.VarianceReason != nil {
			reason := purchaseorder.VarianceReason(*it.VarianceReason)
			ri.VarianceReason = &reason
		}
		items = append(items, ri)
	}
	return items
}

// UpdateOrderStatusRequest cancels or reactivates a pending order.
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// --- Response DTOs ---

// PurchaseOrderResponse represents an order in API responses.
type PurchaseOrderResponse struct {
	ID              string                      `json:"id"`
	BranchID        string                      `json:"branchId"`
	VendorID        string                      `json:"vendorId"`
	Number          string                      `json:"number"`
	Status          string                      `json:"status"`
	ExpectedDate    *time.Time                  `json:"expectedDate,omitempty"`
	InvoiceImageURL *string                     `json:"invoiceImageUrl,omitempty"`
	Notes           *string                     `json:"notes,omitempty"`
	Items           []PurchaseOrderItemResponse `json:"items,omitempty"`
	CreatedAt       time.Time                   `json:"createdAt"`
	UpdatedAt       time.Time                   `json:"updatedAt"`
	CreatedBy       string                      `json:"createdBy"`
}

// PurchaseOrderItemResponse is one order line.
type PurchaseOrderItemResponse struct {
	LineNo         int      `json:"lineNo"`
	ItemID         string   `json:"itemId"`
	OrderedQty     float64  `json:"orderedQty"`
	CountedQty     *float64 `json:"countedQty,omitempty"`
	ReceivedQty    *float64 `json:"receivedQty,omitempty"`
	UnitCost       *string  `json:"unitCost,omitempty"`
	TotalCost      *string  `json:"totalCost,omitempty"`
	VarianceReason *string  `json:"varianceReason,omitempty"`
	VarianceNote   *string  `json:"varianceNote,omitempty"`
	BarcodeScanned bool     `json:"barcodeScanned"`
}

// FromPurchaseOrder converts a domain entity to a response.
func FromPurchaseOrder(o *purchaseorder.PurchaseOrder) PurchaseOrderResponse {
	resp := PurchaseOrderResponse{
		ID:              o.ID.String(),
		BranchID:        o.BranchID.String(),
		VendorID:        o.VendorID.String(),
		Number:          o.Number,
		Status:          string(o.Status),
		ExpectedDate:    o.ExpectedDate,
		InvoiceImageURL: o.InvoiceImageURL,
		Notes:           o.Notes,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
		CreatedBy:       o.CreatedBy.String(),
	}
	for _, it := range o.Items {
		resp.Items = append(resp.Items, fromOrderItem(it))
	}
	return resp
}

func fromOrderItem(it purchaseorder.OrderItem) PurchaseOrderItemResponse {
	resp := PurchaseOrderItemResponse{
		LineNo:         it.LineNo,
		ItemID:         it.ItemID.String(),
		OrderedQty:     it.OrderedQty.Float64(),
		VarianceNote:   it.VarianceNote,
		BarcodeScanned: it.BarcodeScanned,
	}
	if it.CountedQty != nil {
		v := it.CountedQty.Float64()
		resp.CountedQty = &v
	}
	if it.ReceivedQty != nil {
		v := it.ReceivedQty.Float64()
		resp.ReceivedQty = &v
	}
	if it.UnitCost != nil {
		s := it.UnitCost.String()
		resp.UnitCost = &s
	}
	if it.TotalCost != nil {
		s := it.TotalCost.String()
		resp.TotalCost = &s
	}
	if it.VarianceReason != nil {
		s := string(*it.VarianceReason)
		resp.VarianceReason = &s
	}
	return resp
}
