package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"restock/internal/domain/documents/purchaseorder"
	"restock/internal/infrastructure/http/v1/dto"
)

// PurchaseOrderHandler handles purchase order workflow requests.
type PurchaseOrderHandler struct {
	*BaseHandler
	service *purchaseorder.Service
}

// NewPurchaseOrderHandler creates a new purchase order handler.
func NewPurchaseOrderHandler(base *BaseHandler, service *purchaseorder.Service) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{BaseHandler: base, service: service}
}

// Create handles POST /purchase-orders
func (h *PurchaseOrderHandler) Create(c *gin.Context) {
	act, ok := h.Actor(c)
	if !ok {
		return
	}

	var req dto.CreatePurchaseOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	order, err := h.service.Create(c.Request.Context(), act.BusinessID, act.UserID, req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, order.ID.String())
}

// Get handles GET /purchase-orders/:id
func (h *PurchaseOrderHandler) Get(c *gin.Context) {
	act, ok := h.Actor(c)
	if !ok {
		return
	}
	orderID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	order, err := h.service.GetByID(c.Request.Context(), act.BusinessID, orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromPurchaseOrder(order))
}

// List handles GET /purchase-orders
func (h *PurchaseOrderHandler) List(c *gin.Context) {
	act, ok := h.Actor(c)
	if !ok {
		return
	}

	filter := purchaseorder.ListFilter{
		BusinessID: act.BusinessID,
		Page:       h.ParseIntQuery(c, "page", 1),
		Limit:      h.ParseIntQuery(c, "limit", 50),
	}

	var parseOK bool
	if filter.BranchID, parseOK = h.ParseIDQuery(c, "branchId"); !parseOK {
		return
	}
	if filter.VendorID, parseOK = h.ParseIDQuery(c, "vendorId"); !parseOK {
		return
	}
	if statusStr := c.Query("status"); statusStr != "" {
		status := purchaseorder.Status(statusStr)
		filter.Status = &status
	}
	if fromStr := c.Query("dateFrom"); fromStr != "" {
		if parsed, err := time.Parse(time.RFC3339, fromStr); err == nil {
			filter.DateFrom = &parsed
		}
	}
	if toStr := c.Query("dateTo"); toStr != "" {
		if parsed, err := time.Parse(time.RFC3339, toStr); err == nil {
			filter.DateTo = &parsed
		}
	}

	orders, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.PurchaseOrderResponse, len(orders))
	for i := range orders {
		items[i] = dto.FromPurchaseOrder(&orders[i])
	}
	h.OK(c, dto.ListResponse{
		Items:      items,
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.PageSize(),
	})
}

// Update handles PUT /purchase-orders/:id
func (h *PurchaseOrderHandler) Update(c *gin.Context) {
	act, ok := h.Actor(c)
	if !ok {
		return
	}
	orderID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdatePurchaseOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	order, err := h.service.Update(c.Request.Context(), act.BusinessID, orderID, req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromPurchaseOrder(order))
}

// Count handles POST /purchase-orders/:id/count
func (h *PurchaseOrderHandler) Count(c *gin.Context) {
	act, ok := h.Actor(c)
	if !ok {
		return
	}
	orderID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.CountOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	order, err := h.service.Count(c.Request.Context(), act.BusinessID, orderID, req.ToItems())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromPurchaseOrder(order))
}

// Receive handles POST /purchase-orders/:id/receive
func (h *PurchaseOrderHandler) Receive(c *gin.Context) {
	act, ok := h.Actor(c)
	if !ok {
		return
	}
	orderID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.ReceiveOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	order, err := h.service.Receive(c.Request.Context(), act.BusinessID, orderID, req.InvoiceImageURL, req.ToItems())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromPurchaseOrder(order))
}

// UpdateStatus handles PATCH /purchase-orders/:id/status
func (h *PurchaseOrderHandler) UpdateStatus(c *gin.Context) {
	act, ok := h.Actor(c)
	if !ok {
		return
	}
	orderID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateOrderStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}

	order, err := h.service.UpdateStatus(c.Request.Context(), act.BusinessID, orderID, purchaseorder.Status(req.Status))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromPurchaseOrder(order))
}

// RegisterRoutes registers purchase order routes.
func (h *PurchaseOrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.POST("/:id/count", h.Count)
	rg.POST("/:id/receive", h.Receive)
	rg.PATCH("/:id/status", h.UpdateStatus)
}
