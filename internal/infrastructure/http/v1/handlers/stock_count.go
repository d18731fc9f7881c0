package handlers

import (
	"github.com/gin-gonic/gin"

	"restock/internal/core/id"
	"restock/internal/core/types"
	"restock/internal/domain/documents/stockcount"
	"restock/internal/infrastructure/http/v1/dto"
)

// StockCountHandler handles inventory count worksheet requests.
type StockCountHandler struct {
	*BaseHandler
	service *stockcount.Service
}

// NewStockCountHandler creates a new stock count handler.
func NewStockCountHandler(base *BaseHandler, service *stockcount.Service) *StockCountHandler {
	return &StockCountHandler{BaseHandler: base, service: service}
}

// Create handles POST /stock-counts
func (h *StockCountHandler) Create(c *gin.Context) {
	act, ok := h.Actor(c)
	if !ok {
		return
	}

	var req dto.CreateStockCountRequest
	if !h.BindJSON(c, &req) {
		return
	}
	branchID, _ := id.Parse(req.BranchID)

	count, err := h.service.Create(
		c.Request.Context(),
		act.BusinessID,
		branchID,
		act.UserID,
		stockcount.CountType(req.CountType),
		req.ParsedItemIDs(),
	)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, count.ID.String())
}

// Get handles GET /stock-counts/:id
func (h *StockCountHandler) Get(c *gin.Context) {
	act, ok := h.Actor(c)
	if !ok {
		return
	}
	countID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	count, err := h.service.GetByID(c.Request.Context(), act.BusinessID, countID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromStockCount(count))
}

// List handles GET /stock-counts
func (h *StockCountHandler) List(c *gin.Context) {
	act, ok := h.Actor(c)
	if !ok {
		return
	}
	branchID, ok := h.ParseIDQuery(c, "branchId")
	if !ok {
		return
	}

	var status *stockcount.Status
	if statusStr := c.Query("status"); statusStr != "" {
		s := stockcount.Status(statusStr)
		status = &s
	}

	page := h.ParseIntQuery(c, "page", 1)
	limit := h.ParseIntQuery(c, "limit", 50)

	counts, total, err := h.service.List(c.Request.Context(), act.BusinessID, branchID, status, page, limit)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.StockCountResponse, len(counts))
	for i := range counts {
		items[i] = dto.FromStockCount(&counts[i])
	}
	h.OK(c, dto.ListResponse{
		Items:      items,
		TotalCount: total,
		Page:       page,
		Limit:      limit,
	})
}

// RecordItem handles PUT /stock-counts/:id/items
func (h *StockCountHandler) RecordItem(c *gin.Context) {
	act, ok := h.Actor(c)
	if !ok {
		return
	}
	countID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.RecordCountItemRequest
	if !h.BindJSON(c, &req) {
		return
	}
	itemID, _ := id.Parse(req.ItemID)

	count, err := h.service.UpdateItem(
		c.Request.Context(),
		act.BusinessID,
		countID,
		itemID,
		types.NewQuantityFromFloat64(req.CountedQty),
		req.VarianceReason,
	)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromStockCount(count))
}

// Complete handles POST /stock-counts/:id/complete
func (h *StockCountHandler) Complete(c *gin.Context) {
	act, ok := h.Actor(c)
	if !ok {
		return
	}
	countID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	count, err := h.service.Complete(c.Request.Context(), act.BusinessID, countID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromStockCount(count))
}

// RegisterRoutes registers stock count routes.
func (h *StockCountHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id/items", h.RecordItem)
	rg.POST("/:id/complete", h.Complete)
}
