package handlers

import (
	"github.com/gin-gonic/gin"

	"restock/internal/core/apperror"
	"restock/internal/core/id"
	"restock/internal/domain/catalogs/item"
	"restock/internal/infrastructure/http/v1/dto"
)

// ItemHandler handles catalog item and barcode requests.
type ItemHandler struct {
	*BaseHandler
	service *item.Service
}

// NewItemHandler creates a new item handler.
func NewItemHandler(base *BaseHandler, service *item.Service) *ItemHandler {
	return &ItemHandler{BaseHandler: base, service: service}
}

// Get handles GET /items/:id
func (h *ItemHandler) Get(c *gin.Context) {
	act, ok := h.Actor(c)
	if !ok {
		return
	}
	itemID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	i, err := h.service.Get(c.Request.Context(), act.BusinessID, itemID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromItem(i))
}

// List handles GET /items
func (h *ItemHandler) List(c *gin.Context) {
	act, ok := h.Actor(c)
	if !ok {
		return
	}

	items, err := h.service.ListActive(c.Request.Context(), act.BusinessID)
	if err != nil {
		h.Error(c, err)
		return
	}

	out := make([]dto.ItemResponse, len(items))
	for i := range items {
		out[i] = dto.FromItem(&items[i])
	}
	h.OK(c, gin.H{"items": out})
}

// Lookup handles GET /items/lookup?code=
func (h *ItemHandler) Lookup(c *gin.Context) {
	act, ok := h.Actor(c)
	if !ok {
		return
	}
	code := c.Query("code")
	if code == "" {
		h.Error(c, apperror.NewValidation("code query parameter is required"))
		return
	}

	i, err := h.service.Lookup(c.Request.Context(), act.BusinessID, code)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromItem(i))
}

// AssociateBarcode handles POST /items/barcodes
func (h *ItemHandler) AssociateBarcode(c *gin.Context) {
	act, ok := h.Actor(c)
	if !ok {
		return
	}

	var req dto.AssociateBarcodeRequest
	if !h.BindJSON(c, &req) {
		return
	}
	itemID, _ := id.Parse(req.ItemID)

	b, err := h.service.Associate(c.Request.Context(), act.BusinessID, itemID, req.Code)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, b.ID.String())
}

// RegisterRoutes registers item routes.
func (h *ItemHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/lookup", h.Lookup)
	rg.GET("/:id", h.Get)
	rg.POST("/barcodes", h.AssociateBarcode)
}
