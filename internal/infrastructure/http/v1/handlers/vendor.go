package handlers

import (
	"github.com/gin-gonic/gin"

	"restock/internal/domain/catalogs/vendor"
	"restock/internal/infrastructure/http/v1/dto"
)

// VendorHandler handles vendor directory requests.
type VendorHandler struct {
	*BaseHandler
	service *vendor.Service
}

// NewVendorHandler creates a new vendor handler.
func NewVendorHandler(base *BaseHandler, service *vendor.Service) *VendorHandler {
	return &VendorHandler{BaseHandler: base, service: service}
}

// Create handles POST /vendors
func (h *VendorHandler) Create(c *gin.Context) {
	act, ok := h.Actor(c)
	if !ok {
		return
	}

	var req dto.CreateVendorRequest
	if !h.BindJSON(c, &req) {
		return
	}

	v := req.ToEntity(act.BusinessID)
	if err := h.service.Create(c.Request.Context(), v); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, v.ID.String())
}

// Get handles GET /vendors/:id
func (h *VendorHandler) Get(c *gin.Context) {
	act, ok := h.Actor(c)
	if !ok {
		return
	}
	vendorID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	v, err := h.service.Get(c.Request.Context(), act.BusinessID, vendorID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromVendor(v))
}

// List handles GET /vendors
func (h *VendorHandler) List(c *gin.Context) {
	act, ok := h.Actor(c)
	if !ok {
		return
	}
	branchID, ok := h.ParseIDQuery(c, "branchId")
	if !ok {
		return
	}

	vendors, err := h.service.List(c.Request.Context(), act.BusinessID, branchID)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.VendorResponse, len(vendors))
	for i := range vendors {
		items[i] = dto.FromVendor(&vendors[i])
	}
	h.OK(c, gin.H{"items": items})
}

// Update handles PUT /vendors/:id
func (h *VendorHandler) Update(c *gin.Context) {
	act, ok := h.Actor(c)
	if !ok {
		return
	}
	vendorID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateVendorRequest
	if !h.BindJSON(c, &req) {
		return
	}

	v, err := h.service.Get(c.Request.Context(), act.BusinessID, vendorID)
	if err != nil {
		h.Error(c, err)
		return
	}
	req.ApplyTo(v)

	if err := h.service.Update(c.Request.Context(), v); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromVendor(v))
}

// Delete handles DELETE /vendors/:id
func (h *VendorHandler) Delete(c *gin.Context) {
	act, ok := h.Actor(c)
	if !ok {
		return
	}
	vendorID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), act.BusinessID, vendorID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// RegisterRoutes registers vendor routes.
func (h *VendorHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
}
