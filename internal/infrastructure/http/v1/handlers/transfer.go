package handlers

import (
	"github.com/gin-gonic/gin"

	"restock/internal/domain/documents/transfer"
	"restock/internal/infrastructure/http/v1/dto"
)

// TransferHandler handles stock transfer workflow requests.
type TransferHandler struct {
	*BaseHandler
	service *transfer.Service
}

// NewTransferHandler creates a new transfer handler.
func NewTransferHandler(base *BaseHandler, service *transfer.Service) *TransferHandler {
	return &TransferHandler{BaseHandler: base, service: service}
}

// Create handles POST /transfers
func (h *TransferHandler) Create(c *gin.Context) {
	act, ok := h.Actor(c)
	if !ok {
		return
	}

	var req dto.CreateTransferRequest
	if !h.BindJSON(c, &req) {
		return
	}

	t, err := h.service.Create(c.Request.Context(), act.BusinessID, act.UserID, req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, t.ID.String())
}

// Get handles GET /transfers/:id
func (h *TransferHandler) Get(c *gin.Context) {
	act, ok := h.Actor(c)
	if !ok {
		return
	}
	transferID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	t, err := h.service.GetByID(c.Request.Context(), act.BusinessID, transferID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromTransfer(t))
}

// List handles GET /transfers
func (h *TransferHandler) List(c *gin.Context) {
	act, ok := h.Actor(c)
	if !ok {
		return
	}
	branchID, ok := h.ParseIDQuery(c, "branchId")
	if !ok {
		return
	}

	var status *transfer.Status
	if statusStr := c.Query("status"); statusStr != "" {
		s := transfer.Status(statusStr)
		status = &s
	}

	page := h.ParseIntQuery(c, "page", 1)
	limit := h.ParseIntQuery(c, "limit", 50)

	transfers, total, err := h.service.List(c.Request.Context(), act.BusinessID, branchID, status, page, limit)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.TransferResponse, len(transfers))
	for i := range transfers {
		items[i] = dto.FromTransfer(&transfers[i])
	}
	h.OK(c, dto.ListResponse{
		Items:      items,
		TotalCount: total,
		Page:       page,
		Limit:      limit,
	})
}

// Receive handles POST /transfers/:id/receive
func (h *TransferHandler) Receive(c *gin.Context) {
	act, ok := h.Actor(c)
	if !ok {
		return
	}
	transferID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	t, err := h.service.Receive(c.Request.Context(), act.BusinessID, transferID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromTransfer(t))
}

// Cancel handles POST /transfers/:id/cancel
func (h *TransferHandler) Cancel(c *gin.Context) {
	act, ok := h.Actor(c)
	if !ok {
		return
	}
	transferID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	t, err := h.service.Cancel(c.Request.Context(), act.BusinessID, transferID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromTransfer(t))
}

// Destinations handles GET /transfers/destinations
func (h *TransferHandler) Destinations(c *gin.Context) {
	if _, ok := h.Actor(c); !ok {
		return
	}

	destinations, err := h.service.ListDestinations(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"items": dto.FromDestinations(destinations)})
}

// RegisterRoutes registers transfer routes.
func (h *TransferHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/destinations", h.Destinations)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/receive", h.Receive)
	rg.POST("/:id/cancel", h.Cancel)
}
