package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"restock/internal/core/apperror"
	"restock/internal/core/id"
	"restock/internal/core/types"
	"restock/internal/domain/ledger"
	"restock/internal/infrastructure/http/v1/dto"
)

// StatsProvider computes movement stats, optionally through a cache.
type StatsProvider interface {
	Stats(ctx context.Context, businessID id.ID, branchID *id.ID) ([]ledger.TypeCount, error)
}

// StockHandler handles stock level and movement log requests. All
// queries are scoped to the actor's business.
type StockHandler struct {
	*BaseHandler
	service *ledger.Service
	stats   StatsProvider
}

// NewStockHandler creates a new stock handler. stats may be the
// service itself or a cache in front of it.
func NewStockHandler(base *BaseHandler, service *ledger.Service, stats StatsProvider) *StockHandler {
	if stats == nil {
		stats = service
	}
	return &StockHandler{
		BaseHandler: base,
		service:     service,
		stats:       stats,
	}
}

// GetLevels handles GET /stock/levels
func (h *StockHandler) GetLevels(c *gin.Context) {
	act, ok := h.Actor(c)
	if !ok {
		return
	}

	branchID, ok := h.ParseIDQuery(c, "branchId")
	if !ok {
		return
	}
	if branchID == nil {
		h.Error(c, apperror.NewValidation("branchId is required"))
		return
	}

	excludeZero := c.Query("excludeZero") != "false"

	levels, err := h.service.Levels(c.Request.Context(), act.BusinessID, *branchID, excludeZero)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.StockLevelResponse, len(levels))
	for i, l := range levels {
		items[i] = dto.FromStockLevel(l)
	}
	h.OK(c, gin.H{"items": items})
}

// GetLevel handles GET /stock/levels/:branchId/:itemId
func (h *StockHandler) GetLevel(c *gin.Context) {
	act, ok := h.Actor(c)
	if !ok {
		return
	}
	branchID, ok := h.ParseIDParam(c, "branchId")
	if !ok {
		return
	}
	itemID, ok := h.ParseIDParam(c, "itemId")
	if !ok {
		return
	}

	level, err := h.service.Level(c.Request.Context(), ledger.StockKey{
		BusinessID: act.BusinessID,
		BranchID:   branchID,
		ItemID:     itemID,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromStockLevel(level))
}

// ApplyMovement handles POST /stock/movements
func (h *StockHandler) ApplyMovement(c *gin.Context) {
	act, ok := h.Actor(c)
	if !ok {
		return
	}

	var req dto.ApplyMovementRequest
	if !h.BindJSON(c, &req) {
		return
	}

	branchID, err := id.Parse(req.BranchID)
	if err != nil {
		h.Error(c, apperror.NewValidation("branchId must be a valid UUID"))
		return
	}
	itemID, err := id.Parse(req.ItemID)
	if err != nil {
		h.Error(c, apperror.NewValidation("itemId must be a valid UUID"))
		return
	}

	newQty, err := h.service.Apply(c.Request.Context(), ledger.Change{
		Key: ledger.StockKey{
			BusinessID: act.BusinessID,
			BranchID:   branchID,
			ItemID:     itemID,
		},
		Delta:         types.NewQuantityFromFloat64(req.QuantityDelta),
		Type:          ledger.TransactionType(req.Type),
		Notes:         req.Notes,
		AdminOverride: req.AdminOverride,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"quantity": newQty.Float64()})
}

// GetMovements handles GET /stock/movements
func (h *StockHandler) GetMovements(c *gin.Context) {
	act, ok := h.Actor(c)
	if !ok {
		return
	}

	filter := ledger.MovementFilter{
		BusinessID: act.BusinessID,
		Page:       h.ParseIntQuery(c, "page", 1),
		Limit:      h.ParseIntQuery(c, "limit", 50),
	}

	var parseOK bool
	if filter.BranchID, parseOK = h.ParseIDQuery(c, "branchId"); !parseOK {
		return
	}
	if filter.ItemID, parseOK = h.ParseIDQuery(c, "itemId"); !parseOK {
		return
	}
	if filter.ReferenceID, parseOK = h.ParseIDQuery(c, "referenceId"); !parseOK {
		return
	}
	if typStr := c.Query("transactionType"); typStr != "" {
		typ := ledger.TransactionType(typStr)
		filter.Type = &typ
	}
	if refType := c.Query("referenceType"); refType != "" {
		filter.ReferenceType = &refType
	}
	if fromStr := c.Query("fromDate"); fromStr != "" {
		if parsed, err := time.Parse(time.RFC3339, fromStr); err == nil {
			filter.FromDate = &parsed
		}
	}
	if toStr := c.Query("toDate"); toStr != "" {
		if parsed, err := time.Parse(time.RFC3339, toStr); err == nil {
			filter.ToDate = &parsed
		}
	}

	page, err := h.service.Movements(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.MovementResponse, len(page.Items))
	for i, m := range page.Items {
		items[i] = dto.FromMovement(m)
	}
	h.OK(c, dto.ListResponse{
		Items:      items,
		TotalCount: page.TotalCount,
		Page:       page.Page,
		Limit:      page.Limit,
	})
}

// GetStats handles GET /stock/stats
func (h *StockHandler) GetStats(c *gin.Context) {
	act, ok := h.Actor(c)
	if !ok {
		return
	}
	branchID, ok := h.ParseIDQuery(c, "branchId")
	if !ok {
		return
	}

	counts, err := h.stats.Stats(c.Request.Context(), act.BusinessID, branchID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromTypeCounts(counts))
}

// SetThresholds handles PUT /stock/thresholds
func (h *StockHandler) SetThresholds(c *gin.Context) {
	act, ok := h.Actor(c)
	if !ok {
		return
	}

	var req dto.SetThresholdsRequest
	if !h.BindJSON(c, &req) {
		return
	}

	branchID, err := id.Parse(req.BranchID)
	if err != nil {
		h.Error(c, apperror.NewValidation("branchId must be a valid UUID"))
		return
	}
	itemID, err := id.Parse(req.ItemID)
	if err != nil {
		h.Error(c, apperror.NewValidation("itemId must be a valid UUID"))
		return
	}

	var min, max *types.Quantity
	if req.MinThreshold != nil {
		v := types.NewQuantityFromFloat64(*req.MinThreshold)
		min = &v
	}
	if req.MaxThreshold != nil {
		v := types.NewQuantityFromFloat64(*req.MaxThreshold)
		max = &v
	}

	err = h.service.SetThresholds(c.Request.Context(), ledger.StockKey{
		BusinessID: act.BusinessID,
		BranchID:   branchID,
		ItemID:     itemID,
	}, min, max)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// Verify handles GET /stock/verify/:branchId/:itemId
func (h *StockHandler) Verify(c *gin.Context) {
	act, ok := h.Actor(c)
	if !ok {
		return
	}
	branchID, ok := h.ParseIDParam(c, "branchId")
	if !ok {
		return
	}
	itemID, ok := h.ParseIDParam(c, "itemId")
	if !ok {
		return
	}

	consistent, err := h.service.VerifyKey(c.Request.Context(), ledger.StockKey{
		BusinessID: act.BusinessID,
		BranchID:   branchID,
		ItemID:     itemID,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"consistent": consistent})
}

// RegisterRoutes registers stock routes.
func (h *StockHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/levels", h.GetLevels)
	rg.GET("/levels/:branchId/:itemId", h.GetLevel)
	rg.POST("/movements", h.ApplyMovement)
	rg.GET("/movements", h.GetMovements)
	rg.GET("/stats", h.GetStats)
	rg.PUT("/thresholds", h.SetThresholds)
	rg.GET("/verify/:branchId/:itemId", h.Verify)
}
