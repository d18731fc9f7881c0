package purchaseorder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"restock/internal/core/apperror"
	"restock/internal/core/id"
	"restock/internal/core/security"
	"restock/internal/core/tx"
	"restock/internal/core/types"
	"restock/internal/domain/audit"
	"restock/internal/domain/authz"
	"restock/internal/domain/catalogs/item"
	"restock/internal/domain/catalogs/vendor"
	"restock/internal/domain/ledger"
	"restock/pkg/logger"
	"restock/pkg/numerator"
)

const entityType = "purchase_order"

// Ledger is the slice of the stock ledger the workflow needs.
type Ledger interface {
	ApplyAll(ctx context.Context, changes []ledger.Change) ([]types.Quantity, error)
}

// VendorDirectory is the slice of the vendor catalog order creation needs.
type VendorDirectory interface {
	Get(ctx context.Context, businessID, vendorID id.ID) (*vendor.Vendor, error)
}

// ItemCatalog resolves order lines against the item catalog.
type ItemCatalog interface {
	GetMany(ctx context.Context, businessID id.ID, itemIDs []id.ID) (map[id.ID]item.Item, error)
}

// Service drives the purchase order workflow.
type Service struct {
	repo      Repository
	ledger    Ledger
	vendors   VendorDirectory
	items     ItemCatalog
	numerator *numerator.Service
	txManager tx.Manager
	authz     authz.Resolver
	policy    security.ReceivingPolicy
	auditor   audit.Recorder
}

func NewService(
	repo Repository,
	stockLedger Ledger,
	vendors VendorDirectory,
	items ItemCatalog,
	num *numerator.Service,
	txManager tx.Manager,
	resolver authz.Resolver,
	policy security.ReceivingPolicy,
	auditor audit.Recorder,
) *Service {
	if policy == nil {
		policy = security.OpenReceivingPolicy{}
	}
	if auditor == nil {
		auditor = audit.NopRecorder{}
	}
	return &Service{
		repo:      repo,
		ledger:    stockLedger,
		vendors:   vendors,
		items:     items,
		numerator: num,
		txManager: txManager,
		authz:     resolver,
		policy:    policy,
		auditor:   auditor,
	}
}

// CreateInput is the payload for Create.
type CreateInput struct {
	BranchID     id.ID
	VendorID     id.ID
	ExpectedDate *time.Time
	Notes        *string
	Items        []CreateItem
}

type CreateItem struct {
	ItemID   id.ID
	Quantity types.Quantity
}

// Create opens a pending order. Only ordered quantities are stored;
// pricing arrives later with the invoice.
func (s *Service) Create(ctx context.Context, businessID, createdBy id.ID, in CreateInput) (*PurchaseOrder, error) {
	if err := s.authz.Authorize(ctx, businessID); err != nil {
		return nil, err
	}

	order := New(businessID, in.BranchID, in.VendorID, createdBy)
	order.ExpectedDate = in.ExpectedDate
	order.Notes = in.Notes
	for _, item := range in.Items {
		order.AddItem(item.ItemID, item.Quantity)
	}

	if err := order.Validate(ctx); err != nil {
		return nil, err
	}
	if err := s.checkVendor(ctx, businessID, in.VendorID, in.BranchID); err != nil {
		return nil, err
	}
	if err := s.checkItems(ctx, businessID, in.Items); err != nil {
		return nil, err
	}

	cfg := numerator.DefaultConfig("PO")
	cfg.Scope = businessID.String()
	number, err := s.numerator.GetNextNumber(ctx, cfg, nil, time.Now())
	if err != nil {
		return nil, fmt.Errorf("generate order number: %w", err)
	}
	order.Number = number

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		return s.repo.SaveItems(ctx, order.ID, order.Items)
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, order, audit.ActionCreate)
	logger.Info(ctx, "purchase order created",
		"order_id", order.ID,
		"number", order.Number,
		"vendor_id", order.VendorID,
		"items", len(order.Items),
	)
	return order, nil
}

// checkVendor verifies the vendor exists, is active and serves the
// ordering branch.
func (s *Service) checkVendor(ctx context.Context, businessID, vendorID, branchID id.ID) error {
	v, err := s.vendors.Get(ctx, businessID, vendorID)
	if err != nil {
		return err
	}
	if !v.IsActive {
		return apperror.NewValidation("vendor is not active").
			WithDetail("vendor_id", vendorID.String())
	}
	if !v.VisibleFrom(branchID) {
		return apperror.NewValidation("vendor does not serve this branch").
			WithDetail("vendor_id", vendorID.String()).
			WithDetail("branch_id", branchID.String())
	}
	return nil
}

// checkItems verifies that every order line refers to a known item.
func (s *Service) checkItems(ctx context.Context, businessID id.ID, items []CreateItem) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]id.ID, len(items))
	for i, it := range items {
		ids[i] = it.ItemID
	}
	resolved, err := s.items.GetMany(ctx, businessID, ids)
	if err != nil {
		return fmt.Errorf("resolve items: %w", err)
	}
	for _, itemID := range ids {
		if _, ok := resolved[itemID]; !ok {
			return apperror.NewNotFound("item", itemID)
		}
	}
	return nil
}

// GetByID returns an order with its items.
func (s *Service) GetByID(ctx context.Context, businessID, orderID id.ID) (*PurchaseOrder, error) {
	if err := s.authz.Authorize(ctx, businessID); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, businessID, orderID)
}

// List returns orders matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]PurchaseOrder, int64, error) {
	if err := s.authz.Authorize(ctx, filter.BusinessID); err != nil {
		return nil, 0, err
	}
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, 0, apperror.NewValidation("invalid order status").
			WithDetail("value", string(*filter.Status))
	}
	return s.repo.List(ctx, filter)
}

// CountItem is one checked line of a delivery.
type CountItem struct {
	ItemID         id.ID
	CountedQty     types.Quantity
	BarcodeScanned bool
	VarianceReason *VarianceReason
	VarianceNote   *string
}

// Count records the physical check of a delivery. Legal only from
// pending; no stock or cost effect yet.
func (s *Service) Count(ctx context.Context, businessID, orderID id.ID, items []CountItem) (*PurchaseOrder, error) {
	if err := s.authz.Authorize(ctx, businessID); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, apperror.NewValidation("at least one counted item is required")
	}

	var order *PurchaseOrder
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.repo.GetForUpdate(ctx, businessID, orderID)
		if err != nil {
			return err
		}
		if !order.Status.CanTransition(StatusCounted) {
			return apperror.NewInvalidStateTransition(entityType, string(order.Status), string(StatusCounted))
		}

		for _, counted := range items {
			line := order.Item(counted.ItemID)
			if line == nil {
				return apperror.NewValidation("counted item not on order").
					WithDetail("item_id", counted.ItemID)
			}
			if !counted.BarcodeScanned {
				return apperror.NewValidation("barcode scan required for every counted item").
					WithDetail("item_id", counted.ItemID).
					WithDetail("lineNo", line.LineNo)
			}
			if counted.CountedQty.IsNegative() {
				return apperror.NewValidation("counted quantity cannot be negative").
					WithDetail("lineNo", line.LineNo)
			}
			if err := validateVariance(line.OrderedQty, counted.CountedQty, counted.VarianceReason, counted.VarianceNote, line.LineNo); err != nil {
				return err
			}

			qty := counted.CountedQty
			line.CountedQty = &qty
			line.BarcodeScanned = true
			line.VarianceReason = counted.VarianceReason
			line.VarianceNote = counted.VarianceNote
		}

		// Counted requires every line checked, not just the ones in
		// this request.
		for _, line := range order.Items {
			if line.CountedQty == nil {
				return apperror.NewValidation("all items must be counted").
					WithDetail("item_id", line.ItemID).
					WithDetail("lineNo", line.LineNo)
			}
		}

		order.Status = StatusCounted
		order.Touch()
		order.UpdatedAt = time.Now().UTC()
		if err := s.repo.Update(ctx, order); err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		return s.repo.SaveItems(ctx, order.ID, order.Items)
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, order, audit.ActionCount)
	logger.Info(ctx, "purchase order counted", "order_id", order.ID, "number", order.Number)
	return order, nil
}

// ReceiveItem is one invoiced line.
type ReceiveItem struct {
	ItemID         id.ID
	ReceivedQty    *types.Quantity // nil reuses the counted quantity
	TotalCost      types.Money
	VarianceReason *VarianceReason
	VarianceNote   *string
}

// Receive books the order into stock. Legal from counted, or directly
// from pending with full variance justification. Terminal: a received
// order is immutable.
func (s *Service) Receive(ctx context.Context, businessID, orderID id.ID, invoiceImageURL string, items []ReceiveItem) (*PurchaseOrder, error) {
	if err := s.authz.Authorize(ctx, businessID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(invoiceImageURL) == "" {
		return nil, apperror.NewValidation("invoice image reference is required").
			WithDetail("field", "invoiceImageUrl")
	}

	byItem := make(map[id.ID]ReceiveItem, len(items))
	for _, item := range items {
		byItem[item.ItemID] = item
	}

	var order *PurchaseOrder
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.repo.GetForUpdate(ctx, businessID, orderID)
		if err != nil {
			return err
		}
		// Terminal states reject the retry instead of double-applying
		// stock. The check shares the transaction with the movement
		// writes below.
		if !order.Status.CanTransition(StatusReceived) {
			return apperror.NewInvalidStateTransition(entityType, string(order.Status), string(StatusReceived))
		}
		fromPending := order.Status == StatusPending

		changes := make([]ledger.Change, 0, len(order.Items))
		for i := range order.Items {
			line := &order.Items[i]
			received, err := s.resolveReceivedLine(line, byItem, fromPending)
			if err != nil {
				return err
			}

			if received.IsPositive() {
				changes = append(changes, ledger.Change{
					Key: ledger.StockKey{
						BusinessID: order.BusinessID,
						BranchID:   order.BranchID,
						ItemID:     line.ItemID,
					},
					Delta:         received,
					Type:          ledger.TypePurchaseReceipt,
					ReferenceType: entityType,
					ReferenceID:   &order.ID,
				})
			}
		}

		if _, err := s.ledger.ApplyAll(ctx, changes); err != nil {
			return err
		}

		order.Status = StatusReceived
		order.InvoiceImageURL = &invoiceImageURL
		order.Touch()
		order.UpdatedAt = time.Now().UTC()
		if err := s.repo.Update(ctx, order); err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		return s.repo.SaveItems(ctx, order.ID, order.Items)
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, order, audit.ActionReceive)
	logger.Info(ctx, "purchase order received",
		"order_id", order.ID,
		"number", order.Number,
		"items", len(order.Items),
	)
	return order, nil
}

// resolveReceivedLine fills the received quantity and costs for one
// line and returns the quantity to book.
func (s *Service) resolveReceivedLine(line *OrderItem, byItem map[id.ID]ReceiveItem, fromPending bool) (types.Quantity, error) {
	in, ok := byItem[line.ItemID]
	var received types.Quantity
	switch {
	case ok && in.ReceivedQty != nil:
		received = *in.ReceivedQty
	case line.CountedQty != nil:
		received = *line.CountedQty
	default:
		return 0, apperror.NewValidation("received quantity required").
			WithDetail("item_id", line.ItemID).
			WithDetail("lineNo", line.LineNo)
	}

	if received.IsNegative() {
		return 0, apperror.NewValidation("received quantity cannot be negative").
			WithDetail("lineNo", line.LineNo)
	}
	if err := s.policy.CanReceive(line.OrderedQty.Float64(), received.Float64()); err != nil {
		return 0, err
	}

	// The legacy pending path never went through Count, so variance
	// rules apply here instead.
	if fromPending {
		reason, note := in.VarianceReason, in.VarianceNote
		if err := validateVariance(line.OrderedQty, received, reason, note, line.LineNo); err != nil {
			return 0, err
		}
		line.VarianceReason = reason
		line.VarianceNote = note
	}

	if !ok {
		return 0, apperror.NewValidation("cost required for every item").
			WithDetail("item_id", line.ItemID).
			WithDetail("lineNo", line.LineNo)
	}
	if in.TotalCost.IsNegative() {
		return 0, apperror.NewValidation("total cost cannot be negative").
			WithDetail("lineNo", line.LineNo)
	}

	line.ReceivedQty = &received
	totalCost := in.TotalCost
	line.TotalCost = &totalCost
	if received.IsPositive() {
		unitCost := totalCost.Div(received.Decimal()).Round(4)
		line.UnitCost = &unitCost
	}
	return received, nil
}

// Update replaces the editable fields of a pending order. Line items
// are replaced wholesale.
type UpdateInput struct {
	ExpectedDate *time.Time
	Notes        *string
	Items        []CreateItem
}

func (s *Service) Update(ctx context.Context, businessID, orderID id.ID, in UpdateInput) (*PurchaseOrder, error) {
	if err := s.authz.Authorize(ctx, businessID); err != nil {
		return nil, err
	}

	if err := s.checkItems(ctx, businessID, in.Items); err != nil {
		return nil, err
	}

	var order *PurchaseOrder
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.repo.GetForUpdate(ctx, businessID, orderID)
		if err != nil {
			return err
		}
		if order.Status != StatusPending {
			return apperror.NewInvalidStateTransition(entityType, string(order.Status), string(StatusPending))
		}

		order.ExpectedDate = in.ExpectedDate
		order.Notes = in.Notes
		if len(in.Items) > 0 {
			order.Items = order.Items[:0]
			for _, item := range in.Items {
				order.AddItem(item.ItemID, item.Quantity)
			}
		}
		if err := order.Validate(ctx); err != nil {
			return err
		}

		order.Touch()
		order.UpdatedAt = time.Now().UTC()
		if err := s.repo.Update(ctx, order); err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		return s.repo.SaveItems(ctx, order.ID, order.Items)
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, order, audit.ActionUpdate)
	return order, nil
}

// UpdateStatus toggles between pending and cancelled. Received is
// never reachable through this path; only Receive books stock.
func (s *Service) UpdateStatus(ctx context.Context, businessID, orderID id.ID, to Status) (*PurchaseOrder, error) {
	if err := s.authz.Authorize(ctx, businessID); err != nil {
		return nil, err
	}
	if to != StatusPending && to != StatusCancelled {
		return nil, apperror.NewInvalidStateTransition(entityType, "", string(to))
	}

	var order *PurchaseOrder
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.repo.GetForUpdate(ctx, businessID, orderID)
		if err != nil {
			return err
		}
		if order.Status == to {
			return nil
		}
		legal := (order.Status == StatusPending && to == StatusCancelled) ||
			(order.Status == StatusCancelled && to == StatusPending)
		if !legal {
			return apperror.NewInvalidStateTransition(entityType, string(order.Status), string(to))
		}

		order.Status = to
		order.Touch()
		order.UpdatedAt = time.Now().UTC()
		return s.repo.Update(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	if to == StatusCancelled {
		s.recordAudit(ctx, order, audit.ActionCancel)
	}
	logger.Info(ctx, "purchase order status updated",
		"order_id", order.ID,
		"status", string(order.Status),
	)
	return order, nil
}

// HasOpenOrders backs the vendor deletion guard.
func (s *Service) HasOpenOrders(ctx context.Context, businessID, vendorID id.ID) (bool, error) {
	return s.repo.HasOpenOrders(ctx, businessID, vendorID)
}

func (s *Service) recordAudit(ctx context.Context, order *PurchaseOrder, action audit.Action) {
	if err := s.auditor.Record(ctx, order.BusinessID, entityType, order.ID, action, order); err != nil {
		logger.Warn(ctx, "audit record failed", "order_id", order.ID, "error", err)
	}
}
