package stockcount

import (
	"context"
	"fmt"
	"time"

	"restock/internal/core/apperror"
	"restock/internal/core/id"
	"restock/internal/core/tx"
	"restock/internal/core/types"
	"restock/internal/domain/audit"
	"restock/internal/domain/authz"
	"restock/internal/domain/catalogs/item"
	"restock/internal/domain/ledger"
	"restock/pkg/logger"
	"restock/pkg/numerator"
)

const entityType = "inventory_count"

// Ledger is the slice of the stock ledger the workflow needs: locked
// level reads for reconciliation and atomic adjustment application.
type Ledger interface {
	LevelForUpdate(ctx context.Context, key ledger.StockKey) (ledger.StockLevel, error)
	ApplyAll(ctx context.Context, changes []ledger.Change) ([]types.Quantity, error)
}

// Service drives the inventory count workflow.
type Service struct {
	repo      Repository
	ledger    Ledger
	items     item.Repository
	numerator *numerator.Service
	txManager tx.Manager
	authz     authz.Resolver
	auditor   audit.Recorder
}

func NewService(
	repo Repository,
	stockLedger Ledger,
	items item.Repository,
	num *numerator.Service,
	txManager tx.Manager,
	resolver authz.Resolver,
	auditor audit.Recorder,
) *Service {
	if auditor == nil {
		auditor = audit.NopRecorder{}
	}
	return &Service{
		repo:      repo,
		ledger:    stockLedger,
		items:     items,
		numerator: num,
		txManager: txManager,
		authz:     resolver,
		auditor:   auditor,
	}
}

// Create seeds a draft count. With no item ids the count spans the
// branch's full active item set.
func (s *Service) Create(ctx context.Context, businessID, branchID, createdBy id.ID, countType CountType, itemIDs []id.ID) (*InventoryCount, error) {
	if err := s.authz.Authorize(ctx, businessID); err != nil {
		return nil, err
	}

	c := New(businessID, branchID, createdBy, countType)

	if len(itemIDs) == 0 {
		all, err := s.items.ListActive(ctx, businessID)
		if err != nil {
			return nil, fmt.Errorf("list items: %w", err)
		}
		for _, it := range all {
			c.AddItem(it.ID)
		}
	} else {
		resolved, err := s.items.GetMany(ctx, businessID, itemIDs)
		if err != nil {
			return nil, fmt.Errorf("resolve items: %w", err)
		}
		for _, itemID := range itemIDs {
			if _, ok := resolved[itemID]; !ok {
				return nil, apperror.NewNotFound("item", itemID)
			}
			c.AddItem(itemID)
		}
	}

	if err := c.Validate(ctx); err != nil {
		return nil, err
	}

	cfg := numerator.DefaultConfig("IC")
	cfg.Scope = businessID.String()
	number, err := s.numerator.GetNextNumber(ctx, cfg, nil, time.Now())
	if err != nil {
		return nil, fmt.Errorf("generate count number: %w", err)
	}
	c.Number = number

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, c); err != nil {
			return fmt.Errorf("create count: %w", err)
		}
		return s.repo.SaveItems(ctx, c.ID, c.Items)
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, c, audit.ActionCreate)
	logger.Info(ctx, "inventory count created",
		"count_id", c.ID,
		"number", c.Number,
		"count_type", string(c.CountType),
		"items", len(c.Items),
	)
	return c, nil
}

// GetByID returns a count with its items.
func (s *Service) GetByID(ctx context.Context, businessID, countID id.ID) (*InventoryCount, error) {
	if err := s.authz.Authorize(ctx, businessID); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, businessID, countID)
}

// List returns counts for a business.
func (s *Service) List(ctx context.Context, businessID id.ID, branchID *id.ID, status *Status, page, limit int) ([]InventoryCount, int64, error) {
	if err := s.authz.Authorize(ctx, businessID); err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, businessID, branchID, status, page, limit)
}

// UpdateItem records a counted quantity on a draft. Items not seeded
// at creation may be added this way.
func (s *Service) UpdateItem(ctx context.Context, businessID, countID, itemID id.ID, countedQty types.Quantity, varianceReason *string) (*InventoryCount, error) {
	if err := s.authz.Authorize(ctx, businessID); err != nil {
		return nil, err
	}
	if countedQty.IsNegative() {
		return nil, apperror.NewValidation("counted quantity cannot be negative").
			WithDetail("item_id", itemID)
	}

	var c *InventoryCount
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		c, err = s.repo.GetForUpdate(ctx, businessID, countID)
		if err != nil {
			return err
		}
		if c.Status != StatusDraft {
			return apperror.NewInvalidStateTransition(entityType, string(c.Status), string(StatusDraft))
		}

		line := c.Item(itemID)
		if line == nil {
			if _, err := s.items.Get(ctx, businessID, itemID); err != nil {
				return err
			}
			c.AddItem(itemID)
			line = c.Item(itemID)
		}
		line.CountedQty = &countedQty
		line.VarianceReason = varianceReason

		c.Touch()
		c.UpdatedAt = time.Now().UTC()
		if err := s.repo.Update(ctx, c); err != nil {
			return fmt.Errorf("update count: %w", err)
		}
		return s.repo.UpsertItem(ctx, c.ID, *line)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Complete reconciles the count against the ledger. Each counted line
// that differs from the current level emits one adjustment movement;
// matching and uncounted lines emit nothing. Terminal.
func (s *Service) Complete(ctx context.Context, businessID, countID id.ID) (*InventoryCount, error) {
	if err := s.authz.Authorize(ctx, businessID); err != nil {
		return nil, err
	}

	var c *InventoryCount
	var adjusted int
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		c, err = s.repo.GetForUpdate(ctx, businessID, countID)
		if err != nil {
			return err
		}
		if !c.Status.CanTransition(StatusCompleted) {
			return apperror.NewInvalidStateTransition(entityType, string(c.Status), string(StatusCompleted))
		}

		changes := make([]ledger.Change, 0, len(c.Items))
		for _, line := range c.Items {
			if line.CountedQty == nil {
				continue
			}
			key := ledger.StockKey{
				BusinessID: c.BusinessID,
				BranchID:   c.BranchID,
				ItemID:     line.ItemID,
			}
			// Lock the level row before computing the delta, so a
			// movement committed after the read cannot shift the
			// quantity the adjustment was derived from.
			level, err := s.ledger.LevelForUpdate(ctx, key)
			if err != nil {
				return fmt.Errorf("read level: %w", err)
			}

			delta := *line.CountedQty - level.Quantity
			if delta.IsZero() {
				continue
			}
			var notes string
			if line.VarianceReason != nil {
				notes = *line.VarianceReason
			}
			changes = append(changes, ledger.Change{
				Key:           key,
				Delta:         delta,
				Type:          ledger.TypeCountAdjustment,
				ReferenceType: entityType,
				ReferenceID:   &c.ID,
				Notes:         notes,
			})
		}

		if len(changes) > 0 {
			if _, err := s.ledger.ApplyAll(ctx, changes); err != nil {
				return err
			}
		}
		adjusted = len(changes)

		now := time.Now().UTC()
		c.Status = StatusCompleted
		c.CompletedAt = &now
		c.Touch()
		c.UpdatedAt = now
		return s.repo.Update(ctx, c)
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, c, audit.ActionComplete)
	logger.Info(ctx, "inventory count completed",
		"count_id", c.ID,
		"number", c.Number,
		"adjustments", adjusted,
	)
	return c, nil
}

func (s *Service) recordAudit(ctx context.Context, c *InventoryCount, action audit.Action) {
	if err := s.auditor.Record(ctx, c.BusinessID, entityType, c.ID, action, c); err != nil {
		logger.Warn(ctx, "audit record failed", "count_id", c.ID, "error", err)
	}
}
