package ledger

import (
	"context"
	"fmt"
	"time"

	"restock/internal/core/actor"
	"restock/internal/core/apperror"
	"restock/internal/core/id"
	"restock/internal/core/tx"
	"restock/internal/core/types"
	"restock/pkg/logger"
)

// StatsInvalidator invalidates cached movement stats after ledger writes.
// The redis-backed implementation lives in infrastructure/cache.
type StatsInvalidator interface {
	Invalidate(ctx context.Context, businessID id.ID) error
}

// Service is the single writer of stock quantities. Every workflow calls
// Apply/ApplyAll instead of touching stock levels directly, so that the
// level update and the movement insert are always one atomic unit.
type Service struct {
	repo      Repository
	txManager tx.Manager
	stats     StatsInvalidator // optional
}

// NewService creates a new stock ledger service.
func NewService(repo Repository, txManager tx.Manager, stats StatsInvalidator) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
		stats:     stats,
	}
}

// Apply atomically applies one quantity change and records its movement.
// Returns the new on-hand quantity for the key.
func (s *Service) Apply(ctx context.Context, change Change) (types.Quantity, error) {
	var newQty types.Quantity
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		newQty, err = s.applyLocked(ctx, change)
		return err
	})
	if err != nil {
		return 0, err
	}

	s.invalidateStats(ctx, change.Key.BusinessID)
	return newQty, nil
}

// ApplyAll applies a batch of changes in one transaction, all-or-nothing.
// Used by transfer creation where a single insufficient item must abort
// every deduction.
func (s *Service) ApplyAll(ctx context.Context, changes []Change) ([]types.Quantity, error) {
	if len(changes) == 0 {
		return nil, nil
	}

	quantities := make([]types.Quantity, len(changes))
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		for i, change := range changes {
			qty, err := s.applyLocked(ctx, change)
			if err != nil {
				return err
			}
			quantities[i] = qty
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateStats(ctx, changes[0].Key.BusinessID)
	return quantities, nil
}

// applyLocked performs the locked read-modify-write for one change.
// Must run inside a transaction: the FOR UPDATE lock on the level row
// serializes concurrent writers on the same key.
func (s *Service) applyLocked(ctx context.Context, change Change) (types.Quantity, error) {
	if err := s.validateChange(change); err != nil {
		return 0, err
	}

	level, err := s.repo.GetLevelForUpdate(ctx, change.Key)
	if err != nil {
		return 0, fmt.Errorf("get level for update: %w", err)
	}

	newQty := level.Quantity + change.Delta
	if newQty.IsNegative() && change.Type.IsDeduction() && !change.AdminOverride {
		return 0, apperror.NewInsufficientInventory(
			change.Key.ItemID.String(),
			change.Delta.Neg().Float64(),
			level.Quantity.Float64(),
		)
	}

	now := time.Now().UTC()
	movement := Movement{
		ID:            id.New(),
		BusinessID:    change.Key.BusinessID,
		BranchID:      change.Key.BranchID,
		ItemID:        change.Key.ItemID,
		QuantityDelta: change.Delta,
		Type:          change.Type,
		ReferenceType: change.ReferenceType,
		ReferenceID:   change.ReferenceID,
		PerformedBy:   actor.UserID(ctx),
		Notes:         change.Notes,
		CreatedAt:     now,
	}

	if err := s.repo.InsertMovements(ctx, []Movement{movement}); err != nil {
		return 0, fmt.Errorf("insert movement: %w", err)
	}

	level.Quantity = newQty
	level.LastMovementAt = now
	level.UpdatedAt = now
	if err := s.repo.UpsertLevel(ctx, level); err != nil {
		return 0, fmt.Errorf("upsert level: %w", err)
	}

	return newQty, nil
}

func (s *Service) validateChange(change Change) error {
	if !change.Type.IsValid() {
		return apperror.NewValidation("unknown transaction type").
			WithDetail("type", string(change.Type))
	}
	if change.Delta.IsZero() {
		return apperror.NewValidation("quantity delta must be non-zero").
			WithDetail("item_id", change.Key.ItemID)
	}
	if id.IsNil(change.Key.BusinessID) || id.IsNil(change.Key.BranchID) || id.IsNil(change.Key.ItemID) {
		return apperror.NewValidation("business, branch and item are required")
	}
	return nil
}

func (s *Service) invalidateStats(ctx context.Context, businessID id.ID) {
	if s.stats == nil {
		return
	}
	if err := s.stats.Invalidate(ctx, businessID); err != nil {
		logger.Warn(ctx, "stats cache invalidation failed",
			"business_id", businessID,
			"error", err,
		)
	}
}

// Level returns the current level for a key, with zero/unset defaults
// when no row exists yet.
func (s *Service) Level(ctx context.Context, key StockKey) (StockLevel, error) {
	return s.repo.GetLevel(ctx, key)
}

// LevelForUpdate returns the current level with the row locked. Must
// run inside a transaction; callers that compute a delta against the
// returned quantity hold the lock until the adjustment commits.
func (s *Service) LevelForUpdate(ctx context.Context, key StockKey) (StockLevel, error) {
	return s.repo.GetLevelForUpdate(ctx, key)
}

// Levels returns the levels for a branch.
func (s *Service) Levels(ctx context.Context, businessID, branchID id.ID, excludeZero bool) ([]StockLevel, error) {
	return s.repo.ListLevels(ctx, businessID, branchID, excludeZero)
}

// SetThresholds updates the min/max reorder thresholds for a key.
func (s *Service) SetThresholds(ctx context.Context, key StockKey, min, max *types.Quantity) error {
	if min != nil && max != nil && *min > *max {
		return apperror.NewValidation("min threshold cannot exceed max threshold")
	}
	return s.repo.SetThresholds(ctx, key, min, max)
}

// Movements returns a page of the movement log.
func (s *Service) Movements(ctx context.Context, filter MovementFilter) (MovementPage, error) {
	if filter.Type != nil && !filter.Type.IsValid() {
		return MovementPage{}, apperror.NewValidation("unknown transaction type").
			WithDetail("type", string(*filter.Type))
	}

	items, total, err := s.repo.ListMovements(ctx, filter)
	if err != nil {
		return MovementPage{}, fmt.Errorf("list movements: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	return MovementPage{
		Items:      items,
		TotalCount: total,
		Page:       page,
		Limit:      filter.PageSize(),
	}, nil
}

// Stats aggregates movement counts by transaction type for dashboards.
func (s *Service) Stats(ctx context.Context, businessID id.ID, branchID *id.ID) ([]TypeCount, error) {
	return s.repo.Stats(ctx, businessID, branchID)
}

// VerifyKey recomputes the movement sum for a key and compares it with
// the materialized level. Used by audits; a mismatch indicates drift.
func (s *Service) VerifyKey(ctx context.Context, key StockKey) (bool, error) {
	level, err := s.repo.GetLevel(ctx, key)
	if err != nil {
		return false, err
	}
	sum, err := s.repo.SumMovements(ctx, key)
	if err != nil {
		return false, err
	}
	if sum != level.Quantity {
		logger.Warn(ctx, "stock level drift detected",
			"item_id", key.ItemID,
			"branch_id", key.BranchID,
			"level", level.Quantity,
			"movement_sum", sum,
		)
		return false, nil
	}
	return true, nil
}
