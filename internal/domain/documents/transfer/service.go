package transfer

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
	"restock/internal/domain/catalogs/branch"
	"restock/internal/domain/ledger"
	"restock/pkg/logger"
	"restock/pkg/numerator"
)

const entityType = "transfer"

// Ledger is the slice of the stock ledger the workflow needs.
type Ledger interface {
	ApplyAll(ctx context.Context, changes []ledger.Change) ([]types.Quantity, error)
}

// Service drives the transfer workflow.
type Service struct {
	repo      Repository
	ledger    Ledger
	branches  branch.Repository
	numerator *numerator.Service
	txManager tx.Manager
	authz     authz.Resolver
	auditor   audit.Recorder
}

func NewService(
	repo Repository,
	stockLedger Ledger,
	branches branch.Repository,
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
		branches:  branches,
		numerator: num,
		txManager: txManager,
		authz:     resolver,
		auditor:   auditor,
	}
}

// CreateInput is the payload for Create.
type CreateInput struct {
	FromBranchID id.ID
	ToBusinessID id.ID
	ToBranchID   id.ID
	Notes        *string
	Items        []Item
}

type Item struct {
	ItemID   id.ID
	Quantity types.Quantity
}

// Create opens a transfer and deducts the stock from the source in the
// same transaction. All deductions succeed or none do.
func (s *Service) Create(ctx context.Context, fromBusinessID, createdBy id.ID, in CreateInput) (*Transfer, error) {
	if err := s.authz.Authorize(ctx, fromBusinessID, in.ToBusinessID); err != nil {
		return nil, err
	}

	t := New(fromBusinessID, in.FromBranchID, in.ToBusinessID, in.ToBranchID, createdBy)
	t.Notes = in.Notes
	for _, item := range in.Items {
		t.AddItem(item.ItemID, item.Quantity)
	}
	if err := t.Validate(ctx); err != nil {
		return nil, err
	}

	if _, err := s.branches.Get(ctx, in.ToBusinessID, in.ToBranchID); err != nil {
		return nil, err
	}

	cfg := numerator.DefaultConfig("TR")
	cfg.Scope = fromBusinessID.String()
	number, err := s.numerator.GetNextNumber(ctx, cfg, nil, time.Now())
	if err != nil {
		return nil, fmt.Errorf("generate transfer number: %w", err)
	}
	t.Number = number

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, t); err != nil {
			return fmt.Errorf("create transfer: %w", err)
		}
		if err := s.repo.SaveItems(ctx, t.ID, t.Items); err != nil {
			return fmt.Errorf("save items: %w", err)
		}

		_, err := s.ledger.ApplyAll(ctx, s.changes(t, t.FromBusinessID, t.FromBranchID, ledger.TypeTransferOut, true))
		return err
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, t, audit.ActionCreate)
	logger.Info(ctx, "transfer created",
		"transfer_id", t.ID,
		"number", t.Number,
		"to_business_id", t.ToBusinessID,
		"items", len(t.Items),
	)
	return t, nil
}

// GetByID returns a transfer visible to the business.
func (s *Service) GetByID(ctx context.Context, businessID, transferID id.ID) (*Transfer, error) {
	if err := s.authz.Authorize(ctx, businessID); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, businessID, transferID)
}

// List returns transfers touching the business.
func (s *Service) List(ctx context.Context, businessID id.ID, branchID *id.ID, status *Status, page, limit int) ([]Transfer, int64, error) {
	if err := s.authz.Authorize(ctx, businessID); err != nil {
		return nil, 0, err
	}
	if status != nil && !status.IsValid() {
		return nil, 0, apperror.NewValidation("invalid transfer status").
			WithDetail("value", string(*status))
	}
	return s.repo.List(ctx, businessID, branchID, status, page, limit)
}

// Receive books the transfer into the destination branch. Legal only
// from pending; authorization is re-checked because grants may have
// changed since creation.
func (s *Service) Receive(ctx context.Context, businessID, transferID id.ID) (*Transfer, error) {
	if err := s.authz.Authorize(ctx, businessID); err != nil {
		return nil, err
	}

	var t *Transfer
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		t, err = s.repo.GetForUpdate(ctx, businessID, transferID)
		if err != nil {
			return err
		}
		if err := s.authz.Authorize(ctx, t.FromBusinessID, t.ToBusinessID); err != nil {
			return err
		}
		if !t.Status.CanTransition(StatusReceived) {
			return apperror.NewInvalidStateTransition(entityType, string(t.Status), string(StatusReceived))
		}

		if _, err := s.ledger.ApplyAll(ctx, s.changes(t, t.ToBusinessID, t.ToBranchID, ledger.TypeTransferIn, false)); err != nil {
			return err
		}

		t.Status = StatusReceived
		t.Touch()
		t.UpdatedAt = time.Now().UTC()
		return s.repo.Update(ctx, t)
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, t, audit.ActionReceive)
	logger.Info(ctx, "transfer received", "transfer_id", t.ID, "number", t.Number)
	return t, nil
}

// Cancel restores the deducted stock to the source. Legal only from
// pending.
func (s *Service) Cancel(ctx context.Context, businessID, transferID id.ID) (*Transfer, error) {
	if err := s.authz.Authorize(ctx, businessID); err != nil {
		return nil, err
	}

	var t *Transfer
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		t, err = s.repo.GetForUpdate(ctx, businessID, transferID)
		if err != nil {
			return err
		}
		if err := s.authz.Authorize(ctx, t.FromBusinessID); err != nil {
			return err
		}
		if !t.Status.CanTransition(StatusCancelled) {
			return apperror.NewInvalidStateTransition(entityType, string(t.Status), string(StatusCancelled))
		}

		if _, err := s.ledger.ApplyAll(ctx, s.changes(t, t.FromBusinessID, t.FromBranchID, ledger.TypeTransferOutReversal, false)); err != nil {
			return err
		}

		t.Status = StatusCancelled
		t.Touch()
		t.UpdatedAt = time.Now().UTC()
		return s.repo.Update(ctx, t)
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, t, audit.ActionCancel)
	logger.Info(ctx, "transfer cancelled", "transfer_id", t.ID, "number", t.Number)
	return t, nil
}

// Destination is one valid transfer target.
type Destination struct {
	BusinessID   id.ID           `json:"businessId"`
	BusinessName string          `json:"businessName"`
	Branches     []branch.Branch `json:"branches"`
}

// ListDestinations returns the branches the actor may transfer to:
// every accessible business with its active branches for owners, only
// the current business for everyone else.
func (s *Service) ListDestinations(ctx context.Context) ([]Destination, error) {
	businessIDs, err := s.authz.Accessible(ctx)
	if err != nil {
		return nil, err
	}

	businesses, err := s.branches.GetBusinesses(ctx, businessIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve businesses: %w", err)
	}
	names := make(map[id.ID]string, len(businesses))
	for _, b := range businesses {
		names[b.ID] = b.Name
	}

	destinations := make([]Destination, 0, len(businessIDs))
	for _, businessID := range businessIDs {
		branches, err := s.branches.ListActive(ctx, businessID)
		if err != nil {
			return nil, fmt.Errorf("list branches: %w", err)
		}
		destinations = append(destinations, Destination{
			BusinessID:   businessID,
			BusinessName: names[businessID],
			Branches:     branches,
		})
	}
	return destinations, nil
}

// changes builds the ledger changes for one side of the transfer.
func (s *Service) changes(t *Transfer, businessID, branchID id.ID, typ ledger.TransactionType, deduct bool) []ledger.Change {
	changes := make([]ledger.Change, 0, len(t.Items))
	for _, item := range t.Items {
		delta := item.Quantity
		if deduct {
			delta = delta.Neg()
		}
		changes = append(changes, ledger.Change{
			Key: ledger.StockKey{
				BusinessID: businessID,
				BranchID:   branchID,
				ItemID:     item.ItemID,
			},
			Delta:         delta,
			Type:          typ,
			ReferenceType: entityType,
			ReferenceID:   &t.ID,
		})
	}
	return changes
}

func (s *Service) recordAudit(ctx context.Context, t *Transfer, action audit.Action) {
	if err := s.auditor.Record(ctx, t.FromBusinessID, entityType, t.ID, action, t); err != nil {
		logger.Warn(ctx, "audit record failed", "transfer_id", t.ID, "error", err)
	}
}
