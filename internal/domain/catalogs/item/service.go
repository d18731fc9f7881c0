package item

import (
	"context"
	"fmt"
	"strings"
	"time"

	"restock/internal/core/apperror"
	"restock/internal/core/id"
	"restock/internal/core/tx"
	"restock/internal/domain/authz"
	"restock/pkg/logger"
)

// Service exposes item lookup and barcode association.
type Service struct {
	items     Repository
	barcodes  BarcodeRepository
	txManager tx.Manager
	authz     authz.Resolver
}

func NewService(items Repository, barcodes BarcodeRepository, txManager tx.Manager, resolver authz.Resolver) *Service {
	return &Service{
		items:     items,
		barcodes:  barcodes,
		txManager: txManager,
		authz:     resolver,
	}
}

// Get returns one item within the actor's business.
func (s *Service) Get(ctx context.Context, businessID, itemID id.ID) (*Item, error) {
	if err := s.authz.Authorize(ctx, businessID); err != nil {
		return nil, err
	}
	return s.items.Get(ctx, businessID, itemID)
}

// ListActive returns the business's active items.
func (s *Service) ListActive(ctx context.Context, businessID id.ID) ([]Item, error) {
	if err := s.authz.Authorize(ctx, businessID); err != nil {
		return nil, err
	}
	return s.items.ListActive(ctx, businessID)
}

// Lookup resolves a scanned barcode to its item.
func (s *Service) Lookup(ctx context.Context, businessID id.ID, code string) (*Item, error) {
	if err := s.authz.Authorize(ctx, businessID); err != nil {
		return nil, err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, apperror.NewValidation("barcode is required")
	}

	barcode, err := s.barcodes.FindByCode(ctx, businessID, code)
	if err != nil {
		return nil, err
	}
	return s.items.Get(ctx, businessID, barcode.ItemID)
}

// Associate binds a barcode to an item. A code already bound to a
// different item of the same business is a conflict; rebinding the
// same item to a new code replaces the old association.
func (s *Service) Associate(ctx context.Context, businessID, itemID id.ID, code string) (*Barcode, error) {
	if err := s.authz.Authorize(ctx, businessID); err != nil {
		return nil, err
	}

	barcode := &Barcode{
		ID:         id.New(),
		BusinessID: businessID,
		ItemID:     itemID,
		Code:       strings.TrimSpace(code),
		CreatedAt:  time.Now().UTC(),
	}
	if err := barcode.Validate(ctx); err != nil {
		return nil, err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.items.Get(ctx, businessID, itemID); err != nil {
			return err
		}

		existing, err := s.barcodes.FindByCode(ctx, businessID, barcode.Code)
		if err != nil && !apperror.IsNotFound(err) {
			return fmt.Errorf("check barcode: %w", err)
		}
		if existing != nil {
			if existing.ItemID == itemID {
				*barcode = *existing
				return nil
			}
			return apperror.NewConflict("barcode already bound to another item").
				WithDetail("code", barcode.Code).
				WithDetail("item_id", existing.ItemID)
		}

		// One barcode per item: drop a previous association first.
		if err := s.barcodes.DeleteByItem(ctx, businessID, itemID); err != nil {
			return fmt.Errorf("unbind previous barcode: %w", err)
		}
		return s.barcodes.Insert(ctx, barcode)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "barcode associated",
		"item_id", itemID,
		"business_id", businessID,
	)
	return barcode, nil
}
