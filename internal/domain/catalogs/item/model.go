// Package item provides read access to the item catalog and barcode
// association. Item CRUD lives in the back-office catalog management;
// the workflows here only look items up and bind barcodes to them.
package item

import (
	"context"
	"strings"
	"time"

	"restock/internal/core/apperror"
	"restock/internal/core/id"
)

// Kind distinguishes raw ingredients from composite (recipe) items.
type Kind string

const (
	KindRaw       Kind = "raw"
	KindComposite Kind = "composite"
)

// Item is a business-scoped catalog entry.
type Item struct {
	ID         id.ID  `db:"id" json:"id"`
	BusinessID id.ID  `db:"business_id" json:"businessId"`
	Name       string `db:"name" json:"name"`
	Unit       string `db:"unit" json:"unit"`
	Kind       Kind   `db:"kind" json:"kind"`
	Active     bool   `db:"active" json:"active"`
}

// IsRaw reports whether the item is a raw ingredient.
func (i *Item) IsRaw() bool {
	return i.Kind == KindRaw
}

// Barcode binds one scannable code to an item. Codes are unique within
// a business, not globally.
type Barcode struct {
	ID         id.ID     `db:"id" json:"id"`
	BusinessID id.ID     `db:"business_id" json:"businessId"`
	ItemID     id.ID     `db:"item_id" json:"itemId"`
	Code       string    `db:"code" json:"code"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// Validate implements entity.Validatable.
func (b *Barcode) Validate(ctx context.Context) error {
	if id.IsNil(b.BusinessID) || id.IsNil(b.ItemID) {
		return apperror.NewValidation("business id and item id are required")
	}
	code := strings.TrimSpace(b.Code)
	if code == "" {
		return apperror.NewValidation("barcode is required").
			WithDetail("field", "code")
	}
	if len(code) > 64 {
		return apperror.NewValidation("barcode too long (max 64)").
			WithDetail("field", "code")
	}
	return nil
}
