// Package catalog_repo provides PostgreSQL implementations for the
// catalog repositories.
package catalog_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"restock/internal/core/apperror"
	"restock/internal/core/id"
	"restock/internal/domain/catalogs/vendor"
	"restock/internal/infrastructure/storage/postgres"
)

const vendorTable = "cat_vendors"

var vendorColumns = []string{
	"id", "version", "business_id", "branch_id",
	"name", "contact_person", "phone", "email", "address", "notes",
	"is_active", "created_at", "updated_at",
}

// VendorRepo implements vendor.Repository.
type VendorRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewVendorRepo creates a new vendor repository.
func NewVendorRepo(txManager *postgres.TxManager) *VendorRepo {
	return &VendorRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *VendorRepo) Create(ctx context.Context, v *vendor.Vendor) error {
	q := r.builder.Insert(vendorTable).
		Columns(vendorColumns...).
		Values(
			v.ID, v.Version, v.BusinessID, v.BranchID,
			v.Name, v.ContactPerson, v.Phone, v.Email, v.Address, v.Notes,
			v.IsActive, v.CreatedAt, v.UpdatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert vendor: %w", err)
	}
	return nil
}

// Update writes the vendor with an optimistic version check.
func (r *VendorRepo) Update(ctx context.Context, v *vendor.Vendor) error {
	q := r.builder.Update(vendorTable).
		Set("branch_id", v.BranchID).
		Set("name", v.Name).
		Set("contact_person", v.ContactPerson).
		Set("phone", v.Phone).
		Set("email", v.Email).
		Set("address", v.Address).
		Set("notes", v.Notes).
		Set("is_active", v.IsActive).
		Set("updated_at", v.UpdatedAt).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{
			"id":          v.ID,
			"business_id": v.BusinessID,
			"version":     v.Version,
		})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update vendor: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConflict("vendor was modified concurrently").
			WithDetail("id", v.ID.String())
	}
	v.Version++
	return nil
}

func (r *VendorRepo) Delete(ctx context.Context, businessID, vendorID id.ID) error {
	q := r.builder.Delete(vendorTable).
		Where(squirrel.Eq{"id": vendorID, "business_id": businessID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return apperror.NewConflict("vendor is referenced by existing documents").
				WithDetail("id", vendorID.String()).
				WithCause(err)
		}
		return fmt.Errorf("delete vendor: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("vendor", vendorID.String())
	}
	return nil
}

func (r *VendorRepo) Get(ctx context.Context, businessID, vendorID id.ID) (*vendor.Vendor, error) {
	q := r.builder.Select(vendorColumns...).
		From(vendorTable).
		Where(squirrel.Eq{"id": vendorID, "business_id": businessID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var v vendor.Vendor
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &v, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("vendor", vendorID.String())
		}
		return nil, fmt.Errorf("get vendor: %w", err)
	}
	return &v, nil
}

// List returns shared vendors plus those exclusive to branchID.
func (r *VendorRepo) List(ctx context.Context, businessID id.ID, branchID *id.ID) ([]vendor.Vendor, error) {
	q := r.builder.Select(vendorColumns...).
		From(vendorTable).
		Where(squirrel.Eq{"business_id": businessID})

	if branchID != nil {
		q = q.Where(squirrel.Or{
			squirrel.Eq{"branch_id": nil},
			squirrel.Eq{"branch_id": *branchID},
		})
	}
	q = q.OrderBy("name ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var vendors []vendor.Vendor
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &vendors, sql, args...); err != nil {
		return nil, fmt.Errorf("list vendors: %w", err)
	}
	return vendors, nil
}

// Ensure interface compliance.
var _ vendor.Repository = (*VendorRepo)(nil)
