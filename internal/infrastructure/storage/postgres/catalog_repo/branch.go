package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"restock/internal/core/apperror"
	"restock/internal/core/id"
	"restock/internal/domain/catalogs/branch"
	"restock/internal/infrastructure/storage/postgres"
)

const (
	branchTable   = "cat_branches"
	businessTable = "cat_businesses"
)

var branchColumns = []string{"id", "business_id", "name", "address", "active"}

// BranchRepo implements branch.Repository.
type BranchRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewBranchRepo creates a new branch directory repository.
func NewBranchRepo(txManager *postgres.TxManager) *BranchRepo {
	return &BranchRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *BranchRepo) Get(ctx context.Context, businessID, branchID id.ID) (*branch.Branch, error) {
	q := r.builder.Select(branchColumns...).
		From(branchTable).
		Where(squirrel.Eq{"id": branchID, "business_id": businessID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var b branch.Branch
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &b, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("branch", branchID.String())
		}
		return nil, fmt.Errorf("get branch: %w", err)
	}
	return &b, nil
}

func (r *BranchRepo) ListActive(ctx context.Context, businessID id.ID) ([]branch.Branch, error) {
	q := r.builder.Select(branchColumns...).
		From(branchTable).
		Where(squirrel.Eq{"business_id": businessID, "active": true}).
		OrderBy("name ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var branches []branch.Branch
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &branches, sql, args...); err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	return branches, nil
}

func (r *BranchRepo) GetBusinesses(ctx context.Context, businessIDs []id.ID) ([]branch.Business, error) {
	if len(businessIDs) == 0 {
		return nil, nil
	}

	q := r.builder.Select("id", "name").
		From(businessTable).
		Where(squirrel.Eq{"id": businessIDs}).
		OrderBy("name ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var businesses []branch.Business
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &businesses, sql, args...); err != nil {
		return nil, fmt.Errorf("select businesses: %w", err)
	}
	return businesses, nil
}

// Ensure interface compliance.
var _ branch.Repository = (*BranchRepo)(nil)
