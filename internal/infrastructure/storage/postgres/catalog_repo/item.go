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
	"restock/internal/domain/catalogs/item"
	"restock/internal/infrastructure/storage/postgres"
)

const (
	itemTable    = "cat_items"
	barcodeTable = "cat_item_barcodes"
)

var itemColumns = []string{"id", "business_id", "name", "unit", "kind", "active"}

// ItemRepo implements item.Repository.
type ItemRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewItemRepo creates a new item catalog repository.
func NewItemRepo(txManager *postgres.TxManager) *ItemRepo {
	return &ItemRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *ItemRepo) Get(ctx context.Context, businessID, itemID id.ID) (*item.Item, error) {
	q := r.builder.Select(itemColumns...).
		From(itemTable).
		Where(squirrel.Eq{"id": itemID, "business_id": businessID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var it item.Item
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &it, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("item", itemID.String())
		}
		return nil, fmt.Errorf("get item: %w", err)
	}
	return &it, nil
}

func (r *ItemRepo) GetMany(ctx context.Context, businessID id.ID, itemIDs []id.ID) (map[id.ID]item.Item, error) {
	if len(itemIDs) == 0 {
		return map[id.ID]item.Item{}, nil
	}

	q := r.builder.Select(itemColumns...).
		From(itemTable).
		Where(squirrel.Eq{"business_id": businessID, "id": itemIDs})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []item.Item
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, fmt.Errorf("select items: %w", err)
	}

	result := make(map[id.ID]item.Item, len(items))
	for _, it := range items {
		result[it.ID] = it
	}
	return result, nil
}

func (r *ItemRepo) ListActive(ctx context.Context, businessID id.ID) ([]item.Item, error) {
	q := r.builder.Select(itemColumns...).
		From(itemTable).
		Where(squirrel.Eq{"business_id": businessID, "active": true}).
		OrderBy("name ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []item.Item
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

// BarcodeRepo implements item.BarcodeRepository.
type BarcodeRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewBarcodeRepo creates a new barcode repository.
func NewBarcodeRepo(txManager *postgres.TxManager) *BarcodeRepo {
	return &BarcodeRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *BarcodeRepo) Insert(ctx context.Context, b *item.Barcode) error {
	q := r.builder.Insert(barcodeTable).
		Columns("id", "business_id", "item_id", "code", "created_at").
		Values(b.ID, b.BusinessID, b.ItemID, b.Code, b.CreatedAt)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		// Unique violation on (business_id, code).
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperror.NewConflict("barcode is already associated with another item").
				WithDetail("code", b.Code).
				WithCause(err)
		}
		return fmt.Errorf("insert barcode: %w", err)
	}
	return nil
}

func (r *BarcodeRepo) DeleteByItem(ctx context.Context, businessID, itemID id.ID) error {
	q := r.builder.Delete(barcodeTable).
		Where(squirrel.Eq{"business_id": businessID, "item_id": itemID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete barcodes: %w", err)
	}
	return nil
}

func (r *BarcodeRepo) FindByCode(ctx context.Context, businessID id.ID, code string) (*item.Barcode, error) {
	return r.findOne(ctx, squirrel.Eq{"business_id": businessID, "code": code}, code)
}

func (r *BarcodeRepo) FindByItem(ctx context.Context, businessID, itemID id.ID) (*item.Barcode, error) {
	return r.findOne(ctx, squirrel.Eq{"business_id": businessID, "item_id": itemID}, itemID.String())
}

func (r *BarcodeRepo) findOne(ctx context.Context, cond squirrel.Eq, ref string) (*item.Barcode, error) {
	q := r.builder.Select("id", "business_id", "item_id", "code", "created_at").
		From(barcodeTable).
		Where(cond).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var b item.Barcode
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &b, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("barcode", ref)
		}
		return nil, fmt.Errorf("get barcode: %w", err)
	}
	return &b, nil
}

// Ensure interface compliance.
var (
	_ item.Repository        = (*ItemRepo)(nil)
	_ item.BarcodeRepository = (*BarcodeRepo)(nil)
)
