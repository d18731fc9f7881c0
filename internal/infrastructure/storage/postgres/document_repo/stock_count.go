package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"restock/internal/core/apperror"
	"restock/internal/core/id"
	"restock/internal/domain/documents/stockcount"
	"restock/internal/infrastructure/storage/postgres"
)

const (
	stockCountsTable     = "doc_stock_counts"
	stockCountLinesTable = "doc_stock_count_lines"
)

var stockCountColumns = []string{
	"id", "version", "created_at", "updated_at", "created_by",
	"business_id", "branch_id",
	"number", "status", "count_type", "completed_at",
}

// StockCountRepo implements stockcount.Repository.
type StockCountRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewStockCountRepo creates a new inventory count repository.
func NewStockCountRepo(txManager *postgres.TxManager) *StockCountRepo {
	return &StockCountRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *StockCountRepo) Create(ctx context.Context, c *stockcount.InventoryCount) error {
	q := r.builder.Insert(stockCountsTable).
		Columns(stockCountColumns...).
		Values(
			c.ID, c.Version, c.CreatedAt, c.UpdatedAt, c.CreatedBy,
			c.BusinessID, c.BranchID,
			c.Number, c.Status, c.CountType, c.CompletedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert inventory count: %w", err)
	}
	return nil
}

func (r *StockCountRepo) Update(ctx context.Context, c *stockcount.InventoryCount) error {
	q := r.builder.Update(stockCountsTable).
		Set("status", c.Status).
		Set("completed_at", c.CompletedAt).
		Set("updated_at", c.UpdatedAt).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{
			"id":          c.ID,
			"business_id": c.BusinessID,
			"version":     c.Version,
		})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update inventory count: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConflict("inventory count was modified concurrently").
			WithDetail("id", c.ID.String())
	}
	c.Version++
	return nil
}

func (r *StockCountRepo) GetByID(ctx context.Context, businessID, countID id.ID) (*stockcount.InventoryCount, error) {
	return r.get(ctx, businessID, countID, false)
}

func (r *StockCountRepo) GetForUpdate(ctx context.Context, businessID, countID id.ID) (*stockcount.InventoryCount, error) {
	return r.get(ctx, businessID, countID, true)
}

func (r *StockCountRepo) get(ctx context.Context, businessID, countID id.ID, forUpdate bool) (*stockcount.InventoryCount, error) {
	q := r.builder.Select(stockCountColumns...).
		From(stockCountsTable).
		Where(squirrel.Eq{"id": countID, "business_id": businessID})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var c stockcount.InventoryCount
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &c, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("inventory count", countID.String())
		}
		return nil, fmt.Errorf("get inventory count: %w", err)
	}

	items, err := r.GetItems(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	c.Items = items
	return &c, nil
}

func (r *StockCountRepo) GetItems(ctx context.Context, countID id.ID) ([]stockcount.CountItem, error) {
	q := r.builder.Select("line_id", "item_id", "counted_qty", "variance_reason").
		From(stockCountLinesTable).
		Where(squirrel.Eq{"document_id": countID}).
		OrderBy("line_id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []stockcount.CountItem
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, fmt.Errorf("get count lines: %w", err)
	}
	return items, nil
}

// SaveItems replaces the count lines. Count sheets can span the whole
// catalog, so the COPY fast path is used inside a transaction.
func (r *StockCountRepo) SaveItems(ctx context.Context, countID id.ID, items []stockcount.CountItem) error {
	querier := r.txManager.GetQuerier(ctx)

	deleteSQL := "DELETE FROM " + stockCountLinesTable + " WHERE document_id = $1"
	if _, err := querier.Exec(ctx, deleteSQL, countID); err != nil {
		return fmt.Errorf("delete existing lines: %w", err)
	}

	if len(items) == 0 {
		return nil
	}

	columns := []string{"line_id", "document_id", "item_id", "counted_qty", "variance_reason"}

	if tx := r.txManager.GetTx(ctx); tx != nil {
		inserter := postgres.NewBatchInserter(r.txManager)
		rows := make([][]any, 0, len(items))
		for _, it := range items {
			rows = append(rows, []any{it.LineID, countID, it.ItemID, it.CountedQty, it.VarianceReason})
		}
		if _, err := inserter.CopyFromSlice(ctx, stockCountLinesTable, columns, rows); err != nil {
			return fmt.Errorf("copy count lines: %w", err)
		}
		return nil
	}

	q := r.builder.Insert(stockCountLinesTable).Columns(columns...)
	for _, it := range items {
		q = q.Values(it.LineID, countID, it.ItemID, it.CountedQty, it.VarianceReason)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert lines: %w", err)
	}
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert lines: %w", err)
	}
	return nil
}

// UpsertItem records one counted line during a draft count session.
func (r *StockCountRepo) UpsertItem(ctx context.Context, countID id.ID, item stockcount.CountItem) error {
	sql := `
		INSERT INTO doc_stock_count_lines (
			line_id, document_id, item_id, counted_qty, variance_reason
		) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (document_id, item_id) DO UPDATE SET
			counted_qty = EXCLUDED.counted_qty,
			variance_reason = EXCLUDED.variance_reason
	`

	querier := r.txManager.GetQuerier(ctx)
	_, err := querier.Exec(ctx, sql, item.LineID, countID, item.ItemID, item.CountedQty, item.VarianceReason)
	if err != nil {
		return fmt.Errorf("upsert count line: %w", err)
	}
	return nil
}

func (r *StockCountRepo) List(ctx context.Context, businessID id.ID, branchID *id.ID, status *stockcount.Status, page, limit int) ([]stockcount.InventoryCount, int64, error) {
	q := r.builder.Select(stockCountColumns...).
		From(stockCountsTable).
		Where(squirrel.Eq{"business_id": businessID})

	if branchID != nil {
		q = q.Where(squirrel.Eq{"branch_id": *branchID})
	}
	if status != nil {
		q = q.Where(squirrel.Eq{"status": *status})
	}

	querier := r.txManager.GetQuerier(ctx)

	countQ := r.builder.Select("COUNT(*)").FromSelect(q, "sub")
	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count: %w", err)
	}
	var total int64
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count inventory counts: %w", err)
	}

	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if page < 1 {
		page = 1
	}
	q = q.OrderBy("created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64((page - 1) * limit))

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build query: %w", err)
	}

	var counts []stockcount.InventoryCount
	if err := pgxscan.Select(ctx, querier, &counts, sql, args...); err != nil {
		return nil, 0, fmt.Errorf("select inventory counts: %w", err)
	}
	return counts, total, nil
}

// Ensure interface compliance.
var _ stockcount.Repository = (*StockCountRepo)(nil)
