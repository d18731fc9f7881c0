// Package document_repo provides PostgreSQL implementations for the
// workflow document repositories.
package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"restock/internal/core/apperror"
	"restock/internal/core/id"
	"restock/internal/domain/documents/purchaseorder"
	"restock/internal/infrastructure/storage/postgres"
)

const (
	purchaseOrdersTable     = "doc_purchase_orders"
	purchaseOrderLinesTable = "doc_purchase_order_lines"
)

var purchaseOrderColumns = []string{
	"id", "version", "created_at", "updated_at", "created_by",
	"business_id", "branch_id", "vendor_id",
	"number", "status", "expected_date", "invoice_image_url", "notes",
}

// PurchaseOrderRepo implements purchaseorder.Repository.
type PurchaseOrderRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewPurchaseOrderRepo creates a new purchase order repository.
func NewPurchaseOrderRepo(txManager *postgres.TxManager) *PurchaseOrderRepo {
	return &PurchaseOrderRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *PurchaseOrderRepo) Create(ctx context.Context, order *purchaseorder.PurchaseOrder) error {
	q := r.builder.Insert(purchaseOrdersTable).
		Columns(purchaseOrderColumns...).
		Values(
			order.ID, order.Version, order.CreatedAt, order.UpdatedAt, order.CreatedBy,
			order.BusinessID, order.BranchID, order.VendorID,
			order.Number, order.Status, order.ExpectedDate, order.InvoiceImageURL, order.Notes,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert purchase order: %w", err)
	}
	return nil
}

// Update writes the header with an optimistic version check.
func (r *PurchaseOrderRepo) Update(ctx context.Context, order *purchaseorder.PurchaseOrder) error {
	q := r.builder.Update(purchaseOrdersTable).
		Set("vendor_id", order.VendorID).
		Set("status", order.Status).
		Set("expected_date", order.ExpectedDate).
		Set("invoice_image_url", order.InvoiceImageURL).
		Set("notes", order.Notes).
		Set("updated_at", order.UpdatedAt).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{
			"id":          order.ID,
			"business_id": order.BusinessID,
			"version":     order.Version,
		})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update purchase order: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConflict("purchase order was modified concurrently").
			WithDetail("id", order.ID.String())
	}
	order.Version++
	return nil
}

func (r *PurchaseOrderRepo) GetByID(ctx context.Context, businessID, orderID id.ID) (*purchaseorder.PurchaseOrder, error) {
	return r.get(ctx, businessID, orderID, false)
}

func (r *PurchaseOrderRepo) GetForUpdate(ctx context.Context, businessID, orderID id.ID) (*purchaseorder.PurchaseOrder, error) {
	return r.get(ctx, businessID, orderID, true)
}

func (r *PurchaseOrderRepo) get(ctx context.Context, businessID, orderID id.ID, forUpdate bool) (*purchaseorder.PurchaseOrder, error) {
	q := r.builder.Select(purchaseOrderColumns...).
		From(purchaseOrdersTable).
		Where(squirrel.Eq{"id": orderID, "business_id": businessID})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var order purchaseorder.PurchaseOrder
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &order, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("purchase order", orderID.String())
		}
		return nil, fmt.Errorf("get purchase order: %w", err)
	}

	items, err := r.GetItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return &order, nil
}

func (r *PurchaseOrderRepo) GetItems(ctx context.Context, orderID id.ID) ([]purchaseorder.OrderItem, error) {
	q := r.builder.Select(
		"line_id", "line_no", "item_id",
		"ordered_qty", "counted_qty", "received_qty",
		"unit_cost", "total_cost",
		"variance_reason", "variance_note", "barcode_scanned",
	).From(purchaseOrderLinesTable).
		Where(squirrel.Eq{"document_id": orderID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []purchaseorder.OrderItem
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, fmt.Errorf("get order lines: %w", err)
	}
	return items, nil
}

// SaveItems replaces the order lines (delete existing + insert new).
func (r *PurchaseOrderRepo) SaveItems(ctx context.Context, orderID id.ID, items []purchaseorder.OrderItem) error {
	querier := r.txManager.GetQuerier(ctx)

	deleteSQL := "DELETE FROM " + purchaseOrderLinesTable + " WHERE document_id = $1"
	if _, err := querier.Exec(ctx, deleteSQL, orderID); err != nil {
		return fmt.Errorf("delete existing lines: %w", err)
	}

	if len(items) == 0 {
		return nil
	}

	q := r.builder.Insert(purchaseOrderLinesTable).
		Columns(
			"line_id", "document_id", "line_no", "item_id",
			"ordered_qty", "counted_qty", "received_qty",
			"unit_cost", "total_cost",
			"variance_reason", "variance_note", "barcode_scanned",
		)
	for _, it := range items {
		q = q.Values(
			it.LineID, orderID, it.LineNo, it.ItemID,
			it.OrderedQty, it.CountedQty, it.ReceivedQty,
			it.UnitCost, it.TotalCost,
			it.VarianceReason, it.VarianceNote, it.BarcodeScanned,
		)
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

// List returns one page of order headers plus the total match count.
// Lines are not loaded for listings.
func (r *PurchaseOrderRepo) List(ctx context.Context, filter purchaseorder.ListFilter) ([]purchaseorder.PurchaseOrder, int64, error) {
	q := r.builder.Select(purchaseOrderColumns...).
		From(purchaseOrdersTable).
		Where(squirrel.Eq{"business_id": filter.BusinessID})

	if filter.BranchID != nil {
		q = q.Where(squirrel.Eq{"branch_id": *filter.BranchID})
	}
	if filter.VendorID != nil {
		q = q.Where(squirrel.Eq{"vendor_id": *filter.VendorID})
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"created_at": *filter.DateTo})
	}

	querier := r.txManager.GetQuerier(ctx)

	countQ := r.builder.Select("COUNT(*)").FromSelect(q, "sub")
	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count: %w", err)
	}
	var total int64
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	q = q.OrderBy("created_at DESC").
		Limit(uint64(filter.PageSize())).
		Offset(uint64(filter.Offset()))

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build query: %w", err)
	}

	var orders []purchaseorder.PurchaseOrder
	if err := pgxscan.Select(ctx, querier, &orders, sql, args...); err != nil {
		return nil, 0, fmt.Errorf("select orders: %w", err)
	}
	return orders, total, nil
}

// HasOpenOrders backs the vendor deletion guard.
func (r *PurchaseOrderRepo) HasOpenOrders(ctx context.Context, businessID, vendorID id.ID) (bool, error) {
	sql := `
		SELECT 1 FROM doc_purchase_orders
		WHERE business_id = $1 AND vendor_id = $2
		  AND status NOT IN ('received', 'cancelled')
		LIMIT 1
	`

	var one int
	querier := r.txManager.GetQuerier(ctx)
	err := querier.QueryRow(ctx, sql, businessID, vendorID).Scan(&one)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check open orders: %w", err)
	}
	return true, nil
}

// Ensure interface compliance.
var _ purchaseorder.Repository = (*PurchaseOrderRepo)(nil)
