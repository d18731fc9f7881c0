package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"restock/internal/core/apperror"
	"restock/internal/core/id"
	"restock/internal/domain/documents/transfer"
	"restock/internal/infrastructure/storage/postgres"
)

const (
	transfersTable     = "doc_transfers"
	transferLinesTable = "doc_transfer_lines"
)

var transferColumns = []string{
	"id", "version", "created_at", "updated_at", "created_by",
	"from_business_id", "from_branch_id", "to_business_id", "to_branch_id",
	"number", "status", "notes",
}

// TransferRepo implements transfer.Repository.
type TransferRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewTransferRepo creates a new transfer repository.
func NewTransferRepo(txManager *postgres.TxManager) *TransferRepo {
	return &TransferRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *TransferRepo) Create(ctx context.Context, t *transfer.Transfer) error {
	q := r.builder.Insert(transfersTable).
		Columns(transferColumns...).
		Values(
			t.ID, t.Version, t.CreatedAt, t.UpdatedAt, t.CreatedBy,
			t.FromBusinessID, t.FromBranchID, t.ToBusinessID, t.ToBranchID,
			t.Number, t.Status, t.Notes,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert transfer: %w", err)
	}
	return nil
}

func (r *TransferRepo) Update(ctx context.Context, t *transfer.Transfer) error {
	q := r.builder.Update(transfersTable).
		Set("status", t.Status).
		Set("notes", t.Notes).
		Set("updated_at", t.UpdatedAt).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": t.ID, "version": t.Version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update transfer: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConflict("transfer was modified concurrently").
			WithDetail("id", t.ID.String())
	}
	t.Version++
	return nil
}

func (r *TransferRepo) GetByID(ctx context.Context, businessID, transferID id.ID) (*transfer.Transfer, error) {
	return r.get(ctx, businessID, transferID, false)
}

func (r *TransferRepo) GetForUpdate(ctx context.Context, businessID, transferID id.ID) (*transfer.Transfer, error) {
	return r.get(ctx, businessID, transferID, true)
}

// get scopes visibility to either end of the transfer.
func (r *TransferRepo) get(ctx context.Context, businessID, transferID id.ID, forUpdate bool) (*transfer.Transfer, error) {
	q := r.builder.Select(transferColumns...).
		From(transfersTable).
		Where(squirrel.Eq{"id": transferID}).
		Where(squirrel.Or{
			squirrel.Eq{"from_business_id": businessID},
			squirrel.Eq{"to_business_id": businessID},
		})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var t transfer.Transfer
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &t, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("transfer", transferID.String())
		}
		return nil, fmt.Errorf("get transfer: %w", err)
	}

	items, err := r.GetItems(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	t.Items = items
	return &t, nil
}

func (r *TransferRepo) GetItems(ctx context.Context, transferID id.ID) ([]transfer.TransferItem, error) {
	q := r.builder.Select("line_id", "line_no", "item_id", "quantity").
		From(transferLinesTable).
		Where(squirrel.Eq{"document_id": transferID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []transfer.TransferItem
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, fmt.Errorf("get transfer lines: %w", err)
	}
	return items, nil
}

func (r *TransferRepo) SaveItems(ctx context.Context, transferID id.ID, items []transfer.TransferItem) error {
	querier := r.txManager.GetQuerier(ctx)

	deleteSQL := "DELETE FROM " + transferLinesTable + " WHERE document_id = $1"
	if _, err := querier.Exec(ctx, deleteSQL, transferID); err != nil {
		return fmt.Errorf("delete existing lines: %w", err)
	}

	if len(items) == 0 {
		return nil
	}

	q := r.builder.Insert(transferLinesTable).
		Columns("line_id", "document_id", "line_no", "item_id", "quantity")
	for _, it := range items {
		q = q.Values(it.LineID, transferID, it.LineNo, it.ItemID, it.Quantity)
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

// List returns transfers where businessID is source or destination.
func (r *TransferRepo) List(ctx context.Context, businessID id.ID, branchID *id.ID, status *transfer.Status, page, limit int) ([]transfer.Transfer, int64, error) {
	q := r.builder.Select(transferColumns...).
		From(transfersTable).
		Where(squirrel.Or{
			squirrel.Eq{"from_business_id": businessID},
			squirrel.Eq{"to_business_id": businessID},
		})

	if branchID != nil {
		q = q.Where(squirrel.Or{
			squirrel.Eq{"from_branch_id": *branchID},
			squirrel.Eq{"to_branch_id": *branchID},
		})
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
		return nil, 0, fmt.Errorf("count transfers: %w", err)
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

	var transfers []transfer.Transfer
	if err := pgxscan.Select(ctx, querier, &transfers, sql, args...); err != nil {
		return nil, 0, fmt.Errorf("select transfers: %w", err)
	}
	return transfers, total, nil
}

// Ensure interface compliance.
var _ transfer.Repository = (*TransferRepo)(nil)
