// Package ledger_repo provides the PostgreSQL implementation of the
// stock ledger repository.
package ledger_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"restock/internal/core/id"
	"restock/internal/core/types"
	"restock/internal/domain/ledger"
	"restock/internal/infrastructure/storage/postgres"
)

const (
	levelsTable    = "stock_levels"
	movementsTable = "stock_movements"
)

// LedgerRepo implements ledger.Repository.
type LedgerRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewLedgerRepo creates a new stock ledger repository.
func NewLedgerRepo(txManager *postgres.TxManager) *LedgerRepo {
	return &LedgerRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetLevel returns the current level, zero-valued when no row exists.
func (r *LedgerRepo) GetLevel(ctx context.Context, key ledger.StockKey) (ledger.StockLevel, error) {
	var level ledger.StockLevel

	q := r.builder.Select(
		"business_id", "branch_id", "item_id",
		"quantity", "min_threshold", "max_threshold",
		"last_movement_at", "updated_at",
	).From(levelsTable).
		Where(squirrel.Eq{
			"business_id": key.BusinessID,
			"branch_id":   key.BranchID,
			"item_id":     key.ItemID,
		}).Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return level, fmt.Errorf("build query: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &level, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return ledger.StockLevel{StockKey: key}, nil
		}
		return level, fmt.Errorf("get level: %w", err)
	}
	return level, nil
}

// GetLevelForUpdate returns the level with a pessimistic lock. The
// lock serializes concurrent writers on the same key; a missing row
// returns a zero level and the caller's upsert claims the key.
func (r *LedgerRepo) GetLevelForUpdate(ctx context.Context, key ledger.StockKey) (ledger.StockLevel, error) {
	var level ledger.StockLevel

	sql := `
		SELECT business_id, branch_id, item_id,
		       quantity, min_threshold, max_threshold,
		       last_movement_at, updated_at
		FROM stock_levels
		WHERE business_id = $1 AND branch_id = $2 AND item_id = $3
		FOR UPDATE
	`

	querier := r.txManager.GetQuerier(ctx)
	err := pgxscan.Get(ctx, querier, &level, sql, key.BusinessID, key.BranchID, key.ItemID)
	if err != nil {
		if pgxscan.NotFound(err) {
			return ledger.StockLevel{StockKey: key}, nil
		}
		return level, fmt.Errorf("get level for update: %w", err)
	}
	return level, nil
}

// UpsertLevel writes the materialized level for a key.
func (r *LedgerRepo) UpsertLevel(ctx context.Context, level ledger.StockLevel) error {
	sql := `
		INSERT INTO stock_levels (
			business_id, branch_id, item_id,
			quantity, last_movement_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (business_id, branch_id, item_id) DO UPDATE SET
			quantity = EXCLUDED.quantity,
			last_movement_at = EXCLUDED.last_movement_at,
			updated_at = EXCLUDED.updated_at
	`

	querier := r.txManager.GetQuerier(ctx)
	_, err := querier.Exec(ctx, sql,
		level.BusinessID, level.BranchID, level.ItemID,
		level.Quantity, level.LastMovementAt, level.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert level: %w", err)
	}
	return nil
}

// SetThresholds updates min/max thresholds, creating the row lazily.
func (r *LedgerRepo) SetThresholds(ctx context.Context, key ledger.StockKey, min, max *types.Quantity) error {
	sql := `
		INSERT INTO stock_levels (
			business_id, branch_id, item_id,
			quantity, min_threshold, max_threshold, updated_at
		) VALUES ($1, $2, $3, 0, $4, $5, now())
		ON CONFLICT (business_id, branch_id, item_id) DO UPDATE SET
			min_threshold = EXCLUDED.min_threshold,
			max_threshold = EXCLUDED.max_threshold,
			updated_at = now()
	`

	querier := r.txManager.GetQuerier(ctx)
	_, err := querier.Exec(ctx, sql, key.BusinessID, key.BranchID, key.ItemID, min, max)
	if err != nil {
		return fmt.Errorf("set thresholds: %w", err)
	}
	return nil
}

// ListLevels returns levels for a branch.
func (r *LedgerRepo) ListLevels(ctx context.Context, businessID, branchID id.ID, excludeZero bool) ([]ledger.StockLevel, error) {
	q := r.builder.Select(
		"business_id", "branch_id", "item_id",
		"quantity", "min_threshold", "max_threshold",
		"last_movement_at", "updated_at",
	).From(levelsTable).
		Where(squirrel.Eq{
			"business_id": businessID,
			"branch_id":   branchID,
		})

	if excludeZero {
		q = q.Where(squirrel.NotEq{"quantity": int64(0)})
	}
	q = q.OrderBy("item_id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var levels []ledger.StockLevel
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &levels, sql, args...); err != nil {
		return nil, fmt.Errorf("select levels: %w", err)
	}
	return levels, nil
}

// InsertMovements appends movements. Inside a transaction the COPY
// protocol is used; count completions can produce large batches.
func (r *LedgerRepo) InsertMovements(ctx context.Context, movements []ledger.Movement) error {
	if len(movements) == 0 {
		return nil
	}

	columns := []string{
		"id", "business_id", "branch_id", "item_id",
		"quantity_delta", "transaction_type", "reference_type", "reference_id",
		"performed_by", "notes", "created_at",
	}

	if tx := r.txManager.GetTx(ctx); tx != nil {
		inserter := postgres.NewBatchInserter(r.txManager)
		rows := make([][]any, 0, len(movements))
		for _, m := range movements {
			rows = append(rows, []any{
				m.ID, m.BusinessID, m.BranchID, m.ItemID,
				m.QuantityDelta, m.Type, m.ReferenceType, m.ReferenceID,
				m.PerformedBy, m.Notes, m.CreatedAt,
			})
		}
		if _, err := inserter.CopyFromSlice(ctx, movementsTable, columns, rows); err != nil {
			return fmt.Errorf("copy movements: %w", err)
		}
		return nil
	}

	q := r.builder.Insert(movementsTable).Columns(columns...)
	for _, m := range movements {
		q = q.Values(
			m.ID, m.BusinessID, m.BranchID, m.ItemID,
			m.QuantityDelta, m.Type, m.ReferenceType, m.ReferenceID,
			m.PerformedBy, m.Notes, m.CreatedAt,
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert movements: %w", err)
	}
	return nil
}

// ListMovements returns one page of the movement log plus the total
// match count.
func (r *LedgerRepo) ListMovements(ctx context.Context, filter ledger.MovementFilter) ([]ledger.Movement, int64, error) {
	where := squirrel.And{squirrel.Eq{"business_id": filter.BusinessID}}
	if filter.BranchID != nil {
		where = append(where, squirrel.Eq{"branch_id": *filter.BranchID})
	}
	if filter.ItemID != nil {
		where = append(where, squirrel.Eq{"item_id": *filter.ItemID})
	}
	if filter.Type != nil {
		where = append(where, squirrel.Eq{"transaction_type": *filter.Type})
	}
	if filter.ReferenceType != nil {
		where = append(where, squirrel.Eq{"reference_type": *filter.ReferenceType})
	}
	if filter.ReferenceID != nil {
		where = append(where, squirrel.Eq{"reference_id": *filter.ReferenceID})
	}
	if filter.FromDate != nil {
		where = append(where, squirrel.GtOrEq{"created_at": *filter.FromDate})
	}
	if filter.ToDate != nil {
		where = append(where, squirrel.LtOrEq{"created_at": *filter.ToDate})
	}

	querier := r.txManager.GetQuerier(ctx)

	countSQL, countArgs, err := r.builder.Select("COUNT(*)").From(movementsTable).Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count: %w", err)
	}
	var total int64
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count movements: %w", err)
	}

	q := r.builder.Select(
		"id", "business_id", "branch_id", "item_id",
		"quantity_delta", "transaction_type", "reference_type", "reference_id",
		"performed_by", "notes", "created_at",
	).From(movementsTable).
		Where(where).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(filter.PageSize())).
		Offset(uint64(filter.Offset()))

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build query: %w", err)
	}

	var movements []ledger.Movement
	if err := pgxscan.Select(ctx, querier, &movements, sql, args...); err != nil {
		return nil, 0, fmt.Errorf("select movements: %w", err)
	}
	return movements, total, nil
}

// SumMovements recomputes the running sum for a key. Audit use only.
func (r *LedgerRepo) SumMovements(ctx context.Context, key ledger.StockKey) (types.Quantity, error) {
	sql := `
		SELECT COALESCE(SUM(quantity_delta), 0)
		FROM stock_movements
		WHERE business_id = $1 AND branch_id = $2 AND item_id = $3
	`

	var sumScaled int64
	querier := r.txManager.GetQuerier(ctx)
	err := querier.QueryRow(ctx, sql, key.BusinessID, key.BranchID, key.ItemID).Scan(&sumScaled)
	if err != nil && err != pgx.ErrNoRows {
		return 0, fmt.Errorf("sum movements: %w", err)
	}
	return types.NewQuantityFromInt64Scaled(sumScaled), nil
}

// Stats aggregates movement counts and totals by transaction type.
func (r *LedgerRepo) Stats(ctx context.Context, businessID id.ID, branchID *id.ID) ([]ledger.TypeCount, error) {
	q := r.builder.Select(
		"transaction_type",
		"COUNT(*) AS count",
		"COALESCE(SUM(quantity_delta), 0) AS total",
	).From(movementsTable).
		Where(squirrel.Eq{"business_id": businessID})

	if branchID != nil {
		q = q.Where(squirrel.Eq{"branch_id": *branchID})
	}
	q = q.GroupBy("transaction_type").OrderBy("transaction_type")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var counts []ledger.TypeCount
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &counts, sql, args...); err != nil {
		return nil, fmt.Errorf("select stats: %w", err)
	}
	return counts, nil
}

// Ensure interface compliance.
var _ ledger.Repository = (*LedgerRepo)(nil)
