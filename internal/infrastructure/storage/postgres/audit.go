package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	"restock/internal/core/actor"
	"restock/internal/core/id"
	"restock/internal/domain/audit"
)

// Compile-time check that AuditService implements audit.Recorder.
var _ audit.Recorder = (*AuditService)(nil)

// AuditService persists workflow audit entries. Snapshots above the
// threshold are zstd-compressed before storage.
type AuditService struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int // bytes
}

// NewAuditService creates a new audit service.
func NewAuditService(txManager *TxManager) (*AuditService, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &AuditService{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: 4 * 1024,
	}, nil
}

// Record implements audit.Recorder.
func (s *AuditService) Record(ctx context.Context, businessID id.ID, entityType string, entityID id.ID, action audit.Action, snapshot any) error {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	compressed := false
	if len(raw) > s.compressThreshold {
		raw = s.encoder.EncodeAll(raw, nil)
		compressed = true
	}

	entry := audit.Entry{
		ID:          id.New(),
		BusinessID:  businessID,
		EntityType:  entityType,
		EntityID:    entityID,
		Action:      action,
		PerformedBy: actor.UserID(ctx),
		Snapshot:    raw,
		CreatedAt:   time.Now().UTC(),
	}

	sql := `
		INSERT INTO sys_audit (
			id, business_id, entity_type, entity_id, action,
			performed_by, snapshot, compressed, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = s.txManager.GetQuerier(ctx).Exec(ctx, sql,
		entry.ID, entry.BusinessID, entry.EntityType, entry.EntityID, entry.Action,
		entry.PerformedBy, entry.Snapshot, compressed, entry.CreatedAt,
	)
	return err
}

// History retrieves audit entries for an entity, newest first.
// Compressed snapshots are inflated before return.
func (s *AuditService) History(ctx context.Context, businessID id.ID, entityType string, entityID id.ID, limit int) ([]audit.Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	sql := `
		SELECT id, business_id, entity_type, entity_id, action,
			   performed_by, snapshot, compressed, created_at
		FROM sys_audit
		WHERE business_id = $1 AND entity_type = $2 AND entity_id = $3
		ORDER BY created_at DESC
		LIMIT $4
	`

	rows, err := s.txManager.GetQuerier(ctx).Query(ctx, sql, businessID, entityType, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var e audit.Entry
		var compressed bool
		err := rows.Scan(
			&e.ID, &e.BusinessID, &e.EntityType, &e.EntityID, &e.Action,
			&e.PerformedBy, &e.Snapshot, &compressed, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}

		if compressed && len(e.Snapshot) > 0 {
			inflated, err := s.decoder.DecodeAll(e.Snapshot, nil)
			if err != nil {
				return nil, fmt.Errorf("decompress snapshot: %w", err)
			}
			e.Snapshot = inflated
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
