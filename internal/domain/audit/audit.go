// Package audit records workflow actions for later review. Entries
// carry a compressed snapshot of the document at the time of the
// action.
package audit

import (
	"context"
	"time"

	"restock/internal/core/id"
)

// Action names what happened to a document.
type Action string

const (
	ActionCreate   Action = "create"
	ActionUpdate   Action = "update"
	ActionCount    Action = "count"
	ActionReceive  Action = "receive"
	ActionCancel   Action = "cancel"
	ActionComplete Action = "complete"
)

// Entry is one recorded workflow action.
type Entry struct {
	ID          id.ID     `db:"id"`
	BusinessID  id.ID     `db:"business_id"`
	EntityType  string    `db:"entity_type"`
	EntityID    id.ID     `db:"entity_id"`
	Action      Action    `db:"action"`
	PerformedBy id.ID     `db:"performed_by"`
	Snapshot    []byte    `db:"snapshot"` // zstd-compressed JSON
	CreatedAt   time.Time `db:"created_at"`
}

// Recorder persists audit entries. Failures are logged by callers and
// never abort the recorded operation.
type Recorder interface {
	Record(ctx context.Context, businessID id.ID, entityType string, entityID id.ID, action Action, snapshot any) error
}

// NopRecorder discards entries. Used in tests and when auditing is
// disabled.
type NopRecorder struct{}

var _ Recorder = (*NopRecorder)(nil)

func (NopRecorder) Record(ctx context.Context, businessID id.ID, entityType string, entityID id.ID, action Action, snapshot any) error {
	return nil
}
