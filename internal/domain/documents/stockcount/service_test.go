package stockcount

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"

	"restock/internal/core/actor"
	"restock/internal/core/apperror"
	"restock/internal/core/id"
	"restock/internal/core/types"
	"restock/internal/domain/authz"
	"restock/internal/domain/catalogs/item"
	"restock/internal/domain/ledger"
	"restock/pkg/numerator"
)

type mockRepo struct {
	counts map[id.ID]*InventoryCount
}

func newMockRepo() *mockRepo {
	return &mockRepo{counts: make(map[id.ID]*InventoryCount)}
}

func (m *mockRepo) clone(c *InventoryCount) *InventoryCount {
	cp := *c
	cp.Items = make([]CountItem, len(c.Items))
	copy(cp.Items, c.Items)
	return &cp
}

func (m *mockRepo) Create(ctx context.Context, c *InventoryCount) error {
	m.counts[c.ID] = m.clone(c)
	return nil
}

func (m *mockRepo) Update(ctx context.Context, c *InventoryCount) error {
	stored, ok := m.counts[c.ID]
	if !ok {
		return apperror.NewNotFound("inventory_count", c.ID)
	}
	items := stored.Items
	m.counts[c.ID] = m.clone(c)
	m.counts[c.ID].Items = items
	return nil
}

func (m *mockRepo) GetByID(ctx context.Context, businessID, countID id.ID) (*InventoryCount, error) {
	c, ok := m.counts[countID]
	if !ok || c.BusinessID != businessID {
		return nil, apperror.NewNotFound("inventory_count", countID)
	}
	return m.clone(c), nil
}

func (m *mockRepo) GetForUpdate(ctx context.Context, businessID, countID id.ID) (*InventoryCount, error) {
	return m.GetByID(ctx, businessID, countID)
}

func (m *mockRepo) GetItems(ctx context.Context, countID id.ID) ([]CountItem, error) {
	c, ok := m.counts[countID]
	if !ok {
		return nil, apperror.NewNotFound("inventory_count", countID)
	}
	return c.Items, nil
}

func (m *mockRepo) SaveItems(ctx context.Context, countID id.ID, items []CountItem) error {
	c, ok := m.counts[countID]
	if !ok {
		return apperror.NewNotFound("inventory_count", countID)
	}
	c.Items = make([]CountItem, len(items))
	copy(c.Items, items)
	return nil
}

func (m *mockRepo) UpsertItem(ctx context.Context, countID id.ID, it CountItem) error {
	c, ok := m.counts[countID]
	if !ok {
		return apperror.NewNotFound("inventory_count", countID)
	}
	for i := range c.Items {
		if c.Items[i].ItemID == it.ItemID {
			c.Items[i] = it
			return nil
		}
	}
	c.Items = append(c.Items, it)
	return nil
}

func (m *mockRepo) List(ctx context.Context, businessID id.ID, branchID *id.ID, status *Status, page, limit int) ([]InventoryCount, int64, error) {
	var out []InventoryCount
	for _, c := range m.counts {
		if c.BusinessID != businessID {
			continue
		}
		if status != nil && c.Status != *status {
			continue
		}
		out = append(out, *m.clone(c))
	}
	return out, int64(len(out)), nil
}

// mockLedger tracks levels in memory so completion deltas are
// observable. onLock, when set, runs before a locked read returns,
// standing in for a concurrent writer that commits first.
type mockLedger struct {
	levels  map[ledger.StockKey]types.Quantity
	changes []ledger.Change
	onLock  func(key ledger.StockKey)
}

func (m *mockLedger) LevelForUpdate(ctx context.Context, key ledger.StockKey) (ledger.StockLevel, error) {
	if m.onLock != nil {
		m.onLock(key)
	}
	return ledger.StockLevel{StockKey: key, Quantity: m.levels[key]}, nil
}

func (m *mockLedger) ApplyAll(ctx context.Context, changes []ledger.Change) ([]types.Quantity, error) {
	out := make([]types.Quantity, len(changes))
	for i, c := range changes {
		m.levels[c.Key] += c.Delta
		out[i] = m.levels[c.Key]
	}
	m.changes = append(m.changes, changes...)
	return out, nil
}

type mockItems struct {
	items map[id.ID]item.Item
}

func (m *mockItems) Get(ctx context.Context, businessID, itemID id.ID) (*item.Item, error) {
	it, ok := m.items[itemID]
	if !ok || it.BusinessID != businessID {
		return nil, apperror.NewNotFound("item", itemID)
	}
	return &it, nil
}

func (m *mockItems) GetMany(ctx context.Context, businessID id.ID, itemIDs []id.ID) (map[id.ID]item.Item, error) {
	out := make(map[id.ID]item.Item)
	for _, itemID := range itemIDs {
		if it, ok := m.items[itemID]; ok && it.BusinessID == businessID {
			out[itemID] = it
		}
	}
	return out, nil
}

func (m *mockItems) ListActive(ctx context.Context, businessID id.ID) ([]item.Item, error) {
	var out []item.Item
	for _, it := range m.items {
		if it.BusinessID == businessID && it.Active {
			out = append(out, it)
		}
	}
	return out, nil
}

type seqRow struct{ val int64 }

func (r *seqRow) Scan(dest ...any) error {
	if ptr, ok := dest[0].(*int64); ok {
		*ptr = r.val
	}
	return nil
}

type seqQuerier struct{ n int64 }

func (q *seqQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	q.n++
	return &seqRow{val: q.n}
}

type passthroughTx struct{}

func (passthroughTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func qty(f float64) types.Quantity {
	return types.NewQuantityFromFloat64(f)
}

type fixture struct {
	svc      *Service
	led      *mockLedger
	business id.ID
	branch   id.ID
	itemA    id.ID
	itemB    id.ID
}

func newFixture() *fixture {
	f := &fixture{
		business: id.New(),
		branch:   id.New(),
		itemA:    id.New(),
		itemB:    id.New(),
	}

	items := &mockItems{items: map[id.ID]item.Item{
		f.itemA: {ID: f.itemA, BusinessID: f.business, Name: "Flour", Unit: "kg", Kind: item.KindRaw, Active: true},
		f.itemB: {ID: f.itemB, BusinessID: f.business, Name: "Sugar", Unit: "kg", Kind: item.KindRaw, Active: true},
	}}

	f.led = &mockLedger{levels: map[ledger.StockKey]types.Quantity{
		{BusinessID: f.business, BranchID: f.branch, ItemID: f.itemA}: qty(10),
		{BusinessID: f.business, BranchID: f.branch, ItemID: f.itemB}: qty(5),
	}}

	f.svc = NewService(
		newMockRepo(),
		f.led,
		items,
		numerator.New(&seqQuerier{}),
		passthroughTx{},
		authz.NewContextResolver(),
		nil,
	)
	return f
}

func (f *fixture) ctx() context.Context {
	return actor.WithActor(context.Background(), &actor.Context{
		UserID:     id.New(),
		BusinessID: f.business,
		Role:       actor.RoleManager,
	})
}

func TestCreate_FullSpansAllItems(t *testing.T) {
	f := newFixture()

	c, err := f.svc.Create(f.ctx(), f.business, f.branch, id.New(), CountFull, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Status != StatusDraft {
		t.Errorf("expected draft, got %s", c.Status)
	}
	if c.Number == "" {
		t.Error("expected generated number")
	}
	if len(c.Items) != 2 {
		t.Errorf("expected full item set, got %d items", len(c.Items))
	}
}

func TestCreate_ScopedSubset(t *testing.T) {
	f := newFixture()

	c, err := f.svc.Create(f.ctx(), f.business, f.branch, id.New(), CountSpot, []id.ID{f.itemA})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(c.Items) != 1 || c.Items[0].ItemID != f.itemA {
		t.Errorf("expected single scoped item, got %v", c.Items)
	}
}

func TestCreate_UnknownItem(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Create(f.ctx(), f.business, f.branch, id.New(), CountSpot, []id.ID{id.New()})
	if !apperror.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateItem_DraftOnly(t *testing.T) {
	f := newFixture()
	ctx := f.ctx()
	c, _ := f.svc.Create(ctx, f.business, f.branch, id.New(), CountSpot, []id.ID{f.itemA})

	got, err := f.svc.UpdateItem(ctx, f.business, c.ID, f.itemA, qty(8), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	line := got.Item(f.itemA)
	if line.CountedQty == nil || *line.CountedQty != qty(8) {
		t.Errorf("counted quantity not stored: %v", line.CountedQty)
	}

	if _, err := f.svc.Complete(ctx, f.business, c.ID); err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	_, err = f.svc.UpdateItem(ctx, f.business, c.ID, f.itemA, qty(9), nil)
	if !apperror.IsInvalidStateTransition(err) {
		t.Fatalf("expected invalid state transition, got %v", err)
	}
}

func TestUpdateItem_AddsUnseededItem(t *testing.T) {
	f := newFixture()
	ctx := f.ctx()
	c, _ := f.svc.Create(ctx, f.business, f.branch, id.New(), CountSpot, []id.ID{f.itemA})

	got, err := f.svc.UpdateItem(ctx, f.business, c.ID, f.itemB, qty(3), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Item(f.itemB) == nil {
		t.Error("expected item B added to draft")
	}
}

func TestComplete_AdjustsOnlyDiffering(t *testing.T) {
	f := newFixture()
	ctx := f.ctx()
	c, _ := f.svc.Create(ctx, f.business, f.branch, id.New(), CountFull, nil)

	// Item A counted short, item B matches the ledger exactly.
	if _, err := f.svc.UpdateItem(ctx, f.business, c.ID, f.itemA, qty(7), nil); err != nil {
		t.Fatalf("update item failed: %v", err)
	}
	if _, err := f.svc.UpdateItem(ctx, f.business, c.ID, f.itemB, qty(5), nil); err != nil {
		t.Fatalf("update item failed: %v", err)
	}

	got, err := f.svc.Complete(ctx, f.business, c.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != StatusCompleted || got.CompletedAt == nil {
		t.Errorf("expected completed with timestamp, got %s", got.Status)
	}

	if len(f.led.changes) != 1 {
		t.Fatalf("expected 1 adjustment, got %d", len(f.led.changes))
	}
	change := f.led.changes[0]
	if change.Type != ledger.TypeCountAdjustment || change.Key.ItemID != f.itemA {
		t.Errorf("unexpected adjustment: %+v", change)
	}
	if change.Delta != qty(-3) {
		t.Errorf("expected delta -3, got %s", change.Delta)
	}

	key := ledger.StockKey{BusinessID: f.business, BranchID: f.branch, ItemID: f.itemA}
	if f.led.levels[key] != qty(7) {
		t.Errorf("expected level 7 after adjustment, got %s", f.led.levels[key])
	}
}

func TestComplete_DeltaFromLockedLevel(t *testing.T) {
	f := newFixture()
	ctx := f.ctx()
	c, _ := f.svc.Create(ctx, f.business, f.branch, id.New(), CountSpot, []id.ID{f.itemA})
	if _, err := f.svc.UpdateItem(ctx, f.business, c.ID, f.itemA, qty(7), nil); err != nil {
		t.Fatalf("update item failed: %v", err)
	}

	// A receipt commits just before completion acquires the row lock.
	// The delta must be computed against the post-receipt quantity so
	// the level lands exactly on the counted value.
	key := ledger.StockKey{BusinessID: f.business, BranchID: f.branch, ItemID: f.itemA}
	f.led.onLock = func(k ledger.StockKey) {
		if k == key {
			f.led.levels[k] += qty(2)
			f.led.onLock = nil
		}
	}

	if _, err := f.svc.Complete(ctx, f.business, c.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.led.changes) != 1 {
		t.Fatalf("expected 1 adjustment, got %d", len(f.led.changes))
	}
	if f.led.changes[0].Delta != qty(-5) {
		t.Errorf("expected delta -5 against the locked level, got %s", f.led.changes[0].Delta)
	}
	if f.led.levels[key] != qty(7) {
		t.Errorf("expected level 7 after completion, got %s", f.led.levels[key])
	}
}

func TestComplete_SkipsUncountedItems(t *testing.T) {
	f := newFixture()
	ctx := f.ctx()
	c, _ := f.svc.Create(ctx, f.business, f.branch, id.New(), CountFull, nil)

	// Nothing counted: completion emits no adjustments at all.
	if _, err := f.svc.Complete(ctx, f.business, c.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.led.changes) != 0 {
		t.Errorf("expected no adjustments, got %d", len(f.led.changes))
	}
}

func TestComplete_Idempotent(t *testing.T) {
	f := newFixture()
	ctx := f.ctx()
	c, _ := f.svc.Create(ctx, f.business, f.branch, id.New(), CountSpot, []id.ID{f.itemA})
	if _, err := f.svc.UpdateItem(ctx, f.business, c.ID, f.itemA, qty(12), nil); err != nil {
		t.Fatalf("update item failed: %v", err)
	}

	if _, err := f.svc.Complete(ctx, f.business, c.ID); err != nil {
		t.Fatalf("first complete failed: %v", err)
	}
	before := len(f.led.changes)

	_, err := f.svc.Complete(ctx, f.business, c.ID)
	if !apperror.IsInvalidStateTransition(err) {
		t.Fatalf("expected invalid state transition on retry, got %v", err)
	}
	if len(f.led.changes) != before {
		t.Error("retry must not double-apply adjustments")
	}
}
