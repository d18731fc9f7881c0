package item

import (
	"context"
	"testing"

	"restock/internal/core/actor"
	"restock/internal/core/apperror"
	"restock/internal/core/id"
	"restock/internal/domain/authz"
)

type mockItems struct {
	items map[id.ID]Item
}

func (m *mockItems) Get(ctx context.Context, businessID, itemID id.ID) (*Item, error) {
	it, ok := m.items[itemID]
	if !ok || it.BusinessID != businessID {
		return nil, apperror.NewNotFound("item", itemID)
	}
	return &it, nil
}

func (m *mockItems) GetMany(ctx context.Context, businessID id.ID, itemIDs []id.ID) (map[id.ID]Item, error) {
	out := make(map[id.ID]Item)
	for _, itemID := range itemIDs {
		if it, ok := m.items[itemID]; ok && it.BusinessID == businessID {
			out[itemID] = it
		}
	}
	return out, nil
}

func (m *mockItems) ListActive(ctx context.Context, businessID id.ID) ([]Item, error) {
	var out []Item
	for _, it := range m.items {
		if it.BusinessID == businessID && it.Active {
			out = append(out, it)
		}
	}
	return out, nil
}

type mockBarcodes struct {
	codes map[string]*Barcode // key = code
}

func newMockBarcodes() *mockBarcodes {
	return &mockBarcodes{codes: make(map[string]*Barcode)}
}

func (m *mockBarcodes) Insert(ctx context.Context, b *Barcode) error {
	m.codes[b.Code] = b
	return nil
}

func (m *mockBarcodes) DeleteByItem(ctx context.Context, businessID, itemID id.ID) error {
	for code, b := range m.codes {
		if b.BusinessID == businessID && b.ItemID == itemID {
			delete(m.codes, code)
		}
	}
	return nil
}

func (m *mockBarcodes) FindByCode(ctx context.Context, businessID id.ID, code string) (*Barcode, error) {
	b, ok := m.codes[code]
	if !ok || b.BusinessID != businessID {
		return nil, apperror.NewNotFound("barcode", code)
	}
	return b, nil
}

func (m *mockBarcodes) FindByItem(ctx context.Context, businessID, itemID id.ID) (*Barcode, error) {
	for _, b := range m.codes {
		if b.BusinessID == businessID && b.ItemID == itemID {
			return b, nil
		}
	}
	return nil, apperror.NewNotFound("barcode", itemID)
}

type passthroughTx struct{}

func (passthroughTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func actorCtx(businessID id.ID) context.Context {
	return actor.WithActor(context.Background(), &actor.Context{
		UserID:     id.New(),
		BusinessID: businessID,
		Role:       actor.RoleStaff,
	})
}

func seed(businessID id.ID) (*mockItems, Item) {
	it := Item{ID: id.New(), BusinessID: businessID, Name: "Tomato", Unit: "kg", Kind: KindRaw, Active: true}
	return &mockItems{items: map[id.ID]Item{it.ID: it}}, it
}

func TestAssociateAndLookup(t *testing.T) {
	businessID := id.New()
	items, it := seed(businessID)
	barcodes := newMockBarcodes()
	svc := NewService(items, barcodes, passthroughTx{}, authz.NewContextResolver())
	ctx := actorCtx(businessID)

	if _, err := svc.Associate(ctx, businessID, it.ID, " 4006381333931 "); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := svc.Lookup(ctx, businessID, "4006381333931")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != it.ID {
		t.Errorf("lookup returned wrong item: %v", got.ID)
	}
}

func TestAssociate_ConflictOnBoundCode(t *testing.T) {
	businessID := id.New()
	items, it := seed(businessID)
	other := Item{ID: id.New(), BusinessID: businessID, Name: "Onion", Unit: "kg", Kind: KindRaw, Active: true}
	items.items[other.ID] = other

	barcodes := newMockBarcodes()
	svc := NewService(items, barcodes, passthroughTx{}, authz.NewContextResolver())
	ctx := actorCtx(businessID)

	if _, err := svc.Associate(ctx, businessID, it.ID, "12345"); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	_, err := svc.Associate(ctx, businessID, other.ID, "12345")
	if !apperror.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestAssociate_Idempotent(t *testing.T) {
	businessID := id.New()
	items, it := seed(businessID)
	barcodes := newMockBarcodes()
	svc := NewService(items, barcodes, passthroughTx{}, authz.NewContextResolver())
	ctx := actorCtx(businessID)

	first, err := svc.Associate(ctx, businessID, it.ID, "777")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.Associate(ctx, businessID, it.ID, "777")
	if err != nil {
		t.Fatalf("re-associating same pair should succeed: %v", err)
	}
	if first.ID != second.ID {
		t.Error("expected the existing association to be returned")
	}
}

func TestAssociate_ReplacesOldCode(t *testing.T) {
	businessID := id.New()
	items, it := seed(businessID)
	barcodes := newMockBarcodes()
	svc := NewService(items, barcodes, passthroughTx{}, authz.NewContextResolver())
	ctx := actorCtx(businessID)

	if _, err := svc.Associate(ctx, businessID, it.ID, "old-code"); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if _, err := svc.Associate(ctx, businessID, it.ID, "new-code"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.Lookup(ctx, businessID, "old-code"); !apperror.IsNotFound(err) {
		t.Errorf("old code should be unbound, got %v", err)
	}
	if _, err := svc.Lookup(ctx, businessID, "new-code"); err != nil {
		t.Errorf("new code should resolve: %v", err)
	}
}

func TestLookup_UnknownCode(t *testing.T) {
	businessID := id.New()
	items, _ := seed(businessID)
	svc := NewService(items, newMockBarcodes(), passthroughTx{}, authz.NewContextResolver())

	_, err := svc.Lookup(actorCtx(businessID), businessID, "nope")
	if !apperror.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestLookup_ScopedPerBusiness(t *testing.T) {
	businessA, businessB := id.New(), id.New()
	itemsA, itA := seed(businessA)
	itB := Item{ID: id.New(), BusinessID: businessB, Name: "Tomato", Unit: "kg", Kind: KindRaw, Active: true}
	itemsA.items[itB.ID] = itB

	barcodes := newMockBarcodes()
	svc := NewService(itemsA, barcodes, passthroughTx{}, authz.NewContextResolver())

	if _, err := svc.Associate(actorCtx(businessA), businessA, itA.ID, "555"); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	// Same code in business B is not visible.
	_, err := svc.Lookup(actorCtx(businessB), businessB, "555")
	if !apperror.IsNotFound(err) {
		t.Fatalf("expected not found across businesses, got %v", err)
	}
}
