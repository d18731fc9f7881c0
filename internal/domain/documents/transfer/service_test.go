package transfer

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"

	"restock/internal/core/actor"
	"restock/internal/core/apperror"
	"restock/internal/core/id"
	"restock/internal/core/types"
	"restock/internal/domain/authz"
	"restock/internal/domain/catalogs/branch"
	"restock/internal/domain/ledger"
	"restock/pkg/numerator"
)

type mockRepo struct {
	transfers map[id.ID]*Transfer
}

func newMockRepo() *mockRepo {
	return &mockRepo{transfers: make(map[id.ID]*Transfer)}
}

func (m *mockRepo) clone(t *Transfer) *Transfer {
	cp := *t
	cp.Items = make([]TransferItem, len(t.Items))
	copy(cp.Items, t.Items)
	return &cp
}

func (m *mockRepo) Create(ctx context.Context, t *Transfer) error {
	m.transfers[t.ID] = m.clone(t)
	return nil
}

func (m *mockRepo) Update(ctx context.Context, t *Transfer) error {
	stored, ok := m.transfers[t.ID]
	if !ok {
		return apperror.NewNotFound("transfer", t.ID)
	}
	items := stored.Items
	m.transfers[t.ID] = m.clone(t)
	m.transfers[t.ID].Items = items
	return nil
}

func (m *mockRepo) GetByID(ctx context.Context, businessID, transferID id.ID) (*Transfer, error) {
	t, ok := m.transfers[transferID]
	if !ok || (t.FromBusinessID != businessID && t.ToBusinessID != businessID) {
		return nil, apperror.NewNotFound("transfer", transferID)
	}
	return m.clone(t), nil
}

func (m *mockRepo) GetForUpdate(ctx context.Context, businessID, transferID id.ID) (*Transfer, error) {
	return m.GetByID(ctx, businessID, transferID)
}

func (m *mockRepo) GetItems(ctx context.Context, transferID id.ID) ([]TransferItem, error) {
	t, ok := m.transfers[transferID]
	if !ok {
		return nil, apperror.NewNotFound("transfer", transferID)
	}
	return t.Items, nil
}

func (m *mockRepo) SaveItems(ctx context.Context, transferID id.ID, items []TransferItem) error {
	t, ok := m.transfers[transferID]
	if !ok {
		return apperror.NewNotFound("transfer", transferID)
	}
	t.Items = make([]TransferItem, len(items))
	copy(t.Items, items)
	return nil
}

func (m *mockRepo) List(ctx context.Context, businessID id.ID, branchID *id.ID, status *Status, page, limit int) ([]Transfer, int64, error) {
	var out []Transfer
	for _, t := range m.transfers {
		if t.FromBusinessID != businessID && t.ToBusinessID != businessID {
			continue
		}
		if status != nil && t.Status != *status {
			continue
		}
		out = append(out, *m.clone(t))
	}
	return out, int64(len(out)), nil
}

type mockLedger struct {
	changes []ledger.Change
	fail    error
}

func (m *mockLedger) ApplyAll(ctx context.Context, changes []ledger.Change) ([]types.Quantity, error) {
	if m.fail != nil {
		return nil, m.fail
	}
	m.changes = append(m.changes, changes...)
	out := make([]types.Quantity, len(changes))
	for i, c := range changes {
		out[i] = c.Delta
	}
	return out, nil
}

type mockBranches struct {
	branches   map[id.ID]branch.Branch
	businesses map[id.ID]string
}

func (m *mockBranches) Get(ctx context.Context, businessID, branchID id.ID) (*branch.Branch, error) {
	b, ok := m.branches[branchID]
	if !ok || b.BusinessID != businessID {
		return nil, apperror.NewNotFound("branch", branchID)
	}
	return &b, nil
}

func (m *mockBranches) ListActive(ctx context.Context, businessID id.ID) ([]branch.Branch, error) {
	var out []branch.Branch
	for _, b := range m.branches {
		if b.BusinessID == businessID && b.Active {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *mockBranches) GetBusinesses(ctx context.Context, businessIDs []id.ID) ([]branch.Business, error) {
	var out []branch.Business
	for _, businessID := range businessIDs {
		if name, ok := m.businesses[businessID]; ok {
			out = append(out, branch.Business{ID: businessID, Name: name})
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
	svc      *fixtureService
	business id.ID
	branchA  id.ID

	otherBusiness id.ID
	otherBranch   id.ID
}

type fixtureService struct {
	*Service
	repo   *mockRepo
	ledger *mockLedger
}

func newFixture() *fixture {
	f := &fixture{
		business:      id.New(),
		branchA:       id.New(),
		otherBusiness: id.New(),
		otherBranch:   id.New(),
	}

	branches := &mockBranches{
		branches: map[id.ID]branch.Branch{
			f.branchA:     {ID: f.branchA, BusinessID: f.business, Name: "Main", Active: true},
			f.otherBranch: {ID: f.otherBranch, BusinessID: f.otherBusiness, Name: "Downtown", Active: true},
		},
		businesses: map[id.ID]string{
			f.business:      "Cafe One",
			f.otherBusiness: "Cafe Two",
		},
	}

	repo := newMockRepo()
	led := &mockLedger{}
	svc := NewService(
		repo,
		led,
		branches,
		numerator.New(&seqQuerier{}),
		passthroughTx{},
		authz.NewContextResolver(),
		nil,
	)
	f.svc = &fixtureService{Service: svc, repo: repo, ledger: led}
	return f
}

// ownerCtx can act on both businesses.
func (f *fixture) ownerCtx() context.Context {
	return actor.WithActor(context.Background(), &actor.Context{
		UserID:                id.New(),
		BusinessID:            f.business,
		Role:                  actor.RoleOwner,
		AccessibleBusinessIDs: []id.ID{f.business, f.otherBusiness},
	})
}

func (f *fixture) staffCtx(businessID id.ID) context.Context {
	return actor.WithActor(context.Background(), &actor.Context{
		UserID:     id.New(),
		BusinessID: businessID,
		Role:       actor.RoleStaff,
	})
}

func (f *fixture) crossInput(quantities ...float64) CreateInput {
	in := CreateInput{
		FromBranchID: f.branchA,
		ToBusinessID: f.otherBusiness,
		ToBranchID:   f.otherBranch,
	}
	for _, q := range quantities {
		in.Items = append(in.Items, Item{ItemID: id.New(), Quantity: qty(q)})
	}
	return in
}

func TestCreate_DeductsAtCreation(t *testing.T) {
	f := newFixture()
	ctx := f.ownerCtx()

	tr, err := f.svc.Create(ctx, f.business, id.New(), f.crossInput(4, 2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Status != StatusPending {
		t.Errorf("expected pending, got %s", tr.Status)
	}
	if tr.Number == "" {
		t.Error("expected generated number")
	}

	if len(f.svc.ledger.changes) != 2 {
		t.Fatalf("expected 2 deductions, got %d", len(f.svc.ledger.changes))
	}
	for _, c := range f.svc.ledger.changes {
		if c.Type != ledger.TypeTransferOut || !c.Delta.IsNegative() {
			t.Errorf("expected negative transfer_out change, got %+v", c)
		}
		if c.Key.BusinessID != f.business || c.Key.BranchID != f.branchA {
			t.Error("deduction must hit the source branch")
		}
	}
}

func TestCreate_DeniedWithoutAccessToDestination(t *testing.T) {
	f := newFixture()
	// Staff of the source business has no grant on the destination.
	_, err := f.svc.Create(f.staffCtx(f.business), f.business, id.New(), f.crossInput(1))
	appErr, ok := apperror.AsAppError(err)
	if !ok || appErr.Code != apperror.CodeAuthorizationDenied {
		t.Fatalf("expected authorization denied, got %v", err)
	}
	if len(f.svc.ledger.changes) != 0 {
		t.Error("denied transfer must not touch stock")
	}
}

func TestCreate_InsufficientStockAborts(t *testing.T) {
	f := newFixture()
	f.svc.ledger.fail = apperror.NewInsufficientInventory(id.New().String(), 4, 1)

	_, err := f.svc.Create(f.ownerCtx(), f.business, id.New(), f.crossInput(4))
	if !apperror.IsInsufficientInventory(err) {
		t.Fatalf("expected insufficient inventory, got %v", err)
	}
}

func TestCreate_SameSourceAndDestination(t *testing.T) {
	f := newFixture()
	in := CreateInput{
		FromBranchID: f.branchA,
		ToBusinessID: f.business,
		ToBranchID:   f.branchA,
		Items:        []Item{{ItemID: id.New(), Quantity: qty(1)}},
	}
	_, err := f.svc.Create(f.ownerCtx(), f.business, id.New(), in)
	appErr, ok := apperror.AsAppError(err)
	if !ok || appErr.Code != apperror.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestReceive_AddsAtDestination(t *testing.T) {
	f := newFixture()
	ctx := f.ownerCtx()
	tr, err := f.svc.Create(ctx, f.business, id.New(), f.crossInput(4))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	f.svc.ledger.changes = nil

	got, err := f.svc.Receive(ctx, f.otherBusiness, tr.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != StatusReceived {
		t.Errorf("expected received, got %s", got.Status)
	}

	if len(f.svc.ledger.changes) != 1 {
		t.Fatalf("expected 1 addition, got %d", len(f.svc.ledger.changes))
	}
	c := f.svc.ledger.changes[0]
	if c.Type != ledger.TypeTransferIn || c.Delta != qty(4) {
		t.Errorf("unexpected change: %+v", c)
	}
	if c.Key.BusinessID != f.otherBusiness || c.Key.BranchID != f.otherBranch {
		t.Error("addition must hit the destination branch")
	}
}

func TestReceive_Idempotent(t *testing.T) {
	f := newFixture()
	ctx := f.ownerCtx()
	tr, _ := f.svc.Create(ctx, f.business, id.New(), f.crossInput(4))

	if _, err := f.svc.Receive(ctx, f.otherBusiness, tr.ID); err != nil {
		t.Fatalf("first receive failed: %v", err)
	}
	before := len(f.svc.ledger.changes)

	_, err := f.svc.Receive(ctx, f.otherBusiness, tr.ID)
	if !apperror.IsInvalidStateTransition(err) {
		t.Fatalf("expected invalid state transition on retry, got %v", err)
	}
	if len(f.svc.ledger.changes) != before {
		t.Error("retry must not double-apply stock")
	}
}

func TestReceive_ReChecksAuthorization(t *testing.T) {
	f := newFixture()
	tr, _ := f.svc.Create(f.ownerCtx(), f.business, id.New(), f.crossInput(4))

	// Destination staff can see the transfer but lacks a grant on the
	// source business, so the re-check fails.
	_, err := f.svc.Receive(f.staffCtx(f.otherBusiness), f.otherBusiness, tr.ID)
	appErr, ok := apperror.AsAppError(err)
	if !ok || appErr.Code != apperror.CodeAuthorizationDenied {
		t.Fatalf("expected authorization denied, got %v", err)
	}
}

func TestCancel_RestoresSource(t *testing.T) {
	f := newFixture()
	ctx := f.ownerCtx()
	tr, _ := f.svc.Create(ctx, f.business, id.New(), f.crossInput(4))
	f.svc.ledger.changes = nil

	got, err := f.svc.Cancel(ctx, f.business, tr.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != StatusCancelled {
		t.Errorf("expected cancelled, got %s", got.Status)
	}

	if len(f.svc.ledger.changes) != 1 {
		t.Fatalf("expected 1 reversal, got %d", len(f.svc.ledger.changes))
	}
	c := f.svc.ledger.changes[0]
	if c.Type != ledger.TypeTransferOutReversal || c.Delta != qty(4) {
		t.Errorf("unexpected change: %+v", c)
	}
	if c.Key.BusinessID != f.business || c.Key.BranchID != f.branchA {
		t.Error("reversal must hit the source branch")
	}
}

func TestCancel_AfterReceiveRejected(t *testing.T) {
	f := newFixture()
	ctx := f.ownerCtx()
	tr, _ := f.svc.Create(ctx, f.business, id.New(), f.crossInput(4))

	if _, err := f.svc.Receive(ctx, f.otherBusiness, tr.ID); err != nil {
		t.Fatalf("receive failed: %v", err)
	}
	_, err := f.svc.Cancel(ctx, f.business, tr.ID)
	if !apperror.IsInvalidStateTransition(err) {
		t.Fatalf("expected invalid state transition, got %v", err)
	}
}

func TestListDestinations(t *testing.T) {
	f := newFixture()

	// Owner sees both businesses with their branches.
	got, err := f.svc.ListDestinations(f.ownerCtx())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 destinations, got %d", len(got))
	}

	// Staff only sees the current business.
	got, err = f.svc.ListDestinations(f.staffCtx(f.business))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].BusinessID != f.business {
		t.Errorf("staff should only see own business, got %v", got)
	}
	if len(got[0].Branches) != 1 || got[0].Branches[0].ID != f.branchA {
		t.Errorf("expected the active branch, got %v", got[0].Branches)
	}
}
