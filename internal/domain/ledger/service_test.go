package ledger

import (
	"context"
	"testing"

	"restock/internal/core/apperror"
	"restock/internal/core/id"
	"restock/internal/core/tx"
	"restock/internal/core/types"
)

// mockRepo keeps levels and movements in memory.
type mockRepo struct {
	levels    map[StockKey]StockLevel
	movements []Movement
	failOn    string
}

func newMockRepo() *mockRepo {
	return &mockRepo{levels: make(map[StockKey]StockLevel)}
}

func (m *mockRepo) GetLevel(ctx context.Context, key StockKey) (StockLevel, error) {
	if lvl, ok := m.levels[key]; ok {
		return lvl, nil
	}
	return StockLevel{StockKey: key}, nil
}

func (m *mockRepo) GetLevelForUpdate(ctx context.Context, key StockKey) (StockLevel, error) {
	return m.GetLevel(ctx, key)
}

func (m *mockRepo) UpsertLevel(ctx context.Context, level StockLevel) error {
	if m.failOn == "upsert" {
		return apperror.NewDatabase(nil)
	}
	m.levels[level.StockKey] = level
	return nil
}

func (m *mockRepo) SetThresholds(ctx context.Context, key StockKey, min, max *types.Quantity) error {
	lvl := m.levels[key]
	lvl.StockKey = key
	lvl.MinThreshold = min
	lvl.MaxThreshold = max
	m.levels[key] = lvl
	return nil
}

func (m *mockRepo) ListLevels(ctx context.Context, businessID, branchID id.ID, excludeZero bool) ([]StockLevel, error) {
	var out []StockLevel
	for _, lvl := range m.levels {
		if lvl.BusinessID != businessID || lvl.BranchID != branchID {
			continue
		}
		if excludeZero && lvl.Quantity.IsZero() {
			continue
		}
		out = append(out, lvl)
	}
	return out, nil
}

func (m *mockRepo) InsertMovements(ctx context.Context, movements []Movement) error {
	if m.failOn == "insert" {
		return apperror.NewDatabase(nil)
	}
	m.movements = append(m.movements, movements...)
	return nil
}

func (m *mockRepo) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, int64, error) {
	return m.movements, int64(len(m.movements)), nil
}

func (m *mockRepo) SumMovements(ctx context.Context, key StockKey) (types.Quantity, error) {
	var sum types.Quantity
	for _, mv := range m.movements {
		if mv.Key() == key {
			sum += mv.QuantityDelta
		}
	}
	return sum, nil
}

func (m *mockRepo) Stats(ctx context.Context, businessID id.ID, branchID *id.ID) ([]TypeCount, error) {
	counts := make(map[TransactionType]*TypeCount)
	for _, mv := range m.movements {
		if mv.BusinessID != businessID {
			continue
		}
		tc, ok := counts[mv.Type]
		if !ok {
			tc = &TypeCount{Type: mv.Type}
			counts[mv.Type] = tc
		}
		tc.Count++
		tc.Total += mv.QuantityDelta
	}
	var out []TypeCount
	for _, tc := range counts {
		out = append(out, *tc)
	}
	return out, nil
}

// mockTxManager runs the function directly. The mock repo has no real
// transaction boundary, so rollback is simulated by snapshotting state.
type mockTxManager struct {
	repo *mockRepo
}

func (m *mockTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	snapLevels := make(map[StockKey]StockLevel, len(m.repo.levels))
	for k, v := range m.repo.levels {
		snapLevels[k] = v
	}
	snapMovements := make([]Movement, len(m.repo.movements))
	copy(snapMovements, m.repo.movements)

	if err := fn(ctx); err != nil {
		m.repo.levels = snapLevels
		m.repo.movements = snapMovements
		return err
	}
	return nil
}

var _ tx.Manager = (*mockTxManager)(nil)

func testKey() StockKey {
	return StockKey{
		BusinessID: id.New(),
		BranchID:   id.New(),
		ItemID:     id.New(),
	}
}

func qty(f float64) types.Quantity {
	return types.NewQuantityFromFloat64(f)
}

func newTestService(repo *mockRepo) *Service {
	return NewService(repo, &mockTxManager{repo: repo}, nil)
}

func TestApply_AddThenDeduct(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	key := testKey()

	got, err := svc.Apply(ctx, Change{Key: key, Delta: qty(10), Type: TypeManualAdd})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != qty(10) {
		t.Errorf("expected 10, got %s", got)
	}

	got, err = svc.Apply(ctx, Change{Key: key, Delta: qty(-3.5), Type: TypeManualDeduct})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != qty(6.5) {
		t.Errorf("expected 6.5, got %s", got)
	}

	if len(repo.movements) != 2 {
		t.Fatalf("expected 2 movements, got %d", len(repo.movements))
	}
}

func TestApply_InsufficientInventory(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	key := testKey()

	if _, err := svc.Apply(ctx, Change{Key: key, Delta: qty(5), Type: TypeManualAdd}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	_, err := svc.Apply(ctx, Change{Key: key, Delta: qty(-8), Type: TypeWaste})
	if !apperror.IsInsufficientInventory(err) {
		t.Fatalf("expected insufficient inventory error, got %v", err)
	}

	// Rejected change must leave no trace.
	lvl, _ := svc.Level(ctx, key)
	if lvl.Quantity != qty(5) {
		t.Errorf("expected level 5 after rejection, got %s", lvl.Quantity)
	}
	if len(repo.movements) != 1 {
		t.Errorf("expected 1 movement, got %d", len(repo.movements))
	}
}

func TestApply_AdminOverrideAllowsNegative(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	key := testKey()

	got, err := svc.Apply(ctx, Change{Key: key, Delta: qty(-2), Type: TypeManualDeduct, AdminOverride: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != qty(-2) {
		t.Errorf("expected -2, got %s", got)
	}
}

func TestApply_CountAdjustmentMayGoNegative(t *testing.T) {
	// Count adjustments record observed reality and are not deduction
	// typed, so they bypass the availability check.
	repo := newMockRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	key := testKey()

	got, err := svc.Apply(ctx, Change{Key: key, Delta: qty(-1), Type: TypeCountAdjustment})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != qty(-1) {
		t.Errorf("expected -1, got %s", got)
	}
}

func TestApply_Validation(t *testing.T) {
	svc := newTestService(newMockRepo())
	ctx := context.Background()

	cases := []struct {
		name   string
		change Change
	}{
		{"zero delta", Change{Key: testKey(), Delta: 0, Type: TypeManualAdd}},
		{"bad type", Change{Key: testKey(), Delta: qty(1), Type: "bogus"}},
		{"nil ids", Change{Delta: qty(1), Type: TypeManualAdd}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Apply(ctx, tc.change)
			appErr, ok := apperror.AsAppError(err)
			if !ok || appErr.Code != apperror.CodeValidation {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestApplyAll_AllOrNothing(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	businessID := id.New()
	branchID := id.New()
	keyA := StockKey{BusinessID: businessID, BranchID: branchID, ItemID: id.New()}
	keyB := StockKey{BusinessID: businessID, BranchID: branchID, ItemID: id.New()}

	if _, err := svc.Apply(ctx, Change{Key: keyA, Delta: qty(10), Type: TypeManualAdd}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	// keyB has no stock, so the batch must fail and roll back keyA too.
	_, err := svc.ApplyAll(ctx, []Change{
		{Key: keyA, Delta: qty(-4), Type: TypeTransferOut},
		{Key: keyB, Delta: qty(-1), Type: TypeTransferOut},
	})
	if !apperror.IsInsufficientInventory(err) {
		t.Fatalf("expected insufficient inventory error, got %v", err)
	}

	lvl, _ := svc.Level(ctx, keyA)
	if lvl.Quantity != qty(10) {
		t.Errorf("expected keyA untouched at 10, got %s", lvl.Quantity)
	}
	if len(repo.movements) != 1 {
		t.Errorf("expected only the seed movement, got %d", len(repo.movements))
	}
}

func TestApplyAll_Success(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	businessID := id.New()
	branchID := id.New()
	keyA := StockKey{BusinessID: businessID, BranchID: branchID, ItemID: id.New()}
	keyB := StockKey{BusinessID: businessID, BranchID: branchID, ItemID: id.New()}

	quantities, err := svc.ApplyAll(ctx, []Change{
		{Key: keyA, Delta: qty(3), Type: TypePurchaseReceipt},
		{Key: keyB, Delta: qty(7), Type: TypePurchaseReceipt},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(quantities) != 2 || quantities[0] != qty(3) || quantities[1] != qty(7) {
		t.Errorf("unexpected quantities: %v", quantities)
	}
}

func TestVerifyKey(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	key := testKey()

	_, _ = svc.Apply(ctx, Change{Key: key, Delta: qty(4), Type: TypeManualAdd})
	_, _ = svc.Apply(ctx, Change{Key: key, Delta: qty(-1), Type: TypeWaste})

	ok, err := svc.VerifyKey(ctx, key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected level to match movement sum")
	}

	// Introduce drift directly.
	lvl := repo.levels[key]
	lvl.Quantity += qty(1)
	repo.levels[key] = lvl

	ok, err = svc.VerifyKey(ctx, key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected drift to be detected")
	}
}

func TestSetThresholds(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	key := testKey()

	min, max := qty(2), qty(1)
	err := svc.SetThresholds(ctx, key, &min, &max)
	appErr, ok := apperror.AsAppError(err)
	if !ok || appErr.Code != apperror.CodeValidation {
		t.Fatalf("expected validation error for min > max, got %v", err)
	}

	max = qty(20)
	if err := svc.SetThresholds(ctx, key, &min, &max); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lvl, _ := svc.Level(ctx, key)
	if lvl.MinThreshold == nil || *lvl.MinThreshold != qty(2) {
		t.Errorf("min threshold not stored: %v", lvl.MinThreshold)
	}
}
