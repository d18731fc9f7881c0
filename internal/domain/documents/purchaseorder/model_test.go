package purchaseorder

import (
	"context"
	"testing"

	"restock/internal/core/apperror"
	"restock/internal/core/id"
	"restock/internal/core/types"
)

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from  Status
		to    Status
		legal bool
	}{
		{StatusPending, StatusCounted, true},
		{StatusPending, StatusReceived, true},
		{StatusPending, StatusCancelled, true},
		{StatusCounted, StatusReceived, true},
		{StatusCounted, StatusCancelled, false},
		{StatusCounted, StatusPending, false},
		{StatusReceived, StatusPending, false},
		{StatusReceived, StatusCancelled, false},
		{StatusCancelled, StatusReceived, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.legal {
			t.Errorf("%s -> %s: got %v, want %v", tc.from, tc.to, got, tc.legal)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	if !StatusReceived.IsTerminal() || !StatusCancelled.IsTerminal() {
		t.Error("received and cancelled must be terminal")
	}
	if StatusPending.IsTerminal() || StatusCounted.IsTerminal() {
		t.Error("pending and counted must not be terminal")
	}
}

func mustQty(t *testing.T, f float64) types.Quantity {
	t.Helper()
	return types.NewQuantityFromFloat64(f)
}

func TestValidate(t *testing.T) {
	ctx := context.Background()
	businessID, branchID, vendorID, userID := id.New(), id.New(), id.New(), id.New()

	order := New(businessID, branchID, vendorID, userID)
	if err := order.Validate(ctx); err == nil {
		t.Error("order without items should fail validation")
	}

	order.AddItem(id.New(), mustQty(t, 5))
	if err := order.Validate(ctx); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	order.AddItem(id.New(), 0)
	if err := order.Validate(ctx); err == nil {
		t.Error("zero quantity should fail validation")
	}

	order.Items = order.Items[:1]
	order.AddItem(order.Items[0].ItemID, mustQty(t, 1))
	if err := order.Validate(ctx); err == nil {
		t.Error("duplicate item should fail validation")
	}
}

func TestValidateVariance(t *testing.T) {
	reason := VarianceMissing
	note := "vendor sent extras"
	empty := "  "

	cases := []struct {
		name    string
		ordered float64
		actual  float64
		reason  *VarianceReason
		note    *string
		wantErr bool
	}{
		{"exact", 10, 10, nil, nil, false},
		{"short without reason", 10, 8, nil, nil, true},
		{"short with reason", 10, 8, &reason, nil, false},
		{"over without note", 10, 12, nil, nil, true},
		{"over with blank note", 10, 12, nil, &empty, true},
		{"over with note", 10, 12, nil, &note, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateVariance(mustQty(t, tc.ordered), mustQty(t, tc.actual), tc.reason, tc.note, 1)
			if tc.wantErr {
				appErr, ok := apperror.AsAppError(err)
				if !ok || appErr.Code != apperror.CodeValidation {
					t.Errorf("expected validation error, got %v", err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestVarianceReasonIsValid(t *testing.T) {
	for _, r := range []VarianceReason{VarianceMissing, VarianceCanceled, VarianceRejected} {
		if !r.IsValid() {
			t.Errorf("%s should be valid", r)
		}
	}
	if VarianceReason("late").IsValid() {
		t.Error("unknown reason should be invalid")
	}
}
