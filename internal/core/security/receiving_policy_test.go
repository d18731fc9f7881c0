package security

import (
	"testing"

	"restock/internal/core/apperror"
)

func TestCELPolicy_Default(t *testing.T) {
	p, err := NewCELPolicy(DefaultReceivingExpr)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}

	cases := []struct {
		name     string
		ordered  float64
		received float64
		wantErr  bool
	}{
		{"exact", 10, 10, false},
		{"short", 10, 7, false},
		{"within tolerance", 10, 11, false},
		{"over tolerance", 10, 12, true},
		{"negative", 10, -1, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := p.CanReceive(tc.ordered, tc.received)
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

func TestCELPolicy_StrictNoOverReceipt(t *testing.T) {
	p, err := NewCELPolicy(`received >= 0.0 && received <= ordered`)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}

	if err := p.CanReceive(5, 5); err != nil {
		t.Errorf("exact receipt should pass: %v", err)
	}
	if err := p.CanReceive(5, 5.5); err == nil {
		t.Error("over-receipt should be rejected")
	}
}

func TestNewCELPolicy_BadExpression(t *testing.T) {
	if _, err := NewCELPolicy(`received +`); err == nil {
		t.Error("expected compile error for malformed expression")
	}
	if _, err := NewCELPolicy(`ordered + received`); err == nil {
		t.Error("expected error for non-bool expression")
	}
}

func TestOpenReceivingPolicy(t *testing.T) {
	var p OpenReceivingPolicy
	if err := p.CanReceive(1, 100); err != nil {
		t.Errorf("open policy should accept any quantity: %v", err)
	}
	if err := p.CanReceive(1, -0.5); err == nil {
		t.Error("negative quantity should be rejected")
	}
}
