package authz

import (
	"context"
	"testing"

	"restock/internal/core/actor"
	"restock/internal/core/apperror"
	"restock/internal/core/id"
)

func ownerCtx(own id.ID, linked ...id.ID) context.Context {
	return actor.WithActor(context.Background(), &actor.Context{
		UserID:                id.New(),
		BusinessID:            own,
		Role:                  actor.RoleOwner,
		AccessibleBusinessIDs: linked,
	})
}

func staffCtx(own id.ID) context.Context {
	return actor.WithActor(context.Background(), &actor.Context{
		UserID:     id.New(),
		BusinessID: own,
		Role:       actor.RoleStaff,
	})
}

func TestAuthorize_OwnBusiness(t *testing.T) {
	r := NewContextResolver()
	own := id.New()

	if err := r.Authorize(staffCtx(own), own); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAuthorize_LinkedBusiness(t *testing.T) {
	r := NewContextResolver()
	own, linked := id.New(), id.New()

	if err := r.Authorize(ownerCtx(own, linked), own, linked); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAuthorize_Denied(t *testing.T) {
	r := NewContextResolver()
	own, other := id.New(), id.New()

	err := r.Authorize(staffCtx(own), other)
	appErr, ok := apperror.AsAppError(err)
	if !ok || appErr.Code != apperror.CodeAuthorizationDenied {
		t.Fatalf("expected authorization denied, got %v", err)
	}

	// Owner without a link to the target is denied too.
	err = r.Authorize(ownerCtx(own), other)
	appErr, ok = apperror.AsAppError(err)
	if !ok || appErr.Code != apperror.CodeAuthorizationDenied {
		t.Fatalf("expected authorization denied, got %v", err)
	}
}

func TestAuthorize_NoIdentity(t *testing.T) {
	r := NewContextResolver()

	err := r.Authorize(context.Background(), id.New())
	appErr, ok := apperror.AsAppError(err)
	if !ok || appErr.Code != apperror.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestAccessible_NoIdentity(t *testing.T) {
	r := NewContextResolver()

	_, err := r.Accessible(context.Background())
	appErr, ok := apperror.AsAppError(err)
	if !ok || appErr.Code != apperror.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestAccessible(t *testing.T) {
	r := NewContextResolver()
	own, linked := id.New(), id.New()

	got, err := r.Accessible(ownerCtx(own, linked, own))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Own business first, duplicates skipped.
	if len(got) != 2 || got[0] != own || got[1] != linked {
		t.Errorf("unexpected accessible set: %v", got)
	}

	got, err = r.Accessible(staffCtx(own))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0] != own {
		t.Errorf("staff should only access own business, got %v", got)
	}
}
