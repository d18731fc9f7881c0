package authz

import (
	"context"

	"restock/internal/core/actor"
	"restock/internal/core/apperror"
	"restock/internal/core/id"
)

// Resolver answers which businesses the current actor may act upon.
// Workflows call Authorize on every mutating operation rather than
// trusting a check made at creation time, since grants can change
// between requests.
type Resolver interface {
	// Accessible returns the business IDs the actor may act upon.
	Accessible(ctx context.Context) ([]id.ID, error)

	// Authorize verifies the actor may act on every given business.
	Authorize(ctx context.Context, businessIDs ...id.ID) error
}

// ContextResolver resolves access from the identity context attached to
// the request: the actor's own business plus, for owners, the linked
// businesses listed in the token.
type ContextResolver struct{}

var _ Resolver = (*ContextResolver)(nil)

func NewContextResolver() *ContextResolver {
	return &ContextResolver{}
}

func (r *ContextResolver) Accessible(ctx context.Context) ([]id.ID, error) {
	act := actor.FromContext(ctx)
	if act == nil {
		return nil, apperror.NewUnauthorized("no identity context")
	}

	accessible := []id.ID{act.BusinessID}
	if !act.IsOwner() {
		return accessible, nil
	}
	for _, businessID := range act.AccessibleBusinessIDs {
		if businessID != act.BusinessID {
			accessible = append(accessible, businessID)
		}
	}
	return accessible, nil
}

func (r *ContextResolver) Authorize(ctx context.Context, businessIDs ...id.ID) error {
	act := actor.FromContext(ctx)
	if act == nil {
		return apperror.NewUnauthorized("no identity context")
	}

	for _, businessID := range businessIDs {
		if id.IsNil(businessID) {
			return apperror.NewValidation("business id is required")
		}
		if !act.CanAccess(businessID) {
			return apperror.NewAuthorizationDenied("no access to business").
				WithDetail("business_id", businessID)
		}
	}
	return nil
}
