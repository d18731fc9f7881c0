// Package actor provides the request-scoped identity consumed by the core.
// Identity is resolved by the upstream auth layer; the engine only reads it.
package actor

import (
	"context"

	"restock/internal/core/id"
)

// Role is the actor's role within their current business.
type Role string

const (
	// RoleOwner may operate across every business linked to them.
	RoleOwner Role = "owner"
	// RoleManager operates within the current business only.
	RoleManager Role = "manager"
	// RoleStaff operates within the current business only.
	RoleStaff Role = "staff"
)

// Context contains the authenticated actor for one request.
type Context struct {
	UserID     id.ID
	BusinessID id.ID
	// BranchID is the branch the actor is acting from, if any.
	BranchID *id.ID
	Role     Role

	// AccessibleBusinessIDs is the set of businesses an owner is linked to,
	// resolved by the upstream identity service. Includes BusinessID.
	AccessibleBusinessIDs []id.ID
}

// IsOwner reports whether the actor holds the owner role.
func (a *Context) IsOwner() bool {
	return a.Role == RoleOwner
}

// CanAccess reports whether the actor may act on the given business.
// Own business is always allowed; owners may additionally act on any
// business in their accessible set.
func (a *Context) CanAccess(businessID id.ID) bool {
	if a.BusinessID == businessID {
		return true
	}
	if !a.IsOwner() {
		return false
	}
	for _, b := range a.AccessibleBusinessIDs {
		if b == businessID {
			return true
		}
	}
	return false
}

type actorContextKey struct{}

// WithActor adds the actor to context.
func WithActor(ctx context.Context, a *Context) context.Context {
	return context.WithValue(ctx, actorContextKey{}, a)
}

// FromContext returns the actor from context, or nil.
func FromContext(ctx context.Context) *Context {
	if v, ok := ctx.Value(actorContextKey{}).(*Context); ok {
		return v
	}
	return nil
}

// UserID returns the acting user's ID from context or the nil ID.
func UserID(ctx context.Context) id.ID {
	if a := FromContext(ctx); a != nil {
		return a.UserID
	}
	return id.Nil()
}

// BusinessID returns the acting business ID from context or the nil ID.
func BusinessID(ctx context.Context) id.ID {
	if a := FromContext(ctx); a != nil {
		return a.BusinessID
	}
	return id.Nil()
}
