// Package branch exposes the branch directory as a read model. Branch
// management is part of the back-office; transfers only need to list
// active destinations.
package branch

import (
	"context"

	"restock/internal/core/id"
)

// Branch is a location of a business.
type Branch struct {
	ID         id.ID  `db:"id" json:"id"`
	BusinessID id.ID  `db:"business_id" json:"businessId"`
	Name       string `db:"name" json:"name"`
	Address    string `db:"address" json:"address,omitempty"`
	Active     bool   `db:"active" json:"active"`
}

// Business is the owning tenant of branches.
type Business struct {
	ID   id.ID  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Repository defines branch directory reads.
type Repository interface {
	// Get returns the branch only if it belongs to businessID.
	Get(ctx context.Context, businessID, branchID id.ID) (*Branch, error)

	// ListActive returns the active branches of a business.
	ListActive(ctx context.Context, businessID id.ID) ([]Branch, error)

	// GetBusinesses resolves business names for destination listings.
	GetBusinesses(ctx context.Context, businessIDs []id.ID) ([]Business, error)
}
