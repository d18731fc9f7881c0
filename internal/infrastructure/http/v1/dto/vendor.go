package dto

import (
	"time"

	"restock/internal/core/id"
	"restock/internal/domain/catalogs/vendor"
)

// --- Request DTOs ---

// CreateVendorRequest represents a request to create a vendor.
type CreateVendorRequest struct {
	BranchID      *string `json:"branchId,omitempty" binding:"omitempty,uuid"`
	Name          string  `json:"name" binding:"required,max=255"`
	ContactPerson *string `json:"contactPerson,omitempty"`
	Phone         *string `json:"phone,omitempty"`
	Email         *string `json:"email,omitempty"`
	Address       *string `json:"address,omitempty"`
	Notes         *string `json:"notes,omitempty"`
}

// ToEntity converts request to domain entity.
func (r *CreateVendorRequest) ToEntity(businessID id.ID) *vendor.Vendor {
	var branchID *id.ID
	if r.BranchID != nil {
		parsed, _ := id.Parse(*r.BranchID)
		branchID = &parsed
	}

	v := vendor.New(businessID, branchID, r.Name)
	v.ContactPerson = r.ContactPerson
	v.Phone = r.Phone
	v.Email = r.Email
	v.Address = r.Address
	v.Notes = r.Notes
	return v
}

// UpdateVendorRequest represents a request to update a vendor.
type UpdateVendorRequest struct {
	Name          *string `json:"name,omitempty"`
	ContactPerson *string `json:"contactPerson,omitempty"`
	Phone         *string `json:"phone,omitempty"`
	Email         *string `json:"email,omitempty"`
	Address       *string `json:"address,omitempty"`
	Notes         *string `json:"notes,omitempty"`
	IsActive      *bool   `json:"isActive,omitempty"`
}

// ApplyTo applies updates to an existing entity.
func (r *UpdateVendorRequest) ApplyTo(v *vendor.Vendor) {
	if r.Name != nil {
		v.Name = *r.Name
	}
	if r.ContactPerson != nil {
		v.ContactPerson = r.ContactPerson
	}
	if r.Phone != nil {
		v.Phone = r.Phone
	}
	if r.Email != nil {
		v.Email = r.Email
	}
	if r.Address != nil {
		v.Address = r.Address
	}
	if r.Notes != nil {
		v.Notes = r.Notes
	}
	if r.IsActive != nil {
		v.IsActive = *r.IsActive
	}
}

// --- Response DTOs ---

// VendorResponse represents a vendor in API responses.
type VendorResponse struct {
	ID            string    `json:"id"`
	BranchID      *string   `json:"branchId,omitempty"`
	Name          string    `json:"name"`
	ContactPerson *string   `json:"contactPerson,omitempty"`
	Phone         *string   `json:"phone,omitempty"`
	Email         *string   `json:"email,omitempty"`
	Address       *string   `json:"address,omitempty"`
	Notes         *string   `json:"notes,omitempty"`
	IsActive      bool      `json:"isActive"`
	Shared        bool      `json:"shared"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// FromVendor converts a domain entity to a response.
func FromVendor(v *vendor.Vendor) VendorResponse {
	resp := VendorResponse{
		ID:            v.ID.String(),
		Name:          v.Name,
		ContactPerson: v.ContactPerson,
		Phone:         v.Phone,
		Email:         v.Email,
		Address:       v.Address,
		Notes:         v.Notes,
		IsActive:      v.IsActive,
		Shared:        v.IsShared(),
		CreatedAt:     v.CreatedAt,
		UpdatedAt:     v.UpdatedAt,
	}
	if v.BranchID != nil {
		s := v.BranchID.String()
		resp.BranchID = &s
	}
	return resp
}
