package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restock/internal/core/actor"
	"restock/internal/core/id"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("test-secret"))

	branchID := id.New()
	act := &actor.Context{
		UserID:     id.New(),
		BusinessID: id.New(),
		BranchID:   &branchID,
		Role:       actor.RoleManager,
	}

	token, expiresAt, err := svc.GenerateAccessToken(act)
	require.NoError(t, err)
	assert.Positive(t, time.Until(expiresAt))

	got, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, act.UserID, got.UserID)
	assert.Equal(t, act.BusinessID, got.BusinessID)
	require.NotNil(t, got.BranchID)
	assert.Equal(t, branchID, *got.BranchID)
	assert.Equal(t, actor.RoleManager, got.Role)
}

func TestJWTService_OwnerBusinesses(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("test-secret"))

	other := id.New()
	act := &actor.Context{
		UserID:                id.New(),
		BusinessID:            id.New(),
		Role:                  actor.RoleOwner,
		AccessibleBusinessIDs: []id.ID{other},
	}

	token, _, err := svc.GenerateAccessToken(act)
	require.NoError(t, err)
	got, err := svc.ValidateToken(token)
	require.NoError(t, err)

	assert.Equal(t, []id.ID{other}, got.AccessibleBusinessIDs)
	assert.True(t, got.CanAccess(other))
}

func TestJWTService_RejectsTamperedToken(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("test-secret"))
	otherSvc := NewJWTService(DefaultJWTConfig("other-secret"))

	act := &actor.Context{UserID: id.New(), BusinessID: id.New(), Role: actor.RoleStaff}
	token, _, err := svc.GenerateAccessToken(act)
	require.NoError(t, err)

	_, err = otherSvc.ValidateToken(token)
	assert.Error(t, err, "token signed with a different secret should be rejected")

	_, err = svc.ValidateToken(token + "x")
	assert.Error(t, err, "tampered token should be rejected")
}

func TestJWTService_RejectsExpiredToken(t *testing.T) {
	cfg := DefaultJWTConfig("test-secret")
	cfg.AccessTokenTTL = -time.Minute
	svc := NewJWTService(cfg)

	act := &actor.Context{UserID: id.New(), BusinessID: id.New(), Role: actor.RoleStaff}
	token, _, err := svc.GenerateAccessToken(act)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err, "expired token should be rejected")
}
