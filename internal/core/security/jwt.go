package security

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"restock/internal/core/actor"
	"restock/internal/core/id"
)

// JWTConfig holds JWT configuration.
type JWTConfig struct {
	Secret         string
	Issuer         string
	AccessTokenTTL time.Duration
}

// DefaultJWTConfig returns default JWT configuration.
func DefaultJWTConfig(secret string) JWTConfig {
	return JWTConfig{
		Secret:         secret,
		Issuer:         "restock",
		AccessTokenTTL: 15 * time.Minute,
	}
}

// Claims carries the actor identity inside an access token.
type Claims struct {
	jwt.RegisteredClaims
	UserID     string   `json:"uid"`
	BusinessID string   `json:"bid"`
	BranchID   string   `json:"brid,omitempty"`
	Role       string   `json:"role"`
	Businesses []string `json:"bids,omitempty"`
}

// JWTService issues and validates access tokens.
type JWTService struct {
	config JWTConfig
}

// NewJWTService creates a new JWT service.
func NewJWTService(config JWTConfig) *JWTService {
	return &JWTService{config: config}
}

// GenerateAccessToken signs a token for the given actor.
func (s *JWTService) GenerateAccessToken(act *actor.Context) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.config.AccessTokenTTL)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   act.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID:     act.UserID.String(),
		BusinessID: act.BusinessID.String(),
		Role:       string(act.Role),
	}
	if act.BranchID != nil {
		claims.BranchID = act.BranchID.String()
	}
	for _, b := range act.AccessibleBusinessIDs {
		claims.Businesses = append(claims.Businesses, b.String())
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return tokenString, expiresAt, nil
}

// ValidateToken validates a token and returns the actor it carries.
func (s *JWTService) ValidateToken(tokenString string) (*actor.Context, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	userID, err := id.Parse(claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id claim: %w", err)
	}
	businessID, err := id.Parse(claims.BusinessID)
	if err != nil {
		return nil, fmt.Errorf("invalid business id claim: %w", err)
	}

	act := &actor.Context{
		UserID:     userID,
		BusinessID: businessID,
		Role:       actor.Role(claims.Role),
	}
	if claims.BranchID != "" {
		branchID, err := id.Parse(claims.BranchID)
		if err != nil {
			return nil, fmt.Errorf("invalid branch id claim: %w", err)
		}
		act.BranchID = &branchID
	}
	for _, b := range claims.Businesses {
		bid, err := id.Parse(b)
		if err != nil {
			return nil, fmt.Errorf("invalid business list claim: %w", err)
		}
		act.AccessibleBusinessIDs = append(act.AccessibleBusinessIDs, bid)
	}
	return act, nil
}
