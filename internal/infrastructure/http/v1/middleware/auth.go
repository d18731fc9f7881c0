package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"restock/internal/core/actor"
	"restock/internal/core/apperror"
)

// TokenValidator validates an access token and returns the actor it
// identifies.
type TokenValidator interface {
	ValidateToken(tokenString string) (*actor.Context, error)
}

// Auth middleware validates bearer tokens and populates the actor
// context consumed by the domain layer.
func Auth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			abortUnauthorized(c, "invalid authorization header format")
			return
		}

		act, err := validator.ValidateToken(parts[1])
		if err != nil {
			abortUnauthorized(c, "invalid token")
			return
		}

		ctx := actor.WithActor(c.Request.Context(), act)
		c.Request = c.Request.WithContext(ctx)

		c.Set("user_id", act.UserID.String())
		c.Set("business_id", act.BusinessID.String())

		c.Next()
	}
}

// RequireRole restricts an endpoint to the given roles.
func RequireRole(roles ...actor.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		act := actor.FromContext(c.Request.Context())
		if act == nil {
			abortUnauthorized(c, "authentication required")
			return
		}

		for _, required := range roles {
			if act.Role == required {
				c.Next()
				return
			}
		}

		_ = c.Error(
			apperror.NewAuthorizationDenied("insufficient role").
				WithDetail("required_roles", roles),
		)
		c.Abort()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	_ = c.Error(apperror.NewUnauthorized(message))
	c.Abort()
}
