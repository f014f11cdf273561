package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/clinicaviva/agenda-api/pkg/auth"
	"github.com/clinicaviva/agenda-api/pkg/errors"
	"github.com/clinicaviva/agenda-api/pkg/httputil"
)

// Context keys set by Authenticate.
const (
	ContextUserID = "userID"
	ContextEmail  = "userEmail"
	ContextRole   = "userRole"
)

type AuthMiddleware struct {
	tokens *auth.TokenService
}

func NewAuthMiddleware(tokens *auth.TokenService) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Authenticate verifies the bearer token and sets caller identity in context
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			httputil.RespondWithError(c, errors.Unauthorized(nil))
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			httputil.RespondWithError(c, errors.Unauthorized(nil))
			c.Abort()
			return
		}

		claims, err := m.tokens.ValidateToken(parts[1])
		if err != nil {
			httputil.RespondWithError(c, errors.Unauthorized(err))
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextEmail, claims.Email)
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}

// RequireRole restricts a route group to one panel role. Admins pass
// every check; the admin panel subsumes the professional one.
func (m *AuthMiddleware) RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetString(ContextRole)
		if got != role && got != auth.RoleAdmin {
			httputil.RespondWithError(c, errors.Forbidden("insufficient role"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// ActorID returns the authenticated caller's id, or "" on public routes.
func ActorID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}
