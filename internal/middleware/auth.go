package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/conference-api/pkg/auth"
	apperrors "github.com/jwalitptl/conference-api/pkg/errors"
)

const (
	ContextUserID = "user_id"
	ContextRole   = "role"
)

const (
	CodeUnauthorized apperrors.ErrorCode = "unauthorized"
)

type AuthMiddleware struct {
	jwt auth.JWTService
}

func NewAuthMiddleware(jwt auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

// Authenticate verifies the bearer token and sets the actor in context
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, apperrors.New(CodeUnauthorized, http.StatusUnauthorized, "Missing authorization header."))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abort(c, apperrors.New(CodeUnauthorized, http.StatusUnauthorized, "Invalid authorization format."))
			return
		}

		claims, err := m.jwt.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			abort(c, apperrors.New(CodeUnauthorized, http.StatusUnauthorized, "Invalid token."))
			return
		}

		c.Set(ContextUserID, claims.Subject)
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}

// RequireRole rejects actors whose token carries another role
func (m *AuthMiddleware) RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ContextRole) != role {
			abort(c, apperrors.Forbidden(apperrors.ErrForbidden, "Permission denied."))
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated actor's ID
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}
