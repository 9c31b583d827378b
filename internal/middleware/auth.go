package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"commerce-service/internal/models"
	"commerce-service/internal/services"
)

const (
	contextUserID  = "user_id"
	contextUser    = "user"
	contextIsAdmin = "is_admin"
)

// UserLookup loads the account behind a validated token
type UserLookup interface {
	GetUser(ctx context.Context, id uint) (*models.User, error)
}

type AuthMiddleware struct {
	jwt   *services.JWTService
	users UserLookup
}

func NewAuthMiddleware(jwt *services.JWTService, users UserLookup) *AuthMiddleware {
	return &AuthMiddleware{
		jwt:   jwt,
		users: users,
	}
}

// AuthRequired middleware that requires a valid bearer token for an existing user
func (m *AuthMiddleware) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication credentials were not provided",
				"code":  "MISSING_TOKEN",
			})
			return
		}

		claims, err := m.jwt.ValidateAccessToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
				"code":  "INVALID_TOKEN",
			})
			return
		}

		user, err := m.users.GetUser(c.Request.Context(), claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "User not found",
				"code":  "INVALID_TOKEN",
			})
			return
		}

		c.Set(contextUserID, user.ID)
		c.Set(contextUser, user)
		c.Set(contextIsAdmin, user.IsAdmin)

		c.Next()
	}
}

// RequireAdmin rejects authenticated users without the admin flag. Must run after AuthRequired.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(contextIsAdmin) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "You do not have permission to perform this action",
				"code":  "INSUFFICIENT_PERMISSIONS",
			})
			return
		}
		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// CurrentUser returns the user set by AuthRequired
func CurrentUser(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get(contextUser)
	if !exists {
		return nil, false
	}
	user, ok := value.(*models.User)
	return user, ok
}

// CurrentUserID returns the id of the user set by AuthRequired
func CurrentUserID(c *gin.Context) uint {
	return c.GetUint(contextUserID)
}
