package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/estatehub/internal/services"
	"github.com/charlesng35/estatehub/pkg/errors"
	"github.com/charlesng35/estatehub/pkg/response"
)

// RequirePermission checks that the authenticated user holds a platform permission.
// It must run after Auth.
func RequirePermission(checker services.PermissionChecker, permissionID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth, ok := AuthFromContext(c)
		if !ok {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}
		allowed, err := checker.Check(c.Request.Context(), auth.UserID, permissionID)
		if err != nil {
			response.Error(c, errors.NewInternal("Permission check failed", err))
			c.Abort()
			return
		}
		if !allowed {
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
