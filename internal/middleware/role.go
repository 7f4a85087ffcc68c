package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/gavel-club/backend/pkg/response"
)

// RequireRole returns a middleware that allows only the given access roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{})
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		roleVal, ok := c.Get(ContextAccessRole)
		if !ok {
			response.Unauthorized(c, "missing contact context")
			c.Abort()
			return
		}
		role, _ := roleVal.(string)
		if _, ok := allowed[role]; !ok {
			response.Forbidden(c, "insufficient permissions")
			c.Abort()
			return
		}
		c.Next()
	}
}
