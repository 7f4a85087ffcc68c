package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gavel-club/backend/internal/auth"
	"github.com/gavel-club/backend/pkg/response"
)

const (
	// ContextContactID is the key for contact ID in gin context.
	ContextContactID = "contact_id"
	// ContextClubID is the key for club ID in gin context.
	ContextClubID = "club_id"
	// ContextAccessRole is the key for access role in gin context.
	ContextAccessRole = "access_role"
	// ContextEmail is the key for contact email in gin context.
	ContextEmail = "email"
)

// JWT returns a middleware that validates JWT and sets contact claims in context.
func JWT(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		claims, err := jwtService.Validate(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		c.Set(ContextContactID, claims.ContactID)
		c.Set(ContextClubID, claims.ClubID)
		c.Set(ContextAccessRole, claims.Role)
		c.Set(ContextEmail, claims.Email)
		c.Next()
	}
}
