package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"studioflow-system/internal/utils"
)

const (
	ContextUserID         = "user_id"
	ContextOrganizationID = "organization_id"
	ContextRole           = "role"
)

// JWTAuth validates the bearer token and exposes the caller's user id,
// organization id, and role to handlers. All commission queries are scoped
// to the organization in the token.
func JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Missing or malformed Authorization header",
			})
			return
		}

		claims, err := utils.ParseToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Invalid or expired token",
			})
			return
		}

		c.Set(ContextUserID, claims.UserId)
		c.Set(ContextOrganizationID, claims.OrganizationId)
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}
