package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/playvault/bonus-service/pkg/common"
)

// RoleAdmin marks administrative users in token claims.
const RoleAdmin = "admin"

// RequireAdmin middleware ensures only admin users can access the endpoint
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get("user_role")
		if !exists {
			common.ErrorResponse(c, http.StatusUnauthorized, "user role not found")
			c.Abort()
			return
		}

		if role != RoleAdmin {
			common.ErrorResponse(c, http.StatusForbidden, "admin access required")
			c.Abort()
			return
		}

		c.Next()
	}
}
