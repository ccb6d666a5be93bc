package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/playvault/bonus-service/pkg/boundedcache"
	"github.com/playvault/bonus-service/pkg/common"
)

// Claims represents JWT claims
type Claims struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Role   string    `json:"role"`
	jwt.RegisteredClaims
}

// SessionCache keeps verified token claims in memory so repeat requests skip
// signature verification. Bounded, so a burst of distinct tokens cannot grow
// it without limit.
type SessionCache = boundedcache.Cache[string, *Claims]

// AuthMiddleware validates JWT bearer tokens. A non-nil sessions cache is
// consulted before parsing; entries expire from the cache independently of
// token expiry, so cached claims are still checked against ExpiresAt.
func AuthMiddleware(jwtSecret string, sessions *SessionCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			common.ErrorResponse(c, http.StatusUnauthorized, "authorization required")
			c.Abort()
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			common.ErrorResponse(c, http.StatusUnauthorized, "invalid authorization header format")
			c.Abort()
			return
		}
		tokenString := parts[1]

		claims, ok := cachedClaims(sessions, tokenString)
		if !ok {
			parsed, err := parseToken(tokenString, jwtSecret)
			if err != nil {
				common.ErrorResponse(c, http.StatusUnauthorized, "invalid or expired token")
				c.Abort()
				return
			}
			claims = parsed
			if sessions != nil {
				sessions.Put(tokenString, claims)
			}
		}

		// Set user info in context
		c.Set("user_id", claims.UserID)
		c.Set("user_email", claims.Email)
		c.Set("user_role", claims.Role)

		c.Next()
	}
}

func cachedClaims(sessions *SessionCache, tokenString string) (*Claims, bool) {
	if sessions == nil {
		return nil, false
	}

	claims, ok := sessions.Get(tokenString)
	if !ok {
		return nil, false
	}

	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		sessions.Remove(tokenString)
		return nil, false
	}
	return claims, true
}

func parseToken(tokenString, jwtSecret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// GetUserID extracts user ID from context
func GetUserID(c *gin.Context) (uuid.UUID, error) {
	userID, exists := c.Get("user_id")
	if !exists {
		return uuid.Nil, common.ErrUnauthorized
	}
	return userID.(uuid.UUID), nil
}

// GetUserRole extracts user role from context
func GetUserRole(c *gin.Context) (string, error) {
	role, exists := c.Get("user_role")
	if !exists {
		return "", common.ErrUnauthorized
	}
	return role.(string), nil
}
