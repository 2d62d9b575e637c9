package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const claimsKey = "claims"

// Identity is the acting user resolved from a verified token. Handlers pass
// it into services explicitly; nothing below the HTTP layer reads it from
// request context.
type Identity struct {
	UserID string
	Role   string
}

// Require enforces bearer JWT tokens signed with HS256.
func Require(signingKey, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tokenStr := strings.TrimSpace(authz[len("bearer "):])
		claims, err := Parse(tokenStr, signingKey, issuer)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireRole rejects callers whose token carries a different role.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		who, ok := FromContext(c)
		if !ok || who.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// FromContext returns the identity set by Require.
func FromContext(c *gin.Context) (Identity, bool) {
	val, exists := c.Get(claimsKey)
	if !exists {
		return Identity{}, false
	}
	claims, ok := val.(Claims)
	if !ok || claims.Subject == "" {
		return Identity{}, false
	}
	return Identity{UserID: claims.Subject, Role: claims.Role}, true
}
