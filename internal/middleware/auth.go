package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sitecms/internal/pkg/jwt"
)

const (
	ContextKeyUserID   = "user_id"
	ContextKeyUsername = "username"
)

// TokenVerifier validates a bearer token.
type TokenVerifier interface {
	Verify(token string) (*jwt.Claims, error)
}

// Auth returns a middleware that rejects requests without a valid bearer token.
func Auth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := NormalizeToken(c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(ContextKeyUserID, claims.Subject)
		c.Set(ContextKeyUsername, claims.Username)
		c.Next()
	}
}

// CurrentUsername extracts the authenticated username from context.
func CurrentUsername(c *gin.Context) string {
	v, _ := c.Get(ContextKeyUsername)
	name, _ := v.(string)
	return name
}

// NormalizeToken trims spaces and strips optional Bearer prefix.
func NormalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	if token == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}
