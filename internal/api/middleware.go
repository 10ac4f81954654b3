package api

import (
	"net/http"
	"strings"

	"site-monitor/internal/services"

	"github.com/gin-gonic/gin"
)

const contextClaimsKey = "claims"

// AuthMiddleware validates the Bearer token and stores the claims on the
// request context
func AuthMiddleware(authService *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token is required"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}"})
			return
		}

		claims, err := authService.ValidateToken(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(contextClaimsKey, claims)
		c.Next()
	}
}

// CronSecretMiddleware guards the internal report triggers with a shared
// secret header, so an external scheduler can drive report generation
func CronSecretMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" || c.GetHeader("X-Cron-Secret") != secret {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid cron secret"})
			return
		}
		c.Next()
	}
}

// currentClaims returns the authenticated claims stored by AuthMiddleware
func currentClaims(c *gin.Context) *services.Claims {
	value, exists := c.Get(contextClaimsKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*services.Claims)
	if !ok {
		return nil
	}
	return claims
}
