package middleware

import (
	"crypto/subtle"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const bearerPrefix = "Bearer "

// bearerMatches compares the Authorization header with secret in constant time.
func bearerMatches(header, secret string) bool {
	if secret == "" || !strings.HasPrefix(header, bearerPrefix) {
		return false
	}
	token := strings.TrimPrefix(header, bearerPrefix)
	return subtle.ConstantTimeCompare([]byte(token), []byte(secret)) == 1
}

func unauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Unauthorized"})
	c.Abort()
}

// OptionalCronAuth checks the bearer token only when a secret is configured.
// An empty secret leaves the route open.
func OptionalCronAuth(secret string) gin.HandlerFunc {
	if secret == "" {
		log.Println("[CronAuth] CRON_SECRET not set, cron route is open")
	}
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}
		if !bearerMatches(c.GetHeader("Authorization"), secret) {
			unauthorized(c)
			return
		}
		c.Next()
	}
}

// RequireCronAuth always demands a matching bearer token. With an empty secret
// every request is rejected.
func RequireCronAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !bearerMatches(c.GetHeader("Authorization"), secret) {
			unauthorized(c)
			return
		}
		c.Next()
	}
}
