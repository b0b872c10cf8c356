package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/causify-ai/ascope/pkg/config"
	"github.com/gin-gonic/gin"
)

const apiKeyHeader = "X-API-Key"

// APIKeyRequired checks the request's API key against the configured one.
// When no API key is configured the server runs open, which is the expected
// setup for local single-user use.
func APIKeyRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		expected := config.AppConfig.Server.APIKey
		if expected == "" {
			c.Next()
			return
		}

		provided := c.GetHeader(apiKeyHeader)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing API key"})
			c.Abort()
			return
		}

		c.Next()
	}
}
