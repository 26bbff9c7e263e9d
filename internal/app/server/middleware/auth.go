/**
 * Middleware: endpoint authentication
 * @description: API-key check for operator/mutating routes and a shared
 *               secret check for the inbound webhook; both compare in
 *               constant time
 * @func: GinAPIKeyMiddleware, GinWebhookSecretMiddleware
 */
package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"leadsync/internal/model"
	"leadsync/internal/pkg/logger"
	"leadsync/internal/pkg/utils"
)

const defaultAPIKeyHeader = "X-API-Key"

// GinAPIKeyMiddleware guards mutating routes with a static API key.
// An empty configured key disables the check, which is only sensible
// in development and is logged as such at startup.
func (m *MiddlewareManager) GinAPIKeyMiddleware() gin.HandlerFunc {
	auth := m.securityConfig.Auth
	header := auth.APIKeyHeader
	if header == "" {
		header = defaultAPIKeyHeader
	}

	return func(c *gin.Context) {
		if auth.APIKey == "" {
			c.Next()
			return
		}
		for _, skip := range auth.SkipPaths {
			if c.Request.URL.Path == skip {
				c.Next()
				return
			}
		}

		presented := c.GetHeader(header)
		if subtle.ConstantTimeCompare([]byte(presented), []byte(auth.APIKey)) != 1 {
			logger.Warnf("rejected request to %s from %s: bad api key", c.Request.URL.Path, utils.GetClientIP(c))
			c.AbortWithStatusJSON(http.StatusUnauthorized, model.APIResponse{
				Code:    http.StatusUnauthorized,
				Success: false,
				Message: "Invalid or missing API key",
			})
			return
		}
		c.Next()
	}
}

// GinWebhookSecretMiddleware guards the webhook route with the shared
// secret the external application is configured to send.
func (m *MiddlewareManager) GinWebhookSecretMiddleware() gin.HandlerFunc {
	secret := m.securityConfig.Auth.WebhookSecret

	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}

		presented := c.GetHeader("X-Webhook-Secret")
		if subtle.ConstantTimeCompare([]byte(presented), []byte(secret)) != 1 {
			logger.Warnf("rejected webhook from %s: bad shared secret", utils.GetClientIP(c))
			c.AbortWithStatusJSON(http.StatusUnauthorized, model.APIResponse{
				Code:    http.StatusUnauthorized,
				Success: false,
				Message: "Invalid webhook secret",
			})
			return
		}
		c.Next()
	}
}
