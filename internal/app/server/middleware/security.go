/**
 * Middleware: transport protection
 * @description: CORS policy and defensive response headers
 * @func: GinCORSMiddleware, GinSecurityHeadersMiddleware
 */
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// GinCORSMiddleware applies the configured CORS policy. Disabled config
// turns it into a pass-through.
func (m *MiddlewareManager) GinCORSMiddleware() gin.HandlerFunc {
	cors := m.securityConfig.CORS
	return func(c *gin.Context) {
		if !cors.Enabled {
			c.Next()
			return
		}

		origin := c.GetHeader("Origin")
		if origin != "" && m.originAllowed(origin) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			if cors.AllowCredentials {
				c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			}
		}
		if len(cors.AllowedMethods) > 0 {
			c.Writer.Header().Set("Access-Control-Allow-Methods", strings.Join(cors.AllowedMethods, ", "))
		}
		if len(cors.AllowedHeaders) > 0 {
			c.Writer.Header().Set("Access-Control-Allow-Headers", strings.Join(cors.AllowedHeaders, ", "))
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (m *MiddlewareManager) originAllowed(origin string) bool {
	for _, allowed := range m.securityConfig.CORS.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// GinSecurityHeadersMiddleware sets baseline defensive headers.
func (m *MiddlewareManager) GinSecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("X-Content-Type-Options", "nosniff")
		c.Writer.Header().Set("X-Frame-Options", "DENY")
		c.Writer.Header().Set("X-XSS-Protection", "1; mode=block")
		c.Next()
	}
}
