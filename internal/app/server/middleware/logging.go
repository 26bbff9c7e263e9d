/**
 * Middleware: request logging
 * @description: access log for every request plus request id and client
 *               ip propagation into both contexts
 * @func: GinLoggingMiddleware, GinRecoveryMiddleware
 */
package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"leadsync/internal/model"
	"leadsync/internal/pkg/logger"
	"leadsync/internal/pkg/utils"
)

// GinLoggingMiddleware records one access-log line per request. The
// request id is taken from X-Request-ID or generated, and exposed to
// handlers through the gin context.
func (m *MiddlewareManager) GinLoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = utils.GenerateRequestID()
			c.Request.Header.Set("X-Request-ID", requestID)
		}
		c.Set("request_id", requestID)
		c.Set("client_ip", utils.GetClientIP(c))
		c.Writer.Header().Set("X-Request-ID", requestID)

		c.Next()

		if m.securityConfig.Logging.EnableRequestLog {
			logger.LogAccessRequest(c, start, requestID)
		}

		slow := m.securityConfig.Logging.SlowThreshold
		if slow > 0 && time.Since(start) > slow {
			logger.Warnf("slow request: %s %s took %s", c.Request.Method, c.Request.URL.Path, time.Since(start).Round(time.Millisecond))
		}
	}
}

// GinRecoveryMiddleware converts a handler panic into a clean 500
// envelope. Stack traces go to the error log, never to the client.
func (m *MiddlewareManager) GinRecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("panic recovered on %s %s: %v", c.Request.Method, c.Request.URL.Path, r)
				c.AbortWithStatusJSON(http.StatusInternalServerError, model.APIResponse{
					Code:    http.StatusInternalServerError,
					Success: false,
					Message: "Internal server error",
				})
			}
		}()
		c.Next()
	}
}
