/**
 * Middleware: manager
 * @description: owns the shared middleware state (security config,
 *               rate limiter) and hands out gin middleware funcs
 * @func: MiddlewareManager
 */
package middleware

import (
	"sync"

	"leadsync/internal/config"
)

// MiddlewareManager wires all HTTP middleware from one place so the
// router never touches config directly.
type MiddlewareManager struct {
	securityConfig  *config.SecurityConfig
	rateLimiter     RateLimiter
	rateLimiterOnce sync.Once
}

// NewMiddlewareManager creates the manager.
func NewMiddlewareManager(securityConfig *config.SecurityConfig) *MiddlewareManager {
	return &MiddlewareManager{
		securityConfig: securityConfig,
	}
}
