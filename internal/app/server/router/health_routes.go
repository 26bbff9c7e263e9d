/**
 * Router: process health routes
 * @description: liveness/readiness endpoints for the process itself;
 *               sync-level health lives under /sync/health
 * @func: setupHealthRoutes
 */
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"leadsync/internal/pkg/logger"
)

func (r *Router) setupHealthRoutes(api *gin.RouterGroup) {
	api.GET("/health", r.healthCheck)
	api.GET("/live", r.livenessCheck)
}

func (r *Router) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"app":       r.config.App.Name,
		"version":   r.config.App.Version,
		"timestamp": logger.NowFormatted(),
	})
}

func (r *Router) livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": logger.NowFormatted(),
	})
}
