/**
 * Router: sync routes
 * @description: sync engine endpoints; the webhook authenticates with
 *               the peer's shared secret, operator routes with the API
 *               key
 * @func: setupSyncRoutes
 */
package router

import (
	"github.com/gin-gonic/gin"
)

func (r *Router) setupSyncRoutes(api *gin.RouterGroup) {
	group := api.Group("/sync")

	// The external application cannot hold our operator key; its
	// webhook carries a dedicated shared secret instead.
	group.POST("/webhook", r.middlewareManager.GinWebhookSecretMiddleware(), r.syncHandler.Webhook)

	// Health is read-only and consumed by dashboards and probes.
	group.GET("/health", r.syncHandler.Health)

	protected := group.Group("")
	protected.Use(r.middlewareManager.GinAPIKeyMiddleware())
	{
		protected.POST("/crm/sweep", r.syncHandler.Sweep)
		protected.POST("/push/:id", r.syncHandler.Push)
		protected.POST("/batch", r.syncHandler.Batch)
		protected.POST("/pipelines/discover", r.syncHandler.Discover)
		protected.GET("/events", r.syncHandler.Events)
	}
}
