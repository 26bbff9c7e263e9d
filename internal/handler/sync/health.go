/**
 * Handler: sync health
 * @description: maps the tri-state health verdict onto HTTP status
 *               codes so load balancers and dashboards can read it
 *               without parsing the body
 * @func: Health
 */
package sync

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"leadsync/internal/model"
)

// Health handles GET /api/v1/sync/health. healthy → 200,
// degraded → 206, down → 503; the full diagnostic rides in the body
// either way.
func (h *SyncHandler) Health(c *gin.Context) {
	health := h.health.Check(c.Request.Context())

	code := http.StatusOK
	switch health.Status {
	case model.HealthDegraded:
		code = http.StatusPartialContent
	case model.HealthDown:
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, model.APIResponse{
		Code:    code,
		Success: health.Status != model.HealthDown,
		Message: string(health.Status),
		Data:    health,
	})
}
