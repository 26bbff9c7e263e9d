/**
 * Handler: pipeline discovery
 * @description: triggers a stage-map rebuild from the remote CRM
 * @func: Discover
 */
package sync

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"leadsync/internal/model"
	"leadsync/internal/pkg/logger"
	"leadsync/internal/pkg/utils"
)

// Discover handles POST /api/v1/sync/pipelines/discover.
func (h *SyncHandler) Discover(c *gin.Context) {
	clientIP := utils.GetClientIP(c)
	requestID := c.GetHeader("X-Request-ID")

	result, err := h.pipelines.Rebuild(c.Request.Context())
	if err != nil {
		logger.LogBusinessError(err, requestID, clientIP, c.Request.URL.Path, http.MethodPost, map[string]interface{}{
			"operation": "pipeline_discovery",
		})
		internalError(c, "Pipeline discovery failed", err)
		return
	}

	message := "pipelines discovered"
	if result.Errors > 0 {
		message = "pipelines discovered with errors"
	}

	c.JSON(http.StatusOK, model.APIResponse{
		Code:    http.StatusOK,
		Success: result.Errors == 0,
		Message: message,
		Data:    result,
	})
}
