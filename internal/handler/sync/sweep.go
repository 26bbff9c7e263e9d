/**
 * Handler: CRM sweep trigger
 * @description: runs a full paginated CRM→store ingestion synchronously
 *               and reports the per-record accounting
 * @func: Sweep
 */
package sync

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"leadsync/internal/model"
	"leadsync/internal/pkg/logger"
	"leadsync/internal/pkg/utils"
)

// Sweep handles POST /api/v1/sync/crm/sweep. The sweep runs inline:
// callers are operators or cron, not end users, and they want the
// accounting in the response.
func (h *SyncHandler) Sweep(c *gin.Context) {
	clientIP := utils.GetClientIP(c)
	requestID := c.GetHeader("X-Request-ID")

	result, err := h.sweeper.Run(c.Request.Context())
	if err != nil {
		logger.LogBusinessError(err, requestID, clientIP, c.Request.URL.Path, http.MethodPost, map[string]interface{}{
			"operation": "crm_sweep",
		})
		internalError(c, "Sweep aborted", err)
		return
	}

	c.JSON(http.StatusOK, model.APIResponse{
		Code:    http.StatusOK,
		Success: true,
		Message: "sweep finished",
		Data:    result,
	})
}
