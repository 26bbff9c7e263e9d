/**
 * Handler: outbound push enqueue
 * @description: records a field patch bound for the CRM; delivery is
 *               asynchronous through the outbox drain
 * @func: Push
 */
package sync

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"leadsync/internal/model"
	"leadsync/internal/pkg/logger"
	"leadsync/internal/pkg/utils"
)

// Push handles POST /api/v1/sync/push/:id. The caller only waits for
// the durable enqueue; delivery failures are retried by the drain and
// never reported here.
func (h *SyncHandler) Push(c *gin.Context) {
	clientIP := utils.GetClientIP(c)
	requestID := c.GetHeader("X-Request-ID")

	externalID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || externalID <= 0 {
		badRequest(c, "Invalid lead id", err)
		return
	}

	var req model.PushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid push body", err)
		return
	}

	if err := h.outbox.EnqueuePush(c.Request.Context(), externalID, req.Fields); err != nil {
		logger.LogBusinessError(err, requestID, clientIP, c.Request.URL.Path, http.MethodPost, map[string]interface{}{
			"operation": "sync_push",
			"lead_id":   externalID,
		})
		internalError(c, "Failed to enqueue push", err)
		return
	}

	c.JSON(http.StatusAccepted, model.APIResponse{
		Code:    http.StatusAccepted,
		Success: true,
		Message: "push enqueued",
	})
}
