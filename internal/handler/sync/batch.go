/**
 * Handler: batch payment mutation
 * @description: applies a payment batch and reports per-item accounting;
 *               partial failure is still HTTP 200, callers inspect the
 *               error count
 * @func: Batch
 */
package sync

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"leadsync/internal/model"
)

// Batch handles POST /api/v1/sync/batch.
func (h *SyncHandler) Batch(c *gin.Context) {
	var req model.BatchMutationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid batch body", err)
		return
	}

	result := h.batches.ApplyBatch(c.Request.Context(), req.BatchID, req.Items)

	message := "batch applied"
	if result.ErrorCount > 0 {
		message = "batch applied with errors"
	}

	c.JSON(http.StatusOK, model.APIResponse{
		Code:    http.StatusOK,
		Success: result.ErrorCount == 0,
		Message: message,
		Data:    result,
	})
}
