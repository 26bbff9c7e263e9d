/**
 * Handler: inbound webhook
 * @description: receives lead mutations pushed by the external
 *               application and runs them through the orchestrator
 * @func: Webhook
 */
package sync

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"leadsync/internal/model"
	"leadsync/internal/pkg/logger"
	"leadsync/internal/pkg/utils"
)

// Webhook handles POST /api/v1/sync/webhook. A payload whose source is
// this engine's own canonical tag is acknowledged without writing; that
// is our own push coming back around.
func (h *SyncHandler) Webhook(c *gin.Context) {
	clientIP := utils.GetClientIP(c)
	requestID := c.GetHeader("X-Request-ID")

	var req model.WebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.LogBusinessError(err, requestID, clientIP, c.Request.URL.Path, http.MethodPost, map[string]interface{}{
			"operation": "sync_webhook",
			"error":     "invalid_json",
		})
		badRequest(c, "Invalid webhook body", err)
		return
	}

	if model.SyncSource(req.Source) == model.CanonicalSource {
		c.JSON(http.StatusOK, model.APIResponse{
			Code:    http.StatusOK,
			Success: true,
			Message: "ignored",
		})
		return
	}

	token := req.SyncToken
	if embedded, ok := req.Record["sync_token"].(string); ok && token == "" {
		token = embedded
	}

	outcome, err := h.orchestrator.ProcessInbound(c.Request.Context(), model.DirectionAppToStore, req.Record, token)
	if err != nil {
		h.enqueueForReplay(c, model.DirectionAppToStore, req.Record)
		logger.LogBusinessError(err, requestID, clientIP, c.Request.URL.Path, http.MethodPost, map[string]interface{}{
			"operation": "sync_webhook",
		})
		internalError(c, "Failed to process webhook", err)
		return
	}

	c.JSON(http.StatusOK, model.APIResponse{
		Code:    http.StatusOK,
		Success: true,
		Message: outcome.Message,
		Data:    outcome,
	})
}

// enqueueForReplay stores a failed record for the replay worker. Its own
// failure is only logged: the caller already has an error to return.
func (h *SyncHandler) enqueueForReplay(c *gin.Context, direction model.SyncDirection, record map[string]interface{}) {
	if h.queue == nil {
		return
	}
	payload, err := json.Marshal(record)
	if err != nil {
		logger.Errorf("failed to encode record for replay: %v", err)
		return
	}

	externalID, _ := syncExternalID(record)
	item := &model.SyncQueueItem{
		Direction: direction,
		EntityID:  externalID,
		Payload:   string(payload),
		State:     model.QueuePending,
	}
	if err := h.queue.Enqueue(c.Request.Context(), item); err != nil {
		logger.Errorf("failed to enqueue record for replay: %v", err)
	}
}

// syncExternalID pulls the lead id for queue bookkeeping without
// failing the enqueue when it is absent.
func syncExternalID(record map[string]interface{}) (int64, bool) {
	for _, key := range []string{"id", "external_id", "lead_id"} {
		if v, ok := record[key].(float64); ok && v > 0 {
			return int64(v), true
		}
	}
	return 0, false
}
