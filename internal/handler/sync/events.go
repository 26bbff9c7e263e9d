/**
 * Handler: sync event log
 * @description: read-only operator view over the append-only event log,
 *               newest first, with a rolling error count for dashboards
 * @func: Events
 */
package sync

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"leadsync/internal/model"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 200
)

var knownDirections = map[model.SyncDirection]bool{
	model.DirectionCRMToStore: true,
	model.DirectionStoreToCRM: true,
	model.DirectionAppToStore: true,
	model.DirectionBatch:      true,
	model.DirectionHealth:     true,
	model.DirectionPipeline:   true,
}

// Events handles GET /api/v1/sync/events?direction=...&limit=....
func (h *SyncHandler) Events(c *gin.Context) {
	direction := model.SyncDirection(c.DefaultQuery("direction", string(model.DirectionCRMToStore)))
	if !knownDirections[direction] {
		badRequest(c, "Unknown sync direction", nil)
		return
	}

	limit := defaultEventLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			badRequest(c, "Invalid limit", err)
			return
		}
		limit = parsed
	}
	if limit > maxEventLimit {
		limit = maxEventLimit
	}

	events, err := h.events.RecentByDirection(c.Request.Context(), direction, limit)
	if err != nil {
		internalError(c, "Failed to read event log", err)
		return
	}

	errorCount, err := h.events.ErrorCountSince(c.Request.Context(), time.Now().Add(-24*time.Hour))
	if err != nil {
		internalError(c, "Failed to count errors", err)
		return
	}

	c.JSON(http.StatusOK, model.APIResponse{
		Code:    http.StatusOK,
		Success: true,
		Data: gin.H{
			"direction":       direction,
			"events":          events,
			"error_count_24h": errorCount,
		},
	})
}
