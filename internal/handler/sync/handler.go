/**
 * Handler: sync endpoints
 * @description: HTTP surface of the synchronization engine; binds and
 *               validates request bodies, maps service outcomes onto the
 *               APIResponse envelope, never leaks stack traces
 * @func: SyncHandler and per-endpoint methods
 */
package sync

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"leadsync/internal/model"
	syncservice "leadsync/internal/service/sync"
)

// InboundProcessor runs one record through the sync state machine.
type InboundProcessor interface {
	ProcessInbound(ctx context.Context, direction model.SyncDirection, record map[string]interface{}, token string) (*syncservice.Outcome, error)
}

// SweepRunner drives a full CRM ingestion sweep.
type SweepRunner interface {
	Run(ctx context.Context) (*model.SweepResult, error)
}

// BatchApplier applies a payment batch.
type BatchApplier interface {
	ApplyBatch(ctx context.Context, batchID string, items []model.PaymentItem) *model.BatchResult
}

// HealthChecker produces the sync health verdict.
type HealthChecker interface {
	Check(ctx context.Context) *model.SystemHealth
}

// PipelineRebuilder rebuilds the stage map from the remote CRM.
type PipelineRebuilder interface {
	Rebuild(ctx context.Context) (*model.PipelineDiscoveryResult, error)
}

// PushEnqueuer records an outbound push for later delivery.
type PushEnqueuer interface {
	EnqueuePush(ctx context.Context, externalID int64, fields map[string]interface{}) error
}

// ReplayEnqueuer stores a record that failed inline processing for the
// replay worker.
type ReplayEnqueuer interface {
	Enqueue(ctx context.Context, item *model.SyncQueueItem) error
}

// EventReader reads the append-only sync event log.
type EventReader interface {
	RecentByDirection(ctx context.Context, direction model.SyncDirection, limit int) ([]model.SyncEvent, error)
	ErrorCountSince(ctx context.Context, since time.Time) (int64, error)
}

// SyncHandler exposes the synchronization engine over HTTP.
type SyncHandler struct {
	orchestrator InboundProcessor
	sweeper      SweepRunner
	batches      BatchApplier
	health       HealthChecker
	pipelines    PipelineRebuilder
	outbox       PushEnqueuer
	queue        ReplayEnqueuer
	events       EventReader
}

// NewSyncHandler creates the handler. queue may be nil; inline failures
// are then surfaced without a replay fallback.
func NewSyncHandler(
	orchestrator InboundProcessor,
	sweeper SweepRunner,
	batches BatchApplier,
	health HealthChecker,
	pipelines PipelineRebuilder,
	outbox PushEnqueuer,
	queue ReplayEnqueuer,
	events EventReader,
) *SyncHandler {
	return &SyncHandler{
		orchestrator: orchestrator,
		sweeper:      sweeper,
		batches:      batches,
		health:       health,
		pipelines:    pipelines,
		outbox:       outbox,
		queue:        queue,
		events:       events,
	}
}

func badRequest(c *gin.Context, message string, err error) {
	response := model.APIResponse{
		Code:    http.StatusBadRequest,
		Success: false,
		Message: message,
	}
	if err != nil {
		response.Error = err.Error()
	}
	c.JSON(http.StatusBadRequest, response)
}

func internalError(c *gin.Context, message string, err error) {
	response := model.APIResponse{
		Code:    http.StatusInternalServerError,
		Success: false,
		Message: message,
	}
	if err != nil {
		response.Error = err.Error()
	}
	c.JSON(http.StatusInternalServerError, response)
}
