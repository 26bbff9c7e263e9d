/**
 * Sync: queue replay worker
 * @description: replays pending queue items through the orchestrator
 *               with exponential backoff; exhausted items go terminal
 *               failed and are surfaced by the health monitor
 * @func: ReplayWorker, RunOnce, Backoff
 */
package sync

import (
	"context"
	"encoding/json"
	"time"

	"leadsync/internal/model"
	"leadsync/internal/pkg/logger"
)

// QueueStore is the replay queue surface the worker needs.
type QueueStore interface {
	Due(ctx context.Context, now time.Time, limit int) ([]model.SyncQueueItem, error)
	Complete(ctx context.Context, id uint) error
	Reschedule(ctx context.Context, id uint, attempts int, nextAttempt time.Time, lastError string) error
	MarkFailed(ctx context.Context, id uint, lastError string) error
}

// ReplayWorker drains the sync queue.
type ReplayWorker struct {
	queue       QueueStore
	orch        *Orchestrator
	backoffBase time.Duration
	backoffMax  time.Duration
	maxAttempts int
	now         func() time.Time
}

// NewReplayWorker creates a worker.
func NewReplayWorker(queue QueueStore, orch *Orchestrator, backoffBase, backoffMax time.Duration, maxAttempts int) *ReplayWorker {
	return &ReplayWorker{
		queue:       queue,
		orch:        orch,
		backoffBase: backoffBase,
		backoffMax:  backoffMax,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

// Backoff returns the delay before the attempt following `attempts`
// completed ones: base doubled per attempt, capped.
func (w *ReplayWorker) Backoff(attempts int) time.Duration {
	delay := w.backoffBase
	for i := 0; i < attempts; i++ {
		delay *= 2
		if delay >= w.backoffMax {
			return w.backoffMax
		}
	}
	return delay
}

// RunOnce replays up to limit due items. Returns how many were
// completed and how many failed (rescheduled or terminal).
func (w *ReplayWorker) RunOnce(ctx context.Context, limit int) (completed, failed int) {
	items, err := w.queue.Due(ctx, w.now(), limit)
	if err != nil {
		logger.Errorf("failed to read due sync items: %v", err)
		return 0, 0
	}

	for _, item := range items {
		if w.replay(ctx, &item) {
			completed++
		} else {
			failed++
		}
	}
	return completed, failed
}

func (w *ReplayWorker) replay(ctx context.Context, item *model.SyncQueueItem) bool {
	var record map[string]interface{}
	if err := json.Unmarshal([]byte(item.Payload), &record); err != nil {
		// Corrupt payload: replaying cannot succeed, go terminal.
		if ferr := w.queue.MarkFailed(ctx, item.ID, "unparseable payload: "+err.Error()); ferr != nil {
			logger.Errorf("failed to mark sync item %d failed: %v", item.ID, ferr)
		}
		return false
	}

	_, err := w.orch.ProcessInbound(ctx, item.Direction, record, "")
	if err == nil {
		// Success and skip both terminate the item.
		if cerr := w.queue.Complete(ctx, item.ID); cerr != nil {
			logger.Errorf("failed to complete sync item %d: %v", item.ID, cerr)
		}
		return true
	}

	attempts := item.Attempts + 1
	if attempts >= w.maxAttempts {
		if ferr := w.queue.MarkFailed(ctx, item.ID, err.Error()); ferr != nil {
			logger.Errorf("failed to mark sync item %d failed: %v", item.ID, ferr)
		}
		return false
	}

	next := w.now().Add(w.Backoff(item.Attempts))
	if rerr := w.queue.Reschedule(ctx, item.ID, attempts, next, err.Error()); rerr != nil {
		logger.Errorf("failed to reschedule sync item %d: %v", item.ID, rerr)
	}
	return false
}
