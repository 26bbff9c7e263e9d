/**
 * Sync: batch mutation coordinator
 * @description: applies a payment batch as one logical transaction,
 *               preferring the server-side atomic procedure and
 *               degrading to sequential per-item application with
 *               partial-failure accounting
 * @func: BatchCoordinator, ApplyBatch
 */
package sync

import (
	"context"
	"sync"
	"time"

	"leadsync/internal/model"
	"leadsync/internal/pkg/logger"
	"leadsync/internal/pkg/utils"
)

// BatchStore is the persistence capability pair behind the coordinator:
// the optional atomic path and the ledger insert of the sequential one.
type BatchStore interface {
	AtomicAvailable(ctx context.Context) bool
	ApplyAtomic(ctx context.Context, batchID string, items []model.PaymentItem) error
	InsertLedger(ctx context.Context, entry *model.PaymentLedgerEntry) error
}

// LeadConfirmer marks a lead's confirmation fields for one applied item.
type LeadConfirmer interface {
	ConfirmPayment(ctx context.Context, externalID int64, batchID string) error
}

// BatchCoordinator applies payment batches. The atomic capability is
// probed once per process, not rediscovered through exceptions on every
// call; a genuine atomic-path error is logged as an error and the batch
// still degrades to the sequential path.
type BatchCoordinator struct {
	store     BatchStore
	leads     LeadConfirmer
	events    EventLog
	enabled   bool // config override; false forces the sequential path
	probeOnce sync.Once
	atomicOK  bool
	now       func() time.Time
}

// NewBatchCoordinator creates a coordinator. enabled gates the atomic
// path wholesale for environments known not to deploy the procedure.
func NewBatchCoordinator(store BatchStore, leads LeadConfirmer, events EventLog, enabled bool) *BatchCoordinator {
	return &BatchCoordinator{
		store:   store,
		leads:   leads,
		events:  events,
		enabled: enabled,
		now:     time.Now,
	}
}

// atomicAvailable resolves the capability once.
func (c *BatchCoordinator) atomicAvailable(ctx context.Context) bool {
	if !c.enabled {
		return false
	}
	c.probeOnce.Do(func() {
		c.atomicOK = c.store.AtomicAvailable(ctx)
		if !c.atomicOK {
			logger.Warn("atomic batch procedure not deployed, batches will apply sequentially")
		}
	})
	return c.atomicOK
}

// ApplyBatch applies all items under one batch id.
// Invariant: SuccessCount + ErrorCount == len(items), on either path.
// HTTP callers receive 200 even on partial failure and inspect
// ErrorCount themselves.
func (c *BatchCoordinator) ApplyBatch(ctx context.Context, batchID string, items []model.PaymentItem) *model.BatchResult {
	start := c.now()
	if batchID == "" {
		batchID = utils.GenerateBatchID()
	}

	result := &model.BatchResult{
		BatchID: batchID,
		Errors:  []model.BatchError{},
		Method:  model.BatchMethodFallback,
	}

	if c.atomicAvailable(ctx) {
		result.Method = model.BatchMethodAtomic
		if len(items) == 0 {
			c.logBatch(ctx, result, start)
			return result
		}
		if err := c.store.ApplyAtomic(ctx, batchID, items); err == nil {
			result.SuccessCount = len(items)
			c.logBatch(ctx, result, start)
			return result
		} else {
			// The capability exists; this is a real failure, not an
			// availability miss. Log it as such, then degrade.
			logger.Errorf("atomic batch %s failed, falling back to sequential apply: %v", batchID, err)
			result.Method = model.BatchMethodFallback
		}
	}

	c.applySequential(ctx, batchID, items, result)
	c.logBatch(ctx, result, start)
	return result
}

// applySequential iterates items one by one. Each item's failure is
// captured and counted without aborting the rest; concurrent readers
// may observe a partially applied batch on this path.
func (c *BatchCoordinator) applySequential(ctx context.Context, batchID string, items []model.PaymentItem, result *model.BatchResult) {
	for i, item := range items {
		if err := c.leads.ConfirmPayment(ctx, item.LeadID, batchID); err != nil {
			result.ErrorCount++
			result.Errors = append(result.Errors, model.BatchError{
				Index:  i,
				LeadID: item.LeadID,
				Step:   "confirm",
				Error:  err.Error(),
			})
			continue
		}

		entry := &model.PaymentLedgerEntry{
			ExternalID: item.LeadID,
			BatchID:    batchID,
			Gross:      item.Gross,
			Net:        item.Net,
			Commission: item.Commission,
			CreatedAt:  c.now(),
		}
		if err := c.store.InsertLedger(ctx, entry); err != nil {
			result.ErrorCount++
			result.Errors = append(result.Errors, model.BatchError{
				Index:  i,
				LeadID: item.LeadID,
				Step:   "ledger",
				Error:  err.Error(),
			})
			continue
		}

		result.SuccessCount++
	}
}

// logBatch records the batch outcome as one sync event.
func (c *BatchCoordinator) logBatch(ctx context.Context, result *model.BatchResult, start time.Time) {
	total := result.SuccessCount + result.ErrorCount

	status := model.SyncStatusSuccess
	switch {
	case total > 0 && result.ErrorCount == total:
		status = model.SyncStatusError
	case result.ErrorCount > 0:
		status = model.SyncStatusPartial
	}

	duration := c.now().Sub(start)
	event := &model.SyncEvent{
		Direction:  model.DirectionBatch,
		Status:     status,
		DurationMS: duration.Milliseconds(),
		Message:    string(result.Method),
		CreatedAt:  c.now(),
	}
	if err := c.events.Append(ctx, event); err != nil {
		logger.Errorf("failed to append batch event for %s: %v", result.BatchID, err)
	}

	logger.LogSyncAttempt(string(model.DirectionBatch), 0, string(status), duration, string(result.Method), map[string]interface{}{
		"batch_id":      result.BatchID,
		"success_count": result.SuccessCount,
		"error_count":   result.ErrorCount,
	})
}
