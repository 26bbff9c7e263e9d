/**
 * Repository: sync replay queue
 * @description: pending/failed units of work awaiting replay; the age of
 *               the oldest pending item is the primary backlog signal
 * @func: SyncQueueRepository
 */
package mysql

import (
	"context"
	"time"

	"leadsync/internal/model"
	"leadsync/internal/pkg/utils"

	"gorm.io/gorm"
)

// last_error column width.
const maxErrorLen = 1000

// SyncQueueRepository manages sync_queue rows.
type SyncQueueRepository struct {
	db *gorm.DB
}

// NewSyncQueueRepository creates a sync queue repository.
func NewSyncQueueRepository(db *gorm.DB) *SyncQueueRepository {
	return &SyncQueueRepository{db: db}
}

// Enqueue adds a pending item.
func (r *SyncQueueRepository) Enqueue(ctx context.Context, item *model.SyncQueueItem) error {
	item.State = model.QueuePending
	return wrapStore("enqueue sync item", r.db.WithContext(ctx).Create(item).Error)
}

// Due returns pending items whose next attempt time has passed, oldest
// first, capped at limit.
func (r *SyncQueueRepository) Due(ctx context.Context, now time.Time, limit int) ([]model.SyncQueueItem, error) {
	var items []model.SyncQueueItem
	err := r.db.WithContext(ctx).
		Where("state = ? AND (next_attempt_at IS NULL OR next_attempt_at <= ?)", model.QueuePending, now).
		Order("created_at ASC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, wrapStore("due sync items", err)
	}
	return items, nil
}

// Complete removes a successfully replayed item.
func (r *SyncQueueRepository) Complete(ctx context.Context, id uint) error {
	return wrapStore("complete sync item", r.db.WithContext(ctx).Delete(&model.SyncQueueItem{}, id).Error)
}

// Reschedule bumps the attempt counter and sets the next attempt time,
// keeping the item pending.
func (r *SyncQueueRepository) Reschedule(ctx context.Context, id uint, attempts int, nextAttempt time.Time, lastError string) error {
	err := r.db.WithContext(ctx).Model(&model.SyncQueueItem{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts":        attempts,
			"next_attempt_at": nextAttempt,
			"last_error":      utils.TruncateString(lastError, maxErrorLen),
		}).Error
	return wrapStore("reschedule sync item", err)
}

// MarkFailed moves an exhausted item into the terminal failed state.
func (r *SyncQueueRepository) MarkFailed(ctx context.Context, id uint, lastError string) error {
	err := r.db.WithContext(ctx).Model(&model.SyncQueueItem{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"state":      model.QueueFailed,
			"last_error": utils.TruncateString(lastError, maxErrorLen),
		}).Error
	return wrapStore("fail sync item", err)
}

// Stats summarizes the backlog for health diagnostics.
func (r *SyncQueueRepository) Stats(ctx context.Context, now time.Time) (*model.QueueHealth, error) {
	var stats model.QueueHealth

	if err := r.db.WithContext(ctx).Model(&model.SyncQueueItem{}).
		Where("state = ?", model.QueuePending).
		Count(&stats.PendingCount).Error; err != nil {
		return nil, wrapStore("count pending items", err)
	}
	if err := r.db.WithContext(ctx).Model(&model.SyncQueueItem{}).
		Where("state = ?", model.QueueFailed).
		Count(&stats.FailedCount).Error; err != nil {
		return nil, wrapStore("count failed items", err)
	}

	if stats.PendingCount > 0 {
		var oldest model.SyncQueueItem
		err := r.db.WithContext(ctx).
			Where("state = ?", model.QueuePending).
			Order("created_at ASC").
			First(&oldest).Error
		if err == nil {
			stats.OldestPendingSec = int64(now.Sub(oldest.CreatedAt).Seconds())
		} else if err != gorm.ErrRecordNotFound {
			return nil, wrapStore("oldest pending item", err)
		}
	}
	return &stats, nil
}
