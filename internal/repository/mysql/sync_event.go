/**
 * Repository: sync event log
 * @description: append-only access to sync_events; rows are never
 *               updated or deleted here
 * @func: SyncEventRepository
 */
package mysql

import (
	"context"
	"time"

	"leadsync/internal/model"

	"gorm.io/gorm"
)

// SyncEventRepository appends and reads synchronization events.
type SyncEventRepository struct {
	db *gorm.DB
}

// NewSyncEventRepository creates a sync event repository.
func NewSyncEventRepository(db *gorm.DB) *SyncEventRepository {
	return &SyncEventRepository{db: db}
}

// Append records one synchronization attempt.
func (r *SyncEventRepository) Append(ctx context.Context, event *model.SyncEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	return wrapStore("append sync event", r.db.WithContext(ctx).Create(event).Error)
}

// RecentByDirection returns the newest events for one direction, most
// recent first. Used by health diagnostics.
func (r *SyncEventRepository) RecentByDirection(ctx context.Context, direction model.SyncDirection, limit int) ([]model.SyncEvent, error) {
	var events []model.SyncEvent
	err := r.db.WithContext(ctx).
		Where("direction = ?", direction).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, wrapStore("recent sync events", err)
	}
	return events, nil
}

// ErrorCountSince counts error events across all directions since the
// given time.
func (r *SyncEventRepository) ErrorCountSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.SyncEvent{}).
		Where("status = ? AND created_at >= ?", model.SyncStatusError, since).
		Count(&count).Error
	if err != nil {
		return 0, wrapStore("count sync errors", err)
	}
	return count, nil
}
