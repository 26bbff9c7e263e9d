/**
 * Repository: last-sync status
 * @description: per-direction sweep outcomes read by the health monitor
 * @func: SyncStatusRepository
 */
package mysql

import (
	"context"
	"errors"

	"leadsync/internal/model"

	"gorm.io/gorm"
)

// SyncStatusRepository manages sync_status rows.
type SyncStatusRepository struct {
	db *gorm.DB
}

// NewSyncStatusRepository creates a sync status repository.
func NewSyncStatusRepository(db *gorm.DB) *SyncStatusRepository {
	return &SyncStatusRepository{db: db}
}

// Record appends one sweep outcome.
func (r *SyncStatusRepository) Record(ctx context.Context, status *model.LastSyncStatus) error {
	return wrapStore("record sync status", r.db.WithContext(ctx).Create(status).Error)
}

// Latest returns the newest status row across directions, or (nil, nil)
// when no sweep has run yet.
func (r *SyncStatusRepository) Latest(ctx context.Context) (*model.LastSyncStatus, error) {
	var status model.LastSyncStatus
	err := r.db.WithContext(ctx).Order("finished_at DESC").First(&status).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, wrapStore("latest sync status", err)
	}
	return &status, nil
}
