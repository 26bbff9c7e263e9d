/**
 * Repository: leads
 * @description: lead data access keyed by the CRM-assigned external id;
 *               the uniqueness constraint on external_id is the only
 *               serialization point between concurrent sync requests
 * @func: LeadRepository
 */
package mysql

import (
	"context"
	"errors"
	"time"

	"leadsync/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LeadRepository provides lead data access without business logic.
type LeadRepository struct {
	db *gorm.DB
}

// NewLeadRepository creates a lead repository.
func NewLeadRepository(db *gorm.DB) *LeadRepository {
	return &LeadRepository{db: db}
}

// GetByExternalID fetches a lead by its CRM-assigned id.
// Returns (nil, nil) when no row exists; the service layer decides what
// absence means.
func (r *LeadRepository) GetByExternalID(ctx context.Context, externalID int64) (*model.Lead, error) {
	var lead model.Lead
	err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&lead).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, wrapStore("get lead", err)
	}
	return &lead, nil
}

// Upsert inserts or fully replaces the row for lead.ExternalID.
// Whole-record replacement is intentional: conflict resolution is
// last-write-wins over the entire record, not a field merge.
func (r *LeadRepository) Upsert(ctx context.Context, lead *model.Lead) (*model.Lead, error) {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "stage", "pipeline_id", "agent_name", "value",
			"scheduled_at", "confirmed", "payment_done", "batch_id",
			"raw", "sync_source", "last_synced_at", "updated_at",
		}),
	}).Create(lead).Error
	if err != nil {
		return nil, wrapStore("upsert lead", err)
	}
	return r.GetByExternalID(ctx, lead.ExternalID)
}

// ConfirmPayment marks the lead's confirmation fields for one applied
// batch item. Used by the sequential fallback path.
func (r *LeadRepository) ConfirmPayment(ctx context.Context, externalID int64, batchID string) error {
	result := r.db.WithContext(ctx).Model(&model.Lead{}).
		Where("external_id = ?", externalID).
		Updates(map[string]interface{}{
			"payment_done": true,
			"confirmed":    true,
			"batch_id":     batchID,
			"updated_at":   time.Now(),
		})
	if result.Error != nil {
		return wrapStore("confirm payment", result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStore("confirm payment", gorm.ErrRecordNotFound)
	}
	return nil
}

// StampSynced records a successful engine write on the row: the
// canonical source tag plus last_synced_at, which together gate loop
// prevention on the next inbound echo.
func (r *LeadRepository) StampSynced(ctx context.Context, externalID int64, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&model.Lead{}).
		Where("external_id = ?", externalID).
		Updates(map[string]interface{}{
			"sync_source":    model.CanonicalSource,
			"last_synced_at": at,
		}).Error
	return wrapStore("stamp synced", err)
}
