/**
 * Repository: outbound push outbox
 * @description: durable outbox rows decoupling "local mutation
 *               succeeded" from "remote CRM is informed"
 * @func: OutboxRepository
 */
package mysql

import (
	"context"
	"time"

	"leadsync/internal/model"
	"leadsync/internal/pkg/utils"

	"gorm.io/gorm"
)

// OutboxRepository manages sync_outbox rows.
type OutboxRepository struct {
	db *gorm.DB
}

// NewOutboxRepository creates an outbox repository.
func NewOutboxRepository(db *gorm.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// Enqueue stores a pending push.
func (r *OutboxRepository) Enqueue(ctx context.Context, item *model.OutboxItem) error {
	item.State = model.OutboxPending
	return wrapStore("enqueue outbox item", r.db.WithContext(ctx).Create(item).Error)
}

// Pending returns pending pushes, oldest first.
func (r *OutboxRepository) Pending(ctx context.Context, limit int) ([]model.OutboxItem, error) {
	var items []model.OutboxItem
	err := r.db.WithContext(ctx).
		Where("state = ?", model.OutboxPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, wrapStore("pending outbox items", err)
	}
	return items, nil
}

// MarkSent finalizes a delivered push.
func (r *OutboxRepository) MarkSent(ctx context.Context, id uint, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&model.OutboxItem{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"state":   model.OutboxSent,
			"sent_at": at,
		}).Error
	return wrapStore("mark outbox sent", err)
}

// RecordFailure bumps the attempt counter; after maxAttempts the item
// goes terminal failed and is only surfaced by diagnostics.
func (r *OutboxRepository) RecordFailure(ctx context.Context, id uint, attempts, maxAttempts int, lastError string) error {
	updates := map[string]interface{}{
		"attempts":   attempts,
		"last_error": utils.TruncateString(lastError, maxErrorLen),
	}
	if attempts >= maxAttempts {
		updates["state"] = model.OutboxFailed
	}
	err := r.db.WithContext(ctx).Model(&model.OutboxItem{}).
		Where("id = ?", id).
		Updates(updates).Error
	return wrapStore("record outbox failure", err)
}
