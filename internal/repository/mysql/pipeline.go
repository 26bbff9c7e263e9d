/**
 * Repository: pipeline configs
 * @description: one config row per discovered remote pipeline
 * @func: PipelineRepository
 */
package mysql

import (
	"context"
	"errors"

	"leadsync/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PipelineRepository manages pipeline_configs rows.
type PipelineRepository struct {
	db *gorm.DB
}

// NewPipelineRepository creates a pipeline repository.
func NewPipelineRepository(db *gorm.DB) *PipelineRepository {
	return &PipelineRepository{db: db}
}

// Upsert inserts or updates the row for cfg.RemoteID and reports whether
// a new row was created.
func (r *PipelineRepository) Upsert(ctx context.Context, cfg *model.PipelineConfig) (created bool, err error) {
	var existing model.PipelineConfig
	err = r.db.WithContext(ctx).Where("remote_id = ?", cfg.RemoteID).First(&existing).Error
	notFound := errors.Is(err, gorm.ErrRecordNotFound)
	if err != nil && !notFound {
		return false, wrapStore("get pipeline config", err)
	}

	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "remote_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "stage_map", "updated_at"}),
	}).Create(cfg).Error
	if err != nil {
		return false, wrapStore("upsert pipeline config", err)
	}
	return notFound, nil
}

// All returns every stored pipeline config.
func (r *PipelineRepository) All(ctx context.Context) ([]model.PipelineConfig, error) {
	var configs []model.PipelineConfig
	if err := r.db.WithContext(ctx).Find(&configs).Error; err != nil {
		return nil, wrapStore("list pipeline configs", err)
	}
	return configs, nil
}
