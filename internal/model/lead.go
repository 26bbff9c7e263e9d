/**
 * Model: lead
 * @description: canonical lead record mirrored across the CRM, the
 *               internal store and the Gestão Scouter application
 * @func: Lead struct, SyncSource enum
 */
package model

import (
	"time"
)

// SyncSource identifies which system produced the last mutation of a row.
type SyncSource string

const (
	SourceCRM         SyncSource = "crm"
	SourceInternal    SyncSource = "internal"
	SourceExternalApp SyncSource = "external_app"
	SourceCSVImport   SyncSource = "csv_import"
)

// CanonicalSource is the marker this engine stamps onto rows it writes.
// An inbound record still carrying this marker with a fresh
// last_synced_at is treated as an echo of our own push.
const CanonicalSource = SourceCRM

// Lead is the canonical business entity. Exactly one row exists per
// CRM-assigned external id.
type Lead struct {
	ID           uint       `json:"id" gorm:"primaryKey;autoIncrement"`
	ExternalID   int64      `json:"external_id" gorm:"uniqueIndex;not null;comment:CRM-assigned lead id"`
	Name         string     `json:"name" gorm:"size:255"`
	Stage        string     `json:"stage" gorm:"size:50;index;comment:canonical pipeline stage"`
	PipelineID   int64      `json:"pipeline_id" gorm:"index;comment:remote pipeline id"`
	AgentName    string     `json:"agent_name" gorm:"size:100;comment:assigned scouter/telemarketing agent"`
	Value        float64    `json:"value" gorm:"comment:negotiated monetary value"`
	ScheduledAt  *time.Time `json:"scheduled_at" gorm:"comment:visit/closing schedule"`
	Confirmed    bool       `json:"confirmed" gorm:"default:false;comment:attendance confirmed"`
	PaymentDone  bool       `json:"payment_done" gorm:"default:false;comment:payment confirmed by a batch mutation"`
	BatchID      string     `json:"batch_id,omitempty" gorm:"size:64;index;comment:last payment batch applied"`
	Raw          string     `json:"-" gorm:"type:json;comment:last raw upstream payload"`
	SyncSource   SyncSource `json:"sync_source" gorm:"size:20;index"`
	LastSyncedAt *time.Time `json:"last_synced_at" gorm:"comment:most recent successful write by this engine"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TableName names the leads table.
func (Lead) TableName() string {
	return "leads"
}

// ValidSource reports whether s is one of the known sync sources.
func ValidSource(s SyncSource) bool {
	switch s {
	case SourceCRM, SourceInternal, SourceExternalApp, SourceCSVImport:
		return true
	}
	return false
}
