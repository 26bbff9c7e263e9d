/**
 * Model: synchronization records
 * @description: the append-only sync event log, the replay queue, the
 *               outbound push outbox and the per-direction last-sync
 *               status row
 * @func: SyncEvent, SyncQueueItem, OutboxItem, LastSyncStatus
 */
package model

import (
	"time"
)

// SyncDirection names a synchronization channel.
type SyncDirection string

const (
	DirectionCRMToStore SyncDirection = "crm_to_store"
	DirectionStoreToCRM SyncDirection = "store_to_crm"
	DirectionAppToStore SyncDirection = "app_to_store"
	DirectionBatch      SyncDirection = "batch_mutation"
	DirectionHealth     SyncDirection = "health_check"
	DirectionPipeline   SyncDirection = "pipeline_discovery"
)

// SyncStatus is the outcome of one synchronization attempt.
type SyncStatus string

const (
	SyncStatusSuccess SyncStatus = "success"
	SyncStatusError   SyncStatus = "error"
	SyncStatusPartial SyncStatus = "partial_success"
	SyncStatusSkipped SyncStatus = "skipped"
)

// SyncEvent is an immutable fact about one synchronization attempt.
// Rows are created once and never mutated or deleted by this engine;
// retention is an external concern.
type SyncEvent struct {
	ID         uint          `json:"id" gorm:"primaryKey;autoIncrement"`
	Direction  SyncDirection `json:"direction" gorm:"size:30;index;not null"`
	EntityID   int64         `json:"entity_id" gorm:"index;comment:external lead id, 0 for channel-level events"`
	Status     SyncStatus    `json:"status" gorm:"size:20;index;not null"`
	DurationMS int64         `json:"duration_ms"`
	Message    string        `json:"message,omitempty" gorm:"size:500"`
	Error      string        `json:"error,omitempty" gorm:"type:text"`
	Payload    string        `json:"-" gorm:"type:json;comment:diagnostic payload, health snapshots only"`
	CreatedAt  time.Time     `json:"created_at" gorm:"index"`
}

// TableName names the sync event log table.
func (SyncEvent) TableName() string {
	return "sync_events"
}

// QueueState is the replayable state of a queued sync item.
type QueueState string

const (
	QueuePending QueueState = "pending"
	QueueFailed  QueueState = "failed"
)

// SyncQueueItem is a unit of work awaiting replay. The age of the
// oldest pending item is the primary backlog signal.
type SyncQueueItem struct {
	ID            uint          `json:"id" gorm:"primaryKey;autoIncrement"`
	Direction     SyncDirection `json:"direction" gorm:"size:30;not null"`
	EntityID      int64         `json:"entity_id" gorm:"index"`
	Payload       string        `json:"payload" gorm:"type:json;not null"`
	State         QueueState    `json:"state" gorm:"size:10;index;default:pending"`
	Attempts      int           `json:"attempts" gorm:"default:0"`
	NextAttemptAt *time.Time    `json:"next_attempt_at" gorm:"index"`
	LastError     string        `json:"last_error,omitempty" gorm:"size:1000"`
	CreatedAt     time.Time     `json:"created_at" gorm:"index"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// TableName names the sync queue table.
func (SyncQueueItem) TableName() string {
	return "sync_queue"
}

// OutboxState is the lifecycle state of an outbound push row.
type OutboxState string

const (
	OutboxPending OutboxState = "pending"
	OutboxSent    OutboxState = "sent"
	OutboxFailed  OutboxState = "failed"
)

// OutboxItem is a durable record of an outbound push to the CRM.
// Local mutations enqueue one; the pusher drains them. The caller of
// the mutation never waits for, and is never failed by, the push.
type OutboxItem struct {
	ID         uint        `json:"id" gorm:"primaryKey;autoIncrement"`
	ExternalID int64       `json:"external_id" gorm:"index;not null"`
	Fields     string      `json:"fields" gorm:"type:json;not null;comment:field patch for the CRM update"`
	Token      string      `json:"-" gorm:"size:512;comment:echo write-token minted for this push"`
	State      OutboxState `json:"state" gorm:"size:10;index;default:pending"`
	Attempts   int         `json:"attempts" gorm:"default:0"`
	LastError  string      `json:"last_error,omitempty" gorm:"size:1000"`
	CreatedAt  time.Time   `json:"created_at" gorm:"index"`
	SentAt     *time.Time  `json:"sent_at"`
}

// TableName names the outbox table.
func (OutboxItem) TableName() string {
	return "sync_outbox"
}

// LastSyncStatus records the outcome of the most recent sweep per
// direction; the health monitor reads the newest row.
type LastSyncStatus struct {
	ID         uint          `json:"id" gorm:"primaryKey;autoIncrement"`
	Direction  SyncDirection `json:"direction" gorm:"size:30;index;not null"`
	Success    bool          `json:"success"`
	Message    string        `json:"message,omitempty" gorm:"size:500"`
	FinishedAt time.Time     `json:"finished_at" gorm:"index"`
}

// TableName names the last-sync status table.
func (LastSyncStatus) TableName() string {
	return "sync_status"
}
