/**
 * Model: batch payment mutation
 * @description: the payment items applied as one logical transaction and
 *               the per-batch result with partial-failure accounting
 * @func: PaymentItem, PaymentLedgerEntry, BatchResult, BatchError
 */
package model

import (
	"time"
)

// PaymentItem is one row of a batch mutation: the lead it confirms and
// the computed monetary fields for its ledger entry.
type PaymentItem struct {
	LeadID     int64   `json:"lead_id" binding:"required"`
	Gross      float64 `json:"gross"`
	Net        float64 `json:"net"`
	Commission float64 `json:"commission"`
}

// PaymentLedgerEntry is the persisted ledger row for one applied item.
type PaymentLedgerEntry struct {
	ID         uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	ExternalID int64     `json:"external_id" gorm:"index;not null;comment:lead external id"`
	BatchID    string    `json:"batch_id" gorm:"size:64;index;not null"`
	Gross      float64   `json:"gross"`
	Net        float64   `json:"net"`
	Commission float64   `json:"commission"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName names the payment ledger table.
func (PaymentLedgerEntry) TableName() string {
	return "payment_ledger"
}

// BatchMethod reports which execution path applied a batch.
type BatchMethod string

const (
	// BatchMethodAtomic means the server-side procedure applied all
	// items in one transaction.
	BatchMethodAtomic BatchMethod = "atomic"
	// BatchMethodFallback means items were applied sequentially with
	// per-item error capture; concurrent readers may observe partial
	// batches.
	BatchMethodFallback BatchMethod = "fallback"
)

// BatchError captures one failed item in a fallback batch.
type BatchError struct {
	Index  int    `json:"index"`
	LeadID int64  `json:"lead_id"`
	Step   string `json:"step"` // "confirm" or "ledger"
	Error  string `json:"error"`
}

// BatchResult is the outcome of one batch mutation.
// Invariant: SuccessCount + ErrorCount equals the number of items.
type BatchResult struct {
	BatchID      string       `json:"batch_id"`
	SuccessCount int          `json:"success_count"`
	ErrorCount   int          `json:"error_count"`
	Errors       []BatchError `json:"errors"`
	Method       BatchMethod  `json:"method"`
}
