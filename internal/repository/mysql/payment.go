/**
 * Repository: payment batch persistence
 * @description: ledger inserts for the sequential path and the optional
 *               server-side atomic procedure; atomic availability is a
 *               deployment capability, probed rather than assumed
 * @func: PaymentRepository
 */
package mysql

import (
	"context"
	"encoding/json"

	"leadsync/internal/model"

	"gorm.io/gorm"
)

// atomicProcedure is the optional server-side routine applying a whole
// batch in one transaction. Not every environment deploys it.
const atomicProcedure = "sp_apply_payment_batch"

// PaymentRepository persists payment ledger rows and drives the atomic
// batch procedure when available.
type PaymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a payment repository.
func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// InsertLedger writes one ledger row for an applied item.
func (r *PaymentRepository) InsertLedger(ctx context.Context, entry *model.PaymentLedgerEntry) error {
	return wrapStore("insert ledger row", r.db.WithContext(ctx).Create(entry).Error)
}

// AtomicAvailable probes information_schema for the batch procedure.
// A probe failure counts as "unavailable", never as an error: the
// coordinator degrades to the sequential path instead.
func (r *PaymentRepository) AtomicAvailable(ctx context.Context) bool {
	var count int64
	err := r.db.WithContext(ctx).Raw(
		"SELECT COUNT(*) FROM information_schema.ROUTINES WHERE ROUTINE_SCHEMA = DATABASE() AND ROUTINE_NAME = ?",
		atomicProcedure,
	).Scan(&count).Error
	return err == nil && count > 0
}

// ApplyAtomic invokes the server-side procedure with the full item list
// and the shared batch id. All-or-nothing: any error means no item was
// applied.
func (r *PaymentRepository) ApplyAtomic(ctx context.Context, batchID string, items []model.PaymentItem) error {
	payload, err := json.Marshal(items)
	if err != nil {
		return wrapStore("encode batch items", err)
	}
	err = r.db.WithContext(ctx).Exec(
		"CALL "+atomicProcedure+"(?, ?)",
		batchID, string(payload),
	).Error
	return wrapStore("atomic batch procedure", err)
}
