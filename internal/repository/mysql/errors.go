/**
 * Repository: store errors
 * @description: typed wrapper for internal-store failures; aborts the
 *               current record's sync without aborting a surrounding
 *               sweep or batch
 * @func: StoreError
 */
package mysql

import (
	"fmt"
)

// StoreError wraps a constraint violation or connectivity failure from
// the internal relational store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// wrapStore converts a gorm error into a StoreError, passing nil through.
func wrapStore(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}
