/**
 * Utils: shared helpers
 * @description: request-scoped identifiers and small conversions used by
 *               handlers and services
 * @func: GenerateRequestID, GenerateBatchID, TruncateString
 */
package utils

import (
	"github.com/google/uuid"
)

// GenerateRequestID returns a fresh request correlation id.
func GenerateRequestID() string {
	return uuid.NewString()
}

// GenerateBatchID returns a batch id for payment batch mutations when the
// caller did not supply one.
func GenerateBatchID() string {
	return uuid.NewString()
}

// TruncateString caps a string at n bytes; used before persisting
// upstream error bodies into bounded columns.
func TruncateString(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
