/**
 * Sync: conflict resolver
 * @description: whole-record last-write-wins between an incoming record
 *               and the stored row; no field-level merge
 * @func: Resolver, UpdatedAtOf, parseFlexibleTime
 */
package sync

import (
	"time"
)

// updatedAtCandidates is the ordered list of fields inspected to derive
// an incoming record's mutation time. Upstream payloads are not
// consistent about which one they carry.
var updatedAtCandidates = []string{"updated_at", "updated", "modificado", "criado"}

// flexibleLayouts are tried in order when a candidate value is a string.
var flexibleLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// UpdatedAtOf derives the mutation timestamp of a loosely shaped record:
// the first candidate field that parses wins. When every candidate is
// absent or malformed the current time is returned, which makes a record
// with broken timestamps look newer than it is. That sharp edge is
// inherited behavior the rest of the pipeline depends on; do not
// "fix" it here.
func UpdatedAtOf(record map[string]interface{}) time.Time {
	return updatedAtOf(record, time.Now)
}

func updatedAtOf(record map[string]interface{}, now func() time.Time) time.Time {
	for _, field := range updatedAtCandidates {
		value, ok := record[field]
		if !ok {
			continue
		}
		if t := parseFlexibleTime(value); t != nil {
			return *t
		}
		// Malformed value: fall through to the next candidate.
	}
	return now()
}

// parseFlexibleTime normalizes a date-like value, returning nil when it
// cannot be interpreted.
func parseFlexibleTime(value interface{}) *time.Time {
	switch v := value.(type) {
	case time.Time:
		return &v
	case *time.Time:
		return v
	case string:
		if v == "" {
			return nil
		}
		for _, layout := range flexibleLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return &t
			}
		}
		return nil
	case float64:
		// Numeric timestamps arrive as epoch seconds or milliseconds.
		if v <= 0 {
			return nil
		}
		sec := int64(v)
		if sec > 1e12 {
			t := time.UnixMilli(sec).UTC()
			return &t
		}
		t := time.Unix(sec, 0).UTC()
		return &t
	case int64:
		return parseFlexibleTime(float64(v))
	default:
		return nil
	}
}

// Resolver applies last-write-wins conflict resolution.
type Resolver struct {
	now func() time.Time
}

// NewResolver creates a resolver.
func NewResolver() *Resolver {
	return &Resolver{now: time.Now}
}

// IncomingWins decides whether the incoming record replaces the stored
// row. Only strictly older incoming records lose; an equal timestamp is
// treated as "incoming wins" so re-applying the same record is
// idempotent.
func (r *Resolver) IncomingWins(incoming map[string]interface{}, existingUpdatedAt time.Time) (bool, time.Time) {
	incomingAt := updatedAtOf(incoming, r.now)
	return !incomingAt.Before(existingUpdatedAt), incomingAt
}
