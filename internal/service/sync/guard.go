/**
 * Sync: loop prevention guard
 * @description: decides whether an inbound update is an echo of a write
 *               this engine just produced
 * @func: LoopGuard
 */
package sync

import (
	"time"

	"leadsync/internal/model"
)

// LoopGuard suppresses echo loops with a wall-clock heuristic: an
// inbound record still carrying our canonical source tag within the
// window is our own push landing back as a webhook.
//
// The window is a tradeoff: short enough to accept genuine rapid edits
// from the same source, long enough to absorb the push round-trip. A
// legitimate external edit inside the window is incorrectly dropped;
// the signed write-token (token.go) disambiguates when the peer relays
// it, and this guard remains the fallback for peers that do not.
type LoopGuard struct {
	window time.Duration
}

// NewLoopGuard creates a guard with the given suppression window.
func NewLoopGuard(window time.Duration) *LoopGuard {
	return &LoopGuard{window: window}
}

// ShouldSkip reports whether a record with the given provenance must be
// dropped. True only when the source is the canonical tag and the last
// engine write is strictly younger than the window; an age of exactly
// the window passes.
func (g *LoopGuard) ShouldSkip(source model.SyncSource, lastSyncedAt *time.Time, now time.Time) bool {
	if source != model.CanonicalSource || lastSyncedAt == nil {
		return false
	}
	return now.Sub(*lastSyncedAt) < g.window
}

// ShouldSkipRecord applies ShouldSkip to a loosely shaped inbound
// payload, reading sync_source and last_synced_at from it.
func (g *LoopGuard) ShouldSkipRecord(record map[string]interface{}, now time.Time) bool {
	source, _ := record["sync_source"].(string)
	var lastSyncedAt *time.Time
	if raw, ok := record["last_synced_at"]; ok {
		lastSyncedAt = parseFlexibleTime(raw)
	}
	return g.ShouldSkip(model.SyncSource(source), lastSyncedAt, now)
}
