/**
 * Sync: health monitor
 * @description: aggregates upstream reachability, queue backlog and
 *               last-sync freshness into a tri-state verdict; the
 *               verdict only ever degrades within one check
 * @func: HealthMonitor, Check
 */
package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"leadsync/internal/model"
	"leadsync/internal/pkg/crm"
	"leadsync/internal/pkg/logger"
)

// Backlog and staleness thresholds.
const (
	backlogAgeThreshold = 5 * time.Minute
	lastSyncStaleAfter  = 24 * time.Hour
)

// UpstreamProber checks CRM reachability.
type UpstreamProber interface {
	Probe(ctx context.Context) crm.ProbeResult
}

// QueueInspector reads backlog statistics.
type QueueInspector interface {
	Stats(ctx context.Context, now time.Time) (*model.QueueHealth, error)
}

// StatusReader reads the newest last-sync row.
type StatusReader interface {
	Latest(ctx context.Context) (*model.LastSyncStatus, error)
}

// HealthMonitor produces the sync health verdict.
type HealthMonitor struct {
	prober UpstreamProber
	queue  QueueInspector
	status StatusReader
	events EventLog
	now    func() time.Time
}

// NewHealthMonitor creates a monitor.
func NewHealthMonitor(prober UpstreamProber, queue QueueInspector, status StatusReader, events EventLog) *HealthMonitor {
	return &HealthMonitor{
		prober: prober,
		queue:  queue,
		status: status,
		events: events,
		now:    time.Now,
	}
}

// Check runs every probe and aggregates the verdict. Probes never throw
// past their own scope: a failing reachability check still lets the
// queue and last-sync probes contribute. The check persists its own
// execution as a diagnostic event regardless of the verdict.
func (m *HealthMonitor) Check(ctx context.Context) *model.SystemHealth {
	now := m.now()
	health := &model.SystemHealth{
		Status:          model.HealthHealthy,
		Recommendations: []string{},
		CheckedAt:       now,
	}

	m.probeUpstream(ctx, health)
	m.probeQueue(ctx, health, now)
	m.probeLastSync(ctx, health, now)

	m.persistSnapshot(ctx, health)
	return health
}

// downgrade lowers the verdict, never raising it: once a probe has
// declared down, later probes cannot restore healthy.
func downgrade(health *model.SystemHealth, to model.HealthStatus) {
	if to.Severity() > health.Status.Severity() {
		health.Status = to
	}
}

// probeUpstream checks CRM reachability. The client already tries the
// lower-privilege fallback path on 404/401 before giving up.
func (m *HealthMonitor) probeUpstream(ctx context.Context, health *model.SystemHealth) {
	result := m.prober.Probe(ctx)

	health.Tabulador = model.ProbeResult{
		Reachable:  result.Reachable,
		Path:       result.Path,
		StatusCode: result.StatusCode,
		LatencyMS:  result.Latency.Milliseconds(),
	}
	if result.Err != nil {
		health.Tabulador.Error = result.Err.Error()
	}

	if !result.Reachable {
		downgrade(health, model.HealthDown)
		health.Recommendations = append(health.Recommendations,
			fmt.Sprintf("CRM integration unreachable via %s (status %d); check credentials and upstream availability", result.Path, result.StatusCode))
	}
}

// probeQueue inspects the replay backlog.
func (m *HealthMonitor) probeQueue(ctx context.Context, health *model.SystemHealth, now time.Time) {
	stats, err := m.queue.Stats(ctx, now)
	if err != nil {
		downgrade(health, model.HealthDegraded)
		health.Recommendations = append(health.Recommendations,
			fmt.Sprintf("sync queue unreadable: %v", err))
		return
	}
	health.SyncQueue = *stats

	oldestAge := time.Duration(stats.OldestPendingSec) * time.Second
	if stats.PendingCount > 0 && oldestAge > backlogAgeThreshold {
		downgrade(health, model.HealthDegraded)
		health.Recommendations = append(health.Recommendations,
			fmt.Sprintf("%d pending sync item(s), oldest waiting %s; investigate the replay worker", stats.PendingCount, oldestAge.Round(time.Second)))
	}
	if stats.FailedCount > 0 {
		downgrade(health, model.HealthDegraded)
		health.Recommendations = append(health.Recommendations,
			fmt.Sprintf("%d sync item(s) in terminal failed state; review sync_queue last_error and replay manually", stats.FailedCount))
	}
}

// probeLastSync inspects the freshness of the newest sweep.
func (m *HealthMonitor) probeLastSync(ctx context.Context, health *model.SystemHealth, now time.Time) {
	latest, err := m.status.Latest(ctx)
	if err != nil {
		downgrade(health, model.HealthDegraded)
		health.Recommendations = append(health.Recommendations,
			fmt.Sprintf("last-sync status unreadable: %v", err))
		return
	}
	if latest == nil {
		// No sweep has run yet; informational only.
		health.Recommendations = append(health.Recommendations,
			"no sync has completed yet; awaiting first sweep")
		return
	}

	age := now.Sub(latest.FinishedAt)
	health.LastSync = &model.LastSyncInfo{
		FinishedAt: latest.FinishedAt,
		Success:    latest.Success,
		Message:    latest.Message,
		AgeHours:   age.Hours(),
	}

	if !latest.Success {
		downgrade(health, model.HealthDegraded)
		health.Recommendations = append(health.Recommendations,
			fmt.Sprintf("last sync failed: %s", latest.Message))
	}
	if age > lastSyncStaleAfter {
		downgrade(health, model.HealthDegraded)
		health.Recommendations = append(health.Recommendations,
			fmt.Sprintf("last sync finished %.1fh ago; trigger a sweep", age.Hours()))
	}
}

// persistSnapshot stores the check execution with its full response
// payload as a diagnostic event.
func (m *HealthMonitor) persistSnapshot(ctx context.Context, health *model.SystemHealth) {
	payload, err := json.Marshal(health)
	if err != nil {
		payload = []byte("{}")
	}

	event := &model.SyncEvent{
		Direction: model.DirectionHealth,
		Status:    model.SyncStatusSuccess,
		Message:   string(health.Status),
		Payload:   string(payload),
		CreatedAt: m.now(),
	}
	if err := m.events.Append(ctx, event); err != nil {
		logger.Errorf("failed to persist health snapshot: %v", err)
	}
}
