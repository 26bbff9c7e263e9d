/**
 * Sync: orchestrator
 * @description: per-direction coordinator sequencing
 *               received → loop-check → conflict-check → upsert|skip → logged;
 *               any failure along the path is caught at this boundary and
 *               converted into an error event, never a propagated panic
 * @func: Orchestrator, ProcessInbound
 */
package sync

import (
	"context"
	"fmt"
	"time"

	"leadsync/internal/model"
	"leadsync/internal/pkg/logger"
)

// LeadStore is the idempotent upsert surface onto the internal store.
type LeadStore interface {
	GetByExternalID(ctx context.Context, externalID int64) (*model.Lead, error)
	Upsert(ctx context.Context, lead *model.Lead) (*model.Lead, error)
}

// EventLog appends to the append-only sync event log.
type EventLog interface {
	Append(ctx context.Context, event *model.SyncEvent) error
}

// EchoChecker matches inbound write-tokens against outstanding pushes.
type EchoChecker interface {
	IsEcho(ctx context.Context, externalID int64, token string) bool
}

// StageProvider exposes the current pipeline stage map.
type StageProvider interface {
	Current() model.StageMap
}

// Outcome is the terminal state of one orchestrated sync.
type Outcome struct {
	Status  model.SyncStatus `json:"status"`
	Message string           `json:"message,omitempty"`
	Lead    *model.Lead      `json:"lead,omitempty"`
}

// Skip reasons recorded on the event row.
const (
	msgSkippedOlder = "skipped - older version"
	msgSkippedLoop  = "skipped - loop prevention window"
	msgSkippedEcho  = "skipped - echo token matched"
)

// Orchestrator runs the sync state machine for one record at a time.
// Each invocation is independent; consistency is enforced by the
// store's uniqueness constraint, not by in-process locking.
type Orchestrator struct {
	leads    LeadStore
	events   EventLog
	guard    *LoopGuard
	resolver *Resolver
	echo     EchoChecker
	stages   StageProvider
	now      func() time.Time
}

// NewOrchestrator wires the orchestrator. echo may be nil when no token
// registry is deployed; the wall-clock guard then stands alone.
func NewOrchestrator(leads LeadStore, events EventLog, guard *LoopGuard, resolver *Resolver, echo EchoChecker, stages StageProvider) *Orchestrator {
	return &Orchestrator{
		leads:    leads,
		events:   events,
		guard:    guard,
		resolver: resolver,
		echo:     echo,
		stages:   stages,
		now:      time.Now,
	}
}

// ProcessInbound drives one candidate record through the full path.
// The returned error is non-nil only for the error-logged terminal
// state; skips are successful outcomes.
func (o *Orchestrator) ProcessInbound(ctx context.Context, direction model.SyncDirection, record map[string]interface{}, token string) (outcome *Outcome, err error) {
	start := o.now()
	var externalID int64

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sync panic: %v", r)
			outcome = nil
		}
		if err != nil {
			o.logEvent(ctx, direction, externalID, model.SyncStatusError, start, "", err)
		}
	}()

	externalID, err = ExtractExternalID(record)
	if err != nil {
		return nil, err
	}

	// Echo token check runs first: it is exact, unlike the wall-clock
	// heuristic behind it.
	if o.echo != nil && o.echo.IsEcho(ctx, externalID, token) {
		o.logEvent(ctx, direction, externalID, model.SyncStatusSkipped, start, msgSkippedEcho, nil)
		return &Outcome{Status: model.SyncStatusSkipped, Message: msgSkippedEcho}, nil
	}

	if o.guard.ShouldSkipRecord(record, o.now()) {
		o.logEvent(ctx, direction, externalID, model.SyncStatusSkipped, start, msgSkippedLoop, nil)
		return &Outcome{Status: model.SyncStatusSkipped, Message: msgSkippedLoop}, nil
	}

	existing, err := o.leads.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}

	incomingAt := UpdatedAtOf(record)
	if existing != nil {
		wins, at := o.resolver.IncomingWins(record, existing.UpdatedAt)
		incomingAt = at
		if !wins {
			// Existing row is newer: deliberate no-op, no store mutation.
			o.logEvent(ctx, direction, externalID, model.SyncStatusSkipped, start, msgSkippedOlder, nil)
			return &Outcome{Status: model.SyncStatusSkipped, Message: msgSkippedOlder, Lead: existing}, nil
		}
	}

	lead, err := o.normalize(record, incomingAt, direction)
	if err != nil {
		return nil, err
	}

	stored, err := o.leads.Upsert(ctx, lead)
	if err != nil {
		return nil, err
	}

	o.logEvent(ctx, direction, externalID, model.SyncStatusSuccess, start, "", nil)
	return &Outcome{Status: model.SyncStatusSuccess, Lead: stored}, nil
}

// normalize maps the payload and stamps engine provenance: every
// successful engine write carries last_synced_at plus a sync source
// (the payload's own valid source, else the direction's default).
func (o *Orchestrator) normalize(record map[string]interface{}, updatedAt time.Time, direction model.SyncDirection) (*model.Lead, error) {
	var stages model.StageMap
	if o.stages != nil {
		stages = o.stages.Current()
	}

	lead, err := NormalizeLead(record, stages, updatedAt)
	if err != nil {
		return nil, err
	}

	if lead.SyncSource == "" {
		switch direction {
		case model.DirectionCRMToStore:
			lead.SyncSource = model.SourceCRM
		case model.DirectionAppToStore:
			lead.SyncSource = model.SourceExternalApp
		default:
			lead.SyncSource = model.SourceInternal
		}
	}

	syncedAt := o.now()
	lead.LastSyncedAt = &syncedAt
	return lead, nil
}

// logEvent records the terminal state of one attempt to both the event
// log and the sync log file. A failing event append is itself only
// logged; it must not turn a completed sync into a failure.
func (o *Orchestrator) logEvent(ctx context.Context, direction model.SyncDirection, externalID int64, status model.SyncStatus, start time.Time, message string, cause error) {
	duration := o.now().Sub(start)

	event := &model.SyncEvent{
		Direction:  direction,
		EntityID:   externalID,
		Status:     status,
		DurationMS: duration.Milliseconds(),
		Message:    message,
		CreatedAt:  o.now(),
	}
	if cause != nil {
		event.Error = cause.Error()
	}
	if err := o.events.Append(ctx, event); err != nil {
		logger.Errorf("failed to append sync event for %s: %v", describeRecordID(externalID), err)
	}

	logger.LogSyncAttempt(string(direction), externalID, string(status), duration, message, nil)
}

func describeRecordID(externalID int64) string {
	if externalID == 0 {
		return "lead <no id>"
	}
	return fmt.Sprintf("lead %d", externalID)
}
