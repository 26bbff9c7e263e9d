/**
 * Sync: outbound push outbox
 * @description: durable store→CRM pushes; the local mutation that
 *               triggered a push is never rolled back or failed by it,
 *               but the push itself survives restarts as an outbox row
 * @func: OutboxService, EnqueuePush, Drain
 */
package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"leadsync/internal/model"
	"leadsync/internal/pkg/logger"
)

// OutboxStore is the durable push queue.
type OutboxStore interface {
	Enqueue(ctx context.Context, item *model.OutboxItem) error
	Pending(ctx context.Context, limit int) ([]model.OutboxItem, error)
	MarkSent(ctx context.Context, id uint, at time.Time) error
	RecordFailure(ctx context.Context, id uint, attempts, maxAttempts int, lastError string) error
}

// LeadUpdater patches one remote lead.
type LeadUpdater interface {
	UpdateLead(ctx context.Context, id int64, fields map[string]interface{}) error
}

// SyncStamper marks a row as last written by this engine.
type SyncStamper interface {
	StampSynced(ctx context.Context, externalID int64, at time.Time) error
}

// TokenMinter mints echo write-tokens for outbound pushes.
type TokenMinter interface {
	Mint(ctx context.Context, externalID int64) (string, error)
}

// OutboxService enqueues and drains outbound pushes.
type OutboxService struct {
	store       OutboxStore
	crm         LeadUpdater
	leads       SyncStamper
	tokens      TokenMinter
	events      EventLog
	maxAttempts int
	now         func() time.Time
}

// NewOutboxService creates the service. tokens may be nil when the
// token round-trip is not deployed on the peer.
func NewOutboxService(store OutboxStore, crmClient LeadUpdater, leads SyncStamper, tokens TokenMinter, events EventLog, maxAttempts int) *OutboxService {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &OutboxService{
		store:       store,
		crm:         crmClient,
		leads:       leads,
		tokens:      tokens,
		events:      events,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

// EnqueuePush records a pending push for the lead. This is the only
// part of a push the mutating caller waits for; delivery happens later
// and its failure is logged, never propagated back.
func (s *OutboxService) EnqueuePush(ctx context.Context, externalID int64, fields map[string]interface{}) error {
	payload, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode push fields for lead %d: %w", externalID, err)
	}
	return s.store.Enqueue(ctx, &model.OutboxItem{
		ExternalID: externalID,
		Fields:     string(payload),
		CreatedAt:  s.now(),
	})
}

// Drain delivers up to limit pending pushes sequentially. Each push
// mints a fresh write-token, sends it inside the patch so compliant
// peers can relay it back, and on success stamps the local row with the
// canonical source tag.
func (s *OutboxService) Drain(ctx context.Context, limit int) (sent, failed int) {
	items, err := s.store.Pending(ctx, limit)
	if err != nil {
		logger.Errorf("failed to read outbox: %v", err)
		return 0, 0
	}

	for _, item := range items {
		if err := s.deliver(ctx, &item); err != nil {
			failed++
			continue
		}
		sent++
	}
	return sent, failed
}

func (s *OutboxService) deliver(ctx context.Context, item *model.OutboxItem) error {
	start := s.now()

	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(item.Fields), &fields); err != nil {
		// Unparseable row: terminal immediately, replaying cannot help.
		s.failItem(ctx, item, s.maxAttempts, err, start)
		return err
	}

	if s.tokens != nil {
		token, err := s.tokens.Mint(ctx, item.ExternalID)
		if err != nil {
			logger.Warnf("failed to mint write token for lead %d, pushing without one: %v", item.ExternalID, err)
		} else {
			fields["sync_token"] = token
		}
	}

	if err := s.crm.UpdateLead(ctx, item.ExternalID, fields); err != nil {
		s.failItem(ctx, item, item.Attempts+1, err, start)
		return err
	}

	now := s.now()
	if err := s.store.MarkSent(ctx, item.ID, now); err != nil {
		logger.Errorf("push for lead %d delivered but not marked sent: %v", item.ExternalID, err)
	}
	if err := s.leads.StampSynced(ctx, item.ExternalID, now); err != nil {
		logger.Errorf("failed to stamp lead %d after push: %v", item.ExternalID, err)
	}

	s.logPush(ctx, item.ExternalID, model.SyncStatusSuccess, start, nil)
	return nil
}

func (s *OutboxService) failItem(ctx context.Context, item *model.OutboxItem, attempts int, cause error, start time.Time) {
	if err := s.store.RecordFailure(ctx, item.ID, attempts, s.maxAttempts, cause.Error()); err != nil {
		logger.Errorf("failed to record outbox failure for lead %d: %v", item.ExternalID, err)
	}
	s.logPush(ctx, item.ExternalID, model.SyncStatusError, start, cause)
}

func (s *OutboxService) logPush(ctx context.Context, externalID int64, status model.SyncStatus, start time.Time, cause error) {
	duration := s.now().Sub(start)
	event := &model.SyncEvent{
		Direction:  model.DirectionStoreToCRM,
		EntityID:   externalID,
		Status:     status,
		DurationMS: duration.Milliseconds(),
		CreatedAt:  s.now(),
	}
	if cause != nil {
		event.Error = cause.Error()
	}
	if err := s.events.Append(ctx, event); err != nil {
		logger.Errorf("failed to append push event for lead %d: %v", externalID, err)
	}
	logger.LogSyncAttempt(string(model.DirectionStoreToCRM), externalID, string(status), duration, "", nil)
}
