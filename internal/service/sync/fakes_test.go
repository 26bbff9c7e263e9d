package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"leadsync/internal/model"
	"leadsync/internal/pkg/crm"
)

// In-memory fakes shared by the package tests.

type fakeLeadStore struct {
	mu      sync.Mutex
	leads   map[int64]*model.Lead
	upserts int
	failGet error
	failUp  error
}

func newFakeLeadStore() *fakeLeadStore {
	return &fakeLeadStore{leads: make(map[int64]*model.Lead)}
}

func (f *fakeLeadStore) GetByExternalID(_ context.Context, externalID int64) (*model.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet != nil {
		return nil, f.failGet
	}
	lead, ok := f.leads[externalID]
	if !ok {
		return nil, nil
	}
	cp := *lead
	return &cp, nil
}

func (f *fakeLeadStore) Upsert(_ context.Context, lead *model.Lead) (*model.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUp != nil {
		return nil, f.failUp
	}
	f.upserts++
	cp := *lead
	f.leads[lead.ExternalID] = &cp
	return lead, nil
}

func (f *fakeLeadStore) StampSynced(_ context.Context, externalID int64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if lead, ok := f.leads[externalID]; ok {
		lead.SyncSource = model.CanonicalSource
		lead.LastSyncedAt = &at
	}
	return nil
}

type fakeEventLog struct {
	mu     sync.Mutex
	events []model.SyncEvent
}

func (f *fakeEventLog) Append(_ context.Context, event *model.SyncEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, *event)
	return nil
}

func (f *fakeEventLog) last() *model.SyncEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.events) == 0 {
		return nil
	}
	e := f.events[len(f.events)-1]
	return &e
}

func (f *fakeEventLog) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

type fakeTokenRegistry struct {
	mu     sync.Mutex
	tokens map[int64]string
}

func newFakeTokenRegistry() *fakeTokenRegistry {
	return &fakeTokenRegistry{tokens: make(map[int64]string)}
}

func (f *fakeTokenRegistry) Register(_ context.Context, externalID int64, tokenID string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[externalID] = tokenID
	return nil
}

func (f *fakeTokenRegistry) Consume(_ context.Context, externalID int64, tokenID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tokens[externalID] != tokenID {
		return false
	}
	delete(f.tokens, externalID)
	return true
}

type fakeBatchStore struct {
	atomicDeployed bool
	atomicErr      error
	atomicCalls    int
	probes         int
	ledger         []model.PaymentLedgerEntry
	failLedgerFor  map[int64]bool
}

func (f *fakeBatchStore) AtomicAvailable(context.Context) bool {
	f.probes++
	return f.atomicDeployed
}

func (f *fakeBatchStore) ApplyAtomic(_ context.Context, batchID string, items []model.PaymentItem) error {
	f.atomicCalls++
	if f.atomicErr != nil {
		return f.atomicErr
	}
	for _, item := range items {
		f.ledger = append(f.ledger, model.PaymentLedgerEntry{ExternalID: item.LeadID, BatchID: batchID})
	}
	return nil
}

func (f *fakeBatchStore) InsertLedger(_ context.Context, entry *model.PaymentLedgerEntry) error {
	if f.failLedgerFor[entry.ExternalID] {
		return errors.New("ledger insert rejected")
	}
	f.ledger = append(f.ledger, *entry)
	return nil
}

type fakeConfirmer struct {
	confirmed      []int64
	failConfirmFor map[int64]bool
}

func (f *fakeConfirmer) ConfirmPayment(_ context.Context, externalID int64, _ string) error {
	if f.failConfirmFor[externalID] {
		return fmt.Errorf("lead %d not found", externalID)
	}
	f.confirmed = append(f.confirmed, externalID)
	return nil
}

type fakeProber struct {
	result crm.ProbeResult
}

func (f *fakeProber) Probe(context.Context) crm.ProbeResult {
	return f.result
}

type fakeQueueInspector struct {
	stats *model.QueueHealth
	err   error
}

func (f *fakeQueueInspector) Stats(context.Context, time.Time) (*model.QueueHealth, error) {
	return f.stats, f.err
}

type fakeStatusReader struct {
	latest *model.LastSyncStatus
	err    error
}

func (f *fakeStatusReader) Latest(context.Context) (*model.LastSyncStatus, error) {
	return f.latest, f.err
}

type fakeStatusRecorder struct {
	recorded []model.LastSyncStatus
}

func (f *fakeStatusRecorder) Record(_ context.Context, status *model.LastSyncStatus) error {
	f.recorded = append(f.recorded, *status)
	return nil
}

type fakeLeadLister struct {
	items []map[string]interface{}
	err   error
}

func (f *fakeLeadLister) ListAllLeads(context.Context) ([]map[string]interface{}, int64, error) {
	return f.items, int64(len(f.items)), f.err
}

type fakePipelineLister struct {
	pipelines []crm.Pipeline
	err       error
}

func (f *fakePipelineLister) ListPipelines(context.Context) ([]crm.Pipeline, error) {
	return f.pipelines, f.err
}

type fakePipelineStore struct {
	seen    map[int64]bool
	failFor map[int64]bool
	rows    []model.PipelineConfig
	failAll bool
}

func newFakePipelineStore() *fakePipelineStore {
	return &fakePipelineStore{seen: make(map[int64]bool), failFor: make(map[int64]bool)}
}

func (f *fakePipelineStore) Upsert(_ context.Context, cfg *model.PipelineConfig) (bool, error) {
	if f.failFor[cfg.RemoteID] {
		return false, errors.New("pipeline store rejected")
	}
	created := !f.seen[cfg.RemoteID]
	f.seen[cfg.RemoteID] = true
	return created, nil
}

func (f *fakePipelineStore) All(context.Context) ([]model.PipelineConfig, error) {
	if f.failAll {
		return nil, errors.New("pipeline listing unavailable")
	}
	return f.rows, nil
}

type fakeStageCache struct {
	saved model.StageMap
}

func (f *fakeStageCache) Save(_ context.Context, m model.StageMap) error {
	f.saved = m
	return nil
}

func (f *fakeStageCache) Load(context.Context) (model.StageMap, error) {
	if f.saved == nil {
		return model.StageMap{}, nil
	}
	return f.saved, nil
}

type fakeOutboxStore struct {
	items  []model.OutboxItem
	nextID uint
}

func (f *fakeOutboxStore) Enqueue(_ context.Context, item *model.OutboxItem) error {
	f.nextID++
	item.ID = f.nextID
	item.State = model.OutboxPending
	f.items = append(f.items, *item)
	return nil
}

func (f *fakeOutboxStore) Pending(_ context.Context, limit int) ([]model.OutboxItem, error) {
	var pending []model.OutboxItem
	for _, item := range f.items {
		if item.State == model.OutboxPending && len(pending) < limit {
			pending = append(pending, item)
		}
	}
	return pending, nil
}

func (f *fakeOutboxStore) MarkSent(_ context.Context, id uint, at time.Time) error {
	for i := range f.items {
		if f.items[i].ID == id {
			f.items[i].State = model.OutboxSent
			f.items[i].SentAt = &at
		}
	}
	return nil
}

func (f *fakeOutboxStore) RecordFailure(_ context.Context, id uint, attempts, maxAttempts int, lastError string) error {
	for i := range f.items {
		if f.items[i].ID == id {
			f.items[i].Attempts = attempts
			f.items[i].LastError = lastError
			if attempts >= maxAttempts {
				f.items[i].State = model.OutboxFailed
			}
		}
	}
	return nil
}

type fakeLeadUpdater struct {
	updates map[int64]map[string]interface{}
	err     error
}

func newFakeLeadUpdater() *fakeLeadUpdater {
	return &fakeLeadUpdater{updates: make(map[int64]map[string]interface{})}
}

func (f *fakeLeadUpdater) UpdateLead(_ context.Context, id int64, fields map[string]interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.updates[id] = fields
	return nil
}

type fakeQueueStore struct {
	due         []model.SyncQueueItem
	completed   []uint
	rescheduled map[uint]time.Time
	failedIDs   []uint
}

func newFakeQueueStore() *fakeQueueStore {
	return &fakeQueueStore{rescheduled: make(map[uint]time.Time)}
}

func (f *fakeQueueStore) Due(context.Context, time.Time, int) ([]model.SyncQueueItem, error) {
	return f.due, nil
}

func (f *fakeQueueStore) Complete(_ context.Context, id uint) error {
	f.completed = append(f.completed, id)
	return nil
}

func (f *fakeQueueStore) Reschedule(_ context.Context, id uint, _ int, nextAttempt time.Time, _ string) error {
	f.rescheduled[id] = nextAttempt
	return nil
}

func (f *fakeQueueStore) MarkFailed(_ context.Context, id uint, _ string) error {
	f.failedIDs = append(f.failedIDs, id)
	return nil
}
