package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadsync/internal/model"
)

type staticMinter struct {
	token string
	err   error
}

func (m *staticMinter) Mint(context.Context, int64) (string, error) {
	return m.token, m.err
}

func newTestOutbox(store *fakeOutboxStore, updater *fakeLeadUpdater, leads *fakeLeadStore, minter TokenMinter) *OutboxService {
	svc := NewOutboxService(store, updater, leads, minter, &fakeEventLog{}, 5)
	svc.now = fixedNow
	return svc
}

func TestOutboxEnqueueAndDrain(t *testing.T) {
	store := &fakeOutboxStore{}
	updater := newFakeLeadUpdater()
	leads := newFakeLeadStore()
	leads.leads[42] = &model.Lead{ExternalID: 42}
	svc := newTestOutbox(store, updater, leads, &staticMinter{token: "tok-abc"})
	ctx := context.Background()

	require.NoError(t, svc.EnqueuePush(ctx, 42, map[string]interface{}{"stage": "negocios_fechados"}))

	sent, failed := svc.Drain(ctx, 10)
	assert.Equal(t, 1, sent)
	assert.Equal(t, 0, failed)

	// The patch carries the minted write-token for the peer to relay.
	fields := updater.updates[42]
	require.NotNil(t, fields)
	assert.Equal(t, "negocios_fechados", fields["stage"])
	assert.Equal(t, "tok-abc", fields["sync_token"])

	assert.Equal(t, model.OutboxSent, store.items[0].State)
	require.NotNil(t, store.items[0].SentAt)

	// Local provenance is stamped so the next webhook echo is caught.
	assert.Equal(t, model.CanonicalSource, leads.leads[42].SyncSource)
	require.NotNil(t, leads.leads[42].LastSyncedAt)
	assert.Equal(t, fixedNow(), *leads.leads[42].LastSyncedAt)
}

func TestOutboxDrainRetriesOnUpstreamFailure(t *testing.T) {
	store := &fakeOutboxStore{}
	updater := newFakeLeadUpdater()
	updater.err = errors.New("502 from upstream")
	svc := newTestOutbox(store, updater, newFakeLeadStore(), &staticMinter{token: "tok"})
	ctx := context.Background()

	require.NoError(t, svc.EnqueuePush(ctx, 42, map[string]interface{}{"confirmed": true}))

	sent, failed := svc.Drain(ctx, 10)
	assert.Equal(t, 0, sent)
	assert.Equal(t, 1, failed)

	// Still pending with the failure recorded; the next drain retries it.
	assert.Equal(t, model.OutboxPending, store.items[0].State)
	assert.Equal(t, 1, store.items[0].Attempts)
	assert.Contains(t, store.items[0].LastError, "502")
}

func TestOutboxDrainGoesTerminalAtMaxAttempts(t *testing.T) {
	store := &fakeOutboxStore{}
	updater := newFakeLeadUpdater()
	updater.err = errors.New("502 from upstream")
	svc := newTestOutbox(store, updater, newFakeLeadStore(), &staticMinter{token: "tok"})
	ctx := context.Background()

	require.NoError(t, svc.EnqueuePush(ctx, 42, map[string]interface{}{"confirmed": true}))
	store.items[0].Attempts = 4

	_, failed := svc.Drain(ctx, 10)
	assert.Equal(t, 1, failed)
	assert.Equal(t, model.OutboxFailed, store.items[0].State)
}

func TestOutboxUnparseableRowIsTerminal(t *testing.T) {
	store := &fakeOutboxStore{}
	store.items = append(store.items, model.OutboxItem{
		ID:         1,
		ExternalID: 42,
		Fields:     "{broken",
		State:      model.OutboxPending,
	})
	store.nextID = 1
	svc := newTestOutbox(store, newFakeLeadUpdater(), newFakeLeadStore(), &staticMinter{token: "tok"})

	_, failed := svc.Drain(context.Background(), 10)
	assert.Equal(t, 1, failed)
	assert.Equal(t, model.OutboxFailed, store.items[0].State)
}

func TestOutboxPushesWithoutTokenWhenMintFails(t *testing.T) {
	store := &fakeOutboxStore{}
	updater := newFakeLeadUpdater()
	leads := newFakeLeadStore()
	svc := newTestOutbox(store, updater, leads, &staticMinter{err: errors.New("redis down")})
	ctx := context.Background()

	require.NoError(t, svc.EnqueuePush(ctx, 42, map[string]interface{}{"confirmed": true}))

	sent, _ := svc.Drain(ctx, 10)
	assert.Equal(t, 1, sent)

	// Delivery succeeds anyway; the wall-clock guard covers the echo.
	fields := updater.updates[42]
	require.NotNil(t, fields)
	_, hasToken := fields["sync_token"]
	assert.False(t, hasToken)
}

func TestOutboxDrainHonorsLimit(t *testing.T) {
	store := &fakeOutboxStore{}
	updater := newFakeLeadUpdater()
	svc := newTestOutbox(store, updater, newFakeLeadStore(), &staticMinter{token: "tok"})
	ctx := context.Background()

	for id := int64(1); id <= 5; id++ {
		require.NoError(t, svc.EnqueuePush(ctx, id, map[string]interface{}{"confirmed": true}))
	}

	sent, failed := svc.Drain(ctx, 2)
	assert.Equal(t, 2, sent)
	assert.Equal(t, 0, failed)
	assert.Len(t, updater.updates, 2)
}
