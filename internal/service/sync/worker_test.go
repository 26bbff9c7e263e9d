package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadsync/internal/model"
)

func newTestWorker(queue *fakeQueueStore, leads *fakeLeadStore) *ReplayWorker {
	orch := newTestOrchestrator(leads, &fakeEventLog{}, nil)
	worker := NewReplayWorker(queue, orch, 30*time.Second, 30*time.Minute, 5)
	worker.now = fixedNow
	return worker
}

func TestBackoffDoublesAndCaps(t *testing.T) {
	worker := newTestWorker(newFakeQueueStore(), newFakeLeadStore())

	assert.Equal(t, 30*time.Second, worker.Backoff(0))
	assert.Equal(t, 60*time.Second, worker.Backoff(1))
	assert.Equal(t, 2*time.Minute, worker.Backoff(2))
	assert.Equal(t, 16*time.Minute, worker.Backoff(5))
	assert.Equal(t, 30*time.Minute, worker.Backoff(6))
	assert.Equal(t, 30*time.Minute, worker.Backoff(20))
}

func TestRunOnceCompletesReplayableItem(t *testing.T) {
	queue := newFakeQueueStore()
	queue.due = []model.SyncQueueItem{{
		ID:        1,
		Direction: model.DirectionCRMToStore,
		Payload:   `{"id": 42, "name": "replayed"}`,
	}}
	leads := newFakeLeadStore()
	worker := newTestWorker(queue, leads)

	completed, failed := worker.RunOnce(context.Background(), 10)

	assert.Equal(t, 1, completed)
	assert.Equal(t, 0, failed)
	assert.Equal(t, []uint{1}, queue.completed)
	require.NotNil(t, leads.leads[42])
	assert.Equal(t, "replayed", leads.leads[42].Name)
}

func TestRunOnceReschedulesWithBackoff(t *testing.T) {
	queue := newFakeQueueStore()
	queue.due = []model.SyncQueueItem{{
		ID:        1,
		Direction: model.DirectionCRMToStore,
		Payload:   `{"id": 42}`,
		Attempts:  2,
	}}
	leads := newFakeLeadStore()
	leads.failUp = errors.New("store down")
	worker := newTestWorker(queue, leads)

	completed, failed := worker.RunOnce(context.Background(), 10)

	assert.Equal(t, 0, completed)
	assert.Equal(t, 1, failed)
	next, ok := queue.rescheduled[1]
	require.True(t, ok)
	assert.Equal(t, fixedNow().Add(2*time.Minute), next)
	assert.Empty(t, queue.failedIDs)
}

func TestRunOnceMarksTerminalAtMaxAttempts(t *testing.T) {
	queue := newFakeQueueStore()
	queue.due = []model.SyncQueueItem{{
		ID:        1,
		Direction: model.DirectionCRMToStore,
		Payload:   `{"id": 42}`,
		Attempts:  4,
	}}
	leads := newFakeLeadStore()
	leads.failUp = errors.New("store down")
	worker := newTestWorker(queue, leads)

	_, failed := worker.RunOnce(context.Background(), 10)

	assert.Equal(t, 1, failed)
	assert.Equal(t, []uint{1}, queue.failedIDs)
	assert.Empty(t, queue.rescheduled)
}

func TestRunOnceCorruptPayloadIsTerminal(t *testing.T) {
	queue := newFakeQueueStore()
	queue.due = []model.SyncQueueItem{{
		ID:      7,
		Payload: "{not json",
	}}
	worker := newTestWorker(queue, newFakeLeadStore())

	_, failed := worker.RunOnce(context.Background(), 10)

	assert.Equal(t, 1, failed)
	assert.Equal(t, []uint{7}, queue.failedIDs)
	assert.Empty(t, queue.rescheduled)
}

func TestRunOnceSkipOutcomeCompletes(t *testing.T) {
	queue := newFakeQueueStore()
	queue.due = []model.SyncQueueItem{{
		ID:        1,
		Direction: model.DirectionCRMToStore,
		Payload:   `{"id": 42, "sync_source": "crm", "last_synced_at": "` + fixedNow().Add(-10*time.Second).Format(time.RFC3339) + `"}`,
	}}
	worker := newTestWorker(queue, newFakeLeadStore())

	completed, failed := worker.RunOnce(context.Background(), 10)

	// A loop-guard skip is a successful terminal state for the item.
	assert.Equal(t, 1, completed)
	assert.Equal(t, 0, failed)
	assert.Equal(t, []uint{1}, queue.completed)
}
