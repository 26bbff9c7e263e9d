package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadsync/internal/model"
	syncservice "leadsync/internal/service/sync"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Fakes for the handler-side service interfaces.

type fakeProcessor struct {
	outcome   *syncservice.Outcome
	err       error
	direction model.SyncDirection
	record    map[string]interface{}
	token     string
	calls     int
}

func (f *fakeProcessor) ProcessInbound(ctx context.Context, direction model.SyncDirection, record map[string]interface{}, token string) (*syncservice.Outcome, error) {
	f.calls++
	f.direction = direction
	f.record = record
	f.token = token
	if f.err != nil {
		return nil, f.err
	}
	return f.outcome, nil
}

type fakeSweeper struct {
	result *model.SweepResult
	err    error
}

func (f *fakeSweeper) Run(ctx context.Context) (*model.SweepResult, error) {
	return f.result, f.err
}

type fakeBatcher struct {
	result  *model.BatchResult
	batchID string
	items   []model.PaymentItem
}

func (f *fakeBatcher) ApplyBatch(ctx context.Context, batchID string, items []model.PaymentItem) *model.BatchResult {
	f.batchID = batchID
	f.items = items
	return f.result
}

type fakeHealth struct {
	health *model.SystemHealth
}

func (f *fakeHealth) Check(ctx context.Context) *model.SystemHealth {
	return f.health
}

type fakeRebuilder struct {
	result *model.PipelineDiscoveryResult
	err    error
}

func (f *fakeRebuilder) Rebuild(ctx context.Context) (*model.PipelineDiscoveryResult, error) {
	return f.result, f.err
}

type fakePusher struct {
	externalID int64
	fields     map[string]interface{}
	err        error
}

func (f *fakePusher) EnqueuePush(ctx context.Context, externalID int64, fields map[string]interface{}) error {
	f.externalID = externalID
	f.fields = fields
	return f.err
}

type fakeQueue struct {
	items []*model.SyncQueueItem
	err   error
}

func (f *fakeQueue) Enqueue(ctx context.Context, item *model.SyncQueueItem) error {
	if f.err != nil {
		return f.err
	}
	f.items = append(f.items, item)
	return nil
}

type fakeEvents struct {
	events     []model.SyncEvent
	errorCount int64
	direction  model.SyncDirection
	limit      int
	err        error
}

func (f *fakeEvents) RecentByDirection(ctx context.Context, direction model.SyncDirection, limit int) ([]model.SyncEvent, error) {
	f.direction = direction
	f.limit = limit
	return f.events, f.err
}

func (f *fakeEvents) ErrorCountSince(ctx context.Context, since time.Time) (int64, error) {
	return f.errorCount, f.err
}

// Harness.

type handlerFixture struct {
	processor *fakeProcessor
	sweeper   *fakeSweeper
	batches   *fakeBatcher
	health    *fakeHealth
	pipelines *fakeRebuilder
	pusher    *fakePusher
	queue     *fakeQueue
	events    *fakeEvents
	router    *gin.Engine
}

func newHandlerFixture() *handlerFixture {
	f := &handlerFixture{
		processor: &fakeProcessor{outcome: &syncservice.Outcome{Status: model.SyncStatusSuccess, Message: "upserted"}},
		sweeper:   &fakeSweeper{result: &model.SweepResult{Pages: 1}},
		batches:   &fakeBatcher{result: &model.BatchResult{}},
		health:    &fakeHealth{health: &model.SystemHealth{Status: model.HealthHealthy}},
		pipelines: &fakeRebuilder{result: &model.PipelineDiscoveryResult{}},
		pusher:    &fakePusher{},
		queue:     &fakeQueue{},
		events:    &fakeEvents{},
	}

	h := NewSyncHandler(f.processor, f.sweeper, f.batches, f.health, f.pipelines, f.pusher, f.queue, f.events)

	r := gin.New()
	r.POST("/sync/webhook", h.Webhook)
	r.POST("/sync/crm/sweep", h.Sweep)
	r.POST("/sync/push/:id", h.Push)
	r.POST("/sync/batch", h.Batch)
	r.GET("/sync/health", h.Health)
	r.POST("/sync/pipelines/discover", h.Discover)
	r.GET("/sync/events", h.Events)
	f.router = r
	return f
}

func (f *handlerFixture) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, model.APIResponse) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var resp model.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

// Webhook.

func TestWebhookProcessesRecord(t *testing.T) {
	f := newHandlerFixture()

	w, resp := f.do(t, http.MethodPost, "/sync/webhook", model.WebhookRequest{
		Record:    map[string]interface{}{"id": float64(42), "name": "Fazenda Nova"},
		Source:    string(model.SourceExternalApp),
		SyncToken: "tok-1",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "upserted", resp.Message)
	assert.Equal(t, 1, f.processor.calls)
	assert.Equal(t, model.DirectionAppToStore, f.processor.direction)
	assert.Equal(t, "tok-1", f.processor.token)
}

func TestWebhookIgnoresOwnEcho(t *testing.T) {
	f := newHandlerFixture()

	w, resp := f.do(t, http.MethodPost, "/sync/webhook", model.WebhookRequest{
		Record: map[string]interface{}{"id": float64(42)},
		Source: string(model.CanonicalSource),
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "ignored", resp.Message)
	assert.Zero(t, f.processor.calls, "echo payloads must not reach the orchestrator")
}

func TestWebhookUsesEmbeddedToken(t *testing.T) {
	f := newHandlerFixture()

	f.do(t, http.MethodPost, "/sync/webhook", model.WebhookRequest{
		Record: map[string]interface{}{"id": float64(42), "sync_token": "embedded-tok"},
		Source: string(model.SourceExternalApp),
	})

	assert.Equal(t, "embedded-tok", f.processor.token)
}

func TestWebhookFailureEnqueuesReplay(t *testing.T) {
	f := newHandlerFixture()
	f.processor.err = errors.New("store unavailable")

	w, resp := f.do(t, http.MethodPost, "/sync/webhook", model.WebhookRequest{
		Record: map[string]interface{}{"id": float64(77), "name": "Sitio Velho"},
		Source: string(model.SourceExternalApp),
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.False(t, resp.Success)

	require.Len(t, f.queue.items, 1)
	item := f.queue.items[0]
	assert.Equal(t, model.DirectionAppToStore, item.Direction)
	assert.Equal(t, int64(77), item.EntityID)
	assert.Equal(t, model.QueuePending, item.State)
	assert.Contains(t, item.Payload, "Sitio Velho")
}

func TestWebhookRejectsMissingRecord(t *testing.T) {
	f := newHandlerFixture()

	w, resp := f.do(t, http.MethodPost, "/sync/webhook", map[string]interface{}{
		"source": "external_app",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, resp.Success)
	assert.Zero(t, f.processor.calls)
}

// Sweep.

func TestSweepReturnsAccounting(t *testing.T) {
	f := newHandlerFixture()
	f.sweeper.result = &model.SweepResult{Pages: 3, Total: 117, Applied: 110, Skipped: 5, Errors: 2}

	w, resp := f.do(t, http.MethodPost, "/sync/crm/sweep", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var result model.SweepResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Equal(t, 3, result.Pages)
	assert.Equal(t, 110, result.Applied)
}

func TestSweepAbortReturns500(t *testing.T) {
	f := newHandlerFixture()
	f.sweeper.err = errors.New("listing failed")

	w, resp := f.do(t, http.MethodPost, "/sync/crm/sweep", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, "Sweep aborted", resp.Message)
}

// Push.

func TestPushAccepted(t *testing.T) {
	f := newHandlerFixture()

	w, resp := f.do(t, http.MethodPost, "/sync/push/42", model.PushRequest{
		Fields: map[string]interface{}{"confirmado": true},
	})

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, int64(42), f.pusher.externalID)
	assert.Equal(t, true, f.pusher.fields["confirmado"])
}

func TestPushRejectsBadID(t *testing.T) {
	f := newHandlerFixture()

	w, _ := f.do(t, http.MethodPost, "/sync/push/abc", model.PushRequest{
		Fields: map[string]interface{}{"confirmado": true},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = f.do(t, http.MethodPost, "/sync/push/0", model.PushRequest{
		Fields: map[string]interface{}{"confirmado": true},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPushEnqueueFailure(t *testing.T) {
	f := newHandlerFixture()
	f.pusher.err = errors.New("outbox write failed")

	w, resp := f.do(t, http.MethodPost, "/sync/push/42", model.PushRequest{
		Fields: map[string]interface{}{"confirmado": true},
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.False(t, resp.Success)
}

// Batch.

func TestBatchPartialFailureStillOK(t *testing.T) {
	f := newHandlerFixture()
	f.batches.result = &model.BatchResult{
		BatchID:      "lote-1",
		SuccessCount: 2,
		ErrorCount:   1,
		Errors:       []model.BatchError{{Index: 2, LeadID: 9, Step: "confirm"}},
	}

	w, resp := f.do(t, http.MethodPost, "/sync/batch", model.BatchMutationRequest{
		BatchID: "lote-1",
		Items:   []model.PaymentItem{{LeadID: 7}, {LeadID: 8}, {LeadID: 9}},
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, resp.Success, "partial failure reads as success=false")
	assert.Equal(t, "batch applied with errors", resp.Message)
	assert.Equal(t, "lote-1", f.batches.batchID)
	assert.Len(t, f.batches.items, 3)
}

func TestBatchAllApplied(t *testing.T) {
	f := newHandlerFixture()
	f.batches.result = &model.BatchResult{BatchID: "lote-2", SuccessCount: 2}

	w, resp := f.do(t, http.MethodPost, "/sync/batch", model.BatchMutationRequest{
		Items: []model.PaymentItem{{LeadID: 7}, {LeadID: 8}},
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "batch applied", resp.Message)
}

// Health.

func TestHealthStatusCodes(t *testing.T) {
	cases := []struct {
		status  model.HealthStatus
		code    int
		success bool
	}{
		{model.HealthHealthy, http.StatusOK, true},
		{model.HealthDegraded, http.StatusPartialContent, true},
		{model.HealthDown, http.StatusServiceUnavailable, false},
	}

	for _, tc := range cases {
		t.Run(string(tc.status), func(t *testing.T) {
			f := newHandlerFixture()
			f.health.health = &model.SystemHealth{Status: tc.status, CheckedAt: time.Now()}

			w, resp := f.do(t, http.MethodGet, "/sync/health", nil)

			assert.Equal(t, tc.code, w.Code)
			assert.Equal(t, tc.success, resp.Success)
			assert.Equal(t, string(tc.status), resp.Message)
		})
	}
}

// Pipeline discovery.

func TestDiscoverReportsResult(t *testing.T) {
	f := newHandlerFixture()
	f.pipelines.result = &model.PipelineDiscoveryResult{Created: 4, Stages: 4}

	w, resp := f.do(t, http.MethodPost, "/sync/pipelines/discover", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "pipelines discovered", resp.Message)
}

func TestDiscoverPartialErrors(t *testing.T) {
	f := newHandlerFixture()
	f.pipelines.result = &model.PipelineDiscoveryResult{Created: 3, Errors: 1, Stages: 3}

	w, resp := f.do(t, http.MethodPost, "/sync/pipelines/discover", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, "pipelines discovered with errors", resp.Message)
}

// Events.

func TestEventsDefaultsDirectionAndLimit(t *testing.T) {
	f := newHandlerFixture()
	f.events.events = []model.SyncEvent{{Direction: model.DirectionCRMToStore, Status: model.SyncStatusSuccess}}
	f.events.errorCount = 3

	w, resp := f.do(t, http.MethodGet, "/sync/events", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, model.DirectionCRMToStore, f.events.direction)
	assert.Equal(t, 50, f.events.limit)
}

func TestEventsClampsLimit(t *testing.T) {
	f := newHandlerFixture()

	w, _ := f.do(t, http.MethodGet, "/sync/events?direction=batch_mutation&limit=9999", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.DirectionBatch, f.events.direction)
	assert.Equal(t, 200, f.events.limit)
}

func TestEventsRejectsUnknownDirection(t *testing.T) {
	f := newHandlerFixture()

	w, resp := f.do(t, http.MethodGet, "/sync/events?direction=sideways", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, resp.Success)
}

func TestDiscoverAbortReturns500(t *testing.T) {
	f := newHandlerFixture()
	f.pipelines.err = errors.New("pipeline listing failed")

	w, resp := f.do(t, http.MethodPost, "/sync/pipelines/discover", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.False(t, resp.Success)
}
