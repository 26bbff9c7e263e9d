package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"leadsync/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(baseURL string) *config.CRMConfig {
	return &config.CRMConfig{
		BaseURL:        baseURL,
		Token:          "test-token",
		RequestTimeout: 5 * time.Second,
		PageDelay:      100 * time.Millisecond,
		PageSize:       50,
		MaxRetries:     2,
	}
}

func leadItems(n int, offset int) []map[string]interface{} {
	items := make([]map[string]interface{}, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, map[string]interface{}{
			"id":   float64(offset + i),
			"name": fmt.Sprintf("lead %d", offset+i),
		})
	}
	return items
}

func TestListAllLeadsPaginatesWithDelay(t *testing.T) {
	pageSizes := []int{50, 50, 17}
	var requestTimes []time.Time
	requests := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		requestTimes = append(requestTimes, time.Now())

		page := Page{Total: 117}
		page.Items = leadItems(pageSizes[requests], requests*50)
		requests++
		if requests < len(pageSizes) {
			page.NextCursor = fmt.Sprintf("cursor-%d", requests)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(page)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	items, total, err := client.ListAllLeads(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, requests)
	assert.Len(t, items, 117)
	assert.Equal(t, int64(117), total)

	// Inter-page pacing: requests 1→2 and 2→3 each at least 100ms apart.
	require.Len(t, requestTimes, 3)
	assert.GreaterOrEqual(t, requestTimes[1].Sub(requestTimes[0]), 100*time.Millisecond)
	assert.GreaterOrEqual(t, requestTimes[2].Sub(requestTimes[1]), 100*time.Millisecond)
}

func TestListPageSurfacesUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"forbidden"}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	_, err := client.ListPage(context.Background(), "leads", "")

	require.Error(t, err)
	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusForbidden, upstream.Status)
	assert.Contains(t, upstream.Body, "forbidden")
}

func TestListPageMalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	_, err := client.ListPage(context.Background(), "leads", "")

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, 0, upstream.Status)
}

func TestGetJSONRetriesOn5xx(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(Page{Items: leadItems(1, 0), Total: 1})
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	page, err := client.ListPage(context.Background(), "leads", "")

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Len(t, page.Items, 1)
}

func TestUpdateLead(t *testing.T) {
	var gotPath string
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.Equal(t, http.MethodPatch, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	err := client.UpdateLead(context.Background(), 42, map[string]interface{}{"stage": "negocios_fechados"})

	require.NoError(t, err)
	assert.Equal(t, "/crm/v1/leads/42", gotPath)
	assert.Equal(t, "negocios_fechados", gotBody["stage"])
}

func TestProbeFallsBackToPingPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == pingPath {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	result := client.Probe(context.Background())

	assert.True(t, result.Reachable)
	assert.Equal(t, pingPath, result.Path)
	assert.Equal(t, http.StatusOK, result.StatusCode)
}

func TestProbeUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	server.Close() // connection refused

	client := NewClient(testConfig(server.URL))
	result := client.Probe(context.Background())

	assert.False(t, result.Reachable)
	assert.Error(t, result.Err)
}
