/**
 * CRM: remote client
 * @description: paginated HTTP client for the external CRM's list/update
 *               endpoints; sequential paging with a fixed inter-page
 *               delay to stay under the upstream rate limit
 * @func: Client, ListPage, ListAllLeads, UpdateLead, ListPipelines, Probe
 */
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"leadsync/internal/config"
)

// UpstreamError is a typed failure from the remote CRM: non-2xx status
// or a malformed payload. Callers decide whether to abort a sweep or
// skip the current page.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("upstream error: malformed payload: %s", e.Body)
	}
	return fmt.Sprintf("upstream error: status %d: %s", e.Status, e.Body)
}

// Page is one page of a paginated listing.
type Page struct {
	Items      []map[string]interface{} `json:"items"`
	NextCursor string                   `json:"next_cursor"`
	Total      int64                    `json:"total"`
}

// Pipeline is one remote pipeline with its stage list.
type Pipeline struct {
	ID     int64   `json:"id"`
	Name   string  `json:"name"`
	Stages []Stage `json:"stages"`
}

// Stage is one remote pipeline stage.
type Stage struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ProbeResult is the outcome of a reachability probe.
type ProbeResult struct {
	Reachable  bool
	Path       string
	StatusCode int
	Latency    time.Duration
	Err        error
}

// API paths. The ping path is the documented lower-privilege fallback
// used when the leads path answers 404/401.
const (
	leadsPath     = "/crm/v1/leads"
	pipelinesPath = "/crm/v1/pipelines"
	pingPath      = "/crm/v1/ping"
)

// Client talks to the remote CRM. It keeps no cache and no state beyond
// the HTTP connection pool; every call carries a bounded timeout.
type Client struct {
	http      *http.Client
	baseURL   string
	token     string
	pageDelay time.Duration
	pageSize  int
	retries   int
}

// NewClient builds a client from configuration.
func NewClient(cfg *config.CRMConfig) *Client {
	return &Client{
		http:      &http.Client{Timeout: cfg.RequestTimeout},
		baseURL:   cfg.BaseURL,
		token:     cfg.Token,
		pageDelay: cfg.PageDelay,
		pageSize:  cfg.PageSize,
		retries:   cfg.MaxRetries,
	}
}

// ListPage fetches one page of the given entity listing.
func (c *Client) ListPage(ctx context.Context, entity, cursor string) (*Page, error) {
	q := url.Values{}
	q.Set("limit", fmt.Sprintf("%d", c.pageSize))
	if cursor != "" {
		q.Set("cursor", cursor)
	}

	var page Page
	if err := c.getJSON(ctx, "/crm/v1/"+entity+"?"+q.Encode(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// ListAllLeads pages through the leads listing until the remote signals
// no further cursor, accumulating items. A fixed delay separates
// consecutive requests; this is deliberate backpressure, not an
// optimization target.
func (c *Client) ListAllLeads(ctx context.Context) ([]map[string]interface{}, int64, error) {
	var (
		items  []map[string]interface{}
		cursor string
		total  int64
		first  = true
	)

	for {
		if !first {
			select {
			case <-ctx.Done():
				return items, total, ctx.Err()
			case <-time.After(c.pageDelay):
			}
		}
		first = false

		page, err := c.ListPage(ctx, "leads", cursor)
		if err != nil {
			return items, total, err
		}

		items = append(items, page.Items...)
		total = page.Total

		if page.NextCursor == "" {
			return items, total, nil
		}
		cursor = page.NextCursor
	}
}

// UpdateLead patches a single lead's fields.
func (c *Client) UpdateLead(ctx context.Context, id int64, fields map[string]interface{}) error {
	body, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode update for lead %d: %w", id, err)
	}

	req, err := c.newRequest(ctx, http.MethodPatch, fmt.Sprintf("%s/%d", leadsPath, id), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("update lead %d: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &UpstreamError{Status: resp.StatusCode, Body: readBody(resp.Body)}
	}
	return nil
}

// ListPipelines enumerates the remote pipelines with their stage lists.
func (c *Client) ListPipelines(ctx context.Context) ([]Pipeline, error) {
	var out struct {
		Pipelines []Pipeline `json:"pipelines"`
	}
	if err := c.getJSON(ctx, pipelinesPath, &out); err != nil {
		return nil, err
	}
	return out.Pipelines, nil
}

// Probe checks upstream reachability. The primary leads path is tried
// first; a 404/401 there falls back to the lower-privilege ping path
// before the upstream is declared unreachable.
func (c *Client) Probe(ctx context.Context) ProbeResult {
	result := c.probePath(ctx, leadsPath+"?limit=1")
	if result.Reachable {
		return result
	}
	if result.StatusCode == http.StatusNotFound || result.StatusCode == http.StatusUnauthorized {
		fallback := c.probePath(ctx, pingPath)
		// Keep the primary latency visible when the fallback also fails.
		if fallback.Reachable {
			return fallback
		}
	}
	return result
}

func (c *Client) probePath(ctx context.Context, path string) ProbeResult {
	start := time.Now()
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return ProbeResult{Path: path, Err: err}
	}

	resp, err := c.http.Do(req)
	latency := time.Since(start)
	if err != nil {
		return ProbeResult{Path: path, Latency: latency, Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return ProbeResult{
		Reachable:  resp.StatusCode >= 200 && resp.StatusCode <= 299,
		Path:       path,
		StatusCode: resp.StatusCode,
		Latency:    latency,
	}
}

// getJSON performs a GET with one retry on transport errors and 5xx
// responses; GETs are idempotent upstream.
func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	var lastErr error

	attempts := c.retries
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 250 * time.Millisecond):
			}
		}

		req, err := c.newRequest(ctx, http.MethodGet, path, nil)
		if err != nil {
			return err
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("get %s: %w", path, err)
			continue
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("get %s: %w", path, readErr)
			continue
		}

		if resp.StatusCode >= 500 {
			lastErr = &UpstreamError{Status: resp.StatusCode, Body: string(body)}
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return &UpstreamError{Status: resp.StatusCode, Body: string(body)}
		}

		if err := json.Unmarshal(body, out); err != nil {
			return &UpstreamError{Status: 0, Body: err.Error()}
		}
		return nil
	}
	return lastErr
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request %s %s: %w", method, path, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func readBody(r io.Reader) string {
	body, _ := io.ReadAll(io.LimitReader(r, 4096))
	return string(body)
}
