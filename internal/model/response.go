/**
 * Model: response payloads
 * @description: API response envelope and the health verdict structures
 * @func: APIResponse, SystemHealth and probe sub-structs
 */
package model

import (
	"time"
)

// APIResponse is the uniform response envelope. Endpoints always return
// structured JSON with a success flag; stack traces never leak here.
type APIResponse struct {
	Code    int         `json:"code,omitempty"`
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthStatus is the tri-state health verdict.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthDown     HealthStatus = "down"
)

// Severity orders verdicts for monotonic downgrades.
func (s HealthStatus) Severity() int {
	switch s {
	case HealthDown:
		return 2
	case HealthDegraded:
		return 1
	default:
		return 0
	}
}

// ProbeResult describes the upstream reachability probe.
type ProbeResult struct {
	Reachable  bool   `json:"reachable"`
	Path       string `json:"path"`                  // which integration path answered
	StatusCode int    `json:"status_code,omitempty"`
	LatencyMS  int64  `json:"latency_ms"`
	Error      string `json:"error,omitempty"`
}

// QueueHealth summarizes the replay backlog.
type QueueHealth struct {
	PendingCount     int64 `json:"pending_count"`
	FailedCount      int64 `json:"failed_count"`
	OldestPendingSec int64 `json:"oldest_pending_sec"` // 0 when the queue is empty
}

// LastSyncInfo summarizes the newest last-sync status row.
type LastSyncInfo struct {
	FinishedAt time.Time `json:"finished_at"`
	Success    bool      `json:"success"`
	Message    string    `json:"message,omitempty"`
	AgeHours   float64   `json:"age_hours"`
}

// SystemHealth is the aggregated verdict returned by the health
// endpoint. Tabulador is the business name of the primary CRM
// integration path.
type SystemHealth struct {
	Status          HealthStatus  `json:"status"`
	Tabulador       ProbeResult   `json:"tabulador"`
	SyncQueue       QueueHealth   `json:"sync_queue"`
	LastSync        *LastSyncInfo `json:"last_sync"` // nil before the first sweep
	Recommendations []string      `json:"recommendations"`
	CheckedAt       time.Time     `json:"checked_at"`
}

// SweepResult summarizes one paginated CRM ingestion sweep.
type SweepResult struct {
	Pages    int `json:"pages"`
	Total    int `json:"total"`
	Applied  int `json:"applied"`
	Skipped  int `json:"skipped"`
	Errors   int `json:"errors"`
}

// PipelineDiscoveryResult reports the outcome of a stage-map rebuild.
type PipelineDiscoveryResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Errors  int `json:"errors"`
	Stages  int `json:"stages"` // total stages mapped
}
