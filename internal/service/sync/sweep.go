/**
 * Sync: CRM ingestion sweep
 * @description: paginated CRM→store ingestion; one failed record never
 *               aborts the rest of the sweep
 * @func: Sweeper, Run
 */
package sync

import (
	"context"
	"fmt"
	"time"

	"leadsync/internal/model"
	"leadsync/internal/pkg/logger"
)

// LeadLister pages through the upstream lead listing.
type LeadLister interface {
	ListAllLeads(ctx context.Context) ([]map[string]interface{}, int64, error)
}

// StatusRecorder persists per-sweep outcome rows.
type StatusRecorder interface {
	Record(ctx context.Context, status *model.LastSyncStatus) error
}

// Sweeper drives full CRM→store ingestion sweeps.
type Sweeper struct {
	crm      LeadLister
	orch     *Orchestrator
	status   StatusRecorder
	pageSize int
	now      func() time.Time
}

// NewSweeper creates a sweeper. pageSize is only used for reporting the
// page count; pacing lives inside the CRM client.
func NewSweeper(lister LeadLister, orch *Orchestrator, status StatusRecorder, pageSize int) *Sweeper {
	if pageSize <= 0 {
		pageSize = 50
	}
	return &Sweeper{
		crm:      lister,
		orch:     orch,
		status:   status,
		pageSize: pageSize,
		now:      time.Now,
	}
}

// Run ingests every upstream lead through the orchestrator. An upstream
// listing failure aborts the sweep (and is recorded as such); a
// per-record failure is logged by the orchestrator and skipped.
func (s *Sweeper) Run(ctx context.Context) (*model.SweepResult, error) {
	items, _, err := s.crm.ListAllLeads(ctx)
	if err != nil {
		s.recordStatus(ctx, false, fmt.Sprintf("listing failed: %v", err))
		return nil, err
	}

	result := &model.SweepResult{
		Total: len(items),
		Pages: (len(items) + s.pageSize - 1) / s.pageSize,
	}

	for _, record := range items {
		outcome, err := s.orch.ProcessInbound(ctx, model.DirectionCRMToStore, record, "")
		if err != nil {
			// Already event-logged by the orchestrator; isolate and move on.
			result.Errors++
			logger.Debugf("sweep: %s not applied: %v", describeRecord(record), err)
			continue
		}
		switch outcome.Status {
		case model.SyncStatusSkipped:
			result.Skipped++
		default:
			result.Applied++
		}
	}

	message := fmt.Sprintf("%d applied, %d skipped, %d errors of %d", result.Applied, result.Skipped, result.Errors, result.Total)
	s.recordStatus(ctx, true, message)
	logger.Infof("CRM sweep finished: %s", message)
	return result, nil
}

func (s *Sweeper) recordStatus(ctx context.Context, success bool, message string) {
	status := &model.LastSyncStatus{
		Direction:  model.DirectionCRMToStore,
		Success:    success,
		Message:    message,
		FinishedAt: s.now(),
	}
	if err := s.status.Record(ctx, status); err != nil {
		logger.Errorf("failed to record sweep status: %v", err)
	}
}
