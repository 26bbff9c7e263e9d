/**
 * Server: background scheduler
 * @description: periodic work that keeps the engine converging without
 *               operator action: outbox drain, queue replay, plus cron
 *               entries for health snapshots and stage-map refresh
 * @func: Scheduler, Start, Stop
 */
package server

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"leadsync/internal/app/server/router"
	"leadsync/internal/config"
	"leadsync/internal/pkg/logger"
)

// Batch sizes per tick. Small on purpose: a tick that bites off too
// much delays the next one and hides backlog from the health monitor.
const (
	outboxDrainLimit = 50
	queueReplayLimit = 50
)

// Scheduler runs the engine's recurring jobs.
type Scheduler struct {
	cfg      *config.SyncConfig
	services *router.Services
	cron     *cron.Cron

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler over the wired services.
func NewScheduler(cfg *config.SyncConfig, services *router.Services) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		services: services,
		cron:     cron.New(),
	}
}

// Start launches the tickers and cron entries. Blank cron specs
// disable their job.
func (s *Scheduler) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	if s.cfg.OutboxInterval > 0 {
		s.wg.Add(1)
		go s.loop(ctx, s.cfg.OutboxInterval, func() {
			sent, failed := s.services.Outbox.Drain(ctx, outboxDrainLimit)
			if sent > 0 || failed > 0 {
				logger.Infof("outbox drain: %d sent, %d failed", sent, failed)
			}
		})
	}

	if s.cfg.QueueInterval > 0 {
		s.wg.Add(1)
		go s.loop(ctx, s.cfg.QueueInterval, func() {
			completed, failed := s.services.Worker.RunOnce(ctx, queueReplayLimit)
			if completed > 0 || failed > 0 {
				logger.Infof("queue replay: %d completed, %d failed", completed, failed)
			}
		})
	}

	if s.cfg.HealthCron != "" {
		if _, err := s.cron.AddFunc(s.cfg.HealthCron, func() {
			health := s.services.Health.Check(ctx)
			logger.Infof("scheduled health check: %s", health.Status)
		}); err != nil {
			return err
		}
	}

	if s.cfg.PipelineCron != "" {
		if _, err := s.cron.AddFunc(s.cfg.PipelineCron, func() {
			if _, err := s.services.Pipelines.Rebuild(ctx); err != nil {
				logger.Errorf("scheduled pipeline rebuild failed: %v", err)
			}
		}); err != nil {
			return err
		}
	}

	s.cron.Start()
	return nil
}

// Stop halts cron and waits for in-flight ticks to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	cronCtx := s.cron.Stop()
	<-cronCtx.Done()
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, interval time.Duration, job func()) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job()
		}
	}
}
