/**
 * Router: route manager
 * @description: builds the full dependency graph (repos → services →
 *               handlers) and registers every route group; the only
 *               place that knows how the engine is assembled
 * @func: Router, NewRouter, SetupRoutes
 */
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"leadsync/internal/app/server/middleware"
	"leadsync/internal/config"
	synchandler "leadsync/internal/handler/sync"
	"leadsync/internal/pkg/crm"
	mysqlrepo "leadsync/internal/repository/mysql"
	redisrepo "leadsync/internal/repository/redis"
	syncservice "leadsync/internal/service/sync"
)

// Router owns the gin engine and the wired handler set.
type Router struct {
	config            *config.Config
	engine            *gin.Engine
	middlewareManager *middleware.MiddlewareManager
	syncHandler       *synchandler.SyncHandler
	services          *Services
}

// Services exposes the long-lived sync services to the scheduler and
// to startup warm-up; the router builds them because it already owns
// the dependency graph.
type Services struct {
	Orchestrator *syncservice.Orchestrator
	Sweeper      *syncservice.Sweeper
	Outbox       *syncservice.OutboxService
	Worker       *syncservice.ReplayWorker
	Health       *syncservice.HealthMonitor
	Pipelines    *syncservice.PipelineService
}

// NewRouter wires repositories, services and handlers on top of the
// given connections.
func NewRouter(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *Router {
	gin.SetMode(cfg.Server.Mode)

	crmClient := crm.NewClient(&cfg.CRM)

	leadRepo := mysqlrepo.NewLeadRepository(db)
	eventRepo := mysqlrepo.NewSyncEventRepository(db)
	queueRepo := mysqlrepo.NewSyncQueueRepository(db)
	outboxRepo := mysqlrepo.NewOutboxRepository(db)
	paymentRepo := mysqlrepo.NewPaymentRepository(db)
	statusRepo := mysqlrepo.NewSyncStatusRepository(db)
	pipelineRepo := mysqlrepo.NewPipelineRepository(db)
	stageMapRepo := redisrepo.NewStageMapRepository(redisClient)
	tokenRepo := redisrepo.NewTokenRepository(redisClient)

	tokens := syncservice.NewTokenService(cfg.Sync.TokenSecret, cfg.Sync.TokenTTL, tokenRepo)
	pipelines := syncservice.NewPipelineService(crmClient, pipelineRepo, stageMapRepo, eventRepo)
	orchestrator := syncservice.NewOrchestrator(
		leadRepo,
		eventRepo,
		syncservice.NewLoopGuard(cfg.Sync.LoopWindow),
		syncservice.NewResolver(),
		tokens,
		pipelines,
	)
	sweeper := syncservice.NewSweeper(crmClient, orchestrator, statusRepo, cfg.CRM.PageSize)
	outbox := syncservice.NewOutboxService(outboxRepo, crmClient, leadRepo, tokens, eventRepo, cfg.Sync.QueueMaxAttempts)
	worker := syncservice.NewReplayWorker(queueRepo, orchestrator, cfg.Sync.QueueBackoffBase, cfg.Sync.QueueBackoffMax, cfg.Sync.QueueMaxAttempts)
	batches := syncservice.NewBatchCoordinator(paymentRepo, leadRepo, eventRepo, cfg.Sync.AtomicBatch)
	health := syncservice.NewHealthMonitor(crmClient, queueRepo, statusRepo, eventRepo)

	syncHandler := synchandler.NewSyncHandler(orchestrator, sweeper, batches, health, pipelines, outbox, queueRepo, eventRepo)

	return &Router{
		config:            cfg,
		engine:            gin.New(),
		middlewareManager: middleware.NewMiddlewareManager(&cfg.Security),
		syncHandler:       syncHandler,
		services: &Services{
			Orchestrator: orchestrator,
			Sweeper:      sweeper,
			Outbox:       outbox,
			Worker:       worker,
			Health:       health,
			Pipelines:    pipelines,
		},
	}
}

// GetEngine returns the gin engine for the HTTP server.
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

// GetServices returns the wired service set.
func (r *Router) GetServices() *Services {
	return r.services
}

// SetupRoutes registers global middleware and all route groups.
func (r *Router) SetupRoutes() {
	r.engine.Use(r.middlewareManager.GinRecoveryMiddleware())
	r.engine.Use(r.middlewareManager.GinLoggingMiddleware())
	r.engine.Use(r.middlewareManager.GinSecurityHeadersMiddleware())
	r.engine.Use(r.middlewareManager.GinCORSMiddleware())
	r.engine.Use(r.middlewareManager.GinRateLimitMiddleware())

	api := r.engine.Group("/api/v1")
	r.setupHealthRoutes(api)
	r.setupSyncRoutes(api)
}
