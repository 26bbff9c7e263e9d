/**
 * Server: application bootstrap
 * @description: wires configuration, logging, storage, HTTP routing and
 *               the background scheduler into one startable unit
 * @func: App, NewApp, Start, Stop
 */
package server

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"leadsync/internal/app/server/router"
	"leadsync/internal/config"
	"leadsync/internal/pkg/database"
	"leadsync/internal/pkg/logger"
)

// App holds everything the process owns.
type App struct {
	config    *config.Config
	logger    *logger.LoggerManager
	db        *gorm.DB
	redis     *redis.Client
	router    *router.Router
	scheduler *Scheduler
	watcher   *config.ConfigWatcher
}

// NewApp loads configuration and wires all components. configPath and
// env may be empty, in which case the loader falls back to the configs
// directory and the LEADSYNC_ENV variable.
func NewApp(configPath, env string) (*App, error) {
	cfg, err := config.LoadConfig(configPath, env)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logManager, err := logger.InitLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}

	db, err := database.NewMySQLConnection(&cfg.Database.MySQL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mysql: %w", err)
	}

	redisClient, err := database.NewRedisConnection(&cfg.Database.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	r := router.NewRouter(db, redisClient, cfg)
	r.SetupRoutes()

	app := &App{
		config:    cfg,
		logger:    logManager,
		db:        db,
		redis:     redisClient,
		router:    r,
		scheduler: NewScheduler(&cfg.Sync, r.GetServices()),
	}

	// Log settings can change without a restart; everything else
	// requires one.
	watcher, err := config.NewConfigWatcher(configPath, env)
	if err != nil {
		logger.Warnf("config watcher unavailable: %v", err)
	} else {
		watcher.OnReload(func(oldCfg, newCfg *config.Config) error {
			return logManager.UpdateConfig(&newCfg.Log)
		})
		app.watcher = watcher
	}

	return app, nil
}

// GetConfig returns the loaded configuration.
func (a *App) GetConfig() *config.Config {
	return a.config
}

// GetRouter returns the HTTP router.
func (a *App) GetRouter() *router.Router {
	return a.router
}

// Start warms caches and launches background work. The HTTP listener
// itself is owned by main so it can drive graceful shutdown.
func (a *App) Start(ctx context.Context) error {
	a.router.GetServices().Pipelines.Warm(ctx)

	if err := a.scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	if a.watcher != nil {
		if err := a.watcher.Start(); err != nil {
			logger.Warnf("config watcher failed to start: %v", err)
		}
	}

	logger.Infof("%s %s started", a.config.App.Name, a.config.App.Version)
	return nil
}

// Stop halts background work and releases connections.
func (a *App) Stop() {
	if a.watcher != nil {
		a.watcher.Stop()
	}
	a.scheduler.Stop()

	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = a.redis.Close()

	logger.Info("application stopped")
}
