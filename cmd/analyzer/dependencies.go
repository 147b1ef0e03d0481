package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-none-none/ontrak-solutions-capital-fast-sub002/internal/domain/patterns"
	"github.com/go-none-none/ontrak-solutions-capital-fast-sub002/internal/domain/patterns/repository"
	"github.com/go-none-none/ontrak-solutions-capital-fast-sub002/internal/domain/patterns/service"
	"github.com/go-none-none/ontrak-solutions-capital-fast-sub002/pkg/config"
	"github.com/go-none-none/ontrak-solutions-capital-fast-sub002/pkg/cron"
	"github.com/go-none-none/ontrak-solutions-capital-fast-sub002/pkg/db"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	DB     *db.DB
	Logger *slog.Logger

	PatternRepo repository.PatternRepository

	Engine         *patterns.Engine
	PatternService *service.Service
	Scheduler      *cron.Scheduler
}

// InitDependencies initializes all application dependencies
func InitDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	if err := deps.initServices(); err != nil {
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	logger.Info("all dependencies initialized successfully")

	return deps, nil
}

// initDatabase initializes the database connection and runs migrations
func (d *Dependencies) initDatabase() error {
	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}

	d.DB = database

	if err := d.DB.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

// initServices initializes the repository, engine, service and scheduler
func (d *Dependencies) initServices() error {
	d.PatternRepo = repository.NewPostgresPatternRepository(d.DB.Pool)

	d.Engine = newEngine(d.Config.Engine)
	d.PatternService = service.NewService(d.PatternRepo, d.Engine, d.Logger)
	d.Scheduler = cron.NewScheduler(d.PatternService, d.Config.Scheduler, d.Logger)

	d.Logger.Info("services initialized")
	return nil
}

// newEngine builds an engine from environment-tuned settings.
func newEngine(cfg config.EngineConfig) *patterns.Engine {
	engineCfg := patterns.DefaultConfig()
	engineCfg.SimilarityThreshold = cfg.SimilarityThreshold
	engineCfg.AnomalyMultiplier = cfg.AnomalyMultiplier
	return patterns.NewEngine(engineCfg)
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.Scheduler != nil {
		<-d.Scheduler.Stop().Done()
	}
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}
