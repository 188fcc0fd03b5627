package main

import (
	"fmt"
	"log"

	"github.com/Itish41/FranchiseOps/controller"
	"github.com/Itish41/FranchiseOps/initializers"
	"github.com/Itish41/FranchiseOps/rules"
	services "github.com/Itish41/FranchiseOps/service"
)

// App holds the wired services for one process.
type App struct {
	Config    initializers.Config
	Store     *services.GormStore
	Engine    *services.ActionEngine
	Processor *services.AutomationProcessor
	Indexer   *services.ESIndexer
}

// NewApp connects to the database and builds every service from cfg.
func NewApp(cfg initializers.Config, migrate bool) (*App, error) {
	if err := initializers.ConnectDB(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database connection: %w", err)
	}
	if migrate {
		if err := initializers.Migrate(cfg); err != nil {
			return nil, fmt.Errorf("failed to run database migrations: %w", err)
		}
	}
	store := services.NewGormStore(initializers.DB)

	engineOpts := services.EngineOptions{
		OrganizationID: cfg.OrganizationID,
		ActionExpiry:   cfg.Engine.ActionExpiry,
		Concurrency:    cfg.Engine.Concurrency,
	}
	processorOpts := services.ProcessorOptions{BatchSize: cfg.Engine.BatchSize}

	indexer := services.NewESIndexer(nil, cfg.ActionIndex)
	if cfg.ElasticsearchURL != "" {
		client, err := services.NewESClient(cfg.ElasticsearchURL)
		if err != nil {
			log.Printf("Warning: %v", err)
		} else {
			indexer = services.NewESIndexer(client, cfg.ActionIndex)
			engineOpts.Indexer = indexer
		}
	}

	if cfg.Archive.Enabled() {
		archiver, err := services.NewS3Archiver(cfg.Archive)
		if err != nil {
			log.Printf("Warning: run reports will not be archived: %v", err)
		} else {
			engineOpts.Archiver = archiver
			processorOpts.Archiver = archiver
		}
	}

	catalog := rules.DefaultCatalog(cfg.Rules)
	return &App{
		Config:    cfg,
		Store:     store,
		Engine:    services.NewActionEngine(store, store, catalog, engineOpts),
		Processor: services.NewAutomationProcessor(store, services.NewStepCatalog(), processorOpts),
		Indexer:   indexer,
	}, nil
}

// Routes returns the HTTP surface for a.
func (a *App) Routes() controller.Routes {
	routes := controller.Routes{
		Cron:       controller.NewCronController(a.Engine, a.Processor),
		Actions:    controller.NewActionItemController(a.Store, a.Indexer),
		CronSecret: a.Config.CronSecret,
	}
	if sqlDB, err := initializers.DB.DB(); err == nil {
		routes.Health = controller.Health(sqlDB)
	} else {
		routes.Health = controller.Health(nil)
	}
	return routes
}
