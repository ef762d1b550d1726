// Package cli implements the command-line interface and wires the
// application together from configuration.
package cli

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"resurface-backend/internal/analyzer"
	"resurface-backend/internal/config"
	"resurface-backend/internal/graph"
	"resurface-backend/internal/handlers"
	"resurface-backend/internal/learner"
	"resurface-backend/internal/observability"
	"resurface-backend/internal/orchestrator"
	"resurface-backend/internal/ranker"
	"resurface-backend/internal/repository"
	"resurface-backend/internal/repository/memory"
	"resurface-backend/internal/repository/sqlite"
	"resurface-backend/internal/service"
	"resurface-backend/internal/timing"
)

const metricsNamespace = "resurface"

// App is the composed application.
type App struct {
	Config       *config.Config
	Logger       *zap.Logger
	Metrics      *observability.Collector
	Service      *service.Service
	Orchestrator *orchestrator.Orchestrator
	Router       http.Handler

	// Contents is the mutable in-memory catalog the host feeds.
	Contents *memory.ContentRepository

	persist repository.RelationshipPersistence
	graph   *graph.Store
	closers []func() error
}

// HydrateGraph loads the persisted relationships into the in-memory graph.
func (a *App) HydrateGraph(ctx context.Context) error {
	rels, err := a.persist.List(ctx)
	if err != nil {
		return err
	}
	a.graph.Load(rels)
	a.Logger.Info("relationship graph hydrated", zap.Int("relationships", len(rels)))
	return nil
}

// Close releases held resources.
func (a *App) Close() {
	for _, fn := range a.closers {
		if err := fn(); err != nil {
			a.Logger.Warn("close failed", zap.Error(err))
		}
	}
	_ = a.Logger.Sync()
}

// BuildLogger constructs the zap logger from configuration.
func BuildLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}

// BuildApp constructs every component explicitly and wires them together.
// The relationship graph is hydrated from persistence and the learned state
// restored before the app is returned.
func BuildApp(cfg *config.Config) (*App, error) {
	logger, err := BuildLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}
	metrics := observability.NewCollector(metricsNamespace)

	app := &App{Config: cfg, Logger: logger, Metrics: metrics}

	var (
		persist   repository.RelationshipPersistence
		snapshots repository.SnapshotStore
	)
	switch cfg.Storage.Driver {
	case "sqlite":
		store, err := sqlite.Open(cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("open relationship store: %w", err)
		}
		app.closers = append(app.closers, store.Close)
		persist = store
		snapshots = store
	default:
		store := memory.NewRelationshipStore()
		persist = store
		snapshots = memory.NewSnapshotStore()
	}
	persist = repository.NewTimeoutPersistence(persist, 0)
	persist = repository.NewBreakerPersistence(persist, repository.DefaultBreakerConfig("relationships"), logger)

	contents := memory.NewContentRepository()
	app.Contents = contents

	g := graph.NewStore(logger)

	orch := orchestrator.New(
		orchestrator.Config{
			DebounceDelay:   cfg.Orchestrator.DebounceDelay,
			SweepInterval:   cfg.Orchestrator.SweepInterval,
			BatchSize:       cfg.Orchestrator.BatchSize,
			RebuildPageSize: cfg.Orchestrator.RebuildPageSize,
			RelationshipTTL: cfg.Orchestrator.RelationshipTTL,
		},
		analyzer.New(analyzer.Options{
			MinThreshold: cfg.Analyzer.MinThreshold,
			MaxPerItem:   cfg.Analyzer.MaxPerItem,
			UseCategory:  cfg.Analyzer.UseCategory,
			UseConcepts:  cfg.Analyzer.UseConcepts,
			UseTags:      cfg.Analyzer.UseTags,
			UseText:      cfg.Analyzer.UseText,
		}, logger),
		g, contents, persist, metrics, logger,
	)
	app.Orchestrator = orch

	rankerCfg := ranker.DefaultConfig()
	rankerCfg.MaxAgeDays = cfg.Ranker.MaxAgeDays
	rankerCfg.RecentViewWindow = cfg.Ranker.RecentViewWindow
	rankerCfg.CategoryCap = cfg.Ranker.CategoryCap
	rankerCfg.AdaptStep = cfg.Ranker.AdaptStep

	svc := service.New(
		contents, snapshots, g, orch,
		ranker.New(rankerCfg, metrics, logger),
		timing.New(timing.Config{
			QuietStartHour: cfg.Timing.QuietStartHour,
			QuietEndHour:   cfg.Timing.QuietEndHour,
			MaxPerHour:     cfg.Timing.MaxPerHour,
			MinGap:         cfg.Timing.MinGap,
		}, metrics, logger),
		learner.New(learner.Config{
			HistoryLimit:       cfg.Learner.HistoryLimit,
			DailyCap:           cfg.Learner.DailyCap,
			BadTimingThreshold: cfg.Learner.BadTimingThreshold,
		}, metrics, logger),
		logger,
	)
	app.Service = svc
	app.Router = handlers.NewRouter(svc, metrics, logger)
	app.persist = persist
	app.graph = g

	return app, nil
}
