// Package app wires the trainer's components from configuration. Both the
// HTTP server and the terminal client are built on it.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/lid-trainer/backend/internal/content"
	"github.com/lid-trainer/backend/internal/events"
	"github.com/lid-trainer/backend/internal/infrastructure/config"
	"github.com/lid-trainer/backend/internal/infrastructure/metrics"
	"github.com/lid-trainer/backend/internal/mistakes"
	"github.com/lid-trainer/backend/internal/repository"
	"github.com/lid-trainer/backend/internal/sampling"
	"github.com/lid-trainer/backend/internal/service"
	"github.com/lid-trainer/backend/internal/store"
)

type App struct {
	Config      *config.Config
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
	Backend     store.Backend
	Sessions    *repository.SessionRepository
	Results     *repository.ResultRepository
	Preferences *repository.PreferencesRepository
	Content     *content.Source
	Mistakes    *mistakes.Generator
	Publisher   events.Publisher
	Manager     *service.Manager
}

// New opens the storage backend and the event publisher and builds every
// service on top of them. Close releases both.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, reg *prometheus.Registry) (*App, error) {
	m := metrics.New(reg)

	backend, err := openBackend(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Storage.Backend, err)
	}

	kv := store.NewAdapter(backend, cfg.Storage.Namespace, logger, m)
	sessions := repository.NewSessionRepository(kv, logger)
	results := repository.NewResultRepository(kv, logger)
	prefs := repository.NewPreferencesRepository(kv, logger)
	kv.SetCleaner(repository.NewRetention(sessions, results, logger))

	var fetcher content.Fetcher
	if cfg.Content.BaseURL != "" {
		fetcher = content.NewHTTPFetcher(cfg.Content.BaseURL, cfg.Content.Timeout)
	} else {
		fetcher = content.NewFSFetcher(os.DirFS(cfg.Content.Dir))
	}
	src := content.NewSource(fetcher, cfg.Content.Workers, logger, m)

	publisher, err := events.NewEventPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange, logger)
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("failed to connect event publisher: %w", err)
	}

	gen := mistakes.NewGenerator(results, logger)
	manager := service.NewManager(service.Deps{
		Sessions:    sessions,
		Results:     results,
		Preferences: prefs,
		Sampler:     sampling.NewEngine(src, logger),
		Mistakes:    gen,
		Publisher:   publisher,
		Metrics:     m,
		Logger:      logger,
	})

	return &App{
		Config:      cfg,
		Logger:      logger,
		Metrics:     m,
		Backend:     backend,
		Sessions:    sessions,
		Results:     results,
		Preferences: prefs,
		Content:     src,
		Mistakes:    gen,
		Publisher:   publisher,
		Manager:     manager,
	}, nil
}

func openBackend(ctx context.Context, cfg config.StorageConfig) (store.Backend, error) {
	switch cfg.Backend {
	case "memory":
		return store.NewMemory(int(cfg.QuotaBytes)), nil
	case "sqlite":
		return store.NewSQLite(cfg.SQLitePath, cfg.QuotaBytes)
	case "redis":
		return store.NewRedis(ctx, store.RedisConfig{
			Address:  cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

func (a *App) Close() error {
	return errors.Join(a.Publisher.Close(), a.Backend.Close())
}
