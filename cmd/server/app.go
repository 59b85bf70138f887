package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/ridwanfathin/labellens-service/internal/blobref"
	"github.com/ridwanfathin/labellens-service/internal/config"
	"github.com/ridwanfathin/labellens-service/internal/connectivity"
	"github.com/ridwanfathin/labellens-service/internal/coord"
	"github.com/ridwanfathin/labellens-service/internal/database"
	"github.com/ridwanfathin/labellens-service/internal/domain"
	"github.com/ridwanfathin/labellens-service/internal/extraction"
	"github.com/ridwanfathin/labellens-service/internal/history"
	"github.com/ridwanfathin/labellens-service/internal/mlxclient"
	"github.com/ridwanfathin/labellens-service/internal/notify"
	"github.com/ridwanfathin/labellens-service/internal/openrouter"
	"github.com/ridwanfathin/labellens-service/internal/repository"
	"github.com/ridwanfathin/labellens-service/internal/service"
	"github.com/ridwanfathin/labellens-service/internal/session"
	"github.com/ridwanfathin/labellens-service/internal/storage"
	"github.com/ridwanfathin/labellens-service/internal/syncer"
)

// app holds the wired core components
type app struct {
	store     repository.Store
	extractor extraction.Extractor
	monitor   *connectivity.Monitor
	coord     *coord.Coordinator
	refs      *blobref.Registry
	feed      *notify.Feed
	history   *history.Projection
	engine    *syncer.Engine
	session   *session.Controller
	queue     service.QueueService
	orders    service.OrderService

	closers []func() error
}

// newApp opens the configured store and extraction provider and wires the
// sync engine, session controller and history projection around them.
func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger, online bool) (*app, error) {
	a := &app{
		monitor: connectivity.NewMonitor(online),
		coord:   coord.New(),
		refs:    blobref.NewRegistry(),
		feed:    notify.NewFeed(200),
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, store.Close)

	if archive := openArchive(cfg, logger); archive != nil {
		store = repository.NewArchivingStore(store, archive, logger)
	}
	a.store = store

	a.extractor = openExtractor(ctx, cfg, logger, a)

	clock := domain.NewKeyClock()
	latest, err := repository.LatestTimestamp(ctx, store)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to read confirmed history: %w", err)
	}
	clock.Observe(latest)

	sink := notify.Multi(a.feed, notify.NewLogSink(logger))
	a.history = history.NewProjection(store, a.refs, sink, logger)

	a.engine = syncer.NewEngine(syncer.Deps{
		Store:       store,
		Extractor:   a.extractor,
		Monitor:     a.monitor,
		Coordinator: a.coord,
		Clock:       clock,
		Sink:        sink,
		History:     a.history,
		Logger:      logger,
	}, syncer.Options{StatusDelay: cfg.SyncStatusDelay})

	a.session = session.NewController(session.Deps{
		Store:       store,
		Extractor:   a.extractor,
		Monitor:     a.monitor,
		Coordinator: a.coord,
		Clock:       clock,
		Refs:        a.refs,
		Sink:        sink,
		History:     a.history,
		Logger:      logger,
		OnIdle:      a.engine.Kick,
	})

	a.queue = service.NewQueueService(store, a.engine, a.coord, sink, logger)

	if cfg.OrdersDBURL != "" {
		db, err := repository.OpenOrderDB(cfg.OrdersDBURL)
		if err != nil {
			logger.Warn().Err(err).Msg("order routes disabled")
		} else {
			a.closers = append(a.closers, closeGorm(db))
			a.orders = service.NewOrderService(repository.NewGormOrderRepository(db), logger)
		}
	}

	if err := a.history.Reload(ctx); err != nil {
		logger.Warn().Err(err).Msg("initial history load failed")
	}

	return a, nil
}

// Close shuts the session down, flushing unprocessed files to the queue,
// then releases the store and provider handles.
func (a *app) Close() error {
	var errs []error
	if a.session != nil {
		errs = append(errs, a.session.Close(context.Background()))
	}
	if a.engine != nil {
		a.engine.Wait()
		a.engine.Close()
	}
	if a.history != nil {
		a.history.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (repository.Store, error) {
	switch cfg.StoreBackend {
	case config.StoreMemory:
		logger.Warn().Msg("using in-memory store, nothing survives a restart")
		return repository.NewMemoryStore(), nil
	case config.StorePostgres:
		db, err := database.NewPostgresDB(ctx, cfg.PostgresDBURL)
		if err != nil {
			return nil, err
		}
		if _, err := db.Migrate(ctx, logger); err != nil {
			db.Close()
			return nil, err
		}
		return repository.NewPostgresStore(db), nil
	default:
		return repository.NewBadgerStore(repository.BadgerConfig{
			Dir:    cfg.BadgerDir,
			Logger: logger,
		})
	}
}

// openExtractor builds the configured provider. A provider that cannot be
// built leaves an extractor that always fails, so images still queue and
// the sync engine keeps them pending.
func openExtractor(ctx context.Context, cfg *config.Config, logger zerolog.Logger, a *app) extraction.Extractor {
	var ex extraction.Extractor

	switch cfg.ExtractionProvider {
	case config.ProviderMLX:
		ex = mlxclient.NewClient(&mlxclient.Config{
			BaseURL: cfg.MLXBaseURL,
			Timeout: cfg.MLXTimeout,
		})
	case config.ProviderOpenRouter:
		orCfg := openrouter.DefaultConfig()
		orCfg.APIKey = cfg.OpenRouterAPIKey
		orCfg.ModelID = cfg.OpenRouterModelID
		orCfg.Timeout = cfg.OpenRouterTimeout
		ex = openrouter.NewClient(orCfg)
	default:
		client, err := extraction.NewGeminiClient(ctx, extraction.GeminiConfig{
			APIKey: cfg.GeminiAPIKey,
			Model:  cfg.GeminiModel,
		})
		if err != nil {
			logger.Error().Err(err).Msg("extraction provider unavailable")
			return extraction.ExtractorFunc(func(context.Context, []byte, string) (domain.Extracted, error) {
				return domain.Extracted{}, err
			})
		}
		a.closers = append(a.closers, client.Close)
		ex = client
	}

	logger.Info().Str("provider", cfg.ExtractionProvider).Int("max_dimension", cfg.ExtractMaxDimension).Msg("extraction provider ready")
	return extraction.WithDownscale(ex, cfg.ExtractMaxDimension)
}

// openArchive prefers S3 and falls back to a local directory. It returns nil
// when neither is configured.
func openArchive(cfg *config.Config, logger zerolog.Logger) repository.ImageArchive {
	if s3cfg := s3Config(cfg); s3cfg.Enabled() {
		archive, err := storage.NewS3Archive(&s3cfg)
		if err == nil {
			logger.Info().Str("bucket", s3cfg.Bucket).Msg("archiving confirmed images to S3")
			return archive
		}
		logger.Warn().Err(err).Msg("S3 archive disabled")
	}
	if cfg.ArchiveDir != "" {
		archive, err := storage.NewDiskArchive(cfg.ArchiveDir)
		if err == nil {
			logger.Info().Str("dir", cfg.ArchiveDir).Msg("archiving confirmed images to disk")
			return archive
		}
		logger.Warn().Err(err).Msg("disk archive disabled")
	}
	return nil
}

func s3Config(cfg *config.Config) storage.Config {
	return storage.Config{
		Endpoint:        cfg.S3Endpoint,
		AccessKeyID:     cfg.S3AccessKeyID,
		AccessKeySecret: cfg.S3AccessKeySecret,
		Bucket:          cfg.S3Bucket,
		Region:          cfg.S3Region,
	}
}

func closeGorm(db *gorm.DB) func() error {
	return func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
}
