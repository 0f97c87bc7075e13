// Package app initializes and holds long-lived application services,
// acting as the dependency injection container for the CLI commands.
package app

import (
	"context"
	"fmt"
	"time"

	gcsclient "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"medialib/internal/archive/gcs"
	"medialib/internal/archive/local"
	archivemem "medialib/internal/archive/memory"
	"medialib/internal/catalog"
	"medialib/internal/config"
	"medialib/internal/crawl"
	"medialib/internal/extract"
	"medialib/internal/fetch"
	"medialib/internal/logging"
	publishmem "medialib/internal/publish/memory"
	"medialib/internal/publish/pubsub"
	"medialib/internal/resolve"
	"medialib/internal/seed"
	storemem "medialib/internal/store/memory"
	"medialib/internal/store/postgres"
)

// App holds the shared, long-lived services built from configuration.
// It is initialized once at startup and handed to the commands.
type App struct {
	cfg          config.Config
	logger       *zap.Logger
	store        catalog.Store
	archive      catalog.BlobStore
	publisher    catalog.Publisher
	orchestrator *crawl.Orchestrator

	closers []func()
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config { return a.cfg }

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Store exposes the configured persistence gateway.
func (a *App) Store() catalog.Store { return a.store }

// Orchestrator exposes the crawl orchestrator.
func (a *App) Orchestrator() *crawl.Orchestrator { return a.orchestrator }

// Close shuts services down in reverse initialization order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// New builds the full service graph. It fails fast when any critical
// service cannot be initialized.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &App{cfg: cfg, logger: logger}

	if a.store, err = buildStore(ctx, cfg, a); err != nil {
		a.Close()
		return nil, err
	}
	if a.archive, err = buildArchive(ctx, cfg, a); err != nil {
		a.Close()
		return nil, err
	}
	if a.publisher, err = buildPublisher(ctx, cfg, a); err != nil {
		a.Close()
		return nil, err
	}

	fetcher := fetch.New(fetch.Config{
		UserAgent:   cfg.HTTP.UserAgent,
		Timeout:     cfg.FetchTimeout(),
		MaxAttempts: cfg.HTTP.MaxAttempts,
		BackoffBase: cfg.BackoffBase(),
		PerHostRPS:  cfg.HTTP.PerHostRPS,
	}, logger)

	extractor := extract.New()
	if cfg.Site.CategoryPath != "" {
		extractor.CategoryPath = cfg.Site.CategoryPath
	}
	if len(cfg.Site.EmbedHosts) > 0 {
		extractor.EmbedHosts = cfg.Site.EmbedHosts
	}

	resolver := resolve.New(fetcher, cfg.Site.MediaExtension, logger)

	seeds, err := loadSeeds(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.orchestrator = crawl.New(
		crawl.Config{
			BaseURL:         cfg.Site.BaseURL,
			MaxStudios:      cfg.Crawl.MaxStudios,
			PagesPerStudio:  cfg.Crawl.PagesPerStudio,
			EnrichBatchSize: cfg.Crawl.EnrichBatchSize,
			PageDelay:       millis(cfg.Crawl.PageDelayMs),
			VideoDelay:      millis(cfg.Crawl.VideoDelayMs),
			StudioDelay:     millis(cfg.Crawl.StudioDelayMs),
			ArchivePrefix:   cfg.Archive.Prefix,
			EventTopic:      cfg.Events.Topic,
			SeedOnEmpty:     cfg.Site.UseSeedOnEmpty,
			Seeds:           seeds,
		},
		fetcher,
		extractor,
		resolver,
		a.store,
		a.archive,
		a.publisher,
		catalog.SystemClock{},
		logger,
	)

	logger.Info("application services initialized",
		zap.String("db", cfg.DB.Provider),
		zap.String("archive", cfg.Archive.Provider),
		zap.String("events", cfg.Events.Provider),
	)
	return a, nil
}

func buildStore(ctx context.Context, cfg config.Config, a *App) (catalog.Store, error) {
	switch cfg.DB.Provider {
	case "postgres":
		a.logger.Info("connecting to PostgreSQL")
		st, err := postgres.New(ctx, postgres.Config{
			DSN:      cfg.DB.DSN,
			MaxConns: cfg.DB.MaxConns,
		})
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
		if err := st.EnsureSchema(ctx); err != nil {
			st.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		a.closers = append(a.closers, st.Close)
		return st, nil
	case "memory":
		a.logger.Info("using in-memory store, catalog will not survive restarts")
		return storemem.New(catalog.SystemClock{}), nil
	default:
		return nil, fmt.Errorf("unknown db provider: %s", cfg.DB.Provider)
	}
}

func buildArchive(ctx context.Context, cfg config.Config, a *App) (catalog.BlobStore, error) {
	switch cfg.Archive.Provider {
	case "gcs":
		client, err := gcsclient.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("init gcs client: %w", err)
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		return gcs.New(client, cfg.Archive.GCSBucket)
	case "local":
		return local.New(cfg.Archive.BaseDir)
	case "memory":
		return archivemem.New(), nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown archive provider: %s", cfg.Archive.Provider)
	}
}

func buildPublisher(ctx context.Context, cfg config.Config, a *App) (catalog.Publisher, error) {
	switch cfg.Events.Provider {
	case "pubsub":
		a.logger.Info("connecting to Pub/Sub", zap.String("topic", cfg.Events.Topic))
		p, err := pubsub.New(ctx, cfg.Events.ProjectID, cfg.Events.Topic)
		if err != nil {
			return nil, fmt.Errorf("init pubsub publisher: %w", err)
		}
		a.closers = append(a.closers, func() { _ = p.Close() })
		return p, nil
	case "memory":
		return publishmem.New(), nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown events provider: %s", cfg.Events.Provider)
	}
}

func loadSeeds(cfg config.Config) ([]catalog.Studio, error) {
	if cfg.Site.SeedFile != "" {
		seeds, err := seed.Load(cfg.Site.SeedFile)
		if err != nil {
			return nil, fmt.Errorf("load seed file: %w", err)
		}
		return seeds, nil
	}
	return seed.Default(), nil
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
