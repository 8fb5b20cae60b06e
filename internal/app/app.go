package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/allenac86/spooky-days-twitter/internal/config"
	"github.com/allenac86/spooky-days-twitter/internal/database"
	"github.com/allenac86/spooky-days-twitter/internal/generator"
	"github.com/allenac86/spooky-days-twitter/internal/imagegen"
	"github.com/allenac86/spooky-days-twitter/internal/ledger"
	"github.com/allenac86/spooky-days-twitter/internal/publisher"
	"github.com/allenac86/spooky-days-twitter/internal/secrets"
	"github.com/allenac86/spooky-days-twitter/internal/storage"
	"github.com/allenac86/spooky-days-twitter/internal/streams"
	"github.com/allenac86/spooky-days-twitter/internal/twitter"
	"github.com/allenac86/spooky-days-twitter/internal/worker"
	"gorm.io/gorm"
)

// App holds every long-lived dependency, constructed once at startup and
// shared by the scheduler, worker, stream consumer and HTTP surface.
type App struct {
	Config    *config.Config
	Log       *slog.Logger
	DB        *gorm.DB
	Store     *storage.Store
	Ledger    *ledger.Store
	Notifier  *streams.Notifier
	Images    *imagegen.Client
	Twitter   *twitter.Client
	Generator *generator.Generator
	Publisher *publisher.Publisher
}

// New builds the dependency graph from configuration. Construction fails
// loudly on anything the pipeline cannot run without.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	log := worker.SetDefaultLogger(cfg.LogLevel, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	db, err := database.Init(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := database.RunMigrations(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	source, err := secrets.NewEnvSource(cfg.SecretsKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize secrets source: %w", err)
	}

	notifier, err := streams.NewNotifier(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create stream notifier: %w", err)
	}

	store, err := storage.New(ctx, storage.Options{
		Bucket:       cfg.ImageBucket,
		EmulatorHost: cfg.EmulatorHost,
	}, notifier, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to object storage: %w", err)
	}

	images, err := newImageClient(ctx, cfg, source)
	if err != nil {
		return nil, err
	}

	tw, err := newTwitterClient(ctx, cfg, source)
	if err != nil {
		return nil, err
	}

	led := ledger.NewStore(db)

	gen, err := generator.New(generator.Config{
		Store:           store,
		Images:          images,
		Ledger:          led,
		CalendarKey:     cfg.CalendarKey,
		ContinueOnError: cfg.ContinueOnError,
		Concurrency:     cfg.GenerateConcurrency,
		ScratchDir:      os.TempDir(),
		Log:             log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build generator: %w", err)
	}

	pub, err := publisher.New(store, tw, led, os.TempDir(), log)
	if err != nil {
		return nil, fmt.Errorf("failed to build publisher: %w", err)
	}

	return &App{
		Config:    cfg,
		Log:       log,
		DB:        db,
		Store:     store,
		Ledger:    led,
		Notifier:  notifier,
		Images:    images,
		Twitter:   tw,
		Generator: gen,
		Publisher: pub,
	}, nil
}

func newImageClient(ctx context.Context, cfg *config.Config, source secrets.Source) (*imagegen.Client, error) {
	opts := imagegen.Options{
		Model:   cfg.ImageModel,
		Size:    cfg.ImageSize,
		Style:   cfg.ImageStyle,
		Quality: cfg.ImageQuality,
	}

	if cfg.ImageStub {
		return imagegen.NewClient("", "", opts, true), nil
	}

	apiKey, err := source.Get(ctx, cfg.OpenAISecretID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve image API key: %w", err)
	}
	return imagegen.NewClient("", apiKey, opts, false), nil
}

func newTwitterClient(ctx context.Context, cfg *config.Config, source secrets.Source) (*twitter.Client, error) {
	secret, err := source.Get(ctx, cfg.TwitterSecretID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve twitter credentials: %w", err)
	}
	creds, err := twitter.ParseCredentials(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to parse twitter credentials: %w", err)
	}
	return twitter.NewClient(creds, "", ""), nil
}

// Close releases connections held by the container.
func (a *App) Close() {
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Log.Error("Failed to close storage client", "error", err)
		}
	}
	if a.DB != nil {
		if err := database.Close(a.DB); err != nil {
			a.Log.Error("Failed to close database", "error", err)
		}
	}
}
