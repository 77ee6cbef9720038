// Package app builds the story service and its backends from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/princekumarofficial/impact-stories/internal/cache"
	"github.com/princekumarofficial/impact-stories/internal/config"
	mediasvc "github.com/princekumarofficial/impact-stories/internal/services/media"
	storiesService "github.com/princekumarofficial/impact-stories/internal/services/stories"
	"github.com/princekumarofficial/impact-stories/internal/storage"
	"github.com/princekumarofficial/impact-stories/internal/storage/memory"
	"github.com/princekumarofficial/impact-stories/internal/storage/postgres"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverMinIO    = "minio"
)

// NewLogger installs and returns the JSON logger used by every binary.
func NewLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Env == "local" || cfg.Env == "dev" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// App holds the wired service and whatever needs closing on shutdown.
type App struct {
	Stories *storiesService.Service
	Storage storage.Storage
	Redis   *redis.Client

	closers []io.Closer
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OpenStorage returns the record store selected by storage.driver.
func OpenStorage(cfg *config.Config) (storage.Storage, io.Closer, error) {
	switch cfg.Storage.Driver {
	case DriverMemory:
		slog.Warn("Using in-memory story storage; data is lost on restart")
		return memory.New(), nil, nil
	case "", DriverPostgres:
		pg, err := postgres.NewPostgres(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		return pg, pg.Db, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// OpenObjectStore returns the media gateway selected by object_store.driver.
func OpenObjectStore(cfg *config.Config) (storiesService.ObjectStore, error) {
	switch cfg.ObjectStore.Driver {
	case DriverMemory:
		slog.Warn("Using in-memory object storage; media is lost on restart")
		return mediasvc.NewMemoryStore(cfg.MinIO.PublicBaseURL).WithPreviewBaseURL(cfg.MinIO.PreviewBaseURL), nil
	case "", DriverMinIO:
		svc, err := mediasvc.NewService(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize object storage: %w", err)
		}
		return svc, nil
	default:
		return nil, fmt.Errorf("unknown object store driver %q", cfg.ObjectStore.Driver)
	}
}

// OpenRedis connects to Redis, returning nil when it is not configured or not reachable.
func OpenRedis(ctx context.Context, cfg *config.Config) *redis.Client {
	if cfg.Redis.Addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Warn("Redis unavailable, running without cache and rate limiting",
			slog.String("addr", cfg.Redis.Addr),
			slog.String("error", err.Error()))
		client.Close()
		return nil
	}
	slog.Info("Connected to Redis", slog.String("addr", cfg.Redis.Addr))
	return client
}

// NewThumbnailer returns the ffmpeg frame extractor, or nil when no binary is available.
func NewThumbnailer(cfg config.Media) storiesService.Thumbnailer {
	extractor, err := mediasvc.NewFrameExtractor(cfg.FFmpegPath, cfg.ThumbnailAtSeconds)
	if err != nil {
		slog.Info("Video thumbnails fall back to derived previews", slog.String("reason", err.Error()))
		return nil
	}
	return extractor
}

// New wires storage, cache, object storage and the story service.
func New(ctx context.Context, cfg *config.Config, publisher storiesService.Publisher) (*App, error) {
	a := &App{}

	store, closer, err := OpenStorage(cfg)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		a.closers = append(a.closers, closer)
	}

	objects, err := OpenObjectStore(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Redis = OpenRedis(ctx, cfg)
	a.Storage = store
	if a.Redis != nil {
		a.closers = append(a.closers, a.Redis)
		a.Storage = cache.NewCacheService(store, a.Redis, cfg.Redis.CacheTTL)
	}

	a.Stories = storiesService.NewService(a.Storage, objects, storiesService.Options{
		Validator:         mediasvc.NewValidator(cfg.Media),
		Thumbnailer:       NewThumbnailer(cfg.Media),
		Publisher:         publisher,
		Logger:            slog.Default(),
		Preview:           mediasvc.PreviewOptions{AtSeconds: cfg.Media.ThumbnailAtSeconds},
		OrphanGracePeriod: cfg.Worker.OrphanGracePeriod,
	})
	return a, nil
}
