package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/DavidGomesv/geradorDeRelatorio/internal/config"
	"github.com/DavidGomesv/geradorDeRelatorio/internal/domain/report"
	"github.com/DavidGomesv/geradorDeRelatorio/internal/domain/upload"
	"github.com/DavidGomesv/geradorDeRelatorio/internal/pkg/apperror"
	"github.com/DavidGomesv/geradorDeRelatorio/internal/pkg/database"
	"github.com/DavidGomesv/geradorDeRelatorio/internal/pkg/imaging"
	"github.com/DavidGomesv/geradorDeRelatorio/internal/pkg/storage"
)

// app wires the services one command needs.
type app struct {
	cfg        *config.Config
	layout     *report.Layout
	cache      upload.Cache
	uploads    *upload.Service
	persistent bool // cache outlives the process
}

func newApp(ctx context.Context, cfg *config.Config, layoutFile string) (*app, error) {
	if layoutFile == "" {
		layoutFile = cfg.LayoutFile
	}
	layout, err := report.LoadLayout(layoutFile)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, layout: layout}

	rdb, err := database.NewRedis(ctx, database.RedisConfig{
		URL:      cfg.RedisURL,
		PoolSize: cfg.RedisPoolSize,
		Timeout:  cfg.RedisTimeout,
	})
	if err != nil {
		return nil, apperror.Wrap(apperror.KindResource, "connect cache", "failed to connect to Redis", err)
	}
	if rdb != nil {
		a.cache = upload.NewRedisCache(rdb, cfg.SessionTTL, "")
		a.persistent = true
	} else {
		a.cache = upload.NewMemoryCache()
	}

	a.uploads = upload.NewService(a.cache, layout, cfg.MaxUploadBytes)
	return a, nil
}

func (a *app) Close() {
	if err := a.cache.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing session cache")
	}
}

// requirePersistent rejects session commands that would lose their state on exit.
func (a *app) requirePersistent() error {
	if !a.persistent {
		return fmt.Errorf("%w: sessions need REDIS_URL to be kept between runs", errUsage)
	}
	return nil
}

func (a *app) builder() (*report.Builder, error) {
	var spool imaging.Spool
	switch a.cfg.ScratchMode {
	case "", "memory":
		spool = imaging.MemorySpool{}
	case "disk":
		spool = imaging.NewDiskSpool(a.cfg.ScratchDir)
	default:
		return nil, fmt.Errorf("%w: SCRATCH_MODE must be memory or disk, got %q", errUsage, a.cfg.ScratchMode)
	}

	normalizer := imaging.NewNormalizer(imaging.Config{
		DefaultResolution: a.cfg.DefaultDPI,
		Quality:           a.cfg.JPEGQuality,
	}, spool)

	return report.NewBuilder(normalizer, report.BuilderConfig{
		Workers:     a.cfg.NormalizeWorkers,
		DefaultSize: a.layout.DefaultSize,
	}), nil
}

func (a *app) storage(ctx context.Context) (storage.Storage, error) {
	return openStorage(ctx, a.cfg)
}

// openStorage opens the configured output backend.
func openStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	st, err := storage.New(ctx, storage.Config{
		Backend:      cfg.OutputBackend,
		LocalDir:     cfg.OutputDir,
		LocalBaseURL: cfg.OutputBaseURL,
		R2: storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			AccessKeySecret: cfg.R2AccessKeySecret,
			BucketName:      cfg.R2BucketName,
			PublicURL:       cfg.R2PublicURL,
		},
		S3Endpoint:  cfg.S3Endpoint,
		S3Region:    cfg.S3Region,
		S3AccessKey: cfg.S3AccessKey,
		S3SecretKey: cfg.S3SecretKey,
		S3Bucket:    cfg.S3Bucket,
		S3PublicURL: cfg.S3PublicURL,
	})
	if err != nil {
		return nil, apperror.Wrap(apperror.KindResource, "open output", "failed to open output storage", err)
	}
	return st, nil
}
