package cmd

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"Vedit/cache"
	"Vedit/config"
	"Vedit/core/export"
	"Vedit/core/jobs"
	"Vedit/core/media"
	"Vedit/core/studio"
	"Vedit/core/thumbs"
	"Vedit/core/upload"
	"Vedit/logger"
	"Vedit/repository"
	"Vedit/storage"
)

// app is the wired service graph shared by the server and export commands.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	service *studio.Service
	closers []func() error
}

func (a *app) Close() error {
	var err error
	for i := len(a.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, a.closers[i]())
	}
	logger.Sync()
	return err
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger.InitLogger(logger.Config{
		Level:       logger.LogLevel(cfg.LogLevel),
		OutputPath:  cfg.LogFile,
		MaxSize:     cfg.LogMaxSize,
		MaxBackups:  cfg.LogMaxBackups,
		MaxAge:      cfg.LogMaxAge,
		Compress:    true,
		Development: cfg.IsDevelopment(),
	})
	return cfg, nil
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: logger.L()}

	jobStore, admissionStore, err := a.jobStores(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	publisher, err := a.publisher(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	layout := storage.NewLayout(cfg.DataDir)
	gateway := media.NewGateway(media.Paths{
		FFmpeg:  cfg.FFmpegPath,
		FFprobe: cfg.FFprobePath,
		Stretch: cfg.StretchPath,
	}, nil, a.log)

	scales := make([]thumbs.Scale, 0, len(cfg.Scales))
	for _, sc := range cfg.Scales {
		scales = append(scales, thumbs.Scale{Key: sc.Key, FPS: sc.FPS})
	}
	geom := thumbs.Geometry{Height: cfg.ThumbHeight, Cols: cfg.ThumbCols, Rows: cfg.ThumbRows}

	a.service = studio.NewService(studio.Deps{
		Layout:    layout,
		Projects:  repository.NewProjectRepository(layout),
		Tracks:    repository.NewTrackListRepository(layout),
		Metadata:  repository.NewMetadataRepository(layout),
		Engine:    gateway,
		Assembler: upload.NewAssembler(cfg.ChunkDir, a.log),
		Thumbs:    thumbs.NewScheduler(gateway, geom, scales, cfg.ThumbConcurrency, a.log),
		Exporter:  export.NewExporter(gateway, layout, publisher, a.log),
		Jobs:      jobs.NewTracker(jobStore, cfg.JobTTL, a.log),
		Admission: jobs.NewTracker(admissionStore, cfg.AdmissionTTL, a.log),
		Publisher: publisher,
		Log:       a.log,
	})
	return a, nil
}

// jobStores returns the job and admission stores. Both share one backend so
// admission holds across instances when Redis is used.
func (a *app) jobStores(ctx context.Context) (jobs.Store, jobs.Store, error) {
	if a.cfg.JobStore == "redis" {
		client, err := cache.Connect(ctx, cache.Options{
			Addr:     a.cfg.RedisAddr(),
			Password: a.cfg.RedisPassword,
			DB:       a.cfg.RedisDB,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect job store: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		logger.Info("using redis job store", logger.String("addr", a.cfg.RedisAddr()), logger.Int("db", a.cfg.RedisDB))
		store := jobs.NewRedisStore(client)
		return store, store, nil
	}

	jobStore := jobs.NewMemoryStore()
	admissionStore := jobs.NewMemoryStore()
	a.closers = append(a.closers, jobStore.Close, admissionStore.Close)
	return jobStore, admissionStore, nil
}

func (a *app) publisher(ctx context.Context) (storage.Publisher, error) {
	if a.cfg.MinioEndpoint == "" {
		return storage.NopPublisher{}, nil
	}
	p, err := newMinioPublisher(ctx, a.cfg, a.log)
	if err != nil {
		return nil, fmt.Errorf("connect publish mirror: %w", err)
	}
	logger.Info("mirroring published exports", logger.String("endpoint", a.cfg.MinioEndpoint), logger.String("bucket", a.cfg.MinioBucket))
	return p, nil
}

func newMinioPublisher(ctx context.Context, cfg *config.Config, log *zap.Logger) (*storage.MinioPublisher, error) {
	return storage.NewMinioPublisher(ctx, storage.MinioConfig{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Bucket:    cfg.MinioBucket,
		Region:    cfg.MinioRegion,
		UseSSL:    cfg.MinioUseSSL,
	}, log)
}
