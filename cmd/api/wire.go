package main

import (
	"context"
	"fmt"

	"github.com/panjf2000/ants/v2"

	"lucidify/internal/adapter/repo"
	"lucidify/internal/bus"
	"lucidify/internal/fallback"
	"lucidify/internal/http/handlers"
	"lucidify/internal/infra"
	"lucidify/internal/orchestrator"
	"lucidify/internal/providers/director"
	"lucidify/internal/providers/video"
	"lucidify/internal/storage"
)

type service struct {
	App     *handlers.App
	closers []func()
}

func (s *service) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func buildService(ctx context.Context, cfg *infra.Config, logger *infra.Logger) (*service, error) {
	svc := &service{}
	fail := func(err error) (*service, error) {
		svc.Close()
		return nil, err
	}

	strategy, err := orchestrator.ParseStrategy(cfg.JobStrategy)
	if err != nil {
		return fail(err)
	}
	mode, err := orchestrator.ParseMode(cfg.GenerationMode)
	if err != nil {
		return fail(err)
	}

	model, err := director.NewGeminiModel(ctx, cfg.GeminiAPIKey)
	if err != nil {
		return fail(err)
	}
	svc.closers = append(svc.closers, func() { _ = model.Close() })
	dir, err := director.New(director.Options{
		Model:         model,
		DirectorModel: cfg.DirectorModel,
		ChatModel:     cfg.ChatModel,
		Logger:        logger,
	})
	if err != nil {
		return fail(err)
	}

	var backend video.Backend
	if mode == orchestrator.ModeBackend {
		veo, err := video.NewVeo(video.Options{
			Protocol: video.Protocol(cfg.VideoProtocol),
			Endpoint: video.Endpoint{
				Flavor:   video.Flavor(cfg.VideoAPIFlavor),
				Host:     cfg.VideoAPIHost,
				Version:  cfg.VideoAPIVersion,
				Project:  cfg.GoogleCloudProject,
				Location: cfg.GoogleCloudLocation,
				Model:    cfg.VideoModel,
			},
			APIKey:      cfg.VideoAPIKey,
			AccessToken: cfg.VideoAccessToken,
			StorageURI:  cfg.VideoStorageURI,
			AspectRatio: cfg.VideoAspectRatio,
			Logger:      logger,
		})
		if err != nil {
			return fail(err)
		}
		backend = veo
		logger.Info().
			Str("protocol", string(veo.Protocol())).
			Str("flavor", cfg.VideoAPIFlavor).
			Str("model", cfg.VideoModel).
			Msg("video backend ready")
	}

	catalog, err := fallback.LoadCatalog(cfg.FallbackCatalogPath)
	if err != nil {
		return fail(err)
	}

	resolver, err := buildResolver(cfg)
	if err != nil {
		return fail(err)
	}

	reporters, err := buildReporters(ctx, cfg, logger, svc)
	if err != nil {
		return fail(err)
	}

	orch, err := orchestrator.New(orchestrator.Options{
		Config: orchestrator.Config{
			Strategy:     strategy,
			Mode:         mode,
			Budget:       cfg.JobBudget,
			SoftBudget:   cfg.JobSoftBudget,
			PollInterval: cfg.JobPollInterval,
			StepDelay:    cfg.JobStepDelay,
		},
		Refiner:   dir,
		Backend:   backend,
		Selector:  fallback.NewSelector(catalog),
		Resolver:  resolver,
		Reporters: reporters,
		Logger:    logger,
	})
	if err != nil {
		return fail(err)
	}

	pool, err := ants.NewPool(cfg.JobPoolSize,
		ants.WithNonblocking(true),
		ants.WithPanicHandler(func(p any) {
			logger.Error().Interface("panic", p).Msg("panic in job pool")
		}),
	)
	if err != nil {
		return fail(fmt.Errorf("create job pool: %w", err))
	}
	svc.closers = append(svc.closers, pool.Release)

	svc.App = handlers.NewApp(handlers.AppOptions{
		Orchestrator: orch,
		Director:     dir,
		Pool:         pool,
		Logger:       logger,
	})
	return svc, nil
}

func buildResolver(cfg *infra.Config) (*storage.Resolver, error) {
	opts := storage.Options{
		StaticBaseURL: cfg.StaticBaseURL,
		DefaultBucket: cfg.StorageBucket,
	}
	if cfg.SignsBucketURLs() {
		signer, err := storage.NewS3Signer(storage.S3SignerOptions{
			Endpoint:        cfg.StorageEndpoint,
			Region:          cfg.StorageRegion,
			AccessKeyID:     cfg.StorageAccessKeyID,
			SecretAccessKey: cfg.StorageSecretAccessKey,
			TTL:             cfg.SignedURLTTL,
		})
		if err != nil {
			return nil, err
		}
		opts.Signer = signer
	}
	return storage.NewResolver(opts), nil
}

func buildReporters(ctx context.Context, cfg *infra.Config, logger *infra.Logger, svc *service) ([]orchestrator.Reporter, error) {
	var reporters []orchestrator.Reporter
	if cfg.DatabaseURL != "" {
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		svc.closers = append(svc.closers, pool.Close)
		jobs := repo.NewDreamJobRepository(infra.NewSQLRunner(pool, *logger))
		if err := jobs.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		reporters = append(reporters, jobs)
		logger.Info().Msg("dream job log enabled")
	}
	if cfg.NATSURL != "" {
		client, err := bus.Connect(cfg.NATSURL)
		if err != nil {
			return nil, fmt.Errorf("connect nats: %w", err)
		}
		svc.closers = append(svc.closers, client.Close)
		reporters = append(reporters, bus.NewOutcomePublisher(client, cfg.NATSSubject))
		logger.Info().Str("subject", cfg.NATSSubject).Msg("outcome events enabled")
	}
	return reporters, nil
}
