package cli

import (
	"context"
	"fmt"

	"keywe-backend/internal"
	"keywe-backend/internal/cache"
	"keywe-backend/internal/config"
	"keywe-backend/internal/handlers"
	"keywe-backend/internal/services"
	"keywe-backend/internal/storage"

	"github.com/rs/zerolog/log"
)

// app holds the long-lived clients and services built from configuration.
type app struct {
	cfg      *config.Config
	storage  storage.StorageClient
	local    *storage.LocalStorageClient
	cache    cache.Cache
	redis    *cache.RedisCache
	pdf      *services.PDFService
	services *handlers.Services
}

// newApp connects the database and builds every service. Close releases what it opened.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	if err := internal.InitDB(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	a := &app{cfg: cfg, cache: cache.Noop{}}

	switch cfg.Storage.Type {
	case "gcs":
		log.Info().Str("bucket", cfg.GCS.BucketName).Msg("initializing GCS storage")
		client, err := storage.NewGCSClient(ctx, cfg.GCS.BucketName, cfg.GCS.ProjectID, cfg.GCS.CredentialsPath)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize GCS client: %w", err)
		}
		a.storage = client
	default:
		log.Info().Str("path", cfg.Storage.LocalPath).Msg("initializing local storage")
		client, err := storage.NewLocalStorageClient(cfg.Storage.LocalPath, cfg.Storage.LocalURL, cfg.Storage.SecretKey)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize local storage client: %w", err)
		}
		a.storage = client
		a.local = client
	}

	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedisCache(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable, caching disabled")
		} else {
			a.redis = rc
			a.cache = rc
		}
	}

	pdfService, err := services.NewPDFService(cfg.Gotenberg.URL, cfg.Gotenberg.Timeout)
	if err != nil {
		log.Warn().Err(err).Msg("PDF service unavailable, brochures disabled")
	} else {
		a.pdf = pdfService
	}

	stats := services.NewStatisticsService()
	attachments := services.NewAttachmentService(a.storage, cfg.Storage.URLExpiry)
	properties := services.NewPropertyService(attachments, stats)

	var converter services.PDFConverter
	if a.pdf != nil {
		converter = a.pdf
	}

	a.services = &handlers.Services{
		Auth:        services.NewAuthService(cfg.Auth, services.LogNotifier{}),
		Authz:       services.NewAuthzService(a.cache, cfg.Redis.TTL),
		Builders:    services.NewBuilderService(attachments),
		Projects:    services.NewProjectService(attachments),
		Properties:  properties,
		Tagging:     services.NewTaggingService(),
		Preferences: services.NewPreferenceService(a.cache, cfg.Redis.TTL, properties),
		Filters:     services.NewFilterService(),
		Leads:       services.NewLeadService(stats),
		Stats:       stats,
		ActivityLog: services.NewActivityLogService(),
		Attachments: attachments,
		Brochures:   services.NewBrochureService(properties, converter),
		Location:    services.NewLocationService(cfg.GeoIP, a.cache),

		LocalFiles:     a.local,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		StorageType:    cfg.Storage.Type,
	}
	return a, nil
}

// seed loads the reference data: roles, filter taxonomy and preference options.
func (a *app) seed(ctx context.Context) error {
	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{"roles", a.services.Authz.InitializeDefaultRoles},
		{"filters", a.services.Filters.InitializeDefaultFilters},
		{"preference options", a.services.Preferences.InitializeDefaultOptions},
	}
	for _, step := range steps {
		if err := step.run(ctx); err != nil {
			return fmt.Errorf("failed to seed %s: %w", step.name, err)
		}
	}
	return nil
}

func (a *app) Close() {
	if a.pdf != nil {
		if err := a.pdf.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing PDF service")
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing redis")
		}
	}
	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing storage")
		}
	}
	if err := internal.CloseDB(); err != nil {
		log.Warn().Err(err).Msg("error closing database")
	}
}
