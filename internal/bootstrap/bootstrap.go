// Package bootstrap wires the application's components from configuration.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/bilgisen/blogfront/internal/blog"
	"github.com/bilgisen/blogfront/internal/cache"
	"github.com/bilgisen/blogfront/internal/cms"
	"github.com/bilgisen/blogfront/internal/config"
	"github.com/bilgisen/blogfront/internal/dates"
	"github.com/bilgisen/blogfront/internal/generator"
	"github.com/bilgisen/blogfront/internal/logger"
	"github.com/bilgisen/blogfront/internal/site"
	"github.com/bilgisen/blogfront/internal/storage"
)

// Components are the long-lived parts of the application
type Components struct {
	Cache     cache.Store
	Blog      *blog.Service
	Formatter *dates.Formatter
	Renderer  *site.Renderer
	Pages     *storage.Storage
	Generator *generator.Generator
}

// New builds every component. Without CACHE_ENABLED the in-memory cache is
// used; without R2 settings nothing is published.
func New(ctx context.Context, cfg *config.Config) (*Components, error) {
	log := logger.Get()

	var store cache.Store
	if cfg.CacheEnabled {
		redisClient, err := cache.NewRedisClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Redis client: %w", err)
		}
		store = redisClient
	} else {
		log.Warn().Msg("Cache disabled, using in-memory store")
		store = cache.NewMockClient()
	}

	client, err := cms.NewClient(cms.Options{
		Endpoint:    cfg.CMSEndpoint,
		AccessToken: cfg.CMSAccessToken,
		Timeout:     cfg.HTTPTimeout,
		RetryCount:  cfg.CMSRetryCount,
		Cache:       store,
		CacheTTL:    cfg.CacheTTL,
		RefTTL:      cfg.CMSRefTTL,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize CMS client: %w", err)
	}

	service := blog.NewService(client, blog.Options{
		DocumentType:    cfg.CMSDocumentType,
		ListingPageSize: cfg.ListingPageSize,
		StaticPaths:     cfg.StaticPaths,
	})

	formatter := dates.NewFormatter(cfg.DateLocale, cfg.Location())
	renderer, err := site.NewRenderer(formatter, site.Options{
		SiteURL:        cfg.SiteURL,
		WordsPerMinute: cfg.ReadingWPM,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	pages, err := storage.NewStorage(cfg.OutputPath)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	opts := generator.Options{
		SiteURL:     cfg.SiteURL,
		Concurrency: cfg.MaxConcurrency,
		Formatter:   formatter,
	}
	if cfg.PublishEnabled() {
		publisher, err := storage.NewR2Publisher(ctx, cfg)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to initialize R2 publisher: %w", err)
		}
		opts.Publisher = publisher
		log.Info().Str("bucket", cfg.R2Bucket).Msg("Publishing generated pages to R2")
	}

	return &Components{
		Cache:     store,
		Blog:      service,
		Formatter: formatter,
		Renderer:  renderer,
		Pages:     pages,
		Generator: generator.New(service, renderer, pages, opts),
	}, nil
}

// Close releases the cache connection
func (c *Components) Close() error {
	return c.Cache.Close()
}
