// Package app builds the shared object graph used by the server and the CLI.
package app

import (
	"github.com/rs/zerolog"

	"github.com/cartwise/backend/config"
	"github.com/cartwise/backend/internal/domain"
	"github.com/cartwise/backend/internal/infrastructure/cache"
	"github.com/cartwise/backend/internal/infrastructure/catalog"
	"github.com/cartwise/backend/internal/infrastructure/merchant"
	"github.com/cartwise/backend/internal/usecase"
)

// Components are the catalog-facing services shared by every entry point
type Components struct {
	Searcher  domain.OfferSearcher
	Merchants *merchant.Directory
	closers   []func() error
}

// Close releases background resources such as the cache sweeper
func (c *Components) Close() error {
	for _, closer := range c.closers {
		if err := closer(); err != nil {
			return err
		}
	}
	return nil
}

// NewComponents builds the catalog client, its cache and the merchant directory
func NewComponents(cfg *config.Config, log zerolog.Logger) *Components {
	client := catalog.NewClient(catalog.Config{
		BaseURL:       cfg.Catalog.BaseURL,
		APIKey:        cfg.Catalog.APIKey,
		Timeout:       cfg.Catalog.Timeout,
		PageSize:      cfg.Catalog.PageSize,
		RatePerSecond: cfg.Catalog.RatePerSecond,
		Burst:         cfg.Catalog.Burst,
		MaxRetries:    cfg.Catalog.MaxRetries,
	}, log)

	components := &Components{
		Searcher:  client,
		Merchants: NewMerchantDirectory(cfg),
	}

	if cfg.Cache.Type == "memory" {
		memoryCache := cache.NewMemoryCache(cache.DefaultCleanupInterval)
		components.Searcher = catalog.NewCachedSearcher(client, memoryCache, cfg.Cache.TTL, log)
		components.closers = append(components.closers, memoryCache.Close)
	}

	log.Info().
		Str("catalog", cfg.Catalog.BaseURL).
		Bool("api_key", cfg.Catalog.APIKey != "").
		Str("cache", cfg.Cache.Type).
		Dur("cache_ttl", cfg.Cache.TTL).
		Msg("Catalog configured")

	return components
}

// NewMerchantDirectory builds the directory from configured overrides
func NewMerchantDirectory(cfg *config.Config) *merchant.Directory {
	dirCfg := merchant.Config{LogoURLTemplate: cfg.Merchants.LogoURLTemplate}
	if len(cfg.Merchants.Names) > 0 {
		dirCfg.Names = cfg.Merchants.Names
	}
	if len(cfg.Merchants.NumericNames) > 0 {
		dirCfg.NumericNames = cfg.Merchants.NumericNames
	}
	return merchant.NewDirectory(dirCfg)
}

// OptimizationConfig maps the optimizer section onto the service config
func OptimizationConfig(cfg *config.Config) usecase.OptimizationServiceConfig {
	return usecase.OptimizationServiceConfig{
		FetchWorkers:              cfg.Optimizer.FetchWorkers,
		SearchTimeout:             cfg.Optimizer.SearchTimeout,
		ConsiderAlternatives:      cfg.Optimizer.ConsiderAlternatives,
		AlternativeScoreTolerance: cfg.Optimizer.AlternativeScoreTolerance,
		EnableDebugLogging:        cfg.Optimizer.DebugLogging,
	}
}
