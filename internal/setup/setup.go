package setup

import (
	"context"
	"fmt"

	"github.com/kelseyhightower/envconfig"

	"github.com/fatelord/visionworkbench/internal/alert"
	"github.com/fatelord/visionworkbench/internal/cache"
	"github.com/fatelord/visionworkbench/internal/database"
	"github.com/fatelord/visionworkbench/internal/logging"
	"github.com/fatelord/visionworkbench/internal/registry"
	"github.com/fatelord/visionworkbench/internal/scrape"
	"github.com/fatelord/visionworkbench/internal/srvenv"
)

const (
	SvcModeScrape string = "SCRAPE"
	SvcModeIngest string = "INGEST"
)

type SvcModeConfigProvider interface {
	SvcMode() string
}

type RegistryConfigProvider interface {
	RegistryConfig() *registry.Config
}

type NotifierConfigProvider interface {
	NotifyConfig() *alert.Config
}

type ScrapeConfigProvider interface {
	ScrapeConfig() *scrape.Config
}

type CacheConfigProvider interface {
	CacheConfig() *cache.Config
}

type DatabaseConfigProvider interface {
	DatabaseConfig() *database.Config
}

func Setup(ctx context.Context, config interface{}) (*srvenv.SrvEnv, error) {
	logger := logging.FromContext(ctx)
	var serverEnvOpts []srvenv.Option
	if err := envconfig.Process("", config); err != nil {
		return nil, fmt.Errorf("error loading environment variables: %w", err)
	}

	var (
		db                *database.DB
		registryProvideFn registry.ProvideFn
		notifierProvideFn alert.ProvideFn
		scrapperProvideFn scrape.ProvideFn
	)
	if dbConfigProvider, ok := config.(DatabaseConfigProvider); ok {
		logger.Info("Configuring db")
		if err := envconfig.Process("", dbConfigProvider); err != nil {
			return nil, fmt.Errorf("dont process db env: %w", err)
		}
		dbFromEnv, err := database.NewFromEnv(ctx, dbConfigProvider.DatabaseConfig())
		if err != nil {
			return nil, fmt.Errorf("unable to connect to database: %v", err)
		}
		db = dbFromEnv
		serverEnvOpts = append(serverEnvOpts, srvenv.WithDatabase(db))
	}

	if cacheConfigProvider, ok := config.(CacheConfigProvider); ok {
		logger.Info("Configuring cache")
		cfg := cacheConfigProvider.CacheConfig()
		if err := envconfig.Process("", cfg); err != nil {
			return nil, fmt.Errorf("dont process cache env: %w", err)
		}
		cacher := cache.NewNoop()
		if cfg.Use {
			redisCacher, err := cache.NewRedis(ctx, cfg)
			if err != nil {
				return nil, fmt.Errorf("unable to connect to cache: %v", err)
			}
			cacher = redisCacher
		}
		serverEnvOpts = append(serverEnvOpts, srvenv.WithCacher(cacher))
	}

	if notifyConfigProvider, ok := config.(NotifierConfigProvider); ok {
		logger.Info("Configuring db")

		provideFn, err := ProvideNotifierFor(notifyConfigProvider, db)
		if err != nil {
			return nil, fmt.Errorf("unable create registry provide function: %v", err)
		}
		notifierProvideFn = provideFn
		serverEnvOpts = append(serverEnvOpts, srvenv.WithNotifier(notifierProvideFn))
	}

	if registryConfigProvider, ok := config.(RegistryConfigProvider); ok {
		logger.Info("Configuring db")
		provideFn, err := ProvideRegistryFor(registryConfigProvider, db)
		if err != nil {
			return nil, fmt.Errorf("unable create registry provide function: %v", err)
		}
		registryProvideFn = provideFn
		serverEnvOpts = append(serverEnvOpts, srvenv.WithRegistry(registryProvideFn))
	}

	if svcModeConfigProvider, ok := config.(SvcModeConfigProvider); ok && svcModeConfigProvider.SvcMode() == SvcModeScrape {
		if scrapeConfigProvider, ok := config.(ScrapeConfigProvider); ok {
			logger.Info("Configuring db")
			provideFn, err := ProvideScrapperFor(scrapeConfigProvider)
			if err != nil {
				return nil, fmt.Errorf("unable create registry provide function: %v", err)
			}
			scrapperProvideFn = provideFn
			serverEnvOpts = append(serverEnvOpts, srvenv.WithScrapper(scrapperProvideFn))
		}
	}
	return srvenv.New(serverEnvOpts...), nil
}

func ProvideScrapperFor(provider ScrapeConfigProvider) (scrape.ProvideFn, error) {
	cfg := provider.ScrapeConfig()
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("dont process scrapper env: %w", err)
	}
	return func(reg registry.Manager, shutdownCh chan<- error) (scrape.Manager, error) {
		return scrape.New(
			reg,
			shutdownCh,
			scrape.WithInterval(cfg.Interval),
			scrape.WithMaxConcurrentRequest(cfg.MaxConcurrentRequest),
			scrape.WithRequestTimeout(cfg.RequestTimeout),
			scrape.WithTargets(cfg.Targets),
		)
	}, nil
}

func ProvideNotifierFor(provider NotifierConfigProvider, db *database.DB) (alert.ProvideFn, error) {
	cfg := provider.NotifyConfig()
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("dont process notifier env: %w", err)
	}
	// Disabled alerts keep the manager running with no delivery targets
	targets := cfg.Targets
	if !cfg.AllowAlerts {
		targets = nil
	}
	return func(shutdownCh chan<- error) (alert.Manager, error) {
		return alert.New(
			db,
			shutdownCh,
			alert.WithMaxConcurrentRequest(cfg.MaxConcurrentRequest),
			alert.WithAlertInterval(cfg.Interval),
			alert.WithRequestTimeout(cfg.RequestTimeout),
			alert.WithTargets(targets),
		)
	}, nil
}

func ProvideRegistryFor(provider RegistryConfigProvider, db *database.DB) (registry.ProvideFn, error) {
	cfg := provider.RegistryConfig()
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("dont process registry env: %w", err)
	}
	return func(notifier alert.Manager, shutdownCh chan<- error) (registry.Manager, error) {
		return registry.New(db, notifier, shutdownCh, cfg.Options()...)
	}, nil
}
