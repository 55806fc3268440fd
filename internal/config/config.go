package vw

import (
	"github.com/fatelord/visionworkbench/internal/alert"
	"github.com/fatelord/visionworkbench/internal/cache"
	"github.com/fatelord/visionworkbench/internal/database"
	"github.com/fatelord/visionworkbench/internal/export"
	"github.com/fatelord/visionworkbench/internal/ingest"
	"github.com/fatelord/visionworkbench/internal/query"
	"github.com/fatelord/visionworkbench/internal/registry"
	"github.com/fatelord/visionworkbench/internal/scrape"
	"github.com/fatelord/visionworkbench/internal/setup"
)

var (
	_ setup.SvcModeConfigProvider  = (*Config)(nil)
	_ setup.RegistryConfigProvider = (*Config)(nil)
	_ setup.DatabaseConfigProvider = (*Config)(nil)
	_ setup.NotifierConfigProvider = (*Config)(nil)
	_ setup.ScrapeConfigProvider   = (*Config)(nil)
	_ setup.CacheConfigProvider    = (*Config)(nil)
)

const (
	SvcModeTypeIngest = "INGEST"
	SvcModeTypeScrape = "SCRAPE"
)

type Config struct {
	SvcModeType string `envconfig:"VW_SVC_MODE" default:"INGEST"`
	SrvAddr     string `envconfig:"VW_ADDR" default:":8787"`
	// GRPCAddr enables the grpc health listener when set
	GRPCAddr string `envconfig:"VW_GRPC_ADDR" default:""`
	MaxConns int    `envconfig:"VW_MAX_CONNS" default:"512"`
	Registry registry.Config
	Ingest   ingest.Config
	Query    query.Config
	Export   export.Config
	Database database.Config
	Scrape   scrape.Config
	Cache    cache.Config
	Alert    alert.Config
}

func (c Config) SvcMode() string {
	return c.SvcModeType
}

func (c Config) RegistryConfig() *registry.Config {
	return &c.Registry
}

func (c Config) NotifyConfig() *alert.Config {
	return &c.Alert
}

func (c Config) ScrapeConfig() *scrape.Config {
	return &c.Scrape
}

func (c Config) DatabaseConfig() *database.Config {
	return &c.Database
}

func (c Config) CacheConfig() *cache.Config {
	return &c.Cache
}
