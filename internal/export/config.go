package export

import "time"

type Config struct {
	RequestTimeout time.Duration `envconfig:"VW_EXPORT_REQUEST_TIMEOUT" default:"60s"`
	// CacheExpiration bounds how stale a rendered document may get
	CacheExpiration time.Duration `envconfig:"VW_EXPORT_CACHE_EXPIRATION" default:"5m"`
}
