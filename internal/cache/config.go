package cache

import "github.com/prometheus/common/config"

type Config struct {
	// Use enables the redis backed cache, the noop cache serves otherwise
	Use  bool   `envconfig:"VW_CACHE" default:"false"`
	Addr string `envconfig:"VW_CACHE_ADDR" default:"127.0.0.1:6379"`
	// Password is optional, an empty value connects without AUTH
	Password config.Secret `envconfig:"VW_CACHE_PASSWORD" default:""`
	DB       int           `envconfig:"VW_CACHE_DB" default:"0"`
}
