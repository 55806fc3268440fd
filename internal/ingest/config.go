package ingest

import (
	"time"
)

type Config struct {
	RequestTimeout time.Duration `envconfig:"VW_INGEST_REQUEST_TIMEOUT" default:"60s"`
}
