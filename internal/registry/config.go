package registry

import (
	"time"
)

type Config struct {
	// Timer for performing data cleaning operations in the DB
	RebuildDBTime time.Duration `envconfig:"VW_REGISTRY_REBUILD_DB_TIME" default:"30m"`
	// maximum number of points in the DB for each network
	MaxItemsStored int `envconfig:"VW_REGISTRY_MAX_ITEMS_STORED" default:"1000000"`
	// maximum retention period for points in the DB for each network
	MaxStorageTime time.Duration `envconfig:"VW_REGISTRY_MAX_STORAGE_TIME" default:"0s"`
	// Critical buffer size in dbTxExecutor at which data is flushed to disk
	DBFlushSize int `envconfig:"VW_DB_FLUSH_SIZE" default:"64"`
	// Critical time of life in dbTxExecutor buffer in which data to be flushed to disk
	DBFlushTime time.Duration `envconfig:"VW_DB_FLUSH_TIME" default:"5s"`
	// Fraction of the root extent below which index cells stop splitting
	MinScale float64 `envconfig:"VW_REGISTRY_MIN_SCALE" default:"0"`
	// Half width applied to flat axes when a network index is seeded
	PadExtent float64 `envconfig:"VW_REGISTRY_PAD_EXTENT" default:"0.5"`
}

func (c *Config) Options() []Option {
	var opts []Option
	if c.RebuildDBTime > 0 {
		opts = append(opts, WithRebuildDBTime(c.RebuildDBTime))
	}
	if c.MaxItemsStored > 0 {
		opts = append(opts, WithMaxItemsStored(c.MaxItemsStored))
	}
	if c.MaxStorageTime > 0 {
		opts = append(opts, WithMaxStorageTime(c.MaxStorageTime))
	}
	if c.DBFlushSize > 0 {
		opts = append(opts, WithDBFlushSize(c.DBFlushSize))
	}
	if c.DBFlushTime > 0 {
		opts = append(opts, WithDBFlushTime(c.DBFlushTime))
	}
	if c.MinScale > 0 {
		opts = append(opts, WithMinScale(c.MinScale))
	}
	if c.PadExtent > 0 {
		opts = append(opts, WithPadExtent(c.PadExtent))
	}
	return opts
}
