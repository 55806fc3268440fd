// Package cache holds rendered documents between requests. Index
// renders are deterministic until the owning network changes, so the
// export handlers keep them here instead of walking the tree again.
package cache

import (
	"context"
	"fmt"
	"time"
)

var ErrCacheMiss = fmt.Errorf("cache: key is missing")

// Cacher defines the behavior of the rendered document cache. Entries
// expire on their own, nothing invalidates them early.
type Cacher interface {
	// Get returns the cached value or ErrCacheMiss
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores the value for the expiration period
	Set(ctx context.Context, key string, value []byte, expiration time.Duration) error
}

// NewNoop returns a cache that stores nothing and misses every lookup
func NewNoop() Cacher {
	return noop{}
}

type noop struct{}

func (noop) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, ErrCacheMiss
}

func (noop) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	return nil
}
