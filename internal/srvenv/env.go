package srvenv

import (
	"context"

	"github.com/fatelord/visionworkbench/internal/alert"
	"github.com/fatelord/visionworkbench/internal/cache"
	"github.com/fatelord/visionworkbench/internal/database"
	"github.com/fatelord/visionworkbench/internal/registry"
	"github.com/fatelord/visionworkbench/internal/scrape"
)

type Option func(*SrvEnv) *SrvEnv

func New(opts ...Option) *SrvEnv {
	env := &SrvEnv{}
	for _, f := range opts {
		env = f(env)
	}

	return env
}

type SrvEnv struct {
	database *database.DB
	registry registry.ProvideFn
	notifier alert.ProvideFn
	scrapper scrape.ProvideFn
	cacher   cache.Cacher
}

func (s *SrvEnv) ProvideScrapper() scrape.ProvideFn {
	return s.scrapper
}

func (s *SrvEnv) ProvideNotifier() alert.ProvideFn {
	return s.notifier
}

func (s *SrvEnv) ProvideRegistry() registry.ProvideFn {
	return s.registry
}

func (s *SrvEnv) Database() *database.DB {
	return s.database
}

func (s *SrvEnv) Cacher() cache.Cacher {
	return s.cacher
}

func WithScrapper(fn scrape.ProvideFn) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.scrapper = fn
		return s
	}
}

func WithNotifier(fn alert.ProvideFn) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.notifier = fn
		return s
	}
}

func WithRegistry(fn registry.ProvideFn) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.registry = fn
		return s
	}
}

func WithCacher(c cache.Cacher) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.cacher = c
		return s
	}
}

func WithDatabase(db *database.DB) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.database = db
		return s
	}
}

func (s *SrvEnv) Close(ctx context.Context) error {
	if s == nil {
		return nil
	}

	if s.database != nil {
		return s.database.Close(ctx)
	}
	return nil
}
