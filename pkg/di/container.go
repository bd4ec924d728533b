package di

import (
	"errors"
	"fmt"
	"io"

	"github.com/goliatone/go-repository-criteria/bunstore"
	"github.com/goliatone/go-repository-criteria/cache"
	"github.com/goliatone/go-repository-criteria/pkg/config"
	"github.com/goliatone/go-repository-criteria/pkg/metrics"
	"github.com/goliatone/go-repository-criteria/repository"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Container wires the shared pieces every repository needs: one logger,
// one cache backend and the Service around it, and the metrics they report to.
type Container struct {
	cfg           *config.Config
	logger        *zap.Logger
	registerer    prometheus.Registerer
	metrics       *metrics.Cache
	store         cache.Store
	cacheService  *cache.Service
	keySerializer cache.KeySerializer
}

// Option configures a Container.
type Option func(*Container)

// WithRegisterer sets where cache metrics are registered. By default a fresh
// registry is used so several containers can coexist.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *Container) {
		if reg != nil {
			c.registerer = reg
		}
	}
}

// WithLogger skips building a logger from the configured environment.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Container) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithStore uses store instead of the backend selected by the cache driver.
func WithStore(store cache.Store) Option {
	return func(c *Container) {
		if store != nil {
			c.store = store
		}
	}
}

// NewContainer validates cfg and builds the cache service it describes.
func NewContainer(cfg *config.Config, opts ...Option) (*Container, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	c := &Container{
		cfg:           cfg,
		keySerializer: cache.NewDefaultKeySerializer(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		logger, err := NewLogger(cfg.Env)
		if err != nil {
			return nil, fmt.Errorf("failed to build logger: %w", err)
		}
		c.logger = logger
	}

	if c.registerer == nil {
		c.registerer = prometheus.NewRegistry()
	}
	c.metrics = metrics.NewCache(c.registerer, cfg.Metrics.Namespace)

	if c.store == nil {
		store, err := cache.NewStore(cfg.CacheConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to create cache store: %w", err)
		}
		c.store = store
	}

	c.cacheService = cache.NewService(c.store,
		cache.WithLogger(c.logger.Named("cache")),
		cache.WithMetrics(c.metrics),
	)

	c.logger.Debug("container ready",
		zap.String("env", cfg.Env),
		zap.String("cache_driver", cfg.Cache.Driver),
	)
	return c, nil
}

// NewContainerWithDefaults creates a container from config.Default.
func NewContainerWithDefaults(opts ...Option) (*Container, error) {
	return NewContainer(config.Default(), opts...)
}

func (c *Container) CacheService() *cache.Service {
	return c.cacheService
}

func (c *Container) KeySerializer() cache.KeySerializer {
	return c.keySerializer
}

// Config returns a copy of the configuration.
func (c *Container) Config() config.Config {
	return *c.cfg
}

func (c *Container) Logger() *zap.Logger {
	return c.logger
}

func (c *Container) Metrics() *metrics.Cache {
	return c.metrics
}

// NewRepository returns an unbound repository using the shared cache.
func (c *Container) NewRepository(factory repository.Factory, store repository.Store, opts ...repository.Option) *repository.Repository {
	base := []repository.Option{
		repository.WithCache(c.cacheService),
		repository.WithKeySerializer(c.keySerializer),
		repository.WithCacheTTL(c.cfg.Repository.CacheTTL),
		repository.WithPerPage(c.cfg.Repository.PerPage),
		repository.WithLogger(c.logger.Named("repository")),
	}
	return repository.New(factory, store, append(base, opts...)...)
}

// NewBunRepository is NewRepository backed by a bunstore over db.
func (c *Container) NewBunRepository(db bun.IDB, factory repository.Factory, opts ...repository.Option) *repository.Repository {
	store := bunstore.New(db, bunstore.WithLogger(c.logger.Named("bunstore")))
	return c.NewRepository(factory, store, opts...)
}

// Close releases the cache backend when it holds connections.
func (c *Container) Close() error {
	_ = c.logger.Sync()
	if closer, ok := c.store.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
