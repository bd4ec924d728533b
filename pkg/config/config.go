package config

import (
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-repository-criteria/cache"
	"github.com/spf13/viper"
)

// DefaultPrefix is the environment prefix Load uses when given an empty one.
const DefaultPrefix = "REPO"

type Config struct {
	Env string `mapstructure:"ENV"`

	Cache      CacheConfig      `mapstructure:",squash"`
	Repository RepositoryConfig `mapstructure:",squash"`
	Metrics    MetricsConfig    `mapstructure:",squash"`
}

type CacheConfig struct {
	Driver string `mapstructure:"CACHE_DRIVER"` // "memory", "redis"

	Capacity           int           `mapstructure:"CACHE_CAPACITY"`
	NumShards          int           `mapstructure:"CACHE_SHARDS"`
	MaxTTL             time.Duration `mapstructure:"CACHE_MAX_TTL"`
	EvictionPercentage int           `mapstructure:"CACHE_EVICTION_PERCENTAGE"`
	EvictionInterval   time.Duration `mapstructure:"CACHE_EVICTION_INTERVAL"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
	RedisPrefix   string `mapstructure:"REDIS_PREFIX"`
}

type RepositoryConfig struct {
	CacheTTL time.Duration `mapstructure:"CACHE_TTL"`
	PerPage  int           `mapstructure:"PER_PAGE"`
}

type MetricsConfig struct {
	Namespace string `mapstructure:"METRICS_NAMESPACE"`
}

func setDefaults(v *viper.Viper) {
	memory := cache.DefaultConfig().Memory
	redis := cache.DefaultConfig().Redis

	v.SetDefault("ENV", "dev")

	v.SetDefault("CACHE_DRIVER", cache.DriverMemory)
	v.SetDefault("CACHE_CAPACITY", memory.Capacity)
	v.SetDefault("CACHE_SHARDS", memory.NumShards)
	v.SetDefault("CACHE_MAX_TTL", memory.MaxTTL.String())
	v.SetDefault("CACHE_EVICTION_PERCENTAGE", memory.EvictionPercentage)
	v.SetDefault("CACHE_EVICTION_INTERVAL", memory.EvictionInterval.String())

	v.SetDefault("REDIS_ADDR", redis.Addr)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_PREFIX", "")

	v.SetDefault("CACHE_TTL", "1h")
	v.SetDefault("PER_PAGE", 15)

	v.SetDefault("METRICS_NAMESPACE", "")
}

// Default returns the configuration Load produces with an empty environment.
func Default() *Config {
	cfg, err := load(viper.New())
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads the configuration from environment variables named
// {prefix}_{KEY}, for example REPO_CACHE_DRIVER, and validates it.
func Load(prefix string) (*Config, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}

	v := viper.New()
	v.SetEnvPrefix(prefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()

	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Env, validation.Required, validation.In("dev", "test", "prod")),
		validation.Field(&c.Cache),
		validation.Field(&c.Repository),
	)
}

func (c CacheConfig) Validate() error {
	redis := c.Driver == cache.DriverRedis
	return validation.ValidateStruct(&c,
		validation.Field(&c.Driver, validation.Required, validation.In(cache.DriverMemory, cache.DriverRedis)),
		validation.Field(&c.Capacity, validation.When(!redis, validation.Required, validation.Min(1))),
		validation.Field(&c.NumShards, validation.When(!redis, validation.Required, validation.Min(1))),
		validation.Field(&c.MaxTTL, validation.When(!redis, validation.Required)),
		validation.Field(&c.EvictionPercentage, validation.When(!redis, validation.Min(1), validation.Max(100))),
		validation.Field(&c.RedisAddr, validation.When(redis, validation.Required)),
		validation.Field(&c.RedisDB, validation.Min(0)),
	)
}

func (c RepositoryConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.CacheTTL, validation.Required),
		validation.Field(&c.PerPage, validation.Required, validation.Min(1)),
	)
}

func (c *Config) IsDev() bool {
	return c.Env == "dev"
}

func (c *Config) IsProd() bool {
	return c.Env == "prod"
}

// CacheConfig maps the flat settings onto the cache package configuration.
func (c *Config) CacheConfig() cache.Config {
	cfg := cache.DefaultConfig()
	cfg.Driver = c.Cache.Driver

	cfg.Memory.Capacity = c.Cache.Capacity
	cfg.Memory.NumShards = c.Cache.NumShards
	cfg.Memory.MaxTTL = c.Cache.MaxTTL
	cfg.Memory.EvictionPercentage = c.Cache.EvictionPercentage
	cfg.Memory.EvictionInterval = c.Cache.EvictionInterval

	cfg.Redis.Addr = c.Cache.RedisAddr
	cfg.Redis.Password = c.Cache.RedisPassword
	cfg.Redis.DB = c.Cache.RedisDB
	cfg.Redis.Prefix = c.Cache.RedisPrefix
	return cfg
}
