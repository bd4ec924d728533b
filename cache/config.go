package cache

import (
	"fmt"
	"time"

	"github.com/goliatone/go-repository-criteria/internal/cacheinfra"
)

// Supported cache drivers.
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

// Config exposes cache configuration options for consumers of the cache package.
type Config struct {
	Driver string
	Memory MemoryConfig
	Redis  RedisConfig
}

// MemoryConfig configures the in-process sturdyc store.
type MemoryConfig struct {
	Capacity           int
	NumShards          int
	MaxTTL             time.Duration
	EvictionPercentage int
	EvictionInterval   time.Duration
}

// RedisConfig configures the redis store.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	Prefix       string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Driver: DriverMemory,
		Memory: memoryFromInternal(cacheinfra.DefaultConfig()),
		Redis:  redisFromInternal(cacheinfra.DefaultRedisConfig()),
	}
}

// Validate checks whether the configuration values for the selected driver are valid.
func (c Config) Validate() error {
	switch c.Driver {
	case DriverMemory, "":
		return c.Memory.toInternal().Validate()
	case DriverRedis:
		return c.Redis.toInternal().Validate()
	default:
		return &cacheinfra.ConfigError{Field: "Driver", Message: fmt.Sprintf("unsupported driver %q", c.Driver)}
	}
}

// NewStore constructs the Store for the configured driver.
func NewStore(cfg Config) (Store, error) {
	switch cfg.Driver {
	case DriverMemory, "":
		return cacheinfra.NewSturdycStore(cfg.Memory.toInternal())
	case DriverRedis:
		return cacheinfra.NewRedisStore(cfg.Redis.toInternal())
	default:
		return nil, cfg.Validate()
	}
}

func (c MemoryConfig) toInternal() cacheinfra.Config {
	return cacheinfra.Config{
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		TTL:                c.MaxTTL,
		EvictionPercentage: c.EvictionPercentage,
		EvictionInterval:   c.EvictionInterval,
	}
}

func memoryFromInternal(cfg cacheinfra.Config) MemoryConfig {
	return MemoryConfig{
		Capacity:           cfg.Capacity,
		NumShards:          cfg.NumShards,
		MaxTTL:             cfg.TTL,
		EvictionPercentage: cfg.EvictionPercentage,
		EvictionInterval:   cfg.EvictionInterval,
	}
}

func (c RedisConfig) toInternal() cacheinfra.RedisConfig {
	return cacheinfra.RedisConfig{
		Addr:         c.Addr,
		Password:     c.Password,
		DB:           c.DB,
		Prefix:       c.Prefix,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
		PoolSize:     c.PoolSize,
	}
}

func redisFromInternal(cfg cacheinfra.RedisConfig) RedisConfig {
	return RedisConfig{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Prefix:       cfg.Prefix,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
	}
}
