package cacheinfra

import (
	"context"
	"time"

	"github.com/viccon/sturdyc"
)

// Config sizes the in-process store. TTL caps every entry; shorter per-key
// TTLs passed to Put expire first.
type Config struct {
	Capacity           int
	NumShards          int
	TTL                time.Duration
	EvictionPercentage int           // 1..100, share of entries dropped when full
	EvictionInterval   time.Duration // 0 keeps the sturdyc default
}

// DefaultConfig holds one day of entries for up to 10000 keys.
func DefaultConfig() Config {
	return Config{
		Capacity:           10000,
		NumShards:          256,
		TTL:                24 * time.Hour,
		EvictionPercentage: 10,
		EvictionInterval:   0,
	}
}

// ToSturdycOptions returns the optional settings. The sizing fields are
// positional arguments of sturdyc.New.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option

	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}

	return options
}

func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}

	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}

	if c.TTL <= 0 {
		return &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	}

	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}

	if c.EvictionInterval < 0 {
		return &ConfigError{Field: "EvictionInterval", Message: "must be non-negative"}
	}

	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}

// entry is what the sturdyc client actually holds. sturdyc only knows a
// client wide TTL so the per-key deadline travels with the value.
type entry struct {
	value     []byte
	expiresAt time.Time
}

// SturdycStore is an in-process byte store backed by a sturdyc client.
type SturdycStore struct {
	client *sturdyc.Client[entry]
	now    func() time.Time
}

// NewSturdycStore validates cfg and starts a sturdyc client.
func NewSturdycStore(cfg Config) (*SturdycStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[entry](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	return &SturdycStore{client: client, now: time.Now}, nil
}

// Get returns the stored bytes for key. Entries past their own deadline
// are dropped and reported as a miss.
func (s *SturdycStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	e, ok := s.client.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		s.client.Delete(key)
		return nil, false, nil
	}
	return e.value, true, nil
}

// Put stores value under key. A non positive ttl falls back to the client TTL.
func (s *SturdycStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	e := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.client.Set(key, e)
	return nil
}

// Forget removes key. Removing a key that is not present is not an error.
func (s *SturdycStore) Forget(ctx context.Context, key string) error {
	s.client.Delete(key)
	return nil
}

// Size reports the number of entries currently held, including expired
// entries the client has not evicted yet.
func (s *SturdycStore) Size() int {
	return s.client.Size()
}
