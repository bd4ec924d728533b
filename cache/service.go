package cache

import (
	"context"
	"errors"
	"time"

	"github.com/goliatone/go-repository-criteria/pkg/metrics"
	"go.uber.org/zap"
)

// Store is the backend capability the repository needs: obtain, store and forget a value for a key.
// Forgetting a key that does not exist must succeed.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Forget(ctx context.Context, key string) error
}

// KeySerializer builds a cache key from a namespace + arbitrary args.
// It is responsible for producing stable keys across calls.
type KeySerializer interface {
	SerializeKey(namespace string, args ...any) string
}

// FetchFn is the function signature GetOrFetch expects when fetching from the source of truth.
type FetchFn[T any] func(ctx context.Context) (T, error)

// Service layers read-through semantics, encoding and instrumentation over a Store.
type Service struct {
	store   Store
	codec   Codec
	logger  *zap.Logger
	metrics *metrics.Cache
}

// Option configures a Service.
type Option func(*Service)

// WithCodec replaces the default msgpack codec.
func WithCodec(codec Codec) Option {
	return func(s *Service) {
		if codec != nil {
			s.codec = codec
		}
	}
}

// WithLogger sets the logger used to report backend failures.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics enables Prometheus counters.
func WithMetrics(m *metrics.Cache) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService wraps store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		codec:  MsgpackCodec(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the backend.
func (s *Service) Store() Store {
	return s.store
}

// Forget removes every key, attempting all of them even when one fails.
func (s *Service) Forget(ctx context.Context, keys ...string) error {
	var errs []error
	for _, key := range keys {
		if err := s.store.Forget(ctx, key); err != nil {
			s.metrics.Error("forget")
			s.logger.Warn("cache forget failed", zap.String("key", key), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		s.metrics.Invalidated(1)
	}
	return errors.Join(errs...)
}

// GetOrFetch returns the value cached under key, decoded into a fresh value from alloc.
// On a miss it calls fetchFn, stores the encoded result for ttl and returns it.
// Fetch errors are returned and never cached. Backend and codec failures are logged
// and the call falls through to fetchFn so the cache never breaks a read.
//
// alloc must return something the codec can decode into, typically a pointer.
func GetOrFetch[T any](ctx context.Context, s *Service, key string, ttl time.Duration, alloc func() T, fetchFn FetchFn[T]) (T, error) {
	data, ok, err := s.store.Get(ctx, key)
	switch {
	case err != nil:
		s.metrics.Error("get")
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
	case ok:
		out := alloc()
		decodeErr := s.codec.Unmarshal(data, out)
		if decodeErr == nil {
			s.metrics.Hit()
			s.logger.Debug("cache hit", zap.String("key", key))
			return out, nil
		}
		s.metrics.Error("decode")
		s.logger.Warn("cache decode failed", zap.String("key", key), zap.Error(decodeErr))
	}

	s.metrics.Miss()
	s.logger.Debug("cache miss", zap.String("key", key))

	result, err := fetchFn(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	encoded, err := s.codec.Marshal(result)
	if err != nil {
		s.metrics.Error("encode")
		s.logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return result, nil
	}

	if err := s.store.Put(ctx, key, encoded, ttl); err != nil {
		s.metrics.Error("put")
		s.logger.Warn("cache put failed", zap.String("key", key), zap.Error(err))
		return result, nil
	}
	s.metrics.Write()

	return result, nil
}
