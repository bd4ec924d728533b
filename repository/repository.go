package repository

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/goliatone/go-repository-criteria/cache"
	"go.uber.org/zap"
)

const (
	// DefaultCacheTTL is used when no TTL is configured.
	DefaultCacheTTL = time.Hour

	// DefaultPerPage is the page size Paginate uses when given zero.
	DefaultPerPage = 15
)

// Page is one page of results.
type Page struct {
	Records  any
	Total    int
	Page     int
	PerPage  int
	LastPage int
}

type scope struct {
	relation Relation
	parentID any
}

// Repository gives entity-name based access to a Store with criteria and a
// read-through cache.
//
// A Repository is a handle: Entity, Relation and WithCriteria return a modified
// copy and never change the receiver, so one configured base repository can be
// shared across goroutines. Errors raised while building a handle are latched
// and returned by the next operation.
type Repository struct {
	factory  Factory
	store    Store
	cache    *cache.Service
	keys     cache.KeySerializer
	logger   *zap.Logger
	ttl      time.Duration
	perPage  int
	cacheKey func(Model) string

	base   Model
	target Model
	scope  *scope
	query  Query
	err    error
}

// Option configures a Repository.
type Option func(*Repository)

// WithCache enables read-through caching through svc.
func WithCache(svc *cache.Service) Option {
	return func(r *Repository) {
		r.cache = svc
	}
}

// WithKeySerializer replaces the default "." separated key layout.
func WithKeySerializer(keys cache.KeySerializer) Option {
	return func(r *Repository) {
		if keys != nil {
			r.keys = keys
		}
	}
}

// WithCacheTTL sets the default time to live for cached reads.
func WithCacheTTL(ttl time.Duration) Option {
	return func(r *Repository) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithCacheKey overrides the cache namespace, which defaults to the table name.
func WithCacheKey(fn func(Model) string) Option {
	return func(r *Repository) {
		r.cacheKey = fn
	}
}

// WithPerPage sets the page size Paginate uses when given zero.
func WithPerPage(n int) Option {
	return func(r *Repository) {
		if n > 0 {
			r.perPage = n
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(r *Repository) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a repository with no entity bound. Call Entity before any operation.
func New(factory Factory, store Store, opts ...Option) *Repository {
	r := &Repository{
		factory: factory,
		store:   store,
		keys:    cache.NewDefaultKeySerializer(),
		logger:  zap.NewNop(),
		ttl:     DefaultCacheTTL,
		perPage: DefaultPerPage,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Entity binds the repository to the model the factory builds for name. Any
// relation, criteria or latched error from the receiver is discarded.
func (r *Repository) Entity(name string) *Repository {
	c := r.reset()

	if r.factory == nil {
		c.err = &ResolutionError{Entity: name, Err: errors.New("no factory configured")}
		return c
	}

	instance, err := r.factory.Make(name)
	if err != nil {
		c.err = &ResolutionError{Entity: name, Err: err}
		return c
	}

	m, err := r.store.Describe(instance)
	if err != nil {
		c.err = &InvalidEntityError{Entity: name, Err: err}
		return c
	}
	m.Entity = name

	c.base = m
	c.target = m
	c.query = NewQuery(m)
	return c
}

// Relation redirects every following operation to the records related to
// parentID through the named relation of the bound entity. Reads are scoped by
// the foreign key and Create sets it. Criteria applied before Relation are
// dropped since they target the parent model.
func (r *Repository) Relation(name string, parentID any) *Repository {
	c := r.clone()
	if c.err != nil {
		return c
	}
	if c.base.IsZero() {
		c.err = ErrEntityNotSet
		return c
	}

	rel, err := r.store.Relation(c.base, name)
	if err != nil {
		c.err = fmt.Errorf("%w: %s on %s: %w", ErrInvalidRelation, name, c.base.Entity, err)
		return c
	}

	c.target = rel.Model
	c.scope = &scope{relation: rel, parentID: parentID}
	c.query = NewQuery(rel.Model).Where(rel.ForeignKey, OpEq, parentID)
	return c
}

// WithCriteria flattens criteria and applies them in order on top of the
// current query. When a criterion fails its error is latched as is and the
// handle keeps the query produced by the criteria before it.
func (r *Repository) WithCriteria(criteria ...any) *Repository {
	c := r.clone()
	if c.err != nil {
		return c
	}
	if c.target.IsZero() {
		c.err = ErrEntityNotSet
		return c
	}

	list, err := Flatten(criteria...)
	if err != nil {
		c.err = err
		return c
	}

	c.query, c.err = Criteria(list).Apply(c.query)
	return c
}

// Model returns the model operations run against.
func (r *Repository) Model() Model { return r.target }

// Query returns the accumulated query.
func (r *Repository) Query() Query { return r.query }

// Err returns the latched error, if any.
func (r *Repository) Err() error { return r.err }

// CacheKey is the namespace for this repository's cache entries.
func (r *Repository) CacheKey() string {
	if r.target.IsZero() {
		return ""
	}
	if r.cacheKey != nil {
		return r.cacheKey(r.target)
	}
	return r.target.Table
}

// CacheTTL returns ttl[0] when given and positive, the configured default otherwise.
func (r *Repository) CacheTTL(ttl ...time.Duration) time.Duration {
	if len(ttl) > 0 && ttl[0] > 0 {
		return ttl[0]
	}
	return r.ttl
}

func (r *Repository) recordKey(id any) string {
	return r.keys.SerializeKey(r.CacheKey(), id)
}

func (r *Repository) collectionKey() string {
	return r.keys.SerializeKey(r.CacheKey(), cache.CollectionMarker)
}

// InvalidateCache forgets the collection entry and the entry for record. Both
// are attempted even when one fails.
func (r *Repository) InvalidateCache(ctx context.Context, record any) error {
	if err := r.ready(); err != nil {
		return err
	}

	id, err := r.store.KeyOf(r.target, record)
	if err != nil {
		return err
	}

	if r.cache == nil {
		return nil
	}

	keys := []string{r.collectionKey(), r.recordKey(id)}
	if err := r.cache.Forget(ctx, keys...); err != nil {
		r.logger.Warn("cache invalidation failed",
			zap.String("entity", r.target.Entity),
			zap.Strings("keys", keys),
			zap.Error(err),
		)
		return err
	}

	r.logger.Debug("cache invalidated",
		zap.String("entity", r.target.Entity),
		zap.Strings("keys", keys),
	)
	return nil
}

// cacheable reports whether reads on this handle map onto the two keys that
// mutations invalidate.
func (r *Repository) cacheable() bool {
	return r.cache != nil && r.scope == nil && !r.query.Filtered()
}

func (r *Repository) ready() error {
	if r.err != nil {
		return r.err
	}
	if r.target.IsZero() {
		return ErrEntityNotSet
	}
	return nil
}

func (r *Repository) clone() *Repository {
	c := *r
	return &c
}

func (r *Repository) reset() *Repository {
	c := r.clone()
	c.base, c.target = Model{}, Model{}
	c.scope = nil
	c.query = Query{}
	c.err = nil
	return c
}

// As converts a repository result to T, passing err through.
//
//	post, err := repository.As[*Post](repo.Entity("post").Find(ctx, 7))
func As[T any](v any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: got %T, want %s", ErrResultType, v, reflect.TypeFor[T]())
	}
	return out, nil
}
