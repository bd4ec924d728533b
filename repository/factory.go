package repository

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// Factory constructs a fresh model instance for an entity name.
type Factory interface {
	Make(name string) (any, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(name string) (any, error)

func (f FactoryFunc) Make(name string) (any, error) { return f(name) }

// Registry is a Factory backed by registered constructors. It is safe for
// concurrent use.
type Registry struct {
	mu    sync.RWMutex
	ctors map[string]func() any
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{ctors: make(map[string]func() any)}
}

// Register binds name to ctor, replacing any previous binding.
func (r *Registry) Register(name string, ctor func() any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctors[name] = ctor
}

func (r *Registry) Make(name string) (any, error) {
	r.mu.RLock()
	ctor, ok := r.ctors[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("no model registered as %q", name)
	}
	return ctor(), nil
}

// Names lists the registered entity names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.ctors))
	for name := range r.ctors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterModel registers T under each of names, or under the snake_case form of
// its type name when none are given. Make returns a *T.
func RegisterModel[T any](r *Registry, names ...string) {
	if len(names) == 0 {
		names = []string{SnakeCase(reflect.TypeFor[T]().Name())}
	}
	for _, name := range names {
		r.Register(name, func() any { return new(T) })
	}
}
