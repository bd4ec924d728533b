package repository

import (
	"context"
	"fmt"
	"reflect"
)

// Typed wraps a bound Repository whose model is T and returns *T and []*T
// instead of any. It keeps the immutable builder semantics: Where and
// Relation return new handles.
//
//	posts, err := repository.For[Post](repo, "post")
//	recent, err := posts.Where(criteria.Latest(), criteria.Limit(5)).All(ctx)
type Typed[T any] struct {
	repo *Repository
}

// For binds repo to entity and checks that its model is T.
func For[T any](repo *Repository, entity string) (*Typed[T], error) {
	return Wrap[T](repo.Entity(entity))
}

// Wrap narrows an already bound handle, for example one returned by Relation.
func Wrap[T any](repo *Repository) (*Typed[T], error) {
	if err := repo.ready(); err != nil {
		return nil, err
	}
	if want := reflect.TypeFor[T](); repo.target.Type != want {
		return nil, fmt.Errorf("%w: %s is %s, want %s", ErrResultType, repo.target.Entity, repo.target.Type, want)
	}
	return &Typed[T]{repo: repo}, nil
}

// Repository returns the untyped handle.
func (t *Typed[T]) Repository() *Repository {
	return t.repo
}

// Where applies criteria the same way Repository.WithCriteria does.
func (t *Typed[T]) Where(criteria ...any) *Typed[T] {
	return &Typed[T]{repo: t.repo.WithCriteria(criteria...)}
}

func (t *Typed[T]) Err() error {
	return t.repo.Err()
}

func (t *Typed[T]) Find(ctx context.Context, id any) (*T, error) {
	return As[*T](t.repo.Find(ctx, id))
}

func (t *Typed[T]) FindMany(ctx context.Context, ids ...any) ([]*T, error) {
	return As[[]*T](t.repo.FindMany(ctx, ids...))
}

func (t *Typed[T]) First(ctx context.Context) (*T, error) {
	return As[*T](t.repo.First(ctx))
}

func (t *Typed[T]) All(ctx context.Context) ([]*T, error) {
	return As[[]*T](t.repo.All(ctx))
}

func (t *Typed[T]) Count(ctx context.Context) (int, error) {
	return t.repo.Count(ctx)
}

// Paginate returns the page records along with the page metadata.
func (t *Typed[T]) Paginate(ctx context.Context, page, perPage int) ([]*T, Page, error) {
	p, err := t.repo.Paginate(ctx, page, perPage)
	if err != nil {
		return nil, Page{}, err
	}
	records, err := As[[]*T](p.Records, nil)
	if err != nil {
		return nil, Page{}, err
	}
	return records, p, nil
}

func (t *Typed[T]) Create(ctx context.Context, fields map[string]any) (*T, error) {
	return As[*T](t.repo.Create(ctx, fields))
}

func (t *Typed[T]) Update(ctx context.Context, id any, fields map[string]any) (*T, error) {
	return As[*T](t.repo.Update(ctx, id, fields))
}

func (t *Typed[T]) Delete(ctx context.Context, id any) error {
	return t.repo.Delete(ctx, id)
}
