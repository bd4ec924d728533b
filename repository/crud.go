package repository

import (
	"context"
	"fmt"
	"math"

	"github.com/goliatone/go-repository-criteria/cache"
)

// Find returns the record with the given identifier as a pointer to the model
// struct. Unscoped lookups are served from the cache under {key}.{id}.
func (r *Repository) Find(ctx context.Context, id any) (any, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}

	fetch := func(ctx context.Context) (any, error) {
		return r.find(ctx, id)
	}
	if !r.cacheable() {
		return fetch(ctx)
	}
	// An id that serializes like the collection marker would share its entry.
	key := r.recordKey(id)
	if key == r.collectionKey() {
		return fetch(ctx)
	}
	return cache.GetOrFetch(ctx, r.cache, key, r.CacheTTL(), r.target.New, fetch)
}

func (r *Repository) find(ctx context.Context, id any) (any, error) {
	q := r.query.Where(r.target.Key, OpEq, id).WithLimit(1).WithOffset(0)

	dest := r.target.NewSlice()
	if err := r.store.Select(ctx, q, dest); err != nil {
		return nil, err
	}

	rows := records(dest)
	if rows.Len() == 0 {
		return nil, &RecordNotFoundError{Entity: r.target.Name(), IDs: []any{id}}
	}
	return rows.Index(0).Interface(), nil
}

// FindMany returns the records with the given identifiers as a []*T. It fails
// with a RecordNotFoundError carrying every requested id when any is missing.
func (r *Repository) FindMany(ctx context.Context, ids ...any) (any, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}

	dest := r.target.NewSlice()
	if len(ids) == 0 {
		return records(dest).Interface(), nil
	}

	q := r.query.Where(r.target.Key, OpIn, ids)
	if err := r.store.Select(ctx, q, dest); err != nil {
		return nil, err
	}

	rows := records(dest)
	if rows.Len() < r.distinct(ids) {
		return nil, &RecordNotFoundError{Entity: r.target.Name(), IDs: ids}
	}
	return rows.Interface(), nil
}

// First returns the first record matching the current criteria.
func (r *Repository) First(ctx context.Context) (any, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}

	dest := r.target.NewSlice()
	if err := r.store.Select(ctx, r.query.WithLimit(1), dest); err != nil {
		return nil, err
	}

	rows := records(dest)
	if rows.Len() == 0 {
		return nil, &RecordNotFoundError{Entity: r.target.Name()}
	}
	return rows.Index(0).Interface(), nil
}

// All returns every record matching the current criteria as a []*T. Unscoped
// reads are served from the cache under {key}.*.
func (r *Repository) All(ctx context.Context) (any, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}

	fetch := func(ctx context.Context) (any, error) {
		dest := r.target.NewSlice()
		if err := r.store.Select(ctx, r.query, dest); err != nil {
			return nil, err
		}
		return dest, nil
	}

	var (
		dest any
		err  error
	)
	if r.cacheable() {
		dest, err = cache.GetOrFetch(ctx, r.cache, r.collectionKey(), r.CacheTTL(), r.target.NewSlice, fetch)
	} else {
		dest, err = fetch(ctx)
	}
	if err != nil {
		return nil, err
	}
	return records(dest).Interface(), nil
}

// Count returns the number of records matching the current criteria. Limit,
// offset and ordering are ignored.
func (r *Repository) Count(ctx context.Context) (int, error) {
	if err := r.ready(); err != nil {
		return 0, err
	}
	return r.store.Count(ctx, r.query.Unpaged())
}

// Paginate returns page (1 based) of the records matching the current criteria.
// A perPage of zero uses the configured default.
func (r *Repository) Paginate(ctx context.Context, page, perPage int) (Page, error) {
	if err := r.ready(); err != nil {
		return Page{}, err
	}
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = r.perPage
	}
	if last := math.MaxInt/perPage + 1; page > last {
		page = last
	}

	total, err := r.store.Count(ctx, r.query.Unpaged())
	if err != nil {
		return Page{}, err
	}

	dest := r.target.NewSlice()
	q := r.query.WithLimit(perPage).WithOffset((page - 1) * perPage)
	if err := r.store.Select(ctx, q, dest); err != nil {
		return Page{}, err
	}

	lastPage := (total + perPage - 1) / perPage
	if lastPage < 1 {
		lastPage = 1
	}

	return Page{
		Records:  records(dest).Interface(),
		Total:    total,
		Page:     page,
		PerPage:  perPage,
		LastPage: lastPage,
	}, nil
}

// Create fills a new record from column values, inserts it and invalidates the
// cache. Under a relation the foreign key is set to the parent id.
func (r *Repository) Create(ctx context.Context, fields map[string]any) (any, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}

	record := r.target.New()
	if _, err := r.store.Fill(r.target, record, fields); err != nil {
		return nil, err
	}
	if r.scope != nil {
		fk := map[string]any{r.scope.relation.ForeignKey: r.scope.parentID}
		if _, err := r.store.Fill(r.target, record, fk); err != nil {
			return nil, err
		}
	}

	if err := r.store.Insert(ctx, r.target, record); err != nil {
		return nil, err
	}

	return record, r.InvalidateCache(ctx, record)
}

// Update locates the record within the current scope, writes the given columns
// and invalidates the cache. The key column cannot be changed. Under a relation
// the foreign key may be, which moves the record to another parent.
func (r *Repository) Update(ctx context.Context, id any, fields map[string]any) (any, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	if _, ok := fields[r.target.Key]; ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrKeyUpdate, r.target.Entity, r.target.Key)
	}

	record, err := r.find(ctx, id)
	if err != nil {
		return nil, err
	}

	columns, err := r.store.Fill(r.target, record, fields)
	if err != nil {
		return nil, err
	}
	if err := r.store.Update(ctx, r.target, record, columns); err != nil {
		return nil, err
	}

	return record, r.InvalidateCache(ctx, record)
}

// Delete locates the record within the current scope, deletes it and
// invalidates the cache. Nothing is invalidated when the record is missing.
func (r *Repository) Delete(ctx context.Context, id any) error {
	if err := r.ready(); err != nil {
		return err
	}

	record, err := r.find(ctx, id)
	if err != nil {
		return err
	}

	if err := r.store.Delete(ctx, r.target, record); err != nil {
		return err
	}

	return r.InvalidateCache(ctx, record)
}

// distinct counts ids by their key segment, so 7 and int64(7) are one id.
func (r *Repository) distinct(ids []any) int {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		seen[r.keys.SerializeKey("", id)] = struct{}{}
	}
	return len(seen)
}
