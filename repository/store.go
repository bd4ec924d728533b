package repository

import "context"

// Relation is a has-one or has-many association resolved by a Store.
// ForeignKey is the column on Model that holds the parent key.
type Relation struct {
	Name       string
	Model      Model
	ForeignKey string
}

// Store executes queries against persistent storage.
//
// Select scans into dest, a pointer produced by Model.NewSlice. Records passed to
// Insert, Update, Delete, Fill and KeyOf are pointers produced by Model.New.
type Store interface {
	// Describe inspects a model instance. It fails for anything that is not a
	// queryable record with exactly one identifier column.
	Describe(instance any) (Model, error)
	Relation(parent Model, name string) (Relation, error)

	Select(ctx context.Context, q Query, dest any) error
	Count(ctx context.Context, q Query) (int, error)

	Insert(ctx context.Context, m Model, record any) error
	// Update writes only the given columns.
	Update(ctx context.Context, m Model, record any, columns []string) error
	Delete(ctx context.Context, m Model, record any) error

	// Fill assigns column values to record and returns the columns it set.
	Fill(m Model, record any, fields map[string]any) ([]string, error)
	KeyOf(m Model, record any) (any, error)
}
