package repository

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidEntity is matched by every *InvalidEntityError.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrRecordNotFound is matched by every *RecordNotFoundError.
	ErrRecordNotFound = errors.New("record not found")

	// ErrResolution is matched by every *ResolutionError.
	ErrResolution = errors.New("entity resolution failed")

	// ErrEntityNotSet is returned by operations on a repository with no entity bound.
	ErrEntityNotSet = errors.New("no entity set on repository")

	ErrInvalidRelation  = errors.New("invalid relation")
	ErrInvalidCriterion = errors.New("invalid criterion")
	ErrResultType       = errors.New("unexpected result type")

	// ErrKeyUpdate is returned by Update when the fields name the key column.
	ErrKeyUpdate = errors.New("key column cannot be updated")
)

// InvalidEntityError reports that an entity resolved to something the store
// cannot query as a persistent record.
type InvalidEntityError struct {
	Entity string
	Err    error
}

func (e *InvalidEntityError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("entity %q is not a valid model", e.Entity)
	}
	return fmt.Sprintf("entity %q is not a valid model: %v", e.Entity, e.Err)
}

func (e *InvalidEntityError) Unwrap() error { return e.Err }

func (e *InvalidEntityError) Is(target error) bool { return target == ErrInvalidEntity }

// RecordNotFoundError is returned when a lookup matched nothing. IDs holds the
// requested identifiers and is empty for First.
type RecordNotFoundError struct {
	Entity string
	IDs    []any
}

func (e *RecordNotFoundError) Error() string {
	msg := fmt.Sprintf("no query results for model [%s]", e.Entity)
	if len(e.IDs) == 0 {
		return msg
	}
	ids := make([]string, len(e.IDs))
	for i, id := range e.IDs {
		ids[i] = fmt.Sprint(id)
	}
	return msg + " " + strings.Join(ids, ", ")
}

func (e *RecordNotFoundError) Is(target error) bool { return target == ErrRecordNotFound }

// ResolutionError wraps a Factory failure.
type ResolutionError struct {
	Entity string
	Err    error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve entity %q: %v", e.Entity, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

func (e *ResolutionError) Is(target error) bool { return target == ErrResolution }
