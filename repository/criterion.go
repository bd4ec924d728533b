package repository

import (
	"fmt"
	"reflect"
)

// Criterion transforms a query. Implementations must not mutate their input.
type Criterion interface {
	Apply(q Query) (Query, error)
}

// CriterionFunc adapts a function to Criterion.
type CriterionFunc func(q Query) (Query, error)

func (f CriterionFunc) Apply(q Query) (Query, error) { return f(q) }

// Criteria applies its members left to right and stops at the first error,
// returning the query built so far.
type Criteria []Criterion

func (c Criteria) Apply(q Query) (Query, error) {
	for _, criterion := range c {
		next, err := criterion.Apply(q)
		if err != nil {
			return q, err
		}
		q = next
	}
	return q, nil
}

// Flatten turns a mix of criteria, criterion functions and arbitrarily nested
// slices or arrays of them into a flat list, preserving order.
func Flatten(args ...any) ([]Criterion, error) {
	out := make([]Criterion, 0, len(args))
	for i, arg := range args {
		var err error
		if out, err = flattenInto(out, arg); err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
	}
	return out, nil
}

func flattenInto(out []Criterion, arg any) ([]Criterion, error) {
	switch v := arg.(type) {
	case nil:
		return nil, fmt.Errorf("%w: nil", ErrInvalidCriterion)
	case CriterionFunc:
		if v == nil {
			return nil, fmt.Errorf("%w: nil func", ErrInvalidCriterion)
		}
		return append(out, v), nil
	case Criterion:
		return append(out, v), nil
	case func(Query) (Query, error):
		if v == nil {
			return nil, fmt.Errorf("%w: nil func", ErrInvalidCriterion)
		}
		return append(out, CriterionFunc(v)), nil
	}

	rv := reflect.ValueOf(arg)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			var err error
			if out, err = flattenInto(out, rv.Index(i).Interface()); err != nil {
				return nil, err
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unsupported type %T", ErrInvalidCriterion, arg)
	}
}
