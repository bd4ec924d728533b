// Package criteria provides the common query criteria for repositories.
//
//	repo.Entity("post").WithCriteria(
//		criteria.Where("views", ">", 100),
//		criteria.WhereIn("status", "draft", "review"),
//		criteria.Latest(),
//		criteria.ForPage(2, 20),
//	)
//
// Every constructor validates its arguments when applied and reports problems
// as repository.ErrInvalidCriterion.
package criteria

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/goliatone/go-repository-criteria/repository"
)

// DefaultTimestamp is the column Latest and Oldest sort by when none is given.
const DefaultTimestamp = "created_at"

type applyFunc = repository.CriterionFunc

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", repository.ErrInvalidCriterion, fmt.Sprintf(format, args...))
}

// Where compares column against value. op is one of the repository operators.
func Where(column, op string, value any) repository.Criterion {
	return applyFunc(func(q repository.Query) (repository.Query, error) {
		if column == "" {
			return q, invalid("where: empty column")
		}
		normalized := strings.ToUpper(strings.TrimSpace(op))
		if !repository.ValidOp(normalized) {
			return q, invalid("where: unsupported operator %q", op)
		}
		arg := value
		switch normalized {
		case repository.OpIn, repository.OpNotIn:
			values, err := toSlice(value)
			if err != nil {
				return q, invalid("where %s %s: %v", column, normalized, err)
			}
			arg = values
		case repository.OpNull, repository.OpNotNull:
			arg = nil
		}
		return q.Where(column, normalized, arg), nil
	})
}

// WhereEq is Where(column, "=", value).
func WhereEq(column string, value any) repository.Criterion {
	return Where(column, repository.OpEq, value)
}

// WhereIn matches rows whose column is one of values. An empty list matches
// nothing.
func WhereIn(column string, values ...any) repository.Criterion {
	return Where(column, repository.OpIn, values)
}

func WhereNotIn(column string, values ...any) repository.Criterion {
	return Where(column, repository.OpNotIn, values)
}

func WhereNull(column string) repository.Criterion {
	return Where(column, repository.OpNull, nil)
}

func WhereNotNull(column string) repository.Criterion {
	return Where(column, repository.OpNotNull, nil)
}

// OrderBy sorts by column. direction is "asc" or "desc", case insensitive.
func OrderBy(column, direction string) repository.Criterion {
	return applyFunc(func(q repository.Query) (repository.Query, error) {
		if column == "" {
			return q, invalid("order by: empty column")
		}
		switch strings.ToLower(direction) {
		case "", "asc":
			return q.OrderBy(column, false), nil
		case "desc":
			return q.OrderBy(column, true), nil
		default:
			return q, invalid("order by %s: unknown direction %q", column, direction)
		}
	})
}

// Latest sorts newest first by column, or by DefaultTimestamp.
func Latest(column ...string) repository.Criterion {
	return OrderBy(timestamp(column), "desc")
}

// Oldest sorts oldest first by column, or by DefaultTimestamp.
func Oldest(column ...string) repository.Criterion {
	return OrderBy(timestamp(column), "asc")
}

func timestamp(column []string) string {
	if len(column) > 0 && column[0] != "" {
		return column[0]
	}
	return DefaultTimestamp
}

func Limit(n int) repository.Criterion {
	return applyFunc(func(q repository.Query) (repository.Query, error) {
		if n < 0 {
			return q, invalid("limit: negative value %d", n)
		}
		return q.WithLimit(n), nil
	})
}

func Offset(n int) repository.Criterion {
	return applyFunc(func(q repository.Query) (repository.Query, error) {
		if n < 0 {
			return q, invalid("offset: negative value %d", n)
		}
		return q.WithOffset(n), nil
	})
}

// ForPage limits the query to page (1 based) of perPage rows.
func ForPage(page, perPage int) repository.Criterion {
	return applyFunc(func(q repository.Query) (repository.Query, error) {
		if page < 1 || perPage < 1 {
			return q, invalid("for page: page %d, per page %d", page, perPage)
		}
		return q.WithLimit(perPage).WithOffset((page - 1) * perPage), nil
	})
}

// Columns restricts the selected columns.
func Columns(columns ...string) repository.Criterion {
	return applyFunc(func(q repository.Query) (repository.Query, error) {
		for _, c := range columns {
			if c == "" {
				return q, invalid("columns: empty column name")
			}
		}
		return q.Select(columns...), nil
	})
}

// With eager loads the named relations.
func With(relations ...string) repository.Criterion {
	return applyFunc(func(q repository.Query) (repository.Query, error) {
		for _, r := range relations {
			if r == "" {
				return q, invalid("with: empty relation name")
			}
		}
		return q.With(relations...), nil
	})
}

// Scope attaches a store specific query modifier. For the bun store that is a
// go-repository-bun SelectCriteria or a func(*bun.SelectQuery) *bun.SelectQuery.
func Scope(fn any) repository.Criterion {
	return applyFunc(func(q repository.Query) (repository.Query, error) {
		if fn == nil {
			return q, invalid("scope: nil")
		}
		v := reflect.ValueOf(fn)
		if v.Kind() != reflect.Func || v.IsNil() {
			return q, invalid("scope: %T is not a function", fn)
		}
		return q.Scope(fn), nil
	})
}

// When applies criteria only if cond holds.
func When(cond bool, criteria ...repository.Criterion) repository.Criterion {
	return applyFunc(func(q repository.Query) (repository.Query, error) {
		if !cond {
			return q, nil
		}
		return repository.Criteria(criteria).Apply(q)
	})
}

func toSlice(value any) ([]any, error) {
	if values, ok := value.([]any); ok {
		return values, nil
	}
	v := reflect.ValueOf(value)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, fmt.Errorf("expected a list, got %T", value)
	}
	out := make([]any, v.Len())
	for i := range out {
		out[i] = v.Index(i).Interface()
	}
	return out, nil
}
