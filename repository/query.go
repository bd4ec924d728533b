package repository

import "slices"

// Comparison operators understood by every Store.
const (
	OpEq      = "="
	OpNe      = "<>"
	OpGt      = ">"
	OpGte     = ">="
	OpLt      = "<"
	OpLte     = "<="
	OpLike    = "LIKE"
	OpIn      = "IN"
	OpNotIn   = "NOT IN"
	OpNull    = "IS NULL"
	OpNotNull = "IS NOT NULL"
)

// ValidOp reports whether op is one of the supported comparison operators.
func ValidOp(op string) bool {
	switch op {
	case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpLike, OpIn, OpNotIn, OpNull, OpNotNull:
		return true
	}
	return false
}

// Condition is a single column comparison. Value is ignored for the null operators
// and must be a slice for IN and NOT IN.
type Condition struct {
	Column string
	Op     string
	Value  any
}

// Order sorts by a column.
type Order struct {
	Column string
	Desc   bool
}

// Query is the state criteria operate on. It is a value: every method returns a
// new Query and leaves the receiver untouched, so a Query can be shared freely.
type Query struct {
	Model      Model
	Conditions []Condition
	Orders     []Order
	Columns    []string
	Relations  []string
	// Scopes holds store specific modifiers, such as bun select criteria.
	Scopes []any
	Limit  int
	Offset int
}

// NewQuery starts an empty query for m.
func NewQuery(m Model) Query {
	return Query{Model: m}
}

func (q Query) Where(column, op string, value any) Query {
	q.Conditions = append(slices.Clip(q.Conditions), Condition{Column: column, Op: op, Value: value})
	return q
}

func (q Query) OrderBy(column string, desc bool) Query {
	q.Orders = append(slices.Clip(q.Orders), Order{Column: column, Desc: desc})
	return q
}

func (q Query) Select(columns ...string) Query {
	q.Columns = append(slices.Clip(q.Columns), columns...)
	return q
}

func (q Query) With(relations ...string) Query {
	q.Relations = append(slices.Clip(q.Relations), relations...)
	return q
}

func (q Query) Scope(scope any) Query {
	q.Scopes = append(slices.Clip(q.Scopes), scope)
	return q
}

func (q Query) WithLimit(n int) Query {
	q.Limit = n
	return q
}

func (q Query) WithOffset(n int) Query {
	q.Offset = n
	return q
}

// Unpaged drops limit, offset and ordering, keeping only what filters rows.
func (q Query) Unpaged() Query {
	q.Limit, q.Offset = 0, 0
	q.Orders = nil
	return q
}

// Filtered reports whether anything beyond the bare model was applied.
func (q Query) Filtered() bool {
	return len(q.Conditions) > 0 ||
		len(q.Orders) > 0 ||
		len(q.Columns) > 0 ||
		len(q.Relations) > 0 ||
		len(q.Scopes) > 0 ||
		q.Limit > 0 ||
		q.Offset > 0
}
