package repository

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuery_MethodsDoNotAlias(t *testing.T) {
	base := NewQuery(Model{Table: "posts"}).Where("user_id", OpEq, 1)
	// spare capacity, so a plain append would share the backing array
	base.Conditions = append(base.Conditions[:1:1], Condition{})[:1]

	a := base.Where("title", OpEq, "a")
	b := base.Where("title", OpEq, "b")

	require.Len(t, a.Conditions, 2)
	require.Len(t, b.Conditions, 2)
	assert.Equal(t, "a", a.Conditions[1].Value)
	assert.Equal(t, "b", b.Conditions[1].Value)
	assert.Len(t, base.Conditions, 1)
}

func TestQuery_Filtered(t *testing.T) {
	q := NewQuery(Model{Table: "posts"})
	assert.False(t, q.Filtered())

	tests := map[string]Query{
		"where":   q.Where("id", OpEq, 1),
		"order":   q.OrderBy("id", false),
		"columns": q.Select("id"),
		"with":    q.With("Comments"),
		"scope":   q.Scope(func() {}),
		"limit":   q.WithLimit(1),
		"offset":  q.WithOffset(1),
	}
	for name, got := range tests {
		assert.True(t, got.Filtered(), name)
	}

	unpaged := q.Where("id", OpEq, 1).OrderBy("id", true).WithLimit(3).WithOffset(6).Unpaged()
	assert.Len(t, unpaged.Conditions, 1)
	assert.Empty(t, unpaged.Orders)
	assert.Zero(t, unpaged.Limit)
	assert.Zero(t, unpaged.Offset)
}

func TestValidOp(t *testing.T) {
	for _, op := range []string{OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpLike, OpIn, OpNotIn, OpNull, OpNotNull} {
		assert.True(t, ValidOp(op), op)
	}
	assert.False(t, ValidOp("; DROP TABLE posts"))
	assert.False(t, ValidOp("=="))
}

func TestCriteria_StopsAtFirstError(t *testing.T) {
	boom := errors.New("boom")
	ran := 0
	count := CriterionFunc(func(q Query) (Query, error) {
		ran++
		return q.WithLimit(ran), nil
	})
	fail := CriterionFunc(func(q Query) (Query, error) { return Query{}, boom })

	got, err := Criteria{count, fail, count}.Apply(NewQuery(Model{Table: "posts"}))
	assert.Same(t, boom, err)
	assert.Equal(t, 1, ran)
	assert.Equal(t, "posts", got.Model.Table, "partial state is kept")
	assert.Equal(t, 1, got.Limit)
}

func TestFlatten(t *testing.T) {
	a := CriterionFunc(func(q Query) (Query, error) { return q.Where("a", OpEq, 1), nil })
	b := CriterionFunc(func(q Query) (Query, error) { return q.Where("b", OpEq, 2), nil })

	list, err := Flatten(a, [][]any{{b}, {[]Criterion{a}}}, Criteria{b})
	require.NoError(t, err)
	require.Len(t, list, 4)

	got, err := Criteria(list).Apply(Query{})
	require.NoError(t, err)
	cols := make([]string, len(got.Conditions))
	for i, c := range got.Conditions {
		cols[i] = c.Column
	}
	assert.Equal(t, []string{"a", "b", "a", "b"}, cols)

	_, err = Flatten(a, []any{b, 3.5})
	assert.ErrorIs(t, err, ErrInvalidCriterion)
	assert.Contains(t, err.Error(), "argument 1")

	empty, err := Flatten()
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSnakeCase(t *testing.T) {
	tests := map[string]string{
		"":            "",
		"User":        "user",
		"BlogPost":    "blog_post",
		"HTTPServer":  "http_server",
		"UserID":      "user_id",
		"Post2":       "post2",
		"*main.User":  "main_user",
		"List[Post]":  "list_post",
		"already_ok":  "already_ok",
		"Weird--Name": "weird_name",
	}
	for in, want := range tests {
		assert.Equal(t, want, SnakeCase(in), in)
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	RegisterModel[Post](reg)
	RegisterModel[User](reg, "author", "member")
	reg.Register("custom", func() any { return &Widget{Label: "x"} })

	assert.Equal(t, []string{"author", "custom", "member", "post"}, reg.Names())

	v, err := reg.Make("post")
	require.NoError(t, err)
	assert.IsType(t, &Post{}, v)

	first, _ := reg.Make("author")
	second, _ := reg.Make("member")
	assert.NotSame(t, first, second, "every Make builds a fresh instance")

	_, err = reg.Make("comment")
	assert.Error(t, err)

	var f Factory = FactoryFunc(func(name string) (any, error) { return &Post{}, nil })
	v, err = f.Make("anything")
	require.NoError(t, err)
	assert.IsType(t, &Post{}, v)
}

func TestModel_Allocation(t *testing.T) {
	store := newFakeStore()
	m, err := store.Describe(&Post{})
	require.NoError(t, err)

	assert.IsType(t, &Post{}, m.New())
	assert.IsType(t, &[]*Post{}, m.NewSlice())
	assert.Equal(t, "Post", m.Name())
	assert.True(t, Model{}.IsZero())
}
