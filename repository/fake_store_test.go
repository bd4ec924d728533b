package repository

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"sync"
	"time"
)

type User struct {
	ID   int64  `col:"id"`
	Name string `col:"name"`

	Posts []*Post
}

type Post struct {
	ID     int64  `col:"id"`
	UserID int64  `col:"user_id"`
	Title  string `col:"title"`
	Views  int    `col:"views"`
}

// Widget has no table and is rejected by Describe.
type Widget struct {
	Label string
}

// fakeStore keeps records in memory and records every call. Columns are
// mapped through the `col` tag.
type fakeStore struct {
	mu     sync.Mutex
	calls  []string
	tables map[reflect.Type]string
	rows   map[string][]any
	nextID int64

	failSelect error
	failDelete error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tables: map[reflect.Type]string{
			reflect.TypeFor[User](): "users",
			reflect.TypeFor[Post](): "posts",
		},
		rows:   make(map[string][]any),
		nextID: 100,
	}
}

func (s *fakeStore) record(call string) {
	s.calls = append(s.calls, call)
}

func (s *fakeStore) countCalls(call string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (s *fakeStore) seed(records ...any) {
	for _, rec := range records {
		table := s.tables[reflect.TypeOf(rec).Elem()]
		s.rows[table] = append(s.rows[table], rec)
	}
}

func (s *fakeStore) Describe(instance any) (Model, error) {
	typ := reflect.TypeOf(instance)
	if typ == nil {
		return Model{}, errors.New("nil instance")
	}
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	table, ok := s.tables[typ]
	if !ok {
		return Model{}, fmt.Errorf("%s has no table", typ)
	}
	return Model{Entity: SnakeCase(typ.Name()), Table: table, Key: "id", Type: typ}, nil
}

func (s *fakeStore) Relation(parent Model, name string) (Relation, error) {
	if parent.Type == reflect.TypeFor[User]() && name == "Posts" {
		related, _ := s.Describe(&Post{})
		return Relation{Name: name, Model: related, ForeignKey: "user_id"}, nil
	}
	return Relation{}, fmt.Errorf("%s has no relation %s", parent.Type, name)
}

func (s *fakeStore) matching(q Query) ([]any, error) {
	var out []any
	for _, rec := range s.rows[q.Model.Table] {
		ok, err := matches(rec, q.Conditions)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, rec)
		}
	}

	for i := len(q.Orders) - 1; i >= 0; i-- {
		o := q.Orders[i]
		sort.SliceStable(out, func(a, b int) bool {
			less := fmt.Sprint(column(out[a], o.Column).Interface()) < fmt.Sprint(column(out[b], o.Column).Interface())
			if o.Desc {
				return !less
			}
			return less
		})
	}
	return out, nil
}

func (s *fakeStore) Select(ctx context.Context, q Query, dest any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("Select:" + q.Model.Table)
	if s.failSelect != nil {
		return s.failSelect
	}

	rows, err := s.matching(q)
	if err != nil {
		return err
	}
	if q.Offset > 0 {
		if q.Offset >= len(rows) {
			rows = nil
		} else {
			rows = rows[q.Offset:]
		}
	}
	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}

	slice := reflect.ValueOf(dest).Elem()
	for _, rec := range rows {
		cp := reflect.New(reflect.TypeOf(rec).Elem())
		cp.Elem().Set(reflect.ValueOf(rec).Elem())
		slice.Set(reflect.Append(slice, cp))
	}
	return nil
}

func (s *fakeStore) Count(ctx context.Context, q Query) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("Count:" + q.Model.Table)
	rows, err := s.matching(q)
	return len(rows), err
}

func (s *fakeStore) Insert(ctx context.Context, m Model, record any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("Insert:" + m.Table)
	s.nextID++
	column(record, "id").SetInt(s.nextID)
	cp := reflect.New(m.Type)
	cp.Elem().Set(reflect.ValueOf(record).Elem())
	s.rows[m.Table] = append(s.rows[m.Table], cp.Interface())
	return nil
}

func (s *fakeStore) Update(ctx context.Context, m Model, record any, columns []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("Update:" + m.Table)
	id := column(record, "id").Int()
	for _, rec := range s.rows[m.Table] {
		if column(rec, "id").Int() == id {
			for _, col := range columns {
				column(rec, col).Set(column(record, col))
			}
			return nil
		}
	}
	return fmt.Errorf("no row %d", id)
}

func (s *fakeStore) Delete(ctx context.Context, m Model, record any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("Delete:" + m.Table)
	if s.failDelete != nil {
		return s.failDelete
	}
	id := column(record, "id").Int()
	rows := s.rows[m.Table]
	for i, rec := range rows {
		if column(rec, "id").Int() == id {
			s.rows[m.Table] = append(rows[:i:i], rows[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *fakeStore) Fill(m Model, record any, fields map[string]any) ([]string, error) {
	cols := make([]string, 0, len(fields))
	for col, val := range fields {
		f := column(record, col)
		if !f.IsValid() {
			return nil, fmt.Errorf("%s has no column %q", m.Entity, col)
		}
		v := reflect.ValueOf(val)
		if !v.Type().ConvertibleTo(f.Type()) {
			return nil, fmt.Errorf("cannot assign %T to %s", val, col)
		}
		f.Set(v.Convert(f.Type()))
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols, nil
}

func (s *fakeStore) KeyOf(m Model, record any) (any, error) {
	f := column(record, m.Key)
	if !f.IsValid() {
		return nil, errors.New("no key column")
	}
	return f.Interface(), nil
}

func column(record any, name string) reflect.Value {
	v := reflect.ValueOf(record).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).Tag.Get("col") == name {
			return v.Field(i)
		}
	}
	return reflect.Value{}
}

func matches(record any, conds []Condition) (bool, error) {
	for _, c := range conds {
		f := column(record, c.Column)
		if !f.IsValid() {
			return false, fmt.Errorf("unknown column %q", c.Column)
		}
		got := fmt.Sprint(f.Interface())
		switch c.Op {
		case OpEq:
			if got != fmt.Sprint(c.Value) {
				return false, nil
			}
		case OpIn:
			found := false
			for _, v := range c.Value.([]any) {
				if got == fmt.Sprint(v) {
					found = true
					break
				}
			}
			if !found {
				return false, nil
			}
		default:
			return false, fmt.Errorf("unsupported op %q", c.Op)
		}
	}
	return true, nil
}

// recordingCache is a cache.Store that records Forget calls.
type recordingCache struct {
	mu        sync.Mutex
	data      map[string][]byte
	gets      []string
	forgotten []string
	failFor   map[string]error
}

func newRecordingCache() *recordingCache {
	return &recordingCache{data: make(map[string][]byte), failFor: make(map[string]error)}
}

func (c *recordingCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets = append(c.gets, key)
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *recordingCache) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *recordingCache) Forget(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.forgotten = append(c.forgotten, key)
	if err, ok := c.failFor[key]; ok {
		return err
	}
	delete(c.data, key)
	return nil
}

func (c *recordingCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
