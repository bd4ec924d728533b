// Package bunstore implements repository.Store on top of bun.
//
// Models are plain bun models. The single primary key column becomes the
// repository key and has-one or has-many relations declared with the bun
// `rel` and `join` tag options can be used with Repository.Relation:
//
//	type User struct {
//		bun.BaseModel `bun:"table:users,alias:u"`
//		ID    int64   `bun:"id,pk,autoincrement"`
//		Posts []*Post `bun:"rel:has-many,join:id=user_id"`
//	}
package bunstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	gorepo "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-repository-criteria/repository"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
	"github.com/vmihailenco/tagparser/v2"
	"go.uber.org/zap"
)

// ErrUnsupportedScope is returned for query scopes bun cannot apply.
var ErrUnsupportedScope = errors.New("unsupported query scope")

var _ repository.Store = (*Store)(nil)

// Store runs repository queries through a bun.IDB, which may be a *bun.DB or a bun.Tx.
type Store struct {
	db     bun.IDB
	logger *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New wraps db.
func New(db bun.IDB, opts ...Option) *Store {
	s := &Store{db: db, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) table(typ reflect.Type) *schema.Table {
	return s.db.Dialect().Tables().Get(typ)
}

// Describe validates that instance is a bun model with exactly one primary key.
func (s *Store) Describe(instance any) (repository.Model, error) {
	typ := reflect.TypeOf(instance)
	if typ == nil {
		return repository.Model{}, errors.New("model is nil")
	}
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return repository.Model{}, fmt.Errorf("%s is not a struct", typ)
	}

	table := s.table(typ)
	if table == nil || table.Name == "" {
		return repository.Model{}, fmt.Errorf("%s has no table", typ)
	}
	if len(table.PKs) != 1 {
		return repository.Model{}, fmt.Errorf("%s must have exactly one primary key, found %d", typ, len(table.PKs))
	}

	return repository.Model{
		Entity: repository.SnakeCase(typ.Name()),
		Table:  table.Name,
		Key:    table.PKs[0].Name,
		Type:   typ,
	}, nil
}

// Relation resolves a has-one or has-many relation declared on parent. The
// join must use the parent primary key, which is what the parent id refers to.
func (s *Store) Relation(parent repository.Model, name string) (repository.Relation, error) {
	field, ok := parent.Type.FieldByName(name)
	if !ok {
		return repository.Relation{}, fmt.Errorf("%s has no field %s", parent.Type, name)
	}

	tag := tagparser.Parse(field.Tag.Get("bun"))
	switch kind := tag.Options["rel"]; kind {
	case "has-many", "has-one":
	case "":
		return repository.Relation{}, fmt.Errorf("%s.%s is not a relation", parent.Type, name)
	default:
		return repository.Relation{}, fmt.Errorf("%s.%s is a %s relation, only has-one and has-many are supported", parent.Type, name, kind)
	}

	baseColumn := parent.Key
	joinColumn := repository.SnakeCase(parent.Type.Name()) + "_" + parent.Key
	if join, ok := tag.Options["join"]; ok {
		base, joined, found := strings.Cut(join, "=")
		if !found || base == "" || joined == "" {
			return repository.Relation{}, fmt.Errorf("%s.%s has malformed join %q", parent.Type, name, join)
		}
		baseColumn, joinColumn = base, joined
	}
	if baseColumn != parent.Key {
		return repository.Relation{}, fmt.Errorf("%s.%s joins on %s, expected primary key %s", parent.Type, name, baseColumn, parent.Key)
	}

	related, err := s.Describe(reflect.New(elemType(field.Type)).Interface())
	if err != nil {
		return repository.Relation{}, err
	}
	if _, ok := s.table(related.Type).FieldMap[joinColumn]; !ok {
		return repository.Relation{}, fmt.Errorf("%s has no column %s", related.Type, joinColumn)
	}

	return repository.Relation{Name: name, Model: related, ForeignKey: joinColumn}, nil
}

func elemType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice || t.Kind() == reflect.Array {
		t = t.Elem()
	}
	return t
}

func (s *Store) Select(ctx context.Context, q repository.Query, dest any) error {
	sel, err := s.selectQuery(q, dest)
	if err != nil {
		return err
	}
	if len(q.Columns) > 0 {
		sel = sel.Column(q.Columns...)
	}
	for _, rel := range q.Relations {
		sel = sel.Relation(rel)
	}
	for _, o := range q.Orders {
		if o.Desc {
			sel = sel.OrderExpr("?TableAlias.? DESC", bun.Ident(o.Column))
		} else {
			sel = sel.OrderExpr("?TableAlias.? ASC", bun.Ident(o.Column))
		}
	}
	if q.Limit > 0 {
		sel = sel.Limit(q.Limit)
	}
	if q.Offset > 0 {
		sel = sel.Offset(q.Offset)
	}

	if err := sel.Scan(ctx); err != nil {
		s.logger.Debug("select failed", zap.String("table", q.Model.Table), zap.Error(err))
		return err
	}
	return nil
}

func (s *Store) Count(ctx context.Context, q repository.Query) (int, error) {
	sel, err := s.selectQuery(q, q.Model.New())
	if err != nil {
		return 0, err
	}
	return sel.Count(ctx)
}

// selectQuery applies the row filters of q: conditions and scopes.
func (s *Store) selectQuery(q repository.Query, model any) (*bun.SelectQuery, error) {
	sel := s.db.NewSelect().Model(model)

	for _, c := range q.Conditions {
		var err error
		if sel, err = where(sel, c); err != nil {
			return nil, err
		}
	}

	for _, sc := range q.Scopes {
		switch fn := sc.(type) {
		case gorepo.SelectCriteria:
			sel = fn(sel)
		case func(*bun.SelectQuery) *bun.SelectQuery:
			sel = fn(sel)
		default:
			return nil, fmt.Errorf("%w: %T", ErrUnsupportedScope, sc)
		}
	}
	return sel, nil
}

func where(sel *bun.SelectQuery, c repository.Condition) (*bun.SelectQuery, error) {
	col := bun.Ident(c.Column)
	switch c.Op {
	case repository.OpEq, repository.OpNe, repository.OpGt, repository.OpGte,
		repository.OpLt, repository.OpLte, repository.OpLike:
		return sel.Where("?TableAlias.? "+c.Op+" ?", col, c.Value), nil
	case repository.OpIn, repository.OpNotIn:
		values, ok := c.Value.([]any)
		if !ok {
			return nil, fmt.Errorf("%s %s expects a list, got %T", c.Column, c.Op, c.Value)
		}
		if len(values) == 0 {
			if c.Op == repository.OpIn {
				return sel.Where("1 = 0"), nil
			}
			return sel, nil
		}
		return sel.Where("?TableAlias.? "+c.Op+" (?)", col, bun.In(values)), nil
	case repository.OpNull, repository.OpNotNull:
		return sel.Where("?TableAlias.? "+c.Op, col), nil
	default:
		return nil, fmt.Errorf("unsupported operator %q", c.Op)
	}
}

func (s *Store) Insert(ctx context.Context, m repository.Model, record any) error {
	_, err := s.db.NewInsert().Model(record).Exec(ctx)
	return err
}

// Update writes columns of record by primary key. It fails with a
// RecordNotFoundError when no row has that key.
func (s *Store) Update(ctx context.Context, m repository.Model, record any, columns []string) error {
	if len(columns) == 0 {
		return nil
	}
	res, err := s.db.NewUpdate().Model(record).Column(columns...).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	return s.affected(m, record, res)
}

func (s *Store) Delete(ctx context.Context, m repository.Model, record any) error {
	res, err := s.db.NewDelete().Model(record).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	return s.affected(m, record, res)
}

func (s *Store) affected(m repository.Model, record any, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	id, err := s.KeyOf(m, record)
	if err != nil {
		return err
	}
	s.logger.Debug("no rows affected", zap.String("table", m.Table), zap.Any("id", id))
	return &repository.RecordNotFoundError{Entity: m.Name(), IDs: []any{id}}
}

// Fill assigns fields by column name. Values are converted to the field type
// when Go allows it, except numbers are never turned into strings.
func (s *Store) Fill(m repository.Model, record any, fields map[string]any) ([]string, error) {
	v, err := structValue(m, record)
	if err != nil {
		return nil, err
	}
	table := s.table(m.Type)

	columns := make([]string, 0, len(fields))
	for column, value := range fields {
		field, ok := table.FieldMap[column]
		if !ok {
			return nil, fmt.Errorf("%s has no column %q", m.Type, column)
		}
		if err := assign(v.FieldByIndex(field.Index), value); err != nil {
			return nil, fmt.Errorf("%s.%s: %w", m.Type, column, err)
		}
		columns = append(columns, column)
	}
	sort.Strings(columns)
	return columns, nil
}

func (s *Store) KeyOf(m repository.Model, record any) (any, error) {
	v, err := structValue(m, record)
	if err != nil {
		return nil, err
	}
	field, ok := s.table(m.Type).FieldMap[m.Key]
	if !ok {
		return nil, fmt.Errorf("%s has no column %q", m.Type, m.Key)
	}
	return v.FieldByIndex(field.Index).Interface(), nil
}

func structValue(m repository.Model, record any) (reflect.Value, error) {
	v := reflect.ValueOf(record)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Type() != m.Type {
		return reflect.Value{}, fmt.Errorf("expected *%s, got %T", m.Type, record)
	}
	return v.Elem(), nil
}

func assign(dst reflect.Value, value any) error {
	if value == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}

	src := reflect.ValueOf(value)
	target := dst.Type()
	if target.Kind() == reflect.Pointer && src.Type() != target {
		ptr := reflect.New(target.Elem())
		if err := assign(ptr.Elem(), value); err != nil {
			return err
		}
		dst.Set(ptr)
		return nil
	}

	switch {
	case src.Type().AssignableTo(target):
		dst.Set(src)
	case target.Kind() == reflect.String && src.Kind() != reflect.String:
		return fmt.Errorf("cannot assign %T to %s", value, target)
	case src.Type().ConvertibleTo(target):
		dst.Set(src.Convert(target))
	default:
		return fmt.Errorf("cannot assign %T to %s", value, target)
	}
	return nil
}
