package repository

import "reflect"

// Model describes a resolved entity: what the caller called it, where it is
// stored and how its records are identified.
type Model struct {
	Entity string
	Table  string
	Key    string
	Type   reflect.Type
}

// IsZero reports whether the model was never resolved.
func (m Model) IsZero() bool {
	return m.Type == nil
}

// Name is the Go type name, used when reporting missing records.
func (m Model) Name() string {
	if m.Type == nil {
		return m.Entity
	}
	return m.Type.Name()
}

// New allocates a record, returned as a pointer to the model struct.
func (m Model) New() any {
	return reflect.New(m.Type).Interface()
}

// NewSlice allocates a pointer to an empty []*T for the model struct T.
func (m Model) NewSlice() any {
	slice := reflect.MakeSlice(reflect.SliceOf(reflect.PointerTo(m.Type)), 0, 0)
	ptr := reflect.New(slice.Type())
	ptr.Elem().Set(slice)
	return ptr.Interface()
}

// records returns the []*T held by a pointer produced by NewSlice.
func records(dest any) reflect.Value {
	return reflect.ValueOf(dest).Elem()
}
