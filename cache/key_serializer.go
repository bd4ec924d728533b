package cache

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

const (
	// KeySeparator defines the delimiter used between cache key segments.
	KeySeparator = "."

	// CollectionMarker is the final segment of the key that holds a whole collection.
	CollectionMarker = "*"
)

// defaultKeySerializer renders each argument as one key segment. Identifiers
// (strings, numbers, fmt.Stringer values such as uuid.UUID) are written as is.
// Slices and arrays become "[a,b]" so composite keys stay a single segment.
type defaultKeySerializer struct {
	separator string
}

// NewDefaultKeySerializer creates a key serializer that joins segments with KeySeparator.
func NewDefaultKeySerializer() KeySerializer {
	return &defaultKeySerializer{separator: KeySeparator}
}

// NewKeySerializer creates a key serializer with a custom segment separator.
func NewKeySerializer(separator string) KeySerializer {
	if separator == "" {
		separator = KeySeparator
	}
	return &defaultKeySerializer{separator: separator}
}

// SerializeKey joins namespace and one segment per argument.
func (s *defaultKeySerializer) SerializeKey(namespace string, args ...any) string {
	if len(args) == 0 {
		return namespace
	}

	var b strings.Builder
	b.WriteString(namespace)
	for _, arg := range args {
		b.WriteString(s.separator)
		b.WriteString(segment(arg))
	}
	return b.String()
}

func segment(v any) string {
	switch id := v.(type) {
	case nil:
		return "nil"
	case string:
		return id
	case []byte:
		return string(id)
	case fmt.Stringer:
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
			return "nil"
		}
		return id.String()
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	case uint64:
		return strconv.FormatUint(id, 10)
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(id)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return "nil"
		}
		return segment(rv.Elem().Interface())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 32)
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64)
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool())
	case reflect.String:
		return rv.String()
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return "[]"
		}
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = segment(rv.Index(i).Interface())
		}
		return "[" + strings.Join(parts, ",") + "]"
	}

	// fmt prints maps with sorted keys, so this stays deterministic.
	return fmt.Sprintf("%v", v)
}
