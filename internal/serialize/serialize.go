// Package serialize converts arbitrary result graphs (sandbox values, OCI
// SDK response structs, whatever a snippet produced) into JSON-safe trees.
// Unknown leaf types degrade to their string form instead of failing the
// response, and depth/cycle guards truncate pathological graphs instead of
// hanging on them.
package serialize

import (
	"encoding/base64"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
	"time"
)

const defaultMaxDepth = 32

// Markers substituted when a guard trips.
const (
	TruncatedMarker = "<truncated: max depth exceeded>"
	CycleMarker     = "<truncated: cycle detected>"
)

// Serializer converts values into JSON-safe trees. The zero value is usable;
// MaxDepth defaults to 32.
type Serializer struct {
	MaxDepth int
}

// Tree converts v into a tree of map[string]any, []any, and JSON-safe
// scalars. It never fails on unrecognized types; the error return is
// reserved for values that defeat even string coercion (non-finite floats
// are reported rather than silently emitted, since encoding/json cannot
// represent them).
func (s *Serializer) Tree(v any) (any, error) {
	maxDepth := s.MaxDepth
	if maxDepth <= 0 {
		maxDepth = defaultMaxDepth
	}
	w := &walker{maxDepth: maxDepth, seen: map[uintptr]bool{}}
	return w.convert(reflect.ValueOf(v), 0)
}

// Tree serializes with default settings.
func Tree(v any) (any, error) {
	var s Serializer
	return s.Tree(v)
}

type walker struct {
	maxDepth int
	seen     map[uintptr]bool
}

func (w *walker) convert(rv reflect.Value, depth int) (any, error) {
	if depth > w.maxDepth {
		return TruncatedMarker, nil
	}
	if !rv.IsValid() {
		return nil, nil
	}

	// time.Time renders as RFC 3339 before generic struct handling sees it.
	if rv.Type() == reflect.TypeOf(time.Time{}) {
		return rv.Interface().(time.Time).Format(time.RFC3339), nil
	}

	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool(), nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return fmt.Sprintf("%d", u), nil
		}
		return int64(u), nil

	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("cannot represent non-finite number %v", f)
		}
		return f, nil

	case reflect.String:
		return rv.String(), nil

	case reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		return w.convert(rv.Elem(), depth)

	case reflect.Ptr:
		if rv.IsNil() {
			return nil, nil
		}
		ptr := rv.Pointer()
		if w.seen[ptr] {
			return CycleMarker, nil
		}
		w.seen[ptr] = true
		out, err := w.convert(rv.Elem(), depth)
		delete(w.seen, ptr)
		return out, err

	case reflect.Slice:
		if rv.IsNil() {
			return []any{}, nil
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return base64.StdEncoding.EncodeToString(rv.Bytes()), nil
		}
		ptr := rv.Pointer()
		if w.seen[ptr] {
			return CycleMarker, nil
		}
		w.seen[ptr] = true
		out, err := w.convertSequence(rv, depth)
		delete(w.seen, ptr)
		return out, err

	case reflect.Array:
		return w.convertSequence(rv, depth)

	case reflect.Map:
		if rv.IsNil() {
			return map[string]any{}, nil
		}
		ptr := rv.Pointer()
		if w.seen[ptr] {
			return CycleMarker, nil
		}
		w.seen[ptr] = true
		out, err := w.convertMap(rv, depth)
		delete(w.seen, ptr)
		return out, err

	case reflect.Struct:
		return w.convertStruct(rv, depth)
	}

	// Funcs, channels, unsafe pointers: coerce to a string description
	// rather than failing the whole response.
	return coerceString(rv), nil
}

func (w *walker) convertSequence(rv reflect.Value, depth int) (any, error) {
	out := make([]any, rv.Len())
	for i := range out {
		item, err := w.convert(rv.Index(i), depth+1)
		if err != nil {
			return nil, err
		}
		out[i] = item
	}
	return out, nil
}

func (w *walker) convertMap(rv reflect.Value, depth int) (any, error) {
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		key := mapKeyString(iter.Key())
		value, err := w.convert(iter.Value(), depth+1)
		if err != nil {
			return nil, err
		}
		out[key] = value
	}
	return out, nil
}

func (w *walker) convertStruct(rv reflect.Value, depth int) (any, error) {
	rt := rv.Type()
	out := make(map[string]any, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		name := field.Name
		if tag := jsonTagName(field); tag != "" {
			name = tag
		}
		value, err := w.convert(rv.Field(i), depth+1)
		if err != nil {
			return nil, err
		}
		out[name] = value
	}
	if len(out) == 0 {
		// A struct with no exported fields still deserves a representation.
		return coerceString(rv), nil
	}
	return out, nil
}

func jsonTagName(field reflect.StructField) string {
	tag := field.Tag.Get("json")
	if tag == "" || tag == "-" {
		return ""
	}
	if i := strings.IndexByte(tag, ','); i >= 0 {
		tag = tag[:i]
	}
	return tag
}

// mapKeyString renders any map key as a string, sorting not required here
// since JSON objects are unordered; non-string keys coerce via Sprint.
func mapKeyString(key reflect.Value) string {
	if key.Kind() == reflect.String {
		return key.String()
	}
	return fmt.Sprint(key.Interface())
}

func coerceString(rv reflect.Value) string {
	v := rv.Interface()
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", v)
}

// SortedKeys returns a tree map's keys in sorted order. Test helper shared
// with callers that need deterministic traversal of serialized objects.
func SortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
