package sandbox

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"unicode"
)

// typeName renders a value's type for error messages in snippet terms.
func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case int64, float64:
		return "number"
	case []any:
		return "list"
	case map[string]any:
		return "map"
	case Callable:
		return "function"
	case Object:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// looseEqual compares values with numeric promotion so 1 == 1.0 holds.
func looseEqual(a, b any) bool {
	if af, ok := asFloat(a); ok {
		if bf, ok := asFloat(b); ok {
			return af == bf
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

// compareValues orders two numbers or two strings.
func compareValues(a, b any) (int, error) {
	if as, ok := a.(string); ok {
		bs, ok := b.(string)
		if !ok {
			return 0, fmt.Errorf("cannot compare string with %s", typeName(b))
		}
		return strings.Compare(as, bs), nil
	}
	af, aOK := asFloat(a)
	bf, bOK := asFloat(b)
	if !aOK || !bOK {
		return 0, fmt.Errorf("cannot compare %s with %s", typeName(a), typeName(b))
	}
	switch {
	case af < bf:
		return -1, nil
	case af > bf:
		return 1, nil
	default:
		return 0, nil
	}
}

// iterate produces the elements a for-loop visits. Maps iterate their keys in
// sorted order so runs are deterministic. SDK slices (e.g. []Compartment)
// iterate via reflection.
func iterate(v any) ([]any, error) {
	switch val := v.(type) {
	case []any:
		return val, nil
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		items := make([]any, len(keys))
		for i, k := range keys {
			items[i] = k
		}
		return items, nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr && !rv.IsNil() {
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return items, nil
	}
	return nil, fmt.Errorf("%s is not iterable", typeName(v))
}

// attrOf resolves read-only attribute access. Maps resolve by key; anything
// else resolves by struct field projection through reflection, matching the
// exact field name, its json tag, or its snake_case form. This is data
// access only: no method values are ever produced here, so reflection cannot
// become a call-dispatch path.
func attrOf(v any, name string) (any, error) {
	if obj, ok := v.(Object); ok {
		return obj.Attr(name)
	}
	if m, ok := v.(map[string]any); ok {
		val, ok := m[name]
		if !ok {
			return nil, fmt.Errorf("map has no key %q", name)
		}
		return val, nil
	}
	if v == nil {
		return nil, fmt.Errorf("cannot read attribute %q of null", name)
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, fmt.Errorf("cannot read attribute %q of null", name)
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%s has no attribute %q", typeName(v), name)
	}

	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		if field.Name == name || jsonTagName(field) == name || snakeCase(field.Name) == name {
			fv := rv.Field(i)
			// Unwrap the SDK's pointer-typed optional fields.
			if fv.Kind() == reflect.Ptr {
				if fv.IsNil() {
					return nil, nil
				}
				fv = fv.Elem()
			}
			return fv.Interface(), nil
		}
	}
	return nil, fmt.Errorf("%s has no attribute %q", rt.Name(), name)
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

// snakeCase converts DisplayName to display_name and VCNId to vcn_id.
func snakeCase(name string) string {
	var sb strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			// Boundary before an upper rune that starts a new word: either
			// the previous rune was lower, or the next rune is lower (end of
			// an acronym run).
			if i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1]) ||
				(i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				sb.WriteByte('_')
			}
			sb.WriteRune(unicode.ToLower(r))
		} else {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// indexOf resolves subscript access on lists, maps, strings, and reflected
// SDK slices.
func indexOf(v, idx any) (any, error) {
	switch val := v.(type) {
	case []any:
		i, ok := idx.(int64)
		if !ok {
			return nil, fmt.Errorf("list index is %s, want integer", typeName(idx))
		}
		if i < 0 || i >= int64(len(val)) {
			return nil, fmt.Errorf("list index %d out of range (length %d)", i, len(val))
		}
		return val[i], nil
	case map[string]any:
		key, ok := idx.(string)
		if !ok {
			return nil, fmt.Errorf("map key is %s, want string", typeName(idx))
		}
		out, ok := val[key]
		if !ok {
			return nil, fmt.Errorf("map has no key %q", key)
		}
		return out, nil
	case string:
		i, ok := idx.(int64)
		if !ok {
			return nil, fmt.Errorf("string index is %s, want integer", typeName(idx))
		}
		runes := []rune(val)
		if i < 0 || i >= int64(len(runes)) {
			return nil, fmt.Errorf("string index %d out of range (length %d)", i, len(runes))
		}
		return string(runes[i]), nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr && !rv.IsNil() {
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		i, ok := idx.(int64)
		if !ok {
			return nil, fmt.Errorf("list index is %s, want integer", typeName(idx))
		}
		if i < 0 || i >= int64(rv.Len()) {
			return nil, fmt.Errorf("list index %d out of range (length %d)", i, rv.Len())
		}
		return rv.Index(int(i)).Interface(), nil
	}
	return nil, fmt.Errorf("%s is not indexable", typeName(v))
}

// lengthOf backs the len builtin.
func lengthOf(v any) (int64, error) {
	switch val := v.(type) {
	case string:
		return int64(len([]rune(val))), nil
	case []any:
		return int64(len(val)), nil
	case map[string]any:
		return int64(len(val)), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr && !rv.IsNil() {
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array || rv.Kind() == reflect.Map {
		return int64(rv.Len()), nil
	}
	return 0, fmt.Errorf("%s has no length", typeName(v))
}
