package session

import (
	"fmt"
	"sort"
	"strings"
)

// kwargs wraps a call's keyword arguments with typed accessors. Every
// operation starts by declaring its accepted names via allow, so a typo'd
// argument fails with the valid set instead of being silently dropped.
type kwargs map[string]any

func (kw kwargs) allow(names ...string) error {
	allowed := make(map[string]bool, len(names))
	for _, n := range names {
		allowed[n] = true
	}
	var unknown []string
	for k := range kw {
		if !allowed[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("unknown argument(s) %s (accepted: %s)",
			strings.Join(unknown, ", "), strings.Join(names, ", "))
	}
	return nil
}

func (kw kwargs) requireString(name string) (string, error) {
	v, ok := kw[name]
	if !ok {
		return "", fmt.Errorf("missing required argument %s", name)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("argument %s must be a non-empty string", name)
	}
	return s, nil
}

func (kw kwargs) optionalString(name string) (string, bool, error) {
	v, ok := kw[name]
	if !ok {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", false, fmt.Errorf("argument %s must be a string", name)
	}
	return s, true, nil
}

func (kw kwargs) optionalInt(name string) (int, bool, error) {
	v, ok := kw[name]
	if !ok {
		return 0, false, nil
	}
	n, ok := v.(int64)
	if !ok {
		return 0, false, fmt.Errorf("argument %s must be an integer", name)
	}
	return int(n), true, nil
}

func (kw kwargs) optionalBool(name string) (bool, bool, error) {
	v, ok := kw[name]
	if !ok {
		return false, false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, false, fmt.Errorf("argument %s must be a boolean", name)
	}
	return b, true, nil
}
