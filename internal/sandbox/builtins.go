package sandbox

import (
	"context"
	"fmt"
)

// BuiltinFunc adapts a plain function into a Callable binding.
type BuiltinFunc func(ctx context.Context, args []any, kwargs map[string]any) (any, error)

// Call implements Callable.
func (f BuiltinFunc) Call(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
	return f(ctx, args, kwargs)
}

// Builtins returns the safe builtin functions merged into every run's
// namespace. The capability whitelist independently gates which of these a
// snippet may actually call.
func Builtins() map[string]any {
	return map[string]any{
		"len":    BuiltinFunc(builtinLen),
		"str":    BuiltinFunc(builtinStr),
		"range":  BuiltinFunc(builtinRange),
		"append": BuiltinFunc(builtinAppend),
	}
}

func wantArgs(name string, args []any, kwargs map[string]any, n int) error {
	if len(kwargs) > 0 {
		return fmt.Errorf("%s takes no keyword arguments", name)
	}
	if len(args) != n {
		return fmt.Errorf("%s takes %d argument(s), got %d", name, n, len(args))
	}
	return nil
}

func builtinLen(_ context.Context, args []any, kwargs map[string]any) (any, error) {
	if err := wantArgs("len", args, kwargs, 1); err != nil {
		return nil, err
	}
	return lengthOf(args[0])
}

func builtinStr(_ context.Context, args []any, kwargs map[string]any) (any, error) {
	if err := wantArgs("str", args, kwargs, 1); err != nil {
		return nil, err
	}
	switch v := args[0].(type) {
	case nil:
		return "null", nil
	case string:
		return v, nil
	default:
		return fmt.Sprintf("%v", v), nil
	}
}

// builtinRange is range(stop) or range(start, stop): a bounded integer
// sequence for counted loops.
func builtinRange(_ context.Context, args []any, kwargs map[string]any) (any, error) {
	if len(kwargs) > 0 {
		return nil, fmt.Errorf("range takes no keyword arguments")
	}
	var start, stop int64
	switch len(args) {
	case 1:
		s, ok := args[0].(int64)
		if !ok {
			return nil, fmt.Errorf("range bound is %s, want integer", typeName(args[0]))
		}
		stop = s
	case 2:
		s1, ok1 := args[0].(int64)
		s2, ok2 := args[1].(int64)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("range bounds must be integers")
		}
		start, stop = s1, s2
	default:
		return nil, fmt.Errorf("range takes 1 or 2 arguments, got %d", len(args))
	}
	if stop < start {
		return []any{}, nil
	}
	const maxRange = 1_000_000
	if stop-start > maxRange {
		return nil, fmt.Errorf("range of %d exceeds the %d element limit", stop-start, int64(maxRange))
	}
	out := make([]any, 0, stop-start)
	for i := start; i < stop; i++ {
		out = append(out, i)
	}
	return out, nil
}

func builtinAppend(_ context.Context, args []any, kwargs map[string]any) (any, error) {
	if err := wantArgs("append", args, kwargs, 2); err != nil {
		return nil, err
	}
	list, ok := args[0].([]any)
	if !ok {
		return nil, fmt.Errorf("append target is %s, want list", typeName(args[0]))
	}
	out := make([]any, 0, len(list)+1)
	out = append(out, list...)
	out = append(out, args[1])
	return out, nil
}
