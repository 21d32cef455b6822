package sandbox

// env is a single flat namespace for one run. The grammar has no nested
// function scopes, so assignments and loop variables all land here. Bindings
// handed in by the caller are copied, never aliased, so a run cannot mutate
// the shared binding set.
type env struct {
	vars map[string]any
}

func newEnv(bindings map[string]any) *env {
	vars := make(map[string]any, len(bindings)+8)
	for k, v := range bindings {
		vars[k] = v
	}
	return &env{vars: vars}
}

func (e *env) lookup(name string) (any, bool) {
	v, ok := e.vars[name]
	return v, ok
}

func (e *env) set(name string, value any) {
	e.vars[name] = value
}
