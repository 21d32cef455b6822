package sandbox

import (
	"fmt"

	"github.com/syntrobox/ociq/internal/querylang"
)

func (in *interp) fail(n querylang.Node, format string, args ...any) error {
	return &RuntimeError{Pos: n.Position(), Msg: fmt.Sprintf(format, args...)}
}

func (in *interp) execStmt(stmt querylang.Node) error {
	if err := in.step(); err != nil {
		return err
	}

	switch s := stmt.(type) {
	case *querylang.ImportStmt:
		// Modules are pre-bound by the session; import only verifies the
		// binding exists so snippets read naturally.
		if _, ok := in.env.lookup(s.Module); !ok {
			return in.fail(s, "module %q is not bound in this session", s.Module)
		}
		return nil

	case *querylang.AssignStmt:
		value, err := in.evalExpr(s.Value)
		if err != nil {
			return err
		}
		in.env.set(s.Name, value)
		return nil

	case *querylang.IfStmt:
		cond, err := in.evalExpr(s.Cond)
		if err != nil {
			return err
		}
		b, ok := cond.(bool)
		if !ok {
			return in.fail(s, "if condition is %s, want boolean", typeName(cond))
		}
		if b {
			return in.execBlock(s.Then)
		}
		return in.execBlock(s.Else)

	case *querylang.ForStmt:
		iter, err := in.evalExpr(s.Iter)
		if err != nil {
			return err
		}
		items, err := iterate(iter)
		if err != nil {
			return in.fail(s, "%s", err)
		}
		for _, item := range items {
			if err := in.step(); err != nil {
				return err
			}
			in.env.set(s.Var, item)
			if err := in.execBlock(s.Body); err != nil {
				return err
			}
		}
		return nil

	case *querylang.WhileStmt:
		for {
			if err := in.step(); err != nil {
				return err
			}
			cond, err := in.evalExpr(s.Cond)
			if err != nil {
				return err
			}
			b, ok := cond.(bool)
			if !ok {
				return in.fail(s, "while condition is %s, want boolean", typeName(cond))
			}
			if !b {
				return nil
			}
			if err := in.execBlock(s.Body); err != nil {
				return err
			}
		}

	case *querylang.ExprStmt:
		value, err := in.evalExpr(s.X)
		if err != nil {
			return err
		}
		in.lastValue = value
		in.hasLastValue = true
		return nil
	}
	return in.fail(stmt, "unsupported statement kind %q", stmt.Kind())
}

func (in *interp) execBlock(stmts []querylang.Node) error {
	for _, stmt := range stmts {
		if err := in.execStmt(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (in *interp) evalExpr(expr querylang.Node) (any, error) {
	if err := in.step(); err != nil {
		return nil, err
	}

	switch e := expr.(type) {
	case *querylang.Literal:
		return e.Value, nil

	case *querylang.Ident:
		v, ok := in.env.lookup(e.Name)
		if !ok {
			return nil, in.fail(e, "name %q is not defined", e.Name)
		}
		return v, nil

	case *querylang.ListLit:
		list := make([]any, 0, len(e.Elems))
		for _, elem := range e.Elems {
			v, err := in.evalExpr(elem)
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		return list, nil

	case *querylang.MapLit:
		m := make(map[string]any, len(e.Keys))
		for i, key := range e.Keys {
			v, err := in.evalExpr(e.Values[i])
			if err != nil {
				return nil, err
			}
			m[key] = v
		}
		return m, nil

	case *querylang.AttrExpr:
		recv, err := in.evalExpr(e.X)
		if err != nil {
			return nil, err
		}
		v, err := attrOf(recv, e.Name)
		if err != nil {
			return nil, in.fail(e, "%s", err)
		}
		return v, nil

	case *querylang.IndexExpr:
		recv, err := in.evalExpr(e.X)
		if err != nil {
			return nil, err
		}
		idx, err := in.evalExpr(e.Index)
		if err != nil {
			return nil, err
		}
		v, err := indexOf(recv, idx)
		if err != nil {
			return nil, in.fail(e, "%s", err)
		}
		return v, nil

	case *querylang.CallExpr:
		return in.evalCall(e)

	case *querylang.UnaryExpr:
		x, err := in.evalExpr(e.X)
		if err != nil {
			return nil, err
		}
		switch e.Op {
		case "!":
			b, ok := x.(bool)
			if !ok {
				return nil, in.fail(e, "operator ! applied to %s, want boolean", typeName(x))
			}
			return !b, nil
		case "-":
			switch n := x.(type) {
			case int64:
				return -n, nil
			case float64:
				return -n, nil
			}
			return nil, in.fail(e, "operator - applied to %s, want number", typeName(x))
		}
		return nil, in.fail(e, "unsupported unary operator %q", e.Op)

	case *querylang.BinaryExpr:
		return in.evalBinary(e)
	}
	return nil, in.fail(expr, "unsupported expression kind %q", expr.Kind())
}

func (in *interp) evalCall(call *querylang.CallExpr) (any, error) {
	fn, err := in.evalExpr(call.Fn)
	if err != nil {
		return nil, err
	}

	args := make([]any, 0, len(call.Args))
	for _, a := range call.Args {
		v, err := in.evalExpr(a)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	var kwargs map[string]any
	if len(call.KwNames) > 0 {
		kwargs = make(map[string]any, len(call.KwNames))
		for i, name := range call.KwNames {
			v, err := in.evalExpr(call.KwValues[i])
			if err != nil {
				return nil, err
			}
			kwargs[name] = v
		}
	}

	callable, ok := fn.(Callable)
	if !ok {
		return nil, in.fail(call, "%s is not callable", typeName(fn))
	}
	out, err := callable.Call(in.ctx, args, kwargs)
	if err != nil {
		// Interrupt during an API call surfaces as a cancelled context; keep
		// it distinguishable from an ordinary API failure.
		if in.interrupt.Load() || in.ctx.Err() != nil {
			return nil, errInterrupted
		}
		return nil, in.fail(call, "call failed: %s", err)
	}
	return out, nil
}

func (in *interp) evalBinary(e *querylang.BinaryExpr) (any, error) {
	// Short-circuit logical operators evaluate the right side lazily.
	if e.Op == "&&" || e.Op == "||" {
		left, err := in.evalExpr(e.L)
		if err != nil {
			return nil, err
		}
		lb, ok := left.(bool)
		if !ok {
			return nil, in.fail(e, "operator %s applied to %s, want boolean", e.Op, typeName(left))
		}
		if (e.Op == "&&" && !lb) || (e.Op == "||" && lb) {
			return lb, nil
		}
		right, err := in.evalExpr(e.R)
		if err != nil {
			return nil, err
		}
		rb, ok := right.(bool)
		if !ok {
			return nil, in.fail(e, "operator %s applied to %s, want boolean", e.Op, typeName(right))
		}
		return rb, nil
	}

	left, err := in.evalExpr(e.L)
	if err != nil {
		return nil, err
	}
	right, err := in.evalExpr(e.R)
	if err != nil {
		return nil, err
	}

	switch e.Op {
	case "==":
		return looseEqual(left, right), nil
	case "!=":
		return !looseEqual(left, right), nil
	case "<", "<=", ">", ">=":
		cmp, err := compareValues(left, right)
		if err != nil {
			return nil, in.fail(e, "%s", err)
		}
		switch e.Op {
		case "<":
			return cmp < 0, nil
		case "<=":
			return cmp <= 0, nil
		case ">":
			return cmp > 0, nil
		default:
			return cmp >= 0, nil
		}
	case "+":
		return in.evalAdd(e, left, right)
	case "-", "*", "/", "%":
		return in.evalArith(e, left, right)
	}
	return nil, in.fail(e, "unsupported operator %q", e.Op)
}

func (in *interp) evalAdd(e *querylang.BinaryExpr, left, right any) (any, error) {
	if ls, ok := left.(string); ok {
		rs, ok := right.(string)
		if !ok {
			return nil, in.fail(e, "cannot add %s to string", typeName(right))
		}
		return ls + rs, nil
	}
	if ll, ok := left.([]any); ok {
		rl, ok := right.([]any)
		if !ok {
			return nil, in.fail(e, "cannot add %s to list", typeName(right))
		}
		out := make([]any, 0, len(ll)+len(rl))
		out = append(out, ll...)
		out = append(out, rl...)
		return out, nil
	}
	return in.evalArith(e, left, right)
}

func (in *interp) evalArith(e *querylang.BinaryExpr, left, right any) (any, error) {
	li, lOK := left.(int64)
	ri, rOK := right.(int64)
	if lOK && rOK {
		switch e.Op {
		case "+":
			return li + ri, nil
		case "-":
			return li - ri, nil
		case "*":
			return li * ri, nil
		case "/":
			if ri == 0 {
				return nil, in.fail(e, "division by zero")
			}
			return li / ri, nil
		case "%":
			if ri == 0 {
				return nil, in.fail(e, "division by zero")
			}
			return li % ri, nil
		}
	}

	lf, lOK := asFloat(left)
	rf, rOK := asFloat(right)
	if !lOK || !rOK {
		return nil, in.fail(e, "operator %s applied to %s and %s, want numbers",
			e.Op, typeName(left), typeName(right))
	}
	switch e.Op {
	case "+":
		return lf + rf, nil
	case "-":
		return lf - rf, nil
	case "*":
		return lf * rf, nil
	case "/":
		if rf == 0 {
			return nil, in.fail(e, "division by zero")
		}
		return lf / rf, nil
	}
	return nil, in.fail(e, "operator %s not defined for floats", e.Op)
}
