// Package validate decides, before anything runs, whether a parsed snippet
// stays inside the configured capability whitelist. Validation is purely
// static: it walks the syntax tree, never executes code, and is deterministic
// for a given snippet and whitelist version.
package validate

import (
	"fmt"
	"strings"

	"github.com/syntrobox/ociq/internal/capability"
	"github.com/syntrobox/ociq/internal/querylang"
)

// Violation describes one disallowed construct found in a snippet.
type Violation struct {
	NodeKind querylang.NodeKind `json:"node_kind"`
	Line     int                `json:"line"`
	Col      int                `json:"col"`
	Reason   string             `json:"reason"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%d:%d: %s (%s)", v.Line, v.Col, v.Reason, v.NodeKind)
}

// Verdict is the admit/deny decision for one snippet.
type Verdict struct {
	Admitted         bool        `json:"admitted"`
	WhitelistVersion string      `json:"whitelist_version"`
	Violations       []Violation `json:"violations,omitempty"`

	// Program is the parsed snippet, retained so an admitted snippet is
	// executed from exactly the tree that was validated.
	Program *querylang.Program `json:"-"`
}

// Summary joins all violation descriptions for error reporting.
func (v *Verdict) Summary() string {
	parts := make([]string, len(v.Violations))
	for i, viol := range v.Violations {
		parts[i] = viol.String()
	}
	return strings.Join(parts, "; ")
}

// Validator checks snippets against a fixed whitelist.
type Validator struct {
	wl *capability.Whitelist
}

// New creates a Validator bound to the given whitelist.
func New(wl *capability.Whitelist) *Validator {
	return &Validator{wl: wl}
}

// Check parses the snippet and walks every node against the whitelist.
// A snippet that cannot be parsed returns a *querylang.SyntaxError; a snippet
// that parses but uses forbidden capabilities returns an un-admitted Verdict
// listing every violation in source order.
func (v *Validator) Check(snippet string) (*Verdict, error) {
	prog, err := querylang.Parse(snippet)
	if err != nil {
		return nil, err
	}

	w := &walker{wl: v.wl, assigned: map[string]bool{}}
	// First pass: collect every locally-assigned name so a later rebinding of
	// a module name is caught regardless of statement order.
	querylang.WalkProgram(prog, func(n querylang.Node) bool {
		switch s := n.(type) {
		case *querylang.AssignStmt:
			w.assigned[s.Name] = true
		case *querylang.ForStmt:
			w.assigned[s.Var] = true
		}
		return true
	})
	querylang.WalkProgram(prog, w.visit)

	return &Verdict{
		Admitted:         len(w.violations) == 0,
		WhitelistVersion: v.wl.Version(),
		Violations:       w.violations,
		Program:          prog,
	}, nil
}

type walker struct {
	wl         *capability.Whitelist
	assigned   map[string]bool
	violations []Violation
}

func (w *walker) deny(n querylang.Node, format string, args ...any) {
	pos := n.Position()
	w.violations = append(w.violations, Violation{
		NodeKind: n.Kind(),
		Line:     pos.Line,
		Col:      pos.Col,
		Reason:   fmt.Sprintf(format, args...),
	})
}

func (w *walker) visit(n querylang.Node) bool {
	if w.wl.KindForbidden(n.Kind()) {
		w.deny(n, "syntax construct %q is forbidden by the whitelist", n.Kind())
		return true
	}

	switch node := n.(type) {
	case *querylang.ImportStmt:
		if !w.wl.ModuleAllowed(node.Module) {
			w.deny(node, "module %q is not in the allowed module list", node.Module)
		}

	case *querylang.AssignStmt:
		if w.wl.ModuleAllowed(node.Name) {
			w.deny(node, "cannot rebind module name %q", node.Name)
		}
		if strings.HasPrefix(node.Name, "_") {
			w.deny(node, "names beginning with underscore are reserved")
		}

	case *querylang.ForStmt:
		if w.wl.ModuleAllowed(node.Var) {
			w.deny(node, "cannot rebind module name %q", node.Var)
		}

	case *querylang.AttrExpr:
		if strings.HasPrefix(node.Name, "_") {
			w.deny(node, "attribute %q: introspective access is forbidden", node.Name)
		}

	case *querylang.CallExpr:
		w.checkCall(node)
	}
	return true
}

func (w *walker) checkCall(call *querylang.CallExpr) {
	switch fn := call.Fn.(type) {
	case *querylang.Ident:
		// Bare call: only whitelisted builtins. eval/open/exec and friends
		// are denied here by default, not by a blacklist.
		if !w.wl.CallAllowed(capability.ReceiverBuiltin, fn.Name) {
			w.deny(call, "call to %q is not a permitted builtin", fn.Name)
		}

	case *querylang.AttrExpr:
		recv := capability.ReceiverObject
		if root, ok := chainRoot(fn.X); ok && w.wl.ModuleAllowed(root) && !w.assigned[root] {
			recv = capability.ReceiverModule
		}
		if !w.wl.CallAllowed(recv, fn.Name) {
			w.deny(call, "call %q on %s receiver does not match any allowed pattern", fn.Name, recv)
		}

	default:
		w.deny(call, "call target of kind %q is not allowed", call.Fn.Kind())
	}
}

// chainRoot resolves the base identifier of an attribute chain, e.g. the
// `oci` in `oci.identity.IdentityClient`. Returns false when the chain is
// rooted in a call result, index, or literal.
func chainRoot(n querylang.Node) (string, bool) {
	for {
		switch v := n.(type) {
		case *querylang.Ident:
			return v.Name, true
		case *querylang.AttrExpr:
			n = v.X
		default:
			return "", false
		}
	}
}
