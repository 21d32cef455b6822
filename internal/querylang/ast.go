// Package querylang implements the closed query grammar that callers use to
// express OCI resource queries. The language is deliberately small: literals,
// local assignment, attribute access, calls, and bounded control flow. It has
// no facility for dynamic evaluation, filesystem access, or process control;
// anything outside the grammar fails to parse, and everything inside it is
// still subject to capability validation before execution.
package querylang

// NodeKind identifies an AST node type. Capability configuration refers to
// kinds by these string values.
type NodeKind string

const (
	KindImport   NodeKind = "import"
	KindAssign   NodeKind = "assign"
	KindIf       NodeKind = "if"
	KindFor      NodeKind = "for"
	KindWhile    NodeKind = "while"
	KindExprStmt NodeKind = "expr_stmt"
	KindIdent    NodeKind = "ident"
	KindLiteral  NodeKind = "literal"
	KindList     NodeKind = "list"
	KindMap      NodeKind = "map"
	KindAttr     NodeKind = "attr"
	KindIndex    NodeKind = "index"
	KindCall     NodeKind = "call"
	KindUnary    NodeKind = "unary"
	KindBinary   NodeKind = "binary"
)

// Pos is a 1-based source position.
type Pos struct {
	Line int
	Col  int
}

// Node is implemented by every AST node.
type Node interface {
	Kind() NodeKind
	Position() Pos
}

// Program is a parsed snippet: an ordered list of statements.
type Program struct {
	Stmts []Node
}

// ImportStmt is `import <module>`.
type ImportStmt struct {
	P      Pos
	Module string
}

// AssignStmt binds a local name: `name = expr`. Only simple names are valid
// assignment targets; the grammar has no way to write through an attribute
// or index, so every binding is execution-local.
type AssignStmt struct {
	P     Pos
	Name  string
	Value Node
}

// IfStmt is `if cond { ... } else { ... }`. Else holds either a block or a
// single nested IfStmt for `else if` chains.
type IfStmt struct {
	P    Pos
	Cond Node
	Then []Node
	Else []Node
}

// ForStmt iterates a bound sequence: `for x in expr { ... }`.
type ForStmt struct {
	P    Pos
	Var  string
	Iter Node
	Body []Node
}

// WhileStmt is `while cond { ... }`. Unbounded by construction; the executor's
// time and step budgets bound it at runtime.
type WhileStmt struct {
	P    Pos
	Cond Node
	Body []Node
}

// ExprStmt is a bare expression in statement position.
type ExprStmt struct {
	P Pos
	X Node
}

// Ident references a bound name.
type Ident struct {
	P    Pos
	Name string
}

// Literal holds a string, int64, float64, bool, or nil value.
type Literal struct {
	P     Pos
	Value any
}

// ListLit is `[a, b, c]`.
type ListLit struct {
	P     Pos
	Elems []Node
}

// MapLit is `{"k": v, ...}`. Keys are string literals only.
type MapLit struct {
	P      Pos
	Keys   []string
	Values []Node
}

// AttrExpr is `x.name`.
type AttrExpr struct {
	P    Pos
	X    Node
	Name string
}

// IndexExpr is `x[i]`.
type IndexExpr struct {
	P     Pos
	X     Node
	Index Node
}

// CallExpr is `fn(a, b, name: c)`. Positional arguments precede keyword
// arguments; KwNames and KwValues are parallel.
type CallExpr struct {
	P        Pos
	Fn       Node
	Args     []Node
	KwNames  []string
	KwValues []Node
}

// UnaryExpr is `-x` or `!x`.
type UnaryExpr struct {
	P  Pos
	Op string
	X  Node
}

// BinaryExpr is `l op r` for arithmetic, comparison, and logical operators.
type BinaryExpr struct {
	P Pos
	L Node
	R Node

	Op string
}

func (s *ImportStmt) Kind() NodeKind { return KindImport }
func (s *AssignStmt) Kind() NodeKind { return KindAssign }
func (s *IfStmt) Kind() NodeKind     { return KindIf }
func (s *ForStmt) Kind() NodeKind    { return KindFor }
func (s *WhileStmt) Kind() NodeKind  { return KindWhile }
func (s *ExprStmt) Kind() NodeKind   { return KindExprStmt }
func (e *Ident) Kind() NodeKind      { return KindIdent }
func (e *Literal) Kind() NodeKind    { return KindLiteral }
func (e *ListLit) Kind() NodeKind    { return KindList }
func (e *MapLit) Kind() NodeKind     { return KindMap }
func (e *AttrExpr) Kind() NodeKind   { return KindAttr }
func (e *IndexExpr) Kind() NodeKind  { return KindIndex }
func (e *CallExpr) Kind() NodeKind   { return KindCall }
func (e *UnaryExpr) Kind() NodeKind  { return KindUnary }
func (e *BinaryExpr) Kind() NodeKind { return KindBinary }

func (s *ImportStmt) Position() Pos { return s.P }
func (s *AssignStmt) Position() Pos { return s.P }
func (s *IfStmt) Position() Pos     { return s.P }
func (s *ForStmt) Position() Pos    { return s.P }
func (s *WhileStmt) Position() Pos  { return s.P }
func (s *ExprStmt) Position() Pos   { return s.P }
func (e *Ident) Position() Pos      { return e.P }
func (e *Literal) Position() Pos    { return e.P }
func (e *ListLit) Position() Pos    { return e.P }
func (e *MapLit) Position() Pos     { return e.P }
func (e *AttrExpr) Position() Pos   { return e.P }
func (e *IndexExpr) Position() Pos  { return e.P }
func (e *CallExpr) Position() Pos   { return e.P }
func (e *UnaryExpr) Position() Pos  { return e.P }
func (e *BinaryExpr) Position() Pos { return e.P }

// Walk calls fn for n and every node beneath it in source order. If fn
// returns false the walk skips n's children.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch v := n.(type) {
	case *AssignStmt:
		Walk(v.Value, fn)
	case *IfStmt:
		Walk(v.Cond, fn)
		walkAll(v.Then, fn)
		walkAll(v.Else, fn)
	case *ForStmt:
		Walk(v.Iter, fn)
		walkAll(v.Body, fn)
	case *WhileStmt:
		Walk(v.Cond, fn)
		walkAll(v.Body, fn)
	case *ExprStmt:
		Walk(v.X, fn)
	case *ListLit:
		walkAll(v.Elems, fn)
	case *MapLit:
		walkAll(v.Values, fn)
	case *AttrExpr:
		Walk(v.X, fn)
	case *IndexExpr:
		Walk(v.X, fn)
		Walk(v.Index, fn)
	case *CallExpr:
		Walk(v.Fn, fn)
		walkAll(v.Args, fn)
		walkAll(v.KwValues, fn)
	case *UnaryExpr:
		Walk(v.X, fn)
	case *BinaryExpr:
		Walk(v.L, fn)
		Walk(v.R, fn)
	}
}

// WalkProgram walks every statement of the program in order.
func WalkProgram(p *Program, fn func(Node) bool) {
	walkAll(p.Stmts, fn)
}

func walkAll(nodes []Node, fn func(Node) bool) {
	for _, n := range nodes {
		Walk(n, fn)
	}
}
