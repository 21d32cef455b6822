package querylang

import (
	"errors"
	"testing"
)

func mustParse(t *testing.T, src string) *Program {
	t.Helper()
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", src, err)
	}
	return prog
}

func TestParse_AssignmentAndCall(t *testing.T) {
	prog := mustParse(t, `
import oci
client = oci.identity.IdentityClient(config)
resp = client.list_compartments(compartment_id: tenancy, limit: 10)
result = resp.items
`)
	if got, want := len(prog.Stmts), 4; got != want {
		t.Fatalf("statement count = %d, want %d", got, want)
	}

	imp, ok := prog.Stmts[0].(*ImportStmt)
	if !ok || imp.Module != "oci" {
		t.Errorf("first statement = %#v, want import oci", prog.Stmts[0])
	}

	assign, ok := prog.Stmts[2].(*AssignStmt)
	if !ok || assign.Name != "resp" {
		t.Fatalf("third statement = %#v, want assignment to resp", prog.Stmts[2])
	}
	call, ok := assign.Value.(*CallExpr)
	if !ok {
		t.Fatalf("assignment value = %#v, want call", assign.Value)
	}
	if len(call.KwNames) != 2 || call.KwNames[0] != "compartment_id" || call.KwNames[1] != "limit" {
		t.Errorf("keyword names = %v, want [compartment_id limit]", call.KwNames)
	}
	attr, ok := call.Fn.(*AttrExpr)
	if !ok || attr.Name != "list_compartments" {
		t.Errorf("call target = %#v, want attribute list_compartments", call.Fn)
	}
}

func TestParse_ControlFlow(t *testing.T) {
	prog := mustParse(t, `
names = []
for inst in instances {
	if inst.state == "RUNNING" {
		names = names + [inst.display_name]
	} else if inst.state == "STOPPED" {
		names = names
	}
}
while false { x = 1 }
result = names
`)
	if got, want := len(prog.Stmts), 4; got != want {
		t.Fatalf("statement count = %d, want %d", got, want)
	}
	loop, ok := prog.Stmts[1].(*ForStmt)
	if !ok || loop.Var != "inst" {
		t.Fatalf("second statement = %#v, want for loop over inst", prog.Stmts[1])
	}
	cond, ok := loop.Body[0].(*IfStmt)
	if !ok {
		t.Fatalf("loop body = %#v, want if statement", loop.Body[0])
	}
	if len(cond.Else) != 1 {
		t.Fatalf("else chain length = %d, want 1", len(cond.Else))
	}
	if _, ok := cond.Else[0].(*IfStmt); !ok {
		t.Errorf("else branch = %#v, want nested if", cond.Else[0])
	}
}

func TestParse_Precedence(t *testing.T) {
	prog := mustParse(t, `result = 1 + 2 * 3 == 7 && !false`)
	assign := prog.Stmts[0].(*AssignStmt)
	and, ok := assign.Value.(*BinaryExpr)
	if !ok || and.Op != "&&" {
		t.Fatalf("top operator = %#v, want &&", assign.Value)
	}
	eq, ok := and.L.(*BinaryExpr)
	if !ok || eq.Op != "==" {
		t.Fatalf("left of && = %#v, want ==", and.L)
	}
	sum, ok := eq.L.(*BinaryExpr)
	if !ok || sum.Op != "+" {
		t.Fatalf("left of == = %#v, want +", eq.L)
	}
	prod, ok := sum.R.(*BinaryExpr)
	if !ok || prod.Op != "*" {
		t.Fatalf("right of + = %#v, want *", sum.R)
	}
}

func TestParse_Literals(t *testing.T) {
	prog := mustParse(t, `result = {"name": "web-1", "count": 3, "ratio": 0.5, "up": true, "gone": null, "tags": ["a", "b"]}`)
	m := prog.Stmts[0].(*AssignStmt).Value.(*MapLit)
	if len(m.Keys) != 6 {
		t.Fatalf("map keys = %v, want 6 entries", m.Keys)
	}
	if v := m.Values[1].(*Literal).Value; v != int64(3) {
		t.Errorf("count literal = %v (%T), want int64 3", v, v)
	}
	if v := m.Values[2].(*Literal).Value; v != 0.5 {
		t.Errorf("ratio literal = %v, want 0.5", v)
	}
	if v := m.Values[4].(*Literal).Value; v != nil {
		t.Errorf("null literal = %v, want nil", v)
	}
}

func TestParse_IndexAndAttrChain(t *testing.T) {
	prog := mustParse(t, `result = resp.items[0].defined_tags["env"]`)
	idx, ok := prog.Stmts[0].(*AssignStmt).Value.(*IndexExpr)
	if !ok {
		t.Fatalf("value = %#v, want index expression", prog.Stmts[0].(*AssignStmt).Value)
	}
	attr, ok := idx.X.(*AttrExpr)
	if !ok || attr.Name != "defined_tags" {
		t.Errorf("index target = %#v, want attribute defined_tags", idx.X)
	}
}

func TestParse_SyntaxErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"mismatched bracket", `result = [1, 2`},
		{"unterminated string", `result = "abc`},
		{"missing block", `if x > 1 result = 2`},
		{"assign to call", `f() = 3`},
		{"bad escape", `result = "a\q"`},
		{"lone ampersand", `result = a & b`},
		{"keyword as name", `import = 3`},
		{"positional after keyword", `f(a: 1, 2)`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.src)
			if err == nil {
				t.Fatalf("Parse(%q) succeeded, want syntax error", tc.src)
			}
			var syn *SyntaxError
			if !errors.As(err, &syn) {
				t.Errorf("error type = %T, want *SyntaxError", err)
			}
		})
	}
}

func TestParse_Comments(t *testing.T) {
	prog := mustParse(t, `
# list everything
result = 42 # trailing
`)
	if len(prog.Stmts) != 1 {
		t.Fatalf("statement count = %d, want 1", len(prog.Stmts))
	}
}

func TestParse_PositionReported(t *testing.T) {
	_, err := Parse("result = 1\nbad = [")
	var syn *SyntaxError
	if !errors.As(err, &syn) {
		t.Fatalf("error = %v, want *SyntaxError", err)
	}
	if syn.Pos.Line != 2 {
		t.Errorf("error line = %d, want 2", syn.Pos.Line)
	}
}

func TestWalkProgram_VisitsEveryNode(t *testing.T) {
	prog := mustParse(t, `
import oci
x = oci.core.ComputeClient(config)
result = x.list_instances(compartment_id: "ocid1.compartment.oc1..a")
`)
	counts := map[NodeKind]int{}
	WalkProgram(prog, func(n Node) bool {
		counts[n.Kind()]++
		return true
	})
	if counts[KindImport] != 1 {
		t.Errorf("import nodes = %d, want 1", counts[KindImport])
	}
	if counts[KindCall] != 2 {
		t.Errorf("call nodes = %d, want 2", counts[KindCall])
	}
	if counts[KindAttr] != 3 {
		t.Errorf("attr nodes = %d, want 3", counts[KindAttr])
	}
}
