package lower

import (
	"strings"
	"testing"

	"mx/internal/ast"
	"mx/internal/comptime"
	"mx/internal/diag"
	"mx/internal/mxir"
	"mx/internal/symbols"
	"mx/internal/testkit"
	"mx/internal/types"
)

func newLowerer(k *testkit.Kit, opts Options) (*Lowerer, *diag.Bag) {
	bag := diag.NewBag(100)
	return New(k.B, k.File, nil, opts, diag.BagReporter{Bag: bag}), bag
}

func dump(t *testing.T, m *mxir.Module) string {
	t.Helper()
	var sb strings.Builder
	if err := mxir.Dump(&sb, m); err != nil {
		t.Fatalf("dump: %v", err)
	}
	return sb.String()
}

func TestFoldsNestedArithmetic(t *testing.T) {
	k := testkit.New()
	l, bag := newLowerer(k, Options{})
	n := l.LowerExpr(k.Bin("+", k.I(1), k.Bin("*", k.I(2), k.I(3))))
	c, ok := n.(*mxir.ConstInt)
	if !ok {
		t.Fatalf("expected ConstInt, got %s", mxir.Format(n, l.Module().Types))
	}
	if c.Value.Int64() != 7 {
		t.Fatalf("1 + 2 * 3 = %s", c.Value)
	}
	if c.Typ != l.Module().Types.Builtins().UntypedInt {
		t.Fatalf("folded literal must stay untyped")
	}
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
}

func TestFoldsEveryOpcode(t *testing.T) {
	tests := []struct {
		op   string
		want string
	}{
		{"+", "ConstInt(10: untyped int)"},
		{"-", "ConstInt(4: untyped int)"},
		{"*", "ConstInt(21: untyped int)"},
		{"/", "ConstInt(2: untyped int)"},
		{"%", "ConstInt(1: untyped int)"},
		{"&", "ConstInt(3: untyped int)"},
		{"|", "ConstInt(7: untyped int)"},
		{"^", "ConstInt(4: untyped int)"},
		{"<<", "ConstInt(56: untyped int)"},
		{">>", "ConstInt(0: untyped int)"},
		{"==", "ConstBool(false)"},
		{"!=", "ConstBool(true)"},
		{"<", "ConstBool(false)"},
		{"<=", "ConstBool(false)"},
		{">", "ConstBool(true)"},
		{">=", "ConstBool(true)"},
	}
	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			k := testkit.New()
			l, bag := newLowerer(k, Options{})
			n := l.LowerExpr(k.Bin(tt.op, k.I(7), k.I(3)))
			if got := mxir.Format(n, l.Module().Types); got != tt.want {
				t.Fatalf("7 %s 3: got %s, want %s", tt.op, got, tt.want)
			}
			if bag.Len() != 0 {
				t.Fatalf("unexpected diagnostics: %v", bag.Items())
			}
		})
	}
}

func TestDivisionByZeroDoesNotFold(t *testing.T) {
	for _, op := range []string{"/", "%"} {
		k := testkit.New()
		l, bag := newLowerer(k, Options{})
		n := l.LowerExpr(k.Bin(op, k.I(1), k.I(0)))
		if _, ok := n.(*mxir.ErrorMarker); !ok {
			t.Fatalf("1 %s 0 folded into %s", op, mxir.Format(n, l.Module().Types))
		}
		if got := bag.Count(diag.ComptimeDivisionByZero); got != 1 {
			t.Fatalf("1 %s 0: %d division diagnostics", op, got)
		}
	}

	// делимое известно только во время выполнения
	for _, op := range []string{"/", "%"} {
		k := testkit.New()
		k.Fn("main", []ast.FnParam{k.P("x", k.T("Int32"))}, k.T("Int32"), k.Block(
			k.Return(k.Bin(op, k.Ident("x"), k.I(0))),
		))
		l, bag := newLowerer(k, Options{})
		m := l.Lower()
		main, _ := m.Func("main")
		if !mxir.ContainsError(main.Body) {
			t.Fatalf("x %s 0 lowered to a run-time operation:\n%s", op, dump(t, m))
		}
		if got := bag.Count(diag.ComptimeDivisionByZero); got != 1 || bag.Len() != 1 {
			t.Fatalf("x %s 0: %d division diagnostics of %v", op, got, bag.Items())
		}
	}
}

func TestLoweringIsIdempotent(t *testing.T) {
	k := testkit.New()
	l, _ := newLowerer(k, Options{})
	in := l.Module().Types
	for _, e := range []ast.ExprID{k.I(42), k.Float("2.5"), k.Bool(true), k.Str("hi")} {
		first := l.LowerExpr(e)
		second := l.LowerExpr(e)
		if mxir.Format(first, in) != mxir.Format(second, in) {
			t.Fatalf("re-lowering changed %s into %s", mxir.Format(first, in), mxir.Format(second, in))
		}
		v, ok := comptime.FromNode(first)
		if !ok {
			t.Fatalf("%s is not a literal", mxir.Format(first, in))
		}
		if again := comptime.ToNode(in, v); mxir.Format(again, in) != mxir.Format(first, in) {
			t.Fatalf("value round trip changed %s into %s", mxir.Format(first, in), mxir.Format(again, in))
		}
	}
}

func TestInterpolation(t *testing.T) {
	k := testkit.New()
	l, _ := newLowerer(k, Options{})
	n := l.LowerExpr(k.Interp("n=", k.Bin("+", k.I(1), k.I(2))))
	if got := mxir.Format(n, l.Module().Types); got != `ConstStr("n=3")` {
		t.Fatalf("constant interpolation: %s", got)
	}

	k = testkit.New()
	k.Fn("show", []ast.FnParam{k.P("x", k.T("Int32"))}, k.T("String"),
		k.Block(k.Return(k.Interp("x=", k.Ident("x")))))
	m := Lower(k.B, k.File, nil, Options{}, nil)
	fn, _ := m.Func("show")
	want := `return Concat(ConstStr("x="), Local(x: Int32))`
	if got := mxir.Format(fn.Body.Nodes[0], m.Types); got != want {
		t.Fatalf("run-time interpolation:\ngot  %s\nwant %s", got, want)
	}
}

func TestDumpOfLoweredModule(t *testing.T) {
	k := testkit.New()
	k.GlobalConst("LIMIT", ast.NoTypeExprID, k.Bin("+", k.I(2), k.I(3)))
	k.Fn("main", nil, k.T("Int32"), k.Block(
		k.Var("x", k.T("Int32"), k.Bin("*", k.Ident("LIMIT"), k.I(2))),
		k.While(k.Bin(">", k.Ident("x"), k.I(0)), k.Block(
			k.Assign("x", k.Bin("-", k.Ident("x"), k.I(1))),
		)),
		k.Return(k.Ident("x")),
	))
	l, bag := newLowerer(k, Options{Name: "demo"})
	depth := l.table.Depth()
	m := l.Lower()
	if l.table.Depth() != depth {
		t.Fatalf("lowering leaked scopes: %d != %d", l.table.Depth(), depth)
	}
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	want := `module demo
entry main
const LIMIT: Int64 = ConstInt(5: Int64)

fn main(): Int32 {
  let x: Int32 = ConstInt(10: Int32)
  loop {
    if Not(Gt(Local(x: Int32), ConstInt(0: Int32)): Bool): Bool {
      break
    }
    Local(x: Int32) = Sub(Local(x: Int32), ConstInt(1: Int32)): Int32
  }
  return Local(x: Int32)
}
`
	if got := dump(t, m); got != want {
		t.Fatalf("dump mismatch:\n--- got ---\n%s\n--- want ---\n%s", got, want)
	}
	data, err := mxir.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	back, err := mxir.Unmarshal(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if dump(t, back) != want {
		t.Fatalf("wire round trip changed the module:\n%s", dump(t, back))
	}
}

func pointUnit(k *testkit.Kit) {
	self := func(f string) ast.ExprID { return k.Member(k.Ident("self"), f) }
	other := func(f string) ast.ExprID { return k.Member(k.Ident("other"), f) }
	add := k.Method("Point", "add", false, []ast.FnParam{k.P("other", k.T("Point"))}, k.T("Point"), k.Block(
		k.Return(k.StructLit("Point",
			testkit.FieldInit{Name: "x", Value: k.Bin("+", self("x"), other("x"))},
			testkit.FieldInit{Name: "y", Value: k.Bin("+", self("y"), other("y"))},
		)),
	))
	k.Struct("Point", []ast.StructField{k.SField("x", k.T("Int32")), k.SField("y", k.T("Int32"))}, add)
}

func TestStructOperatorLowersToMethodCall(t *testing.T) {
	k := testkit.New()
	pointUnit(k)
	k.Fn("main", nil, k.T("Int32"), k.Block(
		k.Var("p1", ast.NoTypeExprID, k.StructLit("Point", testkit.FieldInit{Name: "x", Value: k.I(1)}, testkit.FieldInit{Name: "y", Value: k.I(2)})),
		k.Var("p2", ast.NoTypeExprID, k.StructLit("Point", testkit.FieldInit{Name: "x", Value: k.I(3)})),
		k.Var("p3", ast.NoTypeExprID, k.Bin("+", k.Ident("p1"), k.Ident("p2"))),
		k.Return(k.Member(k.Ident("p3"), "x")),
	))
	l, bag := newLowerer(k, Options{})
	m := l.Lower()
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	main, ok := m.Func("main")
	if !ok {
		t.Fatalf("main not lowered")
	}
	p2 := main.Body.Nodes[1].(*mxir.Let)
	if got := mxir.Format(p2, m.Types); got != "let p2: Point = Point{x: ConstInt(3: Int32), y: ConstInt(0: Int32)}" {
		t.Fatalf("missing field not zero-filled: %s", got)
	}
	p3 := main.Body.Nodes[2].(*mxir.Let)
	call, ok := p3.Value.(*mxir.Call)
	if !ok || call.Target != "Point.add" || len(call.Args) != 2 {
		t.Fatalf("p1 + p2 lowered to %s", mxir.Format(p3.Value, m.Types))
	}
	if got := mxir.Format(main.Body.Nodes[3], m.Types); got != "return Local(p3: Point).x" {
		t.Fatalf("field access: %s", got)
	}
	add, ok := m.Func("Point.add")
	if !ok || len(add.Params) != 2 || add.Params[0].Name != "self" {
		t.Fatalf("method not lowered with receiver: %+v", add)
	}
}

func TestComptimeCalls(t *testing.T) {
	k := testkit.New()
	k.Factorial()
	k.GlobalConst("F", ast.NoTypeExprID, k.Call("factorial", k.I(5)))
	k.Fn("dynamic", []ast.FnParam{k.P("n", k.T("Int64"))}, k.T("Int64"), k.Block(
		k.Return(k.Call("factorial", k.Ident("n"))),
	))
	k.Main()
	l, bag := newLowerer(k, Options{})
	m := l.Lower()
	c, ok := m.Const("F")
	if !ok || mxir.Format(c, m.Types) != "ConstInt(120: Int64)" {
		t.Fatalf("factorial(5) not folded: %v", c)
	}
	if got := bag.Count(diag.ComptimeNotComptime); got != 1 {
		t.Fatalf("expected one NotComptime, got %d: %v", got, bag.Items())
	}
	dyn, _ := m.Func("dynamic")
	if !mxir.ContainsError(dyn.Body) {
		t.Fatalf("run-time argument must leave an error marker")
	}
	if _, lowered := m.Func("factorial"); lowered {
		t.Fatalf("comptime functions are not lowered")
	}
	if v, ok := l.Exports().Get("F"); !ok || v.Int.Int64() != 120 {
		t.Fatalf("F not exported")
	}
}

func TestFailedConstantLeavesMarker(t *testing.T) {
	k := testkit.New()
	k.GlobalConst("BAD", ast.NoTypeExprID, k.Bin("/", k.I(1), k.I(0)))
	k.Fn("main", nil, k.T("Int64"), k.Block(k.Return(k.Ident("BAD"))))
	l, bag := newLowerer(k, Options{})
	m := l.Lower()
	if got := bag.Count(diag.ComptimeDivisionByZero); got != 1 {
		t.Fatalf("expected one division diagnostic, got %d", got)
	}
	c, _ := m.Const("BAD")
	if _, ok := c.(*mxir.ErrorMarker); !ok {
		t.Fatalf("failed constant lowered to %s", mxir.Format(c, m.Types))
	}
	main, _ := m.Func("main")
	if !mxir.ContainsError(main.Body) {
		t.Fatalf("use of a failed constant must carry the marker")
	}
	if bag.Len() != 1 {
		t.Fatalf("failure reported more than once: %v", bag.Items())
	}
}

func TestSpecializations(t *testing.T) {
	k := testkit.New()
	k.Generic("scale", []ast.FnParam{k.P("factor", k.T("Int32"))}, []ast.FnParam{k.P("x", k.T("Int32"))}, k.T("Int32"),
		k.Block(k.Return(k.Bin("*", k.Ident("x"), k.Ident("factor")))))
	k.Fn("main", nil, k.T("Int32"), k.Block(
		k.Return(k.Bin("+",
			k.Bin("+", k.ComptimeCall("scale", []ast.ExprID{k.I(3)}, k.I(4)), k.ComptimeCall("scale", []ast.ExprID{k.I(3)}, k.I(5))),
			k.ComptimeCall("scale", []ast.ExprID{k.I(2)}, k.I(1)))),
	))
	l, bag := newLowerer(k, Options{})
	m := l.Lower()
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	var names []string
	for _, f := range m.Funcs {
		names = append(names, f.Name)
	}
	if got := strings.Join(names, " "); got != "main scale[3] scale[2]" {
		t.Fatalf("functions: %s", got)
	}
	three, _ := m.Func("scale[3]")
	if got := mxir.Format(three.Body.Nodes[0], m.Types); got != "return Mul(Local(x: Int32), ConstInt(3: Int32)): Int32" {
		t.Fatalf("specialized body: %s", got)
	}
}

func TestMaterializationAndResolutionErrors(t *testing.T) {
	tests := []struct {
		name string
		body func(k *testkit.Kit) ast.StmtID
		code diag.Code
	}{
		{"out of range", func(k *testkit.Kit) ast.StmtID {
			return k.Var("b", k.T("Int8"), k.I(300))
		}, diag.LowerIntLiteralOutOfRange},
		{"unresolved", func(k *testkit.Kit) ast.StmtID {
			return k.ExprStmt(k.Ident("nowhere"))
		}, diag.SemaUnresolvedSymbol},
		{"type mismatch", func(k *testkit.Kit) ast.StmtID {
			return k.Var("s", k.T("String"), k.I(1))
		}, diag.SemaTypeMismatch},
		{"no overload", func(k *testkit.Kit) ast.StmtID {
			return k.ExprStmt(k.Bin("-", k.Str("a"), k.Str("b")))
		}, diag.SemaNoOperatorOverload},
		{"unsupported", func(k *testkit.Kit) ast.StmtID {
			return k.Var("e", ast.NoTypeExprID, k.List())
		}, diag.LowerUnsupportedConstruct},
		{"arg count", func(k *testkit.Kit) ast.StmtID {
			return k.ExprStmt(k.Call("main", k.I(1)))
		}, diag.SemaIncorrectArgCount},
		{"local const needs comptime value", func(k *testkit.Kit) ast.StmtID {
			return k.Block(
				k.Var("x", k.T("Int32"), k.I(1)),
				k.Const("c", ast.NoTypeExprID, k.Ident("x")),
			)
		}, diag.ComptimeNotComptime},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := testkit.New()
			k.Fn("main", nil, ast.NoTypeExprID, k.Block(tt.body(k)))
			l, bag := newLowerer(k, Options{})
			m := l.Lower()
			if got := bag.Count(tt.code); got != 1 {
				t.Fatalf("expected one %s, got %d: %v", tt.code.ID(), got, bag.Items())
			}
			main, _ := m.Func("main")
			if !mxir.ContainsError(main.Body) {
				t.Fatalf("no error marker left:\n%s", dump(t, m))
			}
		})
	}
}

func TestListsMapsAndSizes(t *testing.T) {
	k := testkit.New()
	k.GlobalConst("N", ast.NoTypeExprID, k.I(3))
	k.Fn("main", nil, ast.NoTypeExprID, k.Block(
		k.Var("xs", k.ListT(k.T("Int32"), k.Bin("-", k.Ident("N"), k.I(1))), k.List(k.I(1), k.I(2))),
		k.Var("m", ast.NoTypeExprID, k.Map(ast.ExprMapEntry{Key: k.Str("a"), Value: k.I(1)})),
		k.Var("r", ast.NoTypeExprID, k.Range(k.I(0), k.Ident("N"))),
	))
	l, bag := newLowerer(k, Options{})
	m := l.Lower()
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	main, _ := m.Func("main")
	want := []string{
		"let xs: List<Int32, 2> = [ConstInt(1: Int32), ConstInt(2: Int32)]: List<Int32, 2>",
		`let m: Map<String, Int64> = {ConstStr("a"): ConstInt(1: Int64)}: Map<String, Int64>`,
		"let r: Range = Range(ConstInt(0: Int64)..ConstInt(3: Int64))",
	}
	for i, w := range want {
		if got := mxir.Format(main.Body.Nodes[i], m.Types); got != w {
			t.Errorf("stmt %d:\ngot  %s\nwant %s", i, got, w)
		}
	}
}

func TestImportsAndDefaultInt(t *testing.T) {
	in := types.NewInterner()
	imports := (*comptime.Env)(nil).With("BASE", comptime.Int64(40, in.Builtins().Int64))
	k := testkit.New()
	k.GlobalConst("ANSWER", ast.NoTypeExprID, k.Bin("+", k.Ident("BASE"), k.I(2)))
	k.GlobalConst("SMALL", ast.NoTypeExprID, k.I(7))
	l, bag := newLowerer(k, Options{Types: in, Imports: imports, DefaultInt: "Int32"})
	m := l.Lower()
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	answer, _ := m.Const("ANSWER")
	if got := mxir.Format(answer, in); got != "ConstInt(42: Int64)" {
		t.Fatalf("ANSWER = %s", got)
	}
	small, _ := m.Const("SMALL")
	if got := mxir.Format(small, in); got != "ConstInt(7: Int32)" {
		t.Fatalf("SMALL = %s", got)
	}
	if _, ok := l.Exports().Get("BASE"); ok {
		t.Fatalf("imported constants must not be re-exported")
	}
}

func TestUsesCheckerTable(t *testing.T) {
	k := testkit.New()
	k.Main()
	table := symbols.Collect(k.B, k.File, "main", diag.NopReporter{})
	m := Lower(k.B, k.File, table, Options{}, nil)
	if m.Entry != "main" {
		t.Fatalf("entry not recorded")
	}
	if table.Depth() != 1 {
		t.Fatalf("lowering leaked scopes: %d", table.Depth())
	}
}

func TestComptimeFunctionsDoNotSeeCallerLocals(t *testing.T) {
	k := testkit.New()
	k.GlobalConst("G", ast.NoTypeExprID, k.I(7))
	k.ComptimeFn("f", nil, k.T("Int64"), k.Block(k.Return(k.Ident("k"))))
	k.ComptimeFn("g", nil, k.T("Int64"), k.Block(k.Return(k.Ident("n"))))
	k.ComptimeFn("h", nil, k.T("Int64"), k.Block(k.Return(k.Ident("G"))))
	k.Fn("useLocal", nil, k.T("Int64"), k.Block(
		k.Const("k", ast.NoTypeExprID, k.I(5)),
		k.Return(k.Call("f")),
	))
	k.Fn("useParam", []ast.FnParam{k.P("n", k.T("Int64"))}, k.T("Int64"), k.Block(
		k.Return(k.Call("g")),
	))
	k.Fn("main", nil, k.T("Int64"), k.Block(k.Return(k.Call("h"))))
	l, bag := newLowerer(k, Options{})
	m := l.Lower()

	if got := bag.Count(diag.ComptimeUnknownSymbol); got != 2 || bag.Len() != 2 {
		t.Fatalf("expected two unknown-symbol diagnostics, got %v", bag.Items())
	}
	for i, name := range []string{"k", "n"} {
		want := "unknown comptime symbol '" + name + "'"
		if msg := bag.Items()[i].Message; msg != want {
			t.Errorf("diagnostic %d: %q, want %q", i, msg, want)
		}
	}
	for _, fn := range []string{"useLocal", "useParam"} {
		f, _ := m.Func(fn)
		if !mxir.ContainsError(f.Body) {
			t.Errorf("%s folded a caller-local name:\n%s", fn, dump(t, m))
		}
	}
	main, _ := m.Func("main")
	if got := dump(t, m); mxir.ContainsError(main.Body) || !strings.Contains(got, "ConstInt(7: Int64)") {
		t.Fatalf("unit constants must stay visible:\n%s", got)
	}
}

func TestFailedVariableInitializerReportsOnce(t *testing.T) {
	k := testkit.New()
	k.Fn("main", nil, k.T("Int64"), k.Block(
		k.Var("x", ast.NoTypeExprID, k.Bin("/", k.I(1), k.I(0))),
		k.Return(k.Bin("+", k.Ident("x"), k.I(1))),
	))
	l, bag := newLowerer(k, Options{})
	m := l.Lower()
	if bag.Len() != 1 || bag.Count(diag.ComptimeDivisionByZero) != 1 {
		t.Fatalf("expected only the division diagnostic, got %v", bag.Items())
	}
	main, _ := m.Func("main")
	if !mxir.ContainsError(main.Body) {
		t.Fatalf("use of the failed variable must carry the marker")
	}
}
