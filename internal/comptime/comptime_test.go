package comptime

import (
	"math/big"
	"strings"
	"testing"

	"mx/internal/ast"
	"mx/internal/diag"
	"mx/internal/mxir"
	"mx/internal/testkit"
	"mx/internal/types"
)

func newEval(k *testkit.Kit, in *types.Interner, limits Limits) *Evaluator {
	if in == nil {
		in = types.NewInterner()
	}
	return NewEvaluator(NewProgram(k.B, k.File, in, nil), limits)
}

func wantInt(t *testing.T, v Value, err *Error, want int64) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Kind != KindInt || v.Int.Cmp(big.NewInt(want)) != 0 {
		t.Fatalf("got %s (%s), want %d", v, v.Kind, want)
	}
}

func wantCode(t *testing.T, err *Error, code diag.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s, got no error", code.ID())
	}
	if err.Code != code {
		t.Fatalf("expected %s, got %s: %s", code.ID(), err.Code.ID(), err.Message)
	}
}

func TestFactorial(t *testing.T) {
	k := testkit.New()
	k.Factorial()
	ev := newEval(k, nil, Limits{})
	v, err := ev.Evaluate(k.Call("factorial", k.I(5)), nil)
	wantInt(t, v, err, 120)
	if v.Type != ev.Program().Types.Builtins().Int64 {
		t.Fatalf("result type = %s", ev.Program().Types.Name(v.Type))
	}

	v, err = ev.Call("factorial", []Value{Int64(10, ev.Program().Types.Builtins().UntypedInt)}, k.Span(k.I(0)), nil)
	wantInt(t, v, err, 3628800)
}

func TestDepthLimit(t *testing.T) {
	k := testkit.New()
	k.Factorial()
	ev := newEval(k, nil, Limits{})
	call := k.Call("factorial", k.I(300))
	_, err := ev.Evaluate(call, nil)
	wantCode(t, err, diag.ComptimeEvaluationLimit)
	if len(err.Backtrace) == 0 || err.Backtrace[0].Function != "factorial" {
		t.Fatalf("backtrace missing: %+v", err.Backtrace)
	}
	if len(err.Backtrace) != ev.Limits().MaxDepth {
		t.Fatalf("backtrace depth %d, want %d", len(err.Backtrace), ev.Limits().MaxDepth)
	}

	// счётчики сбрасываются между вычислениями верхнего уровня
	v, err := ev.Evaluate(k.Call("factorial", k.I(3)), nil)
	wantInt(t, v, err, 6)
}

func TestStepLimit(t *testing.T) {
	k := testkit.New()
	k.ComptimeFn("spin", nil, k.T("Int64"), k.Block(k.Loop(k.Block()), k.Return(k.I(0))))
	ev := newEval(k, nil, Limits{MaxSteps: 1000})
	_, err := ev.Evaluate(k.Call("spin"), nil)
	wantCode(t, err, diag.ComptimeEvaluationLimit)
	if ev.Steps() <= 1000 {
		t.Fatalf("steps = %d", ev.Steps())
	}
}

func TestLoopsAndAssignment(t *testing.T) {
	k := testkit.New()
	i64 := func() ast.TypeExprID { return k.T("Int64") }
	body := k.Block(
		k.Var("s", i64(), k.I(0)),
		k.Var("i", i64(), k.I(0)),
		k.While(k.Bin("<", k.Ident("i"), k.Ident("n")), k.Block(
			k.Assign("i", k.Bin("+", k.Ident("i"), k.I(1))),
			k.If(k.Bin("==", k.Bin("%", k.Ident("i"), k.I(2)), k.I(0)), k.Block(k.Continue()), ast.NoStmtID),
			k.Assign("s", k.Bin("+", k.Ident("s"), k.Ident("i"))),
		)),
		k.Return(k.Ident("s")),
	)
	k.ComptimeFn("oddSum", []ast.FnParam{k.P("n", i64())}, i64(), body)
	ev := newEval(k, nil, Limits{})
	v, err := ev.Evaluate(k.Call("oddSum", k.I(10)), nil)
	wantInt(t, v, err, 25)
}

func TestArithmeticErrors(t *testing.T) {
	k := testkit.New()
	ev := newEval(k, nil, Limits{})
	tests := []struct {
		name string
		expr ast.ExprID
		code diag.Code
	}{
		{"div", k.Bin("/", k.I(1), k.I(0)), diag.ComptimeDivisionByZero},
		{"mod", k.Bin("%", k.I(7), k.Bin("-", k.I(2), k.I(2))), diag.ComptimeDivisionByZero},
		{"float div", k.Bin("/", k.Float("1.0"), k.Float("0.0")), diag.ComptimeDivisionByZero},
		{"unknown", k.Bin("+", k.Ident("nope"), k.I(1)), diag.ComptimeUnknownSymbol},
		{"list", k.List(k.I(1)), diag.ComptimeUnsupportedConstruct},
		{"bool arith", k.Bin("*", k.Bool(true), k.Bool(false)), diag.SemaNoOperatorOverload},
		{"mismatch", k.Bin("+", k.I(1), k.Str("a")), diag.SemaTypeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ev.Evaluate(tt.expr, nil)
			wantCode(t, err, tt.code)
			if err.Span.Empty() {
				t.Fatalf("error has no span")
			}
		})
	}
}

func TestFixedWidthWrapAndTrap(t *testing.T) {
	k := testkit.New()
	in := types.NewInterner()
	ev := newEval(k, in, Limits{})
	env := (*Env)(nil).With("a", Int64(127, in.Builtins().Int8))
	v, err := ev.Evaluate(k.Bin("+", k.Ident("a"), k.I(1)), env)
	wantInt(t, v, err, -128)
	if v.Type != in.Builtins().Int8 {
		t.Fatalf("wrap changed the type")
	}

	trapIn := types.NewInterner()
	i8 := trapIn.DeclareInt("Int8", types.Width8, true, types.OverflowTrap)
	trapEv := newEval(k, trapIn, Limits{})
	_, err = trapEv.Evaluate(k.Bin("+", k.Ident("a"), k.I(1)), (*Env)(nil).With("a", Int64(127, i8)))
	wantCode(t, err, diag.ComptimeIntegerOverflow)

	lowest := Int64(-128, in.Builtins().Int8)
	neg, nerr := Unary(in, mxir.OpNeg, lowest)
	wantInt(t, neg, nerr, -128)

	u8 := Int64(0, in.Builtins().UInt8)
	under, uerr := Binary(in, mxir.OpSub, u8, Int64(1, in.Builtins().UntypedInt))
	wantInt(t, under, uerr, 255)
}

func TestShifts(t *testing.T) {
	in := types.NewInterner()
	b := in.Builtins()
	big70 := new(big.Int).Lsh(big.NewInt(1), 70)
	v, err := Binary(in, mxir.OpShl, Int64(1, b.UntypedInt), Int64(70, b.UntypedInt))
	if err != nil || v.Int.Cmp(big70) != 0 {
		t.Fatalf("untyped shift: %v %v", v, err)
	}
	v, err = Binary(in, mxir.OpShl, Int64(1, b.Int8), Int64(7, b.Int32))
	wantInt(t, v, err, -128)
	v, err = Binary(in, mxir.OpShr, Int64(-8, b.Int32), Int64(1, b.Int32))
	wantInt(t, v, err, -4)
	v, err = Binary(in, mxir.OpShl, Int64(1, b.Int32), Int64(40, b.Int32))
	wantInt(t, v, err, 0)
	_, err = Binary(in, mxir.OpShl, Int64(1, b.Int32), Int64(-1, b.Int32))
	wantCode(t, err, diag.ComptimeInvalidOperand)
}

func TestMaterialize(t *testing.T) {
	in := types.NewInterner()
	b := in.Builtins()
	_, err := Materialize(in, Int64(300, b.UntypedInt), b.Int8)
	wantCode(t, err, diag.LowerIntLiteralOutOfRange)
	v, err := Materialize(in, Int64(-1, b.UntypedInt), b.Int8)
	wantInt(t, v, err, -1)
	f, err := Materialize(in, Int64(2, b.UntypedInt), b.Float64)
	if err != nil || f.Kind != KindFloat || f.Float != 2 {
		t.Fatalf("int to float: %v %v", f, err)
	}
	_, err = Materialize(in, Str("x"), b.Int32)
	wantCode(t, err, diag.SemaTypeMismatch)
	d, err := Default(in, Int64(5, b.UntypedInt), b.Int64)
	if err != nil || d.Type != b.Int64 {
		t.Fatalf("default: %v %v", d, err)
	}
}

func TestRuntimeBindingsAreRejected(t *testing.T) {
	k := testkit.New()
	ev := newEval(k, nil, Limits{})
	env := (*Env)(nil).WithRuntime("x", ev.Program().Types.Builtins().Int32)
	_, err := ev.Evaluate(k.Bin("+", k.Ident("x"), k.I(1)), env)
	wantCode(t, err, diag.ComptimeUnknownSymbol)
	if !strings.Contains(err.Message, "run-time") {
		t.Fatalf("message = %q", err.Message)
	}
}

func TestCallErrors(t *testing.T) {
	k := testkit.New()
	k.Factorial()
	k.Fn("plain", nil, k.T("Int32"), k.Block(k.Return(k.I(1))))
	k.ComptimeFn("nothing", nil, k.T("Int32"), k.Block())
	ev := newEval(k, nil, Limits{})

	_, err := ev.Evaluate(k.Call("plain"), nil)
	wantCode(t, err, diag.ComptimeNotComptime)
	_, err = ev.Evaluate(k.Call("factorial", k.I(1), k.I(2)), nil)
	wantCode(t, err, diag.SemaIncorrectArgCount)
	_, err = ev.Evaluate(k.Call("missing"), nil)
	wantCode(t, err, diag.ComptimeUnknownSymbol)
	_, err = ev.Evaluate(k.Call("nothing"), nil)
	wantCode(t, err, diag.ComptimeMissingReturn)
	_, err = ev.Evaluate(k.Call("factorial", k.Str("x")), nil)
	wantCode(t, err, diag.SemaTypeMismatch)
}

func TestStructsAndOverloads(t *testing.T) {
	k := testkit.New()
	i32 := func() ast.TypeExprID { return k.T("Int32") }
	add := k.Method("Point", "add", true, []ast.FnParam{k.P("o", k.T("Point"))}, k.T("Point"), k.Block(
		k.Return(k.StructLit("Point",
			testkit.FieldInit{Name: "x", Value: k.Bin("+", k.Member(k.Ident("self"), "x"), k.Member(k.Ident("o"), "x"))},
			testkit.FieldInit{Name: "y", Value: k.Bin("+", k.Member(k.Ident("self"), "y"), k.Member(k.Ident("o"), "y"))},
		)),
	))
	k.Struct("Point", []ast.StructField{k.SField("x", i32()), k.SField("y", i32())}, add)
	ev := newEval(k, nil, Limits{})
	in := ev.Program().Types

	p := func(x, y int64) ast.ExprID {
		return k.StructLit("Point", testkit.FieldInit{Name: "x", Value: k.I(x)}, testkit.FieldInit{Name: "y", Value: k.I(y)})
	}
	v, err := ev.Evaluate(k.Member(k.Bin("+", p(1, 2), p(10, 20)), "y"), nil)
	wantInt(t, v, err, 22)
	if v.Type != in.Builtins().Int32 {
		t.Fatalf("field type = %s", in.Name(v.Type))
	}

	partial, err := ev.Evaluate(k.StructLit("Point", testkit.FieldInit{Name: "y", Value: k.I(3)}), nil)
	if err != nil {
		t.Fatal(err)
	}
	if x, _ := partial.Field("x"); x.Int.Sign() != 0 {
		t.Fatalf("missing fields must be zero: %s", partial)
	}
	_, err = ev.Evaluate(k.StructLit("Point", testkit.FieldInit{Name: "z", Value: k.I(3)}), nil)
	wantCode(t, err, diag.SemaUnknownField)
	_, err = ev.Evaluate(k.Bin("-", p(1, 2), p(1, 2)), nil)
	wantCode(t, err, diag.SemaNoOperatorOverload)
}

func TestStringsAndLogic(t *testing.T) {
	k := testkit.New()
	ev := newEval(k, nil, Limits{})

	v, err := ev.Evaluate(k.Interp("x = ", k.Bin("+", k.I(1), k.I(2)), "!"), nil)
	if err != nil || v.Str != "x = 3!" {
		t.Fatalf("interp: %q %v", v.Str, err)
	}
	v, err = ev.Evaluate(k.Str("e\u0301"), nil)
	if err != nil || v.Str != "\u00e9" {
		t.Fatalf("NFC: %q %v", v.Str, err)
	}
	v, err = ev.Evaluate(k.Bin("and", k.Bool(false), k.Bin("==", k.Bin("/", k.I(1), k.I(0)), k.I(0))), nil)
	if err != nil || v.Bool {
		t.Fatalf("and must short-circuit: %v %v", v, err)
	}
	v, err = ev.Evaluate(k.Bin("or", k.Bool(true), k.Ident("undefined")), nil)
	if err != nil || !v.Bool {
		t.Fatalf("or must short-circuit: %v %v", v, err)
	}
	v, err = ev.Evaluate(k.Bin("<", k.Str("abc"), k.Str("abd")), nil)
	if err != nil || !v.Bool {
		t.Fatalf("string compare: %v %v", v, err)
	}
	r, err := ev.Evaluate(k.Range(k.I(1), ast.NoExprID), nil)
	if err != nil || r.Kind != KindRange || r.End != nil || r.String() != "1.." {
		t.Fatalf("range: %v %v", r, err)
	}
}

func TestEnvIsPersistent(t *testing.T) {
	in := types.NewInterner()
	base := (*Env)(nil).With("a", Int64(1, in.Builtins().Int32))
	child := base.With("a", Int64(2, in.Builtins().Int32)).With("b", Bool(true))
	if v, _ := base.Get("a"); v.Int.Int64() != 1 {
		t.Fatalf("parent changed")
	}
	if v, _ := child.Get("a"); v.Int.Int64() != 2 {
		t.Fatalf("shadowing failed")
	}
	if _, ok := base.Get("b"); ok {
		t.Fatalf("child binding leaked into parent")
	}
	names := child.Bindings()
	if len(names) != 2 || names[0].Name != "a" || names[1].Name != "b" {
		t.Fatalf("bindings = %+v", names)
	}
	if child.Len() != 3 {
		t.Fatalf("len = %d", child.Len())
	}
}

func TestNodeConversion(t *testing.T) {
	in := types.NewInterner()
	point := in.RegisterStruct("Point")
	v := Struct(point, []Field{{Name: "x", Value: Int64(1, in.Builtins().Int32)}, {Name: "s", Value: Str("hi")}})
	n := ToNode(in, v)
	back, ok := FromNode(n)
	if !ok || !back.Equal(v) {
		t.Fatalf("round trip: %v", back)
	}
	if _, ok := FromNode(&mxir.Local{Name: "x"}); ok {
		t.Fatalf("Local is not a literal")
	}
}

func TestCalledFunctionsSeeOnlyRoot(t *testing.T) {
	k := testkit.New()
	k.ComptimeFn("peek", nil, k.T("Int64"), k.Block(k.Return(k.Ident("local"))))
	in := types.NewInterner()
	ev := newEval(k, in, Limits{})
	untyped := in.Builtins().UntypedInt
	var root *Env
	root = root.With("unit", Int64(1, untyped))
	local := root.With("local", Int64(5, untyped))

	v, err := ev.EvaluateIn(k.Bin("+", k.Ident("local"), k.Ident("unit")), local, root)
	wantInt(t, v, err, 6)

	_, err = ev.EvaluateIn(k.Call("peek"), local, root)
	wantCode(t, err, diag.ComptimeUnknownSymbol)
	if err.Message != "unknown comptime symbol 'local'" {
		t.Fatalf("message = %q", err.Message)
	}
	_, err = ev.Call("peek", nil, err.Span, root)
	wantCode(t, err, diag.ComptimeUnknownSymbol)
}
