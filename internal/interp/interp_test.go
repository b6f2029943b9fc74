package interp

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"mx/internal/ast"
	"mx/internal/comptime"
	"mx/internal/diag"
	"mx/internal/lower"
	"mx/internal/mxir"
	"mx/internal/testkit"
	"mx/internal/types"
)

func lowered(t *testing.T, k *testkit.Kit) *mxir.Module {
	t.Helper()
	bag := diag.NewBag(100)
	m := lower.New(k.B, k.File, nil, lower.Options{}, diag.BagReporter{Bag: bag}).Lower()
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	return m
}

func module(in *types.Interner, funcs ...*mxir.Func) *mxir.Module {
	m := mxir.NewModule("test", in)
	m.Funcs = funcs
	m.Entry = "main"
	return m
}

func fn(name string, result types.TypeID, nodes ...mxir.Node) *mxir.Func {
	return &mxir.Func{Name: name, Result: result, Body: &mxir.Block{Nodes: nodes}}
}

func ci(v int64, t types.TypeID) *mxir.ConstInt {
	return &mxir.ConstInt{Value: big.NewInt(v), Typ: t}
}

func TestRunsMain(t *testing.T) {
	k := testkit.New()
	k.GlobalVar("total", k.T("Int64"), k.I(0))
	k.Fn("main", nil, k.T("Int64"), k.Block(
		k.Var("i", k.T("Int64"), k.I(0)),
		k.While(k.Bin("<", k.Ident("i"), k.I(5)), k.Block(
			k.Assign("i", k.Bin("+", k.Ident("i"), k.I(1))),
			k.Assign("total", k.Bin("+", k.Ident("total"), k.Ident("i"))),
		)),
		k.ExprStmt(k.Call("print", k.Interp("i=", k.Ident("i")))),
		k.ExprStmt(k.Call("print", k.Str("total"), k.Ident("total"))),
		k.Return(k.Ident("total")),
	))
	m := lowered(t, k)

	var out strings.Builder
	it := New(m, Options{Out: &out})
	v, err := it.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if v.Kind != comptime.KindInt || v.Int.Int64() != 15 {
		t.Fatalf("main returned %s", v)
	}
	if got := out.String(); got != "i=5\ntotal 15\n" {
		t.Fatalf("output %q", got)
	}
	if g, ok := it.Global("total"); !ok || g.Int.Int64() != 15 {
		t.Fatalf("global total = %s", g)
	}
	if it.Steps() == 0 {
		t.Fatalf("steps not counted")
	}
}

func TestMethodsAndSpecializations(t *testing.T) {
	k := testkit.New()
	self := func(f string) ast.ExprID { return k.Member(k.Ident("self"), f) }
	other := func(f string) ast.ExprID { return k.Member(k.Ident("other"), f) }
	add := k.Method("Point", "add", false, []ast.FnParam{k.P("other", k.T("Point"))}, k.T("Point"), k.Block(
		k.Return(k.StructLit("Point",
			testkit.FieldInit{Name: "x", Value: k.Bin("+", self("x"), other("x"))},
			testkit.FieldInit{Name: "y", Value: k.Bin("+", self("y"), other("y"))},
		)),
	))
	k.Struct("Point", []ast.StructField{k.SField("x", k.T("Int32")), k.SField("y", k.T("Int32"))}, add)
	k.Generic("scale", []ast.FnParam{k.P("factor", k.T("Int32"))}, []ast.FnParam{k.P("x", k.T("Int32"))}, k.T("Int32"),
		k.Block(k.Return(k.Bin("*", k.Ident("x"), k.Ident("factor")))))
	k.Fn("main", nil, k.T("Int32"), k.Block(
		k.Var("p1", ast.NoTypeExprID, k.StructLit("Point", testkit.FieldInit{Name: "x", Value: k.I(1)}, testkit.FieldInit{Name: "y", Value: k.I(2)})),
		k.Var("p2", ast.NoTypeExprID, k.StructLit("Point", testkit.FieldInit{Name: "x", Value: k.I(3)})),
		k.Var("p3", ast.NoTypeExprID, k.Bin("+", k.Ident("p1"), k.Ident("p2"))),
		k.Return(k.ComptimeCall("scale", []ast.ExprID{k.I(3)}, k.Member(k.Ident("p3"), "x"))),
	))
	m := lowered(t, k)

	v, err := Run(context.Background(), m, Options{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if v.Int.Int64() != 12 || v.Type != m.Types.Builtins().Int32 {
		t.Fatalf("scale[3]((p1 + p2).x) = %s: %s", v, m.Types.Name(v.Type))
	}
}

func TestRuntimeErrors(t *testing.T) {
	tests := []struct {
		name  string
		build func(in *types.Interner) *mxir.Module
		opts  Options
		code  diag.Code
	}{
		{
			name: "division by zero",
			build: func(in *types.Interner) *mxir.Module {
				i32 := in.Builtins().Int32
				return module(in, fn("main", i32, &mxir.Return{Value: &mxir.BinOp{Op: mxir.OpDiv, Lhs: ci(1, i32), Rhs: ci(0, i32), Typ: i32}}))
			},
			code: diag.RunDivisionByZero,
		},
		{
			name: "trapping overflow",
			build: func(in *types.Interner) *mxir.Module {
				c8 := in.DeclareInt("Checked8", 8, true, types.OverflowTrap)
				return module(in, fn("main", c8, &mxir.Return{Value: &mxir.BinOp{Op: mxir.OpAdd, Lhs: ci(127, c8), Rhs: ci(1, c8), Typ: c8}}))
			},
			code: diag.RunIntegerOverflow,
		},
		{
			name: "step limit",
			build: func(in *types.Interner) *mxir.Module {
				return module(in, fn("main", types.VoidID, &mxir.Loop{Body: &mxir.Block{}}))
			},
			opts: Options{MaxSteps: 50},
			code: diag.RunStepLimit,
		},
		{
			name: "error marker",
			build: func(in *types.Interner) *mxir.Module {
				return module(in, fn("main", types.VoidID, &mxir.Eval{Expr: &mxir.ErrorMarker{Message: "constant 'X' failed"}}))
			},
			code: diag.RunInvalidNode,
		},
		{
			name: "unknown function",
			build: func(in *types.Interner) *mxir.Module {
				return module(in, fn("main", types.VoidID, &mxir.Eval{Expr: &mxir.Call{Target: "missing", Typ: types.VoidID}}))
			},
			code: diag.RunInvalidNode,
		},
		{
			name: "missing entry",
			build: func(in *types.Interner) *mxir.Module {
				return module(in, fn("helper", types.VoidID))
			},
			code: diag.RunMissingEntryPoint,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run(context.Background(), tt.build(types.NewInterner()), tt.opts)
			var rerr *Error
			if !errors.As(err, &rerr) {
				t.Fatalf("expected *interp.Error, got %v", err)
			}
			if rerr.Code != tt.code {
				t.Fatalf("code %s, want %s (%s)", rerr.Code.ID(), tt.code.ID(), rerr.Message)
			}
		})
	}
}

func TestWrappingArithmetic(t *testing.T) {
	in := types.NewInterner()
	i8 := in.Builtins().Int8
	m := module(in, fn("main", i8, &mxir.Return{Value: &mxir.BinOp{Op: mxir.OpAdd, Lhs: ci(127, i8), Rhs: ci(1, i8), Typ: i8}}))
	v, err := Run(context.Background(), m, Options{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if v.Int.Int64() != -128 {
		t.Fatalf("Int8 127 + 1 = %s", v)
	}
}

func TestCallDepthBacktrace(t *testing.T) {
	in := types.NewInterner()
	loop := fn("spin", types.VoidID, &mxir.Eval{Expr: &mxir.Call{Target: "spin", Typ: types.VoidID}})
	m := module(in, fn("main", types.VoidID, &mxir.Eval{Expr: &mxir.Call{Target: "spin", Typ: types.VoidID}}), loop)

	_, err := Run(context.Background(), m, Options{MaxDepth: 8})
	var rerr *Error
	if !errors.As(err, &rerr) || rerr.Code != diag.RunStepLimit {
		t.Fatalf("expected depth failure, got %v", err)
	}
	if len(rerr.Backtrace) != 8 {
		t.Fatalf("backtrace has %d frames: %v", len(rerr.Backtrace), rerr.Backtrace)
	}
	if rerr.Backtrace[0] != "spin" || rerr.Backtrace[7] != "main" {
		t.Fatalf("backtrace order: %v", rerr.Backtrace)
	}
	if !strings.Contains(rerr.Format(), "backtrace:\n  0: spin\n") {
		t.Fatalf("format:\n%s", rerr.Format())
	}
}

func TestCancellation(t *testing.T) {
	in := types.NewInterner()
	m := module(in, fn("main", types.VoidID, &mxir.Loop{Body: &mxir.Block{}}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, m, Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestCollectionsAndFieldAssignment(t *testing.T) {
	in := types.NewInterner()
	b := in.Builtins()
	list := in.List(b.Int32, 2)
	strMap := in.Map(b.String, b.Int64)
	point := in.RegisterStruct("Point")
	str := func(s string) mxir.Node { return &mxir.ConstStr{Value: s} }
	local := func(name string, t types.TypeID) *mxir.Local { return &mxir.Local{Name: name, Typ: t} }

	m := module(in, fn("main", types.VoidID,
		&mxir.Let{Name: "xs", Typ: list},
		&mxir.Let{Name: "m", Typ: strMap, Value: &mxir.MapBuild{Typ: strMap, Entries: []mxir.MapEntry{
			{Key: str("a"), Value: ci(1, b.Int64)},
			{Key: str("b"), Value: ci(2, b.Int64)},
			{Key: str("a"), Value: ci(3, b.Int64)},
		}}},
		&mxir.Let{Name: "p", Typ: point, Value: &mxir.StructBuild{TypeName: "Point", Typ: point, Fields: []mxir.FieldInit{
			{Name: "x", Value: ci(1, b.Int32)},
			{Name: "y", Value: ci(2, b.Int32)},
		}}},
		&mxir.Assign{Target: &mxir.FieldGet{Target: local("p", point), Field: "x", Typ: b.Int32}, Value: ci(9, b.Int32)},
		&mxir.Eval{Expr: &mxir.Call{Target: "print", Typ: types.VoidID, Args: []mxir.Node{
			local("xs", list),
			local("m", strMap),
			local("p", point),
			&mxir.RangeBuild{Start: ci(1, b.Int64), End: ci(3, b.Int64)},
		}}},
	))
	var out strings.Builder
	if _, err := Run(context.Background(), m, Options{Out: &out}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := out.String(); got != "[0, 0] {a: 3, b: 2} {x: 9, y: 2} 1..3\n" {
		t.Fatalf("output %q", got)
	}
}

func TestLogicalOperatorsShortCircuit(t *testing.T) {
	in := types.NewInterner()
	boom := &mxir.Call{Target: "boom", Typ: types.BoolID}
	m := module(in, fn("main", types.BoolID,
		&mxir.Let{Name: "a", Typ: types.BoolID, Value: &mxir.BinOp{Op: mxir.OpBitAnd, Lhs: &mxir.ConstBool{Value: false}, Rhs: boom, Typ: types.BoolID}},
		&mxir.Return{Value: &mxir.BinOp{Op: mxir.OpBitOr, Lhs: &mxir.ConstBool{Value: true}, Rhs: boom, Typ: types.BoolID}},
	))
	v, err := Run(context.Background(), m, Options{})
	if err != nil {
		t.Fatalf("right operand evaluated: %v", err)
	}
	if v.Kind != comptime.KindBool || !v.Bool {
		t.Fatalf("true or ... = %s", v)
	}
}
