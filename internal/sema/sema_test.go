package sema

import (
	"testing"

	"mx/internal/ast"
	"mx/internal/diag"
	"mx/internal/symbols"
	"mx/internal/testkit"
)

func check(t *testing.T, k *testkit.Kit) *diag.Bag {
	t.Helper()
	bag := diag.NewBag(100)
	r := diag.BagReporter{Bag: bag}
	table := symbols.Collect(k.B, k.File, DefaultEntry, r)
	depth := table.Depth()
	Check(k.B, k.File, table, Options{}, r)
	if table.Depth() != depth {
		t.Fatalf("checker leaked scopes: %d != %d", table.Depth(), depth)
	}
	return bag
}

func TestEntryPoint(t *testing.T) {
	tests := []struct {
		name      string
		mains     int
		missing   int
		duplicate int
	}{
		{"none", 0, 1, 0},
		{"one", 1, 0, 0},
		{"two", 2, 0, 1},
		{"three", 3, 0, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := testkit.New()
			k.Fn("helper", nil, ast.NoTypeExprID, k.Block())
			for range tt.mains {
				k.Main()
			}
			bag := check(t, k)
			if got := bag.Count(diag.SemaMissingEntryPoint); got != tt.missing {
				t.Errorf("MissingEntryPoint: got %d, want %d", got, tt.missing)
			}
			if got := bag.Count(diag.SemaDuplicateEntryPoint); got != tt.duplicate {
				t.Errorf("DuplicateEntryPoint: got %d, want %d", got, tt.duplicate)
			}
			if got := bag.Count(diag.SemaDuplicateDeclaration); got != 0 {
				t.Errorf("entry duplicates must not double-report, got %d", got)
			}
		})
	}
}

func TestLibraryNeedsNoEntryPoint(t *testing.T) {
	k := testkit.New()
	k.GlobalConst("BASE", ast.NoTypeExprID, k.I(40))
	bag := diag.NewBag(100)
	r := diag.BagReporter{Bag: bag}
	table := symbols.Collect(k.B, k.File, DefaultEntry, r)
	if res := Check(k.B, k.File, table, Options{Library: true}, r); res.Errors != 0 {
		t.Fatalf("library unit reported errors: %+v", bag.Items())
	}
}

func TestEntryPointIgnoresConstNamedMain(t *testing.T) {
	k := testkit.New()
	k.GlobalConst("main", ast.NoTypeExprID, k.I(1))
	bag := check(t, k)
	if bag.Count(diag.SemaMissingEntryPoint) != 1 {
		t.Fatalf("a const named main is not an entry function: %+v", bag.Items())
	}
}

func TestReturnCoverage(t *testing.T) {
	tests := []struct {
		name    string
		body    func(k *testkit.Kit) ast.StmtID
		missing bool
	}{
		{
			name: "if without else",
			body: func(k *testkit.Kit) ast.StmtID {
				return k.Block(k.If(k.Ident("cond"), k.Block(k.Return(k.I(1))), ast.NoStmtID))
			},
			missing: true,
		},
		{
			name: "if with else",
			body: func(k *testkit.Kit) ast.StmtID {
				return k.Block(k.If(k.Ident("cond"), k.Block(k.Return(k.I(1))), k.Block(k.Return(k.I(0)))))
			},
		},
		{
			name: "else branch falls through",
			body: func(k *testkit.Kit) ast.StmtID {
				return k.Block(k.If(k.Ident("cond"), k.Block(k.Return(k.I(1))), k.Block()))
			},
			missing: true,
		},
		{
			name: "else if chain",
			body: func(k *testkit.Kit) ast.StmtID {
				inner := k.If(k.Ident("cond"), k.Block(k.Return(k.I(2))), k.Block(k.Return(k.I(3))))
				return k.Block(k.If(k.Ident("cond"), k.Block(k.Return(k.I(1))), inner))
			},
		},
		{
			name: "trailing return",
			body: func(k *testkit.Kit) ast.StmtID {
				return k.Block(k.If(k.Ident("cond"), k.Block(k.Return(k.I(1))), ast.NoStmtID), k.Return(k.I(0)))
			},
		},
		{
			name: "infinite loop without break",
			body: func(k *testkit.Kit) ast.StmtID {
				return k.Block(k.Loop(k.Block(k.If(k.Ident("cond"), k.Block(k.Return(k.I(1))), ast.NoStmtID))))
			},
		},
		{
			name: "loop with break",
			body: func(k *testkit.Kit) ast.StmtID {
				return k.Block(k.Loop(k.Block(k.If(k.Ident("cond"), k.Block(k.Break()), ast.NoStmtID))))
			},
			missing: true,
		},
		{
			name: "break of a nested loop does not escape",
			body: func(k *testkit.Kit) ast.StmtID {
				return k.Block(k.Loop(k.Block(k.Loop(k.Block(k.Break())), k.Return(k.I(1)))))
			},
		},
		{
			name: "conditional loop",
			body: func(k *testkit.Kit) ast.StmtID {
				return k.Block(k.While(k.Ident("cond"), k.Block(k.Return(k.I(1)))))
			},
			missing: true,
		},
		{
			name: "while true",
			body: func(k *testkit.Kit) ast.StmtID {
				return k.Block(k.While(k.Bool(true), k.Block(k.Return(k.I(1)))))
			},
		},
		{
			name: "empty body",
			body: func(k *testkit.Kit) ast.StmtID {
				return k.Block()
			},
			missing: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := testkit.New()
			k.Main()
			k.Fn("f", []ast.FnParam{k.P("cond", k.T("Bool"))}, k.T("Int32"), tt.body(k))
			bag := check(t, k)
			got := bag.Count(diag.SemaMissingReturn) == 1
			if got != tt.missing {
				t.Fatalf("MissingReturn = %v, want %v (%+v)", got, tt.missing, bag.Items())
			}
		})
	}
}

func TestVoidFunctionNeedsNoReturn(t *testing.T) {
	k := testkit.New()
	k.Main()
	k.Fn("log", nil, k.T("Void"), k.Block(k.ExprStmt(k.I(1))))
	k.Fn("log2", nil, ast.NoTypeExprID, k.Block())
	if bag := check(t, k); bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %+v", bag.Items())
	}
}

func TestAccumulatesDiagnostics(t *testing.T) {
	k := testkit.New()
	k.Fn("f", []ast.FnParam{k.P("a", k.T("Int32")), k.P("a", k.T("Int32"))}, k.T("Int32"),
		k.Block(
			k.Var("x", ast.NoTypeExprID, k.I(1)),
			k.Var("x", ast.NoTypeExprID, k.I(2)),
			k.Break(),
		))
	k.Fn("", nil, ast.NoTypeExprID, k.Block(k.Return(k.I(1))))
	bag := check(t, k)
	for _, code := range []diag.Code{
		diag.SemaMissingEntryPoint,
		diag.SemaDuplicateParamName,
		diag.SemaDuplicateDeclaration,
		diag.SemaBreakOutsideLoop,
		diag.SemaMissingReturn,
		diag.SemaMissingFunctionName,
		diag.SemaReturnValueMismatch,
	} {
		if bag.Count(code) != 1 {
			t.Errorf("expected one %s, got %d", code.ID(), bag.Count(code))
		}
	}
}

func TestStructMembers(t *testing.T) {
	k := testkit.New()
	k.Main()
	add := k.Method("Point", "add", false, []ast.FnParam{k.P("other", k.T("Point"))}, k.T("Point"),
		k.Block(k.Return(k.Ident("self"))))
	dup := k.Method("Point", "x", false, nil, k.T("Int32"), k.Block(k.Return(k.I(0))))
	k.Struct("Point", []ast.StructField{k.SField("x", k.T("Int32")), k.SField("y", k.T("Int32")), k.SField("y", k.T("Int32"))}, add, dup)
	bag := check(t, k)
	if bag.Count(diag.SemaDuplicateDeclaration) != 2 {
		t.Fatalf("expected duplicate field and member, got %+v", bag.Items())
	}
}
