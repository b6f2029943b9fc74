// Package testkit builds small ASTs for tests without going through a parser.
package testkit

import (
	"fmt"

	"mx/internal/ast"
	"mx/internal/source"
)

// Kit wraps a builder and one file. Every node gets a distinct span so
// diagnostics can be told apart.
type Kit struct {
	B    *ast.Builder
	File ast.FileID
	pos  uint32
}

func New() *Kit {
	b := ast.NewBuilder(ast.Hints{}, nil)
	return &Kit{B: b, File: b.NewFile(source.Span{Start: 0, End: 1 << 20}, "test")}
}

func (k *Kit) sp() source.Span {
	k.pos += 2
	return source.Span{Start: k.pos, End: k.pos + 1}
}

// Span returns the span of an expression.
func (k *Kit) Span(e ast.ExprID) source.Span {
	return k.B.Exprs.Get(e).Span
}

// Expressions ----------------------------------------------------------------

func (k *Kit) Int(text string) ast.ExprID {
	return k.B.Exprs.NewLiteral(k.sp(), ast.ExprIntLit, k.B.Name(text))
}

func (k *Kit) I(v int64) ast.ExprID {
	return k.Int(fmt.Sprint(v))
}

func (k *Kit) Float(text string) ast.ExprID {
	return k.B.Exprs.NewLiteral(k.sp(), ast.ExprFloatLit, k.B.Name(text))
}

func (k *Kit) Bool(v bool) ast.ExprID {
	return k.B.Exprs.NewLiteral(k.sp(), ast.ExprBoolLit, k.B.Name(fmt.Sprint(v)))
}

func (k *Kit) Str(text string) ast.ExprID {
	return k.B.Exprs.NewStringLit(k.sp(), []ast.StringPart{{Text: k.B.Name(text)}})
}

// Interp builds an interpolated string from string and ast.ExprID parts.
func (k *Kit) Interp(parts ...any) ast.ExprID {
	out := make([]ast.StringPart, 0, len(parts))
	for _, p := range parts {
		switch v := p.(type) {
		case string:
			out = append(out, ast.StringPart{Text: k.B.Name(v)})
		case ast.ExprID:
			out = append(out, ast.StringPart{Expr: v})
		}
	}
	return k.B.Exprs.NewStringLit(k.sp(), out)
}

func (k *Kit) Ident(name string) ast.ExprID {
	return k.B.Exprs.NewIdent(k.sp(), k.B.Name(name))
}

// Bin builds a binary expression from its surface token.
func (k *Kit) Bin(op string, l, r ast.ExprID) ast.ExprID {
	bop, ok := ast.ParseBinaryOp(op)
	if !ok {
		panic("testkit: unknown operator " + op)
	}
	return k.B.Exprs.NewBinary(k.sp(), bop, l, r)
}

func (k *Kit) Neg(x ast.ExprID) ast.ExprID {
	return k.B.Exprs.NewUnary(k.sp(), ast.ExprUnaryMinus, x)
}

func (k *Kit) Not(x ast.ExprID) ast.ExprID {
	return k.B.Exprs.NewUnary(k.sp(), ast.ExprUnaryNot, x)
}

func (k *Kit) Call(name string, args ...ast.ExprID) ast.ExprID {
	return k.B.Exprs.NewCall(k.sp(), k.Ident(name), args)
}

func (k *Kit) ComptimeCall(name string, comptimeArgs []ast.ExprID, args ...ast.ExprID) ast.ExprID {
	return k.B.Exprs.NewComptimeCall(k.sp(), k.Ident(name), comptimeArgs, args)
}

// FieldInit pairs a field name with its initializer.
type FieldInit struct {
	Name  string
	Value ast.ExprID
}

func (k *Kit) StructLit(name string, fields ...FieldInit) ast.ExprID {
	out := make([]ast.ExprStructField, 0, len(fields))
	for _, f := range fields {
		out = append(out, ast.ExprStructField{Name: k.B.Name(f.Name), Value: f.Value, Span: k.sp()})
	}
	return k.B.Exprs.NewStructInit(k.sp(), k.B.Name(name), out)
}

func (k *Kit) Member(target ast.ExprID, field string) ast.ExprID {
	return k.B.Exprs.NewMember(k.sp(), target, k.B.Name(field))
}

func (k *Kit) Range(start, end ast.ExprID) ast.ExprID {
	return k.B.Exprs.NewRange(k.sp(), start, end)
}

func (k *Kit) List(elems ...ast.ExprID) ast.ExprID {
	return k.B.Exprs.NewList(k.sp(), elems)
}

func (k *Kit) Map(entries ...ast.ExprMapEntry) ast.ExprID {
	return k.B.Exprs.NewMap(k.sp(), entries)
}

// Types ----------------------------------------------------------------------

func (k *Kit) T(name string) ast.TypeExprID {
	return k.B.Types.NewNamed(k.sp(), k.B.Name(name))
}

func (k *Kit) ListT(elem ast.TypeExprID, length ast.ExprID) ast.TypeExprID {
	return k.B.Types.NewList(k.sp(), elem, length)
}

// Statements -----------------------------------------------------------------

func (k *Kit) Block(stmts ...ast.StmtID) ast.StmtID {
	return k.B.Stmts.NewBlock(k.sp(), stmts)
}

func (k *Kit) Var(name string, typ ast.TypeExprID, value ast.ExprID) ast.StmtID {
	return k.B.Stmts.NewLet(k.sp(), false, ast.LetStmt{Name: k.B.Name(name), NameSpan: k.sp(), Type: typ, Value: value})
}

func (k *Kit) Const(name string, typ ast.TypeExprID, value ast.ExprID) ast.StmtID {
	return k.B.Stmts.NewLet(k.sp(), true, ast.LetStmt{Name: k.B.Name(name), NameSpan: k.sp(), Type: typ, Value: value})
}

func (k *Kit) If(cond ast.ExprID, then, els ast.StmtID) ast.StmtID {
	return k.B.Stmts.NewIf(k.sp(), cond, then, els)
}

func (k *Kit) Loop(body ast.StmtID) ast.StmtID {
	return k.B.Stmts.NewLoop(k.sp(), ast.NoExprID, body)
}

func (k *Kit) While(cond ast.ExprID, body ast.StmtID) ast.StmtID {
	return k.B.Stmts.NewLoop(k.sp(), cond, body)
}

func (k *Kit) Break() ast.StmtID    { return k.B.Stmts.NewBreak(k.sp()) }
func (k *Kit) Continue() ast.StmtID { return k.B.Stmts.NewContinue(k.sp()) }

func (k *Kit) Return(value ast.ExprID) ast.StmtID {
	return k.B.Stmts.NewReturn(k.sp(), value)
}

func (k *Kit) ExprStmt(e ast.ExprID) ast.StmtID {
	return k.B.Stmts.NewExpr(k.sp(), e)
}

func (k *Kit) Assign(name string, value ast.ExprID) ast.StmtID {
	return k.B.Stmts.NewAssign(k.sp(), k.Ident(name), value)
}

// Items ----------------------------------------------------------------------

func (k *Kit) P(name string, typ ast.TypeExprID) ast.FnParam {
	return ast.FnParam{Name: k.B.Name(name), Type: typ, Span: k.sp()}
}

// Fn declares a top-level function. result may be NoTypeExprID for Void.
func (k *Kit) Fn(name string, params []ast.FnParam, result ast.TypeExprID, body ast.StmtID) ast.ItemID {
	return k.push(k.fn(name, false, params, result, body, ""))
}

// ComptimeFn declares a top-level comptime function.
func (k *Kit) ComptimeFn(name string, params []ast.FnParam, result ast.TypeExprID, body ast.StmtID) ast.ItemID {
	return k.push(k.fn(name, true, params, result, body, ""))
}

// Generic declares a run-time function with comptime parameters.
func (k *Kit) Generic(name string, comptimeParams, params []ast.FnParam, result ast.TypeExprID, body ast.StmtID) ast.ItemID {
	id := k.fn(name, false, params, result, body, "")
	fn, _ := k.B.Items.Fn(id)
	fn.ComptimeParams = comptimeParams
	return k.push(id)
}

// Method declares a method of recv; it is attached by Struct.
func (k *Kit) Method(recv, name string, comptime bool, params []ast.FnParam, result ast.TypeExprID, body ast.StmtID) ast.ItemID {
	return k.fn(name, comptime, params, result, body, recv)
}

func (k *Kit) fn(name string, comptime bool, params []ast.FnParam, result ast.TypeExprID, body ast.StmtID, recv string) ast.ItemID {
	fn := ast.FnItem{
		Name:     k.B.Name(name),
		NameSpan: k.sp(),
		Comptime: comptime,
		Params:   params,
		Result:   result,
		Body:     body,
	}
	if recv != "" {
		fn.Receiver = k.B.Name(recv)
	}
	return k.B.Items.NewFn(k.sp(), fn)
}

func (k *Kit) SField(name string, typ ast.TypeExprID) ast.StructField {
	return ast.StructField{Name: k.B.Name(name), Type: typ, Span: k.sp()}
}

func (k *Kit) Struct(name string, fields []ast.StructField, methods ...ast.ItemID) ast.ItemID {
	return k.push(k.B.Items.NewStruct(k.sp(), ast.StructItem{
		Name:     k.B.Name(name),
		NameSpan: k.sp(),
		Fields:   fields,
		Methods:  methods,
	}))
}

func (k *Kit) GlobalConst(name string, typ ast.TypeExprID, value ast.ExprID) ast.ItemID {
	return k.push(k.B.Items.NewLet(k.sp(), true, ast.LetItem{Name: k.B.Name(name), NameSpan: k.sp(), Type: typ, Value: value}))
}

func (k *Kit) GlobalVar(name string, typ ast.TypeExprID, value ast.ExprID) ast.ItemID {
	return k.push(k.B.Items.NewLet(k.sp(), false, ast.LetItem{Name: k.B.Name(name), NameSpan: k.sp(), Type: typ, Value: value}))
}

func (k *Kit) push(id ast.ItemID) ast.ItemID {
	k.B.PushItem(k.File, id)
	return id
}

// Factorial declares the classic recursive comptime factorial over Int64.
func (k *Kit) Factorial() ast.ItemID {
	n := func() ast.ExprID { return k.Ident("n") }
	body := k.Block(
		k.If(k.Bin("==", n(), k.I(0)), k.Block(k.Return(k.I(1))), ast.NoStmtID),
		k.Return(k.Bin("*", n(), k.Call("factorial", k.Bin("-", n(), k.I(1))))),
	)
	return k.ComptimeFn("factorial", []ast.FnParam{k.P("n", k.T("Int64"))}, k.T("Int64"), body)
}

// Main declares `fn main(): Int32 { return 0; }`.
func (k *Kit) Main() ast.ItemID {
	return k.Fn("main", nil, k.T("Int32"), k.Block(k.Return(k.I(0))))
}
