package comptime

import (
	"math/big"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"mx/internal/ast"
	"mx/internal/diag"
	"mx/internal/operators"
	"mx/internal/source"
	"mx/internal/types"
)

// Limits bounds one top-level evaluation.
type Limits struct {
	MaxDepth int
	MaxSteps int
}

// DefaultLimits returns the budgets used when nothing is configured.
func DefaultLimits() Limits {
	return Limits{MaxDepth: 256, MaxSteps: 1_000_000}
}

// Evaluator runs comptime expressions and functions of one program. It is
// not safe for concurrent use; every unit owns its own evaluator.
type Evaluator struct {
	prog   *Program
	ops    *operators.Resolver
	limits Limits

	root   *Env
	depth  int
	steps  int
	active bool
}

// NewEvaluator binds an evaluator to a program. Zero limits fall back to
// the defaults.
func NewEvaluator(p *Program, limits Limits) *Evaluator {
	def := DefaultLimits()
	if limits.MaxDepth <= 0 {
		limits.MaxDepth = def.MaxDepth
	}
	if limits.MaxSteps <= 0 {
		limits.MaxSteps = def.MaxSteps
	}
	return &Evaluator{prog: p, ops: operators.New(p.Types), limits: limits}
}

// Program returns the declaration view.
func (e *Evaluator) Program() *Program { return e.prog }

// Limits returns the effective budgets.
func (e *Evaluator) Limits() Limits { return e.limits }

// Steps reports the steps spent by the last top-level evaluation.
func (e *Evaluator) Steps() int { return e.steps }

// begin starts a top-level evaluation whose called functions see root.
// Nested entries share its counters and root: resolving a sized list type
// inside a call re-enters Evaluate through the lowerer's length callback.
func (e *Evaluator) begin(root *Env) func() {
	if e.active {
		return func() {}
	}
	e.active = true
	e.root = root
	e.depth, e.steps = 0, 0
	return func() { e.active = false }
}

// Evaluate computes expr under env. Functions it calls see env too; use
// EvaluateIn when env holds function-local bindings.
func (e *Evaluator) Evaluate(expr ast.ExprID, env *Env) (Value, *Error) {
	return e.EvaluateIn(expr, env, env)
}

// EvaluateIn computes expr under env while the functions it calls resolve
// names against root, the unit's constants.
func (e *Evaluator) EvaluateIn(expr ast.ExprID, env, root *Env) (Value, *Error) {
	defer e.begin(root)()
	return e.eval(expr, newFrame(env))
}

// Call invokes a comptime function with already evaluated arguments.
// Comptime parameters come first, then regular ones. The body sees root
// and its own parameters, never the caller's locals.
func (e *Evaluator) Call(name string, args []Value, span source.Span, root *Env) (Value, *Error) {
	defer e.begin(root)()
	fn, ok := e.prog.Function(name)
	if !ok {
		return Value{}, errorf(diag.ComptimeUnknownSymbol, "unknown comptime function '%s'", name).at(span)
	}
	return e.call(name, fn, nil, args, span)
}

// CallMethod invokes a comptime method with an evaluated receiver.
func (e *Evaluator) CallMethod(structName, method string, recv Value, args []Value, span source.Span, root *Env) (Value, *Error) {
	defer e.begin(root)()
	v, err := e.callMethod(structName, method, recv, args, span)
	return v, err.at(span)
}

func (e *Evaluator) step(span source.Span) *Error {
	e.steps++
	if e.steps > e.limits.MaxSteps {
		return errorf(diag.ComptimeEvaluationLimit, "comptime evaluation exceeded %d steps", e.limits.MaxSteps).at(span)
	}
	return nil
}

func (e *Evaluator) name(id source.StringID) string {
	return e.prog.Builder.NameOf(id)
}

func (e *Evaluator) eval(expr ast.ExprID, f *frame) (Value, *Error) {
	node := e.prog.Builder.Exprs.Get(expr)
	if node == nil {
		return Value{}, errorf(diag.ComptimeUnsupportedConstruct, "missing expression")
	}
	if err := e.step(node.Span); err != nil {
		return Value{}, err
	}
	v, err := e.evalNode(expr, node, f)
	return v, err.at(node.Span)
}

func (e *Evaluator) evalNode(expr ast.ExprID, node *ast.Expr, f *frame) (Value, *Error) {
	b := e.prog.Builder
	in := e.prog.Types
	switch node.Kind {
	case ast.ExprIntLit:
		lit, _ := b.Exprs.Literal(expr)
		return ParseInt(e.name(lit.Value), in)
	case ast.ExprFloatLit:
		lit, _ := b.Exprs.Literal(expr)
		return ParseFloat(e.name(lit.Value), in)
	case ast.ExprBoolLit:
		lit, _ := b.Exprs.Literal(expr)
		return Bool(e.name(lit.Value) == "true"), nil
	case ast.ExprStringLit:
		return e.evalString(expr, f)
	case ast.ExprIdent:
		id, _ := b.Exprs.Ident(expr)
		return e.lookup(e.name(id.Name), f)
	case ast.ExprBinary:
		return e.evalBinary(expr, f)
	case ast.ExprUnary:
		un, _ := b.Exprs.Unary(expr)
		v, err := e.eval(un.Operand, f)
		if err != nil {
			return Value{}, err
		}
		res, fail := e.ops.Unary(un.Op, v.Type)
		if fail != nil {
			return Value{}, errorf(fail.Code, "%s", fail.Message)
		}
		if res.Kind == operators.KindMethod {
			return e.callMethod(res.Struct, res.Method.Name, v, nil, node.Span)
		}
		return Unary(in, res.Unary, v)
	case ast.ExprCall:
		call, _ := b.Exprs.Call(expr)
		return e.evalCall(call.Callee, nil, call.Args, node.Span, f)
	case ast.ExprComptimeCall:
		call, _ := b.Exprs.ComptimeCall(expr)
		return e.evalCall(call.Callee, call.ComptimeArgs, call.Args, node.Span, f)
	case ast.ExprStructInit:
		return e.evalStruct(expr, f)
	case ast.ExprMember:
		m, _ := b.Exprs.Member(expr)
		target, err := e.eval(m.Target, f)
		if err != nil {
			return Value{}, err
		}
		field := e.name(m.Field)
		if target.Kind != KindStruct {
			return Value{}, errorf(diag.SemaUnknownField, "%s has no field '%s'", in.Name(target.Type), field)
		}
		v, ok := target.Field(field)
		if !ok {
			return Value{}, errorf(diag.SemaUnknownField, "struct %s has no field '%s'", in.Name(target.Type), field)
		}
		return v, nil
	case ast.ExprRange:
		r, _ := b.Exprs.Range(expr)
		var start, end *Value
		for _, bound := range []struct {
			id  ast.ExprID
			dst **Value
		}{{r.Start, &start}, {r.End, &end}} {
			if !bound.id.IsValid() {
				continue
			}
			v, err := e.eval(bound.id, f)
			if err != nil {
				return Value{}, err
			}
			if v.Kind != KindInt {
				return Value{}, errorf(diag.ComptimeInvalidOperand, "range bound must be an integer, found %s", in.Name(v.Type))
			}
			*bound.dst = &v
		}
		return Range(start, end), nil
	case ast.ExprListLit, ast.ExprMapLit:
		return Value{}, errorf(diag.ComptimeUnsupportedConstruct, "%s is not supported at compile time", node.Kind)
	}
	return Value{}, errorf(diag.ComptimeUnsupportedConstruct, "%s is not supported at compile time", node.Kind)
}

// ParseInt parses an integer literal (decimal, 0x, 0o, 0b, underscores).
func ParseInt(text string, in *types.Interner) (Value, *Error) {
	v, ok := new(big.Int).SetString(text, 0)
	if !ok {
		return Value{}, errorf(diag.ComptimeInvalidOperand, "malformed integer literal %q", text)
	}
	return Int(v, in.Builtins().UntypedInt), nil
}

// ParseFloat parses a float literal.
func ParseFloat(text string, in *types.Interner) (Value, *Error) {
	f, err := strconv.ParseFloat(strings.ReplaceAll(text, "_", ""), 64)
	if err != nil {
		return Value{}, errorf(diag.ComptimeInvalidOperand, "malformed float literal %q", text)
	}
	return Float(f, in.Builtins().UntypedFloat), nil
}

func (e *Evaluator) evalString(expr ast.ExprID, f *frame) (Value, *Error) {
	lit, _ := e.prog.Builder.Exprs.StringLit(expr)
	var sb strings.Builder
	for _, part := range lit.Parts {
		if !part.Expr.IsValid() {
			sb.WriteString(e.name(part.Text))
			continue
		}
		v, err := e.eval(part.Expr, f)
		if err != nil {
			return Value{}, err
		}
		sb.WriteString(v.String())
	}
	return Str(norm.NFC.String(sb.String())), nil
}

func (e *Evaluator) lookup(name string, f *frame) (Value, *Error) {
	if v, ok := f.get(name); ok {
		return v, nil
	}
	if b, ok := f.env.Lookup(name); ok {
		if b.Runtime {
			return Value{}, errorf(diag.ComptimeUnknownSymbol, "'%s' is a run-time value and cannot be used at compile time", name)
		}
		return b.Value, nil
	}
	if _, ok := e.prog.Function(name); ok {
		return Value{}, errorf(diag.ComptimeInvalidOperand, "function '%s' used as a value", name)
	}
	return Value{}, errorf(diag.ComptimeUnknownSymbol, "unknown comptime symbol '%s'", name)
}

func (e *Evaluator) evalBinary(expr ast.ExprID, f *frame) (Value, *Error) {
	bin, _ := e.prog.Builder.Exprs.Binary(expr)
	l, err := e.eval(bin.Left, f)
	if err != nil {
		return Value{}, err
	}
	if bin.Op.IsLogical() && l.Kind == KindBool {
		// короткое замыкание
		if bin.Op == ast.ExprBinaryLogicalAnd && !l.Bool {
			return Bool(false), nil
		}
		if bin.Op == ast.ExprBinaryLogicalOr && l.Bool {
			return Bool(true), nil
		}
	}
	r, err := e.eval(bin.Right, f)
	if err != nil {
		return Value{}, err
	}
	res, fail := e.ops.Binary(bin.Op, l.Type, r.Type)
	if fail != nil {
		return Value{}, errorf(fail.Code, "%s", fail.Message)
	}
	if res.Kind == operators.KindMethod {
		return e.callMethod(res.Struct, res.Method.Name, l, []Value{r}, e.prog.Builder.Exprs.Get(expr).Span)
	}
	return Binary(e.prog.Types, res.Op, l, r)
}

func (e *Evaluator) evalCall(callee ast.ExprID, comptimeArgs, args []ast.ExprID, span source.Span, f *frame) (Value, *Error) {
	b := e.prog.Builder
	node := b.Exprs.Get(callee)
	if node == nil {
		return Value{}, errorf(diag.SemaInvalidCall, "missing callee")
	}
	values := make([]Value, 0, len(comptimeArgs)+len(args))
	for _, group := range [][]ast.ExprID{comptimeArgs, args} {
		for _, a := range group {
			v, err := e.eval(a, f)
			if err != nil {
				return Value{}, err
			}
			values = append(values, v)
		}
	}
	switch node.Kind {
	case ast.ExprIdent:
		id, _ := b.Exprs.Ident(callee)
		name := e.name(id.Name)
		fn, ok := e.prog.Function(name)
		if !ok {
			if _, bound := f.get(name); bound {
				return Value{}, errorf(diag.SemaInvalidCall, "'%s' is not a function", name)
			}
			if _, bound := f.env.Lookup(name); bound {
				return Value{}, errorf(diag.SemaInvalidCall, "'%s' is not a function", name)
			}
			return Value{}, errorf(diag.ComptimeUnknownSymbol, "unknown comptime function '%s'", name)
		}
		return e.call(name, fn, nil, values, span)
	case ast.ExprMember:
		m, _ := b.Exprs.Member(callee)
		recv, err := e.eval(m.Target, f)
		if err != nil {
			return Value{}, err
		}
		if recv.Kind != KindStruct {
			return Value{}, errorf(diag.SemaInvalidCall, "%s has no methods", e.prog.Types.Name(recv.Type))
		}
		return e.callMethod(e.prog.Types.Name(recv.Type), e.name(m.Field), recv, values, span)
	}
	return Value{}, errorf(diag.SemaInvalidCall, "expression is not callable")
}

func (e *Evaluator) callMethod(structName, method string, recv Value, args []Value, span source.Span) (Value, *Error) {
	fn, ok := e.prog.Method(structName, method)
	if !ok {
		return Value{}, errorf(diag.SemaUnknownField, "struct %s has no method '%s'", structName, method)
	}
	return e.call(structName+"."+method, fn, &recv, args, span)
}

// call runs fn in a fresh frame over the root env.
func (e *Evaluator) call(name string, fn *ast.FnItem, recv *Value, args []Value, span source.Span) (Value, *Error) {
	if !fn.Comptime {
		return Value{}, errorf(diag.ComptimeNotComptime, "'%s' is not a comptime function", name).at(span)
	}
	params := make([]ast.FnParam, 0, len(fn.ComptimeParams)+len(fn.Params))
	params = append(append(params, fn.ComptimeParams...), fn.Params...)
	if len(args) != len(params) {
		return Value{}, errorf(diag.SemaIncorrectArgCount, "'%s' expects %d argument(s), got %d", name, len(params), len(args)).at(span)
	}

	e.depth++
	defer func() { e.depth-- }()
	if e.depth > e.limits.MaxDepth {
		return Value{}, errorf(diag.ComptimeEvaluationLimit, "comptime call depth exceeded %d", e.limits.MaxDepth).at(span)
	}

	f := newFrame(e.root)
	if recv != nil {
		f.declare("self", *recv)
	}
	for i, prm := range params {
		v := args[i]
		if t, ok := e.prog.ResolveType(prm.Type); ok {
			mv, err := Materialize(e.prog.Types, v, t)
			if err != nil {
				return Value{}, e.trace(err.at(span), name, span)
			}
			v = mv
		}
		f.declare(e.name(prm.Name), v)
	}

	result := types.VoidID
	if fn.Result.IsValid() {
		if t, ok := e.prog.ResolveType(fn.Result); ok {
			result = t
		}
	}

	flow, v, err := e.exec(fn.Body, f)
	if err != nil {
		return Value{}, e.trace(err, name, span)
	}
	if flow != flowReturn || !v.IsValid() {
		if result == types.VoidID {
			return Void(), nil
		}
		return Value{}, e.trace(errorf(diag.ComptimeMissingReturn, "comptime function '%s' finished without returning a value", name).at(span), name, span)
	}
	mv, merr := Materialize(e.prog.Types, v, result)
	if merr != nil {
		return Value{}, e.trace(merr.at(span), name, span)
	}
	return mv, nil
}

func (e *Evaluator) trace(err *Error, name string, span source.Span) *Error {
	err.Backtrace = append(err.Backtrace, Frame{Function: name, Span: span})
	return err
}

func (e *Evaluator) evalStruct(expr ast.ExprID, f *frame) (Value, *Error) {
	in := e.prog.Types
	lit, _ := e.prog.Builder.Exprs.StructInit(expr)
	name := e.name(lit.Type)
	id, ok := in.ByName(name)
	info, isStruct := in.StructInfo(id)
	if !ok || !isStruct {
		return Value{}, errorf(diag.SemaUnknownType, "unknown struct '%s'", name)
	}
	given := make(map[string]Value, len(lit.Fields))
	for _, fi := range lit.Fields {
		fname := e.name(fi.Name)
		decl, _, ok := info.Field(fname)
		if !ok {
			return Value{}, errorf(diag.SemaUnknownField, "struct %s has no field '%s'", name, fname).at(fi.Span)
		}
		v, err := e.eval(fi.Value, f)
		if err != nil {
			return Value{}, err
		}
		mv, err := Materialize(in, v, decl.Type)
		if err != nil {
			return Value{}, err.at(fi.Span)
		}
		given[fname] = mv
	}
	fields := make([]Field, 0, len(info.Fields))
	for _, decl := range info.Fields {
		v, ok := given[decl.Name]
		if !ok {
			v = Zero(in, decl.Type)
		}
		fields = append(fields, Field{Name: decl.Name, Value: v})
	}
	return Struct(id, fields), nil
}
