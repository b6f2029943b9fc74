package lower

import (
	"fmt"

	"fortio.org/safecast"

	"mx/internal/ast"
	"mx/internal/comptime"
	"mx/internal/diag"
	"mx/internal/mxir"
	"mx/internal/operators"
	"mx/internal/source"
	"mx/internal/symbols"
	"mx/internal/types"
)

// DefaultIntName is the type untyped integers settle on when nothing else
// is expected.
const DefaultIntName = "Int64"

// Options configures one lowering run.
type Options struct {
	// Name becomes the module name.
	Name string
	// Entry is the entry function name; "main" when empty.
	Entry string
	// DefaultInt names the integer type for untyped literals.
	DefaultInt string
	Limits     comptime.Limits
	// Imports holds constants exported by imported units. It is read only.
	Imports *comptime.Env
	// Types is the unit's interner; a fresh one is created when nil.
	Types *types.Interner
}

// Lower turns one checked unit into MXIR. Every failure is reported
// through r; the returned module is always usable.
func Lower(b *ast.Builder, file ast.FileID, table *symbols.Table, opts Options, r diag.Reporter) *mxir.Module {
	return New(b, file, table, opts, r).Lower()
}

// Lowerer carries the state of lowering one unit. It is not safe for
// concurrent use.
type Lowerer struct {
	builder  *ast.Builder
	file     ast.FileID
	table    *symbols.Table
	opts     Options
	reporter diag.Reporter

	types      *types.Interner
	prog       *comptime.Program
	eval       *comptime.Evaluator
	ops        *operators.Resolver
	defaultInt types.TypeID
	module     *mxir.Module

	consts   *comptime.Env // импорты, глобальные var как run-time, константы юнита
	exports  *comptime.Env
	failed   map[string]bool
	env      *comptime.Env // consts плюс локальные привязки текущей функции
	prepared bool

	fn    *fnState
	specs map[string]bool
	queue []specialization
}

type fnState struct {
	name   string
	result types.TypeID
}

// specialization is a pending instance of a function with comptime
// parameters.
type specialization struct {
	name string
	fn   *ast.FnItem
	args []comptime.Value
}

// New prepares a lowerer. table may be nil, in which case the unit scope is
// collected silently.
func New(b *ast.Builder, file ast.FileID, table *symbols.Table, opts Options, r diag.Reporter) *Lowerer {
	if r == nil {
		r = diag.NopReporter{}
	}
	if opts.Entry == "" {
		opts.Entry = "main"
	}
	if opts.DefaultInt == "" {
		opts.DefaultInt = DefaultIntName
	}
	in := opts.Types
	if in == nil {
		in = types.NewInterner()
	}
	if table == nil {
		table = symbols.Collect(b, file, opts.Entry, diag.NopReporter{})
	}
	l := &Lowerer{
		builder:  b,
		file:     file,
		table:    table,
		opts:     opts,
		reporter: r,
		types:    in,
		failed:   make(map[string]bool),
		specs:    make(map[string]bool),
	}
	l.prog = comptime.NewProgram(b, file, in, r)
	l.prog.Length = l.listLength
	l.eval = comptime.NewEvaluator(l.prog, opts.Limits)
	l.ops = operators.New(in)
	l.module = mxir.NewModule(opts.Name, in)

	l.defaultInt = in.Builtins().Int64
	if id, ok := in.ByName(opts.DefaultInt); ok && in.MustLookup(id).IsInteger() {
		l.defaultInt = id
	} else {
		l.errorf(diag.SemaUnknownType, source.Span{}, "default integer type '%s' is not an integer type", opts.DefaultInt)
	}
	return l
}

// Module returns the module being built.
func (l *Lowerer) Module() *mxir.Module { return l.module }

// Program returns the declaration view shared with the evaluator.
func (l *Lowerer) Program() *comptime.Program { return l.prog }

// Import replaces the imported constants. It must be called before Lower
// or Exports; the values must already be typed in this unit's interner.
// Struct types of the unit exist once New returns, so importers can
// translate values after New.
func (l *Lowerer) Import(env *comptime.Env) {
	if l.prepared {
		panic("lower: Import after the unit constants were evaluated")
	}
	l.opts.Imports = env
}

// Types returns the unit's interner.
func (l *Lowerer) Types() *types.Interner { return l.types }

// Exports returns the constants this unit declares, for importers.
func (l *Lowerer) Exports() *comptime.Env {
	l.prepare()
	return l.exports
}

// Lower lowers every item of the unit.
func (l *Lowerer) Lower() *mxir.Module {
	l.prepare()
	f := l.builder.Files.Get(l.file)
	if f == nil {
		return l.module
	}
	for _, name := range l.prog.Structs() {
		id, _ := l.types.ByName(name)
		info, _ := l.types.StructInfo(id)
		st := mxir.Struct{Name: name}
		if info != nil {
			for _, fld := range info.Fields {
				st.Fields = append(st.Fields, mxir.Param{Name: fld.Name, Type: fld.Type})
			}
		}
		l.module.Structs = append(l.module.Structs, st)
	}

	// глобальные переменные раньше функций: функциям нужны их типы
	for _, itemID := range f.Items {
		if item := l.builder.Items.Get(itemID); item != nil && item.Kind == ast.ItemVar {
			l.module.Globals = append(l.module.Globals, l.lowerGlobal(itemID))
		}
	}
	for _, itemID := range f.Items {
		item := l.builder.Items.Get(itemID)
		if item == nil {
			continue
		}
		switch item.Kind {
		case ast.ItemFn:
			fn, _ := l.builder.Items.Fn(itemID)
			if fn.Comptime || len(fn.ComptimeParams) > 0 || fn.Name == source.NoStringID {
				continue
			}
			l.module.Funcs = append(l.module.Funcs, l.lowerFunc(l.name(fn.Name), fn, types.NoTypeID, nil))
		case ast.ItemStruct:
			st, _ := l.builder.Items.Struct(itemID)
			self, ok := l.types.ByName(l.name(st.Name))
			if !ok {
				continue
			}
			for _, methodID := range st.Methods {
				fn, ok := l.builder.Items.Fn(methodID)
				if !ok || fn.Comptime {
					continue
				}
				name := l.name(st.Name) + "." + l.name(fn.Name)
				if _, dup := l.module.Func(name); dup {
					continue
				}
				l.module.Funcs = append(l.module.Funcs, l.lowerFunc(name, fn, self, nil))
			}
		}
		l.drain()
	}

	if _, ok := l.module.Func(l.opts.Entry); ok {
		l.module.Entry = l.opts.Entry
	}
	return l.module
}

// prepare evaluates the unit constants in declaration order. Global vars
// are visible to constant initializers only as run-time names.
func (l *Lowerer) prepare() {
	if l.prepared {
		return
	}
	l.prepared = true
	l.consts = l.opts.Imports
	f := l.builder.Files.Get(l.file)
	if f == nil {
		l.env = l.consts
		return
	}
	for _, itemID := range f.Items {
		if item := l.builder.Items.Get(itemID); item != nil && item.Kind == ast.ItemVar {
			let, _ := l.builder.Items.Let(itemID)
			l.consts = l.consts.WithRuntime(l.name(let.Name), types.NoTypeID)
		}
	}
	for _, itemID := range f.Items {
		item := l.builder.Items.Get(itemID)
		if item == nil || item.Kind != ast.ItemConst {
			continue
		}
		let, _ := l.builder.Items.Let(itemID)
		name := l.name(let.Name)
		v, err := l.eval.Evaluate(let.Value, l.consts)
		if err == nil && let.Type.IsValid() {
			if t, ok := l.prog.ResolveType(let.Type); ok {
				v, err = comptime.Materialize(l.types, v, t)
			}
		}
		if err == nil {
			// наружу константа уходит с конкретным типом
			var dv comptime.Value
			if dv, err = comptime.Default(l.types, v, l.defaultInt); err == nil {
				l.consts = l.consts.With(name, v)
				l.exports = l.exports.With(name, v)
				l.module.Consts = append(l.module.Consts, mxir.Const{Name: name, Value: comptime.ToNode(l.types, dv)})
				continue
			}
		}
		l.reportComptime(err, item.Span)
		l.failed[name] = true
		l.module.Consts = append(l.module.Consts, mxir.Const{
			Name:  name,
			Value: &mxir.ErrorMarker{Message: fmt.Sprintf("constant '%s' failed", name)},
		})
	}
	l.env = l.consts
}

func (l *Lowerer) lowerGlobal(itemID ast.ItemID) *mxir.Let {
	let, _ := l.builder.Items.Let(itemID)
	item := l.builder.Items.Get(itemID)
	g := l.lowerLet(let.Name, let.Type, let.Value, item.Span)
	if sym, ok := l.table.LookupUnit(let.Name); ok && sym.Kind == symbols.SymbolVar {
		sym.Type = g.Typ
	}
	return g
}

// lowerFunc lowers one run-time function body. self is the receiver type
// for methods; comptimeArgs bind the comptime parameters of a
// specialization.
func (l *Lowerer) lowerFunc(name string, fn *ast.FnItem, self types.TypeID, comptimeArgs []comptime.Value) *mxir.Func {
	scope := l.table.Enter(symbols.ScopeFunction, fn.NameSpan)
	defer l.table.Leave(scope)
	savedEnv, savedFn := l.env, l.fn
	defer func() { l.env, l.fn = savedEnv, savedFn }()
	l.env = l.consts

	out := &mxir.Func{Name: name, Result: types.VoidID}
	if fn.Result.IsValid() {
		out.Result = types.NoTypeID
		if t, ok := l.prog.ResolveType(fn.Result); ok {
			out.Result = t
		}
	}
	if self != types.NoTypeID {
		l.declare(l.builder.Name("self"), symbols.SymbolParam, self, fn.NameSpan)
		out.Params = append(out.Params, mxir.Param{Name: "self", Type: self})
	}
	for i, prm := range fn.ComptimeParams {
		if i >= len(comptimeArgs) {
			break
		}
		l.declareConst(prm.Name, comptimeArgs[i], prm.Span)
	}
	for _, prm := range fn.Params {
		t, _ := l.prog.ResolveType(prm.Type)
		l.declare(prm.Name, symbols.SymbolParam, t, prm.Span)
		out.Params = append(out.Params, mxir.Param{Name: l.name(prm.Name), Type: t})
	}

	l.fn = &fnState{name: name, result: out.Result}
	out.Body = l.lowerBlock(fn.Body)
	return out
}

// drain lowers queued specializations. Each runs in its own function scope,
// never nested in the caller's.
func (l *Lowerer) drain() {
	for len(l.queue) > 0 {
		next := l.queue[0]
		l.queue = l.queue[1:]
		l.module.Funcs = append(l.module.Funcs, l.lowerFunc(next.name, next.fn, types.NoTypeID, next.args))
	}
}

// declare binds a run-time name in the current scope. Duplicates were
// already reported by the checker.
func (l *Lowerer) declare(name source.StringID, kind symbols.SymbolKind, t types.TypeID, span source.Span) {
	_, _ = l.table.Declare(name, symbols.Symbol{Kind: kind, Type: t, Span: span})
	l.env = l.env.WithRuntime(l.name(name), t)
}

func (l *Lowerer) declareConst(name source.StringID, v comptime.Value, span source.Span) {
	_, _ = l.table.Declare(name, symbols.Symbol{Kind: symbols.SymbolConst, Type: v.Type, Span: span})
	l.env = l.env.With(l.name(name), v)
}

// listLength evaluates the size of a sized list type in the current
// constant environment; functions it calls see only the unit constants.
func (l *Lowerer) listLength(expr ast.ExprID) (uint32, bool) {
	span := l.spanOf(expr)
	v, err := l.eval.EvaluateIn(expr, l.env, l.consts)
	if err != nil {
		l.reportComptime(err, span)
		return 0, false
	}
	if v.Kind != comptime.KindInt || v.Int.Sign() < 0 || !v.Int.IsUint64() || v.Int.Uint64() >= uint64(types.ListDynamicLength) {
		l.errorf(diag.ComptimeInvalidOperand, span, "list length must be a non-negative integer, found %s", v)
		return 0, false
	}
	n, cerr := safecast.Conv[uint32](v.Int.Uint64())
	if cerr != nil {
		panic(fmt.Errorf("list length overflow: %w", cerr))
	}
	return n, true
}

func (l *Lowerer) name(id source.StringID) string {
	return l.builder.NameOf(id)
}

func (l *Lowerer) spanOf(expr ast.ExprID) source.Span {
	if node := l.builder.Exprs.Get(expr); node != nil {
		return node.Span
	}
	return source.Span{}
}

func (l *Lowerer) errorf(code diag.Code, span source.Span, format string, args ...any) {
	diag.ReportError(l.reporter, code, span, fmt.Sprintf(format, args...)).Emit()
}

// reportComptime reports err, anchoring it at span when it has no location.
func (l *Lowerer) reportComptime(err *comptime.Error, span source.Span) {
	if err == nil {
		return
	}
	if err.Span == (source.Span{}) {
		err.Span = span
	}
	err.Report(l.reporter)
}

// marker reports a failure and returns the node standing in for it.
func (l *Lowerer) marker(code diag.Code, span source.Span, format string, args ...any) mxir.Node {
	msg := fmt.Sprintf(format, args...)
	diag.ReportError(l.reporter, code, span, msg).Emit()
	return &mxir.ErrorMarker{Message: msg}
}
