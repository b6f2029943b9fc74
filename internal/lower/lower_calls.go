package lower

import (
	"fmt"
	"strconv"
	"strings"

	"mx/internal/ast"
	"mx/internal/comptime"
	"mx/internal/diag"
	"mx/internal/mxir"
	"mx/internal/source"
	"mx/internal/types"
)

// PrintBuiltin is the run-time output function every unit may call.
const PrintBuiltin = "print"

func (l *Lowerer) lowerCall(callee ast.ExprID, comptimeArgs, args []ast.ExprID, span source.Span) mxir.Node {
	node := l.builder.Exprs.Get(callee)
	if node == nil {
		return l.marker(diag.SemaInvalidCall, span, "missing callee")
	}
	switch node.Kind {
	case ast.ExprIdent:
		id, _ := l.builder.Exprs.Ident(callee)
		name := l.name(id.Name)
		if sym, ok := l.table.LookupSymbol(id.Name); ok && !sym.Kind.IsFunction() {
			return l.marker(diag.SemaInvalidCall, span, "'%s' is a %s, not a function", name, sym.Kind)
		}
		fn, ok := l.prog.Function(name)
		if !ok {
			if name == PrintBuiltin && len(comptimeArgs) == 0 {
				return l.lowerPrint(args)
			}
			return l.marker(diag.SemaUnresolvedSymbol, node.Span, "unknown function '%s'", name)
		}
		return l.lowerFnCall(name, fn, comptimeArgs, args, span)
	case ast.ExprMember:
		m, _ := l.builder.Exprs.Member(callee)
		recv := l.lowerExpr(m.Target)
		if failed(recv) {
			return recv
		}
		mname := l.name(m.Field)
		info, ok := l.types.StructInfo(recv.Type())
		if !ok {
			return l.marker(diag.SemaInvalidCall, span, "%s has no methods", l.types.Name(recv.Type()))
		}
		method, ok := info.Methods[mname]
		if !ok {
			return l.marker(diag.SemaUnknownField, span, "struct %s has no method '%s'", info.Name, mname)
		}
		if len(comptimeArgs) > 0 {
			return l.marker(diag.SemaInvalidCall, span, "method '%s.%s' takes no comptime arguments", info.Name, mname)
		}
		if len(args) != len(method.Params) {
			return l.marker(diag.SemaIncorrectArgCount, span, "'%s.%s' expects %d argument(s), got %d", info.Name, mname, len(method.Params), len(args))
		}
		nodes, bad := l.lowerArgs(args, method.Params)
		if bad != nil {
			return bad
		}
		return l.invokeMethod(info.Name, method, recv, nodes, span)
	}
	return l.marker(diag.SemaInvalidCall, span, "expression is not callable")
}

func (l *Lowerer) lowerFnCall(name string, fn *ast.FnItem, comptimeArgs, args []ast.ExprID, span source.Span) mxir.Node {
	params := l.paramTypes(fn.Params)
	result := types.VoidID
	if fn.Result.IsValid() {
		result = types.NoTypeID
		if t, ok := l.prog.ResolveType(fn.Result); ok {
			result = t
		}
	}

	switch {
	case fn.Comptime:
		all := append(append([]ast.ExprID(nil), comptimeArgs...), args...)
		want := append(l.paramTypes(fn.ComptimeParams), params...)
		if len(all) != len(want) {
			return l.marker(diag.SemaIncorrectArgCount, span, "'%s' expects %d argument(s), got %d", name, len(want), len(all))
		}
		nodes, bad := l.lowerArgs(all, want)
		if bad != nil {
			return bad
		}
		values, ok := constants(nodes)
		if !ok {
			return l.marker(diag.ComptimeNotComptime, span, "comptime function '%s' called with run-time arguments", name)
		}
		v, err := l.eval.Call(name, values, span, l.consts)
		if err != nil {
			l.reportComptime(err, span)
			return &mxir.ErrorMarker{Message: err.Message}
		}
		if v.Kind == comptime.KindVoid {
			return l.marker(diag.LowerUnsupportedConstruct, span, "comptime call to '%s' produces no value", name)
		}
		return comptime.ToNode(l.types, v)

	case len(fn.ComptimeParams) > 0:
		if len(comptimeArgs) == 0 {
			return l.marker(diag.SemaInvalidCall, span, "'%s' needs comptime arguments: call it as %s[...](...)", name, name)
		}
		if len(comptimeArgs) != len(fn.ComptimeParams) {
			return l.marker(diag.SemaIncorrectArgCount, span, "'%s' expects %d comptime argument(s), got %d", name, len(fn.ComptimeParams), len(comptimeArgs))
		}
		cnodes, bad := l.lowerArgs(comptimeArgs, l.paramTypes(fn.ComptimeParams))
		if bad != nil {
			return bad
		}
		values, ok := constants(cnodes)
		if !ok {
			return l.marker(diag.ComptimeNotComptime, span, "comptime arguments of '%s' are not known at compile time", name)
		}
		if len(args) != len(params) {
			return l.marker(diag.SemaIncorrectArgCount, span, "'%s' expects %d argument(s), got %d", name, len(params), len(args))
		}
		nodes, bad := l.lowerArgs(args, params)
		if bad != nil {
			return bad
		}
		return &mxir.Call{Target: l.specialize(name, fn, values), Args: nodes, Typ: result}

	default:
		if len(comptimeArgs) > 0 {
			return l.marker(diag.SemaInvalidCall, span, "'%s' has no comptime parameters", name)
		}
		if len(args) != len(params) {
			return l.marker(diag.SemaIncorrectArgCount, span, "'%s' expects %d argument(s), got %d", name, len(params), len(args))
		}
		nodes, bad := l.lowerArgs(args, params)
		if bad != nil {
			return bad
		}
		return &mxir.Call{Target: name, Args: nodes, Typ: result}
	}
}

// invokeMethod calls Struct.method with recv as the first argument. A
// comptime method folds when every operand is constant.
func (l *Lowerer) invokeMethod(structName string, m types.Method, recv mxir.Node, args []mxir.Node, span source.Span) mxir.Node {
	nodes := make([]mxir.Node, 0, len(args))
	for i, a := range args {
		if i < len(m.Params) {
			a = l.materialize(a, m.Params[i], span)
		}
		if failed(a) {
			return a
		}
		nodes = append(nodes, a)
	}
	if m.Comptime {
		rv, rok := comptime.FromNode(recv)
		values, ok := constants(nodes)
		if !rok || !ok {
			return l.marker(diag.ComptimeNotComptime, span, "comptime method '%s.%s' called with run-time operands", structName, m.Name)
		}
		v, err := l.eval.CallMethod(structName, m.Name, rv, values, span, l.consts)
		if err != nil {
			l.reportComptime(err, span)
			return &mxir.ErrorMarker{Message: err.Message}
		}
		return comptime.ToNode(l.types, v)
	}
	return &mxir.Call{
		Target: structName + "." + m.Name,
		Args:   append([]mxir.Node{recv}, nodes...),
		Typ:    m.Result,
	}
}

func (l *Lowerer) lowerPrint(args []ast.ExprID) mxir.Node {
	nodes := make([]mxir.Node, 0, len(args))
	for _, a := range args {
		n := l.lowerValue(a, types.NoTypeID)
		if failed(n) {
			return n
		}
		nodes = append(nodes, n)
	}
	return &mxir.Call{Target: PrintBuiltin, Args: nodes, Typ: types.VoidID}
}

// lowerArgs lowers call arguments against parameter types. The first
// failed argument is returned as bad.
func (l *Lowerer) lowerArgs(args []ast.ExprID, params []types.TypeID) (nodes []mxir.Node, bad mxir.Node) {
	nodes = make([]mxir.Node, 0, len(args))
	for i, a := range args {
		want := types.NoTypeID
		if i < len(params) {
			want = params[i]
		}
		n := l.lowerValue(a, want)
		if failed(n) {
			return nil, n
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func (l *Lowerer) paramTypes(params []ast.FnParam) []types.TypeID {
	out := make([]types.TypeID, 0, len(params))
	for _, p := range params {
		t, _ := l.prog.ResolveType(p.Type)
		out = append(out, t)
	}
	return out
}

// specialize returns the name of the instance of fn for the given comptime
// arguments, queueing its body the first time.
func (l *Lowerer) specialize(name string, fn *ast.FnItem, args []comptime.Value) string {
	parts := make([]string, 0, len(args))
	for _, v := range args {
		if v.Kind == comptime.KindStr {
			parts = append(parts, strconv.Quote(v.Str))
			continue
		}
		parts = append(parts, v.String())
	}
	key := fmt.Sprintf("%s[%s]", name, strings.Join(parts, ","))
	if !l.specs[key] {
		l.specs[key] = true
		l.queue = append(l.queue, specialization{name: key, fn: fn, args: args})
	}
	return key
}

func constants(nodes []mxir.Node) ([]comptime.Value, bool) {
	out := make([]comptime.Value, 0, len(nodes))
	for _, n := range nodes {
		v, ok := comptime.FromNode(n)
		if !ok {
			return nil, false
		}
		out = append(out, v)
	}
	return out, true
}
