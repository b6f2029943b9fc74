package lower

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"mx/internal/ast"
	"mx/internal/comptime"
	"mx/internal/diag"
	"mx/internal/mxir"
	"mx/internal/operators"
	"mx/internal/source"
	"mx/internal/symbols"
	"mx/internal/types"
)

// LowerExpr lowers a single expression in the unit scope. Untyped
// constants stay untyped.
func (l *Lowerer) LowerExpr(expr ast.ExprID) mxir.Node {
	l.prepare()
	return l.lowerExpr(expr)
}

func (l *Lowerer) lowerExpr(expr ast.ExprID) mxir.Node {
	return l.lowerExprAs(expr, types.NoTypeID)
}

// lowerValue lowers expr at a consumption point: the result has the
// expected type, or a concrete default when expected is NoTypeID.
func (l *Lowerer) lowerValue(expr ast.ExprID, expected types.TypeID) mxir.Node {
	return l.materialize(l.lowerExprAs(expr, expected), expected, l.spanOf(expr))
}

// lowerExprAs lowers expr; expected only guides list and map literals.
func (l *Lowerer) lowerExprAs(expr ast.ExprID, expected types.TypeID) mxir.Node {
	node := l.builder.Exprs.Get(expr)
	if node == nil {
		return l.marker(diag.LowerUnsupportedConstruct, source.Span{}, "missing expression")
	}
	switch node.Kind {
	case ast.ExprIntLit:
		lit, _ := l.builder.Exprs.Literal(expr)
		return l.literal(comptime.ParseInt(l.name(lit.Value), l.types))(node.Span)
	case ast.ExprFloatLit:
		lit, _ := l.builder.Exprs.Literal(expr)
		return l.literal(comptime.ParseFloat(l.name(lit.Value), l.types))(node.Span)
	case ast.ExprBoolLit:
		lit, _ := l.builder.Exprs.Literal(expr)
		return &mxir.ConstBool{Value: l.name(lit.Value) == "true"}
	case ast.ExprStringLit:
		return l.lowerString(expr)
	case ast.ExprIdent:
		return l.lowerIdent(expr, node.Span)
	case ast.ExprBinary:
		return l.lowerBinary(expr, node.Span)
	case ast.ExprUnary:
		return l.lowerUnary(expr, node.Span)
	case ast.ExprCall:
		call, _ := l.builder.Exprs.Call(expr)
		return l.lowerCall(call.Callee, nil, call.Args, node.Span)
	case ast.ExprComptimeCall:
		call, _ := l.builder.Exprs.ComptimeCall(expr)
		return l.lowerCall(call.Callee, call.ComptimeArgs, call.Args, node.Span)
	case ast.ExprStructInit:
		return l.lowerStructInit(expr, node.Span)
	case ast.ExprMember:
		return l.lowerMember(expr, node.Span)
	case ast.ExprRange:
		return l.lowerRange(expr)
	case ast.ExprListLit:
		return l.lowerList(expr, expected, node.Span)
	case ast.ExprMapLit:
		return l.lowerMap(expr, expected, node.Span)
	}
	return l.marker(diag.LowerUnsupportedConstruct, node.Span, "%s cannot be lowered", node.Kind)
}

func (l *Lowerer) literal(v comptime.Value, err *comptime.Error) func(source.Span) mxir.Node {
	return func(span source.Span) mxir.Node {
		if err != nil {
			l.reportComptime(err, span)
			return &mxir.ErrorMarker{Message: err.Message}
		}
		return comptime.ToNode(l.types, v)
	}
}

func (l *Lowerer) lowerIdent(expr ast.ExprID, span source.Span) mxir.Node {
	id, _ := l.builder.Exprs.Ident(expr)
	name := l.name(id.Name)
	if sym, ok := l.table.LookupSymbol(id.Name); ok {
		switch {
		case sym.Kind == symbols.SymbolConst:
			if v, ok := l.env.Get(name); ok {
				return comptime.ToNode(l.types, v)
			}
			if l.failed[name] {
				return &mxir.ErrorMarker{Message: "constant '" + name + "' failed"}
			}
			return l.marker(diag.ComptimeUnknownSymbol, span, "constant '%s' is used before it is evaluated", name)
		case sym.Kind == symbols.SymbolVar || sym.Kind == symbols.SymbolParam:
			if sym.Type == types.NoTypeID {
				// тип не вывели: ошибка инициализатора или типа уже в отчёте
				return &mxir.ErrorMarker{Message: "variable '" + name + "' has no type"}
			}
			return &mxir.Local{Name: name, Typ: sym.Type}
		default:
			return l.marker(diag.LowerUnsupportedConstruct, span, "%s '%s' cannot be used as a value", sym.Kind, name)
		}
	}
	// импортированные константы
	if v, ok := l.env.Get(name); ok {
		return comptime.ToNode(l.types, v)
	}
	return l.marker(diag.SemaUnresolvedSymbol, span, "unresolved symbol '%s'", name)
}

func (l *Lowerer) lowerBinary(expr ast.ExprID, span source.Span) mxir.Node {
	bin, _ := l.builder.Exprs.Binary(expr)
	lhs := l.lowerExpr(bin.Left)
	rhs := l.lowerExpr(bin.Right)
	if failed(lhs) {
		return lhs
	}
	if failed(rhs) {
		return rhs
	}
	res, fail := l.ops.Binary(bin.Op, lhs.Type(), rhs.Type())
	if fail != nil {
		return l.marker(fail.Code, span, "%s", fail.Message)
	}
	if res.Kind == operators.KindMethod {
		return l.invokeMethod(res.Struct, res.Method, lhs, []mxir.Node{rhs}, span)
	}

	lv, lconst := comptime.FromNode(lhs)
	rv, rconst := comptime.FromNode(rhs)
	if lconst && rconst {
		v, err := comptime.Binary(l.types, res.Op, lv, rv)
		if err != nil {
			l.reportComptime(err, span)
			return &mxir.ErrorMarker{Message: err.Message}
		}
		return comptime.ToNode(l.types, v)
	}
	if (res.Op == mxir.OpDiv || res.Op == mxir.OpMod) && rconst && isZero(rv) {
		return l.marker(diag.ComptimeDivisionByZero, span, "division by zero")
	}
	if res.ShortCircuit && lconst && lv.Kind == comptime.KindBool {
		if bin.Op == ast.ExprBinaryLogicalAnd && !lv.Bool {
			return &mxir.ConstBool{Value: false}
		}
		if bin.Op == ast.ExprBinaryLogicalOr && lv.Bool {
			return &mxir.ConstBool{Value: true}
		}
		return rhs
	}

	operand := l.concrete(res.Operand)
	left := l.materialize(lhs, operand, l.spanOf(bin.Left))
	var right mxir.Node
	if res.Op == mxir.OpShl || res.Op == mxir.OpShr {
		right = l.materialize(rhs, types.NoTypeID, l.spanOf(bin.Right))
	} else {
		right = l.materialize(rhs, operand, l.spanOf(bin.Right))
	}
	if failed(left) {
		return left
	}
	if failed(right) {
		return right
	}
	result := res.Result
	if result == res.Operand {
		result = operand
	}
	return &mxir.BinOp{Op: res.Op, Lhs: left, Rhs: right, Typ: result}
}

func isZero(v comptime.Value) bool {
	switch v.Kind {
	case comptime.KindInt:
		return v.Int != nil && v.Int.Sign() == 0
	case comptime.KindFloat:
		return v.Float == 0
	}
	return false
}

func (l *Lowerer) lowerUnary(expr ast.ExprID, span source.Span) mxir.Node {
	un, _ := l.builder.Exprs.Unary(expr)
	operand := l.lowerExpr(un.Operand)
	if failed(operand) {
		return operand
	}
	res, fail := l.ops.Unary(un.Op, operand.Type())
	if fail != nil {
		return l.marker(fail.Code, span, "%s", fail.Message)
	}
	if res.Kind == operators.KindMethod {
		return l.invokeMethod(res.Struct, res.Method, operand, nil, span)
	}
	if v, ok := comptime.FromNode(operand); ok {
		out, err := comptime.Unary(l.types, res.Unary, v)
		if err != nil {
			l.reportComptime(err, span)
			return &mxir.ErrorMarker{Message: err.Message}
		}
		return comptime.ToNode(l.types, out)
	}
	result := res.Result
	if result == res.Operand {
		result = l.concrete(result)
	}
	return &mxir.UnOp{Op: res.Unary, Operand: operand, Typ: result}
}

func (l *Lowerer) lowerString(expr ast.ExprID) mxir.Node {
	lit, _ := l.builder.Exprs.StringLit(expr)
	var sb strings.Builder
	parts := make([]mxir.Node, 0, len(lit.Parts))
	folded := true
	for _, part := range lit.Parts {
		if !part.Expr.IsValid() {
			text := l.name(part.Text)
			sb.WriteString(text)
			parts = append(parts, &mxir.ConstStr{Value: text})
			continue
		}
		n := l.lowerValue(part.Expr, types.NoTypeID)
		if failed(n) {
			return n
		}
		if v, ok := comptime.FromNode(n); ok {
			sb.WriteString(v.String())
		} else {
			folded = false
		}
		parts = append(parts, n)
	}
	if folded {
		return &mxir.ConstStr{Value: norm.NFC.String(sb.String())}
	}
	return &mxir.Concat{Parts: parts}
}

func (l *Lowerer) lowerStructInit(expr ast.ExprID, span source.Span) mxir.Node {
	lit, _ := l.builder.Exprs.StructInit(expr)
	name := l.name(lit.Type)
	id, ok := l.types.ByName(name)
	info, isStruct := l.types.StructInfo(id)
	if !ok || !isStruct {
		return l.marker(diag.SemaUnknownType, span, "unknown struct '%s'", name)
	}
	given := make(map[string]mxir.Node, len(lit.Fields))
	for _, fi := range lit.Fields {
		fname := l.name(fi.Name)
		decl, _, ok := info.Field(fname)
		if !ok {
			return l.marker(diag.SemaUnknownField, fi.Span, "struct %s has no field '%s'", name, fname)
		}
		n := l.materialize(l.lowerExprAs(fi.Value, decl.Type), decl.Type, fi.Span)
		if failed(n) {
			return n
		}
		given[fname] = n
	}
	out := &mxir.StructBuild{TypeName: name, Typ: id}
	for _, decl := range info.Fields {
		n, ok := given[decl.Name]
		if !ok {
			n = l.zero(decl.Type, 0)
		}
		out.Fields = append(out.Fields, mxir.FieldInit{Name: decl.Name, Value: n})
	}
	return out
}

// zero builds the zero value of t, including empty lists and maps.
func (l *Lowerer) zero(t types.TypeID, depth int) mxir.Node {
	typ, ok := l.types.Lookup(t)
	if !ok || depth > 32 {
		return &mxir.ErrorMarker{Message: "type has no zero value"}
	}
	switch typ.Kind {
	case types.KindList:
		return &mxir.ListBuild{Typ: t}
	case types.KindMap:
		return &mxir.MapBuild{Typ: t}
	case types.KindStruct:
		info, ok := l.types.StructInfo(t)
		if !ok {
			break
		}
		out := &mxir.StructBuild{TypeName: info.Name, Typ: t}
		for _, f := range info.Fields {
			out.Fields = append(out.Fields, mxir.FieldInit{Name: f.Name, Value: l.zero(f.Type, depth+1)})
		}
		return out
	}
	return comptime.ToNode(l.types, comptime.Zero(l.types, t))
}

func (l *Lowerer) lowerMember(expr ast.ExprID, span source.Span) mxir.Node {
	m, _ := l.builder.Exprs.Member(expr)
	target := l.lowerExpr(m.Target)
	if failed(target) {
		return target
	}
	field := l.name(m.Field)
	info, ok := l.types.StructInfo(target.Type())
	if !ok {
		return l.marker(diag.SemaUnknownField, span, "%s has no field '%s'", l.types.Name(target.Type()), field)
	}
	decl, idx, ok := info.Field(field)
	if !ok {
		return l.marker(diag.SemaUnknownField, span, "struct %s has no field '%s'", info.Name, field)
	}
	if sb, ok := target.(*mxir.StructBuild); ok && idx < len(sb.Fields) {
		if _, isConst := comptime.FromNode(sb); isConst {
			return sb.Fields[idx].Value
		}
	}
	return &mxir.FieldGet{Target: target, Field: field, Typ: decl.Type}
}

func (l *Lowerer) lowerRange(expr ast.ExprID) mxir.Node {
	r, _ := l.builder.Exprs.Range(expr)
	out := &mxir.RangeBuild{}
	for _, bound := range []struct {
		id  ast.ExprID
		dst *mxir.Node
	}{{r.Start, &out.Start}, {r.End, &out.End}} {
		if !bound.id.IsValid() {
			continue
		}
		n := l.lowerValue(bound.id, types.NoTypeID)
		if failed(n) {
			return n
		}
		if !l.types.MustLookup(n.Type()).IsInteger() {
			return l.marker(diag.SemaTypeMismatch, l.spanOf(bound.id), "range bound must be an integer, found %s", l.types.Name(n.Type()))
		}
		*bound.dst = n
	}
	return out
}

func (l *Lowerer) lowerList(expr ast.ExprID, expected types.TypeID, span source.Span) mxir.Node {
	lit, _ := l.builder.Exprs.List(expr)
	elem := types.NoTypeID
	want, isList := l.types.Lookup(expected)
	isList = isList && want.Kind == types.KindList
	if isList {
		elem = want.Elem
		if want.Count != types.ListDynamicLength && int(want.Count) != len(lit.Elems) {
			return l.marker(diag.SemaTypeMismatch, span, "expected %s, found a list of %d element(s)", l.types.Name(expected), len(lit.Elems))
		}
	}
	nodes := make([]mxir.Node, 0, len(lit.Elems))
	for _, e := range lit.Elems {
		n := l.lowerExprAs(e, elem)
		if failed(n) {
			return n
		}
		nodes = append(nodes, n)
	}
	if elem == types.NoTypeID {
		elem = l.common(nodes)
		if elem == types.NoTypeID {
			return l.marker(diag.LowerUnsupportedConstruct, span, "cannot infer the element type of an empty list")
		}
	}
	for i, n := range nodes {
		if nodes[i] = l.materialize(n, elem, l.spanOf(lit.Elems[i])); failed(nodes[i]) {
			return nodes[i]
		}
	}
	typ := expected
	if !isList {
		typ = l.types.List(elem, types.ListDynamicLength)
	}
	return &mxir.ListBuild{Elems: nodes, Typ: typ}
}

func (l *Lowerer) lowerMap(expr ast.ExprID, expected types.TypeID, span source.Span) mxir.Node {
	lit, _ := l.builder.Exprs.Map(expr)
	key, val := types.NoTypeID, types.NoTypeID
	want, isMap := l.types.Lookup(expected)
	isMap = isMap && want.Kind == types.KindMap
	if isMap {
		key, val = want.Key, want.Elem
	}
	keys := make([]mxir.Node, 0, len(lit.Entries))
	vals := make([]mxir.Node, 0, len(lit.Entries))
	for _, e := range lit.Entries {
		k := l.lowerExprAs(e.Key, key)
		if failed(k) {
			return k
		}
		v := l.lowerExprAs(e.Value, val)
		if failed(v) {
			return v
		}
		keys = append(keys, k)
		vals = append(vals, v)
	}
	if !isMap {
		key, val = l.common(keys), l.common(vals)
		if key == types.NoTypeID || val == types.NoTypeID {
			return l.marker(diag.LowerUnsupportedConstruct, span, "cannot infer the type of an empty map")
		}
	}
	out := &mxir.MapBuild{Typ: expected}
	if !isMap {
		out.Typ = l.types.Map(key, val)
	}
	for i := range keys {
		k := l.materialize(keys[i], key, l.spanOf(lit.Entries[i].Key))
		if failed(k) {
			return k
		}
		v := l.materialize(vals[i], val, l.spanOf(lit.Entries[i].Value))
		if failed(v) {
			return v
		}
		out.Entries = append(out.Entries, mxir.MapEntry{Key: k, Value: v})
	}
	return out
}

// common picks the first concrete type among nodes, else the default for
// the first one.
func (l *Lowerer) common(nodes []mxir.Node) types.TypeID {
	for _, n := range nodes {
		if !l.types.MustLookup(n.Type()).IsUntyped() {
			return n.Type()
		}
	}
	if len(nodes) == 0 {
		return types.NoTypeID
	}
	return l.concrete(nodes[0].Type())
}

// concrete replaces an untyped type with its default.
func (l *Lowerer) concrete(t types.TypeID) types.TypeID {
	switch l.types.MustLookup(t).Kind {
	case types.KindUntypedInt:
		return l.defaultInt
	case types.KindUntypedFloat:
		return l.types.Builtins().Float64
	}
	return t
}

// materialize settles n on the expected type. Constants are converted
// (IntLiteralOutOfRange when they do not fit); run-time values must
// already have that type.
func (l *Lowerer) materialize(n mxir.Node, expected types.TypeID, span source.Span) mxir.Node {
	if failed(n) {
		return n
	}
	v, isConst := comptime.FromNode(n)
	if expected == types.NoTypeID {
		if !isConst {
			return n
		}
		dv, err := comptime.Default(l.types, v, l.defaultInt)
		if err != nil {
			l.reportComptime(err, span)
			return &mxir.ErrorMarker{Message: err.Message}
		}
		if dv.Type == v.Type {
			return n
		}
		return comptime.ToNode(l.types, dv)
	}
	if isConst && v.Kind != comptime.KindStruct && v.Kind != comptime.KindRange {
		mv, err := comptime.Materialize(l.types, v, expected)
		if err != nil {
			l.reportComptime(err, span)
			return &mxir.ErrorMarker{Message: err.Message}
		}
		if mv.Type == v.Type {
			return n
		}
		return comptime.ToNode(l.types, mv)
	}
	if got := n.Type(); got != expected && got != types.NoTypeID && !l.ops.Assignable(got, expected) {
		return l.marker(diag.SemaTypeMismatch, span, "expected %s, found %s", l.types.Name(expected), l.types.Name(got))
	}
	return n
}

func failed(n mxir.Node) bool {
	_, bad := n.(*mxir.ErrorMarker)
	return bad
}
