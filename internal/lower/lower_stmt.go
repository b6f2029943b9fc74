package lower

import (
	"mx/internal/ast"
	"mx/internal/comptime"
	"mx/internal/diag"
	"mx/internal/mxir"
	"mx/internal/source"
	"mx/internal/symbols"
	"mx/internal/types"
)

// lowerBlock lowers a block in its own scope. A single statement (the
// else-if arm) is wrapped into a block.
func (l *Lowerer) lowerBlock(stmtID ast.StmtID) *mxir.Block {
	out := &mxir.Block{}
	st := l.builder.Stmts.Get(stmtID)
	if st == nil {
		return out
	}
	scope := l.table.Enter(symbols.ScopeBlock, st.Span)
	defer l.table.Leave(scope)
	saved := l.env
	defer func() { l.env = saved }()

	stmts := []ast.StmtID{stmtID}
	if blk, ok := l.builder.Stmts.Block(stmtID); ok {
		stmts = blk.Stmts
	}
	for _, s := range stmts {
		if n := l.lowerStmt(s); n != nil {
			out.Nodes = append(out.Nodes, n)
		}
	}
	return out
}

// lowerStmt returns nil for statements that leave nothing at run time.
func (l *Lowerer) lowerStmt(stmtID ast.StmtID) mxir.Node {
	st := l.builder.Stmts.Get(stmtID)
	if st == nil {
		return nil
	}
	switch st.Kind {
	case ast.StmtBlock:
		return l.lowerBlock(stmtID)
	case ast.StmtVar:
		let, _ := l.builder.Stmts.Let(stmtID)
		out := l.lowerLet(let.Name, let.Type, let.Value, st.Span)
		l.declare(let.Name, symbols.SymbolVar, out.Typ, let.NameSpan)
		return out
	case ast.StmtConst:
		return l.lowerConstStmt(stmtID, st.Span)
	case ast.StmtIf:
		ifs, _ := l.builder.Stmts.If(stmtID)
		out := &mxir.Branch{Cond: l.condition(ifs.Cond)}
		out.Then = l.lowerBlock(ifs.Then)
		if ifs.Else.IsValid() {
			out.Else = l.lowerBlock(ifs.Else)
		}
		return out
	case ast.StmtLoop:
		return l.lowerLoop(stmtID)
	case ast.StmtBreak:
		return &mxir.Break{}
	case ast.StmtContinue:
		return &mxir.Continue{}
	case ast.StmtReturn:
		ret, _ := l.builder.Stmts.Return(stmtID)
		if !ret.Value.IsValid() {
			return &mxir.Return{}
		}
		want := types.NoTypeID
		if l.fn != nil && l.fn.result != types.VoidID {
			want = l.fn.result
		}
		return &mxir.Return{Value: l.lowerValue(ret.Value, want)}
	case ast.StmtExpr:
		es, _ := l.builder.Stmts.Expr(stmtID)
		return &mxir.Eval{Expr: l.lowerValue(es.Expr, types.NoTypeID)}
	case ast.StmtAssign:
		as, _ := l.builder.Stmts.Assign(stmtID)
		target := l.lowerPlace(as.Target)
		if failed(target) {
			return target
		}
		return &mxir.Assign{Target: target, Value: l.lowerValue(as.Value, target.Type())}
	}
	return l.marker(diag.LowerUnsupportedConstruct, st.Span, "%s cannot be lowered", st.Kind)
}

// lowerLet lowers a variable declaration. Without a declared type the
// variable takes the type of its (materialized) initializer.
func (l *Lowerer) lowerLet(nameID source.StringID, te ast.TypeExprID, value ast.ExprID, span source.Span) *mxir.Let {
	name := l.name(nameID)
	declared := types.NoTypeID
	if te.IsValid() {
		if t, ok := l.prog.ResolveType(te); ok {
			declared = t
		}
	}
	out := &mxir.Let{Name: name, Typ: declared}
	switch {
	case value.IsValid():
		out.Value = l.lowerValue(value, declared)
		if !te.IsValid() {
			out.Typ = out.Value.Type()
		}
	case !te.IsValid():
		out.Value = l.marker(diag.LowerUnsupportedConstruct, span, "variable '%s' needs a type or an initializer", name)
	}
	return out
}

// lowerConstStmt folds a local constant into the environment. Its value
// must be known at compile time; only a failure leaves a node behind.
func (l *Lowerer) lowerConstStmt(stmtID ast.StmtID, span source.Span) mxir.Node {
	let, _ := l.builder.Stmts.Let(stmtID)
	name := l.name(let.Name)
	declared := types.NoTypeID
	if let.Type.IsValid() {
		if t, ok := l.prog.ResolveType(let.Type); ok {
			declared = t
		}
	}
	n := l.lowerExprAs(let.Value, declared)
	if declared != types.NoTypeID {
		n = l.materialize(n, declared, span)
	}
	v, ok := comptime.FromNode(n)
	if !ok {
		if !failed(n) {
			n = l.marker(diag.ComptimeNotComptime, span, "constant '%s' is not known at compile time", name)
		}
		l.failed[name] = true
		_, _ = l.table.Declare(let.Name, symbols.Symbol{Kind: symbols.SymbolConst, Span: let.NameSpan})
		return n
	}
	l.declareConst(let.Name, v, let.NameSpan)
	return nil
}

// lowerLoop turns a conditional loop into an infinite one that breaks when
// the condition fails.
func (l *Lowerer) lowerLoop(stmtID ast.StmtID) mxir.Node {
	loop, _ := l.builder.Stmts.Loop(stmtID)
	if !loop.Cond.IsValid() {
		return &mxir.Loop{Body: l.lowerBlock(loop.Body)}
	}
	cond := l.condition(loop.Cond)
	body := l.lowerBlock(loop.Body)
	if c, ok := cond.(*mxir.ConstBool); ok && c.Value {
		return &mxir.Loop{Body: body}
	}
	var exit mxir.Node
	if c, ok := cond.(*mxir.ConstBool); ok {
		exit = &mxir.ConstBool{Value: !c.Value}
	} else if failed(cond) {
		exit = cond
	} else {
		exit = &mxir.UnOp{Op: mxir.OpNot, Operand: cond, Typ: types.BoolID}
	}
	guard := &mxir.Branch{Cond: exit, Then: &mxir.Block{Nodes: []mxir.Node{&mxir.Break{}}}}
	body.Nodes = append([]mxir.Node{guard}, body.Nodes...)
	return &mxir.Loop{Body: body}
}

// condition lowers a Bool condition.
func (l *Lowerer) condition(expr ast.ExprID) mxir.Node {
	n := l.lowerExpr(expr)
	if failed(n) || n.Type() == types.BoolID {
		return n
	}
	return l.marker(diag.SemaTypeMismatch, l.spanOf(expr), "condition must be Bool, found %s", l.types.Name(n.Type()))
}

// lowerPlace lowers an assignment target: a variable or a field path.
func (l *Lowerer) lowerPlace(expr ast.ExprID) mxir.Node {
	node := l.builder.Exprs.Get(expr)
	if node == nil {
		return l.marker(diag.LowerUnsupportedConstruct, source.Span{}, "missing assignment target")
	}
	switch node.Kind {
	case ast.ExprIdent:
		id, _ := l.builder.Exprs.Ident(expr)
		name := l.name(id.Name)
		sym, ok := l.table.LookupSymbol(id.Name)
		if !ok {
			return l.marker(diag.SemaUnresolvedSymbol, node.Span, "unresolved symbol '%s'", name)
		}
		if sym.Kind != symbols.SymbolVar && sym.Kind != symbols.SymbolParam {
			return l.marker(diag.LowerUnsupportedConstruct, node.Span, "cannot assign to %s '%s'", sym.Kind, name)
		}
		return &mxir.Local{Name: name, Typ: sym.Type}
	case ast.ExprMember:
		m, _ := l.builder.Exprs.Member(expr)
		target := l.lowerPlace(m.Target)
		if failed(target) {
			return target
		}
		field := l.name(m.Field)
		info, ok := l.types.StructInfo(target.Type())
		if !ok {
			return l.marker(diag.SemaUnknownField, node.Span, "%s has no field '%s'", l.types.Name(target.Type()), field)
		}
		decl, _, ok := info.Field(field)
		if !ok {
			return l.marker(diag.SemaUnknownField, node.Span, "struct %s has no field '%s'", info.Name, field)
		}
		return &mxir.FieldGet{Target: target, Field: field, Typ: decl.Type}
	}
	return l.marker(diag.LowerUnsupportedConstruct, node.Span, "%s is not assignable", node.Kind)
}
