package astio

import (
	"fmt"

	"mx/internal/ast"
	"mx/internal/diag"
	"mx/internal/source"
)

// decoder rebuilds one document. A bad node is reported and replaced by
// an invalid ID so the rest of the document is still checked.
type decoder struct {
	b    *ast.Builder
	file source.FileID
	r    diag.Reporter
	ok   bool
}

func (d *decoder) span(n *Node) source.Span {
	sp := source.Span{File: d.file}
	if len(n.Span) == 2 && n.Span[0] <= n.Span[1] {
		sp.Start, sp.End = n.Span[0], n.Span[1]
	}
	return sp
}

func (d *decoder) fail(code diag.Code, n *Node, format string, args ...any) {
	d.ok = false
	var sp source.Span
	if n != nil {
		sp = d.span(n)
	} else {
		sp = source.Span{File: d.file}
	}
	diag.ReportError(d.r, code, sp, fmt.Sprintf(format, args...)).Emit()
}

func (d *decoder) unknown(n *Node, role string) {
	d.fail(diag.InputUnknownNode, n, "unknown %s node kind %q", role, n.Kind)
}

// need reports a missing required child.
func (d *decoder) need(parent *Node, child *Node, field string) bool {
	if child == nil {
		d.fail(diag.InputMalformedNode, parent, "%s is missing '%s'", parent.Kind, field)
		return false
	}
	return true
}

func (d *decoder) needName(n *Node) bool {
	if n.Name == "" {
		d.fail(diag.InputMalformedNode, n, "%s is missing 'name'", n.Kind)
		return false
	}
	return true
}

// Items ----------------------------------------------------------------------

func (d *decoder) item(n *Node) ast.ItemID {
	if n == nil {
		d.fail(diag.InputMalformedNode, nil, "null item")
		return ast.NoItemID
	}
	switch n.Kind {
	case KindFn:
		return d.fn(n, "")
	case KindStruct:
		if !d.needName(n) {
			return ast.NoItemID
		}
		st := ast.StructItem{Name: d.b.Name(n.Name), NameSpan: d.span(n)}
		for _, f := range n.Fields {
			if f == nil || f.Kind != KindField {
				d.fail(diag.InputMalformedNode, n, "struct %s has a field that is not a %s", n.Name, KindField)
				continue
			}
			if !d.needName(f) || !d.need(f, f.Type, "type") {
				continue
			}
			st.Fields = append(st.Fields, ast.StructField{Name: d.b.Name(f.Name), Type: d.typ(f.Type), Span: d.span(f)})
		}
		for _, m := range n.Methods {
			if m == nil || m.Kind != KindFn {
				d.fail(diag.InputMalformedNode, n, "struct %s has a method that is not a %s", n.Name, KindFn)
				continue
			}
			if id := d.fn(m, n.Name); id.IsValid() {
				st.Methods = append(st.Methods, id)
			}
		}
		return d.b.Items.NewStruct(d.span(n), st)
	case KindConst, KindVar:
		if !d.needName(n) {
			return ast.NoItemID
		}
		constant := n.Kind == KindConst
		if constant && !d.need(n, n.Value, "value") {
			return ast.NoItemID
		}
		return d.b.Items.NewLet(d.span(n), constant, ast.LetItem{
			Name:     d.b.Name(n.Name),
			NameSpan: d.span(n),
			Type:     d.optTyp(n.Type),
			Value:    d.optExpr(n.Value),
		})
	}
	d.unknown(n, "item")
	return ast.NoItemID
}

// fn decodes a function; recv is the owning struct of a method. A missing
// name is kept so the checker reports MissingFunctionName.
func (d *decoder) fn(n *Node, recv string) ast.ItemID {
	if !d.need(n, n.Body, "body") {
		return ast.NoItemID
	}
	fn := ast.FnItem{
		NameSpan:       d.span(n),
		Comptime:       n.Comptime,
		ComptimeParams: d.params(n, n.ComptimeParams),
		Params:         d.params(n, n.Params),
		Result:         d.optTyp(n.Result),
		Body:           d.stmt(n.Body),
	}
	if n.Name != "" {
		fn.Name = d.b.Name(n.Name)
	}
	if recv != "" {
		fn.Receiver = d.b.Name(recv)
	}
	return d.b.Items.NewFn(d.span(n), fn)
}

func (d *decoder) params(owner *Node, nodes []*Node) []ast.FnParam {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]ast.FnParam, 0, len(nodes))
	for _, p := range nodes {
		if p == nil || p.Kind != KindParam {
			d.fail(diag.InputMalformedNode, owner, "%s has a parameter that is not a %s", owner.Kind, KindParam)
			continue
		}
		if !d.needName(p) || !d.need(p, p.Type, "type") {
			continue
		}
		out = append(out, ast.FnParam{Name: d.b.Name(p.Name), Type: d.typ(p.Type), Span: d.span(p)})
	}
	return out
}

// Statements -----------------------------------------------------------------

func (d *decoder) stmt(n *Node) ast.StmtID {
	if n == nil {
		return ast.NoStmtID
	}
	sp := d.span(n)
	switch n.Kind {
	case KindBlock:
		stmts := make([]ast.StmtID, 0, len(n.Stmts))
		for _, s := range n.Stmts {
			if id := d.stmt(s); id.IsValid() {
				stmts = append(stmts, id)
			}
		}
		return d.b.Stmts.NewBlock(sp, stmts)
	case KindVar, KindConst:
		if !d.needName(n) {
			return ast.NoStmtID
		}
		constant := n.Kind == KindConst
		if constant && !d.need(n, n.Value, "value") {
			return ast.NoStmtID
		}
		return d.b.Stmts.NewLet(sp, constant, ast.LetStmt{
			Name:     d.b.Name(n.Name),
			NameSpan: sp,
			Type:     d.optTyp(n.Type),
			Value:    d.optExpr(n.Value),
		})
	case KindIf:
		if !d.need(n, n.Cond, "cond") || !d.need(n, n.Then, "then") {
			return ast.NoStmtID
		}
		return d.b.Stmts.NewIf(sp, d.expr(n.Cond), d.stmt(n.Then), d.stmt(n.Else))
	case KindLoop:
		if !d.need(n, n.Body, "body") {
			return ast.NoStmtID
		}
		return d.b.Stmts.NewLoop(sp, d.optExpr(n.Cond), d.stmt(n.Body))
	case KindBreak:
		return d.b.Stmts.NewBreak(sp)
	case KindContinue:
		return d.b.Stmts.NewContinue(sp)
	case KindReturn:
		return d.b.Stmts.NewReturn(sp, d.optExpr(n.Value))
	case KindExpr:
		if !d.need(n, n.Expr, "expr") {
			return ast.NoStmtID
		}
		return d.b.Stmts.NewExpr(sp, d.expr(n.Expr))
	case KindAssign:
		if !d.need(n, n.Target, "target") || !d.need(n, n.Value, "value") {
			return ast.NoStmtID
		}
		return d.b.Stmts.NewAssign(sp, d.expr(n.Target), d.expr(n.Value))
	}
	d.unknown(n, "statement")
	return ast.NoStmtID
}

// Expressions ----------------------------------------------------------------

func (d *decoder) optExpr(n *Node) ast.ExprID {
	if n == nil {
		return ast.NoExprID
	}
	return d.expr(n)
}

func (d *decoder) exprs(nodes []*Node) []ast.ExprID {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]ast.ExprID, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, d.expr(n))
	}
	return out
}

func (d *decoder) expr(n *Node) ast.ExprID {
	if n == nil {
		d.fail(diag.InputMalformedNode, nil, "null expression")
		return ast.NoExprID
	}
	sp := d.span(n)
	switch n.Kind {
	case KindIntLit, KindFloatLit:
		if n.Text == "" {
			d.fail(diag.InputMalformedNode, n, "%s is missing 'text'", n.Kind)
			return ast.NoExprID
		}
		kind := ast.ExprIntLit
		if n.Kind == KindFloatLit {
			kind = ast.ExprFloatLit
		}
		return d.b.Exprs.NewLiteral(sp, kind, d.b.Name(n.Text))
	case KindBoolLit:
		if n.Text != "true" && n.Text != "false" {
			d.fail(diag.InputMalformedNode, n, "bool literal must be true or false, got %q", n.Text)
			return ast.NoExprID
		}
		return d.b.Exprs.NewLiteral(sp, ast.ExprBoolLit, d.b.Name(n.Text))
	case KindStringLit:
		return d.b.Exprs.NewStringLit(sp, d.stringParts(n))
	case KindListLit:
		return d.b.Exprs.NewList(sp, d.exprs(n.Elems))
	case KindMapLit:
		entries := make([]ast.ExprMapEntry, 0, len(n.Entries))
		for _, e := range n.Entries {
			if e == nil || e.Kind != KindMapEntry {
				d.fail(diag.InputMalformedNode, n, "map literal has an entry that is not a %s", KindMapEntry)
				continue
			}
			if !d.need(e, e.Key, "key") || !d.need(e, e.Value, "value") {
				continue
			}
			entries = append(entries, ast.ExprMapEntry{Key: d.expr(e.Key), Value: d.expr(e.Value)})
		}
		return d.b.Exprs.NewMap(sp, entries)
	case KindIdent:
		if !d.needName(n) {
			return ast.NoExprID
		}
		return d.b.Exprs.NewIdent(sp, d.b.Name(n.Name))
	case KindBinary:
		op, ok := ast.ParseBinaryOp(n.Op)
		if !ok {
			d.fail(diag.InputMalformedNode, n, "unknown binary operator %q", n.Op)
			return ast.NoExprID
		}
		if !d.need(n, n.Lhs, "lhs") || !d.need(n, n.Rhs, "rhs") {
			return ast.NoExprID
		}
		return d.b.Exprs.NewBinary(sp, op, d.expr(n.Lhs), d.expr(n.Rhs))
	case KindUnary:
		var op ast.ExprUnaryOp
		switch n.Op {
		case "-":
			op = ast.ExprUnaryMinus
		case "not":
			op = ast.ExprUnaryNot
		default:
			d.fail(diag.InputMalformedNode, n, "unknown unary operator %q", n.Op)
			return ast.NoExprID
		}
		if !d.need(n, n.Operand, "operand") {
			return ast.NoExprID
		}
		return d.b.Exprs.NewUnary(sp, op, d.expr(n.Operand))
	case KindCall:
		if !d.need(n, n.Callee, "callee") {
			return ast.NoExprID
		}
		return d.b.Exprs.NewCall(sp, d.expr(n.Callee), d.exprs(n.Args))
	case KindComptimeCall:
		if !d.need(n, n.Callee, "callee") {
			return ast.NoExprID
		}
		return d.b.Exprs.NewComptimeCall(sp, d.expr(n.Callee), d.exprs(n.ComptimeArgs), d.exprs(n.Args))
	case KindStructInit:
		if !d.needName(n) {
			return ast.NoExprID
		}
		fields := make([]ast.ExprStructField, 0, len(n.Fields))
		for _, f := range n.Fields {
			if f == nil || f.Kind != KindFieldInit {
				d.fail(diag.InputMalformedNode, n, "struct literal has a field that is not a %s", KindFieldInit)
				continue
			}
			if !d.needName(f) || !d.need(f, f.Value, "value") {
				continue
			}
			fields = append(fields, ast.ExprStructField{Name: d.b.Name(f.Name), Value: d.expr(f.Value), Span: d.span(f)})
		}
		return d.b.Exprs.NewStructInit(sp, d.b.Name(n.Name), fields)
	case KindMember:
		if !d.need(n, n.Target, "target") || !d.needName(n) {
			return ast.NoExprID
		}
		return d.b.Exprs.NewMember(sp, d.expr(n.Target), d.b.Name(n.Name))
	case KindRange:
		return d.b.Exprs.NewRange(sp, d.optExpr(n.Start), d.optExpr(n.End))
	}
	d.unknown(n, "expression")
	return ast.NoExprID
}

// stringParts reads interpolation fragments. A literal without parts is
// its Text alone.
func (d *decoder) stringParts(n *Node) []ast.StringPart {
	if len(n.Parts) == 0 {
		return []ast.StringPart{{Text: d.b.Name(n.Text)}}
	}
	out := make([]ast.StringPart, 0, len(n.Parts))
	for _, p := range n.Parts {
		if p != nil && p.Kind == KindText {
			out = append(out, ast.StringPart{Text: d.b.Name(p.Text)})
			continue
		}
		out = append(out, ast.StringPart{Expr: d.expr(p)})
	}
	return out
}

// Types ----------------------------------------------------------------------

func (d *decoder) optTyp(n *Node) ast.TypeExprID {
	if n == nil {
		return ast.NoTypeExprID
	}
	return d.typ(n)
}

func (d *decoder) typ(n *Node) ast.TypeExprID {
	sp := d.span(n)
	switch n.Kind {
	case KindNamedType:
		if !d.needName(n) {
			return ast.NoTypeExprID
		}
		return d.b.Types.NewNamed(sp, d.b.Name(n.Name))
	case KindListType:
		if !d.need(n, n.Elem, "elem") {
			return ast.NoTypeExprID
		}
		return d.b.Types.NewList(sp, d.typ(n.Elem), d.optExpr(n.Length))
	case KindMapType:
		if !d.need(n, n.Key, "key") || !d.need(n, n.Elem, "elem") {
			return ast.NoTypeExprID
		}
		return d.b.Types.NewMap(sp, d.typ(n.Key), d.typ(n.Elem))
	}
	d.unknown(n, "type")
	return ast.NoTypeExprID
}
