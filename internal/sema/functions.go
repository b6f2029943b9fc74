package sema

import (
	"errors"
	"fmt"

	"mx/internal/ast"
	"mx/internal/diag"
	"mx/internal/source"
	"mx/internal/symbols"
)

func (c *checker) checkFn(span source.Span, fn *ast.FnItem) {
	if fn == nil {
		return
	}
	if fn.Name == source.NoStringID {
		c.report(diag.SemaMissingFunctionName, span, "function declaration has no name")
	}

	prevFn, prevLoops := c.fn, c.loopDepth
	c.fn, c.loopDepth = fn, 0
	defer func() { c.fn, c.loopDepth = prevFn, prevLoops }()

	scope := c.table.Enter(symbols.ScopeFunction, span)
	defer c.table.Leave(scope)

	if fn.IsMethod() {
		_, _ = c.table.Declare(c.builder.Name("self"), symbols.Symbol{Kind: symbols.SymbolParam, Span: fn.NameSpan})
	}
	seen := make(map[source.StringID]source.Span, len(fn.Params)+len(fn.ComptimeParams))
	for _, group := range [][]ast.FnParam{fn.ComptimeParams, fn.Params} {
		for _, p := range group {
			if prev, ok := seen[p.Name]; ok {
				diag.ReportError(c.reporter, diag.SemaDuplicateParamName, p.Span,
					fmt.Sprintf("parameter '%s' is declared more than once", c.name(p.Name))).
					WithNote(prev, "previous parameter here").
					Emit()
				continue
			}
			seen[p.Name] = p.Span
			_, _ = c.table.Declare(p.Name, symbols.Symbol{Kind: symbols.SymbolParam, Span: p.Span})
		}
	}

	if !fn.Body.IsValid() {
		return
	}
	c.walkStmt(fn.Body)

	if fn.Result.IsValid() && !c.isVoid(fn.Result) && c.returnStatus(fn.Body) != returnClosed {
		c.report(diag.SemaMissingReturn, fn.NameSpan,
			"function '%s' does not return a value on every path", c.name(fn.Name))
	}
}

func (c *checker) isVoid(t ast.TypeExprID) bool {
	te := c.builder.Types.Get(t)
	return te == nil || (te.Kind == ast.TypeExprNamed && c.name(te.Name) == "Void")
}

func (c *checker) returnsValue() bool {
	return c.fn != nil && c.fn.Result.IsValid() && !c.isVoid(c.fn.Result)
}

func (c *checker) declareLocal(let *ast.LetStmt, kind symbols.SymbolKind, stmtID ast.StmtID) {
	_, err := c.table.Declare(let.Name, symbols.Symbol{
		Kind: kind,
		Decl: symbols.SymbolDecl{Stmt: stmtID},
		Span: let.NameSpan,
	})
	var dup *symbols.DuplicateError
	if errors.As(err, &dup) {
		symbols.ReportDuplicate(c.reporter, c.name(let.Name), dup)
	}
}

func (c *checker) walkStmt(stmtID ast.StmtID) {
	stmt := c.builder.Stmts.Get(stmtID)
	if stmt == nil {
		return
	}
	switch stmt.Kind {
	case ast.StmtBlock:
		block, _ := c.builder.Stmts.Block(stmtID)
		scope := c.table.Enter(symbols.ScopeBlock, stmt.Span)
		defer c.table.Leave(scope)
		for _, child := range block.Stmts {
			c.walkStmt(child)
		}
	case ast.StmtVar, ast.StmtConst:
		let, _ := c.builder.Stmts.Let(stmtID)
		kind := symbols.SymbolVar
		if stmt.Kind == ast.StmtConst {
			kind = symbols.SymbolConst
		}
		c.declareLocal(let, kind, stmtID)
	case ast.StmtIf:
		ifStmt, _ := c.builder.Stmts.If(stmtID)
		c.walkStmt(ifStmt.Then)
		c.walkStmt(ifStmt.Else)
	case ast.StmtLoop:
		loop, _ := c.builder.Stmts.Loop(stmtID)
		c.loopDepth++
		c.walkStmt(loop.Body)
		c.loopDepth--
	case ast.StmtBreak, ast.StmtContinue:
		if c.loopDepth == 0 {
			c.report(diag.SemaBreakOutsideLoop, stmt.Span, "'%s' outside of a loop", keyword(stmt.Kind))
		}
	case ast.StmtReturn:
		ret, _ := c.builder.Stmts.Return(stmtID)
		switch {
		case ret.Value.IsValid() && !c.returnsValue():
			c.report(diag.SemaReturnValueMismatch, stmt.Span, "function '%s' does not return a value", c.name(c.fn.Name))
		case !ret.Value.IsValid() && c.returnsValue():
			c.report(diag.SemaReturnValueMismatch, stmt.Span, "function '%s' must return a value", c.name(c.fn.Name))
		}
	}
}

func keyword(kind ast.StmtKind) string {
	if kind == ast.StmtBreak {
		return "break"
	}
	return "continue"
}
