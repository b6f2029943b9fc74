package sema

import (
	"mx/internal/ast"
)

type returnStatus uint8

const (
	returnOpen returnStatus = iota
	returnClosed
)

// returnStatus decides return coverage structurally: a block covers iff its
// last statement covers, an if covers iff it has an else and both branches
// cover, an unconditional loop covers iff no break leaves it.
func (c *checker) returnStatus(stmtID ast.StmtID) returnStatus {
	stmt := c.builder.Stmts.Get(stmtID)
	if stmt == nil {
		return returnOpen
	}
	switch stmt.Kind {
	case ast.StmtReturn:
		return returnClosed
	case ast.StmtBlock:
		block, _ := c.builder.Stmts.Block(stmtID)
		if len(block.Stmts) == 0 {
			return returnOpen
		}
		return c.returnStatus(block.Stmts[len(block.Stmts)-1])
	case ast.StmtIf:
		ifStmt, _ := c.builder.Stmts.If(stmtID)
		if !ifStmt.Else.IsValid() {
			return returnOpen
		}
		if c.returnStatus(ifStmt.Then) == returnClosed && c.returnStatus(ifStmt.Else) == returnClosed {
			return returnClosed
		}
		return returnOpen
	case ast.StmtLoop:
		loop, _ := c.builder.Stmts.Loop(stmtID)
		if loop.Cond.IsValid() && !c.isBoolLiteralTrue(loop.Cond) {
			return returnOpen
		}
		if c.hasBreak(loop.Body) {
			return returnOpen
		}
		return returnClosed
	default:
		return returnOpen
	}
}

// hasBreak reports a break that exits the loop owning stmtID. Breaks inside
// nested loops belong to those loops.
func (c *checker) hasBreak(stmtID ast.StmtID) bool {
	stmt := c.builder.Stmts.Get(stmtID)
	if stmt == nil {
		return false
	}
	switch stmt.Kind {
	case ast.StmtBreak:
		return true
	case ast.StmtBlock:
		block, _ := c.builder.Stmts.Block(stmtID)
		for _, child := range block.Stmts {
			if c.hasBreak(child) {
				return true
			}
		}
	case ast.StmtIf:
		ifStmt, _ := c.builder.Stmts.If(stmtID)
		return c.hasBreak(ifStmt.Then) || c.hasBreak(ifStmt.Else)
	}
	return false
}

func (c *checker) isBoolLiteralTrue(expr ast.ExprID) bool {
	node := c.builder.Exprs.Get(expr)
	if node == nil || node.Kind != ast.ExprBoolLit {
		return false
	}
	lit, _ := c.builder.Exprs.Literal(expr)
	return c.name(lit.Value) == "true"
}
