package ast

import (
	"mx/internal/source"
)

type StmtKind uint8

const (
	StmtInvalid StmtKind = iota
	StmtBlock
	StmtVar
	StmtConst
	StmtIf
	StmtLoop
	StmtBreak
	StmtContinue
	StmtReturn
	StmtExpr
	StmtAssign
)

func (k StmtKind) String() string {
	switch k {
	case StmtBlock:
		return "Block"
	case StmtVar:
		return "VarDecl"
	case StmtConst:
		return "ConstDecl"
	case StmtIf:
		return "IfStmt"
	case StmtLoop:
		return "LoopStmt"
	case StmtBreak:
		return "BreakStmt"
	case StmtContinue:
		return "ContinueStmt"
	case StmtReturn:
		return "ReturnStmt"
	case StmtExpr:
		return "ExprStmt"
	case StmtAssign:
		return "AssignStmt"
	default:
		return "Invalid"
	}
}

type Stmt struct {
	Kind    StmtKind
	Span    source.Span
	Payload PayloadID
}

type BlockStmt struct {
	Stmts []StmtID
}

// LetStmt is shared by `var` and `const` declarations.
type LetStmt struct {
	Name     source.StringID
	NameSpan source.Span
	Type     TypeExprID
	Value    ExprID
}

type IfStmt struct {
	Cond ExprID
	Then StmtID
	Else StmtID // блок, вложенный if или NoStmtID
}

// LoopStmt без условия означает бесконечный цикл.
type LoopStmt struct {
	Cond ExprID
	Body StmtID
}

type ReturnStmt struct {
	Value ExprID
}

type ExprStmt struct {
	Expr ExprID
}

type AssignStmt struct {
	Target ExprID
	Value  ExprID
}

type Stmts struct {
	Arena   *Arena[Stmt]
	Blocks  *Arena[BlockStmt]
	Lets    *Arena[LetStmt]
	Ifs     *Arena[IfStmt]
	Loops   *Arena[LoopStmt]
	Returns *Arena[ReturnStmt]
	Exprs   *Arena[ExprStmt]
	Assigns *Arena[AssignStmt]
}

func NewStmts(capHint uint) *Stmts {
	if capHint == 0 {
		capHint = 1 << 8
	}
	small := capHint/4 + 1
	return &Stmts{
		Arena:   NewArena[Stmt](capHint),
		Blocks:  NewArena[BlockStmt](small),
		Lets:    NewArena[LetStmt](small),
		Ifs:     NewArena[IfStmt](small),
		Loops:   NewArena[LoopStmt](small),
		Returns: NewArena[ReturnStmt](small),
		Exprs:   NewArena[ExprStmt](small),
		Assigns: NewArena[AssignStmt](small),
	}
}

func (s *Stmts) new(kind StmtKind, span source.Span, payload uint32) StmtID {
	return StmtID(s.Arena.Allocate(Stmt{
		Kind:    kind,
		Span:    span,
		Payload: PayloadID(payload),
	}))
}

func (s *Stmts) Get(id StmtID) *Stmt {
	return s.Arena.Get(uint32(id))
}

func (s *Stmts) payload(id StmtID, kind StmtKind) (uint32, bool) {
	st := s.Get(id)
	if st == nil || st.Kind != kind {
		return 0, false
	}
	return uint32(st.Payload), true
}

func (s *Stmts) NewBlock(span source.Span, stmts []StmtID) StmtID {
	return s.new(StmtBlock, span, s.Blocks.Allocate(BlockStmt{Stmts: stmts}))
}

func (s *Stmts) Block(id StmtID) (*BlockStmt, bool) {
	p, ok := s.payload(id, StmtBlock)
	if !ok {
		return nil, false
	}
	return s.Blocks.Get(p), true
}

// NewLet creates a `var` (constant=false) or `const` declaration.
func (s *Stmts) NewLet(span source.Span, constant bool, let LetStmt) StmtID {
	kind := StmtVar
	if constant {
		kind = StmtConst
	}
	return s.new(kind, span, s.Lets.Allocate(let))
}

func (s *Stmts) Let(id StmtID) (*LetStmt, bool) {
	st := s.Get(id)
	if st == nil || (st.Kind != StmtVar && st.Kind != StmtConst) {
		return nil, false
	}
	return s.Lets.Get(uint32(st.Payload)), true
}

func (s *Stmts) NewIf(span source.Span, cond ExprID, then, els StmtID) StmtID {
	return s.new(StmtIf, span, s.Ifs.Allocate(IfStmt{Cond: cond, Then: then, Else: els}))
}

func (s *Stmts) If(id StmtID) (*IfStmt, bool) {
	p, ok := s.payload(id, StmtIf)
	if !ok {
		return nil, false
	}
	return s.Ifs.Get(p), true
}

func (s *Stmts) NewLoop(span source.Span, cond ExprID, body StmtID) StmtID {
	return s.new(StmtLoop, span, s.Loops.Allocate(LoopStmt{Cond: cond, Body: body}))
}

func (s *Stmts) Loop(id StmtID) (*LoopStmt, bool) {
	p, ok := s.payload(id, StmtLoop)
	if !ok {
		return nil, false
	}
	return s.Loops.Get(p), true
}

func (s *Stmts) NewBreak(span source.Span) StmtID {
	return s.new(StmtBreak, span, 0)
}

func (s *Stmts) NewContinue(span source.Span) StmtID {
	return s.new(StmtContinue, span, 0)
}

func (s *Stmts) NewReturn(span source.Span, value ExprID) StmtID {
	return s.new(StmtReturn, span, s.Returns.Allocate(ReturnStmt{Value: value}))
}

func (s *Stmts) Return(id StmtID) (*ReturnStmt, bool) {
	p, ok := s.payload(id, StmtReturn)
	if !ok {
		return nil, false
	}
	return s.Returns.Get(p), true
}

func (s *Stmts) NewExpr(span source.Span, expr ExprID) StmtID {
	return s.new(StmtExpr, span, s.Exprs.Allocate(ExprStmt{Expr: expr}))
}

func (s *Stmts) Expr(id StmtID) (*ExprStmt, bool) {
	p, ok := s.payload(id, StmtExpr)
	if !ok {
		return nil, false
	}
	return s.Exprs.Get(p), true
}

func (s *Stmts) NewAssign(span source.Span, target, value ExprID) StmtID {
	return s.new(StmtAssign, span, s.Assigns.Allocate(AssignStmt{Target: target, Value: value}))
}

func (s *Stmts) Assign(id StmtID) (*AssignStmt, bool) {
	p, ok := s.payload(id, StmtAssign)
	if !ok {
		return nil, false
	}
	return s.Assigns.Get(p), true
}
