package ast

import (
	"mx/internal/source"
)

// Exprs manages allocation of expressions.
type Exprs struct {
	Arena         *Arena[Expr]
	Literals      *Arena[ExprLiteralData]
	Strings       *Arena[ExprStringData]
	Idents        *Arena[ExprIdentData]
	Binaries      *Arena[ExprBinaryData]
	Unaries       *Arena[ExprUnaryData]
	Calls         *Arena[ExprCallData]
	ComptimeCalls *Arena[ExprComptimeCallData]
	Structs       *Arena[ExprStructData]
	Members       *Arena[ExprMemberData]
	Ranges        *Arena[ExprRangeData]
	Lists         *Arena[ExprListData]
	Maps          *Arena[ExprMapData]
}

// NewExprs creates per-kind arenas preallocated with capHint slots.
func NewExprs(capHint uint) *Exprs {
	if capHint == 0 {
		capHint = 1 << 8
	}
	small := capHint/4 + 1
	return &Exprs{
		Arena:         NewArena[Expr](capHint),
		Literals:      NewArena[ExprLiteralData](capHint),
		Strings:       NewArena[ExprStringData](small),
		Idents:        NewArena[ExprIdentData](capHint),
		Binaries:      NewArena[ExprBinaryData](capHint),
		Unaries:       NewArena[ExprUnaryData](small),
		Calls:         NewArena[ExprCallData](small),
		ComptimeCalls: NewArena[ExprComptimeCallData](small),
		Structs:       NewArena[ExprStructData](small),
		Members:       NewArena[ExprMemberData](small),
		Ranges:        NewArena[ExprRangeData](small),
		Lists:         NewArena[ExprListData](small),
		Maps:          NewArena[ExprMapData](small),
	}
}

func (e *Exprs) new(kind ExprKind, span source.Span, payload uint32) ExprID {
	return ExprID(e.Arena.Allocate(Expr{
		Kind:    kind,
		Span:    span,
		Payload: PayloadID(payload),
	}))
}

// Get returns the expression with the given ID.
func (e *Exprs) Get(id ExprID) *Expr {
	return e.Arena.Get(uint32(id))
}

func (e *Exprs) payload(id ExprID, kind ExprKind) (uint32, bool) {
	expr := e.Get(id)
	if expr == nil || expr.Kind != kind {
		return 0, false
	}
	return uint32(expr.Payload), true
}

// NewLiteral creates an Int/Float/Bool literal; kind selects which.
func (e *Exprs) NewLiteral(span source.Span, kind ExprKind, value source.StringID) ExprID {
	switch kind {
	case ExprIntLit, ExprFloatLit, ExprBoolLit:
	default:
		kind = ExprInvalid
	}
	return e.new(kind, span, e.Literals.Allocate(ExprLiteralData{Value: value}))
}

// Literal returns the raw text of an Int/Float/Bool literal.
func (e *Exprs) Literal(id ExprID) (*ExprLiteralData, bool) {
	expr := e.Get(id)
	if expr == nil {
		return nil, false
	}
	switch expr.Kind {
	case ExprIntLit, ExprFloatLit, ExprBoolLit:
		return e.Literals.Get(uint32(expr.Payload)), true
	}
	return nil, false
}

func (e *Exprs) NewStringLit(span source.Span, parts []StringPart) ExprID {
	return e.new(ExprStringLit, span, e.Strings.Allocate(ExprStringData{Parts: parts}))
}

func (e *Exprs) StringLit(id ExprID) (*ExprStringData, bool) {
	p, ok := e.payload(id, ExprStringLit)
	if !ok {
		return nil, false
	}
	return e.Strings.Get(p), true
}

// NewIdent creates a new identifier expression.
func (e *Exprs) NewIdent(span source.Span, name source.StringID) ExprID {
	return e.new(ExprIdent, span, e.Idents.Allocate(ExprIdentData{Name: name}))
}

// Ident returns the identifier data for the given expression ID.
func (e *Exprs) Ident(id ExprID) (*ExprIdentData, bool) {
	p, ok := e.payload(id, ExprIdent)
	if !ok {
		return nil, false
	}
	return e.Idents.Get(p), true
}

// NewBinary creates a new binary expression.
func (e *Exprs) NewBinary(span source.Span, op ExprBinaryOp, left, right ExprID) ExprID {
	return e.new(ExprBinary, span, e.Binaries.Allocate(ExprBinaryData{Op: op, Left: left, Right: right}))
}

func (e *Exprs) Binary(id ExprID) (*ExprBinaryData, bool) {
	p, ok := e.payload(id, ExprBinary)
	if !ok {
		return nil, false
	}
	return e.Binaries.Get(p), true
}

func (e *Exprs) NewUnary(span source.Span, op ExprUnaryOp, operand ExprID) ExprID {
	return e.new(ExprUnary, span, e.Unaries.Allocate(ExprUnaryData{Op: op, Operand: operand}))
}

func (e *Exprs) Unary(id ExprID) (*ExprUnaryData, bool) {
	p, ok := e.payload(id, ExprUnary)
	if !ok {
		return nil, false
	}
	return e.Unaries.Get(p), true
}

func (e *Exprs) NewCall(span source.Span, callee ExprID, args []ExprID) ExprID {
	return e.new(ExprCall, span, e.Calls.Allocate(ExprCallData{Callee: callee, Args: args}))
}

func (e *Exprs) Call(id ExprID) (*ExprCallData, bool) {
	p, ok := e.payload(id, ExprCall)
	if !ok {
		return nil, false
	}
	return e.Calls.Get(p), true
}

func (e *Exprs) NewComptimeCall(span source.Span, callee ExprID, comptimeArgs, args []ExprID) ExprID {
	return e.new(ExprComptimeCall, span, e.ComptimeCalls.Allocate(ExprComptimeCallData{
		Callee:       callee,
		ComptimeArgs: comptimeArgs,
		Args:         args,
	}))
}

func (e *Exprs) ComptimeCall(id ExprID) (*ExprComptimeCallData, bool) {
	p, ok := e.payload(id, ExprComptimeCall)
	if !ok {
		return nil, false
	}
	return e.ComptimeCalls.Get(p), true
}

func (e *Exprs) NewStructInit(span source.Span, typeName source.StringID, fields []ExprStructField) ExprID {
	return e.new(ExprStructInit, span, e.Structs.Allocate(ExprStructData{Type: typeName, Fields: fields}))
}

func (e *Exprs) StructInit(id ExprID) (*ExprStructData, bool) {
	p, ok := e.payload(id, ExprStructInit)
	if !ok {
		return nil, false
	}
	return e.Structs.Get(p), true
}

func (e *Exprs) NewMember(span source.Span, target ExprID, field source.StringID) ExprID {
	return e.new(ExprMember, span, e.Members.Allocate(ExprMemberData{Target: target, Field: field}))
}

func (e *Exprs) Member(id ExprID) (*ExprMemberData, bool) {
	p, ok := e.payload(id, ExprMember)
	if !ok {
		return nil, false
	}
	return e.Members.Get(p), true
}

func (e *Exprs) NewRange(span source.Span, start, end ExprID) ExprID {
	return e.new(ExprRange, span, e.Ranges.Allocate(ExprRangeData{Start: start, End: end}))
}

func (e *Exprs) Range(id ExprID) (*ExprRangeData, bool) {
	p, ok := e.payload(id, ExprRange)
	if !ok {
		return nil, false
	}
	return e.Ranges.Get(p), true
}

func (e *Exprs) NewList(span source.Span, elems []ExprID) ExprID {
	return e.new(ExprListLit, span, e.Lists.Allocate(ExprListData{Elems: elems}))
}

func (e *Exprs) List(id ExprID) (*ExprListData, bool) {
	p, ok := e.payload(id, ExprListLit)
	if !ok {
		return nil, false
	}
	return e.Lists.Get(p), true
}

func (e *Exprs) NewMap(span source.Span, entries []ExprMapEntry) ExprID {
	return e.new(ExprMapLit, span, e.Maps.Allocate(ExprMapData{Entries: entries}))
}

func (e *Exprs) Map(id ExprID) (*ExprMapData, bool) {
	p, ok := e.payload(id, ExprMapLit)
	if !ok {
		return nil, false
	}
	return e.Maps.Get(p), true
}
