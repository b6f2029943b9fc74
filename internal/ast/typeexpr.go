package ast

import (
	"mx/internal/source"
)

type TypeExprKind uint8

const (
	TypeExprInvalid TypeExprKind = iota
	TypeExprNamed
	TypeExprList
	TypeExprMap
)

// TypeExpr is a type as written. Len is the comptime length of a sized list.
type TypeExpr struct {
	Kind TypeExprKind
	Span source.Span
	Name source.StringID
	Elem TypeExprID
	Key  TypeExprID
	Len  ExprID
}

type TypeExprs struct {
	Arena *Arena[TypeExpr]
}

func NewTypeExprs(capHint uint) *TypeExprs {
	return &TypeExprs{Arena: NewArena[TypeExpr](capHint)}
}

func (t *TypeExprs) Get(id TypeExprID) *TypeExpr {
	return t.Arena.Get(uint32(id))
}

func (t *TypeExprs) NewNamed(span source.Span, name source.StringID) TypeExprID {
	return TypeExprID(t.Arena.Allocate(TypeExpr{Kind: TypeExprNamed, Span: span, Name: name}))
}

func (t *TypeExprs) NewList(span source.Span, elem TypeExprID, length ExprID) TypeExprID {
	return TypeExprID(t.Arena.Allocate(TypeExpr{Kind: TypeExprList, Span: span, Elem: elem, Len: length}))
}

func (t *TypeExprs) NewMap(span source.Span, key, value TypeExprID) TypeExprID {
	return TypeExprID(t.Arena.Allocate(TypeExpr{Kind: TypeExprMap, Span: span, Key: key, Elem: value}))
}
