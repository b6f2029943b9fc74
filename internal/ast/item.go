package ast

import (
	"mx/internal/source"
)

type ItemKind uint8

const (
	ItemInvalid ItemKind = iota
	ItemFn
	ItemStruct
	ItemConst
	ItemVar
)

func (k ItemKind) String() string {
	switch k {
	case ItemFn:
		return "FnDecl"
	case ItemStruct:
		return "StructDecl"
	case ItemConst:
		return "ConstDecl"
	case ItemVar:
		return "VarDecl"
	default:
		return "Invalid"
	}
}

type Item struct {
	Kind    ItemKind
	Span    source.Span
	Payload PayloadID
}

type FnParam struct {
	Name source.StringID
	Type TypeExprID
	Span source.Span
}

// FnItem describes a function. Receiver is set for struct methods; the
// receiver value is an implicit first argument named `self`.
type FnItem struct {
	Name           source.StringID
	NameSpan       source.Span
	Comptime       bool
	ComptimeParams []FnParam
	Params         []FnParam
	Result         TypeExprID // NoTypeExprID == Void
	Body           StmtID
	Receiver       source.StringID
}

// IsMethod reports whether fn belongs to a struct.
func (f *FnItem) IsMethod() bool {
	return f.Receiver != source.NoStringID
}

type StructField struct {
	Name source.StringID
	Type TypeExprID
	Span source.Span
}

type StructItem struct {
	Name     source.StringID
	NameSpan source.Span
	Fields   []StructField
	Methods  []ItemID
}

// LetItem is a top-level `const` or `var`.
type LetItem struct {
	Name     source.StringID
	NameSpan source.Span
	Type     TypeExprID
	Value    ExprID
}

type Items struct {
	Arena   *Arena[Item]
	Fns     *Arena[FnItem]
	Structs *Arena[StructItem]
	Lets    *Arena[LetItem]
}

func NewItems(capHint uint) *Items {
	if capHint == 0 {
		capHint = 1 << 6
	}
	return &Items{
		Arena:   NewArena[Item](capHint),
		Fns:     NewArena[FnItem](capHint),
		Structs: NewArena[StructItem](capHint/4 + 1),
		Lets:    NewArena[LetItem](capHint/2 + 1),
	}
}

func (i *Items) new(kind ItemKind, span source.Span, payload uint32) ItemID {
	return ItemID(i.Arena.Allocate(Item{Kind: kind, Span: span, Payload: PayloadID(payload)}))
}

func (i *Items) Get(id ItemID) *Item {
	return i.Arena.Get(uint32(id))
}

func (i *Items) NewFn(span source.Span, fn FnItem) ItemID {
	return i.new(ItemFn, span, i.Fns.Allocate(fn))
}

func (i *Items) Fn(id ItemID) (*FnItem, bool) {
	item := i.Get(id)
	if item == nil || item.Kind != ItemFn {
		return nil, false
	}
	return i.Fns.Get(uint32(item.Payload)), true
}

func (i *Items) NewStruct(span source.Span, st StructItem) ItemID {
	return i.new(ItemStruct, span, i.Structs.Allocate(st))
}

func (i *Items) Struct(id ItemID) (*StructItem, bool) {
	item := i.Get(id)
	if item == nil || item.Kind != ItemStruct {
		return nil, false
	}
	return i.Structs.Get(uint32(item.Payload)), true
}

// NewLet creates a top-level `const` (constant=true) or `var`.
func (i *Items) NewLet(span source.Span, constant bool, let LetItem) ItemID {
	kind := ItemVar
	if constant {
		kind = ItemConst
	}
	return i.new(kind, span, i.Lets.Allocate(let))
}

func (i *Items) Let(id ItemID) (*LetItem, bool) {
	item := i.Get(id)
	if item == nil || (item.Kind != ItemConst && item.Kind != ItemVar) {
		return nil, false
	}
	return i.Lets.Get(uint32(item.Payload)), true
}
