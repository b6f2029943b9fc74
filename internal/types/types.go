package types

import (
	"fmt"
	"math/big"
)

// TypeID uniquely identifies a type inside the interner.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// Every interner is seeded in the same order, so these IDs are stable
// across units and across the wire.
const (
	VoidID   TypeID = 1
	BoolID   TypeID = 2
	StringID TypeID = 3
	RangeID  TypeID = 4
)

// Kind enumerates all supported kinds of types.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindVoid
	KindBool
	KindString
	KindInt
	KindUint
	KindFloat
	KindStruct
	KindList
	KindMap
	KindRange
	// литералы без явного типа: точная арифметика до материализации
	KindUntypedInt
	KindUntypedFloat
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindVoid:
		return "void"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindStruct:
		return "struct"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindRange:
		return "range"
	case KindUntypedInt:
		return "untyped int"
	case KindUntypedFloat:
		return "untyped float"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Width captures the precision of integers/floats.
type Width uint8

const (
	WidthAny Width = 0
	Width8   Width = 8
	Width16  Width = 16
	Width32  Width = 32
	Width64  Width = 64
)

// Overflow selects what fixed-width integer arithmetic does past its bounds.
type Overflow uint8

const (
	OverflowWrap Overflow = iota
	OverflowTrap
)

func (o Overflow) String() string {
	if o == OverflowTrap {
		return "trap"
	}
	return "wrap"
}

// ParseOverflow accepts "wrap" and "trap".
func ParseOverflow(s string) (Overflow, error) {
	switch s {
	case "", "wrap":
		return OverflowWrap, nil
	case "trap":
		return OverflowTrap, nil
	}
	return OverflowWrap, fmt.Errorf("invalid overflow policy %q (expected wrap|trap)", s)
}

// ListDynamicLength marks lists whose length is not fixed at compile time.
const ListDynamicLength = ^uint32(0)

// Type is a compact descriptor for any supported type.
type Type struct {
	Kind     Kind
	Name     string // имя для целых и структур
	Width    Width
	Overflow Overflow
	Elem     TypeID
	Key      TypeID
	Count    uint32
	Struct   uint32 // индекс StructInfo
}

// IsInteger reports fixed-width or untyped integers.
func (t Type) IsInteger() bool {
	return t.Kind == KindInt || t.Kind == KindUint || t.Kind == KindUntypedInt
}

// IsFloat reports fixed or untyped floats.
func (t Type) IsFloat() bool {
	return t.Kind == KindFloat || t.Kind == KindUntypedFloat
}

// IsUntyped reports literal types awaiting materialization.
func (t Type) IsUntyped() bool {
	return t.Kind == KindUntypedInt || t.Kind == KindUntypedFloat
}

// IntBounds returns the inclusive range of a fixed-width integer type.
// ok is false for untyped or non-integer types.
func (t Type) IntBounds() (lo, hi *big.Int, ok bool) {
	if t.Kind != KindInt && t.Kind != KindUint {
		return nil, nil, false
	}
	w := uint(t.Width)
	if w == 0 {
		w = 64
	}
	if t.Kind == KindUint {
		hi = new(big.Int).Lsh(big.NewInt(1), w)
		return big.NewInt(0), hi.Sub(hi, big.NewInt(1)), true
	}
	hi = new(big.Int).Lsh(big.NewInt(1), w-1)
	lo = new(big.Int).Neg(hi)
	return lo, hi.Sub(hi, big.NewInt(1)), true
}

// StructField describes one declared struct field.
type StructField struct {
	Name string
	Type TypeID
}

// Method is a struct method. Params excludes the implicit receiver.
type Method struct {
	Name     string
	Params   []TypeID
	Result   TypeID
	Comptime bool
}

// StructInfo keeps the nominal data of a struct type.
type StructInfo struct {
	Name    string
	Fields  []StructField
	Methods map[string]Method
}

// Field finds a field by name.
func (s *StructInfo) Field(name string) (StructField, int, bool) {
	for i, f := range s.Fields {
		if f.Name == name {
			return f, i, true
		}
	}
	return StructField{}, -1, false
}
