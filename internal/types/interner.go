package types

import (
	"fmt"
	"strings"

	"fortio.org/safecast"
)

// Builtins stores TypeIDs for the predeclared types.
type Builtins struct {
	Invalid      TypeID
	Void         TypeID
	Bool         TypeID
	String       TypeID
	Int8         TypeID
	Int16        TypeID
	Int32        TypeID
	Int64        TypeID
	UInt8        TypeID
	UInt16       TypeID
	UInt32       TypeID
	UInt64       TypeID
	Float32      TypeID
	Float64      TypeID
	UntypedInt   TypeID
	UntypedFloat TypeID
	Range        TypeID
}

// Interner provides stable TypeIDs for structural descriptors and resolves
// type names of one unit.
type Interner struct {
	types    []Type
	index    map[Type]TypeID
	names    map[string]TypeID
	builtins Builtins
	structs  []StructInfo
}

// NewInterner constructs an interner seeded with the predeclared types.
func NewInterner() *Interner {
	in := &Interner{
		index: make(map[Type]TypeID, 64),
		names: make(map[string]TypeID, 32),
	}
	in.structs = append(in.structs, StructInfo{}) // 0: sentinel
	in.types = append(in.types, Type{Kind: KindInvalid})
	b := &in.builtins
	b.Void = in.named("Void", Type{Kind: KindVoid})
	b.Bool = in.named("Bool", Type{Kind: KindBool})
	b.String = in.named("String", Type{Kind: KindString})
	b.Range = in.named("Range", Type{Kind: KindRange})
	b.Int8 = in.DeclareInt("Int8", Width8, true, OverflowWrap)
	b.Int16 = in.DeclareInt("Int16", Width16, true, OverflowWrap)
	b.Int32 = in.DeclareInt("Int32", Width32, true, OverflowWrap)
	b.Int64 = in.DeclareInt("Int64", Width64, true, OverflowWrap)
	b.UInt8 = in.DeclareInt("UInt8", Width8, false, OverflowWrap)
	b.UInt16 = in.DeclareInt("UInt16", Width16, false, OverflowWrap)
	b.UInt32 = in.DeclareInt("UInt32", Width32, false, OverflowWrap)
	b.UInt64 = in.DeclareInt("UInt64", Width64, false, OverflowWrap)
	b.Float32 = in.named("Float32", Type{Kind: KindFloat, Name: "Float32", Width: Width32})
	b.Float64 = in.named("Float64", Type{Kind: KindFloat, Name: "Float64", Width: Width64})
	b.UntypedInt = in.Intern(Type{Kind: KindUntypedInt})
	b.UntypedFloat = in.Intern(Type{Kind: KindUntypedFloat})
	return in
}

// Builtins returns TypeIDs for primitive types.
func (in *Interner) Builtins() Builtins {
	return in.builtins
}

func (in *Interner) named(name string, t Type) TypeID {
	id := in.Intern(t)
	in.names[name] = id
	return id
}

// DeclareInt registers (or redefines) a named integer type. Redeclaring a
// builtin name replaces its policy for this interner only.
func (in *Interner) DeclareInt(name string, width Width, signed bool, overflow Overflow) TypeID {
	kind := KindUint
	if signed {
		kind = KindInt
	}
	id := in.Intern(Type{Kind: kind, Name: name, Width: width, Overflow: overflow})
	if old, ok := in.names[name]; ok && old != id {
		in.rebindBuiltin(old, id)
	}
	in.names[name] = id
	return id
}

func (in *Interner) rebindBuiltin(old, id TypeID) {
	b := &in.builtins
	for _, slot := range []*TypeID{&b.Int8, &b.Int16, &b.Int32, &b.Int64, &b.UInt8, &b.UInt16, &b.UInt32, &b.UInt64} {
		if *slot == old {
			*slot = id
		}
	}
}

// Intern ensures the provided descriptor has a stable TypeID.
func (in *Interner) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	if id, ok := in.index[t]; ok {
		return id
	}
	n, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id := TypeID(n)
	in.types = append(in.types, t)
	in.index[t] = id
	return id
}

// Lookup returns the descriptor for a TypeID.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	if id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// MustLookup returns the descriptor or the invalid one.
func (in *Interner) MustLookup(id TypeID) Type {
	t, _ := in.Lookup(id)
	return t
}

// ByName resolves a declared type name.
func (in *Interner) ByName(name string) (TypeID, bool) {
	id, ok := in.names[name]
	return id, ok
}

// List interns List<elem> with an optional fixed count.
func (in *Interner) List(elem TypeID, count uint32) TypeID {
	return in.Intern(Type{Kind: KindList, Elem: elem, Count: count})
}

// Map interns Map<key, value>.
func (in *Interner) Map(key, value TypeID) TypeID {
	return in.Intern(Type{Kind: KindMap, Key: key, Elem: value})
}

// RegisterStruct creates a nominal struct type; fields are set later so
// structs may refer to each other.
func (in *Interner) RegisterStruct(name string) TypeID {
	if id, ok := in.names[name]; ok {
		if t, _ := in.Lookup(id); t.Kind == KindStruct {
			return id
		}
	}
	n, err := safecast.Conv[uint32](len(in.structs))
	if err != nil {
		panic(fmt.Errorf("len(structs) overflow: %w", err))
	}
	in.structs = append(in.structs, StructInfo{Name: name, Methods: map[string]Method{}})
	return in.named(name, Type{Kind: KindStruct, Name: name, Struct: n})
}

// StructInfo returns mutable nominal data of a struct type.
func (in *Interner) StructInfo(id TypeID) (*StructInfo, bool) {
	t, ok := in.Lookup(id)
	if !ok || t.Kind != KindStruct || int(t.Struct) >= len(in.structs) {
		return nil, false
	}
	return &in.structs[t.Struct], true
}

// Name renders a type for diagnostics and dumps.
func (in *Interner) Name(id TypeID) string {
	t, ok := in.Lookup(id)
	if !ok {
		return "<invalid>"
	}
	switch t.Kind {
	case KindVoid:
		return "Void"
	case KindBool:
		return "Bool"
	case KindString:
		return "String"
	case KindInt, KindUint, KindFloat, KindStruct:
		return t.Name
	case KindRange:
		return "Range"
	case KindUntypedInt:
		return "untyped int"
	case KindUntypedFloat:
		return "untyped float"
	case KindList:
		var sb strings.Builder
		sb.WriteString("List<")
		sb.WriteString(in.Name(t.Elem))
		if t.Count != ListDynamicLength && t.Count != 0 {
			fmt.Fprintf(&sb, ", %d", t.Count)
		}
		sb.WriteString(">")
		return sb.String()
	case KindMap:
		return "Map<" + in.Name(t.Key) + ", " + in.Name(t.Elem) + ">"
	}
	return t.Kind.String()
}
