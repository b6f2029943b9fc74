package comptime

import (
	"math/big"
	"strconv"
	"strings"

	"mx/internal/types"
)

// Kind enumerates comptime value shapes.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindVoid
	KindInt
	KindFloat
	KindBool
	KindStr
	KindStruct
	KindRange
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindVoid:
		return "void"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindStr:
		return "string"
	case KindStruct:
		return "struct"
	case KindRange:
		return "range"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	}
	return "invalid"
}

// Field is one named struct field value.
type Field struct {
	Name  string
	Value Value
}

// Value is an immutable comptime value. Int is never mutated after
// construction; operations allocate new big.Ints.
type Value struct {
	Kind   Kind
	Type   types.TypeID
	Int    *big.Int
	Float  float64
	Bool   bool
	Str    string
	Fields []Field
	Start  *Value
	End    *Value
	Elems  []Value // элементы списка или значения map
	Keys   []Value // ключи map, параллельно Elems
}

func Void() Value { return Value{Kind: KindVoid, Type: types.VoidID} }

func Int(v *big.Int, t types.TypeID) Value {
	return Value{Kind: KindInt, Type: t, Int: v}
}

func Int64(v int64, t types.TypeID) Value {
	return Int(big.NewInt(v), t)
}

func Float(v float64, t types.TypeID) Value {
	return Value{Kind: KindFloat, Type: t, Float: v}
}

func Bool(v bool) Value {
	return Value{Kind: KindBool, Type: types.BoolID, Bool: v}
}

func Str(s string) Value {
	return Value{Kind: KindStr, Type: types.StringID, Str: s}
}

// Struct builds a struct value; fields keep declaration order.
func Struct(t types.TypeID, fields []Field) Value {
	return Value{Kind: KindStruct, Type: t, Fields: fields}
}

// Range builds a range; either bound may be nil.
func Range(start, end *Value) Value {
	return Value{Kind: KindRange, Type: types.RangeID, Start: start, End: end}
}

// List builds a list value. Lists only exist at run time.
func List(t types.TypeID, elems []Value) Value {
	return Value{Kind: KindList, Type: t, Elems: elems}
}

// Map builds a map value from parallel key and value slices. Insertion
// order is kept.
func Map(t types.TypeID, keys, vals []Value) Value {
	return Value{Kind: KindMap, Type: t, Keys: keys, Elems: vals}
}

// IsValid reports a value that was actually produced.
func (v Value) IsValid() bool { return v.Kind != KindInvalid }

// Field reads a struct field.
func (v Value) Field(name string) (Value, bool) {
	for _, f := range v.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// WithField returns a copy of a struct value with one field replaced.
func (v Value) WithField(name string, fv Value) (Value, bool) {
	fields := make([]Field, len(v.Fields))
	copy(fields, v.Fields)
	for i := range fields {
		if fields[i].Name == name {
			fields[i].Value = fv
			v.Fields = fields
			return v, true
		}
	}
	return v, false
}

// String renders the value the way interpolation and print show it.
func (v Value) String() string {
	switch v.Kind {
	case KindVoid:
		return "()"
	case KindInt:
		if v.Int == nil {
			return "0"
		}
		return v.Int.String()
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindStr:
		return v.Str
	case KindStruct:
		var sb strings.Builder
		sb.WriteString("{")
		for i, f := range v.Fields {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(f.Name)
			sb.WriteString(": ")
			sb.WriteString(f.Value.String())
		}
		sb.WriteString("}")
		return sb.String()
	case KindList:
		parts := make([]string, 0, len(v.Elems))
		for _, e := range v.Elems {
			parts = append(parts, e.String())
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindMap:
		parts := make([]string, 0, len(v.Elems))
		for i := range v.Elems {
			parts = append(parts, v.Keys[i].String()+": "+v.Elems[i].String())
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case KindRange:
		out := ""
		if v.Start != nil {
			out = v.Start.String()
		}
		out += ".."
		if v.End != nil {
			out += v.End.String()
		}
		return out
	}
	return "<invalid>"
}

// Equal compares values structurally, types included.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind || v.Type != o.Type {
		return false
	}
	switch v.Kind {
	case KindInt:
		return v.Int.Cmp(o.Int) == 0
	case KindFloat:
		return v.Float == o.Float
	case KindBool:
		return v.Bool == o.Bool
	case KindStr:
		return v.Str == o.Str
	case KindStruct:
		if len(v.Fields) != len(o.Fields) {
			return false
		}
		for i := range v.Fields {
			if v.Fields[i].Name != o.Fields[i].Name || !v.Fields[i].Value.Equal(o.Fields[i].Value) {
				return false
			}
		}
		return true
	case KindRange:
		return boundEqual(v.Start, o.Start) && boundEqual(v.End, o.End)
	case KindList, KindMap:
		if len(v.Elems) != len(o.Elems) || len(v.Keys) != len(o.Keys) {
			return false
		}
		for i := range v.Elems {
			if !v.Elems[i].Equal(o.Elems[i]) {
				return false
			}
		}
		for i := range v.Keys {
			if !v.Keys[i].Equal(o.Keys[i]) {
				return false
			}
		}
		return true
	}
	return true
}

func boundEqual(a, b *Value) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// Zero returns the zero value of t. Structs get zero fields recursively.
func Zero(in *types.Interner, t types.TypeID) Value {
	return zero(in, t, 0)
}

func zero(in *types.Interner, t types.TypeID, depth int) Value {
	typ, ok := in.Lookup(t)
	if !ok || depth > 32 {
		return Value{}
	}
	switch typ.Kind {
	case types.KindVoid:
		return Void()
	case types.KindBool:
		return Bool(false)
	case types.KindString:
		return Str("")
	case types.KindInt, types.KindUint, types.KindUntypedInt:
		return Int(new(big.Int), t)
	case types.KindFloat, types.KindUntypedFloat:
		return Float(0, t)
	case types.KindRange:
		return Range(nil, nil)
	case types.KindList:
		if typ.Count == types.ListDynamicLength {
			return List(t, nil)
		}
		elems := make([]Value, 0, typ.Count)
		for range typ.Count {
			elems = append(elems, zero(in, typ.Elem, depth+1))
		}
		return List(t, elems)
	case types.KindMap:
		return Map(t, nil, nil)
	case types.KindStruct:
		info, ok := in.StructInfo(t)
		if !ok {
			return Value{}
		}
		fields := make([]Field, 0, len(info.Fields))
		for _, f := range info.Fields {
			fields = append(fields, Field{Name: f.Name, Value: zero(in, f.Type, depth+1)})
		}
		return Struct(t, fields)
	}
	return Value{}
}
