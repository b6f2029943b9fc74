package comptime

import (
	"mx/internal/mxir"
	"mx/internal/types"
)

// ToNode turns a value into its MXIR literal form. Structs become a
// StructBuild of literals and ranges a RangeBuild.
func ToNode(in *types.Interner, v Value) mxir.Node {
	switch v.Kind {
	case KindInt:
		return &mxir.ConstInt{Value: v.Int, Typ: v.Type}
	case KindFloat:
		return &mxir.ConstFloat{Value: v.Float, Typ: v.Type}
	case KindBool:
		return &mxir.ConstBool{Value: v.Bool}
	case KindStr:
		return &mxir.ConstStr{Value: v.Str}
	case KindStruct:
		sb := &mxir.StructBuild{TypeName: in.Name(v.Type), Typ: v.Type}
		for _, f := range v.Fields {
			sb.Fields = append(sb.Fields, mxir.FieldInit{Name: f.Name, Value: ToNode(in, f.Value)})
		}
		return sb
	case KindRange:
		rb := &mxir.RangeBuild{}
		if v.Start != nil {
			rb.Start = ToNode(in, *v.Start)
		}
		if v.End != nil {
			rb.End = ToNode(in, *v.End)
		}
		return rb
	}
	return &mxir.ErrorMarker{Message: "value has no literal form"}
}

// FromNode reads back a value from a literal node. Composite nodes count
// as literal only when all their operands are.
func FromNode(n mxir.Node) (Value, bool) {
	switch n := n.(type) {
	case *mxir.ConstInt:
		return Int(n.Value, n.Typ), n.Value != nil
	case *mxir.ConstFloat:
		return Float(n.Value, n.Typ), true
	case *mxir.ConstBool:
		return Bool(n.Value), true
	case *mxir.ConstStr:
		return Str(n.Value), true
	case *mxir.StructBuild:
		fields := make([]Field, 0, len(n.Fields))
		for _, f := range n.Fields {
			v, ok := FromNode(f.Value)
			if !ok {
				return Value{}, false
			}
			fields = append(fields, Field{Name: f.Name, Value: v})
		}
		return Struct(n.Typ, fields), true
	case *mxir.RangeBuild:
		var start, end *Value
		if n.Start != nil {
			v, ok := FromNode(n.Start)
			if !ok {
				return Value{}, false
			}
			start = &v
		}
		if n.End != nil {
			v, ok := FromNode(n.End)
			if !ok {
				return Value{}, false
			}
			end = &v
		}
		return Range(start, end), true
	}
	return Value{}, false
}
