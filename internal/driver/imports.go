package driver

import (
	"fmt"

	"mx/internal/comptime"
	"mx/internal/types"
)

// retype moves a value from the interner of the unit that exported it into
// the importer's interner. Types are matched by name; a struct must be
// declared with the same fields in both units.
func retype(v comptime.Value, from, to *types.Interner) (comptime.Value, error) {
	t, err := retypeID(v.Type, from, to)
	if err != nil {
		return comptime.Value{}, err
	}
	out := v
	out.Type = t
	switch v.Kind {
	case comptime.KindStruct:
		info, _ := to.StructInfo(t)
		out.Fields = make([]comptime.Field, 0, len(v.Fields))
		for _, f := range v.Fields {
			if info != nil {
				if _, _, ok := info.Field(f.Name); !ok {
					return comptime.Value{}, fmt.Errorf("struct %s has no field %s here", to.Name(t), f.Name)
				}
			}
			fv, err := retype(f.Value, from, to)
			if err != nil {
				return comptime.Value{}, err
			}
			out.Fields = append(out.Fields, comptime.Field{Name: f.Name, Value: fv})
		}
	case comptime.KindRange:
		if v.Start != nil {
			s, err := retype(*v.Start, from, to)
			if err != nil {
				return comptime.Value{}, err
			}
			out.Start = &s
		}
		if v.End != nil {
			e, err := retype(*v.End, from, to)
			if err != nil {
				return comptime.Value{}, err
			}
			out.End = &e
		}
	case comptime.KindList, comptime.KindMap:
		return comptime.Value{}, fmt.Errorf("%s values are not constants", v.Kind)
	}
	return out, nil
}

func retypeID(id types.TypeID, from, to *types.Interner) (types.TypeID, error) {
	t, ok := from.Lookup(id)
	if !ok {
		return types.NoTypeID, fmt.Errorf("unknown type #%d", id)
	}
	switch t.Kind {
	case types.KindVoid:
		return types.VoidID, nil
	case types.KindBool:
		return types.BoolID, nil
	case types.KindString:
		return types.StringID, nil
	case types.KindRange:
		return types.RangeID, nil
	case types.KindUntypedInt:
		return to.Builtins().UntypedInt, nil
	case types.KindUntypedFloat:
		return to.Builtins().UntypedFloat, nil
	}
	name := from.Name(id)
	got, ok := to.ByName(name)
	if !ok {
		return types.NoTypeID, fmt.Errorf("type %s is not declared here", name)
	}
	gt := to.MustLookup(got)
	if gt.Kind != t.Kind || gt.Width != t.Width {
		return types.NoTypeID, fmt.Errorf("type %s differs between the units", name)
	}
	return got, nil
}
