package types

// Table is the serializable content of an interner.
type Table struct {
	Types   []Type
	Structs []StructInfo
}

// Export snapshots the interner. Slot 0 of both slices is the sentinel.
func (in *Interner) Export() Table {
	t := Table{
		Types:   make([]Type, len(in.types)),
		Structs: make([]StructInfo, len(in.structs)),
	}
	copy(t.Types, in.types)
	copy(t.Structs, in.structs)
	return t
}

// FromTable rebuilds an interner with the exact TypeIDs of an exported one.
func FromTable(t Table) *Interner {
	in := NewInterner()
	if len(t.Types) == 0 {
		return in
	}
	in.types = append(in.types[:0], t.Types...)
	in.index = make(map[Type]TypeID, len(t.Types))
	for i, typ := range in.types {
		if i == 0 {
			continue
		}
		if _, seen := in.index[typ]; !seen {
			in.index[typ] = TypeID(i) //nolint:gosec // индекс уже был TypeID
		}
	}
	if len(t.Structs) > 0 {
		in.structs = append(in.structs[:0], t.Structs...)
	}
	for i := range in.structs {
		if in.structs[i].Methods == nil {
			in.structs[i].Methods = map[string]Method{}
		}
	}

	in.names = make(map[string]TypeID, len(in.names))
	for i, typ := range in.types {
		id := TypeID(i) //nolint:gosec // см. выше
		switch typ.Kind {
		case KindVoid:
			in.names["Void"] = id
		case KindBool:
			in.names["Bool"] = id
		case KindString:
			in.names["String"] = id
		case KindRange:
			in.names["Range"] = id
		case KindInt, KindUint, KindFloat, KindStruct:
			if typ.Name != "" {
				in.names[typ.Name] = id
			}
		}
	}
	b := &in.builtins
	for _, slot := range []struct {
		name string
		id   *TypeID
	}{
		{"Int8", &b.Int8}, {"Int16", &b.Int16}, {"Int32", &b.Int32}, {"Int64", &b.Int64},
		{"UInt8", &b.UInt8}, {"UInt16", &b.UInt16}, {"UInt32", &b.UInt32}, {"UInt64", &b.UInt64},
		{"Float32", &b.Float32}, {"Float64", &b.Float64},
	} {
		if id, ok := in.names[slot.name]; ok {
			*slot.id = id
		}
	}
	return in
}
