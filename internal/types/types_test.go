package types

import (
	"testing"

	"mx/internal/ast"
)

func TestBuiltinsByName(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	for name, want := range map[string]TypeID{
		"Int32":   b.Int32,
		"UInt8":   b.UInt8,
		"Float64": b.Float64,
		"Bool":    b.Bool,
		"String":  b.String,
	} {
		got, ok := in.ByName(name)
		if !ok || got != want {
			t.Errorf("%s: got %d (ok=%v), want %d", name, got, ok, want)
		}
		if in.Name(got) != name {
			t.Errorf("Name(%s) = %q", name, in.Name(got))
		}
	}
	if b.UntypedInt == b.Int64 {
		t.Fatalf("untyped int must be distinct")
	}
}

func TestIntBounds(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	tests := []struct {
		id     TypeID
		lo, hi string
	}{
		{b.Int8, "-128", "127"},
		{b.UInt8, "0", "255"},
		{b.Int64, "-9223372036854775808", "9223372036854775807"},
		{b.UInt64, "0", "18446744073709551615"},
	}
	for _, tt := range tests {
		lo, hi, ok := in.MustLookup(tt.id).IntBounds()
		if !ok || lo.String() != tt.lo || hi.String() != tt.hi {
			t.Errorf("%s: got [%v, %v]", in.Name(tt.id), lo, hi)
		}
	}
	if _, _, ok := in.MustLookup(b.UntypedInt).IntBounds(); ok {
		t.Fatalf("untyped int has no bounds")
	}
}

func TestDeclareIntOverridesPolicy(t *testing.T) {
	in := NewInterner()
	before := in.Builtins().Int32
	id := in.DeclareInt("Int32", Width32, true, OverflowTrap)
	if id == before {
		t.Fatalf("trap policy must produce a new type")
	}
	if in.Builtins().Int32 != id {
		t.Fatalf("builtin slot not rebound")
	}
	custom := in.DeclareInt("Byte", Width8, false, OverflowWrap)
	if got, _ := in.ByName("Byte"); got != custom {
		t.Fatalf("custom int not registered")
	}
}

func TestStructsAndFamilies(t *testing.T) {
	in := NewInterner()
	p := in.RegisterStruct("Point")
	if again := in.RegisterStruct("Point"); again != p {
		t.Fatalf("struct registration must be idempotent")
	}
	info, ok := in.StructInfo(p)
	if !ok {
		t.Fatalf("missing struct info")
	}
	info.Fields = []StructField{{Name: "x", Type: in.Builtins().Int32}, {Name: "y", Type: in.Builtins().Int32}}
	if _, idx, ok := info.Field("y"); !ok || idx != 1 {
		t.Fatalf("field lookup failed")
	}
	if in.FamilyOf(p) != FamilyStruct {
		t.Fatalf("struct family expected")
	}
	if in.FamilyOf(in.Builtins().UntypedInt)&FamilySignedInt == 0 {
		t.Fatalf("untyped int must fit signed family")
	}
	if len(BinarySpecs(ast.ExprBinaryMod)) != 1 {
		t.Fatalf("mod has a single integral spec")
	}
	if in.Name(in.List(in.Builtins().Int32, 4)) != "List<Int32, 4>" {
		t.Fatalf("unexpected list name %q", in.Name(in.List(in.Builtins().Int32, 4)))
	}
}

func TestTableRoundTrip(t *testing.T) {
	in := NewInterner()
	custom := in.DeclareInt("Int32", Width32, true, OverflowTrap)
	point := in.RegisterStruct("Point")
	info, _ := in.StructInfo(point)
	info.Fields = []StructField{{Name: "x", Type: custom}}
	info.Methods["add"] = Method{Name: "add", Params: []TypeID{point}, Result: point}
	list := in.List(custom, 4)

	out := FromTable(in.Export())
	if got, _ := out.ByName("Int32"); got != custom {
		t.Fatalf("Int32 rebinding lost: %d != %d", got, custom)
	}
	if out.Builtins().Int32 != custom {
		t.Fatalf("builtin slot not restored")
	}
	if out.MustLookup(custom).Overflow != OverflowTrap {
		t.Fatalf("overflow policy lost")
	}
	if out.Name(list) != "List<Int32, 4>" {
		t.Fatalf("list name = %q", out.Name(list))
	}
	got, ok := out.StructInfo(point)
	if !ok || len(got.Fields) != 1 || got.Methods["add"].Result != point {
		t.Fatalf("struct info lost: %+v", got)
	}
	if out.List(custom, 4) != list {
		t.Fatalf("interning index not rebuilt")
	}
	for _, id := range []TypeID{VoidID, BoolID, StringID} {
		if out.MustLookup(id).Kind != in.MustLookup(id).Kind {
			t.Fatalf("seed id %d moved", id)
		}
	}
}

func TestSeededIDs(t *testing.T) {
	b := NewInterner().Builtins()
	if b.Void != VoidID || b.Bool != BoolID || b.String != StringID || b.Range != RangeID {
		t.Fatalf("seed order changed: %+v", b)
	}
}
