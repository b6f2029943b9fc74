package astio

import (
	"context"
	"testing"

	"mx/internal/ast"
	"mx/internal/diag"
	"mx/internal/interp"
	"mx/internal/lower"
	"mx/internal/source"
)

const demo = `{
  "version": 1,
  "unit": "demo",
  "source": "const LIMIT = 6 * 7;\nfn main(): Int64 { return LIMIT; }\n",
  "items": [
    {"kind": "ConstDecl", "name": "LIMIT", "span": [0, 20],
     "value": {"kind": "BinaryExpr", "op": "*",
               "lhs": {"kind": "IntLiteral", "text": "6"},
               "rhs": {"kind": "IntLiteral", "text": "7"}}},
    {"kind": "FnDecl", "name": "main", "span": [21, 55],
     "result": {"kind": "NamedType", "name": "Int64"},
     "body": {"kind": "Block", "stmts": [
       {"kind": "ExprStmt", "expr": {"kind": "CallExpr",
         "callee": {"kind": "Identifier", "name": "print"},
         "args": [{"kind": "StringLiteral", "parts": [
           {"kind": "Text", "text": "limit="},
           {"kind": "Identifier", "name": "LIMIT"}]}]}},
       {"kind": "ReturnStmt", "value": {"kind": "Identifier", "name": "LIMIT"}}
     ]}}
  ]
}`

func TestDecodeJSON(t *testing.T) {
	files := source.NewFileSet()
	bag := diag.NewBag(100)
	unit, ok := Decode([]byte(demo), FormatJSON, "demo.mxast.json", files, diag.BagReporter{Bag: bag})
	if !ok || bag.Len() != 0 {
		t.Fatalf("decode failed: %v", bag.Items())
	}
	if unit.Name != "demo" {
		t.Fatalf("unit name %q", unit.Name)
	}
	file := unit.Builder.Files.Get(unit.File)
	if len(file.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(file.Items))
	}
	if it := unit.Builder.Items.Get(file.Items[0]); it.Kind != ast.ItemConst {
		t.Fatalf("first item is %s", it.Kind)
	}
	fn, ok := unit.Builder.Items.Fn(file.Items[1])
	if !ok || unit.Builder.NameOf(fn.Name) != "main" {
		t.Fatalf("second item is not main")
	}
	src := files.Get(unit.Source)
	if src == nil || len(src.Content) == 0 {
		t.Fatalf("source text not registered")
	}
	start, _ := files.Resolve(unit.Builder.Items.Get(file.Items[1]).Span)
	if start.Line != 2 || start.Col != 1 {
		t.Fatalf("main resolved to %d:%d", start.Line, start.Col)
	}
}

func TestDecodedUnitRuns(t *testing.T) {
	files := source.NewFileSet()
	bag := diag.NewBag(100)
	unit, ok := Decode([]byte(demo), FormatJSON, "demo.mxast.json", files, diag.BagReporter{Bag: bag})
	if !ok {
		t.Fatalf("decode failed: %v", bag.Items())
	}
	m := lower.New(unit.Builder, unit.File, nil, lower.Options{Name: unit.Name}, diag.BagReporter{Bag: bag}).Lower()
	if bag.Len() != 0 {
		t.Fatalf("lowering diagnostics: %v", bag.Items())
	}
	v, err := interp.Run(context.Background(), m, interp.Options{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if v.Int == nil || v.Int.Int64() != 42 {
		t.Fatalf("main returned %s", v)
	}
}

func TestMsgpackRoundTrip(t *testing.T) {
	doc, err := Parse([]byte(demo), FormatJSON)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	data, err := Encode(doc, FormatMsgpack)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	back, err := Parse(data, FormatMsgpack)
	if err != nil {
		t.Fatalf("parse msgpack: %v", err)
	}
	if back.Unit != "demo" || len(back.Items) != 2 {
		t.Fatalf("round trip lost the document: %+v", back)
	}
	ret := back.Items[1].Body.Stmts[1]
	if ret.Kind != KindReturn || ret.Value == nil || ret.Value.Name != "LIMIT" {
		t.Fatalf("return statement: %+v", ret)
	}
	if got := back.Items[0].Span; len(got) != 2 || got[1] != 20 {
		t.Fatalf("span %v", got)
	}

	files := source.NewFileSet()
	bag := diag.NewBag(100)
	if _, ok := Decode(data, FormatMsgpack, "demo.mxast", files, diag.BagReporter{Bag: bag}); !ok {
		t.Fatalf("msgpack decode: %v", bag.Items())
	}
}

func TestDecodeDiagnostics(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		code diag.Code
	}{
		{"not json", `{"unit": `, diag.InputDecode},
		{"unknown field", `{"unit": "u", "colour": 1, "items": []}`, diag.InputDecode},
		{"version", `{"version": 9, "unit": "u", "items": []}`, diag.InputDecode},
		{"unknown item", `{"unit": "u", "items": [{"kind": "TraitDecl"}]}`, diag.InputUnknownNode},
		{"unknown expression", `{"unit": "u", "items": [{"kind": "ConstDecl", "name": "A", "value": {"kind": "Lambda"}}]}`, diag.InputUnknownNode},
		{"missing rhs", `{"unit": "u", "items": [{"kind": "ConstDecl", "name": "A", "value": {"kind": "BinaryExpr", "op": "+", "lhs": {"kind": "IntLiteral", "text": "1"}}}]}`, diag.InputMalformedNode},
		{"bad operator", `{"unit": "u", "items": [{"kind": "ConstDecl", "name": "A", "value": {"kind": "BinaryExpr", "op": "**", "lhs": {"kind": "IntLiteral", "text": "1"}, "rhs": {"kind": "IntLiteral", "text": "2"}}}]}`, diag.InputMalformedNode},
		{"bad bool", `{"unit": "u", "items": [{"kind": "ConstDecl", "name": "A", "value": {"kind": "BoolLiteral", "text": "yes"}}]}`, diag.InputMalformedNode},
		{"fn without body", `{"unit": "u", "items": [{"kind": "FnDecl", "name": "main"}]}`, diag.InputMalformedNode},
		{"unknown type", `{"unit": "u", "items": [{"kind": "VarDecl", "name": "v", "type": {"kind": "TupleType"}}]}`, diag.InputUnknownNode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bag := diag.NewBag(100)
			_, ok := Decode([]byte(tt.doc), FormatJSON, "u.mxast.json", source.NewFileSet(), diag.BagReporter{Bag: bag})
			if ok {
				t.Fatalf("expected failure")
			}
			if bag.Count(tt.code) == 0 {
				t.Fatalf("expected %s, got %v", tt.code.ID(), bag.Items())
			}
		})
	}
}

func TestFormatOfAndUnitName(t *testing.T) {
	tests := []struct {
		path   string
		format Format
		unit   string
	}{
		{"src/app.mxast.json", FormatJSON, "app"},
		{"lib.mxast", FormatMsgpack, "lib"},
		{"x/y.JSON", FormatJSON, "y"},
		{"z.bin", FormatMsgpack, "z"},
	}
	for _, tt := range tests {
		if got := FormatOf(tt.path); got != tt.format {
			t.Errorf("FormatOf(%q) = %s", tt.path, got)
		}
		if got := UnitName(tt.path); got != tt.unit {
			t.Errorf("UnitName(%q) = %q", tt.path, got)
		}
	}
}
