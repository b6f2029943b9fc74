package symbols

import (
	"errors"
	"fmt"

	"mx/internal/ast"
	"mx/internal/diag"
	"mx/internal/source"
)

// Collect builds the unit scope of file: every top-level function, struct,
// const and var. Name clashes are reported as DuplicateDeclaration, except
// a repeated entry function which the checker reports as DuplicateEntryPoint.
func Collect(b *ast.Builder, file ast.FileID, entry string, r diag.Reporter) *Table {
	f := b.Files.Get(file)
	if f == nil {
		return NewTable(source.Span{})
	}
	table := NewTable(f.Span)
	entryName, _ := b.Strings.Find(entry)

	for _, itemID := range f.Items {
		item := b.Items.Get(itemID)
		if item == nil {
			continue
		}
		sym := Symbol{Decl: SymbolDecl{Item: itemID}, Span: item.Span}
		var name source.StringID
		switch item.Kind {
		case ast.ItemFn:
			fn, _ := b.Items.Fn(itemID)
			name = fn.Name
			sym.Kind = SymbolFunction
			if fn.Comptime {
				sym.Kind = SymbolComptimeFunction
			}
			sym.Span = fn.NameSpan
		case ast.ItemStruct:
			st, _ := b.Items.Struct(itemID)
			name = st.Name
			sym.Kind = SymbolStruct
			sym.Span = st.NameSpan
		case ast.ItemConst, ast.ItemVar:
			let, _ := b.Items.Let(itemID)
			name = let.Name
			sym.Kind = SymbolVar
			if item.Kind == ast.ItemConst {
				sym.Kind = SymbolConst
			}
			sym.Span = let.NameSpan
		default:
			continue
		}
		if name == source.NoStringID {
			continue // безымянные функции репортит чекер
		}
		_, err := table.Declare(name, sym)
		if err == nil {
			continue
		}
		var dup *DuplicateError
		if !errors.As(err, &dup) {
			continue
		}
		prev := table.Get(dup.Previous)
		if name == entryName && sym.Kind.IsFunction() && prev != nil && prev.Kind.IsFunction() {
			continue
		}
		ReportDuplicate(r, b.NameOf(name), dup)
	}
	return table
}

// ReportDuplicate emits DuplicateDeclaration for dup.
func ReportDuplicate(r diag.Reporter, name string, dup *DuplicateError) {
	diag.ReportError(r, diag.SemaDuplicateDeclaration, dup.Span,
		fmt.Sprintf("'%s' is already declared in this scope", name)).
		WithNote(dup.PrevSpan, "previous declaration here").
		Emit()
}
