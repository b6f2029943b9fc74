package ast

import (
	"mx/internal/source"
)

type Hints struct{ Files, Items, Stmts, Exprs, Types uint }

// Builder owns every arena of one compilation unit.
type Builder struct {
	Files   *Files
	Items   *Items
	Stmts   *Stmts
	Exprs   *Exprs
	Types   *TypeExprs
	Strings *source.Interner
}

func NewBuilder(hints Hints, strings *source.Interner) *Builder {
	if hints.Files == 0 {
		hints.Files = 1 << 2
	}
	if hints.Items == 0 {
		hints.Items = 1 << 6
	}
	if hints.Stmts == 0 {
		hints.Stmts = 1 << 8
	}
	if hints.Exprs == 0 {
		hints.Exprs = 1 << 8
	}
	if hints.Types == 0 {
		hints.Types = 1 << 6
	}
	if strings == nil {
		strings = source.NewInterner()
	}
	return &Builder{
		Files:   NewFiles(hints.Files),
		Items:   NewItems(hints.Items),
		Stmts:   NewStmts(hints.Stmts),
		Exprs:   NewExprs(hints.Exprs),
		Types:   NewTypeExprs(hints.Types),
		Strings: strings,
	}
}

// Name interns s.
func (b *Builder) Name(s string) source.StringID {
	return b.Strings.Intern(s)
}

// NameOf returns the text of an interned name.
func (b *Builder) NameOf(id source.StringID) string {
	s, _ := b.Strings.Lookup(id)
	return s
}

func (b *Builder) NewFile(sp source.Span, name string) FileID {
	return b.Files.New(sp, b.Name(name))
}

func (b *Builder) PushItem(file FileID, item ItemID) {
	if f := b.Files.Get(file); f != nil {
		f.Items = append(f.Items, item)
	}
}

func (b *Builder) PushImport(file FileID, unit string) {
	if f := b.Files.Get(file); f != nil {
		f.Imports = append(f.Imports, b.Name(unit))
	}
}
