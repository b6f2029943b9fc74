package ast

import "mx/internal/source"

// File is the root of one unit: its top-level items in declaration order
// and the names of units whose constants it imports.
type File struct {
	Name    source.StringID
	Span    source.Span
	Items   []ItemID
	Imports []source.StringID
}

type Files struct {
	Arena *Arena[File]
}

func NewFiles(capHint uint) *Files {
	return &Files{Arena: NewArena[File](capHint)}
}

func (f *Files) New(sp source.Span, name source.StringID) FileID {
	return FileID(f.Arena.Allocate(File{Name: name, Span: sp}))
}

func (f *Files) Get(id FileID) *File {
	return f.Arena.Get(uint32(id))
}
