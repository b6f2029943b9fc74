package mxir

import "mx/internal/types"

// Param is a function parameter or a struct field.
type Param struct {
	Name string
	Type types.TypeID
}

// Func is a lowered run-time function. Specializations of functions with
// comptime parameters carry their argument tuple in the name: fn[3,Int32].
type Func struct {
	Name   string
	Params []Param
	Result types.TypeID
	Body   *Block
}

// Const is a folded top-level or imported constant.
type Const struct {
	Name  string
	Value Node
}

// Struct is a struct declaration kept for backends and the interpreter.
type Struct struct {
	Name   string
	Fields []Param
}

// Module is the lowering result of one unit.
type Module struct {
	Name    string
	Types   *types.Interner
	Consts  []Const
	Structs []Struct
	Globals []*Let
	Funcs   []*Func
	Entry   string
}

// NewModule creates an empty module bound to an interner.
func NewModule(name string, in *types.Interner) *Module {
	if in == nil {
		in = types.NewInterner()
	}
	return &Module{Name: name, Types: in}
}

// Func finds a function by name.
func (m *Module) Func(name string) (*Func, bool) {
	for _, f := range m.Funcs {
		if f != nil && f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// Const finds a constant by name.
func (m *Module) Const(name string) (Node, bool) {
	for _, c := range m.Consts {
		if c.Name == name {
			return c.Value, true
		}
	}
	return nil, false
}

// Struct finds a struct declaration by name.
func (m *Module) Struct(name string) (*Struct, bool) {
	for i := range m.Structs {
		if m.Structs[i].Name == name {
			return &m.Structs[i], true
		}
	}
	return nil, false
}
