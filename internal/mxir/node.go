package mxir

import (
	"math/big"

	"mx/internal/types"
)

// Node is one MXIR node. Every node reports its result type; statements
// report Void.
type Node interface {
	Type() types.TypeID
	mxirNode()
}

type (
	ConstInt struct {
		Value *big.Int
		Typ   types.TypeID
	}
	ConstFloat struct {
		Value float64
		Typ   types.TypeID
	}
	ConstBool struct {
		Value bool
	}
	ConstStr struct {
		Value string
	}
	BinOp struct {
		Op       BinaryOp
		Lhs, Rhs Node
		Typ      types.TypeID
	}
	UnOp struct {
		Op      UnaryOp
		Operand Node
		Typ     types.TypeID
	}
	// Call targets a function by name; methods are spelled Struct.method
	// with the receiver as the first argument.
	Call struct {
		Target string
		Args   []Node
		Typ    types.TypeID
	}
	FieldInit struct {
		Name  string
		Value Node
	}
	StructBuild struct {
		TypeName string
		Fields   []FieldInit
		Typ      types.TypeID
	}
	FieldGet struct {
		Target Node
		Field  string
		Typ    types.TypeID
	}
	Branch struct {
		Cond Node
		Then Node
		Else Node // может быть nil
	}
	Loop struct {
		Body Node
	}
	Break    struct{}
	Continue struct{}
	Return   struct {
		Value Node // nil для Void
	}
	Block struct {
		Nodes []Node
	}
	// Concat joins string fragments of an interpolated literal.
	Concat struct {
		Parts []Node
	}
	// ErrorMarker stands in for an expression whose fold failed; the
	// diagnostic has already been reported.
	ErrorMarker struct {
		Message string
	}
	// Local reads a run-time variable or parameter.
	Local struct {
		Name string
		Typ  types.TypeID
	}
	Let struct {
		Name  string
		Typ   types.TypeID
		Value Node // nil: zero value
	}
	Assign struct {
		Target Node // Local или FieldGet
		Value  Node
	}
	// Eval evaluates an expression for its effects.
	Eval struct {
		Expr Node
	}
	ListBuild struct {
		Elems []Node
		Typ   types.TypeID
	}
	MapEntry struct {
		Key, Value Node
	}
	MapBuild struct {
		Entries []MapEntry
		Typ     types.TypeID
	}
	RangeBuild struct {
		Start, End Node // любая граница может быть nil
	}
)

func (n *ConstInt) Type() types.TypeID    { return n.Typ }
func (n *ConstFloat) Type() types.TypeID  { return n.Typ }
func (n *ConstBool) Type() types.TypeID   { return types.BoolID }
func (n *ConstStr) Type() types.TypeID    { return types.StringID }
func (n *BinOp) Type() types.TypeID       { return n.Typ }
func (n *UnOp) Type() types.TypeID        { return n.Typ }
func (n *Call) Type() types.TypeID        { return n.Typ }
func (n *StructBuild) Type() types.TypeID { return n.Typ }
func (n *FieldGet) Type() types.TypeID    { return n.Typ }
func (n *Branch) Type() types.TypeID      { return types.VoidID }
func (n *Loop) Type() types.TypeID        { return types.VoidID }
func (n *Break) Type() types.TypeID       { return types.VoidID }
func (n *Continue) Type() types.TypeID    { return types.VoidID }
func (n *Return) Type() types.TypeID      { return types.VoidID }
func (n *Block) Type() types.TypeID       { return types.VoidID }
func (n *Concat) Type() types.TypeID      { return types.StringID }
func (n *ErrorMarker) Type() types.TypeID { return types.NoTypeID }
func (n *Local) Type() types.TypeID       { return n.Typ }
func (n *Let) Type() types.TypeID         { return types.VoidID }
func (n *Assign) Type() types.TypeID      { return types.VoidID }
func (n *Eval) Type() types.TypeID        { return types.VoidID }
func (n *ListBuild) Type() types.TypeID   { return n.Typ }
func (n *MapBuild) Type() types.TypeID    { return n.Typ }
func (n *RangeBuild) Type() types.TypeID  { return types.RangeID }

func (*ConstInt) mxirNode()    {}
func (*ConstFloat) mxirNode()  {}
func (*ConstBool) mxirNode()   {}
func (*ConstStr) mxirNode()    {}
func (*BinOp) mxirNode()       {}
func (*UnOp) mxirNode()        {}
func (*Call) mxirNode()        {}
func (*StructBuild) mxirNode() {}
func (*FieldGet) mxirNode()    {}
func (*Branch) mxirNode()      {}
func (*Loop) mxirNode()        {}
func (*Break) mxirNode()       {}
func (*Continue) mxirNode()    {}
func (*Return) mxirNode()      {}
func (*Block) mxirNode()       {}
func (*Concat) mxirNode()      {}
func (*ErrorMarker) mxirNode() {}
func (*Local) mxirNode()       {}
func (*Let) mxirNode()         {}
func (*Assign) mxirNode()      {}
func (*Eval) mxirNode()        {}
func (*ListBuild) mxirNode()   {}
func (*MapBuild) mxirNode()    {}
func (*RangeBuild) mxirNode()  {}

// IsConst reports literal nodes.
func IsConst(n Node) bool {
	switch n.(type) {
	case *ConstInt, *ConstFloat, *ConstBool, *ConstStr:
		return true
	}
	return false
}

// ContainsError reports whether an ErrorMarker occurs anywhere under n.
func ContainsError(n Node) bool {
	found := false
	Walk(n, func(child Node) bool {
		if _, ok := child.(*ErrorMarker); ok {
			found = true
		}
		return !found
	})
	return found
}

// Walk visits n and its children in pre-order until visit returns false.
func Walk(n Node, visit func(Node) bool) {
	if n == nil || !visit(n) {
		return
	}
	for _, child := range Children(n) {
		Walk(child, visit)
	}
}

// Children lists the direct operands of n. Nil operands are skipped.
func Children(n Node) []Node {
	var out []Node
	add := func(ns ...Node) {
		for _, c := range ns {
			if c != nil {
				out = append(out, c)
			}
		}
	}
	switch n := n.(type) {
	case *BinOp:
		add(n.Lhs, n.Rhs)
	case *UnOp:
		add(n.Operand)
	case *Call:
		add(n.Args...)
	case *StructBuild:
		for _, f := range n.Fields {
			add(f.Value)
		}
	case *FieldGet:
		add(n.Target)
	case *Branch:
		add(n.Cond, n.Then, n.Else)
	case *Loop:
		add(n.Body)
	case *Return:
		add(n.Value)
	case *Block:
		add(n.Nodes...)
	case *Concat:
		add(n.Parts...)
	case *Let:
		add(n.Value)
	case *Assign:
		add(n.Target, n.Value)
	case *Eval:
		add(n.Expr)
	case *ListBuild:
		add(n.Elems...)
	case *MapBuild:
		for _, e := range n.Entries {
			add(e.Key, e.Value)
		}
	case *RangeBuild:
		add(n.Start, n.End)
	}
	return out
}
