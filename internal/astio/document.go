// Package astio reads AST interchange documents produced by an external
// parser and rebuilds them in an ast.Builder.
//
// A document is one unit: a name, optional source text for diagnostics,
// imported unit names and a list of top-level items. The same schema is
// accepted as JSON (*.mxast.json) and msgpack (*.mxast).
package astio

// FormatVersion is the document version this package reads.
const FormatVersion = 1

// Document is the root of an interchange file.
type Document struct {
	Version int      `json:"version"`
	Unit    string   `json:"unit"`
	Path    string   `json:"path,omitempty"`
	Source  string   `json:"source,omitempty"`
	Imports []string `json:"imports,omitempty"`
	Items   []*Node  `json:"items"`
}

// Node is an AST node of any kind. Only the fields of its Kind are read;
// the others stay empty.
type Node struct {
	Kind string   `json:"kind"`
	Span []uint32 `json:"span,omitempty"` // [start, end) в байтах

	Name     string `json:"name,omitempty"`
	Text     string `json:"text,omitempty"` // текст литерала
	Op       string `json:"op,omitempty"`
	Comptime bool   `json:"comptime,omitempty"`

	Type   *Node `json:"type,omitempty"`
	Result *Node `json:"result,omitempty"`
	Elem   *Node `json:"elem,omitempty"`
	Key    *Node `json:"key,omitempty"`
	Length *Node `json:"length,omitempty"`

	Value   *Node `json:"value,omitempty"`
	Lhs     *Node `json:"lhs,omitempty"`
	Rhs     *Node `json:"rhs,omitempty"`
	Operand *Node `json:"operand,omitempty"`
	Callee  *Node `json:"callee,omitempty"`
	Target  *Node `json:"target,omitempty"`
	Start   *Node `json:"start,omitempty"`
	End     *Node `json:"end,omitempty"`
	Expr    *Node `json:"expr,omitempty"`

	Cond *Node `json:"cond,omitempty"`
	Then *Node `json:"then,omitempty"`
	Else *Node `json:"else,omitempty"`
	Body *Node `json:"body,omitempty"`

	Args           []*Node `json:"args,omitempty"`
	ComptimeArgs   []*Node `json:"comptime_args,omitempty"`
	Elems          []*Node `json:"elems,omitempty"`
	Entries        []*Node `json:"entries,omitempty"`
	Parts          []*Node `json:"parts,omitempty"`
	Fields         []*Node `json:"fields,omitempty"`
	Params         []*Node `json:"params,omitempty"`
	ComptimeParams []*Node `json:"comptime_params,omitempty"`
	Methods        []*Node `json:"methods,omitempty"`
	Stmts          []*Node `json:"stmts,omitempty"`
}

// Node kinds of the interchange format.
const (
	KindIntLit       = "IntLiteral"
	KindFloatLit     = "FloatLiteral"
	KindStringLit    = "StringLiteral"
	KindBoolLit      = "BoolLiteral"
	KindListLit      = "ListLiteral"
	KindMapLit       = "MapLiteral"
	KindIdent        = "Identifier"
	KindBinary       = "BinaryExpr"
	KindUnary        = "UnaryExpr"
	KindCall         = "CallExpr"
	KindComptimeCall = "ComptimeCallExpr"
	KindStructInit   = "StructInit"
	KindMember       = "MemberAccess"
	KindRange        = "RangeExpr"

	KindText      = "Text"      // литеральный фрагмент строки
	KindMapEntry  = "MapEntry"  // key, value
	KindFieldInit = "FieldInit" // name, value

	KindBlock    = "Block"
	KindVar      = "VarDecl"
	KindConst    = "ConstDecl"
	KindIf       = "IfStmt"
	KindLoop     = "LoopStmt"
	KindBreak    = "BreakStmt"
	KindContinue = "ContinueStmt"
	KindReturn   = "ReturnStmt"
	KindExpr     = "ExprStmt"
	KindAssign   = "AssignStmt"

	KindFn     = "FnDecl"
	KindStruct = "StructDecl"
	KindParam  = "Param"
	KindField  = "Field"

	KindNamedType = "NamedType"
	KindListType  = "ListType"
	KindMapType   = "MapType"
)
