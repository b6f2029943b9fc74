package symbols

import (
	"mx/internal/ast"
	"mx/internal/source"
	"mx/internal/types"
)

// SymbolKind classifies the semantic meaning of a symbol.
type SymbolKind uint8

const (
	SymbolInvalid SymbolKind = iota
	SymbolFunction
	SymbolComptimeFunction
	SymbolStruct
	SymbolConst
	SymbolVar
	SymbolParam
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolFunction:
		return "function"
	case SymbolComptimeFunction:
		return "comptime function"
	case SymbolStruct:
		return "struct"
	case SymbolConst:
		return "const"
	case SymbolVar:
		return "var"
	case SymbolParam:
		return "param"
	default:
		return "invalid"
	}
}

// IsFunction reports both function kinds.
func (k SymbolKind) IsFunction() bool {
	return k == SymbolFunction || k == SymbolComptimeFunction
}

// IsValue reports kinds that denote a value at run time.
func (k SymbolKind) IsValue() bool {
	return k == SymbolConst || k == SymbolVar || k == SymbolParam
}

// SymbolDecl points back at the declaring AST node. Non-owning.
type SymbolDecl struct {
	Item ast.ItemID
	Stmt ast.StmtID
}

// Symbol is one named declaration. Type may stay NoTypeID until lowering
// resolves it.
type Symbol struct {
	Name  source.StringID
	Kind  SymbolKind
	Type  types.TypeID
	Decl  SymbolDecl
	Scope ScopeID
	Depth int
	Span  source.Span
}
