package symbols

import (
	"mx/internal/source"
)

// ScopeKind enumerates supported scope categories.
type ScopeKind uint8

const (
	ScopeInvalid  ScopeKind = iota
	ScopeUnit               // top-level declarations of a unit
	ScopeFunction           // parameters
	ScopeBlock              // generic block scope
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeUnit:
		return "unit"
	case ScopeFunction:
		return "function"
	case ScopeBlock:
		return "block"
	default:
		return "invalid"
	}
}

// Scope models a lexical scope with a parent link.
type Scope struct {
	Kind    ScopeKind
	Parent  ScopeID
	Span    source.Span
	Depth   int
	Names   map[source.StringID]SymbolID
	Symbols []SymbolID
}
