package symbols

import (
	"fmt"

	"fortio.org/safecast"

	"mx/internal/source"
)

// DuplicateError is returned by Declare when the name is already bound in
// the current scope.
type DuplicateError struct {
	Name     source.StringID
	Span     source.Span
	Previous SymbolID
	PrevSpan source.Span
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate declaration at %s (previous at %s)", e.Span, e.PrevSpan)
}

// Table is the scoped symbol table of one unit. It is not safe for
// concurrent use; every unit owns its own table.
type Table struct {
	scopes  []Scope
	symbols []Symbol
	stack   []ScopeID
	unit    ScopeID
}

// NewTable creates a table with the unit scope already entered.
func NewTable(span source.Span) *Table {
	t := &Table{
		scopes:  make([]Scope, 1, 16), // 0: NoScopeID
		symbols: make([]Symbol, 1, 64), // 0: NoSymbolID
	}
	t.unit = t.Enter(ScopeUnit, span)
	return t
}

// Unit returns the outermost scope.
func (t *Table) Unit() ScopeID {
	return t.unit
}

// Current returns the innermost active scope.
func (t *Table) Current() ScopeID {
	if len(t.stack) == 0 {
		return NoScopeID
	}
	return t.stack[len(t.stack)-1]
}

// Depth returns the number of active scopes (the unit scope is depth 1).
func (t *Table) Depth() int {
	return len(t.stack)
}

// Enter creates a child scope, pushes it onto the stack, and returns its ID.
// Callers pair it with `defer t.Leave(scope)`.
func (t *Table) Enter(kind ScopeKind, span source.Span) ScopeID {
	n, err := safecast.Conv[uint32](len(t.scopes))
	if err != nil {
		panic(fmt.Errorf("scopes overflow: %w", err))
	}
	id := ScopeID(n)
	t.scopes = append(t.scopes, Scope{
		Kind:   kind,
		Parent: t.Current(),
		Span:   span,
		Depth:  len(t.stack),
		Names:  make(map[source.StringID]SymbolID),
	})
	t.stack = append(t.stack, id)
	return id
}

// Leave pops scopes down to and including expected. The unit scope is
// never popped. Leaving a scope that is no longer active is a no-op, so a
// deferred Leave after an explicit one is harmless.
func (t *Table) Leave(expected ScopeID) {
	if expected == t.unit {
		return
	}
	for i := len(t.stack) - 1; i > 0; i-- {
		if t.stack[i] == expected {
			t.stack = t.stack[:i]
			return
		}
	}
}

// Scoped runs fn inside a fresh scope; the scope is popped on every exit
// path including panics.
func (t *Table) Scoped(kind ScopeKind, span source.Span, fn func() error) error {
	scope := t.Enter(kind, span)
	defer t.Leave(scope)
	return fn()
}

// Scope returns scope metadata.
func (t *Table) Scope(id ScopeID) *Scope {
	if !id.IsValid() || int(id) >= len(t.scopes) {
		return nil
	}
	return &t.scopes[id]
}

// Declare installs sym into the current scope.
func (t *Table) Declare(name source.StringID, sym Symbol) (SymbolID, error) {
	scopeID := t.Current()
	scope := t.Scope(scopeID)
	if scope == nil {
		return NoSymbolID, fmt.Errorf("declare outside of any scope")
	}
	if prev, ok := scope.Names[name]; ok {
		return NoSymbolID, &DuplicateError{
			Name:     name,
			Span:     sym.Span,
			Previous: prev,
			PrevSpan: t.symbols[prev].Span,
		}
	}
	n, err := safecast.Conv[uint32](len(t.symbols))
	if err != nil {
		panic(fmt.Errorf("symbols overflow: %w", err))
	}
	id := SymbolID(n)
	sym.Name = name
	sym.Scope = scopeID
	sym.Depth = scope.Depth
	t.symbols = append(t.symbols, sym)
	scope.Names[name] = id
	scope.Symbols = append(scope.Symbols, id)
	return id, nil
}

// Lookup walks the active scopes innermost-to-outermost.
func (t *Table) Lookup(name source.StringID) (SymbolID, bool) {
	for i := len(t.stack) - 1; i >= 0; i-- {
		if id, ok := t.scopes[t.stack[i]].Names[name]; ok {
			return id, true
		}
	}
	return NoSymbolID, false
}

// LookupSymbol is Lookup returning the symbol itself.
func (t *Table) LookupSymbol(name source.StringID) (*Symbol, bool) {
	id, ok := t.Lookup(name)
	if !ok {
		return nil, false
	}
	return t.Get(id), true
}

// LookupUnit searches only the unit scope.
func (t *Table) LookupUnit(name source.StringID) (*Symbol, bool) {
	id, ok := t.scopes[t.unit].Names[name]
	if !ok {
		return nil, false
	}
	return t.Get(id), true
}

// Get returns the symbol or nil if ID is invalid.
func (t *Table) Get(id SymbolID) *Symbol {
	if !id.IsValid() || int(id) >= len(t.symbols) {
		return nil
	}
	return &t.symbols[id]
}

// UnitSymbols lists top-level symbols in declaration order.
func (t *Table) UnitSymbols() []SymbolID {
	return t.scopes[t.unit].Symbols
}
