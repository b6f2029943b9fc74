package comptime

import "mx/internal/types"

// Binding is one name in an Env. Runtime bindings only record that a name
// exists at run time so the evaluator can reject it with a clear message.
type Binding struct {
	Name    string
	Value   Value
	Runtime bool
	Type    types.TypeID
}

// Env is an immutable, persistent name → value mapping. The nil *Env is the
// empty environment. With never modifies the receiver.
type Env struct {
	parent  *Env
	binding Binding
	size    int
}

// With returns a child environment binding name to v.
func (e *Env) With(name string, v Value) *Env {
	return &Env{parent: e, binding: Binding{Name: name, Value: v, Type: v.Type}, size: e.Len() + 1}
}

// WithRuntime returns a child environment marking name as a run-time value.
func (e *Env) WithRuntime(name string, t types.TypeID) *Env {
	return &Env{parent: e, binding: Binding{Name: name, Runtime: true, Type: t}, size: e.Len() + 1}
}

// Lookup finds the innermost binding of name.
func (e *Env) Lookup(name string) (Binding, bool) {
	for cur := e; cur != nil; cur = cur.parent {
		if cur.binding.Name == name {
			return cur.binding, true
		}
	}
	return Binding{}, false
}

// Get returns the comptime value of name.
func (e *Env) Get(name string) (Value, bool) {
	b, ok := e.Lookup(name)
	if !ok || b.Runtime {
		return Value{}, false
	}
	return b.Value, true
}

// Len counts bindings, shadowed ones included.
func (e *Env) Len() int {
	if e == nil {
		return 0
	}
	return e.size
}

// Bindings lists visible comptime bindings, oldest first.
func (e *Env) Bindings() []Binding {
	var rev []Binding
	seen := make(map[string]bool)
	for cur := e; cur != nil; cur = cur.parent {
		if seen[cur.binding.Name] {
			continue
		}
		seen[cur.binding.Name] = true
		if !cur.binding.Runtime {
			rev = append(rev, cur.binding)
		}
	}
	out := make([]Binding, 0, len(rev))
	for i := len(rev) - 1; i >= 0; i-- {
		out = append(out, rev[i])
	}
	return out
}
