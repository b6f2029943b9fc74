package comptime

import (
	"fmt"
	"math/big"

	"mx/internal/ast"
	"mx/internal/diag"
	"mx/internal/source"
	"mx/internal/types"
)

// Program is the read-only declaration view of one unit: functions,
// structs and their methods, plus resolution of written types. Struct
// types are registered in the interner when the program is built.
type Program struct {
	Builder *ast.Builder
	Types   *types.Interner

	// Length evaluates the length expression of a sized list type. When
	// nil only integer literals are accepted.
	Length func(ast.ExprID) (uint32, bool)

	reporter diag.Reporter
	funcs    map[string]ast.ItemID
	order    []ast.ItemID
	structs  map[string]ast.ItemID
	stOrder  []string
	methods  map[string]map[string]ast.ItemID
	resolved map[ast.TypeExprID]types.TypeID
	failed   map[ast.TypeExprID]bool
}

// NewProgram indexes the items of file. Unknown type names are reported
// once per type expression.
func NewProgram(b *ast.Builder, file ast.FileID, in *types.Interner, r diag.Reporter) *Program {
	if r == nil {
		r = diag.NopReporter{}
	}
	p := &Program{
		Builder:  b,
		Types:    in,
		reporter: r,
		funcs:    make(map[string]ast.ItemID),
		structs:  make(map[string]ast.ItemID),
		methods:  make(map[string]map[string]ast.ItemID),
		resolved: make(map[ast.TypeExprID]types.TypeID),
		failed:   make(map[ast.TypeExprID]bool),
	}
	f := b.Files.Get(file)
	if f == nil {
		return p
	}
	// сначала имена, потом поля: структуры могут ссылаться друг на друга
	for _, itemID := range f.Items {
		item := b.Items.Get(itemID)
		if item == nil {
			continue
		}
		switch item.Kind {
		case ast.ItemFn:
			fn, _ := b.Items.Fn(itemID)
			name := b.NameOf(fn.Name)
			if _, dup := p.funcs[name]; !dup && name != "" {
				p.funcs[name] = itemID
				p.order = append(p.order, itemID)
			}
		case ast.ItemStruct:
			st, _ := b.Items.Struct(itemID)
			name := b.NameOf(st.Name)
			if _, dup := p.structs[name]; dup || name == "" {
				continue
			}
			p.structs[name] = itemID
			p.stOrder = append(p.stOrder, name)
			in.RegisterStruct(name)
		}
	}
	for _, name := range p.stOrder {
		p.fillStruct(name, p.structs[name])
	}
	return p
}

func (p *Program) fillStruct(name string, itemID ast.ItemID) {
	st, _ := p.Builder.Items.Struct(itemID)
	id, _ := p.Types.ByName(name)
	fields := make([]types.StructField, 0, len(st.Fields))
	for _, f := range st.Fields {
		t, _ := p.ResolveType(f.Type)
		fields = append(fields, types.StructField{Name: p.Builder.NameOf(f.Name), Type: t})
	}
	methods := make(map[string]types.Method, len(st.Methods))
	byName := make(map[string]ast.ItemID, len(st.Methods))
	for _, methodID := range st.Methods {
		fn, ok := p.Builder.Items.Fn(methodID)
		if !ok {
			continue
		}
		mname := p.Builder.NameOf(fn.Name)
		if _, dup := byName[mname]; dup {
			continue
		}
		byName[mname] = methodID
		m := types.Method{Name: mname, Comptime: fn.Comptime, Result: types.VoidID}
		for _, prm := range fn.Params {
			t, _ := p.ResolveType(prm.Type)
			m.Params = append(m.Params, t)
		}
		if fn.Result.IsValid() {
			m.Result, _ = p.ResolveType(fn.Result)
		}
		methods[mname] = m
	}
	p.methods[name] = byName
	if info, ok := p.Types.StructInfo(id); ok {
		info.Fields = fields
		info.Methods = methods
	}
}

// Function finds a top-level function.
func (p *Program) Function(name string) (*ast.FnItem, bool) {
	id, ok := p.funcs[name]
	if !ok {
		return nil, false
	}
	return p.Builder.Items.Fn(id)
}

// Functions lists top-level functions in declaration order.
func (p *Program) Functions() []*ast.FnItem {
	out := make([]*ast.FnItem, 0, len(p.order))
	for _, id := range p.order {
		if fn, ok := p.Builder.Items.Fn(id); ok {
			out = append(out, fn)
		}
	}
	return out
}

// Method finds a method of a struct.
func (p *Program) Method(structName, method string) (*ast.FnItem, bool) {
	id, ok := p.methods[structName][method]
	if !ok {
		return nil, false
	}
	return p.Builder.Items.Fn(id)
}

// Structs lists declared struct names in declaration order.
func (p *Program) Structs() []string {
	return p.stOrder
}

// IsStruct reports a declared struct name.
func (p *Program) IsStruct(name string) bool {
	_, ok := p.structs[name]
	return ok
}

// ResolveType maps a written type to a TypeID. An invalid expression is
// Void. Failures are reported as UnknownType once.
func (p *Program) ResolveType(te ast.TypeExprID) (types.TypeID, bool) {
	if !te.IsValid() {
		return types.VoidID, true
	}
	if id, ok := p.resolved[te]; ok {
		return id, true
	}
	if p.failed[te] {
		return types.NoTypeID, false
	}
	id, ok := p.resolve(te)
	if !ok {
		p.failed[te] = true
		return types.NoTypeID, false
	}
	p.resolved[te] = id
	return id, true
}

func (p *Program) resolve(te ast.TypeExprID) (types.TypeID, bool) {
	node := p.Builder.Types.Get(te)
	if node == nil {
		return types.NoTypeID, false
	}
	switch node.Kind {
	case ast.TypeExprNamed:
		name := p.Builder.NameOf(node.Name)
		if id, ok := p.Types.ByName(name); ok {
			return id, true
		}
		diag.ReportError(p.reporter, diag.SemaUnknownType, node.Span, fmt.Sprintf("unknown type '%s'", name)).Emit()
		return types.NoTypeID, false
	case ast.TypeExprList:
		elem, ok := p.ResolveType(node.Elem)
		if !ok {
			return types.NoTypeID, false
		}
		count := types.ListDynamicLength
		if node.Len.IsValid() {
			n, ok := p.length(node.Len)
			if !ok {
				return types.NoTypeID, false
			}
			count = n
		}
		return p.Types.List(elem, count), true
	case ast.TypeExprMap:
		key, ok := p.ResolveType(node.Key)
		if !ok {
			return types.NoTypeID, false
		}
		val, ok := p.ResolveType(node.Elem)
		if !ok {
			return types.NoTypeID, false
		}
		return p.Types.Map(key, val), true
	}
	return types.NoTypeID, false
}

func (p *Program) length(expr ast.ExprID) (uint32, bool) {
	if p.Length != nil {
		return p.Length(expr)
	}
	node := p.Builder.Exprs.Get(expr)
	if node == nil || node.Kind != ast.ExprIntLit {
		diag.ReportError(p.reporter, diag.ComptimeNotComptime, p.spanOf(expr), "list length must be an integer literal here").Emit()
		return 0, false
	}
	lit, _ := p.Builder.Exprs.Literal(expr)
	v, ok := new(big.Int).SetString(p.Builder.NameOf(lit.Value), 0)
	if !ok || v.Sign() < 0 || !v.IsUint64() || v.Uint64() >= uint64(types.ListDynamicLength) {
		diag.ReportError(p.reporter, diag.ComptimeInvalidOperand, node.Span, "invalid list length").Emit()
		return 0, false
	}
	return uint32(v.Uint64()), true
}

func (p *Program) spanOf(expr ast.ExprID) source.Span {
	if node := p.Builder.Exprs.Get(expr); node != nil {
		return node.Span
	}
	return source.Span{}
}
