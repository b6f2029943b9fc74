package comptime

import (
	"mx/internal/ast"
	"mx/internal/diag"
	"mx/internal/types"
)

type flow uint8

const (
	flowNormal flow = iota
	flowBreak
	flowContinue
	flowReturn
)

// frame holds the mutable locals of one comptime call on top of an
// immutable env.
type frame struct {
	env    *Env
	scopes []map[string]Value
}

func newFrame(env *Env) *frame {
	return &frame{env: env, scopes: []map[string]Value{{}}}
}

func (f *frame) push() { f.scopes = append(f.scopes, map[string]Value{}) }
func (f *frame) pop()  { f.scopes = f.scopes[:len(f.scopes)-1] }

func (f *frame) declare(name string, v Value) {
	f.scopes[len(f.scopes)-1][name] = v
}

func (f *frame) get(name string) (Value, bool) {
	for i := len(f.scopes) - 1; i >= 0; i-- {
		if v, ok := f.scopes[i][name]; ok {
			return v, true
		}
	}
	return Value{}, false
}

func (f *frame) set(name string, v Value) bool {
	for i := len(f.scopes) - 1; i >= 0; i-- {
		if _, ok := f.scopes[i][name]; ok {
			f.scopes[i][name] = v
			return true
		}
	}
	return false
}

func (e *Evaluator) exec(stmtID ast.StmtID, f *frame) (flow, Value, *Error) {
	b := e.prog.Builder
	stmt := b.Stmts.Get(stmtID)
	if stmt == nil {
		return flowNormal, Value{}, nil
	}
	if err := e.step(stmt.Span); err != nil {
		return flowNormal, Value{}, err
	}
	switch stmt.Kind {
	case ast.StmtBlock:
		block, _ := b.Stmts.Block(stmtID)
		f.push()
		defer f.pop()
		for _, child := range block.Stmts {
			fl, v, err := e.exec(child, f)
			if err != nil || fl != flowNormal {
				return fl, v, err
			}
		}
		return flowNormal, Value{}, nil

	case ast.StmtVar, ast.StmtConst:
		let, _ := b.Stmts.Let(stmtID)
		var v Value
		declared, hasType := e.declaredType(let.Type)
		if let.Value.IsValid() {
			val, err := e.eval(let.Value, f)
			if err != nil {
				return flowNormal, Value{}, err
			}
			v = val
		} else if hasType {
			v = Zero(e.prog.Types, declared)
		}
		if hasType {
			mv, err := Materialize(e.prog.Types, v, declared)
			if err != nil {
				return flowNormal, Value{}, err.at(let.NameSpan)
			}
			v = mv
		}
		f.declare(e.name(let.Name), v)
		return flowNormal, Value{}, nil

	case ast.StmtAssign:
		as, _ := b.Stmts.Assign(stmtID)
		v, err := e.eval(as.Value, f)
		if err != nil {
			return flowNormal, Value{}, err
		}
		return flowNormal, Value{}, e.assign(as.Target, v, f).at(stmt.Span)

	case ast.StmtIf:
		ifStmt, _ := b.Stmts.If(stmtID)
		cond, err := e.condition(ifStmt.Cond, f)
		if err != nil {
			return flowNormal, Value{}, err
		}
		if cond {
			return e.exec(ifStmt.Then, f)
		}
		return e.exec(ifStmt.Else, f)

	case ast.StmtLoop:
		loop, _ := b.Stmts.Loop(stmtID)
		for {
			if loop.Cond.IsValid() {
				cond, err := e.condition(loop.Cond, f)
				if err != nil {
					return flowNormal, Value{}, err
				}
				if !cond {
					return flowNormal, Value{}, nil
				}
			}
			fl, v, err := e.exec(loop.Body, f)
			if err != nil {
				return flowNormal, Value{}, err
			}
			switch fl {
			case flowBreak:
				return flowNormal, Value{}, nil
			case flowReturn:
				return fl, v, nil
			}
			// пустое тело тоже тратит шаг, иначе loop {} не упрётся в бюджет
			if err := e.step(stmt.Span); err != nil {
				return flowNormal, Value{}, err
			}
		}

	case ast.StmtBreak:
		return flowBreak, Value{}, nil
	case ast.StmtContinue:
		return flowContinue, Value{}, nil

	case ast.StmtReturn:
		ret, _ := b.Stmts.Return(stmtID)
		if !ret.Value.IsValid() {
			return flowReturn, Void(), nil
		}
		v, err := e.eval(ret.Value, f)
		if err != nil {
			return flowNormal, Value{}, err
		}
		return flowReturn, v, nil

	case ast.StmtExpr:
		es, _ := b.Stmts.Expr(stmtID)
		_, err := e.eval(es.Expr, f)
		return flowNormal, Value{}, err
	}
	return flowNormal, Value{}, errorf(diag.ComptimeUnsupportedConstruct, "%s is not supported at compile time", stmt.Kind).at(stmt.Span)
}

func (e *Evaluator) declaredType(te ast.TypeExprID) (types.TypeID, bool) {
	if !te.IsValid() {
		return 0, false
	}
	return e.prog.ResolveType(te)
}

func (e *Evaluator) condition(expr ast.ExprID, f *frame) (bool, *Error) {
	v, err := e.eval(expr, f)
	if err != nil {
		return false, err
	}
	if v.Kind != KindBool {
		node := e.prog.Builder.Exprs.Get(expr)
		return false, errorf(diag.ComptimeInvalidCondition, "condition must be Bool, found %s", e.prog.Types.Name(v.Type)).at(node.Span)
	}
	return v.Bool, nil
}

// assign stores v into a local or into a field path of a local struct.
func (e *Evaluator) assign(target ast.ExprID, v Value, f *frame) *Error {
	b := e.prog.Builder
	node := b.Exprs.Get(target)
	if node == nil {
		return errorf(diag.ComptimeUnsupportedConstruct, "missing assignment target")
	}
	switch node.Kind {
	case ast.ExprIdent:
		id, _ := b.Exprs.Ident(target)
		name := e.name(id.Name)
		old, ok := f.get(name)
		if !ok {
			if _, global := f.env.Lookup(name); global {
				return errorf(diag.ComptimeInvalidOperand, "cannot assign to '%s' at compile time", name)
			}
			return errorf(diag.ComptimeUnknownSymbol, "unknown comptime symbol '%s'", name)
		}
		mv, err := Materialize(e.prog.Types, v, old.Type)
		if err != nil {
			return err
		}
		f.set(name, mv)
		return nil
	case ast.ExprMember:
		m, _ := b.Exprs.Member(target)
		parent, err := e.eval(m.Target, f)
		if err != nil {
			return err
		}
		field := e.name(m.Field)
		old, ok := parent.Field(field)
		if parent.Kind != KindStruct || !ok {
			return errorf(diag.SemaUnknownField, "%s has no field '%s'", e.prog.Types.Name(parent.Type), field)
		}
		mv, merr := Materialize(e.prog.Types, v, old.Type)
		if merr != nil {
			return merr
		}
		updated, _ := parent.WithField(field, mv)
		return e.assign(m.Target, updated, f)
	}
	return errorf(diag.ComptimeUnsupportedConstruct, "cannot assign to %s", node.Kind)
}
