package interp

import (
	"mx/internal/comptime"
	"mx/internal/diag"
	"mx/internal/mxir"
)

type flow uint8

const (
	flowNext flow = iota
	flowBreak
	flowContinue
	flowReturn
)

// exec runs a statement node. Expression nodes in statement position are
// evaluated for their effects.
func (it *Interpreter) exec(n mxir.Node, f *frame) (flow, comptime.Value, *Error) {
	if err := it.step(); err != nil {
		return flowNext, comptime.Value{}, err
	}
	switch n := n.(type) {
	case *mxir.Block:
		return it.execBlock(n, f)
	case *mxir.Let:
		v, err := it.letValue(n, f)
		if err != nil {
			return flowNext, comptime.Value{}, err
		}
		f.declare(n.Name, v)
		return flowNext, comptime.Value{}, nil
	case *mxir.Assign:
		v, err := it.eval(n.Value, f)
		if err != nil {
			return flowNext, comptime.Value{}, err
		}
		return flowNext, comptime.Value{}, it.assign(n.Target, v, f)
	case *mxir.Eval:
		_, err := it.eval(n.Expr, f)
		return flowNext, comptime.Value{}, err
	case *mxir.Branch:
		cond, err := it.condition(n.Cond, f)
		if err != nil {
			return flowNext, comptime.Value{}, err
		}
		switch {
		case cond:
			return it.exec(n.Then, f)
		case n.Else != nil:
			return it.exec(n.Else, f)
		}
		return flowNext, comptime.Value{}, nil
	case *mxir.Loop:
		for {
			fl, v, err := it.exec(n.Body, f)
			if err != nil {
				return flowNext, comptime.Value{}, err
			}
			switch fl {
			case flowBreak:
				return flowNext, comptime.Value{}, nil
			case flowReturn:
				return fl, v, nil
			}
		}
	case *mxir.Break:
		return flowBreak, comptime.Value{}, nil
	case *mxir.Continue:
		return flowContinue, comptime.Value{}, nil
	case *mxir.Return:
		if n.Value == nil {
			return flowReturn, comptime.Void(), nil
		}
		v, err := it.eval(n.Value, f)
		return flowReturn, v, err
	case nil:
		return flowNext, comptime.Value{}, nil
	}
	_, err := it.eval(n, f)
	return flowNext, comptime.Value{}, err
}

func (it *Interpreter) execBlock(b *mxir.Block, f *frame) (flow, comptime.Value, *Error) {
	f.push()
	defer f.pop()
	for _, n := range b.Nodes {
		fl, v, err := it.exec(n, f)
		if err != nil || fl != flowNext {
			return fl, v, err
		}
	}
	return flowNext, comptime.Value{}, nil
}

// letValue evaluates an initializer; a missing one yields the zero value
// of the declared type.
func (it *Interpreter) letValue(n *mxir.Let, f *frame) (comptime.Value, *Error) {
	if n.Value != nil {
		return it.eval(n.Value, f)
	}
	v := comptime.Zero(it.types, n.Typ)
	if !v.IsValid() {
		return comptime.Value{}, errorf(diag.RunInvalidNode, "variable '%s' of type %s has no zero value", n.Name, it.types.Name(n.Typ))
	}
	return v, nil
}

func (it *Interpreter) condition(n mxir.Node, f *frame) (bool, *Error) {
	v, err := it.eval(n, f)
	if err != nil {
		return false, err
	}
	if v.Kind != comptime.KindBool {
		return false, errorf(diag.RunInvalidNode, "condition evaluated to %s, not Bool", v.Kind)
	}
	return v.Bool, nil
}

// assign stores v into a local, a global or a field path rooted at one.
func (it *Interpreter) assign(target mxir.Node, v comptime.Value, f *frame) *Error {
	switch t := target.(type) {
	case *mxir.Local:
		if f.set(t.Name, v) {
			return nil
		}
		if _, ok := it.globals[t.Name]; ok {
			it.globals[t.Name] = v
			return nil
		}
		return errorf(diag.RunInvalidNode, "assignment to unknown variable '%s'", t.Name)
	case *mxir.FieldGet:
		base, err := it.eval(t.Target, f)
		if err != nil {
			return err
		}
		updated, ok := base.WithField(t.Field, v)
		if !ok {
			return errorf(diag.RunInvalidNode, "%s has no field '%s'", it.types.Name(base.Type), t.Field)
		}
		return it.assign(t.Target, updated, f)
	}
	return errorf(diag.RunInvalidNode, "%T is not assignable", target)
}
