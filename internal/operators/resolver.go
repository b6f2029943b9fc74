package operators

import (
	"fmt"

	"mx/internal/ast"
	"mx/internal/diag"
	"mx/internal/mxir"
	"mx/internal/types"
)

// Kind tells how a resolved operator is carried out.
type Kind uint8

const (
	// KindBuiltin is a BinOp/UnOp with a builtin opcode.
	KindBuiltin Kind = iota
	// KindMethod is a call to Struct.method with the operands as arguments.
	KindMethod
)

// Resolution is the meaning of one operator application.
type Resolution struct {
	Kind  Kind
	Op    mxir.BinaryOp
	Unary mxir.UnaryOp
	// Operand is the common operand type after untyped literals adopted the
	// other side's type; for shifts it is the left type.
	Operand      types.TypeID
	Result       types.TypeID
	ShortCircuit bool

	Struct string
	Method types.Method
}

// Target returns the call target of a method resolution.
func (r Resolution) Target() string {
	return r.Struct + "." + r.Method.Name
}

// Failure is a resolution error carrying its diagnostic code.
type Failure struct {
	Code    diag.Code
	Message string
}

func (f *Failure) Error() string { return f.Message }

// Resolver resolves operators against one unit's types.
type Resolver struct {
	types *types.Interner
}

func New(in *types.Interner) *Resolver {
	return &Resolver{types: in}
}

// Types returns the interner the resolver works with.
func (r *Resolver) Types() *types.Interner { return r.types }

// Binary resolves lhs op rhs: builtin opcodes first, then a struct method
// named after the operator whose single parameter accepts rhs.
func (r *Resolver) Binary(op ast.ExprBinaryOp, lhs, rhs types.TypeID) (Resolution, *Failure) {
	lf, rf := r.types.FamilyOf(lhs), r.types.FamilyOf(rhs)
	if lf == types.FamilyNone || rf == types.FamilyNone {
		return Resolution{}, r.fail(diag.SemaTypeMismatch, "invalid operands for '%s': %s and %s", op, r.types.Name(lhs), r.types.Name(rhs))
	}

	// mismatch: левый операнд подходит, а правый нет
	mismatch := false
	for _, spec := range types.BinarySpecs(op) {
		if lf&spec.Left == 0 {
			continue
		}
		if rf&spec.Right == 0 {
			mismatch = true
			continue
		}
		operand := lhs
		if spec.Flags&types.BinaryFlagSameType != 0 {
			unified, ok := r.Unify(lhs, rhs)
			if !ok {
				mismatch = true
				continue
			}
			operand = unified
		}
		res := Resolution{
			Kind:         KindBuiltin,
			Operand:      operand,
			ShortCircuit: spec.Flags&types.BinaryFlagShortCircuit != 0,
		}
		res.Op, _ = Opcode(op)
		switch spec.Result {
		case types.BinaryResultBool:
			res.Result = types.BoolID
		default:
			res.Result = operand
		}
		return res, nil
	}

	if lf == types.FamilyStruct {
		if res, ok := r.method(op, lhs, rhs); ok {
			return res, nil
		}
	}

	if mismatch && lf&types.FamilyBuiltin != 0 && rf&types.FamilyBuiltin != 0 {
		return Resolution{}, r.fail(diag.SemaTypeMismatch, "mismatched types %s and %s for '%s'", r.types.Name(lhs), r.types.Name(rhs), op)
	}
	return Resolution{}, r.fail(diag.SemaNoOperatorOverload, "no operator '%s' for type %s and %s", op, r.types.Name(lhs), r.types.Name(rhs))
}

func (r *Resolver) method(op ast.ExprBinaryOp, lhs, rhs types.TypeID) (Resolution, bool) {
	name, ok := MethodName(op)
	if !ok {
		return Resolution{}, false
	}
	info, ok := r.types.StructInfo(lhs)
	if !ok {
		return Resolution{}, false
	}
	m, ok := info.Methods[name]
	if !ok || len(m.Params) != 1 || !r.Assignable(rhs, m.Params[0]) {
		return Resolution{}, false
	}
	return Resolution{Kind: KindMethod, Operand: m.Params[0], Result: m.Result, Struct: info.Name, Method: m}, true
}

// Unary resolves op operand.
func (r *Resolver) Unary(op ast.ExprUnaryOp, operand types.TypeID) (Resolution, *Failure) {
	fam := r.types.FamilyOf(operand)
	if spec, ok := types.UnarySpecFor(op); ok && fam&spec.Operand != 0 {
		res := Resolution{Kind: KindBuiltin, Unary: UnaryOpcode(op), Operand: operand, Result: operand}
		if spec.Result == types.UnaryResultBool {
			res.Result = types.BoolID
		}
		return res, nil
	}
	if fam == types.FamilyStruct {
		if name, ok := UnaryMethodName(op); ok {
			if info, ok := r.types.StructInfo(operand); ok {
				if m, ok := info.Methods[name]; ok && len(m.Params) == 0 {
					return Resolution{Kind: KindMethod, Operand: operand, Result: m.Result, Struct: info.Name, Method: m}, nil
				}
			}
		}
	}
	return Resolution{}, r.fail(diag.SemaNoOperatorOverload, "no operator '%s' for type %s", op, r.types.Name(operand))
}

// Assignable reports whether a value of type from may be used where to is
// expected. Untyped literals fit any type of their family.
func (r *Resolver) Assignable(from, to types.TypeID) bool {
	if from == to {
		return from != types.NoTypeID
	}
	ft, ok := r.types.Lookup(from)
	if !ok {
		return false
	}
	tt, ok := r.types.Lookup(to)
	if !ok {
		return false
	}
	switch ft.Kind {
	case types.KindUntypedInt:
		return tt.IsInteger() || tt.IsFloat()
	case types.KindUntypedFloat:
		return tt.IsFloat()
	}
	return false
}

// Unify finds the common type of two operands.
func (r *Resolver) Unify(a, b types.TypeID) (types.TypeID, bool) {
	if a == b {
		return a, a != types.NoTypeID
	}
	at, bt := r.types.MustLookup(a), r.types.MustLookup(b)
	switch {
	case at.IsUntyped() && bt.IsUntyped():
		return r.types.Builtins().UntypedFloat, true
	case at.IsUntyped() && r.Assignable(a, b):
		return b, true
	case bt.IsUntyped() && r.Assignable(b, a):
		return a, true
	}
	return types.NoTypeID, false
}

func (r *Resolver) fail(code diag.Code, format string, args ...any) *Failure {
	return &Failure{Code: code, Message: fmt.Sprintf(format, args...)}
}
