package comptime

import (
	"math"
	"math/big"
	"strings"

	"golang.org/x/text/unicode/norm"

	"mx/internal/diag"
	"mx/internal/mxir"
	"mx/internal/operators"
	"mx/internal/types"
)

// maxUntypedShift bounds shifts of arbitrary-precision integers.
const maxUntypedShift = 4096

// Binary applies a builtin opcode to two values. Untyped operands adopt the
// other side's type first. Fixed-width results wrap in two's complement
// unless the type traps on overflow.
func Binary(in *types.Interner, op mxir.BinaryOp, l, r Value) (Value, *Error) {
	if !l.IsValid() || !r.IsValid() {
		return Value{}, errorf(diag.ComptimeInvalidOperand, "operand of %s has no value", op)
	}
	switch {
	case l.Kind == KindBool && r.Kind == KindBool:
		return boolBinary(op, l.Bool, r.Bool)
	case l.Kind == KindStr && r.Kind == KindStr:
		return strBinary(op, l.Str, r.Str)
	case isNumeric(l) && isNumeric(r):
		if op == mxir.OpShl || op == mxir.OpShr {
			return shift(in, op, l, r)
		}
		t, ok := operators.New(in).Unify(l.Type, r.Type)
		if !ok {
			return Value{}, errorf(diag.ComptimeInvalidOperand, "mismatched operands %s and %s for %s", in.Name(l.Type), in.Name(r.Type), op)
		}
		if in.MustLookup(t).IsFloat() {
			return floatBinary(in, op, toFloat(l), toFloat(r), t)
		}
		if l.Kind != KindInt || r.Kind != KindInt {
			return Value{}, errorf(diag.ComptimeInvalidOperand, "float operand for integer %s", op)
		}
		return intBinary(in, op, l.Int, r.Int, t)
	}
	return Value{}, errorf(diag.ComptimeInvalidOperand, "unsupported operands %s and %s for %s", l.Kind, r.Kind, op)
}

func isNumeric(v Value) bool {
	return v.Kind == KindInt || v.Kind == KindFloat
}

func toFloat(v Value) float64 {
	if v.Kind == KindFloat {
		return v.Float
	}
	f, _ := new(big.Float).SetInt(v.Int).Float64()
	return f
}

func compare(op mxir.BinaryOp, c int) (Value, bool) {
	switch op {
	case mxir.OpEq:
		return Bool(c == 0), true
	case mxir.OpNe:
		return Bool(c != 0), true
	case mxir.OpLt:
		return Bool(c < 0), true
	case mxir.OpLe:
		return Bool(c <= 0), true
	case mxir.OpGt:
		return Bool(c > 0), true
	case mxir.OpGe:
		return Bool(c >= 0), true
	}
	return Value{}, false
}

func intBinary(in *types.Interner, op mxir.BinaryOp, a, b *big.Int, t types.TypeID) (Value, *Error) {
	if v, ok := compare(op, a.Cmp(b)); ok {
		return v, nil
	}
	res := new(big.Int)
	switch op {
	case mxir.OpAdd:
		res.Add(a, b)
	case mxir.OpSub:
		res.Sub(a, b)
	case mxir.OpMul:
		res.Mul(a, b)
	case mxir.OpDiv, mxir.OpMod:
		if b.Sign() == 0 {
			return Value{}, errorf(diag.ComptimeDivisionByZero, "division by zero")
		}
		// усечение к нулю, как у машинных целых
		if op == mxir.OpDiv {
			res.Quo(a, b)
		} else {
			res.Rem(a, b)
		}
	case mxir.OpBitAnd:
		res.And(a, b)
	case mxir.OpBitOr:
		res.Or(a, b)
	case mxir.OpBitXor:
		res.Xor(a, b)
	default:
		return Value{}, errorf(diag.ComptimeInvalidOperand, "%s is not defined for integers", op)
	}
	return Fit(in, res, t, op.String())
}

func shift(in *types.Interner, op mxir.BinaryOp, l, r Value) (Value, *Error) {
	if l.Kind != KindInt || r.Kind != KindInt {
		return Value{}, errorf(diag.ComptimeInvalidOperand, "shift needs integer operands")
	}
	if r.Int.Sign() < 0 {
		return Value{}, errorf(diag.ComptimeInvalidOperand, "negative shift count %s", r.Int)
	}
	t := in.MustLookup(l.Type)
	limit := int64(maxUntypedShift)
	if !t.IsUntyped() {
		limit = 64
		if t.Width != types.WidthAny {
			limit = int64(t.Width)
		}
	}
	res := new(big.Int)
	if !r.Int.IsInt64() || r.Int.Int64() >= limit {
		if t.IsUntyped() {
			return Value{}, errorf(diag.ComptimeInvalidOperand, "shift count %s too large", r.Int)
		}
		// всё выдвинуто: 0 или -1 для отрицательного сдвига вправо
		if op == mxir.OpShr && l.Int.Sign() < 0 {
			res.SetInt64(-1)
		}
		return Int(res, l.Type), nil
	}
	n := uint(r.Int.Int64())
	if op == mxir.OpShl {
		res.Lsh(l.Int, n)
		// сдвиг влево всегда отбрасывает старшие биты, даже при trap
		return wrap(in, res, l.Type), nil
	}
	res.Rsh(l.Int, n)
	return Int(res, l.Type), nil
}

func floatBinary(in *types.Interner, op mxir.BinaryOp, a, b float64, t types.TypeID) (Value, *Error) {
	if v, ok := compare(op, cmpFloat(a, b)); ok {
		if math.IsNaN(a) || math.IsNaN(b) {
			return Bool(op == mxir.OpNe), nil
		}
		return v, nil
	}
	var res float64
	switch op {
	case mxir.OpAdd:
		res = a + b
	case mxir.OpSub:
		res = a - b
	case mxir.OpMul:
		res = a * b
	case mxir.OpDiv:
		if b == 0 {
			return Value{}, errorf(diag.ComptimeDivisionByZero, "division by zero")
		}
		res = a / b
	default:
		return Value{}, errorf(diag.ComptimeInvalidOperand, "%s is not defined for floats", op)
	}
	return roundFloat(in, res, t), nil
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func roundFloat(in *types.Interner, f float64, t types.TypeID) Value {
	if in.MustLookup(t).Width == types.Width32 {
		f = float64(float32(f))
	}
	return Float(f, t)
}

func boolBinary(op mxir.BinaryOp, a, b bool) (Value, *Error) {
	switch op {
	case mxir.OpBitAnd:
		return Bool(a && b), nil
	case mxir.OpBitOr:
		return Bool(a || b), nil
	case mxir.OpBitXor, mxir.OpNe:
		return Bool(a != b), nil
	case mxir.OpEq:
		return Bool(a == b), nil
	}
	return Value{}, errorf(diag.ComptimeInvalidOperand, "%s is not defined for Bool", op)
}

func strBinary(op mxir.BinaryOp, a, b string) (Value, *Error) {
	if v, ok := compare(op, strings.Compare(a, b)); ok {
		return v, nil
	}
	if op == mxir.OpAdd {
		return Str(norm.NFC.String(a + b)), nil
	}
	return Value{}, errorf(diag.ComptimeInvalidOperand, "%s is not defined for String", op)
}

// Unary applies a unary opcode.
func Unary(in *types.Interner, op mxir.UnaryOp, v Value) (Value, *Error) {
	switch {
	case op == mxir.OpNot && v.Kind == KindBool:
		return Bool(!v.Bool), nil
	case op == mxir.OpNeg && v.Kind == KindInt:
		return Fit(in, new(big.Int).Neg(v.Int), v.Type, "negation")
	case op == mxir.OpNeg && v.Kind == KindFloat:
		return Float(-v.Float, v.Type), nil
	}
	return Value{}, errorf(diag.ComptimeInvalidOperand, "%s is not defined for %s", op, v.Kind)
}

// Fit brings an exact result into the range of t: untyped results stay
// exact, wrapping types wrap, trapping types fail with IntegerOverflow.
func Fit(in *types.Interner, v *big.Int, t types.TypeID, what string) (Value, *Error) {
	typ := in.MustLookup(t)
	lo, hi, ok := typ.IntBounds()
	if !ok || (v.Cmp(lo) >= 0 && v.Cmp(hi) <= 0) {
		return Int(v, t), nil
	}
	if typ.Overflow == types.OverflowTrap {
		return Value{}, errorf(diag.ComptimeIntegerOverflow, "%s overflows %s", what, in.Name(t))
	}
	return wrap(in, v, t), nil
}

// wrap reduces v modulo 2^width and reinterprets it as signed if needed.
func wrap(in *types.Interner, v *big.Int, t types.TypeID) Value {
	typ := in.MustLookup(t)
	if typ.Kind != types.KindInt && typ.Kind != types.KindUint {
		return Int(v, t)
	}
	w := uint(typ.Width)
	if w == 0 {
		w = 64
	}
	mod := new(big.Int).Lsh(big.NewInt(1), w)
	res := new(big.Int).Mod(v, mod) // Mod всегда неотрицателен
	if typ.Kind == types.KindInt && res.Bit(int(w-1)) == 1 {
		res.Sub(res, mod)
	}
	return Int(res, t)
}

// Materialize converts v to the expected type. Untyped integers must fit
// the target exactly; they never wrap.
func Materialize(in *types.Interner, v Value, target types.TypeID) (Value, *Error) {
	if target == types.NoTypeID || v.Type == target || !v.IsValid() {
		return v, nil
	}
	from := in.MustLookup(v.Type)
	to, ok := in.Lookup(target)
	if !ok {
		return v, nil
	}
	switch {
	case from.Kind == types.KindUntypedInt && (to.Kind == types.KindInt || to.Kind == types.KindUint):
		lo, hi, _ := to.IntBounds()
		if v.Int.Cmp(lo) < 0 || v.Int.Cmp(hi) > 0 {
			return Value{}, errorf(diag.LowerIntLiteralOutOfRange, "integer literal %s does not fit in %s", v.Int, in.Name(target))
		}
		return Int(v.Int, target), nil
	case from.Kind == types.KindUntypedInt && to.IsFloat():
		return roundFloat(in, toFloat(v), target), nil
	case from.Kind == types.KindUntypedFloat && to.IsFloat():
		return roundFloat(in, v.Float, target), nil
	case from.IsUntyped() && to.IsUntyped():
		if to.Kind == types.KindUntypedFloat {
			return Float(toFloat(v), target), nil
		}
	}
	return Value{}, errorf(diag.SemaTypeMismatch, "expected %s, found %s", in.Name(target), in.Name(v.Type))
}

// Default materializes untyped values to the default int type or Float64.
func Default(in *types.Interner, v Value, defaultInt types.TypeID) (Value, *Error) {
	switch in.MustLookup(v.Type).Kind {
	case types.KindUntypedInt:
		return Materialize(in, v, defaultInt)
	case types.KindUntypedFloat:
		return Materialize(in, v, in.Builtins().Float64)
	}
	return v, nil
}
