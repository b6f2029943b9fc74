package operators

import (
	"mx/internal/ast"
	"mx/internal/mxir"
)

var methodNames = map[ast.ExprBinaryOp]string{
	ast.ExprBinaryAdd:        "add",
	ast.ExprBinarySub:        "sub",
	ast.ExprBinaryMul:        "mul",
	ast.ExprBinaryDiv:        "div",
	ast.ExprBinaryEq:         "eq",
	ast.ExprBinaryNotEq:      "neq",
	ast.ExprBinaryGreater:    "gt",
	ast.ExprBinaryLess:       "lt",
	ast.ExprBinaryGreaterEq:  "gte",
	ast.ExprBinaryLessEq:     "lte",
	ast.ExprBinaryBitOr:      "bit_or",
	ast.ExprBinaryBitAnd:     "bit_and",
	ast.ExprBinaryBitXor:     "bit_xor",
	ast.ExprBinaryLogicalAnd: "logical_and",
	ast.ExprBinaryLogicalOr:  "logical_or",
}

// MethodName returns the overload method of a binary operator. %, << and
// >> have none.
func MethodName(op ast.ExprBinaryOp) (string, bool) {
	name, ok := methodNames[op]
	return name, ok
}

// UnaryMethodName returns the overload method of a unary operator; only
// `not` has one.
func UnaryMethodName(op ast.ExprUnaryOp) (string, bool) {
	if op == ast.ExprUnaryNot {
		return "logical_not", true
	}
	return "", false
}

var opcodes = map[ast.ExprBinaryOp]mxir.BinaryOp{
	ast.ExprBinaryAdd:        mxir.OpAdd,
	ast.ExprBinarySub:        mxir.OpSub,
	ast.ExprBinaryMul:        mxir.OpMul,
	ast.ExprBinaryDiv:        mxir.OpDiv,
	ast.ExprBinaryMod:        mxir.OpMod,
	ast.ExprBinaryBitAnd:     mxir.OpBitAnd,
	ast.ExprBinaryBitOr:      mxir.OpBitOr,
	ast.ExprBinaryBitXor:     mxir.OpBitXor,
	ast.ExprBinaryShiftLeft:  mxir.OpShl,
	ast.ExprBinaryShiftRight: mxir.OpShr,
	// and/or над Bool используют те же битовые опкоды
	ast.ExprBinaryLogicalAnd: mxir.OpBitAnd,
	ast.ExprBinaryLogicalOr:  mxir.OpBitOr,
	ast.ExprBinaryEq:         mxir.OpEq,
	ast.ExprBinaryNotEq:      mxir.OpNe,
	ast.ExprBinaryLess:       mxir.OpLt,
	ast.ExprBinaryLessEq:     mxir.OpLe,
	ast.ExprBinaryGreater:    mxir.OpGt,
	ast.ExprBinaryGreaterEq:  mxir.OpGe,
}

// Opcode maps a source operator to its builtin opcode.
func Opcode(op ast.ExprBinaryOp) (mxir.BinaryOp, bool) {
	code, ok := opcodes[op]
	return code, ok
}

// UnaryOpcode maps a unary source operator to its opcode.
func UnaryOpcode(op ast.ExprUnaryOp) mxir.UnaryOp {
	if op == ast.ExprUnaryNot {
		return mxir.OpNot
	}
	return mxir.OpNeg
}
