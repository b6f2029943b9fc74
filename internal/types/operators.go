package types

import "mx/internal/ast"

// FamilyMask describes broad categories of types an operator accepts.
type FamilyMask uint32

const (
	FamilyNone FamilyMask = 0
	FamilyAny  FamilyMask = 1 << iota
	FamilyBool
	FamilySignedInt
	FamilyUnsignedInt
	FamilyFloat
	FamilyString
	FamilyStruct
	FamilyList
	FamilyMap
	FamilyRange
)

const (
	FamilyIntegral = FamilySignedInt | FamilyUnsignedInt
	FamilyNumeric  = FamilyIntegral | FamilyFloat
	// FamilyBuiltin: всё, для чего есть встроенный opcode
	FamilyBuiltin = FamilyBool | FamilyNumeric | FamilyString
)

// BinaryResult describes how to derive the result type for an operator.
type BinaryResult uint8

const (
	BinaryResultUnknown BinaryResult = iota
	BinaryResultLeft
	BinaryResultBool
)

// BinaryFlags annotate special handling for binary operators.
type BinaryFlags uint16

const (
	BinaryFlagNone         BinaryFlags = 0
	BinaryFlagShortCircuit BinaryFlags = 1 << iota
	BinaryFlagSameType
	BinaryFlagShift // правый операнд может быть любым целым
)

// BinarySpec lists operand families and expected result for an operation.
type BinarySpec struct {
	Left   FamilyMask
	Right  FamilyMask
	Result BinaryResult
	Flags  BinaryFlags
}

// UnaryResult indicates how to derive the resulting type.
type UnaryResult uint8

const (
	UnaryResultUnknown UnaryResult = iota
	UnaryResultSame
	UnaryResultBool
)

// UnarySpec describes operand expectations for unary operators.
type UnarySpec struct {
	Operand FamilyMask
	Result  UnaryResult
}

var binarySpecTable = map[ast.ExprBinaryOp][]BinarySpec{
	ast.ExprBinaryAdd: {
		{Left: FamilyNumeric, Right: FamilyNumeric, Result: BinaryResultLeft, Flags: BinaryFlagSameType},
		{Left: FamilyString, Right: FamilyString, Result: BinaryResultLeft, Flags: BinaryFlagSameType},
	},
	ast.ExprBinarySub: {
		{Left: FamilyNumeric, Right: FamilyNumeric, Result: BinaryResultLeft, Flags: BinaryFlagSameType},
	},
	ast.ExprBinaryMul: {
		{Left: FamilyNumeric, Right: FamilyNumeric, Result: BinaryResultLeft, Flags: BinaryFlagSameType},
	},
	ast.ExprBinaryDiv: {
		{Left: FamilyNumeric, Right: FamilyNumeric, Result: BinaryResultLeft, Flags: BinaryFlagSameType},
	},
	ast.ExprBinaryMod: {
		{Left: FamilyIntegral, Right: FamilyIntegral, Result: BinaryResultLeft, Flags: BinaryFlagSameType},
	},
	ast.ExprBinaryBitAnd: {
		{Left: FamilyIntegral, Right: FamilyIntegral, Result: BinaryResultLeft, Flags: BinaryFlagSameType},
		{Left: FamilyBool, Right: FamilyBool, Result: BinaryResultBool},
	},
	ast.ExprBinaryBitOr: {
		{Left: FamilyIntegral, Right: FamilyIntegral, Result: BinaryResultLeft, Flags: BinaryFlagSameType},
		{Left: FamilyBool, Right: FamilyBool, Result: BinaryResultBool},
	},
	ast.ExprBinaryBitXor: {
		{Left: FamilyIntegral, Right: FamilyIntegral, Result: BinaryResultLeft, Flags: BinaryFlagSameType},
		{Left: FamilyBool, Right: FamilyBool, Result: BinaryResultBool},
	},
	ast.ExprBinaryShiftLeft: {
		{Left: FamilyIntegral, Right: FamilyIntegral, Result: BinaryResultLeft, Flags: BinaryFlagShift},
	},
	ast.ExprBinaryShiftRight: {
		{Left: FamilyIntegral, Right: FamilyIntegral, Result: BinaryResultLeft, Flags: BinaryFlagShift},
	},
	ast.ExprBinaryLogicalAnd: {
		{Left: FamilyBool, Right: FamilyBool, Result: BinaryResultBool, Flags: BinaryFlagShortCircuit},
	},
	ast.ExprBinaryLogicalOr: {
		{Left: FamilyBool, Right: FamilyBool, Result: BinaryResultBool, Flags: BinaryFlagShortCircuit},
	},
	ast.ExprBinaryEq: {
		{Left: FamilyBuiltin, Right: FamilyBuiltin, Result: BinaryResultBool, Flags: BinaryFlagSameType},
	},
	ast.ExprBinaryNotEq: {
		{Left: FamilyBuiltin, Right: FamilyBuiltin, Result: BinaryResultBool, Flags: BinaryFlagSameType},
	},
	ast.ExprBinaryLess: {
		{Left: FamilyNumeric | FamilyString, Right: FamilyNumeric | FamilyString, Result: BinaryResultBool, Flags: BinaryFlagSameType},
	},
	ast.ExprBinaryLessEq: {
		{Left: FamilyNumeric | FamilyString, Right: FamilyNumeric | FamilyString, Result: BinaryResultBool, Flags: BinaryFlagSameType},
	},
	ast.ExprBinaryGreater: {
		{Left: FamilyNumeric | FamilyString, Right: FamilyNumeric | FamilyString, Result: BinaryResultBool, Flags: BinaryFlagSameType},
	},
	ast.ExprBinaryGreaterEq: {
		{Left: FamilyNumeric | FamilyString, Right: FamilyNumeric | FamilyString, Result: BinaryResultBool, Flags: BinaryFlagSameType},
	},
}

var unarySpecTable = map[ast.ExprUnaryOp]UnarySpec{
	ast.ExprUnaryMinus: {Operand: FamilyNumeric, Result: UnaryResultSame},
	ast.ExprUnaryNot:   {Operand: FamilyBool, Result: UnaryResultBool},
}

// BinarySpecs returns operand rules for the given operator.
func BinarySpecs(op ast.ExprBinaryOp) []BinarySpec {
	return binarySpecTable[op]
}

// UnarySpecFor returns operand/result hints for unary operators.
func UnarySpecFor(op ast.ExprUnaryOp) (UnarySpec, bool) {
	spec, ok := unarySpecTable[op]
	return spec, ok
}

// FamilyOf classifies a type. Untyped literals belong to their numeric family.
func (in *Interner) FamilyOf(id TypeID) FamilyMask {
	t, ok := in.Lookup(id)
	if !ok {
		return FamilyNone
	}
	switch t.Kind {
	case KindBool:
		return FamilyBool
	case KindInt:
		return FamilySignedInt
	case KindUint:
		return FamilyUnsignedInt
	case KindUntypedInt:
		return FamilyIntegral
	case KindFloat, KindUntypedFloat:
		return FamilyFloat
	case KindString:
		return FamilyString
	case KindStruct:
		return FamilyStruct
	case KindList:
		return FamilyList
	case KindMap:
		return FamilyMap
	case KindRange:
		return FamilyRange
	}
	return FamilyNone
}
