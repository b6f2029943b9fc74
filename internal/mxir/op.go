package mxir

// BinaryOp is the opcode of a BinOp node.
type BinaryOp uint8

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpBitAnd
	OpBitOr
	OpBitXor
	OpShl
	OpShr
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

var binaryOpNames = [...]string{
	OpAdd:    "Add",
	OpSub:    "Sub",
	OpMul:    "Mul",
	OpDiv:    "Div",
	OpMod:    "Mod",
	OpBitAnd: "BitAnd",
	OpBitOr:  "BitOr",
	OpBitXor: "BitXor",
	OpShl:    "Shl",
	OpShr:    "Shr",
	OpEq:     "Eq",
	OpNe:     "Ne",
	OpLt:     "Lt",
	OpLe:     "Le",
	OpGt:     "Gt",
	OpGe:     "Ge",
}

func (op BinaryOp) String() string {
	if int(op) < len(binaryOpNames) {
		return binaryOpNames[op]
	}
	return "BinaryOp(?)"
}

// IsComparison reports opcodes producing Bool.
func (op BinaryOp) IsComparison() bool {
	return op >= OpEq && op <= OpGe
}

// UnaryOp is the opcode of an UnOp node.
type UnaryOp uint8

const (
	OpNeg UnaryOp = iota
	OpNot
)

func (op UnaryOp) String() string {
	switch op {
	case OpNeg:
		return "Neg"
	case OpNot:
		return "Not"
	}
	return "UnaryOp(?)"
}
