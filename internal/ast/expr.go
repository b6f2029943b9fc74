package ast

import (
	"mx/internal/source"
)

type ExprKind uint8

const (
	ExprInvalid ExprKind = iota
	ExprIntLit
	ExprFloatLit
	ExprStringLit
	ExprBoolLit
	ExprListLit
	ExprMapLit
	ExprIdent
	ExprBinary
	ExprUnary
	ExprCall
	ExprComptimeCall
	ExprStructInit
	ExprMember
	ExprRange
)

func (k ExprKind) String() string {
	switch k {
	case ExprIntLit:
		return "IntLiteral"
	case ExprFloatLit:
		return "FloatLiteral"
	case ExprStringLit:
		return "StringLiteral"
	case ExprBoolLit:
		return "BoolLiteral"
	case ExprListLit:
		return "ListLiteral"
	case ExprMapLit:
		return "MapLiteral"
	case ExprIdent:
		return "Identifier"
	case ExprBinary:
		return "BinaryExpr"
	case ExprUnary:
		return "UnaryExpr"
	case ExprCall:
		return "CallExpr"
	case ExprComptimeCall:
		return "ComptimeCallExpr"
	case ExprStructInit:
		return "StructInit"
	case ExprMember:
		return "MemberAccess"
	case ExprRange:
		return "RangeExpr"
	default:
		return "Invalid"
	}
}

type Expr struct {
	Kind    ExprKind
	Span    source.Span
	Payload PayloadID
}

// ExprLiteralData keeps the literal as written; evaluation parses it.
type ExprLiteralData struct {
	Value source.StringID
}

// StringPart is either literal text or an interpolated expression.
type StringPart struct {
	Text source.StringID
	Expr ExprID
}

type ExprStringData struct {
	Parts []StringPart
}

// Interpolated reports whether any part is an expression.
func (d *ExprStringData) Interpolated() bool {
	for _, p := range d.Parts {
		if p.Expr.IsValid() {
			return true
		}
	}
	return false
}

type ExprIdentData struct {
	Name source.StringID
}

type ExprBinaryOp uint8

const (
	ExprBinaryAdd ExprBinaryOp = iota
	ExprBinarySub
	ExprBinaryMul
	ExprBinaryDiv
	ExprBinaryMod
	ExprBinaryBitAnd
	ExprBinaryBitOr
	ExprBinaryBitXor
	ExprBinaryShiftLeft
	ExprBinaryShiftRight
	ExprBinaryLogicalAnd
	ExprBinaryLogicalOr
	ExprBinaryEq
	ExprBinaryNotEq
	ExprBinaryLess
	ExprBinaryLessEq
	ExprBinaryGreater
	ExprBinaryGreaterEq
)

var binaryOpTokens = [...]string{
	ExprBinaryAdd:        "+",
	ExprBinarySub:        "-",
	ExprBinaryMul:        "*",
	ExprBinaryDiv:        "/",
	ExprBinaryMod:        "%",
	ExprBinaryBitAnd:     "&",
	ExprBinaryBitOr:      "|",
	ExprBinaryBitXor:     "^",
	ExprBinaryShiftLeft:  "<<",
	ExprBinaryShiftRight: ">>",
	ExprBinaryLogicalAnd: "and",
	ExprBinaryLogicalOr:  "or",
	ExprBinaryEq:         "==",
	ExprBinaryNotEq:      "!=",
	ExprBinaryLess:       "<",
	ExprBinaryLessEq:     "<=",
	ExprBinaryGreater:    ">",
	ExprBinaryGreaterEq:  ">=",
}

func (op ExprBinaryOp) String() string {
	if int(op) < len(binaryOpTokens) {
		return binaryOpTokens[op]
	}
	return "?"
}

// ParseBinaryOp maps a surface token to its operator.
func ParseBinaryOp(tok string) (ExprBinaryOp, bool) {
	for i, t := range binaryOpTokens {
		if t == tok {
			return ExprBinaryOp(i), true //nolint:gosec // table is tiny
		}
	}
	return 0, false
}

// IsComparison reports ==, !=, <, <=, >, >=.
func (op ExprBinaryOp) IsComparison() bool {
	return op >= ExprBinaryEq && op <= ExprBinaryGreaterEq
}

// IsLogical reports `and` / `or`.
func (op ExprBinaryOp) IsLogical() bool {
	return op == ExprBinaryLogicalAnd || op == ExprBinaryLogicalOr
}

type ExprBinaryData struct {
	Op    ExprBinaryOp
	Left  ExprID
	Right ExprID
}

type ExprUnaryOp uint8

const (
	ExprUnaryMinus ExprUnaryOp = iota
	ExprUnaryNot
)

func (op ExprUnaryOp) String() string {
	switch op {
	case ExprUnaryMinus:
		return "-"
	case ExprUnaryNot:
		return "not"
	}
	return "?"
}

type ExprUnaryData struct {
	Op      ExprUnaryOp
	Operand ExprID
}

type ExprCallData struct {
	Callee ExprID
	Args   []ExprID
}

type ExprComptimeCallData struct {
	Callee       ExprID
	ComptimeArgs []ExprID
	Args         []ExprID
}

type ExprStructField struct {
	Name  source.StringID
	Value ExprID
	Span  source.Span
}

type ExprStructData struct {
	Type   source.StringID
	Fields []ExprStructField
}

type ExprMemberData struct {
	Target ExprID
	Field  source.StringID
}

// ExprRangeData: обе границы необязательны.
type ExprRangeData struct {
	Start ExprID
	End   ExprID
}

type ExprListData struct {
	Elems []ExprID
}

type ExprMapEntry struct {
	Key   ExprID
	Value ExprID
}

type ExprMapData struct {
	Entries []ExprMapEntry
}
