package diag

import (
	"fmt"
)

// Code identifies a diagnostic kind. Ranges group codes by phase.
type Code uint16

const (
	UnknownCode Code = 0

	// Входные данные (AST-документ)
	InputInfo          Code = 1000
	InputDecode        Code = 1001
	InputUnknownNode   Code = 1002
	InputMalformedNode Code = 1003

	// Семантика
	SemaInfo                 Code = 3000
	SemaDuplicateDeclaration Code = 3001
	SemaMissingEntryPoint    Code = 3002
	SemaDuplicateEntryPoint  Code = 3003
	SemaMissingReturn        Code = 3004
	SemaDuplicateParamName   Code = 3005
	SemaMissingFunctionName  Code = 3006
	SemaUnresolvedSymbol     Code = 3007
	SemaTypeMismatch         Code = 3008
	SemaNoOperatorOverload   Code = 3009
	SemaInvalidCall          Code = 3010
	SemaIncorrectArgCount    Code = 3011
	SemaUnknownField         Code = 3012
	SemaBreakOutsideLoop     Code = 3013
	SemaReturnValueMismatch  Code = 3014
	SemaUnknownType          Code = 3015

	// Comptime
	ComptimeInfo                 Code = 4000
	ComptimeUnknownSymbol        Code = 4001
	ComptimeDivisionByZero       Code = 4002
	ComptimeEvaluationLimit      Code = 4003
	ComptimeIntegerOverflow      Code = 4004
	ComptimeNotComptime          Code = 4005
	ComptimeInvalidOperand       Code = 4006
	ComptimeUnsupportedConstruct Code = 4007
	ComptimeMissingReturn        Code = 4008
	ComptimeInvalidCondition     Code = 4009

	// Lowering
	LowerInfo                 Code = 5000
	LowerUnsupportedConstruct Code = 5001
	LowerIntLiteralOutOfRange Code = 5002

	// Проект / сборка нескольких юнитов
	ProjInfo          Code = 6000
	ProjImportCycle   Code = 6001
	ProjMissingImport Code = 6002
	ProjDuplicateUnit Code = 6003

	// Интерпретатор MXIR
	RunInfo              Code = 7000
	RunDivisionByZero    Code = 7001
	RunStepLimit         Code = 7002
	RunMissingEntryPoint Code = 7003
	RunInvalidNode       Code = 7004
	RunIntegerOverflow   Code = 7005

	ObsInfo    Code = 8000
	ObsTimings Code = 8001
)

var (
	codeDescription = map[Code]string{
		UnknownCode:                  "Unknown error",
		InputInfo:                    "Input information",
		InputDecode:                  "Cannot decode AST document",
		InputUnknownNode:             "Unknown AST node kind",
		InputMalformedNode:           "Malformed AST node",
		SemaInfo:                     "Semantic information",
		SemaDuplicateDeclaration:     "Duplicate declaration",
		SemaMissingEntryPoint:        "Missing entry point",
		SemaDuplicateEntryPoint:      "Duplicate entry point",
		SemaMissingReturn:            "Missing return in function",
		SemaDuplicateParamName:       "Duplicate parameter name",
		SemaMissingFunctionName:      "Function without a name",
		SemaUnresolvedSymbol:         "Unresolved symbol",
		SemaTypeMismatch:             "Type mismatch",
		SemaNoOperatorOverload:       "No operator overload",
		SemaInvalidCall:              "Invalid function call",
		SemaIncorrectArgCount:        "Incorrect argument count",
		SemaUnknownField:             "Unknown struct field",
		SemaBreakOutsideLoop:         "break or continue outside of a loop",
		SemaReturnValueMismatch:      "Return value does not match function result",
		SemaUnknownType:              "Unknown type",
		ComptimeInfo:                 "Comptime information",
		ComptimeUnknownSymbol:        "Unknown comptime symbol",
		ComptimeDivisionByZero:       "Comptime division by zero",
		ComptimeEvaluationLimit:      "Comptime evaluation limit exceeded",
		ComptimeIntegerOverflow:      "Comptime integer overflow",
		ComptimeNotComptime:          "Value is not known at compile time",
		ComptimeInvalidOperand:       "Invalid comptime operand",
		ComptimeUnsupportedConstruct: "Construct cannot be evaluated at compile time",
		ComptimeMissingReturn:        "Comptime function finished without a value",
		ComptimeInvalidCondition:     "Comptime condition is not a bool",
		LowerInfo:                    "Lowering information",
		LowerUnsupportedConstruct:    "Unsupported construct",
		LowerIntLiteralOutOfRange:    "Integer constant out of range",
		ProjInfo:                     "Project information",
		ProjImportCycle:              "Import cycle detected",
		ProjMissingImport:            "Imported unit not found",
		ProjDuplicateUnit:            "Duplicate unit name",
		RunInfo:                      "Runtime information",
		RunDivisionByZero:            "Division by zero",
		RunStepLimit:                 "Step limit exceeded",
		RunMissingEntryPoint:         "Entry function not found",
		RunInvalidNode:               "Invalid MXIR node",
		RunIntegerOverflow:           "Integer overflow",
		ObsInfo:                      "Observability information",
		ObsTimings:                   "Pipeline timings",
	}
)

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("INP%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("SEM%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("CTE%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("LOW%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("PRJ%04d", ic)
	case ic >= 7000 && ic < 8000:
		return fmt.Sprintf("RUN%04d", ic)
	case ic >= 8000 && ic < 9000:
		return fmt.Sprintf("OBS%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
