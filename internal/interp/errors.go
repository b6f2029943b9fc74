package interp

import (
	"fmt"
	"strings"

	"mx/internal/comptime"
	"mx/internal/diag"
)

// Error is a run-time failure of an MXIR program.
type Error struct {
	Code      diag.Code
	Message   string
	Backtrace []string // имена функций от внутренней к внешней
	cause     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("panic %s: %s", e.Code.ID(), e.Message)
}

// Unwrap exposes the context error of an interrupted run.
func (e *Error) Unwrap() error { return e.cause }

// Format renders the error with its backtrace.
func (e *Error) Format() string {
	var sb strings.Builder
	sb.WriteString(e.Error())
	sb.WriteString("\n")
	if len(e.Backtrace) > 0 {
		sb.WriteString("backtrace:\n")
		for i, fn := range e.Backtrace {
			fmt.Fprintf(&sb, "  %d: %s\n", i, fn)
		}
	}
	return sb.String()
}

func errorf(code diag.Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// fromComptime maps an operator failure onto the run-time codes.
func fromComptime(err *comptime.Error) *Error {
	code := diag.RunInvalidNode
	switch err.Code {
	case diag.ComptimeDivisionByZero:
		code = diag.RunDivisionByZero
	case diag.ComptimeIntegerOverflow:
		code = diag.RunIntegerOverflow
	}
	return &Error{Code: code, Message: err.Message}
}
