package comptime

import (
	"fmt"
	"strings"

	"mx/internal/diag"
	"mx/internal/source"
)

// Frame is one comptime call in a backtrace.
type Frame struct {
	Function string
	Span     source.Span // место вызова
}

// Error is a failed comptime evaluation.
type Error struct {
	Code      diag.Code
	Message   string
	Span      source.Span
	Backtrace []Frame // от внутреннего вызова к внешнему
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code.ID(), e.Message)
}

// FormatWithFiles renders the error with resolved locations.
func (e *Error) FormatWithFiles(files *source.FileSet) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "comptime %s: %s\n", e.Code.ID(), e.Message)
	sb.WriteString("at " + formatSpan(e.Span, files) + "\n")
	if len(e.Backtrace) > 0 {
		sb.WriteString("backtrace:\n")
		for i, fr := range e.Backtrace {
			fmt.Fprintf(&sb, "  %d: %s at %s\n", i, fr.Function, formatSpan(fr.Span, files))
		}
	}
	return sb.String()
}

func formatSpan(sp source.Span, files *source.FileSet) string {
	if files == nil {
		return sp.String()
	}
	f := files.Get(sp.File)
	if f == nil {
		return sp.String()
	}
	start, _ := files.Resolve(sp)
	return fmt.Sprintf("%s:%d:%d", f.Path, start.Line, start.Col)
}

// Report emits the error as a diagnostic with one note per backtrace frame.
func (e *Error) Report(r diag.Reporter) {
	b := diag.ReportError(r, e.Code, e.Span, e.Message)
	for _, fr := range e.Backtrace {
		b.WithNote(fr.Span, "in comptime call to '"+fr.Function+"'")
	}
	b.Emit()
}

func errorf(code diag.Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// at sets the span if the error has none yet.
func (e *Error) at(sp source.Span) *Error {
	if e != nil && e.Span == (source.Span{}) {
		e.Span = sp
	}
	return e
}
