package sema

import (
	"fmt"

	"mx/internal/ast"
	"mx/internal/diag"
	"mx/internal/source"
	"mx/internal/symbols"
)

// DefaultEntry is the designated entry function name.
const DefaultEntry = "main"

// Options configures the checker.
type Options struct {
	Entry string
	// Library units are imported by other units and need no entry
	// function. Duplicate entries are still reported.
	Library bool
}

// Result summarizes a checker run.
type Result struct {
	Errors int
}

// Check validates program-level invariants of one unit. Diagnostics are
// accumulated through r; the AST is never mutated. table must come from
// symbols.Collect over the same file.
func Check(b *ast.Builder, file ast.FileID, table *symbols.Table, opts Options, r diag.Reporter) Result {
	if opts.Entry == "" {
		opts.Entry = DefaultEntry
	}
	counter := &diag.CountingReporter{Next: r}
	c := &checker{
		builder:  b,
		table:    table,
		opts:     opts,
		reporter: counter,
	}
	c.run(file)
	return Result{Errors: counter.Errors}
}

type checker struct {
	builder  *ast.Builder
	table    *symbols.Table
	opts     Options
	reporter diag.Reporter

	fn        *ast.FnItem // текущая функция
	loopDepth int
}

func (c *checker) report(code diag.Code, span source.Span, format string, args ...any) {
	diag.ReportError(c.reporter, code, span, fmt.Sprintf(format, args...)).Emit()
}

func (c *checker) name(id source.StringID) string {
	return c.builder.NameOf(id)
}

func (c *checker) run(file ast.FileID) {
	f := c.builder.Files.Get(file)
	if f == nil {
		return
	}
	c.checkEntryPoint(f)
	for _, itemID := range f.Items {
		item := c.builder.Items.Get(itemID)
		if item == nil {
			continue
		}
		switch item.Kind {
		case ast.ItemFn:
			fn, _ := c.builder.Items.Fn(itemID)
			c.checkFn(item.Span, fn)
		case ast.ItemStruct:
			st, _ := c.builder.Items.Struct(itemID)
			c.checkStruct(st)
		}
	}
}

func (c *checker) checkStruct(st *ast.StructItem) {
	seen := make(map[source.StringID]source.Span, len(st.Fields)+len(st.Methods))
	for _, field := range st.Fields {
		if prev, ok := seen[field.Name]; ok {
			diag.ReportError(c.reporter, diag.SemaDuplicateDeclaration, field.Span,
				fmt.Sprintf("field '%s' is already declared in struct '%s'", c.name(field.Name), c.name(st.Name))).
				WithNote(prev, "previous declaration here").
				Emit()
			continue
		}
		seen[field.Name] = field.Span
	}
	for _, methodID := range st.Methods {
		item := c.builder.Items.Get(methodID)
		fn, ok := c.builder.Items.Fn(methodID)
		if !ok {
			continue
		}
		if prev, dup := seen[fn.Name]; dup && fn.Name != source.NoStringID {
			diag.ReportError(c.reporter, diag.SemaDuplicateDeclaration, fn.NameSpan,
				fmt.Sprintf("member '%s' is already declared in struct '%s'", c.name(fn.Name), c.name(st.Name))).
				WithNote(prev, "previous declaration here").
				Emit()
		} else {
			seen[fn.Name] = fn.NameSpan
		}
		c.checkFn(item.Span, fn)
	}
}
