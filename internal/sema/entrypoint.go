package sema

import (
	"mx/internal/ast"
	"mx/internal/diag"
	"mx/internal/source"
)

// checkEntryPoint requires exactly one top-level function named opts.Entry,
// or at most one in a library unit.
func (c *checker) checkEntryPoint(f *ast.File) {
	entry, _ := c.builder.Strings.Find(c.opts.Entry)
	var first source.Span
	count := 0
	for _, itemID := range f.Items {
		fn, ok := c.builder.Items.Fn(itemID)
		if !ok || entry == source.NoStringID || fn.Name != entry {
			continue
		}
		count++
		if count == 1 {
			first = fn.NameSpan
			continue
		}
		diag.ReportError(c.reporter, diag.SemaDuplicateEntryPoint, fn.NameSpan,
			"entry function '"+c.opts.Entry+"' is declared more than once").
			WithNote(first, "first declared here").
			Emit()
	}
	if count == 0 && !c.opts.Library {
		span := f.Span
		span.End = span.Start
		c.report(diag.SemaMissingEntryPoint, span, "no entry function '%s' found", c.opts.Entry)
	}
}
