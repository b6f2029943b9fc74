package diagfmt

import (
	"fmt"
	"io"

	"mx/internal/diag"
	"mx/internal/source"
)

// Short prints one line per diagnostic:
//
//	path:line:col: SEV CODE: message
//
// Notes follow indented when withNotes is set. The output has no color and
// is stable enough for golden files.
func Short(w io.Writer, bag *diag.Bag, fs *source.FileSet, mode PathMode, withNotes bool) {
	for _, d := range bag.Items() {
		fmt.Fprintf(w, "%s: %s %s: %s\n", location(d.Primary, fs, mode), d.Severity, d.Code.ID(), d.Message)
		if !withNotes {
			continue
		}
		for _, n := range d.Notes {
			fmt.Fprintf(w, "  note: %s: %s\n", location(n.Span, fs, mode), n.Msg)
		}
	}
}
