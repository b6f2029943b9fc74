package diagfmt

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"mx/internal/diag"
	"mx/internal/source"
)

const demoSource = "const A = 1 / 0;\nfn main() {\n\tlet x = A;\n}\n"

func demoBag(t *testing.T) (*diag.Bag, *source.FileSet) {
	t.Helper()
	fs := source.NewFileSet()
	file := fs.Add("demo.mx", []byte(demoSource), 0)
	bag := diag.NewBag(10)
	r := diag.BagReporter{Bag: bag}
	diag.ReportError(r, diag.ComptimeDivisionByZero, source.Span{File: file, Start: 10, End: 15}, "division by zero").
		WithNote(source.Span{File: file, Start: 6, End: 7}, "while evaluating constant 'A'").
		Emit()
	// x во второй строке тела, после табуляции
	diag.ReportWarning(r, diag.SemaInfo, source.Span{File: file, Start: 34, End: 35}, "unused variable").Emit()
	return bag, fs
}

func TestPrettyWithoutColor(t *testing.T) {
	bag, fs := demoBag(t)
	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{ShowNotes: true})
	want := strings.Join([]string{
		"demo.mx:1:11: ERROR CTE4002: division by zero",
		" 1 | const A = 1 / 0;",
		"   |           ^~~~~",
		"  note: demo.mx:1:7: while evaluating constant 'A'",
		" 1 | const A = 1 / 0;",
		"   |       ^",
		"",
		"demo.mx:3:6: WARNING SEM3000: unused variable",
		" 3 |     let x = A;",
		"   |         ^",
		"",
	}, "\n")
	if got := buf.String(); got != want {
		t.Fatalf("pretty output:\n%s\nwant:\n%s", got, want)
	}
}

func TestPrettyContextLines(t *testing.T) {
	bag, fs := demoBag(t)
	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{Context: 2})
	out := buf.String()
	for _, line := range []string{" 1 | const A = 1 / 0;", " 2 | fn main() {", " 3 |     let x = A;"} {
		if !strings.Contains(out, line+"\n") {
			t.Errorf("missing context line %q in:\n%s", line, out)
		}
	}
	if strings.Contains(out, "note:") {
		t.Errorf("notes printed without ShowNotes")
	}
}

func TestPrettyColor(t *testing.T) {
	bag, fs := demoBag(t)
	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{Color: true})
	if !strings.Contains(buf.String(), "\x1b[") {
		t.Fatalf("expected ANSI sequences: %q", buf.String())
	}
}

func TestShort(t *testing.T) {
	bag, fs := demoBag(t)
	var buf bytes.Buffer
	Short(&buf, bag, fs, PathModeBasename, true)
	want := "demo.mx:1:11: ERROR CTE4002: division by zero\n" +
		"  note: demo.mx:1:7: while evaluating constant 'A'\n" +
		"demo.mx:3:6: WARNING SEM3000: unused variable\n"
	if got := buf.String(); got != want {
		t.Fatalf("short output:\n%s\nwant:\n%s", got, want)
	}
}

func TestShortWithoutSourceText(t *testing.T) {
	fs := source.NewFileSet()
	file := fs.Add("units/app.mxast", nil, 0)
	bag := diag.NewBag(10)
	diag.ReportError(diag.BagReporter{Bag: bag}, diag.ProjImportCycle, source.Span{File: file}, "import cycle: app -> app").Emit()
	var buf bytes.Buffer
	Short(&buf, bag, fs, PathModeAuto, false)
	if got := buf.String(); got != "units/app.mxast: ERROR PRJ6001: import cycle: app -> app\n" {
		t.Fatalf("got %q", got)
	}
}

func TestJSON(t *testing.T) {
	bag, fs := demoBag(t)
	var buf bytes.Buffer
	if err := JSON(&buf, bag, fs, JSONOpts{IncludePositions: true, Max: 1}); err != nil {
		t.Fatalf("json: %v", err)
	}
	var report Report
	if err := json.Unmarshal(buf.Bytes(), &report); err != nil {
		t.Fatalf("decode: %v\n%s", err, buf.String())
	}
	if report.Count != 1 || !report.Truncated || report.Errors != 1 {
		t.Fatalf("report header %+v", report)
	}
	d := report.Diagnostics[0]
	if d.Code != "CTE4002" || d.Severity != "ERROR" || d.Title == "" {
		t.Fatalf("diagnostic %+v", d)
	}
	if d.Location.Line != 1 || d.Location.Col != 11 || d.Location.Start != 10 || d.Location.End != 15 {
		t.Fatalf("location %+v", d.Location)
	}
	if len(d.Notes) != 0 {
		t.Fatalf("notes included without IncludeNotes")
	}
}

func TestParsePathMode(t *testing.T) {
	tests := []struct {
		in   string
		want PathMode
		err  bool
	}{
		{"", PathModeAuto, false},
		{"ABS", PathModeAbsolute, false},
		{"relative", PathModeRelative, false},
		{"basename", PathModeBasename, false},
		{"full", PathModeAuto, true},
	}
	for _, tt := range tests {
		got, err := ParsePathMode(tt.in)
		if (err != nil) != tt.err || got != tt.want {
			t.Errorf("ParsePathMode(%q) = %v, %v", tt.in, got, err)
		}
	}
}
