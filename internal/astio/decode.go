package astio

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fortio.org/safecast"
	"github.com/vmihailenco/msgpack/v5"

	"mx/internal/ast"
	"mx/internal/diag"
	"mx/internal/source"
)

// Format selects the document encoding.
type Format uint8

const (
	FormatJSON Format = iota
	FormatMsgpack
)

func (f Format) String() string {
	if f == FormatMsgpack {
		return "msgpack"
	}
	return "json"
}

// FormatOf picks the encoding by file extension: *.json is JSON, anything
// else msgpack.
func FormatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatMsgpack
}

// UnitName derives a unit name from a document path.
func UnitName(path string) string {
	base := filepath.Base(path)
	for _, ext := range []string{".mxast.json", ".json", ".mxast"} {
		if strings.HasSuffix(base, ext) {
			return strings.TrimSuffix(base, ext)
		}
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Unit is one decoded document.
type Unit struct {
	Name    string
	Path    string
	Builder *ast.Builder
	File    ast.FileID
	Source  source.FileID
	Imports []string
}

// Parse decodes the raw document without building the AST.
func Parse(data []byte, f Format) (*Document, error) {
	doc := &Document{}
	switch f {
	case FormatMsgpack:
		dec := msgpack.NewDecoder(bytes.NewReader(data))
		dec.SetCustomStructTag("json")
		if err := dec.Decode(doc); err != nil {
			return nil, fmt.Errorf("msgpack: %w", err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(doc); err != nil {
			return nil, fmt.Errorf("json: %w", err)
		}
	}
	if doc.Version != 0 && doc.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported document version %d (want %d)", doc.Version, FormatVersion)
	}
	return doc, nil
}

// Encode writes a document in the given format.
func Encode(doc *Document, f Format) ([]byte, error) {
	var buf bytes.Buffer
	switch f {
	case FormatMsgpack:
		enc := msgpack.NewEncoder(&buf)
		enc.SetCustomStructTag("json")
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("msgpack: %w", err)
		}
	default:
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("json: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// ReadFile reads and decodes a document from disk. I/O and decoding
// failures are reported as InputDecode.
func ReadFile(path string, files *source.FileSet, r diag.Reporter) (*Unit, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		id := files.Add(path, nil, 0)
		diag.ReportError(r, diag.InputDecode, source.Span{File: id}, fmt.Sprintf("cannot read %s: %v", path, err)).Emit()
		return nil, false
	}
	return Decode(data, FormatOf(path), path, files, r)
}

// Decode parses data and builds the unit's AST.
func Decode(data []byte, f Format, path string, files *source.FileSet, r diag.Reporter) (*Unit, bool) {
	doc, err := Parse(data, f)
	if err != nil {
		id := files.Add(path, nil, 0)
		diag.ReportError(r, diag.InputDecode, source.Span{File: id}, fmt.Sprintf("cannot decode %s: %v", path, err)).Emit()
		return nil, false
	}
	return Build(doc, path, files, r)
}

// Build turns a parsed document into an AST. Every malformed node is
// reported; ok is false if any was.
func Build(doc *Document, path string, files *source.FileSet, r diag.Reporter) (*Unit, bool) {
	if doc.Path != "" && path == "" {
		path = doc.Path
	}
	var content []byte
	if doc.Source != "" {
		content = []byte(doc.Source)
	}
	fileID := files.Add(path, content, 0)

	name := doc.Unit
	if name == "" {
		name = UnitName(path)
	}
	end, err := safecast.Conv[uint32](len(content))
	if err != nil {
		panic(fmt.Errorf("source length overflow: %w", err))
	}
	d := &decoder{
		b:    ast.NewBuilder(ast.Hints{}, nil),
		file: fileID,
		r:    r,
		ok:   true,
	}
	unit := &Unit{
		Name:    name,
		Path:    path,
		Builder: d.b,
		File:    d.b.NewFile(source.Span{File: fileID, End: end}, name),
		Source:  fileID,
		Imports: doc.Imports,
	}
	for _, imp := range doc.Imports {
		d.b.PushImport(unit.File, imp)
	}
	for _, n := range doc.Items {
		if id := d.item(n); id.IsValid() {
			d.b.PushItem(unit.File, id)
		}
	}
	return unit, d.ok
}
