package mxir

import (
	"bytes"
	"fmt"
	"io"
	"math/big"

	"fortio.org/safecast"
	"github.com/vmihailenco/msgpack/v5"

	"mx/internal/types"
)

// Current wire schema - increment when the record layout changes.
const wireSchemaVersion uint16 = 1

type nodeTag uint8

const (
	tagInvalid nodeTag = iota
	tagConstInt
	tagConstFloat
	tagConstBool
	tagConstStr
	tagBinOp
	tagUnOp
	tagCall
	tagStructBuild
	tagFieldGet
	tagBranch
	tagLoop
	tagBreak
	tagContinue
	tagReturn
	tagBlock
	tagConcat
	tagErrorMarker
	tagLocal
	tagLet
	tagAssign
	tagEval
	tagListBuild
	tagMapBuild
	tagRangeBuild
)

// wireNode is one flat record; Kids index earlier records, -1 is nil.
type wireNode struct {
	Tag   nodeTag      `msgpack:"t"`
	Op    uint8        `msgpack:"o,omitempty"`
	Type  types.TypeID `msgpack:"ty,omitempty"`
	Name  string       `msgpack:"n,omitempty"`
	Names []string     `msgpack:"ns,omitempty"`
	Int   string       `msgpack:"i,omitempty"`
	Float float64      `msgpack:"f,omitempty"`
	Bool  bool         `msgpack:"b,omitempty"`
	Kids  []int32      `msgpack:"k,omitempty"`
}

type wireNamed struct {
	Name string `msgpack:"n"`
	Node int32  `msgpack:"v"`
}

type wireFunc struct {
	Name   string       `msgpack:"n"`
	Params []Param      `msgpack:"p"`
	Result types.TypeID `msgpack:"r"`
	Body   int32        `msgpack:"b"`
}

type wireModule struct {
	Schema  uint16      `msgpack:"schema"`
	Name    string      `msgpack:"name"`
	Entry   string      `msgpack:"entry"`
	Types   types.Table `msgpack:"types"`
	Nodes   []wireNode  `msgpack:"nodes"`
	Consts  []wireNamed `msgpack:"consts"`
	Structs []Struct    `msgpack:"structs"`
	Globals []int32     `msgpack:"globals"`
	Funcs   []wireFunc  `msgpack:"funcs"`
}

// Marshal encodes a module as msgpack.
func Marshal(m *Module) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes bytes produced by Marshal.
func Unmarshal(data []byte) (*Module, error) {
	return Decode(bytes.NewReader(data))
}

// Encode writes a module to w.
func Encode(w io.Writer, m *Module) error {
	if m == nil {
		return fmt.Errorf("mxir: nil module")
	}
	enc := &encoder{}
	wm := wireModule{
		Schema:  wireSchemaVersion,
		Name:    m.Name,
		Entry:   m.Entry,
		Structs: m.Structs,
	}
	if m.Types != nil {
		wm.Types = m.Types.Export()
	}
	for _, c := range m.Consts {
		wm.Consts = append(wm.Consts, wireNamed{Name: c.Name, Node: enc.node(c.Value)})
	}
	for _, g := range m.Globals {
		wm.Globals = append(wm.Globals, enc.node(g))
	}
	for _, f := range m.Funcs {
		if f == nil {
			continue
		}
		var body Node
		if f.Body != nil {
			body = f.Body
		}
		wm.Funcs = append(wm.Funcs, wireFunc{Name: f.Name, Params: f.Params, Result: f.Result, Body: enc.node(body)})
	}
	if enc.err != nil {
		return enc.err
	}
	wm.Nodes = enc.nodes
	return msgpack.NewEncoder(w).Encode(&wm)
}

// Decode reads a module from r.
func Decode(r io.Reader) (*Module, error) {
	var wm wireModule
	if err := msgpack.NewDecoder(r).Decode(&wm); err != nil {
		return nil, fmt.Errorf("mxir: decode: %w", err)
	}
	if wm.Schema != wireSchemaVersion {
		return nil, fmt.Errorf("mxir: schema %d, expected %d", wm.Schema, wireSchemaVersion)
	}
	dec := &decoder{nodes: wm.Nodes}
	m := &Module{
		Name:    wm.Name,
		Entry:   wm.Entry,
		Types:   types.FromTable(wm.Types),
		Structs: wm.Structs,
	}
	for _, c := range wm.Consts {
		n, err := dec.node(c.Node)
		if err != nil {
			return nil, err
		}
		m.Consts = append(m.Consts, Const{Name: c.Name, Value: n})
	}
	for _, idx := range wm.Globals {
		n, err := dec.node(idx)
		if err != nil {
			return nil, err
		}
		let, ok := n.(*Let)
		if !ok {
			return nil, fmt.Errorf("mxir: global record %d is %T, expected *Let", idx, n)
		}
		m.Globals = append(m.Globals, let)
	}
	for _, wf := range wm.Funcs {
		f := &Func{Name: wf.Name, Params: wf.Params, Result: wf.Result}
		n, err := dec.node(wf.Body)
		if err != nil {
			return nil, err
		}
		if n != nil {
			body, ok := n.(*Block)
			if !ok {
				return nil, fmt.Errorf("mxir: body of %s is %T, expected *Block", wf.Name, n)
			}
			f.Body = body
		}
		m.Funcs = append(m.Funcs, f)
	}
	return m, nil
}

type encoder struct {
	nodes []wireNode
	err   error
}

// node appends n in post-order and returns its record index.
func (e *encoder) node(n Node) int32 {
	if n == nil || e.err != nil {
		return -1
	}
	rec := wireNode{Type: n.Type()}
	kids := func(ns ...Node) {
		for _, k := range ns {
			rec.Kids = append(rec.Kids, e.node(k))
		}
	}
	switch n := n.(type) {
	case *ConstInt:
		rec.Tag = tagConstInt
		rec.Int = "0"
		if n.Value != nil {
			rec.Int = n.Value.Text(10)
		}
	case *ConstFloat:
		rec.Tag, rec.Float = tagConstFloat, n.Value
	case *ConstBool:
		rec.Tag, rec.Bool = tagConstBool, n.Value
	case *ConstStr:
		rec.Tag, rec.Name = tagConstStr, n.Value
	case *BinOp:
		rec.Tag, rec.Op = tagBinOp, uint8(n.Op)
		kids(n.Lhs, n.Rhs)
	case *UnOp:
		rec.Tag, rec.Op = tagUnOp, uint8(n.Op)
		kids(n.Operand)
	case *Call:
		rec.Tag, rec.Name = tagCall, n.Target
		kids(n.Args...)
	case *StructBuild:
		rec.Tag, rec.Name = tagStructBuild, n.TypeName
		for _, f := range n.Fields {
			rec.Names = append(rec.Names, f.Name)
			kids(f.Value)
		}
	case *FieldGet:
		rec.Tag, rec.Name = tagFieldGet, n.Field
		kids(n.Target)
	case *Branch:
		rec.Tag = tagBranch
		kids(n.Cond, n.Then, n.Else)
	case *Loop:
		rec.Tag = tagLoop
		kids(n.Body)
	case *Break:
		rec.Tag = tagBreak
	case *Continue:
		rec.Tag = tagContinue
	case *Return:
		rec.Tag = tagReturn
		kids(n.Value)
	case *Block:
		rec.Tag = tagBlock
		kids(n.Nodes...)
	case *Concat:
		rec.Tag = tagConcat
		kids(n.Parts...)
	case *ErrorMarker:
		rec.Tag, rec.Name = tagErrorMarker, n.Message
	case *Local:
		rec.Tag, rec.Name = tagLocal, n.Name
	case *Let:
		rec.Tag, rec.Name, rec.Type = tagLet, n.Name, n.Typ
		kids(n.Value)
	case *Assign:
		rec.Tag = tagAssign
		kids(n.Target, n.Value)
	case *Eval:
		rec.Tag = tagEval
		kids(n.Expr)
	case *ListBuild:
		rec.Tag = tagListBuild
		kids(n.Elems...)
	case *MapBuild:
		rec.Tag = tagMapBuild
		for _, en := range n.Entries {
			kids(en.Key, en.Value)
		}
	case *RangeBuild:
		rec.Tag = tagRangeBuild
		kids(n.Start, n.End)
	default:
		e.err = fmt.Errorf("mxir: cannot encode %T", n)
		return -1
	}
	idx, err := safecast.Conv[int32](len(e.nodes))
	if err != nil {
		e.err = fmt.Errorf("mxir: too many nodes: %w", err)
		return -1
	}
	e.nodes = append(e.nodes, rec)
	return idx
}

type decoder struct {
	nodes []wireNode
}

func (d *decoder) node(idx int32) (Node, error) {
	if idx < 0 {
		return nil, nil
	}
	if int(idx) >= len(d.nodes) {
		return nil, fmt.Errorf("mxir: record %d out of range", idx)
	}
	rec := &d.nodes[idx]
	kids := make([]Node, len(rec.Kids))
	for i, k := range rec.Kids {
		if k >= idx {
			return nil, fmt.Errorf("mxir: record %d refers forward to %d", idx, k)
		}
		n, err := d.node(k)
		if err != nil {
			return nil, err
		}
		kids[i] = n
	}
	want := func(n int) error {
		if len(kids) != n {
			return fmt.Errorf("mxir: record %d (tag %d) has %d operands, expected %d", idx, rec.Tag, len(kids), n)
		}
		return nil
	}
	switch rec.Tag {
	case tagConstInt:
		v, ok := new(big.Int).SetString(rec.Int, 10)
		if !ok {
			return nil, fmt.Errorf("mxir: record %d: bad integer %q", idx, rec.Int)
		}
		return &ConstInt{Value: v, Typ: rec.Type}, nil
	case tagConstFloat:
		return &ConstFloat{Value: rec.Float, Typ: rec.Type}, nil
	case tagConstBool:
		return &ConstBool{Value: rec.Bool}, nil
	case tagConstStr:
		return &ConstStr{Value: rec.Name}, nil
	case tagBinOp:
		if err := want(2); err != nil {
			return nil, err
		}
		return &BinOp{Op: BinaryOp(rec.Op), Lhs: kids[0], Rhs: kids[1], Typ: rec.Type}, nil
	case tagUnOp:
		if err := want(1); err != nil {
			return nil, err
		}
		return &UnOp{Op: UnaryOp(rec.Op), Operand: kids[0], Typ: rec.Type}, nil
	case tagCall:
		return &Call{Target: rec.Name, Args: kids, Typ: rec.Type}, nil
	case tagStructBuild:
		if err := want(len(rec.Names)); err != nil {
			return nil, err
		}
		sb := &StructBuild{TypeName: rec.Name, Typ: rec.Type}
		for i, name := range rec.Names {
			sb.Fields = append(sb.Fields, FieldInit{Name: name, Value: kids[i]})
		}
		return sb, nil
	case tagFieldGet:
		if err := want(1); err != nil {
			return nil, err
		}
		return &FieldGet{Target: kids[0], Field: rec.Name, Typ: rec.Type}, nil
	case tagBranch:
		if err := want(3); err != nil {
			return nil, err
		}
		return &Branch{Cond: kids[0], Then: kids[1], Else: kids[2]}, nil
	case tagLoop:
		if err := want(1); err != nil {
			return nil, err
		}
		return &Loop{Body: kids[0]}, nil
	case tagBreak:
		return &Break{}, nil
	case tagContinue:
		return &Continue{}, nil
	case tagReturn:
		if err := want(1); err != nil {
			return nil, err
		}
		return &Return{Value: kids[0]}, nil
	case tagBlock:
		return &Block{Nodes: kids}, nil
	case tagConcat:
		return &Concat{Parts: kids}, nil
	case tagErrorMarker:
		return &ErrorMarker{Message: rec.Name}, nil
	case tagLocal:
		return &Local{Name: rec.Name, Typ: rec.Type}, nil
	case tagLet:
		if err := want(1); err != nil {
			return nil, err
		}
		return &Let{Name: rec.Name, Typ: rec.Type, Value: kids[0]}, nil
	case tagAssign:
		if err := want(2); err != nil {
			return nil, err
		}
		return &Assign{Target: kids[0], Value: kids[1]}, nil
	case tagEval:
		if err := want(1); err != nil {
			return nil, err
		}
		return &Eval{Expr: kids[0]}, nil
	case tagListBuild:
		return &ListBuild{Elems: kids, Typ: rec.Type}, nil
	case tagMapBuild:
		if len(kids)%2 != 0 {
			return nil, fmt.Errorf("mxir: record %d: odd map operand count", idx)
		}
		mb := &MapBuild{Typ: rec.Type}
		for i := 0; i < len(kids); i += 2 {
			mb.Entries = append(mb.Entries, MapEntry{Key: kids[i], Value: kids[i+1]})
		}
		return mb, nil
	case tagRangeBuild:
		if err := want(2); err != nil {
			return nil, err
		}
		return &RangeBuild{Start: kids[0], End: kids[1]}, nil
	}
	return nil, fmt.Errorf("mxir: record %d: unknown tag %d", idx, rec.Tag)
}
