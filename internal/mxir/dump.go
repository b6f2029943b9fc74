package mxir

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"mx/internal/types"
)

// Dump writes a stable human-readable representation of a module.
func Dump(w io.Writer, m *Module) error {
	if w == nil || m == nil {
		return nil
	}
	p := &printer{types: m.Types}
	fmt.Fprintf(&p.sb, "module %s\n", m.Name)
	if m.Entry != "" {
		fmt.Fprintf(&p.sb, "entry %s\n", m.Entry)
	}
	for _, c := range m.Consts {
		fmt.Fprintf(&p.sb, "const %s: %s = %s\n", c.Name, p.typ(nodeType(c.Value)), p.expr(c.Value))
	}
	for _, st := range m.Structs {
		fields := make([]string, 0, len(st.Fields))
		for _, f := range st.Fields {
			fields = append(fields, f.Name+": "+p.typ(f.Type))
		}
		fmt.Fprintf(&p.sb, "struct %s { %s }\n", st.Name, strings.Join(fields, ", "))
	}
	for _, g := range m.Globals {
		p.sb.WriteString("global ")
		p.stmt(g, 0)
	}
	for _, f := range m.Funcs {
		if f == nil {
			continue
		}
		params := make([]string, 0, len(f.Params))
		for _, prm := range f.Params {
			params = append(params, prm.Name+": "+p.typ(prm.Type))
		}
		fmt.Fprintf(&p.sb, "\nfn %s(%s): %s {\n", f.Name, strings.Join(params, ", "), p.typ(f.Result))
		if f.Body != nil {
			for _, n := range f.Body.Nodes {
				p.stmt(n, 1)
			}
		}
		p.sb.WriteString("}\n")
	}
	_, err := io.WriteString(w, p.sb.String())
	return err
}

// Format renders a single node the way Dump does.
func Format(n Node, in *types.Interner) string {
	p := &printer{types: in}
	switch n.(type) {
	case *Block, *Let, *Assign, *Eval, *Branch, *Loop, *Break, *Continue, *Return:
		p.stmt(n, 0)
		return strings.TrimSuffix(p.sb.String(), "\n")
	}
	return p.expr(n)
}

type printer struct {
	sb    strings.Builder
	types *types.Interner
}

func nodeType(n Node) types.TypeID {
	if n == nil {
		return types.NoTypeID
	}
	return n.Type()
}

func (p *printer) typ(id types.TypeID) string {
	if p.types == nil {
		return "#" + strconv.FormatUint(uint64(id), 10)
	}
	return p.types.Name(id)
}

func (p *printer) indent(depth int) {
	for range depth {
		p.sb.WriteString("  ")
	}
}

func (p *printer) stmt(n Node, depth int) {
	p.indent(depth)
	switch n := n.(type) {
	case *Block:
		p.sb.WriteString("{\n")
		for _, child := range n.Nodes {
			p.stmt(child, depth+1)
		}
		p.indent(depth)
		p.sb.WriteString("}\n")
	case *Let:
		fmt.Fprintf(&p.sb, "let %s: %s", n.Name, p.typ(n.Typ))
		if n.Value != nil {
			p.sb.WriteString(" = " + p.expr(n.Value))
		}
		p.sb.WriteString("\n")
	case *Assign:
		fmt.Fprintf(&p.sb, "%s = %s\n", p.expr(n.Target), p.expr(n.Value))
	case *Eval:
		fmt.Fprintf(&p.sb, "eval %s\n", p.expr(n.Expr))
	case *Branch:
		fmt.Fprintf(&p.sb, "if %s {\n", p.expr(n.Cond))
		p.body(n.Then, depth+1)
		if n.Else != nil {
			p.indent(depth)
			p.sb.WriteString("} else {\n")
			p.body(n.Else, depth+1)
		}
		p.indent(depth)
		p.sb.WriteString("}\n")
	case *Loop:
		p.sb.WriteString("loop {\n")
		p.body(n.Body, depth+1)
		p.indent(depth)
		p.sb.WriteString("}\n")
	case *Break:
		p.sb.WriteString("break\n")
	case *Continue:
		p.sb.WriteString("continue\n")
	case *Return:
		if n.Value == nil {
			p.sb.WriteString("return\n")
		} else {
			fmt.Fprintf(&p.sb, "return %s\n", p.expr(n.Value))
		}
	default:
		p.sb.WriteString(p.expr(n) + "\n")
	}
}

// body prints the children of a block without extra braces.
func (p *printer) body(n Node, depth int) {
	if b, ok := n.(*Block); ok {
		for _, child := range b.Nodes {
			p.stmt(child, depth)
		}
		return
	}
	if n != nil {
		p.stmt(n, depth)
	}
}

func (p *printer) list(ns []Node) string {
	parts := make([]string, 0, len(ns))
	for _, n := range ns {
		parts = append(parts, p.expr(n))
	}
	return strings.Join(parts, ", ")
}

func (p *printer) expr(n Node) string {
	switch n := n.(type) {
	case nil:
		return "_"
	case *ConstInt:
		return fmt.Sprintf("ConstInt(%s: %s)", n.Value.String(), p.typ(n.Typ))
	case *ConstFloat:
		return fmt.Sprintf("ConstFloat(%s: %s)", strconv.FormatFloat(n.Value, 'g', -1, 64), p.typ(n.Typ))
	case *ConstBool:
		return fmt.Sprintf("ConstBool(%t)", n.Value)
	case *ConstStr:
		return fmt.Sprintf("ConstStr(%q)", n.Value)
	case *BinOp:
		return fmt.Sprintf("%s(%s, %s): %s", n.Op, p.expr(n.Lhs), p.expr(n.Rhs), p.typ(n.Typ))
	case *UnOp:
		return fmt.Sprintf("%s(%s): %s", n.Op, p.expr(n.Operand), p.typ(n.Typ))
	case *Call:
		return fmt.Sprintf("call %s(%s): %s", n.Target, p.list(n.Args), p.typ(n.Typ))
	case *StructBuild:
		fields := make([]string, 0, len(n.Fields))
		for _, f := range n.Fields {
			fields = append(fields, f.Name+": "+p.expr(f.Value))
		}
		return fmt.Sprintf("%s{%s}", n.TypeName, strings.Join(fields, ", "))
	case *FieldGet:
		return fmt.Sprintf("%s.%s", p.expr(n.Target), n.Field)
	case *Concat:
		return fmt.Sprintf("Concat(%s)", p.list(n.Parts))
	case *ErrorMarker:
		return fmt.Sprintf("<error: %s>", n.Message)
	case *Local:
		return fmt.Sprintf("Local(%s: %s)", n.Name, p.typ(n.Typ))
	case *ListBuild:
		return fmt.Sprintf("[%s]: %s", p.list(n.Elems), p.typ(n.Typ))
	case *MapBuild:
		entries := make([]string, 0, len(n.Entries))
		for _, e := range n.Entries {
			entries = append(entries, p.expr(e.Key)+": "+p.expr(e.Value))
		}
		return fmt.Sprintf("{%s}: %s", strings.Join(entries, ", "), p.typ(n.Typ))
	case *RangeBuild:
		out := ""
		if n.Start != nil {
			out = p.expr(n.Start)
		}
		out += ".."
		if n.End != nil {
			out += p.expr(n.End)
		}
		return "Range(" + out + ")"
	}
	return fmt.Sprintf("<%T>", n)
}
