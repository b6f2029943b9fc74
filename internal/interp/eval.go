package interp

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"mx/internal/comptime"
	"mx/internal/diag"
	"mx/internal/mxir"
)

// printBuiltin matches the call target lowering emits for print(...).
const printBuiltin = "print"

func (it *Interpreter) eval(n mxir.Node, f *frame) (comptime.Value, *Error) {
	if err := it.step(); err != nil {
		return comptime.Value{}, err
	}
	switch n := n.(type) {
	case *mxir.ConstInt, *mxir.ConstFloat, *mxir.ConstBool, *mxir.ConstStr:
		v, ok := comptime.FromNode(n)
		if !ok {
			return comptime.Value{}, errorf(diag.RunInvalidNode, "malformed literal")
		}
		return v, nil
	case *mxir.BinOp:
		return it.binary(n, f)
	case *mxir.UnOp:
		v, err := it.eval(n.Operand, f)
		if err != nil {
			return comptime.Value{}, err
		}
		out, cerr := comptime.Unary(it.types, n.Op, v)
		if cerr != nil {
			return comptime.Value{}, fromComptime(cerr)
		}
		return out, nil
	case *mxir.Call:
		args, err := it.evalAll(n.Args, f)
		if err != nil {
			return comptime.Value{}, err
		}
		return it.call(n.Target, args)
	case *mxir.StructBuild:
		fields := make([]comptime.Field, 0, len(n.Fields))
		for _, fi := range n.Fields {
			v, err := it.eval(fi.Value, f)
			if err != nil {
				return comptime.Value{}, err
			}
			fields = append(fields, comptime.Field{Name: fi.Name, Value: v})
		}
		return comptime.Struct(n.Typ, fields), nil
	case *mxir.FieldGet:
		v, err := it.eval(n.Target, f)
		if err != nil {
			return comptime.Value{}, err
		}
		fv, ok := v.Field(n.Field)
		if !ok {
			return comptime.Value{}, errorf(diag.RunInvalidNode, "%s has no field '%s'", it.types.Name(v.Type), n.Field)
		}
		return fv, nil
	case *mxir.Concat:
		var sb strings.Builder
		for _, p := range n.Parts {
			v, err := it.eval(p, f)
			if err != nil {
				return comptime.Value{}, err
			}
			sb.WriteString(v.String())
		}
		return comptime.Str(norm.NFC.String(sb.String())), nil
	case *mxir.Local:
		if v, ok := f.get(n.Name); ok {
			return v, nil
		}
		if v, ok := it.globals[n.Name]; ok {
			return v, nil
		}
		return comptime.Value{}, errorf(diag.RunInvalidNode, "unknown variable '%s'", n.Name)
	case *mxir.ListBuild:
		elems, err := it.evalAll(n.Elems, f)
		if err != nil {
			return comptime.Value{}, err
		}
		return comptime.List(n.Typ, elems), nil
	case *mxir.MapBuild:
		return it.buildMap(n, f)
	case *mxir.RangeBuild:
		var start, end *comptime.Value
		if n.Start != nil {
			v, err := it.eval(n.Start, f)
			if err != nil {
				return comptime.Value{}, err
			}
			start = &v
		}
		if n.End != nil {
			v, err := it.eval(n.End, f)
			if err != nil {
				return comptime.Value{}, err
			}
			end = &v
		}
		return comptime.Range(start, end), nil
	case *mxir.ErrorMarker:
		return comptime.Value{}, errorf(diag.RunInvalidNode, "reached a node that failed to compile: %s", n.Message)
	case nil:
		return comptime.Value{}, errorf(diag.RunInvalidNode, "missing expression")
	}
	return comptime.Value{}, errorf(diag.RunInvalidNode, "%T is not an expression", n)
}

func (it *Interpreter) evalAll(nodes []mxir.Node, f *frame) ([]comptime.Value, *Error) {
	out := make([]comptime.Value, 0, len(nodes))
	for _, n := range nodes {
		v, err := it.eval(n, f)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// binary evaluates a BinOp. BitAnd and BitOr on Bool skip the right operand
// once the left one decides the result; logical and/or lower to them.
func (it *Interpreter) binary(n *mxir.BinOp, f *frame) (comptime.Value, *Error) {
	l, err := it.eval(n.Lhs, f)
	if err != nil {
		return comptime.Value{}, err
	}
	if l.Kind == comptime.KindBool {
		switch {
		case n.Op == mxir.OpBitAnd && !l.Bool:
			return comptime.Bool(false), nil
		case n.Op == mxir.OpBitOr && l.Bool:
			return comptime.Bool(true), nil
		}
	}
	r, err := it.eval(n.Rhs, f)
	if err != nil {
		return comptime.Value{}, err
	}
	out, cerr := comptime.Binary(it.types, n.Op, l, r)
	if cerr != nil {
		return comptime.Value{}, fromComptime(cerr)
	}
	return out, nil
}

// buildMap keeps the first position of a key; a repeated key overwrites
// the value.
func (it *Interpreter) buildMap(n *mxir.MapBuild, f *frame) (comptime.Value, *Error) {
	keys := make([]comptime.Value, 0, len(n.Entries))
	vals := make([]comptime.Value, 0, len(n.Entries))
	for _, e := range n.Entries {
		k, err := it.eval(e.Key, f)
		if err != nil {
			return comptime.Value{}, err
		}
		v, err := it.eval(e.Value, f)
		if err != nil {
			return comptime.Value{}, err
		}
		replaced := false
		for i := range keys {
			if keys[i].Equal(k) {
				vals[i] = v
				replaced = true
				break
			}
		}
		if !replaced {
			keys = append(keys, k)
			vals = append(vals, v)
		}
	}
	return comptime.Map(n.Typ, keys, vals), nil
}

// print writes its arguments separated by spaces and ends the line.
func (it *Interpreter) print(args []comptime.Value) (comptime.Value, *Error) {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		parts = append(parts, a.String())
	}
	if _, err := fmt.Fprintln(it.opts.Out, strings.Join(parts, " ")); err != nil {
		e := errorf(diag.RunInfo, "print: %v", err)
		e.cause = err
		return comptime.Value{}, e
	}
	return comptime.Void(), nil
}
