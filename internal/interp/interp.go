package interp

import (
	"context"
	"io"

	"mx/internal/comptime"
	"mx/internal/diag"
	"mx/internal/mxir"
	"mx/internal/types"
)

const (
	DefaultMaxSteps = 10_000_000
	DefaultMaxDepth = 1024

	// ctxCheckEvery is how many steps pass between context checks.
	ctxCheckEvery = 1024
)

// Options configures a run. Zero limits fall back to the defaults; a nil
// Out discards print output.
type Options struct {
	Entry    string // пусто: Module.Entry
	MaxSteps int
	MaxDepth int
	Out      io.Writer
}

// Interpreter runs one module. It is not safe for concurrent use.
type Interpreter struct {
	module  *mxir.Module
	types   *types.Interner
	opts    Options
	globals map[string]comptime.Value
	ready   bool
	steps   int
	depth   int
	ctx     context.Context
}

// New prepares an interpreter; nothing runs until Run or Call.
func New(m *mxir.Module, opts Options) *Interpreter {
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = DefaultMaxSteps
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	in := m.Types
	if in == nil {
		in = types.NewInterner()
	}
	return &Interpreter{
		module:  m,
		types:   in,
		opts:    opts,
		globals: make(map[string]comptime.Value),
	}
}

// Run executes m's entry function.
func Run(ctx context.Context, m *mxir.Module, opts Options) (comptime.Value, error) {
	return New(m, opts).Run(ctx)
}

// Steps reports the steps spent so far.
func (it *Interpreter) Steps() int { return it.steps }

// Global reads an initialized constant or global variable.
func (it *Interpreter) Global(name string) (comptime.Value, bool) {
	v, ok := it.globals[name]
	return v, ok
}

// Run initializes the module and calls the entry function with no
// arguments, returning its result.
func (it *Interpreter) Run(ctx context.Context) (comptime.Value, error) {
	entry := it.opts.Entry
	if entry == "" {
		entry = it.module.Entry
	}
	if entry == "" {
		entry = "main"
	}
	if _, ok := it.module.Func(entry); !ok {
		return comptime.Value{}, errorf(diag.RunMissingEntryPoint, "entry function '%s' not found in %s", entry, it.module.Name)
	}
	return it.Call(ctx, entry)
}

// Call invokes a function of the module by name. The module's constants
// and globals are initialized on the first call.
func (it *Interpreter) Call(ctx context.Context, name string, args ...comptime.Value) (comptime.Value, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	it.ctx = ctx
	defer func() { it.ctx = nil }()

	if err := it.init(); err != nil {
		return comptime.Value{}, err
	}
	v, err := it.call(name, args)
	if err != nil {
		return comptime.Value{}, err
	}
	return v, nil
}

// init evaluates constants, then globals in declaration order.
func (it *Interpreter) init() *Error {
	if it.ready {
		return nil
	}
	for _, c := range it.module.Consts {
		v, err := it.eval(c.Value, nil)
		if err != nil {
			err.Backtrace = append(err.Backtrace, "const "+c.Name)
			return err
		}
		it.globals[c.Name] = v
	}
	for _, g := range it.module.Globals {
		v, err := it.letValue(g, nil)
		if err != nil {
			err.Backtrace = append(err.Backtrace, "global "+g.Name)
			return err
		}
		it.globals[g.Name] = v
	}
	it.ready = true
	return nil
}

func (it *Interpreter) step() *Error {
	it.steps++
	if it.steps > it.opts.MaxSteps {
		return errorf(diag.RunStepLimit, "step limit of %d exceeded", it.opts.MaxSteps)
	}
	if it.ctx != nil && it.steps%ctxCheckEvery == 0 {
		if cerr := it.ctx.Err(); cerr != nil {
			err := errorf(diag.RunInfo, "interrupted: %v", cerr)
			err.cause = cerr
			return err
		}
	}
	return nil
}

// call runs a module function or a builtin.
func (it *Interpreter) call(name string, args []comptime.Value) (comptime.Value, *Error) {
	if name == printBuiltin {
		return it.print(args)
	}
	fn, ok := it.module.Func(name)
	if !ok {
		return comptime.Value{}, errorf(diag.RunInvalidNode, "unknown function '%s'", name)
	}
	if len(args) != len(fn.Params) {
		return comptime.Value{}, errorf(diag.RunInvalidNode, "'%s' expects %d argument(s), got %d", name, len(fn.Params), len(args))
	}
	if it.depth >= it.opts.MaxDepth {
		return comptime.Value{}, errorf(diag.RunStepLimit, "call depth limit of %d exceeded", it.opts.MaxDepth)
	}
	it.depth++
	defer func() { it.depth-- }()

	f := newFrame(name)
	for i, p := range fn.Params {
		f.declare(p.Name, args[i])
	}
	if fn.Body == nil {
		return comptime.Void(), nil
	}
	fl, v, err := it.execBlock(fn.Body, f)
	if err != nil {
		err.Backtrace = append(err.Backtrace, name)
		return comptime.Value{}, err
	}
	if fl == flowReturn && v.IsValid() {
		return v, nil
	}
	return comptime.Void(), nil
}
