package driver

import (
	"fmt"

	"mx/internal/comptime"
	"mx/internal/config"
	"mx/internal/diag"
	"mx/internal/lower"
	"mx/internal/observ"
	"mx/internal/sema"
	"mx/internal/source"
	"mx/internal/symbols"
	"mx/internal/trace"
)

// compiler runs the pipeline for one unit on one goroutine.
type compiler struct {
	cfg    *config.Config
	cache  *DiskCache
	timer  *observ.Timer
	tracer trace.Tracer
	span   uint64
	// library units are imported by others and need no entry function
	library bool
}

// phase starts a timed and traced phase of the unit.
func (c *compiler) phase(u *UnitResult, name string) func(note string) {
	done := c.timer.Track(name)
	s := trace.Begin(c.tracer, trace.ScopeDetail, u.Name+"/"+name, c.span)
	return func(note string) {
		s.End(note)
		done(note)
	}
}

// compile fills u.Module, u.Exports and u.Types. deps are built units in
// import order.
func (c *compiler) compile(u *UnitResult, deps []*UnitResult) {
	r := diag.BagReporter{Bag: u.Bag}
	depDigests := make([]Digest, 0, len(deps))
	for _, d := range deps {
		depDigests = append(depDigests, d.Digest)
	}
	digest, err := unitDigest(u.data, c.cfg, c.library, depDigests)
	if err != nil {
		// без ключа юнит просто не кэшируется
		c.cache = nil
	}
	u.Digest = digest
	if c.fromCache(u) {
		return
	}

	in, err := c.cfg.NewInterner()
	if err != nil {
		// конфигурация уже проверена в Build
		panic(fmt.Errorf("interner: %w", err))
	}
	b, file := u.Unit.Builder, u.Unit.File

	done := c.phase(u, "symbols")
	table := symbols.Collect(b, file, c.cfg.Entry, r)
	done("")

	done = c.phase(u, "sema")
	checked := sema.Check(b, file, table, sema.Options{Entry: c.cfg.Entry, Library: c.library}, r)
	done(fmt.Sprintf("%d errors", checked.Errors))

	done = c.phase(u, "lower")
	l := lower.New(b, file, table, lower.Options{
		Name:       u.Name,
		Entry:      c.cfg.Entry,
		DefaultInt: c.cfg.DefaultInt,
		Limits:     c.cfg.Limits(),
		Types:      in,
	}, r)
	l.Import(c.importEnv(u, deps, l))
	u.Module = l.Lower()
	u.Exports = l.Exports()
	u.Types = in
	done(fmt.Sprintf("%d funcs", len(u.Module.Funcs)))

	if !u.Bag.HasErrors() {
		c.store(u)
	}
}

// importEnv translates the exports of deps into the unit's interner. Later
// imports shadow earlier ones.
func (c *compiler) importEnv(u *UnitResult, deps []*UnitResult, l *lower.Lowerer) *comptime.Env {
	var env *comptime.Env
	for _, dep := range deps {
		for _, b := range dep.Exports.Bindings() {
			v, err := retype(b.Value, dep.Types, l.Types())
			if err != nil {
				diag.ReportError(diag.BagReporter{Bag: u.Bag}, diag.ProjMissingImport, source.Span{File: u.Source},
					fmt.Sprintf("cannot import constant '%s' from '%s': %v", b.Name, dep.Name, err)).Emit()
				continue
			}
			env = env.With(b.Name, v)
		}
	}
	return env
}

func (c *compiler) fromCache(u *UnitResult) bool {
	if c.cache == nil {
		return false
	}
	var p DiskPayload
	hit, err := c.cache.Get(u.Digest, &p)
	if err != nil || !hit {
		trace.Point(c.tracer, trace.ScopeDetail, u.Name+"/cache", "miss", c.span)
		return false
	}
	m, exports, err := decodePayload(&p)
	if err != nil {
		trace.Point(c.tracer, trace.ScopeDetail, u.Name+"/cache", "corrupt: "+err.Error(), c.span)
		return false
	}
	u.Module, u.Exports, u.Types, u.Cached = m, exports, m.Types, true
	trace.Point(c.tracer, trace.ScopeDetail, u.Name+"/cache", "hit", c.span)
	return true
}

func (c *compiler) store(u *UnitResult) {
	if c.cache == nil {
		return
	}
	p, err := encodePayload(u.Name, u.Path, u.Module, u.Exports)
	if err == nil {
		err = c.cache.Put(u.Digest, p)
	}
	if err != nil {
		trace.Point(c.tracer, trace.ScopeDetail, u.Name+"/cache", "store failed: "+err.Error(), c.span)
	}
}
