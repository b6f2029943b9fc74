// Package driver runs the compiler pipeline over one or many units.
//
// A unit is one AST interchange document. Build reads every unit, orders
// them into dependency waves by their imports and processes each wave in
// parallel; a unit sees the exported constants of the units it imports.
package driver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"mx/internal/astio"
	"mx/internal/comptime"
	"mx/internal/config"
	"mx/internal/diag"
	"mx/internal/mxir"
	"mx/internal/observ"
	"mx/internal/source"
	"mx/internal/trace"
	"mx/internal/types"
)

// Stage is a point in a unit's build reported to Options.Progress.
type Stage uint8

const (
	StageQueued Stage = iota
	StageStarted
	StageDone
	StageSkipped
)

func (s Stage) String() string {
	switch s {
	case StageQueued:
		return "queued"
	case StageStarted:
		return "started"
	case StageDone:
		return "done"
	case StageSkipped:
		return "skipped"
	}
	return "unknown"
}

// Event describes a unit changing stage.
type Event struct {
	Unit   string
	Stage  Stage
	Cached bool
	Errors int
	Total  int // всего юнитов в сборке
}

// Options configures a build.
type Options struct {
	// Config supplies the entry name, budgets and integer types; defaults
	// when nil.
	Config *config.Config
	// MaxDiagnostics caps each unit's bag.
	MaxDiagnostics int
	// Cache, when set, stores lowered units between builds.
	Cache *DiskCache
	Timer *observ.Timer
	// Progress is called from worker goroutines; it must be safe for
	// concurrent use.
	Progress func(Event)
}

// UnitResult is the outcome for one unit. Module is nil when the unit was
// not lowered.
type UnitResult struct {
	Name    string
	Path    string
	Source  source.FileID
	Unit    *astio.Unit
	Bag     *diag.Bag
	Module  *mxir.Module
	Exports *comptime.Env
	// Types is the interner Module and Exports are typed in.
	Types  *types.Interner
	Digest Digest
	Cached bool
	Wave   int

	data []byte
}

// Failed reports whether the unit has errors or was skipped.
func (u *UnitResult) Failed() bool {
	return u.Module == nil || u.Bag.HasErrors()
}

// Result is the outcome of a build.
type Result struct {
	Files *source.FileSet
	// Units are in input order.
	Units []*UnitResult
	// Waves lists unit names per dependency level.
	Waves [][]string
	// Bag holds project-level diagnostics: cycles, missing imports,
	// duplicate units.
	Bag *diag.Bag
}

// Unit finds a unit by name.
func (r *Result) Unit(name string) (*UnitResult, bool) {
	for _, u := range r.Units {
		if u.Name == name {
			return u, true
		}
	}
	return nil, false
}

// Diagnostics merges the project bag with every unit bag, sorted.
func (r *Result) Diagnostics() *diag.Bag {
	out := diag.NewBag(1)
	out.Merge(r.Bag)
	for _, u := range r.Units {
		out.Merge(u.Bag)
	}
	out.Sort()
	return out
}

// HasErrors reports whether any diagnostic is an error.
func (r *Result) HasErrors() bool {
	if r.Bag.HasErrors() {
		return true
	}
	for _, u := range r.Units {
		if u.Bag.HasErrors() {
			return true
		}
	}
	return false
}

const defaultMaxDiagnostics = 100

// Build compiles the units at paths. The returned error is reserved for
// cancellation and invalid configuration; problems in the units are
// diagnostics.
func Build(ctx context.Context, paths []string, opts Options) (*Result, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if opts.MaxDiagnostics <= 0 {
		opts.MaxDiagnostics = defaultMaxDiagnostics
	}
	// конфигурация [ints] проверяется один раз, до воркеров
	if _, err := cfg.NewInterner(); err != nil {
		return nil, err
	}

	tracer := trace.FromContext(ctx)
	root := trace.Begin(tracer, trace.ScopeBuild, "build", 0)
	defer root.End(fmt.Sprintf("%d units", len(paths)))

	res := &Result{
		Files: source.NewFileSet(),
		Units: make([]*UnitResult, len(paths)),
		Bag:   diag.NewBag(opts.MaxDiagnostics),
	}
	if wd, err := os.Getwd(); err == nil {
		res.Files.SetBaseDir(wd)
	}

	done := opts.Timer.Track("load")
	span := trace.Begin(tracer, trace.ScopePhase, "load", root.ID())
	// FileSet не потокобезопасен: документы читаются последовательно
	for i, path := range paths {
		res.Units[i] = load(path, res.Files, opts.MaxDiagnostics)
	}
	span.End("")
	done(fmt.Sprintf("%d units", len(paths)))

	done = opts.Timer.Track("graph")
	span = trace.Begin(tracer, trace.ScopePhase, "graph", root.ID())
	waves := plan(res.Units, diag.BagReporter{Bag: res.Bag})
	span.End(fmt.Sprintf("%d waves", len(waves)))
	done("")

	progress := func(ev Event) {
		if opts.Progress != nil {
			ev.Total = len(res.Units)
			opts.Progress(ev)
		}
	}
	for _, u := range res.Units {
		progress(Event{Unit: u.Name, Stage: StageQueued})
	}

	jobs := cfg.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	byName := make(map[string]*UnitResult, len(res.Units))
	imported := make(map[string]bool)
	for _, u := range res.Units {
		if _, dup := byName[u.Name]; !dup {
			byName[u.Name] = u
		}
		if u.Unit != nil {
			for _, imp := range u.Unit.Imports {
				imported[imp] = true
			}
		}
	}

	done = opts.Timer.Track("units")
	for w, wave := range waves {
		names := make([]string, 0, len(wave))
		for _, u := range wave {
			names = append(names, u.Name)
		}
		res.Waves = append(res.Waves, names)

		waveSpan := trace.Begin(tracer, trace.ScopePhase, fmt.Sprintf("wave %d", w), root.ID())
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(max(1, min(jobs, len(wave))))
		for _, u := range wave {
			u.Wave = w
			deps, blocked := imports(u, byName)
			if blocked != "" {
				diag.NewReportBuilder(diag.BagReporter{Bag: u.Bag}, diag.SevInfo, diag.ProjInfo, source.Span{File: u.Source},
					fmt.Sprintf("unit '%s' skipped: imported unit '%s' failed", u.Name, blocked)).Emit()
				progress(Event{Unit: u.Name, Stage: StageSkipped})
				continue
			}
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				progress(Event{Unit: u.Name, Stage: StageStarted})
				unitSpan := trace.Begin(tracer, trace.ScopeUnit, u.Name, waveSpan.ID())
				c := &compiler{
					cfg:     cfg,
					cache:   opts.Cache,
					timer:   opts.Timer,
					tracer:  tracer,
					span:    unitSpan.ID(),
					library: imported[u.Name],
				}
				c.compile(u, deps)
				detail := ""
				if u.Cached {
					detail = "cached"
				}
				unitSpan.End(detail)
				progress(Event{Unit: u.Name, Stage: StageDone, Cached: u.Cached, Errors: errorCount(u.Bag)})
				return nil
			})
		}
		err := g.Wait()
		waveSpan.End(strings.Join(names, ", "))
		if err != nil {
			done("cancelled")
			return res, err
		}
	}
	done(fmt.Sprintf("%d waves", len(waves)))

	// юниты вне волн (цикл, дубликат, ошибка чтения) тоже отмечаются
	for _, u := range res.Units {
		if u.Module == nil && u.Wave < 0 {
			progress(Event{Unit: u.Name, Stage: StageSkipped, Errors: errorCount(u.Bag)})
		}
	}
	return res, nil
}

// load reads and decodes one document. A unit that cannot be decoded
// keeps Unit nil and never joins a wave.
func load(path string, files *source.FileSet, maxDiag int) *UnitResult {
	u := &UnitResult{
		Name: astio.UnitName(path),
		Path: path,
		Bag:  diag.NewBag(maxDiag),
		Wave: -1,
	}
	r := diag.BagReporter{Bag: u.Bag}
	data, err := os.ReadFile(path)
	if err != nil {
		u.Source = files.Add(path, nil, 0)
		diag.ReportError(r, diag.InputDecode, source.Span{File: u.Source}, fmt.Sprintf("cannot read %s: %v", path, err)).Emit()
		return u
	}
	unit, ok := astio.Decode(data, astio.FormatOf(path), path, files, r)
	if unit == nil {
		if id, found := files.Lookup(path); found {
			u.Source = id
		}
		return u
	}
	u.Name = unit.Name
	u.Source = unit.Source
	if ok {
		u.Unit = unit
		u.data = data
	}
	return u
}

// imports returns the imported units of u, or the name of the first one
// that failed.
func imports(u *UnitResult, byName map[string]*UnitResult) ([]*UnitResult, string) {
	deps := make([]*UnitResult, 0, len(u.Unit.Imports))
	for _, name := range u.Unit.Imports {
		dep := byName[name]
		if dep == nil || dep.Failed() {
			return nil, name
		}
		deps = append(deps, dep)
	}
	return deps, ""
}

func errorCount(b *diag.Bag) int {
	n := 0
	for _, d := range b.Items() {
		if d.Severity >= diag.SevError {
			n++
		}
	}
	return n
}

// ErrNoUnits is returned by callers that require at least one unit.
var ErrNoUnits = errors.New("no units to build")
