package driver

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"mx/internal/config"
	"mx/internal/diag"
	"mx/internal/interp"
	"mx/internal/observ"
	"mx/internal/trace"
)

const baseUnit = `{
  "version": 1,
  "unit": "base",
  "items": [
    {"kind": "ConstDecl", "name": "BASE", "value": {"kind": "IntLiteral", "text": "40"}}
  ]
}`

const appUnit = `{
  "version": 1,
  "unit": "app",
  "imports": ["base"],
  "items": [
    {"kind": "ConstDecl", "name": "ANSWER",
     "value": {"kind": "BinaryExpr", "op": "+",
               "lhs": {"kind": "Identifier", "name": "BASE"},
               "rhs": {"kind": "IntLiteral", "text": "2"}}},
    {"kind": "FnDecl", "name": "main",
     "result": {"kind": "NamedType", "name": "Int64"},
     "body": {"kind": "Block", "stmts": [
       {"kind": "ReturnStmt", "value": {"kind": "Identifier", "name": "ANSWER"}}
     ]}}
  ]
}`

func unitDoc(name string, imports string) string {
	return `{"version": 1, "unit": "` + name + `", "imports": [` + imports + `], "items": []}`
}

func writeUnits(t *testing.T, units map[string]string) []string {
	t.Helper()
	dir := t.TempDir()
	names := make([]string, 0, len(units))
	for name := range units {
		names = append(names, name)
	}
	slices.Sort(names)
	paths := make([]string, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name+".mxast.json")
		if err := os.WriteFile(path, []byte(units[name]), 0o600); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		paths = append(paths, path)
	}
	return paths
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Jobs = 4
	return cfg
}

func runMain(t *testing.T, u *UnitResult) int64 {
	t.Helper()
	v, err := interp.Run(context.Background(), u.Module, interp.Options{})
	if err != nil {
		t.Fatalf("run %s: %v", u.Name, err)
	}
	if v.Int == nil {
		t.Fatalf("%s returned %s", u.Name, v)
	}
	return v.Int.Int64()
}

func TestBuildWithImportedConstants(t *testing.T) {
	// app идёт первым во входе, но собирается во второй волне
	paths := writeUnits(t, map[string]string{"a_app": appUnit, "b_base": baseUnit})
	timer := observ.NewTimer()
	res, err := Build(context.Background(), paths, Options{Config: testConfig(), Timer: timer})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if res.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", res.Diagnostics().Items())
	}
	if len(res.Waves) != 2 || res.Waves[0][0] != "base" || res.Waves[1][0] != "app" {
		t.Fatalf("waves %v", res.Waves)
	}
	base, ok := res.Unit("base")
	if !ok {
		t.Fatalf("unit base missing")
	}
	if _, ok := base.Exports.Get("BASE"); !ok {
		t.Fatalf("base exports %v", base.Exports.Bindings())
	}
	app, _ := res.Unit("app")
	if app.Wave != 1 || base.Wave != 0 {
		t.Fatalf("wave numbers app=%d base=%d", app.Wave, base.Wave)
	}
	if got := runMain(t, app); got != 42 {
		t.Fatalf("main returned %d", got)
	}

	var phases []string
	for _, p := range timer.Report().Phases {
		phases = append(phases, p.Name)
	}
	for _, want := range []string{"load", "graph", "units", "symbols", "sema", "lower"} {
		if !slices.Contains(phases, want) {
			t.Errorf("phase %q not timed: %v", want, phases)
		}
	}
}

func TestBuildProjectDiagnostics(t *testing.T) {
	paths := writeUnits(t, map[string]string{
		"a":    unitDoc("a", `"b"`),
		"b":    unitDoc("b", `"a"`),
		"c":    unitDoc("c", `"nowhere"`),
		"d":    unitDoc("d", `"a"`),
		"dup1": unitDoc("same", ""),
		"dup2": unitDoc("same", ""),
	})
	res, err := Build(context.Background(), paths, Options{Config: testConfig()})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if got := res.Bag.Count(diag.ProjImportCycle); got != 2 {
		t.Errorf("ImportCycle: got %d, want 2: %+v", got, res.Bag.Items())
	}
	if got := res.Bag.Count(diag.ProjMissingImport); got != 1 {
		t.Errorf("MissingImport: got %d, want 1", got)
	}
	if got := res.Bag.Count(diag.ProjDuplicateUnit); got != 1 {
		t.Errorf("DuplicateUnit: got %d, want 1", got)
	}
	if got := res.Bag.Count(diag.ProjInfo); got != 1 {
		t.Errorf("unit d depends on the cycle and must be skipped, infos %d", got)
	}
	for _, name := range []string{"a", "b", "c", "d"} {
		u, _ := res.Unit(name)
		if u.Module != nil || !u.Failed() {
			t.Errorf("unit %s must not be built", name)
		}
	}
}

func TestBuildSkipsDependentsOfFailedUnits(t *testing.T) {
	broken := `{
  "version": 1,
  "unit": "base",
  "items": [
    {"kind": "ConstDecl", "name": "BASE",
     "value": {"kind": "BinaryExpr", "op": "/",
               "lhs": {"kind": "IntLiteral", "text": "1"},
               "rhs": {"kind": "IntLiteral", "text": "0"}}}
  ]
}`
	paths := writeUnits(t, map[string]string{"app": appUnit, "base": broken})
	res, err := Build(context.Background(), paths, Options{Config: testConfig()})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	base, _ := res.Unit("base")
	if base.Bag.Count(diag.ComptimeDivisionByZero) != 1 {
		t.Fatalf("base diagnostics: %+v", base.Bag.Items())
	}
	app, _ := res.Unit("app")
	if app.Module != nil || app.Bag.Count(diag.ProjInfo) != 1 {
		t.Fatalf("app must be skipped: %+v", app.Bag.Items())
	}
}

func TestBuildUsesDiskCache(t *testing.T) {
	paths := writeUnits(t, map[string]string{"app": appUnit, "base": baseUnit})
	cache, err := OpenDiskCache(t.TempDir(), "mx")
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}

	var (
		mu     sync.Mutex
		events []Event
	)
	opts := Options{
		Config: testConfig(),
		Cache:  cache,
		Progress: func(ev Event) {
			mu.Lock()
			events = append(events, ev)
			mu.Unlock()
		},
	}
	first, err := Build(context.Background(), paths, opts)
	if err != nil || first.HasErrors() {
		t.Fatalf("first build: %v %+v", err, first.Diagnostics().Items())
	}
	for _, u := range first.Units {
		if u.Cached {
			t.Fatalf("unit %s cached on a cold cache", u.Name)
		}
	}

	second, err := Build(context.Background(), paths, opts)
	if err != nil || second.HasErrors() {
		t.Fatalf("second build: %v %+v", err, second.Diagnostics().Items())
	}
	for _, u := range second.Units {
		if !u.Cached {
			t.Fatalf("unit %s rebuilt on a warm cache", u.Name)
		}
	}
	app, _ := second.Unit("app")
	if got := runMain(t, app); got != 42 {
		t.Fatalf("cached main returned %d", got)
	}
	base, _ := second.Unit("base")
	if _, ok := base.Exports.Get("BASE"); !ok {
		t.Fatalf("cached exports lost BASE")
	}

	done, cached := 0, 0
	for _, ev := range events {
		if ev.Stage == StageDone {
			done++
			if ev.Cached {
				cached++
			}
		}
		if ev.Total != 2 {
			t.Fatalf("event total %d", ev.Total)
		}
	}
	if done != 4 || cached != 2 {
		t.Fatalf("done events %d, cached %d", done, cached)
	}

	// другой default_int меняет ключ
	cfg := testConfig()
	cfg.DefaultInt = "Int32"
	third, err := Build(context.Background(), paths, Options{Config: cfg, Cache: cache})
	if err != nil {
		t.Fatalf("third build: %v", err)
	}
	for _, u := range third.Units {
		if u.Cached {
			t.Fatalf("unit %s reused across configurations", u.Name)
		}
	}
}

func TestBuildTraceAndCancel(t *testing.T) {
	paths := writeUnits(t, map[string]string{"app": appUnit, "base": baseUnit})

	rec := trace.NewRecorder(trace.LevelUnit)
	ctx := trace.WithTracer(context.Background(), rec)
	if _, err := Build(ctx, paths, Options{Config: testConfig()}); err != nil {
		t.Fatalf("build: %v", err)
	}
	var units []string
	for _, ev := range rec.Events() {
		if ev.Kind == trace.KindBegin && ev.Scope == trace.ScopeUnit {
			units = append(units, ev.Name)
		}
	}
	slices.Sort(units)
	if !slices.Equal(units, []string{"app", "base"}) {
		t.Fatalf("unit spans %v", units)
	}

	cctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := Build(cctx, paths, Options{Config: testConfig()})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	for _, u := range res.Units {
		if u.Module != nil {
			t.Fatalf("unit %s built after cancellation", u.Name)
		}
	}
}

func TestBuildRejectsBadIntConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Ints = map[string]config.IntConfig{"Word": {}}
	if _, err := Build(context.Background(), nil, Options{Config: cfg}); err == nil {
		t.Fatalf("expected configuration error")
	}
}
