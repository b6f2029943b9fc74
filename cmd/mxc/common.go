package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"mx/internal/config"
	"mx/internal/diag"
	"mx/internal/diagfmt"
	"mx/internal/driver"
	"mx/internal/observ"
	"mx/internal/prof"
	"mx/internal/trace"
)

// loadConfig reads mx.toml and the environment, then applies the flags
// that were set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Root().PersistentFlags()
	dir, err := flags.GetString("dir")
	if err != nil {
		return nil, fmt.Errorf("failed to get dir flag: %w", err)
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}

	if flags.Changed("entry") {
		cfg.Entry, _ = flags.GetString("entry")
	}
	if flags.Changed("default-int") {
		cfg.DefaultInt, _ = flags.GetString("default-int")
	}
	if flags.Changed("max-depth") {
		cfg.Comptime.MaxDepth, _ = flags.GetInt("max-depth")
	}
	if flags.Changed("max-steps") {
		cfg.Comptime.MaxSteps, _ = flags.GetInt("max-steps")
	}
	if flags.Changed("jobs") {
		if jobs, _ := flags.GetInt("jobs"); jobs > 0 {
			cfg.Jobs = jobs
		}
	}
	if flags.Changed("cache-dir") {
		cfg.Cache, _ = flags.GetString("cache-dir")
	} else if cfg.Cache != "" && cfg.Path != "" && !filepath.IsAbs(cfg.Cache) {
		// путь кэша в манифесте считается от манифеста
		cfg.Cache = filepath.Join(filepath.Dir(cfg.Path), cfg.Cache)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openCache returns the disk cache, or nil when none is configured or
// --no-cache is set.
func openCache(cmd *cobra.Command, cfg *config.Config) (*driver.DiskCache, error) {
	noCache, err := cmd.Root().PersistentFlags().GetBool("no-cache")
	if err != nil {
		return nil, fmt.Errorf("failed to get no-cache flag: %w", err)
	}
	if noCache || cfg.Cache == "" {
		return nil, nil
	}
	cache, err := driver.OpenDiskCache(cfg.Cache, "mx")
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	return cache, nil
}

// setupTracing inspects trace-related flags and attaches a tracer to the
// command context. The returned cleanup closes it.
func setupTracing(cmd *cobra.Command) (func(), error) {
	flags := cmd.Root().PersistentFlags()
	output, err := flags.GetString("trace")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace flag: %w", err)
	}
	levelStr, err := flags.GetString("trace-level")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-level flag: %w", err)
	}
	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return nil, err
	}
	// --trace без уровня включает фазы
	if level == trace.LevelOff && output != "" {
		level = trace.LevelPhase
	}
	tracer, err := trace.Open(level, output)
	if err != nil {
		return nil, err
	}
	cmd.SetContext(trace.WithTracer(cmd.Context(), tracer))
	return func() {
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}, nil
}

// startProfiling reads the profiling flags; the session is nil when none
// is set.
func startProfiling(cmd *cobra.Command) (*prof.Session, error) {
	flags := cmd.Root().PersistentFlags()
	var opts prof.Options
	opts.CPU, _ = flags.GetString("cpu-profile")
	opts.Mem, _ = flags.GetString("mem-profile")
	opts.Trace, _ = flags.GetString("runtime-trace")
	if !opts.Enabled() {
		return nil, nil
	}
	return prof.Start(opts)
}

// session is what every command needs to run the driver.
type session struct {
	cmd   *cobra.Command
	cfg   *config.Config
	timer *observ.Timer
	opts  driver.Options
	close func()
}

func newSession(cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	cache, err := openCache(cmd, cfg)
	if err != nil {
		return nil, err
	}
	maxDiagnostics, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return nil, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	profiles, err := startProfiling(cmd)
	if err != nil {
		return nil, err
	}
	cleanup, err := setupTracing(cmd)
	if err != nil {
		_ = profiles.Stop()
		return nil, err
	}
	s := &session{cmd: cmd, cfg: cfg, timer: observ.NewTimer()}
	// тайминги печатаются после всех фаз, включая run
	s.close = func() {
		if showTimings, _ := cmd.Root().PersistentFlags().GetBool("timings"); showTimings {
			fmt.Fprint(cmd.ErrOrStderr(), s.timer.Summary())
		}
		cleanup()
		if err := profiles.Stop(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "profile: %v\n", err)
		}
	}
	s.opts = driver.Options{Config: cfg, MaxDiagnostics: maxDiagnostics, Cache: cache, Timer: s.timer}
	return s, nil
}

func (s *session) build(paths []string) (*driver.Result, error) {
	if len(paths) == 0 {
		return nil, driver.ErrNoUnits
	}
	return driver.Build(s.cmd.Context(), paths, s.opts)
}

// report renders the diagnostics of res to w and returns whether there
// were errors.
func (s *session) report(w io.Writer, res *driver.Result) (bool, error) {
	flags := s.cmd.Root().PersistentFlags()
	format, _ := flags.GetString("format")
	withNotes, _ := flags.GetBool("with-notes")
	pathModeStr, _ := flags.GetString("path-mode")
	pathMode, err := diagfmt.ParsePathMode(pathModeStr)
	if err != nil {
		return false, err
	}

	minStr, _ := flags.GetString("min-severity")
	minSev, err := diag.ParseSeverity(minStr)
	if err != nil {
		return false, err
	}

	bag := res.Diagnostics()
	hasErrors := bag.HasErrors()
	bag.Filter(minSev)
	switch format {
	case "pretty":
		diagfmt.Pretty(w, bag, res.Files, diagfmt.PrettyOpts{
			Color:     s.useColor(w),
			Context:   1,
			PathMode:  pathMode,
			ShowNotes: withNotes,
		})
	case "short":
		diagfmt.Short(w, bag, res.Files, pathMode, withNotes)
	case "json":
		if err := diagfmt.JSON(w, bag, res.Files, diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         pathMode,
			IncludeNotes:     withNotes,
		}); err != nil {
			return false, fmt.Errorf("failed to format diagnostics: %w", err)
		}
	default:
		return false, fmt.Errorf("unknown format: %s", format)
	}
	return hasErrors, nil
}

func (s *session) useColor(w io.Writer) bool {
	colorFlag, _ := s.cmd.Root().PersistentFlags().GetString("color")
	switch colorFlag {
	case "on":
		return true
	case "off":
		return false
	}
	f, ok := w.(*os.File)
	return ok && isTerminal(f)
}

// unitFor picks the unit a single-unit command works on: the one named by
// --unit, otherwise the last path given.
func unitFor(res *driver.Result, name string) (*driver.UnitResult, error) {
	if name != "" {
		u, ok := res.Unit(name)
		if !ok {
			return nil, fmt.Errorf("no unit named %q", name)
		}
		return u, nil
	}
	if len(res.Units) == 0 {
		return nil, driver.ErrNoUnits
	}
	return res.Units[len(res.Units)-1], nil
}

func countErrors(b *diag.Bag) int {
	n := 0
	for _, d := range b.Items() {
		if d.Severity >= diag.SevError {
			n++
		}
	}
	return n
}
