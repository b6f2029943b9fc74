// Package config loads mx.toml and environment overrides.
//
// Precedence, lowest first: built-in defaults, the nearest mx.toml above
// the working directory, MX_* environment variables, command-line flags
// (applied by the caller).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"fortio.org/safecast"
	"github.com/BurntSushi/toml"
	"github.com/xyproto/env/v2"

	"mx/internal/comptime"
	"mx/internal/interp"
	"mx/internal/lower"
	"mx/internal/types"
)

// ManifestName is the project manifest file.
const ManifestName = "mx.toml"

// Environment variables read by ApplyEnv.
const (
	EnvMaxDepth   = "MX_MAX_DEPTH"
	EnvMaxSteps   = "MX_MAX_STEPS"
	EnvEntry      = "MX_ENTRY"
	EnvDefaultInt = "MX_DEFAULT_INT"
	EnvJobs       = "MX_JOBS"
	EnvCache      = "MX_CACHE"
)

type ComptimeConfig struct {
	MaxDepth int `toml:"max_depth"`
	MaxSteps int `toml:"max_steps"`
}

// RunConfig bounds the MXIR interpreter.
type RunConfig struct {
	MaxDepth int `toml:"max_depth"`
	MaxSteps int `toml:"max_steps"`
}

// BuildConfig lists the unit documents of a project as glob patterns
// relative to the manifest.
type BuildConfig struct {
	Units []string `toml:"units"`
}

// IntConfig overrides a builtin integer type or declares a custom one.
// Width and Signed default to the builtin's values when it exists.
type IntConfig struct {
	Width    int    `toml:"width"`
	Signed   *bool  `toml:"signed"`
	Overflow string `toml:"overflow"`
}

// Config is the effective configuration.
type Config struct {
	Entry      string               `toml:"entry"`
	DefaultInt string               `toml:"default_int"`
	Jobs       int                  `toml:"jobs"`
	Cache      string               `toml:"cache"`
	Comptime   ComptimeConfig       `toml:"comptime"`
	Run        RunConfig            `toml:"run"`
	Build      BuildConfig          `toml:"build"`
	Ints       map[string]IntConfig `toml:"ints"`

	// Path is the manifest the values came from; empty for defaults.
	Path string `toml:"-"`
}

// Default returns the built-in configuration.
func Default() *Config {
	lim := comptime.DefaultLimits()
	return &Config{
		Entry:      "main",
		DefaultInt: lower.DefaultIntName,
		Jobs:       runtime.GOMAXPROCS(0),
		Comptime:   ComptimeConfig{MaxDepth: lim.MaxDepth, MaxSteps: lim.MaxSteps},
		Run:        RunConfig{MaxDepth: interp.DefaultMaxDepth, MaxSteps: interp.DefaultMaxSteps},
	}
}

// FindManifest walks up from startDir to locate mx.toml.
func FindManifest(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ManifestName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load builds the effective configuration for startDir: defaults, the
// nearest manifest if any, then the environment.
func Load(startDir string) (*Config, error) {
	cfg := Default()
	path, ok, err := FindManifest(startDir)
	if err != nil {
		return nil, err
	}
	if ok {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile decodes a manifest over the current values. Unknown keys are
// an error.
func (c *Config) LoadFile(path string) error {
	meta, err := toml.DecodeFile(path, c)
	if err != nil {
		return fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	c.Path = path
	return nil
}

// ApplyEnv applies MX_* overrides. Malformed numbers keep the current
// value.
func (c *Config) ApplyEnv() {
	c.Comptime.MaxDepth = env.Int(EnvMaxDepth, c.Comptime.MaxDepth)
	c.Comptime.MaxSteps = env.Int(EnvMaxSteps, c.Comptime.MaxSteps)
	c.Jobs = env.Int(EnvJobs, c.Jobs)
	c.Entry = env.Str(EnvEntry, c.Entry)
	c.DefaultInt = env.Str(EnvDefaultInt, c.DefaultInt)
	if env.Has(EnvCache) {
		c.Cache = env.Str(EnvCache)
	}
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Entry) == "":
		return errors.New("entry must not be empty")
	case c.Comptime.MaxDepth <= 0:
		return fmt.Errorf("comptime.max_depth must be positive, got %d", c.Comptime.MaxDepth)
	case c.Comptime.MaxSteps <= 0:
		return fmt.Errorf("comptime.max_steps must be positive, got %d", c.Comptime.MaxSteps)
	case c.Run.MaxDepth < 0 || c.Run.MaxSteps < 0:
		return errors.New("run limits must not be negative")
	case c.Jobs <= 0:
		return fmt.Errorf("jobs must be positive, got %d", c.Jobs)
	}
	for _, name := range c.intNames() {
		ic := c.Ints[name]
		if ic.Width != 0 && ic.Width != 8 && ic.Width != 16 && ic.Width != 32 && ic.Width != 64 {
			return fmt.Errorf("ints.%s: width must be 8, 16, 32 or 64, got %d", name, ic.Width)
		}
		if ic.Overflow != "" {
			if _, err := types.ParseOverflow(ic.Overflow); err != nil {
				return fmt.Errorf("ints.%s: %w", name, err)
			}
		}
	}
	return nil
}

// Limits returns the comptime budgets.
func (c *Config) Limits() comptime.Limits {
	return comptime.Limits{MaxDepth: c.Comptime.MaxDepth, MaxSteps: c.Comptime.MaxSteps}
}

// InterpOptions returns the interpreter budgets and entry.
func (c *Config) InterpOptions() interp.Options {
	return interp.Options{Entry: c.Entry, MaxDepth: c.Run.MaxDepth, MaxSteps: c.Run.MaxSteps}
}

// NewInterner creates an interner with the configured integer types.
func (c *Config) NewInterner() (*types.Interner, error) {
	in := types.NewInterner()
	if err := c.ApplyInts(in); err != nil {
		return nil, err
	}
	return in, nil
}

// ApplyInts declares the [ints] table in name order, so every unit built
// from one configuration assigns the same TypeIDs.
func (c *Config) ApplyInts(in *types.Interner) error {
	for _, name := range c.intNames() {
		ic := c.Ints[name]
		width := types.Width(64)
		signed := true
		overflow := types.OverflowWrap
		if id, ok := in.ByName(name); ok {
			t := in.MustLookup(id)
			if !t.IsInteger() || t.IsUntyped() {
				return fmt.Errorf("ints.%s: %s is not an integer type", name, in.Name(id))
			}
			width, signed, overflow = t.Width, t.Kind == types.KindInt, t.Overflow
		} else if ic.Width == 0 {
			return fmt.Errorf("ints.%s: custom integer type needs a width", name)
		}
		if ic.Width != 0 {
			w, err := safecast.Conv[types.Width](ic.Width)
			if err != nil {
				return fmt.Errorf("ints.%s: width: %w", name, err)
			}
			width = w
		}
		if ic.Signed != nil {
			signed = *ic.Signed
		}
		if ic.Overflow != "" {
			ov, err := types.ParseOverflow(ic.Overflow)
			if err != nil {
				return fmt.Errorf("ints.%s: %w", name, err)
			}
			overflow = ov
		}
		in.DeclareInt(name, width, signed, overflow)
	}
	return nil
}

func (c *Config) intNames() []string {
	names := make([]string, 0, len(c.Ints))
	for name := range c.Ints {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
