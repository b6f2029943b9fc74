package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mx/internal/types"
)

func writeManifest(t *testing.T, dir, text string) string {
	t.Helper()
	path := filepath.Join(dir, ManifestName)
	if err := os.WriteFile(path, []byte(text), 0o600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestDefaultsWithoutManifest(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Path != "" {
		t.Skipf("a %s above the temp dir is in the way: %s", ManifestName, cfg.Path)
	}
	if cfg.Entry != "main" || cfg.DefaultInt != "Int64" {
		t.Fatalf("entry %q default_int %q", cfg.Entry, cfg.DefaultInt)
	}
	if lim := cfg.Limits(); lim.MaxDepth != 256 || lim.MaxSteps != 1_000_000 {
		t.Fatalf("limits %+v", lim)
	}
	if cfg.Jobs <= 0 {
		t.Fatalf("jobs %d", cfg.Jobs)
	}
}

func TestManifestIsFoundAboveStartDir(t *testing.T) {
	root := t.TempDir()
	path := writeManifest(t, root, `
entry = "start"
jobs = 2
cache = ".mxcache"

[comptime]
max_depth = 64
max_steps = 5000

[run]
max_steps = 100

[build]
units = ["src/*.mxast.json"]

[ints.Int8]
overflow = "trap"

[ints.Byte]
width = 8
signed = false
`)
	nested := filepath.Join(root, "src", "deep")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(nested)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Path != path {
		t.Fatalf("manifest %q, want %q", cfg.Path, path)
	}
	if cfg.Entry != "start" || cfg.Jobs != 2 || cfg.Cache != ".mxcache" {
		t.Fatalf("top-level keys: %+v", cfg)
	}
	if cfg.Comptime.MaxDepth != 64 || cfg.Comptime.MaxSteps != 5000 {
		t.Fatalf("comptime: %+v", cfg.Comptime)
	}
	if opts := cfg.InterpOptions(); opts.MaxSteps != 100 || opts.Entry != "start" {
		t.Fatalf("interp options: %+v", opts)
	}
	if len(cfg.Build.Units) != 1 || cfg.Build.Units[0] != "src/*.mxast.json" {
		t.Fatalf("units: %v", cfg.Build.Units)
	}
	if cfg.DefaultInt != "Int64" {
		t.Fatalf("unset keys must keep defaults, default_int = %q", cfg.DefaultInt)
	}

	in, err := cfg.NewInterner()
	if err != nil {
		t.Fatalf("interner: %v", err)
	}
	if i8 := in.MustLookup(in.Builtins().Int8); i8.Overflow != types.OverflowTrap {
		t.Fatalf("Int8 overflow %s", i8.Overflow)
	}
	id, ok := in.ByName("Byte")
	if !ok {
		t.Fatalf("custom type Byte not declared")
	}
	if b := in.MustLookup(id); b.Kind != types.KindUint || b.Width != 8 {
		t.Fatalf("Byte = %+v", b)
	}
}

func TestEnvironmentOverridesManifest(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "entry = \"start\"\n[comptime]\nmax_steps = 10\n")
	t.Setenv(EnvMaxSteps, "500")
	t.Setenv(EnvMaxDepth, "not a number")
	t.Setenv(EnvEntry, "boot")
	t.Setenv(EnvJobs, "3")
	t.Setenv(EnvDefaultInt, "Int32")
	t.Setenv(EnvCache, "/tmp/mx-cache")

	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Comptime.MaxSteps != 500 || cfg.Comptime.MaxDepth != 256 {
		t.Fatalf("limits %+v", cfg.Comptime)
	}
	if cfg.Entry != "boot" || cfg.Jobs != 3 || cfg.DefaultInt != "Int32" || cfg.Cache != "/tmp/mx-cache" {
		t.Fatalf("overrides: %+v", cfg)
	}
}

func TestInvalidManifests(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"unknown key", "entri = \"main\"\n", "unknown keys: entri"},
		{"bad toml", "entry = \n", "failed to parse TOML"},
		{"zero depth", "[comptime]\nmax_depth = 0\n", "max_depth must be positive"},
		{"bad width", "[ints.Odd]\nwidth = 12\n", "width must be 8, 16, 32 or 64"},
		{"bad overflow", "[ints.Int8]\noverflow = \"saturate\"\n", "invalid overflow policy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			writeManifest(t, root, tt.text)
			_, err := Load(root)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %v, want %q", err, tt.want)
			}
		})
	}
}

func TestCustomIntNeedsWidth(t *testing.T) {
	cfg := Default()
	cfg.Ints = map[string]IntConfig{"Word": {Overflow: "wrap"}}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if _, err := cfg.NewInterner(); err == nil || !strings.Contains(err.Error(), "needs a width") {
		t.Fatalf("expected width error, got %v", err)
	}
}
