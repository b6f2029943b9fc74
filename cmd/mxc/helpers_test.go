package main

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"mx/internal/config"
	"mx/internal/driver"
)

func TestReadUIMode(t *testing.T) {
	tests := []struct {
		in   string
		want uiMode
		err  bool
	}{
		{"", uiModeAuto, false},
		{" ON ", uiModeOn, false},
		{"off", uiModeOff, false},
		{"fancy", "", true},
	}
	for _, tt := range tests {
		got, err := readUIMode(tt.in)
		if (err != nil) != tt.err || got != tt.want {
			t.Errorf("readUIMode(%q) = %q, %v", tt.in, got, err)
		}
	}
	if !uiModeOn.enabled() || uiModeOff.enabled() {
		t.Fatalf("explicit modes ignored")
	}
}

func TestManifestUnits(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"units/a.mxast.json", "units/b.mxast.json", "units/notes.txt", "main.mxast.json"} {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	cfg := config.Default()
	cfg.Path = filepath.Join(dir, config.ManifestName)
	cfg.Build.Units = []string{"units/*.mxast.json", "*.mxast.json", "units/a.mxast.json"}

	got, err := manifestUnits(cfg)
	if err != nil {
		t.Fatalf("manifestUnits: %v", err)
	}
	want := []string{
		filepath.Join(dir, "main.mxast.json"),
		filepath.Join(dir, "units/a.mxast.json"),
		filepath.Join(dir, "units/b.mxast.json"),
	}
	if !slices.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	if _, err := manifestUnits(config.Default()); err == nil {
		t.Fatalf("expected error without a manifest")
	}
}

func TestUnitFor(t *testing.T) {
	res := &driver.Result{Units: []*driver.UnitResult{{Name: "base"}, {Name: "app"}}}
	if u, err := unitFor(res, ""); err != nil || u.Name != "app" {
		t.Fatalf("default unit = %v, %v", u, err)
	}
	if u, err := unitFor(res, "base"); err != nil || u.Name != "base" {
		t.Fatalf("named unit = %v, %v", u, err)
	}
	if _, err := unitFor(res, "missing"); err == nil {
		t.Fatalf("expected error for unknown unit")
	}
	if _, err := unitFor(&driver.Result{}, ""); err != driver.ErrNoUnits {
		t.Fatalf("empty result: %v", err)
	}
}

func TestOrUnknown(t *testing.T) {
	if orUnknown("  ") != "unknown" || orUnknown(" abc ") != "abc" {
		t.Fatalf("orUnknown")
	}
}
