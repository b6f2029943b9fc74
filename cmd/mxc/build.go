package main

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"mx/internal/config"
	"mx/internal/driver"
	"mx/internal/mxir"
)

var buildCmd = &cobra.Command{
	Use:   "build [flags] [<unit>...]",
	Short: "Build every unit of a project",
	Long: `Build the given units, or the [build].units patterns of mx.toml when none are given.
Units are compiled in dependency order and in parallel within each level.`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().String("ui", "auto", "progress UI (auto|on|off)")
	buildCmd.Flags().String("out", "", "directory to write <unit>.mxir files to")
	buildCmd.Flags().Bool("clean-cache", false, "drop the disk cache before building")
}

func runBuild(cmd *cobra.Command, args []string) error {
	uiValue, _ := cmd.Flags().GetString("ui")
	mode, err := readUIMode(uiValue)
	if err != nil {
		return err
	}
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	paths := args
	if len(paths) == 0 {
		if paths, err = manifestUnits(s.cfg); err != nil {
			return err
		}
	}
	if len(paths) == 0 {
		return driver.ErrNoUnits
	}
	if clean, _ := cmd.Flags().GetBool("clean-cache"); clean && s.opts.Cache != nil {
		if err := s.opts.Cache.DropAll(); err != nil {
			return err
		}
	}

	var res *driver.Result
	if mode.enabled() {
		res, err = buildWithUI(cmd.Context(), "building", paths, s.opts)
	} else {
		res, err = s.build(paths)
	}
	if err != nil {
		return err
	}
	hasErrors, err := s.report(cmd.ErrOrStderr(), res)
	if err != nil {
		return err
	}

	if out, _ := cmd.Flags().GetString("out"); out != "" {
		if err := writeModules(out, res); err != nil {
			return err
		}
	}
	printBuildSummary(cmd, res)
	if hasErrors {
		return exitError{code: 1}
	}
	return nil
}

// manifestUnits expands [build].units relative to the manifest directory.
func manifestUnits(cfg *config.Config) ([]string, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("no units given and no %s found", config.ManifestName)
	}
	base := filepath.Dir(cfg.Path)
	var paths []string
	for _, pattern := range cfg.Build.Units {
		if !filepath.IsAbs(pattern) {
			pattern = filepath.Join(base, pattern)
		}
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad unit pattern %q: %w", pattern, err)
		}
		paths = append(paths, matches...)
	}
	slices.Sort(paths)
	return slices.Compact(paths), nil
}

func writeModules(dir string, res *driver.Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	for _, u := range res.Units {
		if u.Failed() {
			continue
		}
		data, err := mxir.Marshal(u.Module)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", u.Name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, u.Name+".mxir"), data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", u.Name, err)
		}
	}
	return nil
}

func printBuildSummary(cmd *cobra.Command, res *driver.Result) {
	var built, cached, failed int
	for _, u := range res.Units {
		switch {
		case u.Failed():
			failed++
		case u.Cached:
			cached++
		default:
			built++
		}
	}
	parts := []string{fmt.Sprintf("%d built", built)}
	if cached > 0 {
		parts = append(parts, fmt.Sprintf("%d cached", cached))
	}
	if failed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", failed))
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s in %d levels (%d errors)\n", strings.Join(parts, ", "), len(res.Waves), countErrors(res.Diagnostics()))
}
