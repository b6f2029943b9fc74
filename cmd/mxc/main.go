package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"mx/internal/version"
)

var rootCmd = &cobra.Command{
	Use:           "mxc",
	Short:         "MX compiler front end",
	Long:          `mxc checks, lowers and runs MX units given as AST interchange documents (*.mxast.json, *.mxast)`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// exitError carries a process exit code without a message: the command
// already reported what went wrong.
type exitError struct{ code int }

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

// main registers the commands and global flags, then executes the root
// command. Diagnostics with errors exit with status 1, usage and I/O
// failures with status 2, a failed `mxc run` with status 3.
func main() {
	// Устанавливаем версию для автоматического флага --version
	rootCmd.Version = version.Full()

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(lowerCmd)
	rootCmd.AddCommand(evalCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(versionCmd)

	// Глобальные флаги
	pf := rootCmd.PersistentFlags()
	pf.String("color", "auto", "colorize output (auto|on|off)")
	pf.Bool("timings", false, "show timing information")
	pf.Int("max-diagnostics", 100, "maximum number of diagnostics per unit")
	pf.String("format", "pretty", "diagnostic format (pretty|short|json)")
	pf.String("path-mode", "auto", "how to print file paths (auto|absolute|relative|basename)")
	pf.Bool("with-notes", false, "include diagnostic notes in output")
	pf.String("min-severity", "info", "hide diagnostics below this severity (info|warning|error)")
	pf.String("trace", "", "trace output file (- for stderr, *.ndjson for NDJSON)")
	pf.String("trace-level", "off", "trace level (off|phase|unit|debug)")
	pf.String("dir", ".", "directory to search for mx.toml from")
	pf.String("cpu-profile", "", "write CPU profile to file")
	pf.String("mem-profile", "", "write heap profile to file")
	pf.String("runtime-trace", "", "write Go runtime trace to file")

	// переопределения mx.toml
	pf.String("entry", "", "entry function name")
	pf.String("default-int", "", "integer type for untyped literals")
	pf.Int("max-depth", 0, "comptime call depth budget")
	pf.Int("max-steps", 0, "comptime step budget")
	pf.Int("jobs", 0, "parallel units (0 = from configuration)")
	pf.String("cache-dir", "", "disk cache directory")
	pf.Bool("no-cache", false, "disable the disk cache")

	err := rootCmd.Execute()
	if err == nil {
		return
	}
	var exit exitError
	if errors.As(err, &exit) {
		os.Exit(exit.code)
	}
	fmt.Fprintln(os.Stderr, "mxc:", err)
	os.Exit(2)
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // Fd fits int
}
