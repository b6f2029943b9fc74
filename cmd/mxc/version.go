package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"mx/internal/version"
)

type versionReport struct {
	Tool      string `json:"tool"`
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the mxc version and build metadata",
	Args:  cobra.NoArgs,
	RunE:  runVersion,
}

func init() {
	versionCmd.Flags().Bool("hash", false, "include git commit hash")
	versionCmd.Flags().Bool("date", false, "include build timestamp")
	versionCmd.Flags().Bool("full", false, "include all recorded build metadata")
	versionCmd.Flags().String("output", "pretty", "output format (pretty|json)")
}

func runVersion(cmd *cobra.Command, _ []string) error {
	full, _ := cmd.Flags().GetBool("full")
	showHash, _ := cmd.Flags().GetBool("hash")
	showDate, _ := cmd.Flags().GetBool("date")
	output, _ := cmd.Flags().GetString("output")

	report := versionReport{Tool: "mxc", Version: strings.TrimSpace(version.Version)}
	if report.Version == "" {
		report.Version = "dev"
	}
	if showHash || full {
		report.GitCommit = orUnknown(version.GitCommit)
	}
	if showDate || full {
		report.BuildDate = orUnknown(version.BuildDate)
	}

	switch strings.ToLower(output) {
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "pretty":
		printVersion(cmd.OutOrStdout(), report)
		return nil
	}
	return fmt.Errorf("unsupported output %q (must be pretty or json)", output)
}

func printVersion(w io.Writer, r versionReport) {
	label := color.New(color.Faint)
	fmt.Fprintf(w, "mxc %s\n", version.Colored())
	if r.GitCommit != "" {
		fmt.Fprintf(w, "%s %s\n", label.Sprint("commit:"), r.GitCommit)
	}
	if r.BuildDate != "" {
		fmt.Fprintf(w, "%s  %s\n", label.Sprint("built:"), r.BuildDate)
	}
}

func orUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "unknown"
	}
	return s
}
