package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"mx/internal/mxir"
)

var lowerCmd = &cobra.Command{
	Use:   "lower [flags] <unit>...",
	Short: "Lower an MX unit to MXIR",
	Long:  "Lower a unit and print its MXIR as text or write it in the binary interchange form",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runLower,
}

func init() {
	lowerCmd.Flags().String("unit", "", "unit to print (default: the last one given)")
	lowerCmd.Flags().String("emit", "text", "output form (text|msgpack)")
	lowerCmd.Flags().StringP("output", "o", "", "write to file instead of stdout")
}

func runLower(cmd *cobra.Command, args []string) error {
	emit, _ := cmd.Flags().GetString("emit")
	if emit != "text" && emit != "msgpack" {
		return fmt.Errorf("unknown emit form: %s", emit)
	}
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	res, err := s.build(args)
	if err != nil {
		return err
	}
	hasErrors, err := s.report(cmd.ErrOrStderr(), res)
	if err != nil {
		return err
	}
	name, _ := cmd.Flags().GetString("unit")
	u, err := unitFor(res, name)
	if err != nil {
		return err
	}
	if u.Module == nil {
		return exitError{code: 1}
	}

	var buf bytes.Buffer
	switch emit {
	case "text":
		err = mxir.Dump(&buf, u.Module)
	case "msgpack":
		err = mxir.Encode(&buf, u.Module)
	}
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", u.Name, err)
	}
	if err := writeOutput(cmd, &buf); err != nil {
		return err
	}
	if hasErrors {
		return exitError{code: 1}
	}
	return nil
}

func writeOutput(cmd *cobra.Command, r io.Reader) error {
	out, _ := cmd.Flags().GetString("output")
	if out == "" || out == "-" {
		_, err := io.Copy(cmd.OutOrStdout(), r)
		return err
	}
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("failed to write output: %w", err)
	}
	return f.Close()
}
