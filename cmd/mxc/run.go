package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mx/internal/interp"
)

var runCmd = &cobra.Command{
	Use:   "run [flags] <unit>...",
	Short: "Build MX units and run the entry function",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRun,
}

func init() {
	runCmd.Flags().String("unit", "", "unit to run (default: the last one given)")
	runCmd.Flags().Bool("show-result", false, "print the entry function's result")
}

func runRun(cmd *cobra.Command, args []string) error {
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
	if hasErrors {
		return exitError{code: 1}
	}
	name, _ := cmd.Flags().GetString("unit")
	u, err := unitFor(res, name)
	if err != nil {
		return err
	}

	opts := s.cfg.InterpOptions()
	opts.Out = os.Stdout
	done := s.timer.Track("run")
	v, err := interp.Run(cmd.Context(), u.Module, opts)
	done(u.Name)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", u.Name, err)
		return exitError{code: 3}
	}
	if show, _ := cmd.Flags().GetBool("show-result"); show {
		fmt.Fprintln(cmd.OutOrStdout(), v.String())
	}
	return nil
}
