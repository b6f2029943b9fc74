package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] <unit>...",
	Short: "Check MX units for errors",
	Long:  "Resolve, type-check and fold the constants of MX units without running them",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().Bool("quiet", false, "print nothing when there are no diagnostics")
}

func runCheck(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	res, err := s.build(args)
	if err != nil {
		return err
	}
	hasErrors, err := s.report(cmd.OutOrStdout(), res)
	if err != nil {
		return err
	}
	if hasErrors {
		return exitError{code: 1}
	}
	if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet && res.Diagnostics().Len() == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "%d units ok\n", len(res.Units))
	}
	return nil
}
