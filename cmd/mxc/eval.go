package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mx/internal/mxir"
)

var evalCmd = &cobra.Command{
	Use:   "eval [flags] <unit>...",
	Short: "Print the folded constants of an MX unit",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runEval,
}

func init() {
	evalCmd.Flags().String("unit", "", "unit to print (default: the last one given)")
	evalCmd.Flags().StringSlice("const", nil, "print only these constants")
}

func runEval(cmd *cobra.Command, args []string) error {
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

	out := cmd.OutOrStdout()
	names, _ := cmd.Flags().GetStringSlice("const")
	if len(names) == 0 {
		for _, c := range u.Module.Consts {
			fmt.Fprintf(out, "%s = %s\n", c.Name, mxir.Format(c.Value, u.Module.Types))
		}
	}
	for _, n := range names {
		v, ok := u.Module.Const(n)
		if !ok {
			return fmt.Errorf("unit %s has no constant %q", u.Name, n)
		}
		fmt.Fprintf(out, "%s = %s\n", n, mxir.Format(v, u.Module.Types))
	}
	if hasErrors {
		return exitError{code: 1}
	}
	return nil
}
