package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func FmtHandler(cmd *cobra.Command, args []string) error {
	units, err := parseAll(cmd, args, parseOptions(cmd))
	if err != nil {
		return err
	}

	for i, tu := range units {
		if len(units) > 1 {
			if i > 0 {
				fmt.Fprintln(cmd.OutOrStdout())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "// %s\n", tu.Name)
		}
		fmt.Fprint(cmd.OutOrStdout(), tu.String())
	}
	return nil
}
