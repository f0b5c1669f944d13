package cmd

import (
	"io"
	"slices"

	"github.com/spf13/cobra"
	"golang.org/x/exp/maps"

	"github.com/hipabi/hdrparse/envconfig"
)

// ConfigHandler prints the effective settings, or an example config file
// with --example.
func ConfigHandler(cmd *cobra.Command, _ []string) error {
	if example, _ := cmd.Flags().GetBool("example"); example {
		_, err := io.WriteString(cmd.OutOrStdout(), envconfig.GenerateExampleConfig())
		return err
	}

	values := envconfig.Values()
	keys := maps.Keys(values)
	slices.Sort(keys)

	t := newTable(cmd.OutOrStdout(), []string{"KEY", "VALUE"})
	for _, k := range keys {
		t.Append([]string{k, values[k]})
	}
	t.Render()
	return nil
}
