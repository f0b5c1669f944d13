package cmd

import (
	"io"
	"slices"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/hipabi/hdrparse/abi"
)

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	return table
}

func ListHandler(cmd *cobra.Command, args []string) error {
	tu, err := parseOne(cmd, args[0], parseOptions(cmd))
	if err != nil {
		return err
	}

	table, err := abi.Collect(tu)
	if err != nil {
		return err
	}

	kinds, _ := cmd.Flags().GetStringSlice("kind")

	var data [][]string
	for _, s := range table.Symbols() {
		if len(kinds) == 0 || slices.Contains(kinds, string(s.Kind)) {
			data = append(data, []string{s.Name, string(s.Kind), s.Detail})
		}
	}

	// typedef names from included headers
	if len(kinds) == 0 || slices.Contains(kinds, "external") {
		for _, name := range abi.External(tu) {
			data = append(data, []string{name, "external", ""})
		}
	}

	t := newTable(cmd.OutOrStdout(), []string{"NAME", "KIND", "DETAIL"})
	t.AppendBulk(data)
	t.Render()

	return nil
}
