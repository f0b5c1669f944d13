package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hipabi/hdrparse/abi"
	"github.com/hipabi/hdrparse/api"
)

func CheckHandler(cmd *cobra.Command, args []string) error {
	opts := parseOptions(cmd)
	oldPath, newPath := args[0], args[1]

	var (
		changes       []abi.Change
		compatible    bool
		before, after string
	)

	if remote, _ := cmd.Flags().GetBool("remote"); remote {
		client, err := api.ClientFromEnvironment()
		if err != nil {
			return err
		}

		req := &api.CheckRequest{}
		for _, r := range []struct {
			path string
			req  *api.ParseRequest
		}{{oldPath, &req.Old}, {newPath, &req.New}} {
			name, src, err := readSource(cmd, r.path)
			if err != nil {
				return err
			}
			*r.req = api.ParseRequest{Name: name, Source: string(src), Defines: opts.Defines, Lenient: opts.Lenient}
		}

		resp, err := client.Check(cmd.Context(), req)
		if err != nil {
			var serr api.StatusError
			if errors.As(err, &serr) {
				return errors.New(serr.ErrorMessage)
			}
			return err
		}
		changes, compatible = resp.Changes, resp.Compatible
		before, after = resp.OldFingerprint, resp.NewFingerprint
	} else {
		units, err := parseAll(cmd, args, opts)
		if err != nil {
			return err
		}

		old, err := abi.Collect(units[0])
		if err != nil {
			return err
		}

		cur, err := abi.Collect(units[1])
		if err != nil {
			return err
		}

		changes = abi.Diff(old, cur)
		compatible = abi.Compatible(changes)
		before, after = abi.Fingerprint(old), abi.Fingerprint(cur)
	}

	writeChanges(cmd.OutOrStdout(), changes)
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n%s %s\n", abi.Short(before), oldPath, abi.Short(after), newPath)

	if !compatible {
		return errBreaking
	}
	return nil
}

func writeChanges(w io.Writer, changes []abi.Change) {
	if len(changes) == 0 {
		fmt.Fprintln(w, "no changes")
		return
	}

	var data [][]string
	for _, c := range changes {
		detail := c.New
		switch c.Kind {
		case abi.Removed:
			detail = c.Old
		case abi.Changed:
			detail = c.Old + " -> " + c.New
		}
		data = append(data, []string{string(c.Kind), c.Name, string(c.Symbol), detail})
	}

	table := newTable(w, []string{"CHANGE", "NAME", "KIND", "DETAIL"})
	table.AppendBulk(data)
	table.Render()
}
