package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/hipabi/hdrparse/api"
	"github.com/hipabi/hdrparse/emit"
	"github.com/hipabi/hdrparse/parser"
)

func ParseHandler(cmd *cobra.Command, args []string) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}

	opts := parseOptions(cmd)

	output, _ := cmd.Flags().GetString("output")
	w := cmd.OutOrStdout()
	if output == "" && format.Binary() {
		if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			return fmt.Errorf("refusing to write %s to a terminal, use --output", format)
		}
	}

	remote, _ := cmd.Flags().GetBool("remote")
	if remote {
		if format.Binary() {
			return fmt.Errorf("--remote does not support %s output", format)
		}
		return parseRemote(cmd, args, format, opts, output)
	}

	units, err := parseAll(cmd, args, opts)
	if err != nil {
		return err
	}

	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	if err := emit.Write(w, format, units...); err != nil {
		return err
	}

	if f, ok := w.(*os.File); ok && output != "" {
		return f.Close()
	}
	return nil
}

func parseRemote(cmd *cobra.Command, args []string, format emit.Format, opts parser.Options, output string) error {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return err
	}

	if err := client.Heartbeat(cmd.Context()); err != nil {
		return fmt.Errorf("could not connect to hdrparse server: %w", err)
	}

	docs := make([]string, len(args))

	g, ctx := errgroup.WithContext(cmd.Context())
	for i, path := range args {
		g.Go(func() error {
			name, src, err := readSource(cmd, path)
			if err != nil {
				return err
			}

			resp, err := client.Parse(ctx, &api.ParseRequest{
				Name:    name,
				Source:  string(src),
				Format:  format.String(),
				Defines: opts.Defines,
				Lenient: opts.Lenient,
			})
			if err != nil {
				var serr api.StatusError
				if errors.As(err, &serr) {
					return errors.New(serr.ErrorMessage)
				}
				return err
			}
			docs[i] = resp.Document
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	// the server returns one JSON value per file; join them as an array
	if format == emit.JSON && len(docs) > 1 {
		if _, err := io.WriteString(w, "[\n"); err != nil {
			return err
		}
		for i, doc := range docs {
			sep := ",\n"
			if i == len(docs)-1 {
				sep = "\n"
			}
			if _, err := io.WriteString(w, strings.TrimRight(doc, "\n")+sep); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "]\n")
		return err
	}

	for _, doc := range docs {
		if _, err := io.WriteString(w, doc); err != nil {
			return err
		}
	}
	return nil
}
