package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hipabi/hdrparse/ast"
	"github.com/hipabi/hdrparse/emit"
	"github.com/hipabi/hdrparse/envconfig"
	"github.com/hipabi/hdrparse/logutil"
	"github.com/hipabi/hdrparse/parser"
	"github.com/hipabi/hdrparse/version"
)

var errBreaking = errors.New("breaking changes found")

// parseOptions merges the configured defaults with the command's flags.
func parseOptions(cmd *cobra.Command) parser.Options {
	opts := parser.Options{
		Defines: make(map[string]string),
		Lenient: envconfig.Lenient,
	}
	for k, v := range envconfig.Defines {
		opts.Defines[k] = v
	}

	if cmd.Flags().Lookup("define") != nil {
		defines, _ := cmd.Flags().GetStringArray("define")
		for k, v := range envconfig.ParseDefines(strings.Join(defines, ",")) {
			opts.Defines[k] = v
		}
	}

	if cmd.Flags().Changed("lenient") {
		opts.Lenient, _ = cmd.Flags().GetBool("lenient")
	}
	return opts
}

func addParseFlags(cmd *cobra.Command) {
	cmd.Flags().StringArrayP("define", "D", nil, "Predefine a macro as NAME or NAME=VALUE")
	cmd.Flags().Bool("lenient", false, "Skip declarations that fail to parse")
}

func readSource(cmd *cobra.Command, path string) (string, []byte, error) {
	if path == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		return "<stdin>", b, err
	}
	b, err := os.ReadFile(path)
	return path, b, err
}

func parseOne(cmd *cobra.Command, path string, opts parser.Options) (*ast.TranslationUnit, error) {
	name, src, err := readSource(cmd, path)
	if err != nil {
		return nil, err
	}

	tu, err := parser.Parse(name, bytes.NewReader(src), opts)
	if err != nil {
		return nil, err
	}
	slog.Debug("parsed", "file", name, "entities", len(tu.Entities), "includes", len(tu.Includes))
	return tu, nil
}

// parseAll parses paths concurrently. Units are returned in argument order.
func parseAll(cmd *cobra.Command, paths []string, opts parser.Options) ([]*ast.TranslationUnit, error) {
	units := make([]*ast.TranslationUnit, len(paths))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		g.Go(func() error {
			tu, err := parseOne(cmd, path, opts)
			if err != nil {
				return err
			}
			units[i] = tu
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return units, nil
}

func NewCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "hdrparse",
		Short:        "C header parser",
		Long:         "Parse C headers into YAML, JSON or CBOR declaration trees and compare their ABI.",
		SilenceUsage: true,
		Version:      version.Version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if path, _ := cmd.Flags().GetString("config"); path != "" {
				if err := envconfig.SetConfigFile(path); err != nil {
					return err
				}
			}

			verbose, _ := cmd.Flags().GetCount("verbose")
			level := logutil.Level(verbose > 0 || envconfig.Debug, verbose > 1)
			slog.SetDefault(logutil.NewLogger(cmd.ErrOrStderr(), level))
			return nil
		},
	}

	rootCmd.PersistentFlags().CountP("verbose", "v", "Show debug logs (repeat for tracing)")
	rootCmd.PersistentFlags().String("config", "", "Path to a TOML config file")

	cobra.EnableCommandSorting = false

	parseCmd := &cobra.Command{
		Use:   "parse FILE...",
		Short: "Parse headers into declaration trees",
		Long:  "Parse headers into declaration trees. Use - to read standard input.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  ParseHandler,
	}
	addParseFlags(parseCmd)
	parseCmd.Flags().StringP("format", "f", "", "Output format: yaml, json or cbor")
	parseCmd.Flags().StringP("output", "o", "", "Write to FILE instead of standard output")
	parseCmd.Flags().Bool("remote", false, "Parse on the server at HDRPARSE_HOST")

	fmtCmd := &cobra.Command{
		Use:   "fmt FILE...",
		Short: "Print the declarations of headers",
		Args:  cobra.MinimumNArgs(1),
		RunE:  FmtHandler,
	}
	addParseFlags(fmtCmd)

	listCmd := &cobra.Command{
		Use:     "list FILE",
		Aliases: []string{"ls"},
		Short:   "List the symbols a header declares",
		Args:    cobra.ExactArgs(1),
		RunE:    ListHandler,
	}
	addParseFlags(listCmd)
	listCmd.Flags().StringSlice("kind", nil, "Only list symbols of these kinds")

	checkCmd := &cobra.Command{
		Use:   "check OLD NEW",
		Short: "Compare the symbols of two headers",
		Long:  "Compare the symbols of two headers. Exits with an error when a symbol was removed or changed.",
		Args:  cobra.ExactArgs(2),
		RunE:  CheckHandler,
	}
	addParseFlags(checkCmd)
	checkCmd.Flags().Bool("remote", false, "Compare on the server at HDRPARSE_HOST")

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective settings",
		Args:  cobra.ExactArgs(0),
		RunE:  ConfigHandler,
	}
	configCmd.Flags().Bool("example", false, "Print an example config file")

	rootCmd.AddCommand(
		parseCmd,
		fmtCmd,
		listCmd,
		checkCmd,
		configCmd,
		NewServeCmd(),
	)

	return rootCmd
}

func outputFormat(cmd *cobra.Command) (emit.Format, error) {
	name, _ := cmd.Flags().GetString("format")
	if name == "" {
		name = envconfig.Format
	}
	f, err := emit.ParseFormat(name)
	if err != nil {
		return f, fmt.Errorf("--format: %w", err)
	}
	return f, nil
}
