package cmd

import (
	"fmt"
	"net"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/exp/maps"

	"github.com/hipabi/hdrparse/envconfig"
	"github.com/hipabi/hdrparse/server"
)

func NewServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"start"},
		Short:   "Start the hdrparse server",
		Args:    cobra.ExactArgs(0),
		RunE:    RunServer,
	}

	serveCmd.SetUsageTemplate(serveCmd.UsageTemplate() + envUsage())
	return serveCmd
}

func envUsage() string {
	vars := envconfig.AsMap()
	keys := maps.Keys(vars)
	slices.Sort(keys)

	var sb strings.Builder
	sb.WriteString("\nEnvironment Variables:\n")
	for _, k := range keys {
		fmt.Fprintf(&sb, "      %-20s %s\n", k, vars[k].Description)
	}
	return sb.String()
}

func RunServer(cmd *cobra.Command, _ []string) error {
	ln, err := net.Listen("tcp", envconfig.Host().Host)
	if err != nil {
		return err
	}

	return server.Serve(ln)
}
