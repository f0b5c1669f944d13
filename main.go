package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/hipabi/hdrparse/cmd"
)

func main() {
	cobra.CheckErr(cmd.LoadDotEnv())
	cobra.CheckErr(cmd.NewCLI().ExecuteContext(context.Background()))
}
