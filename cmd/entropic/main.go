// Command entropic is the CLI for building partition trees and running
// nearest-neighbor searches over CSV vector datasets.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "entropic",
		Short:         "Entropy-scaling nearest-neighbor search over metric spaces",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newGenCommand(),
		newBuildCommand(),
		newSearchCommand(),
		newBenchCommand(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
