package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"typstkit/pkg/version"
)

func main() {
	var verbose bool

	cmd := &cobra.Command{
		Use:     "typstkit",
		Short:   "typstkit - resource resolution and package bundling for Typst compilation",
		Version: version.Version(),
		PersistentPreRun: func(c *cobra.Command, args []string) {
			if verbose {
				slog.SetLogLoggerLevel(slog.LevelDebug)
			}
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	cmd.AddCommand(newBundleCommand())

	if err := cmd.Execute(); err != nil {
		slog.Error("error", "err", err)
		os.Exit(1)
	}
}
