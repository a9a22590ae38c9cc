// Package cmd wires the CLI command tree.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bakerbass/GuitarChops/cmd/analyze"
	"github.com/bakerbass/GuitarChops/cmd/serve"
	"github.com/bakerbass/GuitarChops/internal/conf"
)

// RootCommand creates and returns the root command.
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "guitarchops",
		Short: "GuitarChops audio segmentation CLI",
		Long:  "Segment long guitar recordings by silence, note onsets, key and tempo, and export tagged per-segment audio.",
	}

	rootCmd.PersistentFlags().BoolVar(&settings.Debug, "debug", settings.Debug, "Enable debug output")

	rootCmd.AddCommand(
		analyze.Command(settings),
		serve.Command(settings),
	)

	return rootCmd
}
