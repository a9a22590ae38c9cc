// Package analyze implements the one-shot file analysis command.
package analyze

import (
	"github.com/spf13/cobra"

	"github.com/bakerbass/GuitarChops/internal/analysis"
	"github.com/bakerbass/GuitarChops/internal/conf"
)

// Command creates the analyze command for segmenting a single audio file.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [input audio file]",
		Short: "Analyze an audio file",
		Long:  "Segment a single audio file by silence, note onsets, key and tempo, and print or write the segment list.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings.Input.Path = args[0]
			return analysis.FileAnalysis(cmd.Context(), settings)
		},
	}

	setupFlags(cmd, settings)
	return cmd
}

// setupFlags configures flags specific to the analyze command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) {
	cmd.Flags().StringVarP(&settings.Output.Path, "output", "o", settings.Output.Path, "Path to output directory")
	cmd.Flags().Float64Var(&settings.Analysis.ChunkDuration, "chunk", settings.Analysis.ChunkDuration, "Analysis window duration in seconds")
	cmd.Flags().Float64Var(&settings.Analysis.Overlap, "overlap", settings.Analysis.Overlap, "Window overlap in seconds")
	cmd.Flags().BoolVar(&settings.Analysis.Detectors.Silence, "silence", settings.Analysis.Detectors.Silence, "Run the silence detector")
	cmd.Flags().BoolVar(&settings.Analysis.Detectors.Onset, "onset", settings.Analysis.Detectors.Onset, "Run the onset detector")
	cmd.Flags().BoolVar(&settings.Analysis.Detectors.Key, "key", settings.Analysis.Detectors.Key, "Run the key detector")
	cmd.Flags().BoolVar(&settings.Analysis.Detectors.Tempo, "tempo", settings.Analysis.Detectors.Tempo, "Run the tempo detector")
}
