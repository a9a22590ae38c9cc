package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ExportFormat defines the format for audio export.
type ExportFormat struct {
	Type    string // "flac", "mp3", "aac", "alac", "opus"
	Bitrate string // e.g., "192k"
}

// ExportOptions defines options for audio export.
type ExportOptions struct {
	FFmpegPath   string
	Format       ExportFormat
	StreamFormat StreamFormat
	OutputPath   string
	Metadata     map[string]string // container tags embedded in the artifact
	Timeout      time.Duration     // Maximum time to wait for export to complete
	Executor     CommandExecutor   // Optional: custom command executor
}

// Export encodes raw PCM audio data to a tagged file in the specified format.
func Export(ctx context.Context, data []byte, opts *ExportOptions) error {
	if opts.FFmpegPath == "" {
		return fmt.Errorf("FFmpeg path not specified")
	}
	if opts.OutputPath == "" {
		return fmt.Errorf("output path not specified")
	}
	if opts.Timeout == 0 {
		opts.Timeout = 5 * time.Minute
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	outputDir := filepath.Dir(opts.OutputPath)
	if err := os.MkdirAll(outputDir, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Write to a temporary path so a failed export never leaves a partial
	// artifact at the final location.
	tempPath := opts.OutputPath + ".temp"

	builder := NewCommandBuilder(opts.FFmpegPath)
	builder.WithInputPipe().WithFormat(opts.StreamFormat)
	builder.WithOutputFile(tempPath)
	builder.WithOutputCodec(getEncoder(opts.Format.Type))
	builder.WithOutputFormat(getOutputFormat(opts.Format.Type))
	if isLossy(opts.Format.Type) {
		builder.WithOutputBitrate(getLimitedBitrate(opts.Format.Type, opts.Format.Bitrate))
	}
	for key, value := range opts.Metadata {
		builder.WithMetadata(key, value)
	}

	process, err := Start(ctx, &ProcessOptions{
		FFmpegPath: opts.FFmpegPath,
		Args:       builder.Build(),
		InputData:  data,
		Executor:   opts.Executor,
	})
	if err != nil {
		return fmt.Errorf("failed to start FFmpeg: %w", err)
	}

	if err := process.Stop(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("FFmpeg export failed: %w", err)
	}

	if err := os.Rename(tempPath, opts.OutputPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}

// getEncoder returns the appropriate codec based on format.
func getEncoder(format string) string {
	switch format {
	case "flac":
		return "flac"
	case "alac":
		return "alac"
	case "opus":
		return "libopus"
	case "aac":
		return "aac"
	case "mp3":
		return "libmp3lame"
	case "wav":
		return "pcm_s16le"
	default:
		return format
	}
}

// getOutputFormat returns the container format for the export type.
func getOutputFormat(format string) string {
	switch format {
	case "aac", "alac":
		return "ipod"
	case "opus":
		return "ogg"
	case "wav":
		return "wav"
	default:
		return format
	}
}

// isLossy reports whether the format takes a bitrate setting.
func isLossy(format string) bool {
	switch format {
	case "mp3", "aac", "opus":
		return true
	}
	return false
}

// getLimitedBitrate clamps the requested bitrate into the codec's sane range.
func getLimitedBitrate(format, bitrate string) string {
	if bitrate == "" {
		return "192k"
	}
	var kbps int
	if _, err := fmt.Sscanf(bitrate, "%dk", &kbps); err != nil {
		return "192k"
	}

	maxKbps := 320
	if format == "opus" {
		maxKbps = 256
	}
	if kbps > maxKbps {
		kbps = maxKbps
	}
	if kbps < 32 {
		kbps = 32
	}
	return fmt.Sprintf("%dk", kbps)
}
