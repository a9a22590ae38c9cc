package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/term"

	"github.com/bakerbass/GuitarChops/internal/analysis/cache"
	"github.com/bakerbass/GuitarChops/internal/audio/file"
	"github.com/bakerbass/GuitarChops/internal/conf"
	"github.com/bakerbass/GuitarChops/internal/segment"
)

// FileAnalysis runs the segmentation pipeline over a single audio file and
// writes the aggregated segment set as JSON. This is the CLI one-shot mode;
// results are printed, not persisted.
func FileAnalysis(ctx context.Context, settings *conf.Settings) error {
	fileManager := file.NewManager(settings.Export.FfmpegPath, settings.Debug)

	if err := fileManager.ValidateFile(settings.Input.Path); err != nil {
		return err
	}

	fileInfo, err := fileManager.GetFileInfo(settings.Input.Path)
	if err != nil {
		return fmt.Errorf("error getting audio info: %w", err)
	}

	fingerprint, err := segment.ComputeFingerprint(settings.Input.Path, fileInfo.SampleRate, fileInfo.NumChannels)
	if err != nil {
		return err
	}

	featureCache, err := cache.New(settings.Cache.MaxBytes, settings.Cache.Dir)
	if err != nil {
		return err
	}

	task := NewTask("", settings.Input.Path, fingerprint, enabledDetectors(settings))
	analyzer := NewAnalyzer(settings, fileManager, featureCache, nil)

	doneChan := make(chan struct{})
	go monitorProgress(ctx, doneChan, filepath.Base(settings.Input.Path), fileInfo.Duration, task, time.Now())

	err = analyzer.Run(ctx, task)
	close(doneChan)
	fmt.Println()

	if err != nil {
		if errors.Is(err, ErrAnalysisCanceled) {
			return nil
		}
		return err
	}

	set, _ := task.Result()
	return writeResults(settings, set)
}

// enabledDetectors returns the detector types switched on in the settings.
func enabledDetectors(settings *conf.Settings) []segment.DetectorType {
	var types []segment.DetectorType
	if settings.Analysis.Detectors.Silence {
		types = append(types, segment.DetectorSilence)
	}
	if settings.Analysis.Detectors.Onset {
		types = append(types, segment.DetectorOnset)
	}
	if settings.Analysis.Detectors.Key {
		types = append(types, segment.DetectorKey)
	}
	if settings.Analysis.Detectors.Tempo {
		types = append(types, segment.DetectorTempo)
	}
	return types
}

// writeResults serializes the segment set as indented JSON to the configured
// output path, or stdout when none is set.
func writeResults(settings *conf.Settings, set segment.Set) error {
	raw, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize results: %w", err)
	}

	if settings.Output.Path == "" {
		fmt.Println(string(raw))
		return nil
	}

	if err := os.MkdirAll(settings.Output.Path, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	base := filepath.Base(settings.Input.Path)
	outPath := filepath.Join(settings.Output.Path, base+".segments.json")
	if err := os.WriteFile(outPath, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	fmt.Printf("Results written to %s\n", outPath)
	return nil
}

// truncateString truncates a string to fit within maxLen, adding "..." if truncated
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// formatProgressLine formats the progress line to fit within the terminal width
func formatProgressLine(filename string, duration time.Duration, progress int, elapsed time.Duration, termWidth int) string {
	baseFormat := fmt.Sprintf(" [%s] | \033[33m🔍 Analyzing %d%%\033[0m | \033[36melapsed %s\033[0m",
		duration.Round(time.Second),
		progress,
		elapsed.Round(time.Second))

	// Account for emoji (📄) and color codes
	const colorCodesLen = 30
	availableSpace := termWidth - len(baseFormat) - colorCodesLen
	if availableSpace < 10 {
		availableSpace = 10
	}

	return fmt.Sprintf("\r\033[K\033[37m📄 %s%s",
		truncateString(filename, availableSpace),
		baseFormat)
}

// monitorProgress periodically redraws the progress line until the analysis
// finishes.
func monitorProgress(ctx context.Context, doneChan chan struct{}, filename string, duration time.Duration,
	task *Task, startTime time.Time) {

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-doneChan:
			return
		case <-ticker.C:
			width, _, err := term.GetSize(int(os.Stdout.Fd()))
			if err != nil {
				width = 80 // Default to 80 columns if we can't get terminal width
			}

			fmt.Print(formatProgressLine(
				filename,
				duration,
				task.Progress(),
				time.Since(startTime),
				width,
			))
		}
	}
}
