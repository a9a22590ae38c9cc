package ffmpeg

import (
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strconv"
)

// ProbeResult holds the stream parameters of an audio file.
type ProbeResult struct {
	SampleRate int
	Channels   int
	Duration   float64 // seconds
}

// BinaryName returns the platform ffmpeg binary name.
func BinaryName() string {
	if runtime.GOOS == "windows" {
		return "ffmpeg.exe"
	}
	return "ffmpeg"
}

// ProbeBinaryName returns the platform ffprobe binary name.
func ProbeBinaryName() string {
	if runtime.GOOS == "windows" {
		return "ffprobe.exe"
	}
	return "ffprobe"
}

// LookPath resolves the configured ffmpeg path, falling back to PATH lookup.
func LookPath(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	path, err := exec.LookPath(BinaryName())
	if err != nil {
		return "", fmt.Errorf("FFmpeg not found: %w", err)
	}
	return path, nil
}

// Probe inspects an audio file with ffprobe and returns its stream
// parameters.
func Probe(inputPath string, executor CommandExecutor) (ProbeResult, error) {
	probePath, err := exec.LookPath(ProbeBinaryName())
	if err != nil {
		return ProbeResult{}, fmt.Errorf("ffprobe not found: %w", err)
	}

	if executor == nil {
		executor = DefaultExecutor
	}

	args := []string{
		"-v", "error",
		"-select_streams", "a:0",
		"-show_entries", "stream=sample_rate,channels:format=duration",
		"-of", "json",
		inputPath,
	}

	cmd := executor.Command(probePath, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return ProbeResult{}, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return ProbeResult{}, fmt.Errorf("failed to start ffprobe: %w", err)
	}

	raw, readErr := io.ReadAll(stdout)
	waitErr := cmd.Wait()
	if readErr != nil {
		return ProbeResult{}, fmt.Errorf("failed to read ffprobe output: %w", readErr)
	}
	if waitErr != nil {
		return ProbeResult{}, fmt.Errorf("ffprobe failed: %w", waitErr)
	}

	var parsed struct {
		Streams []struct {
			SampleRate string `json:"sample_rate"`
			Channels   int    `json:"channels"`
		} `json:"streams"`
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return ProbeResult{}, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	if len(parsed.Streams) == 0 {
		return ProbeResult{}, fmt.Errorf("no audio stream in %s", inputPath)
	}

	rate, err := strconv.Atoi(parsed.Streams[0].SampleRate)
	if err != nil {
		return ProbeResult{}, fmt.Errorf("invalid sample rate %q: %w", parsed.Streams[0].SampleRate, err)
	}
	duration, err := strconv.ParseFloat(parsed.Format.Duration, 64)
	if err != nil {
		return ProbeResult{}, fmt.Errorf("invalid duration %q: %w", parsed.Format.Duration, err)
	}

	return ProbeResult{
		SampleRate: rate,
		Channels:   parsed.Streams[0].Channels,
		Duration:   duration,
	}, nil
}
