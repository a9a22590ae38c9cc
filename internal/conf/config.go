// Package conf loads and holds application settings, backed by viper with
// YAML config file discovery and environment variable overrides.
package conf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Settings holds all application configuration.
type Settings struct {
	Debug bool

	Input struct {
		Path string // audio file to analyze (CLI mode)
	}

	Analysis AnalysisSettings

	Export ExportSettings

	Cache CacheSettings

	WebServer struct {
		Enabled bool
		Port    string
		Uploads string // directory for uploaded audio files
	}

	Output struct {
		Path string // directory for exported artifacts
	}

	Datastore struct {
		Path string // sqlite database file
	}
}

// AnalysisSettings controls the chunked segmentation pipeline.
type AnalysisSettings struct {
	ChunkDuration float64 // seconds per analysis window
	Overlap       float64 // seconds of trailing context shared between windows

	Detectors struct {
		Silence bool
		Onset   bool
		Key     bool
		Tempo   bool
	}

	Silence struct {
		ThresholdDB float64 // dBFS below which a frame counts as silent
		MinDuration float64 // seconds a run must last to qualify
	}

	Onset struct {
		Epsilon       float64 // seconds; duplicates within epsilon merge
		MinSegment    float64 // seconds; shorter onset segments are dropped
		PeakDelta     float64 // peak threshold above the local envelope mean
		MinSeparation float64 // seconds between distinct onsets
		HighPassHz    float64 // pre-filter cutoff, 0 disables
	}

	Tempo struct {
		Window        float64 // seconds of audio per BPM estimate
		Hop           float64 // seconds between estimates
		MinBPM        float64
		MaxBPM        float64
		MinConfidence float64 // estimates below this are discarded
	}

	MergeOverlapFraction float64 // span overlap fraction that triggers a merge
}

// ExportSettings controls artifact encoding.
type ExportSettings struct {
	Type       string // "wav", "flac", "mp3", "aac", "opus"
	Bitrate    string // e.g. "192k", for lossy formats
	FfmpegPath string // empty means look up on PATH
}

// CacheSettings controls the feature cache.
type CacheSettings struct {
	Dir      string // disk layer directory, empty disables persistence
	MaxBytes int64  // in-memory LRU byte budget
}

// Load reads settings from the config file (if present), environment and
// defaults, in ascending priority order: defaults < file < env.
func Load() (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, dir := range configPaths() {
		v.AddConfigPath(dir)
	}

	v.SetEnvPrefix("guitarchops")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file is fine, defaults apply.
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}

	return settings, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (s *Settings) Validate() error {
	if s.Analysis.ChunkDuration <= 0 {
		return fmt.Errorf("analysis.chunkduration must be positive, got %v", s.Analysis.ChunkDuration)
	}
	if s.Analysis.Overlap < 0 || s.Analysis.Overlap >= s.Analysis.ChunkDuration {
		return fmt.Errorf("analysis.overlap must be in [0, chunkduration), got %v", s.Analysis.Overlap)
	}
	if s.Analysis.Tempo.MinBPM <= 0 || s.Analysis.Tempo.MaxBPM <= s.Analysis.Tempo.MinBPM {
		return fmt.Errorf("invalid tempo BPM range [%v, %v]", s.Analysis.Tempo.MinBPM, s.Analysis.Tempo.MaxBPM)
	}
	if s.Analysis.MergeOverlapFraction <= 0 || s.Analysis.MergeOverlapFraction > 1 {
		return fmt.Errorf("analysis.mergeoverlapfraction must be in (0, 1], got %v", s.Analysis.MergeOverlapFraction)
	}
	return nil
}

func configPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "guitarchops"))
	}
	return paths
}
