// Package detectors holds the per-chunk analyzers. Each detector consumes one
// analysis window of mono audio and reports chunk-local candidate events;
// merging across windows is the aggregator's job.
package detectors

import (
	"fmt"

	"github.com/bakerbass/GuitarChops/internal/audio/file"
	"github.com/bakerbass/GuitarChops/internal/conf"
	"github.com/bakerbass/GuitarChops/internal/segment"
)

// Detector analyzes a single chunk for one detection criterion. Detectors are
// stateless across chunks so the pipeline can run them concurrently.
type Detector interface {
	// Type identifies which criterion this detector implements.
	Type() segment.DetectorType

	// Detect returns the candidate events found in the chunk. Event times are
	// seconds relative to the chunk's first sample.
	Detect(chunk file.Chunk) ([]segment.CandidateEvent, error)
}

// DetectorError attributes a failure to a specific detector and chunk.
type DetectorError struct {
	Detector   segment.DetectorType
	ChunkIndex int
	Err        error
}

func (e *DetectorError) Error() string {
	return fmt.Sprintf("%s detector failed on chunk %d: %v", e.Detector, e.ChunkIndex, e.Err)
}

func (e *DetectorError) Unwrap() error {
	return e.Err
}

// ForSettings builds the detector set enabled in the configuration, in the
// stable detector order.
func ForSettings(settings *conf.AnalysisSettings) []Detector {
	var types []segment.DetectorType
	if settings.Detectors.Silence {
		types = append(types, segment.DetectorSilence)
	}
	if settings.Detectors.Onset {
		types = append(types, segment.DetectorOnset)
	}
	if settings.Detectors.Key {
		types = append(types, segment.DetectorKey)
	}
	if settings.Detectors.Tempo {
		types = append(types, segment.DetectorTempo)
	}
	return ForTypes(settings, types)
}

// ForTypes builds detectors for an explicit selection, in the stable detector
// order. Unknown types are ignored.
func ForTypes(settings *conf.AnalysisSettings, types []segment.DetectorType) []Detector {
	selected := make(map[segment.DetectorType]bool, len(types))
	for _, t := range types {
		selected[t] = true
	}

	var out []Detector
	for _, t := range segment.AllDetectorTypes {
		if !selected[t] {
			continue
		}
		switch t {
		case segment.DetectorSilence:
			out = append(out, NewSilenceDetector(settings.Silence.ThresholdDB, settings.Silence.MinDuration))
		case segment.DetectorOnset:
			out = append(out, NewOnsetDetector(settings.Onset.PeakDelta, settings.Onset.MinSeparation, settings.Onset.HighPassHz))
		case segment.DetectorKey:
			out = append(out, NewKeyDetector())
		case segment.DetectorTempo:
			out = append(out, NewTempoDetector(settings.Tempo.Window, settings.Tempo.Hop, settings.Tempo.MinBPM, settings.Tempo.MaxBPM, settings.Tempo.MinConfidence))
		}
	}
	return out
}
