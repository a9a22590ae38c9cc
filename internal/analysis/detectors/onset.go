package detectors

import (
	"github.com/bakerbass/GuitarChops/internal/audio/file"
	"github.com/bakerbass/GuitarChops/internal/dsp"
	"github.com/bakerbass/GuitarChops/internal/segment"
)

const (
	onsetFrameSize = 2048
	onsetHopSize   = 512
)

// OnsetDetector locates note attacks as peaks in a spectral-flux envelope.
// Each onset is an instant event (Start == End); the aggregator later turns
// deduplicated onsets into inter-onset spans.
type OnsetDetector struct {
	peakDelta     float64
	minSeparation float64
	highPassHz    float64
}

// NewOnsetDetector creates an onset detector. peakDelta is the envelope peak
// threshold in standard deviations above the mean; minSeparation is the
// minimum time in seconds between distinct onsets; highPassHz > 0 enables a
// rumble-rejecting high-pass pre-filter.
func NewOnsetDetector(peakDelta, minSeparation, highPassHz float64) *OnsetDetector {
	return &OnsetDetector{
		peakDelta:     peakDelta,
		minSeparation: minSeparation,
		highPassHz:    highPassHz,
	}
}

// Type identifies the detector.
func (d *OnsetDetector) Type() segment.DetectorType {
	return segment.DetectorOnset
}

// Detect returns one instant event per detected attack, with the peak's
// normalized prominence as confidence.
func (d *OnsetDetector) Detect(chunk file.Chunk) ([]segment.CandidateEvent, error) {
	samples := chunk.Data
	if d.highPassHz > 0 {
		// Filter a copy; the chunk is shared with the other detectors.
		samples = make([]float32, len(chunk.Data))
		copy(samples, chunk.Data)
		dsp.NewHighPass(float64(chunk.SampleRate), d.highPassHz, 0.707).Apply(samples)
	}

	env := dsp.OnsetStrength(samples, onsetFrameSize, onsetHopSize)
	if len(env) == 0 {
		return nil, nil
	}

	hopSeconds := float64(onsetHopSize) / float64(chunk.SampleRate)
	sepHops := int(d.minSeparation / hopSeconds)
	if sepHops < 1 {
		sepHops = 1
	}

	peaks, prominence := dsp.PickPeaks(env, d.peakDelta, sepHops)

	events := make([]segment.CandidateEvent, 0, len(peaks))
	for i, p := range peaks {
		// Flux index p measures the rise into frame p; the attack sits at
		// that frame's start.
		t := float64(p) * hopSeconds
		events = append(events, segment.CandidateEvent{
			ChunkIndex: chunk.Index,
			Start:      t,
			End:        t,
			Type:       segment.DetectorOnset,
			Confidence: prominence[i],
		})
	}
	return events, nil
}
