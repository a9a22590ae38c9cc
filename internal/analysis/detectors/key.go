package detectors

import (
	"github.com/bakerbass/GuitarChops/internal/audio/file"
	"github.com/bakerbass/GuitarChops/internal/dsp"
	"github.com/bakerbass/GuitarChops/internal/segment"
)

// KeyDetector estimates the musical key of each chunk from its chroma
// distribution. One event spans the whole chunk; the aggregator coalesces
// consecutive chunks that agree into a single key region.
type KeyDetector struct{}

// NewKeyDetector creates a key detector.
func NewKeyDetector() *KeyDetector {
	return &KeyDetector{}
}

// Type identifies the detector.
func (d *KeyDetector) Type() segment.DetectorType {
	return segment.DetectorKey
}

// Detect returns a single chunk-spanning event with the best-matching key, or
// nothing when the chunk carries no tonal content.
func (d *KeyDetector) Detect(chunk file.Chunk) ([]segment.CandidateEvent, error) {
	chroma := dsp.Chroma(chunk.Data, chunk.SampleRate)

	total := 0.0
	for _, c := range chroma {
		total += c
	}
	if total == 0 {
		// Digital silence has no key.
		return nil, nil
	}

	key, confidence := dsp.EstimateKey(chroma)
	if key == "" {
		return nil, nil
	}

	return []segment.CandidateEvent{{
		ChunkIndex: chunk.Index,
		Start:      0,
		End:        float64(len(chunk.Data)) / float64(chunk.SampleRate),
		Type:       segment.DetectorKey,
		Key:        key,
		Confidence: confidence,
	}}, nil
}
