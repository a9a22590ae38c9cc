package detectors

import (
	"github.com/bakerbass/GuitarChops/internal/audio/file"
	"github.com/bakerbass/GuitarChops/internal/dsp"
	"github.com/bakerbass/GuitarChops/internal/segment"
)

// TempoDetector estimates beats-per-minute over short sub-windows inside each
// chunk, so a tempo change in the middle of a window is localized rather than
// smeared across the whole chunk. Each sub-window advances by hop seconds and
// its event covers the hop it is responsible for.
type TempoDetector struct {
	window        float64
	hop           float64
	minBPM        float64
	maxBPM        float64
	minConfidence float64
}

// NewTempoDetector creates a tempo detector with the given sub-window size,
// hop, BPM search range and confidence floor.
func NewTempoDetector(window, hop, minBPM, maxBPM, minConfidence float64) *TempoDetector {
	return &TempoDetector{
		window:        window,
		hop:           hop,
		minBPM:        minBPM,
		maxBPM:        maxBPM,
		minConfidence: minConfidence,
	}
}

// Type identifies the detector.
func (d *TempoDetector) Type() segment.DetectorType {
	return segment.DetectorTempo
}

// Detect returns one event per sub-window that produced a usable estimate.
// Windows without periodic energy (silence, sustained pads) yield nothing.
func (d *TempoDetector) Detect(chunk file.Chunk) ([]segment.CandidateEvent, error) {
	rate := chunk.SampleRate
	windowSamples := int(d.window * float64(rate))
	hopSamples := int(d.hop * float64(rate))
	if windowSamples <= 0 || hopSamples <= 0 || len(chunk.Data) == 0 {
		return nil, nil
	}

	var events []segment.CandidateEvent
	for start := 0; start < len(chunk.Data); start += hopSamples {
		end := start + windowSamples
		if end > len(chunk.Data) {
			end = len(chunk.Data)
		}
		// A trailing stub shorter than half the window cannot hold enough
		// beat periods to estimate from.
		if end-start < windowSamples/2 {
			break
		}

		bpm, confidence := dsp.EstimateTempo(chunk.Data[start:end], rate, d.minBPM, d.maxBPM)
		if bpm <= 0 || confidence < d.minConfidence {
			continue
		}

		// The estimate is attributed to the hop this window fronts, so
		// consecutive events tile the chunk without overlap.
		evStart := float64(start) / float64(rate)
		evEnd := float64(start+hopSamples) / float64(rate)
		if chunkEnd := float64(len(chunk.Data)) / float64(rate); evEnd > chunkEnd {
			evEnd = chunkEnd
		}

		events = append(events, segment.CandidateEvent{
			ChunkIndex: chunk.Index,
			Start:      evStart,
			End:        evEnd,
			Type:       segment.DetectorTempo,
			BPM:        bpm,
			Confidence: confidence,
		})
	}
	return events, nil
}
