package detectors

import (
	"github.com/bakerbass/GuitarChops/internal/audio/file"
	"github.com/bakerbass/GuitarChops/internal/dsp"
	"github.com/bakerbass/GuitarChops/internal/segment"
)

const (
	silenceFrameSize = 2048
	silenceHopSize   = 512
)

// SilenceDetector finds sustained quiet regions. A frame is silent when its
// RMS energy falls below the threshold; consecutive silent frames form a run,
// and runs at least minDuration long become candidate events.
type SilenceDetector struct {
	thresholdDB float64
	minDuration float64
}

// NewSilenceDetector creates a silence detector with the given dBFS threshold
// and minimum run duration in seconds.
func NewSilenceDetector(thresholdDB, minDuration float64) *SilenceDetector {
	return &SilenceDetector{
		thresholdDB: thresholdDB,
		minDuration: minDuration,
	}
}

// Type identifies the detector.
func (d *SilenceDetector) Type() segment.DetectorType {
	return segment.DetectorSilence
}

// Detect returns one event per qualifying silent run. A run still open at the
// chunk's end is emitted as-is; the aggregator merges it with the continuation
// seen by the next overlapping window.
func (d *SilenceDetector) Detect(chunk file.Chunk) ([]segment.CandidateEvent, error) {
	frames := dsp.RMSFrames(chunk.Data, silenceFrameSize, silenceHopSize)
	if len(frames) == 0 {
		return nil, nil
	}

	hopSeconds := float64(silenceHopSize) / float64(chunk.SampleRate)
	frameSeconds := float64(silenceFrameSize) / float64(chunk.SampleRate)

	var events []segment.CandidateEvent
	runStart := -1
	runSum := 0.0

	flush := func(endFrame int) {
		if runStart < 0 {
			return
		}
		start := float64(runStart) * hopSeconds
		end := float64(endFrame-1)*hopSeconds + frameSeconds
		if end-start >= d.minDuration {
			// Confidence scales with how far below threshold the run's
			// average level sits, saturating 20 dB down.
			avgDB := runSum / float64(endFrame-runStart)
			confidence := (d.thresholdDB - avgDB) / 20.0
			if confidence > 1 {
				confidence = 1
			} else if confidence < 0 {
				confidence = 0
			}
			events = append(events, segment.CandidateEvent{
				ChunkIndex: chunk.Index,
				Start:      start,
				End:        end,
				Type:       segment.DetectorSilence,
				Confidence: confidence,
			})
		}
		runStart = -1
		runSum = 0
	}

	for i, rms := range frames {
		if db := dsp.AmplitudeToDB(rms); db < d.thresholdDB {
			if runStart < 0 {
				runStart = i
			}
			runSum += db
			continue
		}
		flush(i)
	}
	flush(len(frames))

	return events, nil
}
