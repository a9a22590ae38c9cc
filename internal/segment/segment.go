// Package segment defines the data model shared by the detection pipeline:
// file fingerprints, chunk-local candidate events and the final merged segments.
package segment

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// DetectorType identifies one of the independent detection criteria.
type DetectorType string

const (
	DetectorSilence DetectorType = "silence"
	DetectorOnset   DetectorType = "onset"
	DetectorKey     DetectorType = "key"
	DetectorTempo   DetectorType = "tempo"
)

// AllDetectorTypes lists every detector in a stable order.
var AllDetectorTypes = []DetectorType{DetectorSilence, DetectorOnset, DetectorKey, DetectorTempo}

// Valid reports whether t is a known detector type.
func (t DetectorType) Valid() bool {
	switch t {
	case DetectorSilence, DetectorOnset, DetectorKey, DetectorTempo:
		return true
	}
	return false
}

// Fingerprint is the content-derived identity of an audio file. It keys the
// feature cache and associates an uploaded file with its analysis results.
type Fingerprint string

// ComputeFingerprint hashes the file content together with the sample rate and
// channel count. Two files with identical bytes but different decode parameters
// never share cache entries.
func ComputeFingerprint(path string, sampleRate, channels int) (Fingerprint, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file for fingerprinting: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash file content: %w", err)
	}

	var params [8]byte
	binary.LittleEndian.PutUint32(params[0:4], uint32(sampleRate))
	binary.LittleEndian.PutUint32(params[4:8], uint32(channels))
	h.Write(params[:])

	return Fingerprint(fmt.Sprintf("%x", h.Sum(nil))), nil
}

// CandidateEvent is a chunk-local, unmerged detection produced by one analyzer.
// Start and End are seconds relative to the chunk's first sample. Onset events
// are instants (Start == End).
type CandidateEvent struct {
	ChunkIndex int          `json:"chunk_index"`
	Start      float64      `json:"start"`
	End        float64      `json:"end"`
	Type       DetectorType `json:"type"`
	Key        string       `json:"key,omitempty"`
	BPM        float64      `json:"bpm,omitempty"`
	Confidence float64      `json:"confidence"`
}

// Segment is a final, globally time-ordered region of one detection type.
// Segments of the same type are pairwise non-overlapping and sorted by Start.
// Immutable after aggregation.
type Segment struct {
	ID         string       `json:"id"`
	Type       DetectorType `json:"type"`
	Start      float64      `json:"start"`
	End        float64      `json:"end"`
	Duration   float64      `json:"duration"`
	Key        string       `json:"key,omitempty"`
	Tempo      float64      `json:"tempo,omitempty"`
	Confidence float64      `json:"confidence"`
}

// Set groups the aggregated segments of one analysis run by detector type.
type Set map[DetectorType][]Segment

// Find returns the segment with the given id, searching every type.
func (s Set) Find(id string) (Segment, bool) {
	for _, segs := range s {
		for i := range segs {
			if segs[i].ID == id {
				return segs[i], true
			}
		}
	}
	return Segment{}, false
}

// Total returns the number of segments across all types.
func (s Set) Total() int {
	n := 0
	for _, segs := range s {
		n += len(segs)
	}
	return n
}
