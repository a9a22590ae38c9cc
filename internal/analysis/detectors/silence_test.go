package detectors

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bakerbass/GuitarChops/internal/audio/file"
	"github.com/bakerbass/GuitarChops/internal/segment"
)

const testRate = 44100

func makeChunk(samples []float32, index int) file.Chunk {
	return file.Chunk{
		Index:       index,
		Data:        samples,
		StartSample: 0,
		EndSample:   len(samples),
		SampleRate:  testRate,
	}
}

// tone writes a sine at the given amplitude into out[from:to].
func tone(out []float32, from, to float64, freq, amplitude float64) {
	start := int(from * testRate)
	end := int(to * testRate)
	if end > len(out) {
		end = len(out)
	}
	for i := start; i < end; i++ {
		out[i] += float32(amplitude * math.Sin(2*math.Pi*freq*float64(i)/testRate))
	}
}

func TestSilenceDetector_GapBetweenNotes(t *testing.T) {
	samples := make([]float32, 10*testRate)
	tone(samples, 0, 3, 220, 0.5)
	tone(samples, 6, 10, 220, 0.5)

	d := NewSilenceDetector(-40, 0.5)
	events, err := d.Detect(makeChunk(samples, 0))
	require.NoError(t, err)

	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, segment.DetectorSilence, ev.Type)
	assert.InDelta(t, 3.0, ev.Start, 0.3)
	assert.InDelta(t, 6.0, ev.End, 0.3)
	// Digital silence sits far below any threshold.
	assert.InDelta(t, 1.0, ev.Confidence, 1e-9)
}

func TestSilenceDetector_ShortGapIgnored(t *testing.T) {
	samples := make([]float32, 5*testRate)
	tone(samples, 0, 2.0, 220, 0.5)
	tone(samples, 2.2, 5, 220, 0.5)

	d := NewSilenceDetector(-40, 0.5)
	events, err := d.Detect(makeChunk(samples, 0))
	require.NoError(t, err)

	assert.Empty(t, events)
}

func TestSilenceDetector_OpenRunAtChunkEnd(t *testing.T) {
	// Silence running into the chunk boundary is still reported; the
	// aggregator merges it with the next window's continuation.
	samples := make([]float32, 10*testRate)
	tone(samples, 0, 7, 220, 0.5)

	d := NewSilenceDetector(-40, 0.5)
	events, err := d.Detect(makeChunk(samples, 0))
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.InDelta(t, 7.0, events[0].Start, 0.3)
	assert.InDelta(t, 10.0, events[0].End, 0.1)
}

func TestSilenceDetector_QuietButNotSilent(t *testing.T) {
	// -20 dBFS is audible; nothing should qualify against a -40 dB threshold.
	samples := make([]float32, 5*testRate)
	tone(samples, 0, 5, 220, 0.1)

	d := NewSilenceDetector(-40, 0.5)
	events, err := d.Detect(makeChunk(samples, 0))
	require.NoError(t, err)

	assert.Empty(t, events)
}

func TestSilenceDetector_ConfidenceScalesWithDepth(t *testing.T) {
	// A run hovering just below threshold earns less confidence than one far
	// below it.
	quiet := make([]float32, 5*testRate)
	tone(quiet, 0, 5, 220, 0.008) // RMS around -45 dBFS

	d := NewSilenceDetector(-40, 0.5)
	events, err := d.Detect(makeChunk(quiet, 0))
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.Greater(t, events[0].Confidence, 0.0)
	assert.Less(t, events[0].Confidence, 0.5)
}

func TestSilenceDetector_ChunkTooShortForFrames(t *testing.T) {
	d := NewSilenceDetector(-40, 0.5)
	events, err := d.Detect(makeChunk(make([]float32, 100), 0))
	require.NoError(t, err)
	assert.Nil(t, events)
}

func TestSilenceDetector_Type(t *testing.T) {
	assert.Equal(t, segment.DetectorSilence, NewSilenceDetector(-40, 0.5).Type())
}
