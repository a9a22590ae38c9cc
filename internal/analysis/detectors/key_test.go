package detectors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bakerbass/GuitarChops/internal/segment"
)

func TestKeyDetector_CMajorTriad(t *testing.T) {
	samples := make([]float32, 5*testRate)
	tone(samples, 0, 5, 261.63, 0.3) // C4
	tone(samples, 0, 5, 329.63, 0.3) // E4
	tone(samples, 0, 5, 392.00, 0.3) // G4

	d := NewKeyDetector()
	events, err := d.Detect(makeChunk(samples, 2))
	require.NoError(t, err)

	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, segment.DetectorKey, ev.Type)
	assert.Equal(t, "C major", ev.Key)
	assert.Equal(t, 2, ev.ChunkIndex)
	assert.Greater(t, ev.Confidence, 0.5)

	// One event spanning the whole chunk.
	assert.Equal(t, 0.0, ev.Start)
	assert.InDelta(t, 5.0, ev.End, 1e-9)
}

func TestKeyDetector_SilentChunkHasNoKey(t *testing.T) {
	d := NewKeyDetector()
	events, err := d.Detect(makeChunk(make([]float32, 5*testRate), 0))
	require.NoError(t, err)
	assert.Nil(t, events)
}

func TestKeyDetector_ChunkTooShort(t *testing.T) {
	d := NewKeyDetector()
	events, err := d.Detect(makeChunk(make([]float32, 100), 0))
	require.NoError(t, err)
	assert.Nil(t, events)
}
