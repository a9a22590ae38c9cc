package aggregate

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bakerbass/GuitarChops/internal/conf"
	"github.com/bakerbass/GuitarChops/internal/segment"
)

// Default window: 30s chunks, 5s overlap, so chunk N starts at N*25s.

func testSettings() *conf.AnalysisSettings {
	return &conf.Default().Analysis
}

func silenceEv(chunk int, start, end, confidence float64) segment.CandidateEvent {
	return segment.CandidateEvent{
		ChunkIndex: chunk, Start: start, End: end,
		Type: segment.DetectorSilence, Confidence: confidence,
	}
}

func onsetEv(chunk int, at, confidence float64) segment.CandidateEvent {
	return segment.CandidateEvent{
		ChunkIndex: chunk, Start: at, End: at,
		Type: segment.DetectorOnset, Confidence: confidence,
	}
}

func keyEv(chunk int, start, end float64, key string, confidence float64) segment.CandidateEvent {
	return segment.CandidateEvent{
		ChunkIndex: chunk, Start: start, End: end,
		Type: segment.DetectorKey, Key: key, Confidence: confidence,
	}
}

func tempoEv(chunk int, start, end, bpm, confidence float64) segment.CandidateEvent {
	return segment.CandidateEvent{
		ChunkIndex: chunk, Start: start, End: end,
		Type: segment.DetectorTempo, BPM: bpm, Confidence: confidence,
	}
}

func TestAggregator_EmptyRun(t *testing.T) {
	set := New(testSettings(), 90).Finalize()

	require.NotNil(t, set)
	assert.Equal(t, 0, set.Total())
}

func TestAggregator_TranslatesChunkLocalTimes(t *testing.T) {
	a := New(testSettings(), 90)
	// Chunk 2 starts at 50s; a local [3, 7) run sits at [53, 57) absolute.
	a.Add(silenceEv(2, 3, 7, 0.8))

	set := a.Finalize()

	segs := set[segment.DetectorSilence]
	require.Len(t, segs, 1)
	assert.InDelta(t, 53.0, segs[0].Start, 1e-9)
	assert.InDelta(t, 57.0, segs[0].End, 1e-9)
	assert.InDelta(t, 4.0, segs[0].Duration, 1e-9)
}

func TestAggregator_SilenceMergedAcrossWindowBoundary(t *testing.T) {
	a := New(testSettings(), 90)
	// The same quiet region seen by two overlapping windows: chunk 0 sees it
	// run into its end at 30s, chunk 1 sees the full extent.
	a.Add(silenceEv(0, 27, 30, 0.7))
	a.Add(silenceEv(1, 2, 7, 0.9))

	set := a.Finalize()

	segs := set[segment.DetectorSilence]
	require.Len(t, segs, 1)
	assert.InDelta(t, 27.0, segs[0].Start, 1e-9)
	assert.InDelta(t, 32.0, segs[0].End, 1e-9)
	assert.Equal(t, 0.9, segs[0].Confidence)
}

func TestAggregator_DistinctSilenceRunsKept(t *testing.T) {
	a := New(testSettings(), 90)
	a.Add(silenceEv(0, 2, 5, 0.8))
	a.Add(silenceEv(0, 10, 14, 0.8))

	set := a.Finalize()

	segs := set[segment.DetectorSilence]
	require.Len(t, segs, 2)
	assert.Equal(t, "silence_1", segs[0].ID)
	assert.Equal(t, "silence_2", segs[1].ID)
}

func TestAggregator_BoundaryOnsetDeduplicated(t *testing.T) {
	a := New(testSettings(), 90)
	// One physical attack at 26.0s lands in both windows covering it.
	a.Add(onsetEv(0, 26.0, 0.6))
	a.Add(onsetEv(1, 1.0, 0.8)) // chunk 1 starts at 25s
	a.Add(onsetEv(0, 10.0, 0.9))

	set := a.Finalize()

	segs := set[segment.DetectorOnset]
	require.Len(t, segs, 2)
	assert.InDelta(t, 10.0, segs[0].Start, 1e-9)
	assert.InDelta(t, 26.0, segs[0].End, 1e-9)
	assert.InDelta(t, 26.0, segs[1].Start, 1e-9)
	// The duplicate keeps the higher of the two confidences.
	assert.Equal(t, 0.8, segs[1].Confidence)
	// The last onset runs to the end of the file.
	assert.InDelta(t, 90.0, segs[1].End, 1e-9)
}

func TestAggregator_OnsetSpanBelowMinimumDropped(t *testing.T) {
	a := New(testSettings(), 90)
	a.Add(onsetEv(0, 10.0, 0.9))
	a.Add(onsetEv(0, 10.08, 0.7)) // past epsilon, but the span is 0.08s

	set := a.Finalize()

	segs := set[segment.DetectorOnset]
	require.Len(t, segs, 1)
	assert.InDelta(t, 10.08, segs[0].Start, 1e-9)
	assert.InDelta(t, 90.0, segs[0].End, 1e-9)
}

func TestAggregator_KeyRegionsCoalesced(t *testing.T) {
	a := New(testSettings(), 90)
	a.Add(keyEv(0, 0, 30, "A minor", 0.7))
	a.Add(keyEv(1, 0, 30, "A minor", 0.85))
	a.Add(keyEv(2, 0, 30, "A minor", 0.6))

	set := a.Finalize()

	segs := set[segment.DetectorKey]
	require.Len(t, segs, 1)
	assert.InDelta(t, 0.0, segs[0].Start, 1e-9)
	assert.InDelta(t, 80.0, segs[0].End, 1e-9)
	assert.Equal(t, "A minor", segs[0].Key)
	// A long stable region keeps its best evidence.
	assert.Equal(t, 0.85, segs[0].Confidence)
}

func TestAggregator_KeyChangeSplitsRegions(t *testing.T) {
	a := New(testSettings(), 55)
	a.Add(keyEv(0, 0, 30, "C major", 0.8))
	a.Add(keyEv(1, 0, 30, "A minor", 0.8))

	set := a.Finalize()

	segs := set[segment.DetectorKey]
	require.Len(t, segs, 2)
	assert.Equal(t, "C major", segs[0].Key)
	assert.Equal(t, "A minor", segs[1].Key)
	// The residual window overlap truncates the later region's start.
	assert.InDelta(t, 30.0, segs[1].Start, 1e-9)
	assert.InDelta(t, 55.0, segs[1].End, 1e-9)
}

func TestAggregator_TempoCoalescedByRoundedBPM(t *testing.T) {
	a := New(testSettings(), 90)
	a.Add(tempoEv(0, 0, 15, 119.6, 0.7))
	a.Add(tempoEv(0, 15, 30, 120.3, 0.8))

	set := a.Finalize()

	segs := set[segment.DetectorTempo]
	require.Len(t, segs, 1)
	assert.Equal(t, 120.0, segs[0].Tempo)
	assert.InDelta(t, 0.0, segs[0].Start, 1e-9)
	assert.InDelta(t, 30.0, segs[0].End, 1e-9)
}

func TestAggregator_TempoChangeSplits(t *testing.T) {
	a := New(testSettings(), 90)
	a.Add(tempoEv(0, 0, 15, 120, 0.8))
	a.Add(tempoEv(0, 15, 30, 140, 0.8))

	set := a.Finalize()

	segs := set[segment.DetectorTempo]
	require.Len(t, segs, 2)
	assert.Equal(t, 120.0, segs[0].Tempo)
	assert.Equal(t, 140.0, segs[1].Tempo)
}

func TestAggregator_OverlapDedupKeepsStrongerValue(t *testing.T) {
	a := New(testSettings(), 90)
	// Nearly identical spans from overlapping windows disagree on the value;
	// the higher-confidence reading wins, the spans union.
	a.Add(tempoEv(0, 10, 20, 100, 0.5))
	a.Add(tempoEv(0, 11, 19, 130, 0.9))

	set := a.Finalize()

	segs := set[segment.DetectorTempo]
	require.Len(t, segs, 1)
	assert.Equal(t, 130.0, segs[0].Tempo)
	assert.Equal(t, 0.9, segs[0].Confidence)
	assert.InDelta(t, 10.0, segs[0].Start, 1e-9)
	assert.InDelta(t, 20.0, segs[0].End, 1e-9)
}

func TestAggregator_ClampsToFileDuration(t *testing.T) {
	a := New(testSettings(), 60)
	// Chunk 2 starts at 50s; a full-window key event would claim [50, 80).
	a.Add(keyEv(2, 0, 30, "E minor", 0.8))

	set := a.Finalize()

	segs := set[segment.DetectorKey]
	require.Len(t, segs, 1)
	assert.InDelta(t, 60.0, segs[0].End, 1e-9)
}

func TestAggregator_InvariantsUnderRandomInput(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 20; trial++ {
		a := New(testSettings(), 90)
		for i := 0; i < 50; i++ {
			chunk := rng.Intn(4)
			start := rng.Float64() * 28
			end := start + 0.2 + rng.Float64()*5
			a.Add(silenceEv(chunk, start, end, rng.Float64()))
		}

		segs := a.Finalize()[segment.DetectorSilence]

		for i, seg := range segs {
			assert.Equal(t, fmt.Sprintf("silence_%d", i+1), seg.ID)
			assert.Greater(t, seg.End, seg.Start)
			assert.InDelta(t, seg.End-seg.Start, seg.Duration, 1e-9)
			assert.LessOrEqual(t, seg.End, 90.0)
			if i > 0 {
				// Sorted and pairwise non-overlapping.
				assert.GreaterOrEqual(t, seg.Start, segs[i-1].End)
			}
		}
	}
}
