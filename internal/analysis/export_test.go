package analysis

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bakerbass/GuitarChops/internal/audio/file"
	"github.com/bakerbass/GuitarChops/internal/conf"
	"github.com/bakerbass/GuitarChops/internal/segment"
)

func exportTestSet() segment.Set {
	return segment.Set{
		segment.DetectorOnset: {
			{ID: "onset_1", Type: segment.DetectorOnset, Start: 2.0, End: 4.5, Duration: 2.5, Confidence: 0.9},
			{ID: "onset_2", Type: segment.DetectorOnset, Start: 4.5, End: 8.0, Duration: 3.5, Confidence: 0.7},
		},
		segment.DetectorKey: {
			{ID: "key_1", Type: segment.DetectorKey, Start: 0, End: 10, Duration: 10, Key: "C major", Confidence: 0.85},
		},
		segment.DetectorTempo: {
			{ID: "tempo_1", Type: segment.DetectorTempo, Start: 0, End: 10, Duration: 10, Tempo: 120, Confidence: 0.8},
		},
	}
}

func newTestExporter(t *testing.T) (*Exporter, string) {
	t.Helper()
	settings := conf.Default()
	settings.Export.Type = "wav"
	return NewExporter(settings, file.NewManager("", false)), writeSessionWAV(t, renderToneClip(10))
}

// renderToneClip returns a quiet 220 Hz tone of the given length in seconds.
func renderToneClip(seconds int) []float32 {
	out := make([]float32, seconds*e2eRate)
	for i := range out {
		out[i] = float32(0.3 * math.Sin(2*math.Pi*220*float64(i)/e2eRate))
	}
	return out
}

func TestExporter_SliceBoundaries(t *testing.T) {
	exporter, source := newTestExporter(t)
	outDir := t.TempDir()

	results := exporter.ExportSegments(context.Background(), source, exportTestSet(), []string{"onset_1"}, outDir)

	require.Len(t, results, 1)
	res := results[0]
	require.Empty(t, res.Error)
	assert.Equal(t, "session_onset_1.wav", res.Filename)
	assert.Equal(t, filepath.Join(outDir, res.Filename), res.Path)

	// The artifact holds exactly the segment's sample range.
	r := file.NewWAVReader(false)
	require.NoError(t, r.Open(res.Path))
	defer r.Close()
	info, err := r.GetInfo()
	require.NoError(t, err)

	want := int(math.Round(2.5 * e2eRate))
	assert.Equal(t, want, info.TotalSamples)
	assert.Equal(t, e2eRate, info.SampleRate)
}

func TestExporter_ContentMatchesSource(t *testing.T) {
	exporter, source := newTestExporter(t)
	outDir := t.TempDir()

	results := exporter.ExportSegments(context.Background(), source, exportTestSet(), []string{"onset_1"}, outDir)
	require.Len(t, results, 1)
	require.Empty(t, results[0].Error)

	mgr := file.NewManager("", false)
	exported, err := mgr.ReadRange(results[0].Path, 0, e2eRate)
	require.NoError(t, err)
	original, err := mgr.ReadRange(source, 2*e2eRate, e2eRate)
	require.NoError(t, err)

	for i := 0; i < len(exported); i += 1000 {
		assert.InDelta(t, original[i], exported[i], 1e-3)
	}
}

func TestExporter_EmbedsSegmentTags(t *testing.T) {
	exporter, source := newTestExporter(t)
	outDir := t.TempDir()

	results := exporter.ExportSegments(context.Background(), source, exportTestSet(), []string{"key_1", "tempo_1"}, outDir)
	require.Len(t, results, 2)

	f, err := os.Open(results[0].Path)
	require.NoError(t, err)
	defer f.Close()
	dec := wav.NewDecoder(f)
	dec.ReadMetadata()
	require.NotNil(t, dec.Metadata)
	assert.Equal(t, "key_1", dec.Metadata.Title)
	assert.Equal(t, "key", dec.Metadata.Genre)
	assert.Contains(t, dec.Metadata.Comments, "key C major")

	f2, err := os.Open(results[1].Path)
	require.NoError(t, err)
	defer f2.Close()
	dec2 := wav.NewDecoder(f2)
	dec2.ReadMetadata()
	require.NotNil(t, dec2.Metadata)
	assert.Contains(t, dec2.Metadata.Comments, "120 BPM")
	assert.Contains(t, dec2.Metadata.Comments, "confidence 0.80")
}

func TestExporter_UnknownSegmentIsolated(t *testing.T) {
	exporter, source := newTestExporter(t)
	outDir := t.TempDir()

	results := exporter.ExportSegments(context.Background(), source, exportTestSet(),
		[]string{"onset_1", "bogus_9", "onset_2"}, outDir)

	require.Len(t, results, 3)
	assert.Empty(t, results[0].Error)
	assert.Contains(t, results[1].Error, "unknown segment")
	assert.Contains(t, results[1].Error, "bogus_9")
	assert.Empty(t, results[1].Path)
	assert.Empty(t, results[2].Error)

	// Both valid artifacts were written despite the failure between them.
	_, err := os.Stat(results[0].Path)
	assert.NoError(t, err)
	_, err = os.Stat(results[2].Path)
	assert.NoError(t, err)
}

func TestExporter_DegenerateSegment(t *testing.T) {
	exporter, source := newTestExporter(t)
	set := segment.Set{
		segment.DetectorOnset: {
			{ID: "onset_1", Type: segment.DetectorOnset, Start: 3.0, End: 3.0, Confidence: 0.5},
		},
	}

	results := exporter.ExportSegments(context.Background(), source, set, []string{"onset_1"}, t.TempDir())

	require.Len(t, results, 1)
	assert.Contains(t, results[0].Error, "no samples")
}

func TestSegmentComment(t *testing.T) {
	seg := segment.Segment{
		ID: "key_1", Type: segment.DetectorKey,
		Start: 12.0, End: 18.5, Key: "C major", Tempo: 120, Confidence: 0.9,
	}
	assert.Equal(t, "12.00s-18.50s, key C major, 120 BPM, confidence 0.90", segmentComment(seg))

	bare := segment.Segment{ID: "silence_1", Type: segment.DetectorSilence, Start: 0, End: 5, Confidence: 0.95}
	assert.Equal(t, "0.00s-5.00s, confidence 0.95", segmentComment(bare))
}
