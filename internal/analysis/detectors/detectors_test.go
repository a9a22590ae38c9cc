package detectors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bakerbass/GuitarChops/internal/conf"
	"github.com/bakerbass/GuitarChops/internal/segment"
)

func detectorTypes(detectors []Detector) []segment.DetectorType {
	types := make([]segment.DetectorType, len(detectors))
	for i, d := range detectors {
		types[i] = d.Type()
	}
	return types
}

func TestForSettings_AllEnabled(t *testing.T) {
	settings := &conf.Default().Analysis

	got := ForSettings(settings)

	assert.Equal(t, []segment.DetectorType{
		segment.DetectorSilence,
		segment.DetectorOnset,
		segment.DetectorKey,
		segment.DetectorTempo,
	}, detectorTypes(got))
}

func TestForSettings_Subset(t *testing.T) {
	settings := &conf.Default().Analysis
	settings.Detectors.Silence = false
	settings.Detectors.Key = false

	got := ForSettings(settings)

	assert.Equal(t, []segment.DetectorType{
		segment.DetectorOnset,
		segment.DetectorTempo,
	}, detectorTypes(got))
}

func TestForTypes_StableOrderAndUnknownIgnored(t *testing.T) {
	settings := &conf.Default().Analysis

	// Request order does not matter; unknown types are dropped.
	got := ForTypes(settings, []segment.DetectorType{
		segment.DetectorTempo,
		"bogus",
		segment.DetectorSilence,
	})

	assert.Equal(t, []segment.DetectorType{
		segment.DetectorSilence,
		segment.DetectorTempo,
	}, detectorTypes(got))
}

func TestForTypes_Empty(t *testing.T) {
	settings := &conf.Default().Analysis
	assert.Empty(t, ForTypes(settings, nil))
}

func TestDetectorError(t *testing.T) {
	inner := assert.AnError
	err := &DetectorError{Detector: segment.DetectorKey, ChunkIndex: 3, Err: inner}

	assert.Contains(t, err.Error(), "key")
	assert.Contains(t, err.Error(), "chunk 3")
	require.ErrorIs(t, err, inner)
}
