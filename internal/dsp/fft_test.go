package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFFT_SinePeakBin(t *testing.T) {
	const (
		n          = 1024
		sampleRate = 1024.0
		freq       = 64.0
	)

	input := make([]float64, n)
	for i := range input {
		input[i] = math.Sin(2 * math.Pi * freq * float64(i) / sampleRate)
	}

	mags := Magnitudes(FFT(input))
	require.Len(t, mags, n/2+1)

	peak := 0
	for i := range mags {
		if mags[i] > mags[peak] {
			peak = i
		}
	}

	// Bin k corresponds to k*sampleRate/n Hz; the sine should land on bin 64.
	assert.Equal(t, 64, peak)
}

func TestFFT_DCOnly(t *testing.T) {
	input := []float64{1, 1, 1, 1, 1, 1, 1, 1}
	mags := Magnitudes(FFT(input))

	assert.InDelta(t, 8.0, mags[0], 1e-9)
	for i := 1; i < len(mags); i++ {
		assert.InDelta(t, 0.0, mags[i], 1e-9)
	}
}

func TestNextPowerOfTwo(t *testing.T) {
	assert.Equal(t, 1, NextPowerOfTwo(1))
	assert.Equal(t, 2, NextPowerOfTwo(2))
	assert.Equal(t, 4, NextPowerOfTwo(3))
	assert.Equal(t, 1024, NextPowerOfTwo(1000))
	assert.Equal(t, 1024, NextPowerOfTwo(1024))
	assert.Equal(t, 2048, NextPowerOfTwo(1025))
}

func TestApplyHannWindow(t *testing.T) {
	buf := []float64{1, 1, 1, 1, 1, 1, 1, 1}
	ApplyHannWindow(buf)

	// Hann endpoints are zero, the window is symmetric.
	assert.InDelta(t, 0.0, buf[0], 1e-9)
	for i := 0; i < len(buf)/2; i++ {
		assert.InDelta(t, buf[i], buf[len(buf)-1-i], 1e-9)
	}
}
