package dsp

import "math"

// BiquadFilter is a second-order IIR section with coefficients from the
// audio EQ cookbook. State carries across calls, so one instance filters one
// continuous stream.
type BiquadFilter struct {
	b0a0, b1a0, b2a0, a1a0, a2a0 float64
	in1, in2, out1, out2         float64
}

// NewHighPass returns a high-pass biquad at the given cutoff frequency.
func NewHighPass(sampleRate, frequency, q float64) *BiquadFilter {
	w0 := 2.0 * math.Pi * frequency / sampleRate
	alpha := math.Sin(w0) / (2.0 * q)

	a0 := 1.0 + alpha
	a1 := -2.0 * math.Cos(w0)
	a2 := 1.0 - alpha
	b0 := (1.0 + math.Cos(w0)) / 2.0
	b1 := -1.0 * (1.0 + math.Cos(w0))
	b2 := (1.0 + math.Cos(w0)) / 2.0

	return &BiquadFilter{
		b0a0: b0 / a0,
		b1a0: b1 / a0,
		b2a0: b2 / a0,
		a1a0: a1 / a0,
		a2a0: a2 / a0,
	}
}

// Apply filters the samples in place.
func (f *BiquadFilter) Apply(samples []float32) {
	for i := range samples {
		in := float64(samples[i])
		out := f.b0a0*in + f.b1a0*f.in1 + f.b2a0*f.in2 -
			f.a1a0*f.out1 - f.a2a0*f.out2

		f.in2 = f.in1
		f.in1 = in
		f.out2 = f.out1
		f.out1 = out

		samples[i] = float32(out)
	}
}
