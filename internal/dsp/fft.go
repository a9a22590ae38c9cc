// Package dsp provides the numeric primitives used by the detectors: FFT,
// windowing, short-time energy, onset strength, pitch-class chroma and
// autocorrelation tempo estimation.
package dsp

import "math"

// FFT computes the discrete Fourier transform of the input using the
// Cooley-Tukey radix-2 algorithm. The input length must be a power of two.
func FFT(input []float64) []complex128 {
	buf := make([]complex128, len(input))
	for i, v := range input {
		buf[i] = complex(v, 0)
	}
	return recursiveFFT(buf)
}

func recursiveFFT(buf []complex128) []complex128 {
	n := len(buf)
	if n <= 1 {
		return buf
	}

	even := make([]complex128, n/2)
	odd := make([]complex128, n/2)
	for i := 0; i < n/2; i++ {
		even[i] = buf[2*i]
		odd[i] = buf[2*i+1]
	}

	even = recursiveFFT(even)
	odd = recursiveFFT(odd)

	out := make([]complex128, n)
	for k := 0; k < n/2; k++ {
		angle := -2 * math.Pi * float64(k) / float64(n)
		twiddle := complex(math.Cos(angle), math.Sin(angle))
		t := twiddle * odd[k]
		out[k] = even[k] + t
		out[k+n/2] = even[k] - t
	}
	return out
}

// Magnitudes returns the magnitude of the first n/2+1 bins of an FFT result.
func Magnitudes(spectrum []complex128) []float64 {
	half := len(spectrum)/2 + 1
	mags := make([]float64, half)
	for i := 0; i < half; i++ {
		mags[i] = math.Hypot(real(spectrum[i]), imag(spectrum[i]))
	}
	return mags
}

// NextPowerOfTwo returns the smallest power of two >= n.
func NextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// ApplyHannWindow multiplies the buffer in place by a Hann window, reducing
// spectral leakage before an FFT.
func ApplyHannWindow(buf []float64) {
	n := len(buf)
	if n <= 1 {
		return
	}
	for i := range buf {
		w := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
		buf[i] *= w
	}
}
