package dsp

import "math"

// RMSFrames computes the root-mean-square energy of consecutive frames.
// Frames advance by hop samples; a trailing partial frame is ignored.
func RMSFrames(samples []float32, frameSize, hop int) []float64 {
	if frameSize <= 0 || hop <= 0 || len(samples) < frameSize {
		return nil
	}
	n := (len(samples)-frameSize)/hop + 1
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		start := i * hop
		sum := 0.0
		for _, s := range samples[start : start+frameSize] {
			v := float64(s)
			sum += v * v
		}
		out[i] = math.Sqrt(sum / float64(frameSize))
	}
	return out
}

// AmplitudeToDB converts a linear amplitude to dBFS, clamping the floor so
// digital silence maps to a finite value.
func AmplitudeToDB(amp float64) float64 {
	const floor = 1e-10
	if amp < floor {
		amp = floor
	}
	return 20 * math.Log10(amp)
}

// OnsetStrength computes a spectral-flux onset envelope. Each element is the
// half-wave rectified increase in magnitude between consecutive frames, summed
// across bins. The returned envelope has one value per hop.
func OnsetStrength(samples []float32, frameSize, hop int) []float64 {
	if frameSize <= 0 || hop <= 0 || len(samples) < frameSize {
		return nil
	}
	fftSize := NextPowerOfTwo(frameSize)
	n := (len(samples)-frameSize)/hop + 1

	env := make([]float64, n)
	var prev []float64
	buf := make([]float64, fftSize)

	for i := 0; i < n; i++ {
		start := i * hop
		for j := 0; j < fftSize; j++ {
			if j < frameSize {
				buf[j] = float64(samples[start+j])
			} else {
				buf[j] = 0
			}
		}
		ApplyHannWindow(buf[:frameSize])
		mags := Magnitudes(FFT(buf))

		if prev != nil {
			flux := 0.0
			for k := range mags {
				if d := mags[k] - prev[k]; d > 0 {
					flux += d
				}
			}
			env[i] = flux
		}
		prev = mags
	}
	return env
}

// PickPeaks selects local maxima of the envelope that exceed
// mean + delta*stddev, keeping at most one peak per minSeparation hops.
// It returns the peak indices and a 0..1 prominence score per peak.
func PickPeaks(env []float64, delta float64, minSeparation int) (indices []int, prominence []float64) {
	if len(env) < 3 {
		return nil, nil
	}

	mean, std := meanStd(env)
	threshold := mean + delta*std

	maxVal := mean
	for _, v := range env {
		if v > maxVal {
			maxVal = v
		}
	}
	rng := maxVal - mean
	if rng <= 0 {
		return nil, nil
	}

	lastPeak := -minSeparation - 1
	for i := 1; i < len(env)-1; i++ {
		if env[i] < threshold || env[i] < env[i-1] || env[i] < env[i+1] {
			continue
		}
		if i-lastPeak <= minSeparation {
			// Keep the stronger of the two competing peaks.
			if len(indices) > 0 && env[i] > env[indices[len(indices)-1]] {
				indices[len(indices)-1] = i
				prominence[len(prominence)-1] = clamp01((env[i] - mean) / rng)
				lastPeak = i
			}
			continue
		}
		indices = append(indices, i)
		prominence = append(prominence, clamp01((env[i]-mean)/rng))
		lastPeak = i
	}
	return indices, prominence
}

func meanStd(v []float64) (mean, std float64) {
	if len(v) == 0 {
		return 0, 0
	}
	for _, x := range v {
		mean += x
	}
	mean /= float64(len(v))
	for _, x := range v {
		d := x - mean
		std += d * d
	}
	std = math.Sqrt(std / float64(len(v)))
	return mean, std
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
