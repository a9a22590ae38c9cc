package dsp

import "math"

const (
	tempoFrameSize = 1024
	tempoHop       = 512
)

// EstimateTempo estimates the dominant tempo of the signal in BPM from the
// autocorrelation of its energy envelope, restricted to the [minBPM, maxBPM]
// range. Confidence is the normalized autocorrelation strength of the winning
// beat period. Returns (0, 0) when the signal is too short or has no
// periodicity in range.
func EstimateTempo(samples []float32, sampleRate int, minBPM, maxBPM float64) (bpm, confidence float64) {
	env := RMSFrames(samples, tempoFrameSize, tempoHop)
	if len(env) == 0 {
		return 0, 0
	}
	envRate := float64(sampleRate) / float64(tempoHop)

	// De-mean so the autocorrelation reflects modulation, not DC level.
	mean := 0.0
	for _, v := range env {
		mean += v
	}
	mean /= float64(len(env))
	for i := range env {
		env[i] -= mean
	}

	minLag := int(envRate * 60 / maxBPM)
	maxLag := int(math.Ceil(envRate * 60 / minBPM))
	if minLag < 1 {
		minLag = 1
	}
	if maxLag >= len(env) {
		maxLag = len(env) - 1
	}
	if maxLag <= minLag {
		return 0, 0
	}

	var zero float64
	for _, v := range env {
		zero += v * v
	}
	if zero == 0 {
		return 0, 0
	}

	ac := make([]float64, maxLag+1)
	bestLag, bestVal := 0, 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		sum := 0.0
		for i := 0; i+lag < len(env); i++ {
			sum += env[i] * env[i+lag]
		}
		// Bias correction for the shrinking overlap window.
		ac[lag] = sum / float64(len(env)-lag)
		if ac[lag] > bestVal {
			bestVal = ac[lag]
			bestLag = lag
		}
	}
	if bestLag == 0 || bestVal <= 0 {
		return 0, 0
	}

	// Prefer the shortest near-equal period: a periodic envelope correlates
	// equally at every multiple of its true period, which would otherwise
	// halve the reported tempo.
	for lag := minLag; lag < bestLag; lag++ {
		if ac[lag] >= 0.9*bestVal && (lag == minLag || ac[lag] >= ac[lag-1]) && ac[lag] >= ac[lag+1] {
			bestLag = lag
			bestVal = ac[lag]
			break
		}
	}

	// Parabolic interpolation around the peak for sub-lag precision.
	lag := float64(bestLag)
	if bestLag > minLag && bestLag < maxLag {
		y0, y1, y2 := ac[bestLag-1], ac[bestLag], ac[bestLag+1]
		denom := y0 - 2*y1 + y2
		if denom != 0 {
			lag += 0.5 * (y0 - y2) / denom
		}
	}

	bpm = 60 * envRate / lag
	confidence = clamp01(bestVal / (zero / float64(len(env))))
	return bpm, confidence
}
