package dsp

import "math"

// PitchClasses lists the twelve pitch class names in chromatic order from C.
var PitchClasses = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Krumhansl-Schmuckler key profiles.
var (
	majorProfile = [12]float64{6.35, 2.23, 3.48, 2.33, 4.38, 4.09, 2.52, 5.19, 2.39, 3.66, 2.29, 2.88}
	minorProfile = [12]float64{6.33, 2.68, 3.52, 5.38, 2.60, 3.53, 2.54, 4.75, 3.98, 2.69, 3.34, 3.17}
)

const (
	chromaFrameSize = 8192
	chromaLowMIDI   = 48 // C3
	chromaOctaves   = 4
)

// Chroma computes the average pitch-class energy distribution of the signal.
// Energy is measured with a Goertzel filter bank over four octaves starting at
// C3, folded into twelve pitch classes and normalized to unit sum.
func Chroma(samples []float32, sampleRate int) [12]float64 {
	var chroma [12]float64
	if len(samples) < chromaFrameSize {
		return chroma
	}

	hop := chromaFrameSize / 2
	frames := (len(samples)-chromaFrameSize)/hop + 1
	frame := make([]float64, chromaFrameSize)

	for f := 0; f < frames; f++ {
		start := f * hop
		for i := range frame {
			frame[i] = float64(samples[start+i])
		}
		ApplyHannWindow(frame)

		for note := 0; note < chromaOctaves*12; note++ {
			midi := chromaLowMIDI + note
			freq := 440.0 * math.Pow(2, (float64(midi)-69)/12)
			if freq >= float64(sampleRate)/2 {
				break
			}
			chroma[midi%12] += goertzelPower(frame, freq, sampleRate)
		}
	}

	sum := 0.0
	for _, v := range chroma {
		sum += v
	}
	if sum > 0 {
		for i := range chroma {
			chroma[i] /= sum
		}
	}
	return chroma
}

// goertzelPower returns the signal power at an arbitrary target frequency.
func goertzelPower(frame []float64, freq float64, sampleRate int) float64 {
	omega := 2 * math.Pi * freq / float64(sampleRate)
	coeff := 2 * math.Cos(omega)

	var s0, s1, s2 float64
	for _, x := range frame {
		s0 = x + coeff*s1 - s2
		s2 = s1
		s1 = s0
	}
	return s1*s1 + s2*s2 - coeff*s1*s2
}

// EstimateKey matches a chroma vector against the 24 rotated major and minor
// profiles and returns the best key (e.g. "C major"), with a confidence from
// the Pearson correlation of the winning profile.
func EstimateKey(chroma [12]float64) (key string, confidence float64) {
	bestCorr := math.Inf(-1)
	bestIdx, bestScale := 0, "major"

	for tonic := 0; tonic < 12; tonic++ {
		if c := profileCorrelation(chroma, majorProfile, tonic); c > bestCorr {
			bestCorr, bestIdx, bestScale = c, tonic, "major"
		}
		if c := profileCorrelation(chroma, minorProfile, tonic); c > bestCorr {
			bestCorr, bestIdx, bestScale = c, tonic, "minor"
		}
	}

	return PitchClasses[bestIdx] + " " + bestScale, clamp01(bestCorr)
}

// profileCorrelation computes the Pearson correlation between the chroma
// vector and the profile rotated so index 0 aligns with the given tonic.
func profileCorrelation(chroma [12]float64, profile [12]float64, tonic int) float64 {
	var x, y [12]float64
	for i := 0; i < 12; i++ {
		x[i] = chroma[i]
		y[i] = profile[((i-tonic)%12+12)%12]
	}

	mx, my := 0.0, 0.0
	for i := 0; i < 12; i++ {
		mx += x[i]
		my += y[i]
	}
	mx /= 12
	my /= 12

	var num, dx, dy float64
	for i := 0; i < 12; i++ {
		a, b := x[i]-mx, y[i]-my
		num += a * b
		dx += a * a
		dy += b * b
	}
	if dx == 0 || dy == 0 {
		return 0
	}
	return num / math.Sqrt(dx*dy)
}
