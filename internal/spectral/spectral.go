// Package spectral implements spec.md §4.J's spectrum analysis and EQ
// matching: segmented band-energy analysis, direct EQ-gain derivation,
// dynamic-range matching, preset presentation targets, and a WAV-backed
// ProcessEQMatching entry point. Grounded on the teacher's WAV handling
// (internal/audio's use of go-audio/wav for file I/O) and on the corpus's
// only FFT dependency, gonum.org/v1/gonum/dsp/fourier (named in
// rayboyd-audio-engine's go.mod); no example repo implements spectral
// analysis itself, so the per-band algorithm follows spec.md §4.J
// literally.
package spectral

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// BandCenters are the 10 log-spaced band centers spec.md §4.J names.
var BandCenters = [10]float64{31.25, 62.5, 125, 250, 500, 1000, 2000, 4000, 8000, 16000}

// bandEdges returns the 11 edges (Hz) bracketing the 10 bands, using the
// geometric mean between adjacent centers, with band 0 starting at 0 Hz
// and band 9 extending to Nyquist (filled in by the caller, who knows the
// sample rate).
func bandEdges(nyquist float64) [11]float64 {
	var edges [11]float64
	edges[0] = 0
	for i := 1; i < 10; i++ {
		edges[i] = math.Sqrt(BandCenters[i-1] * BandCenters[i])
	}
	edges[10] = nyquist
	return edges
}

// Spectrum is a single stream's spectral/dynamic profile (spec.md §4.J).
// Bands are normalized to [0,1] over the analysed segment(s). RMS, Peak,
// and DynamicRangeDB are non-negative and finite; LoudnessDBFS is a
// mean-square-based measure that is never positive.
type Spectrum struct {
	Bands          [10]float64
	RMS            float64
	Peak           float64
	DynamicRangeDB float64
	LoudnessDBFS   float64
}

// noiseFloorDB is the assumed noise floor used when deriving dynamic
// range from peak and RMS, avoiding a division/log of exactly zero on
// silent material.
const noiseFloorDB = -96

// analyzeWindow computes the raw (un-normalized) band energies, the sum
// of squared samples, and the peak of one window of mono float64 samples via FFT magnitude binning.
func analyzeWindow(samples []float64, sampleRate int) (bands [10]float64, rmsSum float64, peak float64) {
	n := len(samples)
	if n == 0 {
		return bands, 0, 0
	}

	windowed := make([]float64, n)
	for i, s := range samples {
		// Hann window to reduce spectral leakage at segment boundaries.
		w := 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
		windowed[i] = s * w
		if abs := math.Abs(s); abs > peak {
			peak = abs
		}
		rmsSum += s * s
	}

	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, windowed)

	nyquist := float64(sampleRate) / 2
	edges := bandEdges(nyquist)

	for k, c := range coeffs {
		freq := float64(k) * float64(sampleRate) / float64(n)
		if freq > nyquist {
			break
		}
		mag2 := real(c)*real(c) + imag(c)*imag(c)
		for b := 0; b < 10; b++ {
			if freq >= edges[b] && freq < edges[b+1] {
				bands[b] += mag2
				break
			}
		}
	}

	return bands, rmsSum, peak
}

// normalize scales band energies into [0,1] over their own sum, so a
// Spectrum's Bands array describes relative spectral shape rather than
// absolute energy.
func normalize(bands [10]float64) [10]float64 {
	var total float64
	for _, v := range bands {
		total += v
	}
	if total <= 0 {
		return bands
	}
	var out [10]float64
	for i, v := range bands {
		out[i] = v / total
	}
	return out
}

// analyzeOne computes a single Spectrum for one contiguous window,
// without segmentation. Used both directly and as a building block for
// segmented analysis.
func analyzeOne(samples []float64, sampleRate int) Spectrum {
	bands, rmsSum, peak := analyzeWindow(samples, sampleRate)
	n := len(samples)

	meanSquare := 0.0
	if n > 0 {
		meanSquare = rmsSum / float64(n)
	}
	rms := math.Sqrt(meanSquare)

	loudness := -200.0
	if meanSquare > 0 {
		loudness = 10 * math.Log10(meanSquare)
	}
	if loudness > 0 {
		loudness = 0
	}

	rmsDB := noiseFloorDB
	if rms > 0 {
		rmsDB = linearToDB(rms)
		if rmsDB < noiseFloorDB {
			rmsDB = noiseFloorDB
		}
	}
	peakDB := noiseFloorDB
	if peak > 0 {
		peakDB = linearToDB(peak)
	}
	dynamicRange := peakDB - rmsDB
	if dynamicRange < 0 {
		dynamicRange = 0
	}

	return Spectrum{
		Bands:          normalize(bands),
		RMS:            rms,
		Peak:           peak,
		DynamicRangeDB: dynamicRange,
		LoudnessDBFS:   loudness,
	}
}

func linearToDB(v float64) float64 {
	if v <= 0 {
		return noiseFloorDB
	}
	return 20 * math.Log10(v)
}
