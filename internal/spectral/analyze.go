package spectral

import (
	"fmt"
	"sort"

	"github.com/le-bot-team/audioengine/internal/engineerr"
)

// minAnalysisSeconds is spec.md §4.J's minimum clip length; shorter
// audio fails with engineerr.ErrTooShort.
const minAnalysisSeconds = 10

// segmentSeconds and segmentOverlap size the sliding analysis window
// used once audio clears the minimum-length bar.
const (
	segmentSeconds = 2.0
	segmentOverlap = 0.5 // fraction of a segment shared with the next
)

// Analyze computes the segmented Spectrum of a mono float64 stream
// (spec.md §4.J). Audio shorter than minAnalysisSeconds fails with
// engineerr.ErrTooShort. Audio at or above that length, but shorter than
// one full segment, is analysed as a single window; longer audio is split
// into overlapping segments whose per-band energies and dynamics are
// combined with a trimmed mean, discarding the single highest and lowest
// outlier segment (when there are enough segments to do so) before
// averaging.
func Analyze(samples []float64, sampleRate int) (Spectrum, error) {
	if sampleRate <= 0 {
		return Spectrum{}, fmt.Errorf("spectral: invalid sample rate %d", sampleRate)
	}
	durationSeconds := float64(len(samples)) / float64(sampleRate)
	if durationSeconds < minAnalysisSeconds {
		return Spectrum{}, fmt.Errorf("%w: %.2fs shorter than minimum %ds", engineerr.ErrTooShort, durationSeconds, minAnalysisSeconds)
	}

	segLen := int(segmentSeconds * float64(sampleRate))
	if segLen <= 0 || segLen >= len(samples) {
		return analyzeOne(samples, sampleRate), nil
	}

	step := int(float64(segLen) * (1 - segmentOverlap))
	if step < 1 {
		step = 1
	}

	var segments []Spectrum
	for start := 0; start+segLen <= len(samples); start += step {
		segments = append(segments, analyzeOne(samples[start:start+segLen], sampleRate))
	}
	if len(segments) == 0 {
		return analyzeOne(samples, sampleRate), nil
	}

	return trimmedMean(segments), nil
}

// trimmedMean averages per-band energies, RMS, peak, dynamic range, and
// loudness across segments, dropping the single highest and lowest
// outlier by loudness when there are at least 4 segments (so a handful of
// segments aren't reduced to nothing by trimming).
func trimmedMean(segments []Spectrum) Spectrum {
	kept := segments
	if len(segments) >= 4 {
		sorted := append([]Spectrum(nil), segments...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].LoudnessDBFS < sorted[j].LoudnessDBFS })
		kept = sorted[1 : len(sorted)-1]
	}

	var out Spectrum
	n := float64(len(kept))
	for _, s := range kept {
		for b := 0; b < 10; b++ {
			out.Bands[b] += s.Bands[b]
		}
		out.RMS += s.RMS
		out.Peak += s.Peak
		out.DynamicRangeDB += s.DynamicRangeDB
		out.LoudnessDBFS += s.LoudnessDBFS
	}
	for b := 0; b < 10; b++ {
		out.Bands[b] /= n
	}
	out.RMS /= n
	out.Peak /= n
	out.DynamicRangeDB /= n
	out.LoudnessDBFS /= n
	out.Bands = normalize(out.Bands)
	return out
}
