package spectral

// PresentationSystem enumerates the target playback systems spec.md
// §4.J's preset table maps to a concrete frequency response / loudness /
// dynamic-range target.
type PresentationSystem int

const (
	PresentationStudioMonitors PresentationSystem = iota
	PresentationHeadphones
	PresentationCarStereo
	PresentationHiFiSpeakers
)

func (p PresentationSystem) String() string {
	switch p {
	case PresentationStudioMonitors:
		return "StudioMonitors"
	case PresentationHeadphones:
		return "Headphones"
	case PresentationCarStereo:
		return "CarStereo"
	case PresentationHiFiSpeakers:
		return "HiFiSpeakers"
	default:
		return "Unknown"
	}
}

// PresetTarget is the data spec.md §4.J requires each presentation system
// to carry: a 10-band frequency-response curve (relative energy weights
// stored as written, summing to roughly but not exactly 1;
// SpectrumForPreset normalizes them the way Spectrum.Bands is), a target
// loudness, and a target dynamic range.
type PresetTarget struct {
	FrequencyResponse  [10]float64
	TargetLoudnessDBFS float64
	TargetDynamicRangeDB float64
}

// Presets is the fixed presentation-system table. It is data, not code,
// per spec.md §4.J.
var Presets = map[PresentationSystem]PresetTarget{
	PresentationStudioMonitors: {
		FrequencyResponse:    [10]float64{0.09, 0.095, 0.10, 0.105, 0.105, 0.10, 0.10, 0.10, 0.10, 0.10},
		TargetLoudnessDBFS:   -16,
		TargetDynamicRangeDB: 14,
	},
	PresentationHeadphones: {
		FrequencyResponse:    [10]float64{0.12, 0.11, 0.10, 0.095, 0.09, 0.09, 0.095, 0.10, 0.105, 0.115},
		TargetLoudnessDBFS:   -14,
		TargetDynamicRangeDB: 10,
	},
	PresentationCarStereo: {
		FrequencyResponse:    [10]float64{0.05, 0.06, 0.08, 0.10, 0.11, 0.12, 0.13, 0.13, 0.11, 0.11},
		TargetLoudnessDBFS:   -9,
		TargetDynamicRangeDB: 6,
	},
	PresentationHiFiSpeakers: {
		FrequencyResponse:    [10]float64{0.11, 0.105, 0.10, 0.098, 0.097, 0.097, 0.098, 0.10, 0.105, 0.11},
		TargetLoudnessDBFS:   -14,
		TargetDynamicRangeDB: 12,
	},
}

// SpectrumForPreset builds a synthetic target Spectrum from a preset, for
// callers that want to EQ-match against a named presentation system
// instead of a reference file.
func SpectrumForPreset(p PresentationSystem) (Spectrum, bool) {
	t, ok := Presets[p]
	if !ok {
		return Spectrum{}, false
	}
	return Spectrum{
		Bands:          normalize(t.FrequencyResponse),
		LoudnessDBFS:   t.TargetLoudnessDBFS,
		DynamicRangeDB: t.TargetDynamicRangeDB,
	}, true
}
