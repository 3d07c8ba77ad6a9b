package effects

import "math"

// Enhancer implements spec.md §4.I's harmonic enhancer: a single-pole
// high-pass filter feeding a tanh saturator, summed back with the dry
// input by mix.
type Enhancer struct {
	base

	sampleRate int
	channels   int

	gain   float64
	cutoff float64

	alpha float64

	prevInput  []float64
	prevOutput []float64
}

// NewEnhancer constructs an Enhancer with conservative defaults.
func NewEnhancer() *Enhancer {
	e := &Enhancer{
		base:   newBase("Enhancer"),
		gain:   2,
		cutoff: 3000,
	}
	return e
}

func (e *Enhancer) Initialize(sampleRate int, channels int) error {
	e.sampleRate = sampleRate
	e.channels = channels
	e.recomputeCoefficient()
	e.Reset()
	return nil
}

func (e *Enhancer) recomputeCoefficient() {
	if e.sampleRate <= 0 {
		e.sampleRate = 44100
	}
	rc := 1 / (2 * math.Pi * e.cutoff)
	e.alpha = rc / (rc + 1/(2*math.Pi*e.cutoff*float64(e.sampleRate)))
}

// SetGain clamps to [0.1, 10].
func (e *Enhancer) SetGain(gain float64) { e.gain = clamp(gain, 0.1, 10) }

// SetCutoffHz clamps to [100, 20000] and recomputes the filter coefficient.
func (e *Enhancer) SetCutoffHz(hz float64) {
	e.cutoff = clamp(hz, 100, 20000)
	e.recomputeCoefficient()
}

func (e *Enhancer) Gain() float64     { return e.gain }
func (e *Enhancer) CutoffHz() float64 { return e.cutoff }

func (e *Enhancer) Reset() {
	channels := e.channels
	if channels < 1 {
		channels = 1
	}
	e.prevInput = make([]float64, channels)
	e.prevOutput = make([]float64, channels)
}

func (e *Enhancer) Dispose() {}

func (e *Enhancer) Process(buf []float32, frameCount int) {
	if !e.shouldProcess() {
		return
	}
	channels := e.channels
	if channels < 1 {
		channels = 1
	}

	total := frameCount * channels
	if total > len(buf) {
		total = len(buf)
	}

	for i := 0; i < total; i++ {
		ch := i % channels
		input := float64(buf[i])

		hpf := e.alpha * (e.prevOutput[ch] + input - e.prevInput[ch])
		e.prevInput[ch] = input
		e.prevOutput[ch] = hpf

		saturated := math.Tanh(hpf*e.gain/2) * 2

		output := input*(1-e.mix) + (input+saturated)*e.mix
		buf[i] = float32(output)
	}
}
