package effects

import "math"

// DelayPreset names one of the documented factory parameter sets.
type DelayPreset int

const (
	DelayPresetDefault DelayPreset = iota
	DelayPresetSlapBack
	DelayPresetClassicEcho
	DelayPresetAmbient
	DelayPresetRhythmic
	DelayPresetPingPong
	DelayPresetTapeEcho
	DelayPresetDub
	DelayPresetThickening
)

// delayPresetValues holds (timeMs, feedback, mix, damping) per preset.
var delayPresetValues = map[DelayPreset][4]float64{
	DelayPresetDefault:    {300, 0.35, 0.35, 0.2},
	DelayPresetSlapBack:   {90, 0.1, 0.3, 0.1},
	DelayPresetClassicEcho: {350, 0.45, 0.4, 0.25},
	DelayPresetAmbient:    {650, 0.55, 0.5, 0.6},
	DelayPresetRhythmic:   {240, 0.5, 0.45, 0.3},
	DelayPresetPingPong:   {280, 0.4, 0.5, 0.2},
	DelayPresetTapeEcho:   {320, 0.5, 0.4, 0.7},
	DelayPresetDub:        {500, 0.65, 0.55, 0.45},
	DelayPresetThickening: {25, 0.2, 0.3, 0.1},
}

// ApplyPreset sets time/feedback/mix/damping from the documented table.
func (d *Delay) ApplyPreset(p DelayPreset) {
	v, ok := delayPresetValues[p]
	if !ok {
		v = delayPresetValues[DelayPresetDefault]
	}
	d.SetTimeMs(v[0])
	d.SetFeedback(v[1])
	d.SetMix(v[2])
	d.SetDamping(v[3])
}

// Delay implements spec.md §4.I's delay effect: a circular buffer with
// feedback through a soft-clip saturator and per-channel high-frequency
// damping. Per spec.md §9's redesign note, damping state is kept
// per-channel (the source reused a single _lastOutput across channels,
// causing inter-channel leakage; this is treated as a bug to fix).
type Delay struct {
	base

	sampleRate int
	channels   int

	timeMs   float64
	feedback float64
	damping  float64

	line       []float64
	writeIdx   int
	lastOutput []float64 // one damping history value per channel
}

// NewDelay constructs a Delay with the Default preset's parameters.
func NewDelay() *Delay {
	d := &Delay{base: newBase("Delay")}
	d.ApplyPreset(DelayPresetDefault)
	return d
}

func (d *Delay) Initialize(sampleRate int, channels int) error {
	d.sampleRate = sampleRate
	d.channels = channels
	d.resize()
	d.Reset()
	return nil
}

func (d *Delay) resize() {
	if d.sampleRate <= 0 {
		d.sampleRate = 44100
	}
	samples := int(math.Ceil(d.timeMs / 1000 * float64(d.sampleRate)))
	if samples < 1 {
		samples = 1
	}
	d.line = make([]float64, samples)
	d.writeIdx = 0
	channels := d.channels
	if channels < 1 {
		channels = 1
	}
	d.lastOutput = make([]float64, channels)
}

// SetTimeMs sets the delay time, clamped to [1, 5000] ms, resizing and
// resetting the line.
func (d *Delay) SetTimeMs(ms float64) {
	d.timeMs = clamp(ms, 1, 5000)
	d.resize()
}

func (d *Delay) SetFeedback(fb float64) { d.feedback = clamp(fb, 0, 1) }
func (d *Delay) SetDamping(damping float64) { d.damping = clamp(damping, 0, 1) }

func (d *Delay) TimeMs() float64    { return d.timeMs }
func (d *Delay) Feedback() float64  { return d.feedback }
func (d *Delay) Damping() float64   { return d.damping }

func (d *Delay) Reset() {
	for i := range d.line {
		d.line[i] = 0
	}
	for i := range d.lastOutput {
		d.lastOutput[i] = 0
	}
	d.writeIdx = 0
}

func (d *Delay) Dispose() {}

// Process walks the interleaved sample stream directly (not frame by
// frame): the delay line's write/read cursor advances once per sample, so
// its configured length is in samples, exactly as spec.md §4.I states.
// Each channel's damping history is selected by the sample's position
// modulo the channel count, which is what keeps channels from leaking
// into one another (spec.md §9's redesign direction).
func (d *Delay) Process(buf []float32, frameCount int) {
	if !d.shouldProcess() {
		return
	}
	channels := d.channels
	if channels < 1 {
		channels = 1
	}
	n := len(d.line)
	if n == 0 {
		return
	}

	total := frameCount * channels
	if total > len(buf) {
		total = len(buf)
	}

	for i := 0; i < total; i++ {
		ch := i % channels
		input := float64(buf[i])

		delayed := d.line[d.writeIdx]

		// First-order low-pass using the damping coefficient, kept
		// per-channel so channels do not leak into one another. damping=0
		// tracks the delayed sample exactly (no filtering); damping=1
		// freezes the output at its prior value (maximal damping).
		lp := d.lastOutput[ch] + (1-d.damping)*(delayed-d.lastOutput[ch])
		d.lastOutput[ch] = lp

		feedbackSample := softClip(lp * d.feedback)
		d.line[d.writeIdx] = input + feedbackSample

		output := input*(1-d.mix) + lp*d.mix
		buf[i] = float32(output)

		d.writeIdx++
		if d.writeIdx >= n {
			d.writeIdx = 0
		}
	}
}
