package effects

// Volume implements spec.md §4.I's trivial effect: a scalar multiply per
// sample. It carries no internal state, so Reset is a no-op.
type Volume struct {
	base
	level float64
}

// NewVolume constructs a Volume at unity gain.
func NewVolume() *Volume {
	return &Volume{base: newBase("Volume"), level: 1}
}

// SetLevel sets the linear gain factor, clamped to [0, 4] (+12 dB
// headroom above unity).
func (v *Volume) SetLevel(level float64) { v.level = clamp(level, 0, 4) }

func (v *Volume) Level() float64 { return v.level }

func (v *Volume) Initialize(sampleRate int, channels int) error { return nil }

func (v *Volume) Reset() {}

func (v *Volume) Dispose() {}

func (v *Volume) Process(buf []float32, frameCount int) {
	if !v.shouldProcess() {
		return
	}
	level := float32(v.level)
	for i, x := range buf {
		buf[i] = x*(1-float32(v.mix)) + x*level*float32(v.mix)
	}
}
