package effects

import "math"

// BiquadType selects the filter response computed by Biquad.SetParams.
type BiquadType int

const (
	BiquadLowpass BiquadType = iota
	BiquadHighpass
	BiquadPeaking
)

// Biquad is a canonical direct-form-I biquad filter (spec.md §4.I). It is
// not an Effect in its own right (no wet/dry mix or enable flag) — it is
// the building block the Crossover and the Multiband per-band EQ compose.
// Coefficient computation neutralises the filter to a pass-through for a
// non-positive frequency or Q rather than ever producing NaN/Inf, per
// spec.md §4.I.
type Biquad struct {
	sampleRate float64

	b0, b1, b2 float64
	a1, a2     float64

	// per-channel direct-form-I history
	x1, x2, y1, y2 []float64
}

// NewBiquad constructs a Biquad for the given sample rate and channel
// count, initialized as a transparent pass-through.
func NewBiquad(sampleRate int, channels int) *Biquad {
	b := &Biquad{sampleRate: float64(sampleRate)}
	b.passThrough()
	b.allocHistory(channels)
	return b
}

func (b *Biquad) allocHistory(channels int) {
	if channels < 1 {
		channels = 1
	}
	b.x1 = make([]float64, channels)
	b.x2 = make([]float64, channels)
	b.y1 = make([]float64, channels)
	b.y2 = make([]float64, channels)
}

func (b *Biquad) passThrough() {
	b.b0, b.b1, b.b2 = 1, 0, 0
	b.a1, b.a2 = 0, 0
}

// SetParams recomputes the filter's coefficients for type, center
// frequency (Hz), Q, and gain in dB (used only by Peaking). A
// non-positive frequency or Q neutralises the filter to pass-through
// instead of producing NaN or infinite coefficients.
func (b *Biquad) SetParams(typ BiquadType, freq, q, gainDB float64) {
	if freq <= 0 || q <= 0 || b.sampleRate <= 0 {
		b.passThrough()
		return
	}

	w0 := 2 * math.Pi * freq / b.sampleRate
	cosW0 := math.Cos(w0)
	sinW0 := math.Sin(w0)
	alpha := sinW0 / (2 * q)

	var b0, b1, b2, a0, a1, a2 float64

	switch typ {
	case BiquadLowpass:
		b0 = (1 - cosW0) / 2
		b1 = 1 - cosW0
		b2 = (1 - cosW0) / 2
		a0 = 1 + alpha
		a1 = -2 * cosW0
		a2 = 1 - alpha
	case BiquadHighpass:
		b0 = (1 + cosW0) / 2
		b1 = -(1 + cosW0)
		b2 = (1 + cosW0) / 2
		a0 = 1 + alpha
		a1 = -2 * cosW0
		a2 = 1 - alpha
	case BiquadPeaking:
		a := math.Pow(10, gainDB/40)
		b0 = 1 + alpha*a
		b1 = -2 * cosW0
		b2 = 1 - alpha*a
		a0 = 1 + alpha/a
		a1 = -2 * cosW0
		a2 = 1 - alpha/a
	default:
		b.passThrough()
		return
	}

	if a0 == 0 {
		b.passThrough()
		return
	}

	b.b0, b.b1, b.b2 = b0/a0, b1/a0, b2/a0
	b.a1, b.a2 = a1/a0, a2/a0
}

// Reset clears the filter history without changing coefficients.
func (b *Biquad) Reset() {
	for i := range b.x1 {
		b.x1[i], b.x2[i] = 0, 0
		b.y1[i], b.y2[i] = 0, 0
	}
}

// ProcessSample filters a single interleaved sample belonging to channel
// ch, in direct-form-I.
func (b *Biquad) ProcessSample(ch int, x float64) float64 {
	y := b.b0*x + b.b1*b.x1[ch] + b.b2*b.x2[ch] - b.a1*b.y1[ch] - b.a2*b.y2[ch]
	b.x2[ch] = b.x1[ch]
	b.x1[ch] = x
	b.y2[ch] = b.y1[ch]
	b.y1[ch] = y
	return y
}

// Process filters an interleaved buffer in place.
func (b *Biquad) Process(buf []float64, channels int) {
	if channels < 1 {
		channels = 1
	}
	for i := range buf {
		ch := i % channels
		buf[i] = b.ProcessSample(ch, buf[i])
	}
}
