// Package effects implements the DSP effect contract and the individual
// effects of spec.md §4.H/§4.I: delay, lookahead limiter, enhancer,
// biquad, Linkwitz-Riley crossover, per-band compressor, the multiband
// compressor/EQ composite, a dynamic amplifier, and trivial volume.
// Grounded on the teacher's general style of small, single-purpose
// processing structs with Reset/Process methods; no example repo in the
// pack implements DSP effects directly, so the per-sample algorithms
// follow spec.md §4.I literally while the contract shape (enabled flag,
// mix, identity) follows the teacher's component-lifecycle conventions
// (Initialize/dispose pairing used throughout internal/audio).
package effects

import (
	"math"

	"github.com/google/uuid"
)

// mixEpsilon is the threshold below which Process is a no-op even when
// Enabled is true, per spec.md §4.H.
const mixEpsilon = 0.001

// Effect is implemented by every DSP processor in this package. Process
// mutates buf in place; callers must serialize calls to Process for one
// instance (spec.md §3 "Per-effect state").
type Effect interface {
	// Initialize (re)configures the effect for the given sample rate and
	// channel count, resetting internal state.
	Initialize(sampleRate int, channels int) error
	// Process applies the effect in place to frameCount frames of
	// interleaved samples (len(buf) == frameCount*channels).
	Process(buf []float32, frameCount int)
	// Reset clears internal history/state without changing parameters.
	Reset()
	// Dispose releases any resources. Effects in this package hold no
	// native resources, so Dispose is always a no-op, but the method
	// exists to satisfy the shared contract.
	Dispose()

	ID() string
	Name() string
	SetName(name string)

	Enabled() bool
	SetEnabled(enabled bool)

	Mix() float64
	SetMix(mix float64)
}

// base provides the identity/enabled/mix bookkeeping shared by every
// concrete effect, embedded by value so each effect's zero value is still
// usable after a call to newBase.
type base struct {
	id      string
	name    string
	enabled bool
	mix     float64
}

func newBase(name string) base {
	return base{id: uuid.NewString(), name: name, enabled: true, mix: 1.0}
}

func (b *base) ID() string   { return b.id }
func (b *base) Name() string { return b.name }
func (b *base) SetName(name string) {
	b.name = name
}

func (b *base) Enabled() bool          { return b.enabled }
func (b *base) SetEnabled(enabled bool) { b.enabled = enabled }

func (b *base) Mix() float64 { return b.mix }
func (b *base) SetMix(mix float64) {
	b.mix = clamp(mix, 0, 1)
}

// shouldProcess reports whether Process should do real work, per the
// shared no-op rule in spec.md §4.H.
func (b *base) shouldProcess() bool {
	return b.enabled && b.mix >= mixEpsilon
}

// clamp restricts v to [lo, hi], the silent-clamping behavior spec.md
// §4.H requires of every parameter setter.
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampf32(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// softClip applies the piecewise soft-clip saturator from spec.md §4.I's
// delay algorithm: linear below a 0.7 threshold, a smooth asymptote above
// it, sign-preserving.
func softClip(x float64) float64 {
	const threshold = 0.7
	ax := math.Abs(x)
	if ax <= threshold {
		return x
	}
	sign := 1.0
	if x < 0 {
		sign = -1.0
	}
	return (threshold + (1-threshold)*(1-1/(1+2*(ax-threshold)))) * sign
}
